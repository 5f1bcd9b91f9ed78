package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crew/internal/bus"
)

// Roster is the surface the team tools need from the roster manager.
type Roster interface {
	// Spawn starts (or reactivates) a teammate and seeds its conversation
	// with prompt. It fails when the member is already working.
	Spawn(name, role, prompt string) (string, error)
	// ListAll renders the roster with statuses.
	ListAll() (string, error)
	// MemberNames returns active teammate names.
	MemberNames() ([]string, error)
}

// Handshake tracks request/response pairs initiated by the lead.
type Handshake interface {
	// RequestShutdown files a pending shutdown and messages the target.
	// Returns the request id.
	RequestShutdown(target string) (string, error)
	// ResolvePlan approves or rejects a pending plan and messages the
	// submitter. Returns the submitter's name.
	ResolvePlan(requestID string, approve bool, feedback string) (string, error)
}

// SpawnTeammateTool starts a teammate agent.
type SpawnTeammateTool struct {
	roster Roster
}

func NewSpawnTeammateTool(roster Roster) *SpawnTeammateTool {
	return &SpawnTeammateTool{roster: roster}
}

func (t *SpawnTeammateTool) Name() string { return "spawn_teammate" }
func (t *SpawnTeammateTool) Description() string {
	return "Spawn a teammate agent that works the task board autonomously"
}
func (t *SpawnTeammateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Teammate name",
			},
			"role": map[string]interface{}{
				"type":        "string",
				"description": "Teammate role description",
			},
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "Initial briefing for the teammate",
			},
		},
		"required": []string{"name", "role", "prompt"},
	}
}

type spawnArgs struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Prompt string `json:"prompt"`
}

func (t *SpawnTeammateTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params spawnArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Name, "name"); r != nil {
		return r
	}
	if r := requireString(params.Role, "role"); r != nil {
		return r
	}
	if r := requireString(params.Prompt, "prompt"); r != nil {
		return r
	}
	msg, err := t.roster.Spawn(params.Name, params.Role, params.Prompt)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(msg)
}

// ListTeammatesTool renders the roster.
type ListTeammatesTool struct {
	roster Roster
}

func NewListTeammatesTool(roster Roster) *ListTeammatesTool {
	return &ListTeammatesTool{roster: roster}
}

func (t *ListTeammatesTool) Name() string        { return "list_teammates" }
func (t *ListTeammatesTool) Description() string { return "List teammates and their statuses" }
func (t *ListTeammatesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ListTeammatesTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	out, err := t.roster.ListAll()
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(out)
}

// SendMessageTool delivers a direct message to one teammate's inbox.
type SendMessageTool struct {
	bus   *bus.Bus
	agent string
}

func NewSendMessageTool(b *bus.Bus, agent string) *SendMessageTool {
	return &SendMessageTool{bus: b, agent: agent}
}

func (t *SendMessageTool) Name() string        { return "send_message" }
func (t *SendMessageTool) Description() string { return "Send a direct message to a teammate" }
func (t *SendMessageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"to": map[string]interface{}{
				"type":        "string",
				"description": "Recipient name",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Message content",
			},
		},
		"required": []string{"to", "content"},
	}
}

type sendMessageArgs struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

func (t *SendMessageTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params sendMessageArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.To, "to"); r != nil {
		return r
	}
	if r := requireString(params.Content, "content"); r != nil {
		return r
	}
	msg, err := t.bus.Send(bus.Message{
		Type:    bus.TypeMessage,
		From:    t.agent,
		Content: params.Content,
	}, params.To)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(msg)
}

// PlanSubmitTool files a plan with the lead for approval. The plan travels
// as a direct message carrying a request id; the lead resolves it with
// plan_approval and the verdict arrives in the submitter's inbox.
type PlanSubmitTool struct {
	bus   *bus.Bus
	agent string
	lead  string
}

func NewPlanSubmitTool(b *bus.Bus, agent, lead string) *PlanSubmitTool {
	return &PlanSubmitTool{bus: b, agent: agent, lead: lead}
}

func (t *PlanSubmitTool) Name() string { return "plan_submit" }
func (t *PlanSubmitTool) Description() string {
	return "Submit a plan to the lead for approval before starting risky work"
}
func (t *PlanSubmitTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"plan": map[string]interface{}{
				"type":        "string",
				"description": "The plan to submit",
			},
		},
		"required": []string{"plan"},
	}
}

type planSubmitArgs struct {
	Plan string `json:"plan"`
}

func (t *PlanSubmitTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params planSubmitArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Plan, "plan"); r != nil {
		return r
	}
	id := uuid.NewString()[:8]
	if _, err := t.bus.Send(bus.Message{
		Type:      bus.TypeMessage,
		From:      t.agent,
		Content:   params.Plan,
		RequestID: id,
	}, t.lead); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(fmt.Sprintf("Submitted plan %s for approval.", id))
}

// ReadInboxTool drains the calling agent's inbox.
type ReadInboxTool struct {
	bus   *bus.Bus
	agent string
}

func NewReadInboxTool(b *bus.Bus, agent string) *ReadInboxTool {
	return &ReadInboxTool{bus: b, agent: agent}
}

func (t *ReadInboxTool) Name() string        { return "read_inbox" }
func (t *ReadInboxTool) Description() string { return "Read and clear your message inbox" }
func (t *ReadInboxTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ReadInboxTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	msgs, err := t.bus.ReadInbox(t.agent)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if len(msgs) == 0 {
		return NewResult("No new messages.")
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(string(data))
}

// BroadcastTool sends one message to every other teammate.
type BroadcastTool struct {
	bus    *bus.Bus
	roster Roster
	agent  string
}

func NewBroadcastTool(b *bus.Bus, roster Roster, agent string) *BroadcastTool {
	return &BroadcastTool{bus: b, roster: roster, agent: agent}
}

func (t *BroadcastTool) Name() string        { return "broadcast" }
func (t *BroadcastTool) Description() string { return "Send a message to every teammate" }
func (t *BroadcastTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Message content",
			},
		},
		"required": []string{"content"},
	}
}

type broadcastArgs struct {
	Content string `json:"content"`
}

func (t *BroadcastTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params broadcastArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Content, "content"); r != nil {
		return r
	}
	names, err := t.roster.MemberNames()
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	msg, err := t.bus.Broadcast(t.agent, params.Content, names)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(msg)
}

// ShutdownRequestTool asks a teammate to finish up and stop.
type ShutdownRequestTool struct {
	handshake Handshake
}

func NewShutdownRequestTool(h Handshake) *ShutdownRequestTool {
	return &ShutdownRequestTool{handshake: h}
}

func (t *ShutdownRequestTool) Name() string        { return "shutdown_request" }
func (t *ShutdownRequestTool) Description() string { return "Request that a teammate shut down" }
func (t *ShutdownRequestTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Teammate to shut down",
			},
		},
		"required": []string{"name"},
	}
}

type shutdownRequestArgs struct {
	Name string `json:"name"`
}

func (t *ShutdownRequestTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params shutdownRequestArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Name, "name"); r != nil {
		return r
	}
	id, err := t.handshake.RequestShutdown(params.Name)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(fmt.Sprintf("Shutdown request %s sent to '%s'", id, params.Name))
}

// PlanApprovalTool resolves a teammate's submitted plan.
type PlanApprovalTool struct {
	handshake Handshake
}

func NewPlanApprovalTool(h Handshake) *PlanApprovalTool {
	return &PlanApprovalTool{handshake: h}
}

func (t *PlanApprovalTool) Name() string        { return "plan_approval" }
func (t *PlanApprovalTool) Description() string { return "Approve or reject a teammate's submitted plan" }
func (t *PlanApprovalTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"request_id": map[string]interface{}{
				"type":        "string",
				"description": "Plan request id",
			},
			"approve": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether the plan is approved",
			},
			"feedback": map[string]interface{}{
				"type":        "string",
				"description": "Optional feedback for the teammate",
			},
		},
		"required": []string{"request_id", "approve"},
	}
}

type planApprovalArgs struct {
	RequestID string `json:"request_id"`
	Approve   bool   `json:"approve"`
	Feedback  string `json:"feedback"`
}

func (t *PlanApprovalTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params planApprovalArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.RequestID, "request_id"); r != nil {
		return r
	}
	target, err := t.handshake.ResolvePlan(params.RequestID, params.Approve, params.Feedback)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	verdict := "approved"
	if !params.Approve {
		verdict = "rejected"
	}
	return NewResult(fmt.Sprintf("Plan %s for '%s'", verdict, target))
}

// IdleTool ends a teammate's work phase. The lead never idles; its variant
// only reminds the model of that.
type IdleTool struct {
	lead bool
}

func NewIdleTool(lead bool) *IdleTool {
	return &IdleTool{lead: lead}
}

func (t *IdleTool) Name() string { return "idle" }
func (t *IdleTool) Description() string {
	return "Signal that you have no more work and are going idle"
}
func (t *IdleTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *IdleTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.lead {
		return NewResult("Lead does not idle.")
	}
	return SilentResult("Entering idle phase.")
}
