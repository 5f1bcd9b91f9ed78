package team

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/crew/internal/board"
	"github.com/nextlevelbuilder/crew/internal/bus"
	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
	"github.com/nextlevelbuilder/crew/internal/tools"
)

type scriptedProvider struct {
	replies []*providers.Reply
	errs    []error
	calls   int
	seen    []providers.ConverseRequest
}

func (p *scriptedProvider) Converse(ctx context.Context, req providers.ConverseRequest) (*providers.Reply, error) {
	i := p.calls
	p.calls++
	p.seen = append(p.seen, req)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.replies) {
		return &providers.Reply{Content: "done", StopReason: "end_turn"}, nil
	}
	return p.replies[i], nil
}

func (p *scriptedProvider) ConverseStream(ctx context.Context, req providers.ConverseRequest, onChunk func(providers.StreamChunk)) (*providers.Reply, error) {
	return p.Converse(ctx, req)
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }
func (p *scriptedProvider) Name() string         { return "scripted" }

type schedulerFixture struct {
	sched    *Scheduler
	manager  *Manager
	bus      *bus.Bus
	board    *board.Store
	provider *scriptedProvider
}

const spawnPrompt = "Audit the data pipeline and file tasks for anything broken."

func newSchedulerFixture(t *testing.T, provider *scriptedProvider) *schedulerFixture {
	t.Helper()
	dir := t.TempDir()
	mgr, err := NewManager(dir, "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Spawn("alice", "researcher", spawnPrompt); err != nil {
		t.Fatal(err)
	}
	b, err := bus.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	store, err := board.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	reg := tools.NewRegistry()
	reg.Register(tools.NewIdleTool(false))
	reg.Register(tools.NewClaimTaskTool(store, "alice"))

	sched := NewScheduler("alice", "researcher", spawnPrompt, mgr, b, store, provider, reg, "", config.TeamConfig{})
	sched.poll = 10 * time.Millisecond
	sched.idleTimeout = 60 * time.Millisecond
	return &schedulerFixture{sched: sched, manager: mgr, bus: b, board: store, provider: provider}
}

func TestSchedulerIdleTimeoutShutsDown(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{{
			StopReason: "tool_use",
			ToolCalls:  []providers.ToolCall{{ID: "t1", Name: "idle", Arguments: map[string]interface{}{}}},
		}},
	}
	fx := newSchedulerFixture(t, provider)

	fx.sched.Run(context.Background())

	status, err := fx.manager.Status("alice")
	if err != nil || status != StatusShutdown {
		t.Errorf("status = %q, err = %v", status, err)
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1", provider.calls)
	}
}

func TestSchedulerSeedsConversationWithSpawnPrompt(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{{
			StopReason: "tool_use",
			ToolCalls:  []providers.ToolCall{{ID: "t1", Name: "idle", Arguments: map[string]interface{}{}}},
		}},
	}
	fx := newSchedulerFixture(t, provider)

	fx.sched.Run(context.Background())

	if provider.calls == 0 {
		t.Fatal("provider never called")
	}
	first := provider.seen[0].Messages[0]
	if first.Role != "user" || first.Content != spawnPrompt {
		t.Errorf("first message = %+v, want the spawn prompt", first)
	}
}

func TestSchedulerAutoClaimsTask(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			{
				StopReason: "tool_use",
				ToolCalls:  []providers.ToolCall{{ID: "t1", Name: "idle", Arguments: map[string]interface{}{}}},
			},
			{Content: "done", StopReason: "end_turn"},
		},
	}
	fx := newSchedulerFixture(t, provider)
	if _, err := fx.board.Create("summarize findings", "all of them"); err != nil {
		t.Fatal(err)
	}

	fx.sched.Run(context.Background())

	task, err := fx.board.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if task.Owner != "alice" || task.Status != board.StatusInProgress {
		t.Errorf("task = %+v", task)
	}

	if provider.calls < 2 {
		t.Fatalf("calls = %d, want at least 2", provider.calls)
	}
	resumed := provider.seen[1].Messages
	if resumed[0].Role != "user" || resumed[0].Content != "<identity>You are 'alice', role: researcher, team: demo.</identity>" {
		t.Errorf("messages[0] = %+v, want identity at the front", resumed[0])
	}
	if resumed[1].Role != "assistant" || resumed[1].Content != "I am alice. Continuing." {
		t.Errorf("messages[1] = %+v", resumed[1])
	}
	var hasClaim bool
	for _, m := range resumed {
		if strings.Contains(m.Content, "<auto-claimed>Task #1: summarize findings\nall of them</auto-claimed>") {
			hasClaim = true
		}
	}
	if !hasClaim {
		t.Error("auto-claimed turn missing from resumed messages")
	}
}

func TestSchedulerHonorsShutdownRequest(t *testing.T) {
	provider := &scriptedProvider{}
	fx := newSchedulerFixture(t, provider)

	if _, err := fx.bus.Send(bus.Message{
		Type:      bus.TypeShutdownRequest,
		From:      LeadName,
		Content:   "Please shut down.",
		RequestID: "req42",
	}, "alice"); err != nil {
		t.Fatal(err)
	}

	fx.sched.Run(context.Background())

	if provider.calls != 0 {
		t.Errorf("calls = %d, want 0", provider.calls)
	}
	msgs, err := fx.bus.ReadInbox(LeadName)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Type != bus.TypeShutdownResponse {
		t.Fatalf("lead inbox = %+v", msgs)
	}
	if msgs[0].RequestID != "req42" || msgs[0].Approve == nil || !*msgs[0].Approve {
		t.Errorf("ack = %+v", msgs[0])
	}
}

func TestSchedulerConverseFailureShutsDown(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("api down")}}
	fx := newSchedulerFixture(t, provider)

	fx.sched.Run(context.Background())

	status, _ := fx.manager.Status("alice")
	if status != StatusShutdown {
		t.Errorf("status = %q", status)
	}
}

func TestSchedulerInboxMessageResumesWork(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			{
				StopReason: "tool_use",
				ToolCalls:  []providers.ToolCall{{ID: "t1", Name: "idle", Arguments: map[string]interface{}{}}},
			},
			{Content: "replied", StopReason: "end_turn"},
		},
	}
	fx := newSchedulerFixture(t, provider)

	go func() {
		time.Sleep(20 * time.Millisecond)
		fx.bus.Send(bus.Message{Type: bus.TypeMessage, From: LeadName, Content: "status update please"}, "alice")
	}()

	fx.sched.Run(context.Background())

	if provider.calls < 2 {
		t.Fatalf("calls = %d, want at least 2", provider.calls)
	}
	var sawInbox bool
	for _, m := range provider.seen[1].Messages {
		if m.Role != "user" {
			continue
		}
		var delivered bus.Message
		if err := json.Unmarshal([]byte(m.Content), &delivered); err != nil {
			continue
		}
		if delivered.Type == bus.TypeMessage && delivered.Content == "status update please" {
			sawInbox = true
		}
	}
	if !sawInbox {
		t.Error("inbox message not injected as its own raw-JSON user turn")
	}
}
