package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/crew/internal/background"
	"github.com/nextlevelbuilder/crew/internal/bus"
	"github.com/nextlevelbuilder/crew/internal/providers"
	"github.com/nextlevelbuilder/crew/internal/team"
	"github.com/nextlevelbuilder/crew/internal/todo"
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

type echoTool struct{}

func (echoTool) Name() string                       { return "echo" }
func (echoTool) Description() string                { return "echo" }
func (echoTool) Parameters() map[string]interface{} { return map[string]interface{}{"type": "object"} }
func (echoTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	s, _ := args["text"].(string)
	return tools.NewResult("echo: " + s)
}

type loopFixture struct {
	loop      *Loop
	provider  *scriptedProvider
	bus       *bus.Bus
	runner    *background.Runner
	handshake *team.Handshake
	manager   *team.Manager
	todos     *todo.Tracker
}

func newLoopFixture(t *testing.T, provider *scriptedProvider) *loopFixture {
	t.Helper()
	dir := t.TempDir()
	b, err := bus.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr, err := team.NewManager(dir, "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	h := team.NewHandshake(b)
	runner := background.NewRunner(dir)
	tracker := todo.NewTracker()

	reg := tools.NewRegistry()
	reg.Register(echoTool{})
	reg.Register(tools.NewCompressTool())

	loop := NewLoop(LoopConfig{
		Provider:  provider,
		Registry:  reg,
		Bus:       b,
		Runner:    runner,
		Handshake: h,
		Manager:   mgr,
		Todos:     tracker,
		Compactor: NewCompactor(provider, "", dir),
		System:    "test system",
	})
	return &loopFixture{loop: loop, provider: provider, bus: b, runner: runner, handshake: h, manager: mgr, todos: tracker}
}

func TestProcessRunsToolsUntilDone(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			{
				StopReason: "tool_use",
				ToolCalls:  []providers.ToolCall{{ID: "t1", Name: "echo", Arguments: map[string]interface{}{"text": "hi"}}},
			},
			{Content: "all done", StopReason: "end_turn"},
		},
	}
	fx := newLoopFixture(t, provider)

	out, err := fx.loop.Process(context.Background(), "say hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "all done" {
		t.Errorf("output = %q", out)
	}

	// Second request carries the tool result back.
	var sawResult bool
	for _, m := range provider.seen[1].Messages {
		if m.Role == "tool" && m.Content == "echo: hi" {
			sawResult = true
		}
	}
	if !sawResult {
		t.Error("tool result not in follow-up request")
	}
}

func TestProcessInjectsBackgroundResults(t *testing.T) {
	provider := &scriptedProvider{}
	fx := newLoopFixture(t, provider)

	fx.runner.Run("echo bg-done", 0)
	waitForNotification(t, fx.runner)

	if _, err := fx.loop.Process(context.Background(), "anything new?"); err != nil {
		t.Fatal(err)
	}

	var sawBG bool
	for _, m := range provider.seen[0].Messages {
		if strings.Contains(m.Content, "<background-results>") && strings.Contains(m.Content, "bg-done") {
			sawBG = true
		}
	}
	if !sawBG {
		t.Error("background results not injected")
	}
}

func waitForNotification(t *testing.T, r *background.Runner) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if strings.Contains(r.Check(""), "[completed]") || strings.Contains(r.Check(""), "[error]") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background job never finished")
}

func TestProcessCompletesShutdownHandshake(t *testing.T) {
	provider := &scriptedProvider{}
	fx := newLoopFixture(t, provider)
	if _, err := fx.manager.Spawn("alice", "researcher", "stand by"); err != nil {
		t.Fatal(err)
	}
	id, err := fx.handshake.RequestShutdown("alice")
	if err != nil {
		t.Fatal(err)
	}
	// Drop the request from alice's inbox; simulate her acknowledgement.
	fx.bus.ReadInbox("alice")
	approve := true
	fx.bus.Send(bus.Message{
		Type: bus.TypeShutdownResponse, From: "alice", RequestID: id, Approve: &approve,
	}, team.LeadName)

	if _, err := fx.loop.Process(context.Background(), "check on the team"); err != nil {
		t.Fatal(err)
	}

	status, err := fx.manager.Status("alice")
	if err != nil || status != team.StatusShutdown {
		t.Errorf("status = %q, err = %v", status, err)
	}

	var sawInbox bool
	for _, m := range provider.seen[0].Messages {
		if strings.Contains(m.Content, "<inbox>") && strings.Contains(m.Content, "shutdown_response") {
			sawInbox = true
		}
	}
	if !sawInbox {
		t.Error("shutdown response not surfaced to the model")
	}
}

func TestProcessRegistersPlanSubmission(t *testing.T) {
	provider := &scriptedProvider{}
	fx := newLoopFixture(t, provider)

	fx.bus.Send(bus.Message{
		Type: bus.TypeMessage, From: "bob", Content: "Plan: split the corpus.", RequestID: "plan42",
	}, team.LeadName)

	if _, err := fx.loop.Process(context.Background(), "review plans"); err != nil {
		t.Fatal(err)
	}

	target, err := fx.handshake.ResolvePlan("plan42", true, "")
	if err != nil || target != "bob" {
		t.Errorf("resolve = %q, %v", target, err)
	}
}

func TestProcessNagsAfterThreeToolRoundsWithoutTodoUpdate(t *testing.T) {
	toolReply := func(id string) *providers.Reply {
		return &providers.Reply{
			StopReason: "tool_use",
			ToolCalls:  []providers.ToolCall{{ID: id, Name: "echo", Arguments: map[string]interface{}{"text": "x"}}},
		}
	}
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			toolReply("c1"), toolReply("c2"), toolReply("c3"),
			{Content: "done", StopReason: "end_turn"},
		},
	}
	fx := newLoopFixture(t, provider)
	if _, err := fx.todos.Update([]todo.Item{{Content: "finish report", ActiveForm: "finishing report"}}); err != nil {
		t.Fatal(err)
	}

	out, err := fx.loop.Process(context.Background(), "go")
	if err != nil {
		t.Fatal(err)
	}
	if out != "done" {
		t.Errorf("output = %q", out)
	}
	if provider.calls != 4 {
		t.Fatalf("calls = %d, want 4", provider.calls)
	}

	const reminder = "<reminder>Update your todos.</reminder>"
	third := provider.seen[2].Messages
	for _, m := range third {
		if m.Content == reminder {
			t.Error("reminder injected before the third tool round finished")
		}
	}
	// The reminder leads the third round's result turn.
	fourth := provider.seen[3].Messages
	last := fourth[len(fourth)-1]
	if last.Role != "tool" || last.Content != "echo: x" {
		t.Errorf("last message = %+v, want the tool result", last)
	}
	if fourth[len(fourth)-2].Content != reminder {
		t.Errorf("message before the result = %q, want the reminder", fourth[len(fourth)-2].Content)
	}
}

func TestProcessManualCompress(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			{
				StopReason: "tool_use",
				ToolCalls:  []providers.ToolCall{{ID: "c1", Name: "compress", Arguments: map[string]interface{}{}}},
			},
			{Content: "summary text", StopReason: "end_turn"}, // summarize call
			{Content: "fresh start", StopReason: "end_turn"},
		},
	}
	fx := newLoopFixture(t, provider)

	out, err := fx.loop.Process(context.Background(), "please compress")
	if err != nil {
		t.Fatal(err)
	}
	if out != "fresh start" {
		t.Errorf("output = %q", out)
	}

	msgs := fx.loop.Messages()
	var sawCompressed bool
	for _, m := range msgs {
		if strings.Contains(m.Content, "[Compressed. Transcript: ") {
			sawCompressed = true
		}
	}
	if !sawCompressed {
		t.Error("history not replaced by compressed pair")
	}
}
