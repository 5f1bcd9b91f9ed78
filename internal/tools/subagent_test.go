package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/crew/internal/providers"
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

func TestSubagentRunsToolsThenSummarizes(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			{
				StopReason: "tool_use",
				ToolCalls: []providers.ToolCall{
					{ID: "t1", Name: "bash", Arguments: map[string]interface{}{"command": "echo probe"}},
				},
			},
			{Content: "The probe printed probe.", StopReason: "end_turn"},
		},
	}
	tool := NewSubagentTool(provider, NewWorkdir(t.TempDir()), "")

	res := tool.Execute(context.Background(), map[string]interface{}{
		"prompt": "check the probe", "agent_type": "Explore",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if res.ForLLM != "The probe printed probe." {
		t.Errorf("summary = %q", res.ForLLM)
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want 2", provider.calls)
	}
}

func TestSubagentExploreHasNoWriteTools(t *testing.T) {
	provider := &scriptedProvider{}
	tool := NewSubagentTool(provider, NewWorkdir(t.TempDir()), "")

	tool.Execute(context.Background(), map[string]interface{}{
		"prompt": "look around", "agent_type": "Explore",
	})
	if len(provider.seen) == 0 {
		t.Fatal("provider never called")
	}
	for _, def := range provider.seen[0].Tools {
		if def.Name == "write_file" || def.Name == "edit_file" {
			t.Errorf("Explore subagent exposed %s", def.Name)
		}
	}
}

func TestSubagentGeneralPurposeHasWriteTools(t *testing.T) {
	provider := &scriptedProvider{}
	tool := NewSubagentTool(provider, NewWorkdir(t.TempDir()), "")

	tool.Execute(context.Background(), map[string]interface{}{"prompt": "fix it"})
	names := map[string]bool{}
	for _, def := range provider.seen[0].Tools {
		names[def.Name] = true
	}
	if !names["write_file"] || !names["edit_file"] {
		t.Errorf("general-purpose subagent missing write tools: %v", names)
	}
}

func TestSubagentFailure(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("api down")}}
	tool := NewSubagentTool(provider, NewWorkdir(t.TempDir()), "")

	res := tool.Execute(context.Background(), map[string]interface{}{"prompt": "anything"})
	if !res.IsError || res.ForLLM != "(subagent failed)" {
		t.Errorf("got %q", res.ForLLM)
	}
}

func TestSubagentTextlessFinalTurn(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{
			{
				Content:    "Checking the directory first.",
				StopReason: "tool_use",
				ToolCalls: []providers.ToolCall{
					{ID: "t1", Name: "bash", Arguments: map[string]interface{}{"command": "true"}},
				},
			},
			{Content: "", StopReason: "end_turn"},
		},
	}
	tool := NewSubagentTool(provider, NewWorkdir(t.TempDir()), "")

	res := tool.Execute(context.Background(), map[string]interface{}{"prompt": "inspect"})
	if res.ForLLM != "(no summary)" {
		t.Errorf("got %q, want earlier text discarded", res.ForLLM)
	}
}

func TestSubagentNoSummary(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*providers.Reply{{Content: "", StopReason: "end_turn"}},
	}
	tool := NewSubagentTool(provider, NewWorkdir(t.TempDir()), "")

	res := tool.Execute(context.Background(), map[string]interface{}{"prompt": "silent"})
	if res.ForLLM != "(no summary)" {
		t.Errorf("got %q", res.ForLLM)
	}
}
