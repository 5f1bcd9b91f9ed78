package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
)

// SubagentTool runs a one-shot worker agent with a bounded loop and a
// reduced toolset. Explore subagents are read-only.
type SubagentTool struct {
	provider providers.Provider
	workdir  *Workdir
	model    string
}

func NewSubagentTool(provider providers.Provider, workdir *Workdir, model string) *SubagentTool {
	return &SubagentTool{provider: provider, workdir: workdir, model: model}
}

func (t *SubagentTool) Name() string { return "task" }
func (t *SubagentTool) Description() string {
	return "Delegate a self-contained task to a subagent and return its summary"
}
func (t *SubagentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Short description of the task",
			},
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "Full instructions for the subagent",
			},
			"agent_type": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"Explore", "general-purpose"},
				"description": "Explore subagents are read-only",
			},
		},
		"required": []string{"prompt"},
	}
}

type subagentArgs struct {
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	AgentType   string `json:"agent_type"`
}

func (t *SubagentTool) registry(agentType string) *Registry {
	reg := NewRegistry()
	reg.Register(NewBashTool(t.workdir))
	reg.Register(NewReadFileTool(t.workdir))
	if agentType != "Explore" {
		reg.Register(NewWriteFileTool(t.workdir))
		reg.Register(NewEditFileTool(t.workdir))
	}
	return reg
}

func (t *SubagentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params subagentArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Prompt, "prompt"); r != nil {
		return r
	}
	if params.AgentType == "" {
		params.AgentType = "general-purpose"
	}

	reg := t.registry(params.AgentType)
	system := fmt.Sprintf(
		"You are a subagent (%s). Complete the task, then reply with a concise summary of what you found or did. Working directory: %s",
		params.AgentType, t.workdir.Get(),
	)

	messages := []providers.Message{{Role: "user", Content: params.Prompt}}
	var finalText string

	for round := 0; round < config.SubagentRounds; round++ {
		reply, err := t.provider.Converse(ctx, providers.ConverseRequest{
			System:   system,
			Messages: messages,
			Tools:    reg.Defs(),
			Model:    t.model,
		})
		if err != nil {
			slog.Warn("subagent converse failed", "type", params.AgentType, "error", err)
			return ErrorResult("(subagent failed)").WithError(err)
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
			Extra:     reply.Extra,
		})
		// Only the final turn's text counts as the summary.
		finalText = reply.Content

		if len(reply.ToolCalls) == 0 || reply.StopReason != "tool_use" {
			break
		}
		for _, call := range reply.ToolCalls {
			result := reg.Execute(ctx, call.Name, call.Arguments)
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: call.ID,
			})
		}
	}

	summary := strings.TrimSpace(finalText)
	if summary == "" {
		summary = "(no summary)"
	}
	return NewResult(summary)
}
