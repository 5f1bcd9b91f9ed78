// Package agent contains the lead agent loop: the REPL-driven cycle of
// compaction, notification draining, model calls, and tool dispatch.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/crew/internal/background"
	"github.com/nextlevelbuilder/crew/internal/bus"
	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
	"github.com/nextlevelbuilder/crew/internal/team"
	"github.com/nextlevelbuilder/crew/internal/todo"
	"github.com/nextlevelbuilder/crew/internal/tools"
	"github.com/nextlevelbuilder/crew/internal/tracing"
)

// Loop drives the lead agent. One Loop serves one interactive session; its
// message history lives in memory between Process calls and is compacted as
// it grows.
type Loop struct {
	provider  providers.Provider
	model     string
	registry  *tools.Registry
	bus       *bus.Bus
	runner    *background.Runner
	handshake *team.Handshake
	manager   *team.Manager
	todos     *todo.Tracker
	compactor *Compactor
	callLog   *CallLog
	system    string

	messages []providers.Message

	// OnToolResult, when set, receives every non-silent tool result for
	// display. OnText receives streamed assistant text.
	OnToolResult func(name string, result *tools.Result)
	OnText       func(chunk string)
}

// LoopConfig wires a lead loop.
type LoopConfig struct {
	Provider  providers.Provider
	Model     string
	Registry  *tools.Registry
	Bus       *bus.Bus
	Runner    *background.Runner
	Handshake *team.Handshake
	Manager   *team.Manager
	Todos     *todo.Tracker
	Compactor *Compactor
	CallLog   *CallLog
	System    string
}

func NewLoop(cfg LoopConfig) *Loop {
	return &Loop{
		provider:  cfg.Provider,
		model:     cfg.Model,
		registry:  cfg.Registry,
		bus:       cfg.Bus,
		runner:    cfg.Runner,
		handshake: cfg.Handshake,
		manager:   cfg.Manager,
		todos:     cfg.Todos,
		compactor: cfg.Compactor,
		callLog:   cfg.CallLog,
		system:    cfg.System,
	}
}

// Messages exposes the current history (for inspection and persistence).
func (l *Loop) Messages() []providers.Message { return l.messages }

// SetMessages restores a saved history, replacing whatever is in memory.
func (l *Loop) SetMessages(messages []providers.Message) { l.messages = messages }

// CompactNow forces a manual compaction of the current history.
func (l *Loop) CompactNow(ctx context.Context) error {
	if len(l.messages) == 0 {
		return nil
	}
	compacted, err := l.compactor.Compact(ctx, l.messages)
	if err != nil {
		return err
	}
	l.messages = compacted
	return nil
}

// Process runs one user turn to completion and returns the final assistant
// text.
func (l *Loop) Process(ctx context.Context, userMessage string) (string, error) {
	l.messages = append(l.messages, providers.Message{Role: "user", Content: userMessage})
	roundsSinceTodo := 0

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		Microcompact(l.messages)
		if EstimateTokens(l.messages) > config.TokenThreshold {
			if err := l.CompactNow(ctx); err != nil {
				slog.Warn("auto-compact failed", "error", err)
			}
		}

		l.drainBackground()
		if err := l.drainInbox(); err != nil {
			slog.Warn("inbox drain failed", "error", err)
		}

		reply, err := l.converse(ctx)
		if err != nil {
			return "", err
		}

		l.messages = append(l.messages, providers.Message{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
			Extra:     reply.Extra,
		})

		if len(reply.ToolCalls) == 0 || reply.StopReason != "tool_use" {
			return reply.Content, nil
		}

		resultsStart := len(l.messages)
		compress, usedTodo := l.executeCalls(ctx, reply.ToolCalls)
		if usedTodo {
			roundsSinceTodo = 0
		} else {
			roundsSinceTodo++
		}
		if roundsSinceTodo >= config.TodoNagRounds && l.todos != nil && l.todos.HasOpenItems() {
			roundsSinceTodo = 0
			// The reminder leads the result turn rather than trailing it.
			reminder := providers.Message{Role: "user", Content: "<reminder>Update your todos.</reminder>"}
			tail := append([]providers.Message{reminder}, l.messages[resultsStart:]...)
			l.messages = append(l.messages[:resultsStart:resultsStart], tail...)
		}
		if compress {
			if err := l.CompactNow(ctx); err != nil {
				slog.Warn("manual compress failed", "error", err)
			}
		}
	}
}

func (l *Loop) converse(ctx context.Context) (*providers.Reply, error) {
	ctx, span := tracing.StartLLMSpan(ctx, team.LeadName, len(l.messages))
	defer span.End()

	req := providers.ConverseRequest{
		System:   l.system,
		Messages: l.messages,
		Tools:    l.registry.Defs(),
		Model:    l.model,
	}

	var reply *providers.Reply
	var err error
	if l.OnText != nil {
		reply, err = l.provider.ConverseStream(ctx, req, func(chunk providers.StreamChunk) {
			if chunk.Content != "" {
				l.OnText(chunk.Content)
			}
		})
	} else {
		reply, err = l.provider.Converse(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("converse: %w", err)
	}
	if l.callLog != nil {
		l.callLog.Call(l.model, len(l.messages), reply.StopReason)
	}
	return reply, nil
}

// drainBackground injects finished background job notifications as a
// user/assistant pair.
func (l *Loop) drainBackground() {
	if l.runner == nil {
		return
	}
	notifs := l.runner.Drain()
	if len(notifs) == 0 {
		return
	}
	var lines []string
	for _, n := range notifs {
		lines = append(lines, fmt.Sprintf("[bg:%s] %s: %s", n.TaskID, n.Status, n.Result))
	}
	l.messages = append(l.messages,
		providers.Message{Role: "user", Content: fmt.Sprintf("<background-results>\n%s\n</background-results>", strings.Join(lines, "\n"))},
		providers.Message{Role: "assistant", Content: "Noted background results."},
	)
}

// drainInbox processes the lead's inbox. Handshake responses update state;
// everything read is also surfaced to the model.
func (l *Loop) drainInbox() error {
	if l.bus == nil {
		return nil
	}
	msgs, err := l.bus.ReadInbox(team.LeadName)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	for _, m := range msgs {
		switch {
		case m.Type == bus.TypeShutdownResponse && m.RequestID != "":
			if target, ok := l.handshake.CompleteShutdown(m.RequestID); ok {
				if err := l.manager.SetStatus(target, team.StatusShutdown); err != nil {
					slog.Warn("shutdown status update failed", "target", target, "error", err)
				}
			}
		case m.Type == bus.TypeMessage && m.RequestID != "":
			// A direct message carrying a request id is a plan submission.
			l.handshake.RegisterPlan(m.RequestID, m.From)
		}
	}

	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return err
	}
	l.messages = append(l.messages,
		providers.Message{Role: "user", Content: fmt.Sprintf("<inbox>%s</inbox>", data)},
		providers.Message{Role: "assistant", Content: "Noted inbox messages."},
	)
	return nil
}

// executeCalls dispatches tool calls, in parallel when there is more than
// one, and appends results in call order. Reports whether a manual
// compression was requested and whether the todo list was updated.
func (l *Loop) executeCalls(ctx context.Context, calls []providers.ToolCall) (compress, usedTodo bool) {

	type indexedResult struct {
		idx    int
		call   providers.ToolCall
		result *tools.Result
	}

	var collected []indexedResult
	if len(calls) == 1 {
		collected = []indexedResult{{idx: 0, call: calls[0], result: l.executeOne(ctx, calls[0])}}
	} else {
		resultCh := make(chan indexedResult, len(calls))
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func(idx int, call providers.ToolCall) {
				defer wg.Done()
				resultCh <- indexedResult{idx: idx, call: call, result: l.executeOne(ctx, call)}
			}(i, call)
		}
		go func() { wg.Wait(); close(resultCh) }()
		for r := range resultCh {
			collected = append(collected, r)
		}
		sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })
	}

	for _, r := range collected {
		switch r.call.Name {
		case "compress":
			compress = true
		case "TodoWrite":
			usedTodo = true
		}
		l.messages = append(l.messages, providers.Message{
			Role:       "tool",
			Content:    r.result.ForLLM,
			ToolCallID: r.call.ID,
		})
		if l.callLog != nil {
			l.callLog.ToolResult(r.call.Name, r.result.IsError, len(r.result.ForLLM))
		}
		if l.OnToolResult != nil && !r.result.Silent {
			l.OnToolResult(r.call.Name, r.result)
		}
	}
	return compress, usedTodo
}

func (l *Loop) executeOne(ctx context.Context, call providers.ToolCall) *tools.Result {
	ctx, span := tracing.StartToolSpan(ctx, call.Name)
	defer span.End()
	slog.Debug("tool call", "tool", call.Name)
	return l.registry.Execute(ctx, call.Name, call.Arguments)
}
