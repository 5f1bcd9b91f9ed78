package team

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/crew/internal/board"
	"github.com/nextlevelbuilder/crew/internal/bus"
	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
	"github.com/nextlevelbuilder/crew/internal/tools"
)

type phase int

const (
	phaseWork phase = iota
	phaseIdle
	phaseShutdown
)

// Scheduler drives one teammate through its work/idle lifecycle. A teammate
// works in bounded rounds, idles when out of work, wakes on inbox messages or
// claimable tasks, and shuts down after an idle timeout or on request.
type Scheduler struct {
	name     string
	role     string
	prompt   string
	manager  *Manager
	bus      *bus.Bus
	board    *board.Store
	provider providers.Provider
	registry *tools.Registry
	model    string

	poll        time.Duration
	idleTimeout time.Duration
}

func NewScheduler(name, role, prompt string, manager *Manager, b *bus.Bus, store *board.Store,
	provider providers.Provider, registry *tools.Registry, model string, cfg config.TeamConfig) *Scheduler {
	poll := time.Duration(cfg.PollIntervalSec) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	idle := time.Duration(cfg.IdleTimeoutSec) * time.Second
	if idle <= 0 {
		idle = 60 * time.Second
	}
	return &Scheduler{
		name: name, role: role, prompt: prompt,
		manager: manager, bus: b, board: store,
		provider: provider, registry: registry, model: model,
		poll: poll, idleTimeout: idle,
	}
}

func (s *Scheduler) identity() string {
	return fmt.Sprintf("<identity>You are '%s', role: %s, team: %s.</identity>", s.name, s.role, s.manager.TeamName())
}

// Run executes the lifecycle until shutdown. Intended to be called in its
// own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	defer func() {
		if err := s.manager.SetStatus(s.name, StatusShutdown); err != nil {
			slog.Warn("teammate status update failed", "name", s.name, "error", err)
		}
		slog.Info("teammate shut down", "name", s.name)
	}()

	system := s.identity() + "\nWork tasks from the shared board. Use the idle tool when you run out of work."
	seed := s.prompt
	if seed == "" {
		seed = "You just joined the team. Check your inbox, claim a task from the board, and get to work."
	}
	messages := []providers.Message{{Role: "user", Content: seed}}

	current := phaseWork
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		switch current {
		case phaseWork:
			messages, current = s.workPhase(ctx, system, messages)
		case phaseIdle:
			messages, current = s.idlePhase(ctx, messages)
		case phaseShutdown:
			return
		}
	}
}

// drainInbox reads pending messages. A shutdown request short-circuits:
// the teammate acknowledges and reports that it must stop.
func (s *Scheduler) drainInbox(messages []providers.Message) ([]providers.Message, bool, error) {
	msgs, err := s.bus.ReadInbox(s.name)
	if err != nil {
		return messages, false, err
	}
	if len(msgs) == 0 {
		return messages, false, nil
	}
	for _, m := range msgs {
		if m.Type == bus.TypeShutdownRequest {
			s.acknowledgeShutdown(m.RequestID)
			return messages, true, nil
		}
	}
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return messages, false, err
		}
		messages = append(messages, providers.Message{Role: "user", Content: string(data)})
	}
	return messages, false, nil
}

func (s *Scheduler) acknowledgeShutdown(requestID string) {
	approve := true
	if _, err := s.bus.Send(bus.Message{
		Type:      bus.TypeShutdownResponse,
		From:      s.name,
		Content:   "Shutting down.",
		RequestID: requestID,
		Approve:   &approve,
	}, LeadName); err != nil {
		slog.Warn("shutdown ack failed", "name", s.name, "error", err)
	}
}

func (s *Scheduler) workPhase(ctx context.Context, system string, messages []providers.Message) ([]providers.Message, phase) {
	if err := s.manager.SetStatus(s.name, StatusWorking); err != nil {
		slog.Warn("teammate status update failed", "name", s.name, "error", err)
	}

	for round := 0; round < config.TeammateWorkRounds; round++ {
		var shutdown bool
		var err error
		messages, shutdown, err = s.drainInbox(messages)
		if err != nil {
			slog.Warn("inbox drain failed", "name", s.name, "error", err)
		}
		if shutdown {
			return messages, phaseShutdown
		}

		reply, err := s.provider.Converse(ctx, providers.ConverseRequest{
			System:   system,
			Messages: messages,
			Tools:    s.registry.Defs(),
			Model:    s.model,
		})
		if err != nil {
			slog.Error("teammate converse failed", "name", s.name, "error", err)
			return messages, phaseShutdown
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
			Extra:     reply.Extra,
		})

		if len(reply.ToolCalls) == 0 || reply.StopReason != "tool_use" {
			return messages, phaseIdle
		}

		goIdle := false
		for _, call := range reply.ToolCalls {
			result := s.registry.Execute(ctx, call.Name, call.Arguments)
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: call.ID,
			})
			if call.Name == "idle" {
				goIdle = true
			}
		}
		if goIdle {
			return messages, phaseIdle
		}
	}
	return messages, phaseIdle
}

func (s *Scheduler) idlePhase(ctx context.Context, messages []providers.Message) ([]providers.Message, phase) {
	if err := s.manager.SetStatus(s.name, StatusIdle); err != nil {
		slog.Warn("teammate status update failed", "name", s.name, "error", err)
	}

	deadline := time.Now().Add(s.idleTimeout)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return messages, phaseShutdown
		case <-ticker.C:
		}

		var shutdown bool
		before := len(messages)
		messages, shutdown, _ = s.drainInbox(messages)
		if shutdown {
			return messages, phaseShutdown
		}
		if len(messages) > before {
			return messages, phaseWork
		}

		task, err := s.board.FirstClaimable()
		if err != nil {
			slog.Warn("board poll failed", "name", s.name, "error", err)
		}
		if task != nil {
			if _, err := s.board.Claim(task.ID, s.name); err != nil {
				slog.Warn("auto-claim failed", "name", s.name, "task", task.ID, "error", err)
			} else {
				if len(messages) <= 3 {
					// Short history means identity was compacted or never
					// established. Re-inject it at the front.
					identity := []providers.Message{
						{Role: "user", Content: s.identity()},
						{Role: "assistant", Content: fmt.Sprintf("I am %s. Continuing.", s.name)},
					}
					messages = append(identity, messages...)
				}
				messages = append(messages,
					providers.Message{Role: "user", Content: fmt.Sprintf("<auto-claimed>Task #%d: %s\n%s</auto-claimed>", task.ID, task.Subject, task.Description)},
					providers.Message{Role: "assistant", Content: fmt.Sprintf("Claimed task #%d. Working on it.", task.ID)},
				)
				return messages, phaseWork
			}
		}

		if time.Now().After(deadline) {
			slog.Info("teammate idle timeout", "name", s.name)
			return messages, phaseShutdown
		}
	}
}
