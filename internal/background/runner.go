// Package background runs shell commands detached from the agent loop and
// queues completion notifications for the loop to drain.
package background

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crew/internal/config"
)

// Job statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Job is one background command.
type Job struct {
	ID      string
	Command string
	Status  string
	Result  string
}

// Notification is queued when a job finishes. Result is capped to a preview.
type Notification struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result string `json:"result"`
}

// Runner launches background commands and collects their notifications.
// The notification queue is unbounded so workers never block on delivery.
type Runner struct {
	workdir string
	mu      sync.Mutex
	jobs    map[string]*Job
	pending []Notification
}

func NewRunner(workdir string) *Runner {
	return &Runner{workdir: workdir, jobs: make(map[string]*Job)}
}

// Run starts the command in a detached goroutine and returns immediately.
func (r *Runner) Run(command string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = config.CommandTimeout
	}
	id := uuid.NewString()[:8]

	r.mu.Lock()
	r.jobs[id] = &Job{ID: id, Command: command, Status: StatusRunning}
	r.mu.Unlock()

	go r.exec(id, command, timeout)

	preview := command
	if len(preview) > 80 {
		preview = preview[:80]
	}
	return fmt.Sprintf("Background task %s started: %s", id, preview)
}

func (r *Runner) exec(id, command string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.workdir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	if len(out) > config.OutputCap {
		out = out[:config.OutputCap]
	}

	status := StatusCompleted
	result := out
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		status = StatusError
		result = fmt.Sprintf("timed out after %s", timeout)
	case err != nil && out == "":
		status = StatusError
		result = err.Error()
	case out == "":
		result = "(no output)"
	}

	slog.Debug("background job finished", "id", id, "status", status)

	preview := result
	if len(preview) > config.NotifyPreview {
		preview = preview[:config.NotifyPreview]
	}

	r.mu.Lock()
	if job := r.jobs[id]; job != nil {
		job.Status = status
		job.Result = result
	}
	r.pending = append(r.pending, Notification{TaskID: id, Status: status, Result: preview})
	r.mu.Unlock()
}

// Check reports one job's status, or a summary of all jobs when id is empty.
func (r *Runner) Check(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		job, ok := r.jobs[id]
		if !ok {
			return fmt.Sprintf("Unknown: %s", id)
		}
		result := job.Result
		if result == "" {
			result = "(running)"
		}
		return fmt.Sprintf("[%s] %s", job.Status, result)
	}

	if len(r.jobs) == 0 {
		return "No bg tasks."
	}
	var lines []string
	for _, job := range r.jobs {
		cmd := job.Command
		if len(cmd) > 60 {
			cmd = cmd[:60]
		}
		lines = append(lines, fmt.Sprintf("%s: [%s] %s", job.ID, job.Status, cmd))
	}
	return strings.Join(lines, "\n")
}

// Drain removes and returns all pending notifications without blocking.
func (r *Runner) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	notifs := r.pending
	r.pending = nil
	return notifs
}
