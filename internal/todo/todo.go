// Package todo tracks the lead agent's in-memory todo list.
package todo

import (
	"fmt"
	"strings"
	"sync"
)

const maxItems = 20

// Item is a single todo entry.
type Item struct {
	Content    string `json:"content"`
	Status     string `json:"status"` // "pending", "in_progress", "completed"
	ActiveForm string `json:"activeForm"`
}

// ValidationError describes a rejected update. The whole update is discarded
// when any item fails validation.
type ValidationError struct {
	Index  int // offending item, -1 for list-level failures
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("Item %d: %s", e.Index, e.Reason)
}

// Tracker holds the current todo list.
type Tracker struct {
	mu    sync.Mutex
	items []Item
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Update atomically replaces the list after validating every item:
// non-empty content and activeForm, a known status, at most 20 items,
// and at most one in_progress. Returns the rendered list.
func (t *Tracker) Update(items []Item) (string, error) {
	validated := make([]Item, 0, len(items))
	inProgress := 0
	for i, item := range items {
		content := strings.TrimSpace(item.Content)
		status := strings.ToLower(strings.TrimSpace(item.Status))
		if status == "" {
			status = "pending"
		}
		active := strings.TrimSpace(item.ActiveForm)
		if content == "" {
			return "", &ValidationError{Index: i, Reason: "content required"}
		}
		switch status {
		case "pending", "in_progress", "completed":
		default:
			return "", &ValidationError{Index: i, Reason: fmt.Sprintf("invalid status '%s'", status)}
		}
		if active == "" {
			return "", &ValidationError{Index: i, Reason: "activeForm required"}
		}
		if status == "in_progress" {
			inProgress++
		}
		validated = append(validated, Item{Content: content, Status: status, ActiveForm: active})
	}
	if len(validated) > maxItems {
		return "", &ValidationError{Index: -1, Reason: "Max 20 todos"}
	}
	if inProgress > 1 {
		return "", &ValidationError{Index: -1, Reason: "Only one in_progress allowed"}
	}

	t.mu.Lock()
	t.items = validated
	t.mu.Unlock()
	return t.Render(), nil
}

// Render returns the checklist view with a completion summary line.
func (t *Tracker) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.items) == 0 {
		return "No todos."
	}
	var b strings.Builder
	done := 0
	for _, item := range t.items {
		var mark string
		switch item.Status {
		case "completed":
			mark = "[x]"
			done++
		case "in_progress":
			mark = "[>]"
		case "pending":
			mark = "[ ]"
		default:
			mark = "[?]"
		}
		b.WriteString(mark)
		b.WriteString(" ")
		b.WriteString(item.Content)
		if item.Status == "in_progress" {
			b.WriteString(" <- ")
			b.WriteString(item.ActiveForm)
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n(%d/%d completed)", done, len(t.items)))
	return b.String()
}

// HasOpenItems reports whether any item is not yet completed.
func (t *Tracker) HasOpenItems() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, item := range t.items {
		if item.Status != "completed" {
			return true
		}
	}
	return false
}
