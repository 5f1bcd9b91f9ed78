package todo

import (
	"strings"
	"testing"
)

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		wantErr string
	}{
		{"empty content", []Item{{Content: " ", Status: "pending", ActiveForm: "x"}}, "content required"},
		{"bad status", []Item{{Content: "a", Status: "done", ActiveForm: "x"}}, "invalid status 'done'"},
		{"missing activeForm", []Item{{Content: "a", Status: "pending"}}, "activeForm required"},
		{"two in_progress", []Item{
			{Content: "a", Status: "in_progress", ActiveForm: "doing a"},
			{Content: "b", Status: "in_progress", ActiveForm: "doing b"},
		}, "Only one in_progress allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			_, err := tr.Update(tt.items)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want contains %q", err.Error(), tt.wantErr)
			}
			if tr.HasOpenItems() {
				t.Error("failed update must not modify the list")
			}
		})
	}
}

func TestUpdate_MaxItems(t *testing.T) {
	items := make([]Item, 21)
	for i := range items {
		items[i] = Item{Content: "task", Status: "pending", ActiveForm: "working"}
	}
	tr := NewTracker()
	if _, err := tr.Update(items); err == nil || !strings.Contains(err.Error(), "Max 20 todos") {
		t.Errorf("err = %v", err)
	}
}

func TestRender(t *testing.T) {
	tr := NewTracker()
	if got := tr.Render(); got != "No todos." {
		t.Errorf("empty render = %q", got)
	}

	out, err := tr.Update([]Item{
		{Content: "write parser", Status: "completed", ActiveForm: "writing parser"},
		{Content: "add tests", Status: "in_progress", ActiveForm: "adding tests"},
		{Content: "ship it", Status: "pending", ActiveForm: "shipping"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"[x] write parser",
		"[>] add tests <- adding tests",
		"[ ] ship it",
		"(1/3 completed)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHasOpenItems(t *testing.T) {
	tr := NewTracker()
	if tr.HasOpenItems() {
		t.Error("empty tracker has no open items")
	}
	tr.Update([]Item{{Content: "a", Status: "completed", ActiveForm: "x"}})
	if tr.HasOpenItems() {
		t.Error("all completed: no open items")
	}
	tr.Update([]Item{{Content: "a", Status: "pending", ActiveForm: "x"}})
	if !tr.HasOpenItems() {
		t.Error("pending item should count as open")
	}
}
