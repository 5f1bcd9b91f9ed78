package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/crew/internal/todo"
)

// TodoWriteTool replaces the whole todo list in one call.
type TodoWriteTool struct {
	tracker *todo.Tracker
}

func NewTodoWriteTool(tracker *todo.Tracker) *TodoWriteTool {
	return &TodoWriteTool{tracker: tracker}
}

func (t *TodoWriteTool) Name() string { return "TodoWrite" }
func (t *TodoWriteTool) Description() string {
	return "Replace the todo list. Pass the complete list every time."
}
func (t *TodoWriteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"todos": map[string]interface{}{
				"type":        "array",
				"description": "The full todo list",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"content":    map[string]interface{}{"type": "string"},
						"status":     map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
						"activeForm": map[string]interface{}{"type": "string"},
					},
					"required": []string{"content", "activeForm"},
				},
			},
		},
		"required": []string{"todos"},
	}
}

type todoWriteArgs struct {
	Todos []todo.Item `json:"todos"`
}

func (t *TodoWriteTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params todoWriteArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	rendered, err := t.tracker.Update(params.Todos)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return &Result{ForLLM: rendered, ForUser: rendered}
}
