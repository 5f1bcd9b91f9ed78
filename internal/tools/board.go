package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/crew/internal/board"
)

// TaskCreateTool files a new task on the shared board.
type TaskCreateTool struct {
	store *board.Store
}

func NewTaskCreateTool(store *board.Store) *TaskCreateTool {
	return &TaskCreateTool{store: store}
}

func (t *TaskCreateTool) Name() string        { return "task_create" }
func (t *TaskCreateTool) Description() string { return "Create a task on the shared board" }
func (t *TaskCreateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"subject": map[string]interface{}{
				"type":        "string",
				"description": "One-line task subject",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Detailed description",
			},
		},
		"required": []string{"subject"},
	}
}

type taskCreateArgs struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

func (t *TaskCreateTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params taskCreateArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Subject, "subject"); r != nil {
		return r
	}
	task, err := t.store.Create(params.Subject, params.Description)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(renderTask(task))
}

// TaskGetTool fetches one task by ID.
type TaskGetTool struct {
	store *board.Store
}

func NewTaskGetTool(store *board.Store) *TaskGetTool {
	return &TaskGetTool{store: store}
}

func (t *TaskGetTool) Name() string        { return "task_get" }
func (t *TaskGetTool) Description() string { return "Get full details of one task" }
func (t *TaskGetTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "Task ID",
			},
		},
		"required": []string{"task_id"},
	}
}

type taskIDArgs struct {
	TaskID int `json:"task_id"`
}

func (t *TaskGetTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params taskIDArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	task, err := t.store.Get(params.TaskID)
	if err != nil {
		return ErrorResult(err.Error()).WithError(err)
	}
	return NewResult(renderTask(task))
}

// TaskUpdateTool changes status or extends dependency edges.
type TaskUpdateTool struct {
	store *board.Store
}

func NewTaskUpdateTool(store *board.Store) *TaskUpdateTool {
	return &TaskUpdateTool{store: store}
}

func (t *TaskUpdateTool) Name() string { return "task_update" }
func (t *TaskUpdateTool) Description() string {
	return "Update a task's status or dependencies. Status 'deleted' removes it."
}
func (t *TaskUpdateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "Task ID",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"pending", "in_progress", "completed", "deleted"},
				"description": "New status",
			},
			"add_blocked_by": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "integer"},
				"description": "Task IDs this task is blocked by",
			},
			"add_blocks": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "integer"},
				"description": "Task IDs this task blocks",
			},
		},
		"required": []string{"task_id"},
	}
}

type taskUpdateArgs struct {
	TaskID       int    `json:"task_id"`
	Status       string `json:"status"`
	AddBlockedBy []int  `json:"add_blocked_by"`
	AddBlocks    []int  `json:"add_blocks"`
}

func (t *TaskUpdateTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params taskUpdateArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	task, deleted, err := t.store.Update(params.TaskID, params.Status, params.AddBlockedBy, params.AddBlocks)
	if err != nil {
		return ErrorResult(err.Error()).WithError(err)
	}
	if deleted {
		return NewResult(fmt.Sprintf("Task %d deleted", params.TaskID))
	}
	return NewResult(renderTask(task))
}

// TaskListTool renders the whole board.
type TaskListTool struct {
	store *board.Store
}

func NewTaskListTool(store *board.Store) *TaskListTool {
	return &TaskListTool{store: store}
}

func (t *TaskListTool) Name() string        { return "task_list" }
func (t *TaskListTool) Description() string { return "List all tasks on the board" }
func (t *TaskListTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *TaskListTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	tasks, err := t.store.List()
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(board.RenderList(tasks))
}

// ClaimTaskTool assigns a task to the calling agent and marks it in_progress.
type ClaimTaskTool struct {
	store *board.Store
	agent string
}

func NewClaimTaskTool(store *board.Store, agent string) *ClaimTaskTool {
	return &ClaimTaskTool{store: store, agent: agent}
}

func (t *ClaimTaskTool) Name() string        { return "claim_task" }
func (t *ClaimTaskTool) Description() string { return "Claim a task: assigns it to you and marks it in_progress" }
func (t *ClaimTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "Task ID to claim",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *ClaimTaskTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params taskIDArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	task, err := t.store.Claim(params.TaskID, t.agent)
	if err != nil {
		return ErrorResult(err.Error()).WithError(err)
	}
	return NewResult(fmt.Sprintf("Claimed task #%d for %s", task.ID, t.agent))
}

func renderTask(task *board.Task) string {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return string(data)
}
