package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/crew/internal/background"
)

// BackgroundRunTool starts a long command without blocking the loop.
type BackgroundRunTool struct {
	runner *background.Runner
}

func NewBackgroundRunTool(runner *background.Runner) *BackgroundRunTool {
	return &BackgroundRunTool{runner: runner}
}

func (t *BackgroundRunTool) Name() string { return "background_run" }
func (t *BackgroundRunTool) Description() string {
	return "Run a shell command in the background; results arrive as a notification"
}
func (t *BackgroundRunTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to run",
			},
			"timeout": map[string]interface{}{
				"type":        "integer",
				"description": "Timeout in seconds (default 120)",
			},
		},
		"required": []string{"command"},
	}
}

type backgroundRunArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

func (t *BackgroundRunTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params backgroundRunArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Command, "command"); r != nil {
		return r
	}
	msg := t.runner.Run(params.Command, secondsToDuration(params.Timeout))
	return AsyncResult(msg)
}

// CheckBackgroundTool reports background job status.
type CheckBackgroundTool struct {
	runner *background.Runner
}

func NewCheckBackgroundTool(runner *background.Runner) *CheckBackgroundTool {
	return &CheckBackgroundTool{runner: runner}
}

func (t *CheckBackgroundTool) Name() string { return "check_background" }
func (t *CheckBackgroundTool) Description() string {
	return "Check one background task by id, or list all when id is omitted"
}
func (t *CheckBackgroundTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "string",
				"description": "Background task id",
			},
		},
	}
}

type checkBackgroundArgs struct {
	TaskID string `json:"task_id"`
}

func (t *CheckBackgroundTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params checkBackgroundArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(t.runner.Check(params.TaskID))
}
