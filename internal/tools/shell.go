package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nextlevelbuilder/crew/internal/config"
)

// denyTokens blocks a small set of irreversible commands by substring match.
var denyTokens = []string{
	"rm -rf /",
	"sudo",
	"shutdown",
	"reboot",
	"> /dev/",
}

// BashTool executes shell commands in the agent workdir.
type BashTool struct {
	workdir *Workdir
}

func NewBashTool(workdir *Workdir) *BashTool {
	return &BashTool{workdir: workdir}
}

func (t *BashTool) Name() string { return "bash" }
func (t *BashTool) Description() string {
	return "Execute a shell command and return its combined output"
}
func (t *BashTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

type bashArgs struct {
	Command string `json:"command"`
}

func (t *BashTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params bashArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Command, "command"); r != nil {
		return r
	}

	for _, token := range denyTokens {
		if strings.Contains(params.Command, token) {
			return ErrorResult("Error: Dangerous command blocked")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, config.CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", params.Command)
	cmd.Dir = t.workdir.Get()

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return ErrorResult(fmt.Sprintf("Error: Timeout (%ds)", int(config.CommandTimeout.Seconds())))
	}

	output := strings.TrimSpace(buf.String())
	if len(output) > config.OutputCap {
		output = output[:config.OutputCap]
	}
	if output == "" {
		output = "(no output)"
	}
	if err != nil {
		return ErrorResult(output).WithError(err)
	}
	return NewResult(output)
}
