package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultReadLimit = 2000

// ReadFileTool reads file contents. Reads may reach outside the workspace;
// only mutations are confined.
type ReadFileTool struct {
	workdir *Workdir
}

func NewReadFileTool(workdir *Workdir) *ReadFileTool {
	return &ReadFileTool{workdir: workdir}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file" }
func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of lines to return",
			},
		},
		"required": []string{"path"},
	}
}

type readFileArgs struct {
	Path  string `json:"path"`
	Limit int    `json:"limit"`
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params readFileArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Path, "path"); r != nil {
		return r
	}
	if params.Limit <= 0 {
		params.Limit = defaultReadLimit
	}

	resolved, err := safePath(params.Path, t.workdir.Get(), true)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > params.Limit {
		clipped := strings.Join(lines[:params.Limit], "\n")
		return NewResult(fmt.Sprintf("%s\n... (%d more)", clipped, len(lines)-params.Limit))
	}
	return NewResult(string(data))
}

// WriteFileTool writes a file, creating parent directories as needed.
type WriteFileTool struct {
	workdir *Workdir
}

func NewWriteFileTool(workdir *Workdir) *WriteFileTool {
	return &WriteFileTool{workdir: workdir}
}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write content to a file, replacing what was there" }
func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Full file content",
			},
			"allow_outside": map[string]interface{}{
				"type":        "boolean",
				"description": "Permit writing outside the workspace",
			},
		},
		"required": []string{"path", "content"},
	}
}

type writeFileArgs struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	AllowOutside bool   `json:"allow_outside"`
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params writeFileArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Path, "path"); r != nil {
		return r
	}

	resolved, err := safePath(params.Path, t.workdir.Get(), params.AllowOutside)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if err := os.WriteFile(resolved, []byte(params.Content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(fmt.Sprintf("Wrote %d bytes to %s", len(params.Content), params.Path))
}

// EditFileTool replaces the first occurrence of a text span in a file.
type EditFileTool struct {
	workdir *Workdir
}

func NewEditFileTool(workdir *Workdir) *EditFileTool {
	return &EditFileTool{workdir: workdir}
}

func (t *EditFileTool) Name() string        { return "edit_file" }
func (t *EditFileTool) Description() string { return "Replace the first occurrence of old_text with new_text in a file" }
func (t *EditFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to edit",
			},
			"old_text": map[string]interface{}{
				"type":        "string",
				"description": "Exact text to find",
			},
			"new_text": map[string]interface{}{
				"type":        "string",
				"description": "Replacement text",
			},
			"allow_outside": map[string]interface{}{
				"type":        "boolean",
				"description": "Permit editing outside the workspace",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

type editFileArgs struct {
	Path         string `json:"path"`
	OldText      string `json:"old_text"`
	NewText      string `json:"new_text"`
	AllowOutside bool   `json:"allow_outside"`
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params editFileArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Path, "path"); r != nil {
		return r
	}
	if r := requireString(params.OldText, "old_text"); r != nil {
		return r
	}

	resolved, err := safePath(params.Path, t.workdir.Get(), params.AllowOutside)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	content := string(data)
	if !strings.Contains(content, params.OldText) {
		return ErrorResult(fmt.Sprintf("Error: Text not found in %s", params.Path))
	}
	content = strings.Replace(content, params.OldText, params.NewText, 1)
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	return NewResult(fmt.Sprintf("Edited %s", params.Path))
}

// SetWorkdirTool moves the working directory for subsequent shell and file
// operations. The coordination stores stay rooted at the startup workspace.
type SetWorkdirTool struct {
	workdir *Workdir
}

func NewSetWorkdirTool(workdir *Workdir) *SetWorkdirTool {
	return &SetWorkdirTool{workdir: workdir}
}

func (t *SetWorkdirTool) Name() string        { return "set_workdir" }
func (t *SetWorkdirTool) Description() string { return "Change the working directory for shell and file tools" }
func (t *SetWorkdirTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to switch to",
			},
		},
		"required": []string{"path"},
	}
}

type setWorkdirArgs struct {
	Path string `json:"path"`
}

func (t *SetWorkdirTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params setWorkdirArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Path, "path"); r != nil {
		return r
	}

	resolved := params.Path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(t.workdir.Get(), resolved)
	}
	resolved = filepath.Clean(resolved)
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return ErrorResult(fmt.Sprintf("Error: Not a directory: %s", params.Path))
	}
	t.workdir.Set(resolved)
	return NewResult(fmt.Sprintf("Workdir set to %s", resolved))
}
