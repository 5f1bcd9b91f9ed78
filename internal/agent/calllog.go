package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CallLog appends one JSON line per model call and tool result to
// .agent_logs/<agent>_<start>.jsonl. Best effort: logging failures never
// interrupt the loop.
type CallLog struct {
	mu   sync.Mutex
	path string
}

func NewCallLog(workspace, agent string) *CallLog {
	dir := filepath.Join(workspace, ".agent_logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("call log dir unavailable", "error", err)
		return &CallLog{}
	}
	return &CallLog{
		path: filepath.Join(dir, fmt.Sprintf("%s_%d.jsonl", agent, time.Now().Unix())),
	}
}

type callLogEntry struct {
	Timestamp float64     `json:"timestamp"`
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload"`
}

func (l *CallLog) write(kind string, payload interface{}) {
	if l.path == "" {
		return
	}
	entry := callLogEntry{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Kind:      kind,
		Payload:   payload,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(data, '\n'))
}

// Call records one model round trip.
func (l *CallLog) Call(model string, messageCount int, stopReason string) {
	l.write("call", map[string]interface{}{
		"model": model, "messages": messageCount, "stop_reason": stopReason,
	})
}

// ToolResult records one tool execution.
func (l *CallLog) ToolResult(tool string, isError bool, size int) {
	l.write("tool_result", map[string]interface{}{
		"tool": tool, "is_error": isError, "size": size,
	})
}

// SkillLoad records a skill being pulled into context.
func (l *CallLog) SkillLoad(name string) {
	l.write("skill_load", map[string]interface{}{"name": name})
}
