// Package bus is the append-only inbox message bus. Every agent has an inbox
// at .team/inbox/<name>.jsonl; sends append one JSON line, reads drain the
// whole file. The filesystem is the only shared medium, so a crashed process
// never loses queued messages.
package bus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Message types allowed on the bus.
const (
	TypeMessage              = "message"
	TypeBroadcast            = "broadcast"
	TypeShutdownRequest      = "shutdown_request"
	TypeShutdownResponse     = "shutdown_response"
	TypePlanApprovalResponse = "plan_approval_response"
)

// ValidTypes lists every accepted message type.
var ValidTypes = []string{
	TypeMessage, TypeBroadcast, TypeShutdownRequest,
	TypeShutdownResponse, TypePlanApprovalResponse,
}

func validType(t string) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Message is one inbox entry. Extra carries protocol fields such as
// request_id, approve, and feedback for the handshake flows.
type Message struct {
	Type      string  `json:"type"`
	From      string  `json:"from"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"`

	RequestID string `json:"request_id,omitempty"`
	Approve   *bool  `json:"approve,omitempty"`
	Feedback  string `json:"feedback,omitempty"`
}

// Bus delivers messages between agents through per-recipient inbox files.
type Bus struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-inbox file lock
}

func New(workspace string) (*Bus, error) {
	dir := filepath.Join(workspace, ".team", "inbox")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("bus: create %s: %w", dir, err)
	}
	return &Bus{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (b *Bus) lockFor(name string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[name]
	if !ok {
		l = &sync.Mutex{}
		b.locks[name] = l
	}
	return l
}

func (b *Bus) inboxPath(name string) string {
	return filepath.Join(b.dir, name+".jsonl")
}

// Send appends one message line to the recipient's inbox.
func (b *Bus) Send(msg Message, to string) (string, error) {
	if msg.Type == "" {
		msg.Type = TypeMessage
	}
	if !validType(msg.Type) {
		return "", fmt.Errorf("bus: invalid message type %q (valid: %s)", msg.Type, strings.Join(ValidTypes, ", "))
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("bus: marshal message: %w", err)
	}

	l := b.lockFor(to)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(b.inboxPath(to), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("bus: open inbox %s: %w", to, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return "", fmt.Errorf("bus: append inbox %s: %w", to, err)
	}
	return fmt.Sprintf("Sent %s to %s", msg.Type, to), nil
}

// ReadInbox drains the named inbox: reads every line, truncates the file, and
// returns the parsed messages. Read-then-truncate runs under the inbox lock
// so a concurrent Send cannot be lost between the two steps.
func (b *Bus) ReadInbox(name string) ([]Message, error) {
	l := b.lockFor(name)
	l.Lock()
	defer l.Unlock()

	path := b.inboxPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bus: read inbox %s: %w", name, err)
	}

	var msgs []Message
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var m Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue // skip torn or foreign lines
		}
		msgs = append(msgs, m)
	}

	if err := os.WriteFile(path, nil, 0644); err != nil {
		return nil, fmt.Errorf("bus: truncate inbox %s: %w", name, err)
	}
	return msgs, nil
}

// Broadcast sends the content to every name except the sender and reports
// the recipient count.
func (b *Bus) Broadcast(sender, content string, names []string) (string, error) {
	count := 0
	for _, n := range names {
		if n == sender {
			continue
		}
		if _, err := b.Send(Message{Type: TypeBroadcast, From: sender, Content: content}, n); err != nil {
			return "", err
		}
		count++
	}
	return fmt.Sprintf("Broadcast to %d teammates", count), nil
}
