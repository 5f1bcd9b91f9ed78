package bus

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newBus(t *testing.T) (*Bus, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	return b, dir
}

func TestSendAndReadInbox(t *testing.T) {
	b, _ := newBus(t)

	out, err := b.Send(Message{From: "lead", Content: "hello"}, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Sent message to ana" {
		t.Errorf("send = %q", out)
	}
	b.Send(Message{Type: TypeShutdownRequest, From: "lead", Content: "Please shut down.", RequestID: "abc12345"}, "ana")

	msgs, err := b.ReadInbox("ana")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Content != "hello" || msgs[0].Type != TypeMessage {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].RequestID != "abc12345" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
	if msgs[0].Timestamp == 0 {
		t.Error("timestamp not set")
	}
}

func TestReadInbox_Drains(t *testing.T) {
	b, dir := newBus(t)
	b.Send(Message{From: "lead", Content: "x"}, "ana")

	if msgs, _ := b.ReadInbox("ana"); len(msgs) != 1 {
		t.Fatalf("first read = %d", len(msgs))
	}
	if msgs, _ := b.ReadInbox("ana"); len(msgs) != 0 {
		t.Errorf("second read = %d, want 0", len(msgs))
	}
	data, _ := os.ReadFile(filepath.Join(dir, ".team", "inbox", "ana.jsonl"))
	if len(data) != 0 {
		t.Errorf("inbox file not truncated: %q", data)
	}
}

func TestReadInbox_Missing(t *testing.T) {
	b, _ := newBus(t)
	msgs, err := b.ReadInbox("ghost")
	if err != nil || msgs != nil {
		t.Errorf("missing inbox: msgs=%v err=%v", msgs, err)
	}
}

func TestSend_RejectsInvalidType(t *testing.T) {
	b, _ := newBus(t)
	if _, err := b.Send(Message{Type: "gossip", From: "lead", Content: "x"}, "ana"); err == nil {
		t.Fatal("expected error for invalid type")
	}
}

func TestBroadcast_SkipsSender(t *testing.T) {
	b, _ := newBus(t)
	out, err := b.Broadcast("ana", "standup", []string{"ana", "ben", "cam"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Broadcast to 2 teammates" {
		t.Errorf("broadcast = %q", out)
	}
	if msgs, _ := b.ReadInbox("ana"); len(msgs) != 0 {
		t.Error("sender received its own broadcast")
	}
	msgs, _ := b.ReadInbox("ben")
	if len(msgs) != 1 || msgs[0].Type != TypeBroadcast {
		t.Errorf("ben inbox = %+v", msgs)
	}
}

func TestConcurrentSendersNoLoss(t *testing.T) {
	b, _ := newBus(t)
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Send(Message{From: "lead", Content: "m"}, "ana")
		}()
	}
	wg.Wait()

	msgs, err := b.ReadInbox("ana")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != n {
		t.Errorf("got %d messages, want %d", len(msgs), n)
	}
	for _, m := range msgs {
		if !strings.HasPrefix(m.Content, "m") {
			t.Errorf("corrupt message %+v", m)
		}
	}
}
