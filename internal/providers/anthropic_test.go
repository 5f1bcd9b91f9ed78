package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestConverse_TextAndToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "tu_1", "name": "bash", "input": {"command": "ls"}},
				{"type": "server_tool_use", "id": "st_1", "name": "mystery"}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", WithAnthropicBaseURL(srv.URL))
	reply, err := p.Converse(context.Background(), ConverseRequest{
		Messages: []Message{{Role: "user", Content: "list files"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if reply.Content != "Let me check." {
		t.Errorf("Content = %q", reply.Content)
	}
	if reply.StopReason != "tool_use" {
		t.Errorf("StopReason = %q, want tool_use", reply.StopReason)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Name != "bash" {
		t.Fatalf("ToolCalls = %+v", reply.ToolCalls)
	}
	if cmd, _ := reply.ToolCalls[0].Arguments["command"].(string); cmd != "ls" {
		t.Errorf("command arg = %q", cmd)
	}
	if len(reply.Extra) != 1 {
		t.Errorf("expected 1 preserved unknown block, got %d", len(reply.Extra))
	}
	if reply.Usage == nil || reply.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", reply.Usage)
	}
}

func TestConverse_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", WithAnthropicBaseURL(srv.URL))
	p.retryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}

	reply, err := p.Converse(context.Background(), ConverseRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Content != "ok" {
		t.Errorf("Content = %q", reply.Content)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestConverse_NoRetryOn400(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", WithAnthropicBaseURL(srv.URL))
	_, err := p.Converse(context.Background(), ConverseRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildRequestBody_RoundTripsExtraBlocks(t *testing.T) {
	p := NewAnthropicProvider("k")
	req := ConverseRequest{
		System: "sys",
		Messages: []Message{
			{Role: "user", Content: "go"},
			{Role: "assistant", Content: "on it",
				Extra:     []json.RawMessage{json.RawMessage(`{"type":"thinking","thinking":"hmm"}`)},
				ToolCalls: []ToolCall{{ID: "tu_1", Name: "bash", Arguments: map[string]interface{}{"command": "ls"}}}},
			{Role: "tool", Content: "file.txt", ToolCallID: "tu_1"},
		},
	}
	body := p.buildRequestBody(req, false)

	msgs, ok := body["messages"].([]map[string]interface{})
	if !ok || len(msgs) != 3 {
		t.Fatalf("messages = %#v", body["messages"])
	}
	blocks, ok := msgs[1]["content"].([]interface{})
	if !ok {
		t.Fatalf("assistant content = %#v", msgs[1]["content"])
	}
	// text + tool_use + preserved extra
	if len(blocks) != 3 {
		t.Errorf("assistant blocks = %d, want 3", len(blocks))
	}
	if body["system"] != "sys" {
		t.Errorf("system = %v", body["system"])
	}
}
