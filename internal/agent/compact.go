package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
)

// EstimateTokens approximates the token cost of a conversation as the JSON
// byte length divided by four.
func EstimateTokens(messages []providers.Message) int {
	data, err := json.Marshal(messages)
	if err != nil {
		return 0
	}
	return len(data) / 4
}

// Microcompact blanks bulky tool results in place. The most recent tool
// results are kept intact regardless of size; older ones are cleared when
// they exceed the size floor.
func Microcompact(messages []providers.Message) {
	kept := 0
	for i := len(messages) - 1; i >= 0; i-- {
		m := &messages[i]
		if m.Role != "tool" {
			continue
		}
		if kept < config.MicroKeepRecent {
			kept++
			continue
		}
		if len(m.Content) > config.MicroMinSize {
			m.Content = "[cleared]"
		}
	}
}

// Compactor folds a long conversation into a summary pair, archiving the
// full transcript first.
type Compactor struct {
	provider providers.Provider
	model    string
	dir      string // transcript directory
}

func NewCompactor(provider providers.Provider, model, workspace string) *Compactor {
	return &Compactor{provider: provider, model: model, dir: filepath.Join(workspace, ".transcripts")}
}

// archive writes the full conversation as JSONL and returns the path.
func (c *Compactor) archive(messages []providers.Message) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("compact: create %s: %w", c.dir, err)
	}
	path := filepath.Join(c.dir, fmt.Sprintf("transcript_%d.jsonl", time.Now().Unix()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("compact: create transcript: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, m := range messages {
		if err := enc.Encode(m); err != nil {
			return "", fmt.Errorf("compact: write transcript: %w", err)
		}
	}
	return path, nil
}

// Compact archives the conversation, asks the model for a continuity
// summary, and returns the two-message replacement history.
func (c *Compactor) Compact(ctx context.Context, messages []providers.Message) ([]providers.Message, error) {
	path, err := c.archive(messages)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	clipped := string(data)
	if len(clipped) > config.TranscriptClip {
		clipped = clipped[:config.TranscriptClip]
	}

	reply, err := c.provider.Converse(ctx, providers.ConverseRequest{
		Messages: []providers.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Summarize for continuity:\n%s", clipped),
		}},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("compact: summarize: %w", err)
	}

	return []providers.Message{
		{Role: "user", Content: fmt.Sprintf("[Compressed. Transcript: %s]\n%s", path, reply.Content)},
		{Role: "assistant", Content: "Understood. Continuing with summary context."},
	}, nil
}
