package tools

import "context"

// CompressTool lets the model request a context compression. The agent loop
// intercepts this tool by name and performs the compaction itself; Execute
// only exists to satisfy the registry.
type CompressTool struct{}

func NewCompressTool() *CompressTool { return &CompressTool{} }

func (t *CompressTool) Name() string { return "compress" }
func (t *CompressTool) Description() string {
	return "Compress the conversation history into a summary to free context"
}
func (t *CompressTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *CompressTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return SilentResult("Compressing...")
}
