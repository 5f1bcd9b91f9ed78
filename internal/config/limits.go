package config

import "time"

// Runtime policy limits. Kept in one place so every component truncates
// and times out consistently.
const (
	// TokenThreshold triggers auto-compaction of the conversation.
	TokenThreshold = 100_000

	// TranscriptClip bounds the serialized conversation sent to the
	// summarization call.
	TranscriptClip = 80_000

	// OutputCap bounds tool and command output fed back to the LLM.
	OutputCap = 50_000

	// NotifyPreview bounds the result excerpt in background notifications.
	NotifyPreview = 500

	// MicroKeepRecent is how many trailing tool results micro-compaction
	// leaves untouched.
	MicroKeepRecent = 3

	// MicroMinSize is the smallest tool result micro-compaction clears.
	MicroMinSize = 100

	// CommandTimeout bounds foreground shell commands.
	CommandTimeout = 120 * time.Second

	// TodoNagRounds is how many consecutive tool rounds may pass without
	// a todo update before the loop injects a reminder.
	TodoNagRounds = 3

	// TeammateWorkRounds caps one work phase of a teammate.
	TeammateWorkRounds = 50

	// SubagentRounds caps a subagent run.
	SubagentRounds = 30
)
