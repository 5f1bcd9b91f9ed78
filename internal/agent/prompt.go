package agent

import (
	"fmt"
	"strings"
)

// SystemPromptConfig carries everything the lead's system prompt needs.
type SystemPromptConfig struct {
	Workspace string
	TeamName  string
	Skills    string // skill descriptions from the catalog
}

// BuildSystemPrompt assembles the lead agent's system prompt. Skill bodies
// stay out of context; only the catalog listing is included.
func BuildSystemPrompt(cfg SystemPromptConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the lead agent of team %q.\n", cfg.TeamName)
	fmt.Fprintf(&b, "Workspace: %s\n\n", cfg.Workspace)
	b.WriteString("You coordinate work: break requests into tasks on the shared board, ")
	b.WriteString("spawn teammates for parallel work, delegate self-contained jobs to subagents, ")
	b.WriteString("and do the rest yourself with your tools. ")
	b.WriteString("Track multi-step work with TodoWrite and keep it current.\n\n")
	if cfg.Skills != "" {
		b.WriteString("Available skills (use load_skill to pull one in):\n")
		b.WriteString(cfg.Skills)
		b.WriteString("\n")
	}
	return b.String()
}
