package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// SanitizeFilename reduces arbitrary text to a safe filename stem.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	stem := strings.Trim(b.String(), "_")
	if len(stem) > 60 {
		stem = stem[:60]
	}
	if stem == "" {
		stem = "result"
	}
	return stem
}

// SaveResult archives a query result as markdown under the output directory
// and returns the written path.
func SaveResult(outputDir, query, content string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("output: create %s: %w", outputDir, err)
	}
	name := fmt.Sprintf("%s_%s.md", SanitizeFilename(query), time.Now().Format("20060102_150405"))
	path := filepath.Join(outputDir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", query)
	fmt.Fprintf(&b, "_%s_\n\n", time.Now().Format(time.RFC3339))
	b.WriteString(content)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	return path, nil
}
