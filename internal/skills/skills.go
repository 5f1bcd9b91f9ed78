// Package skills loads markdown skill documents from skills/<name>/*.md.
// Descriptions (frontmatter) go into the system prompt; full bodies are
// loaded on demand through the load_skill tool.
package skills

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Skill is one loaded skill document.
type Skill struct {
	Name        string
	Description string
	Tags        string
	Body        string
	Path        string
}

type frontmatter struct {
	Description string `yaml:"description"`
	Tags        string `yaml:"tags"`
}

// Catalog holds all skills under a directory.
type Catalog struct {
	dir string

	mu     sync.RWMutex
	skills map[string]*Skill
}

// NewCatalog scans dir once. A missing directory yields an empty catalog.
func NewCatalog(dir string) *Catalog {
	c := &Catalog{dir: dir, skills: make(map[string]*Skill)}
	c.Reload()
	return c
}

// Reload rescans the skills directory, replacing the in-memory catalog.
func (c *Catalog) Reload() {
	loaded := make(map[string]*Skill)

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("skills: scan failed", "dir", c.dir, "error", err)
		}
		c.mu.Lock()
		c.skills = loaded
		c.mu.Unlock()
		return
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		files, _ := filepath.Glob(filepath.Join(c.dir, name, "*.md"))
		sort.Strings(files)
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				slog.Warn("skills: read failed", "path", f, "error", err)
				continue
			}
			meta, body := parseFrontmatter(string(data))
			loaded[name] = &Skill{
				Name:        name,
				Description: meta.Description,
				Tags:        meta.Tags,
				Body:        body,
				Path:        f,
			}
		}
	}

	c.mu.Lock()
	c.skills = loaded
	c.mu.Unlock()
	slog.Debug("skills: catalog loaded", "dir", c.dir, "count", len(loaded))
}

// parseFrontmatter splits a document into YAML frontmatter (between ---
// delimiters) and body. Documents without frontmatter are all body.
func parseFrontmatter(text string) (frontmatter, string) {
	var meta frontmatter
	if !strings.HasPrefix(text, "---\n") {
		return meta, strings.TrimSpace(text)
	}
	rest := text[4:]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return meta, strings.TrimSpace(text)
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		slog.Warn("skills: bad frontmatter", "error", err)
	}
	return meta, strings.TrimSpace(rest[end+5:])
}

// Names returns all skill names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.skills))
	for n := range c.skills {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Descriptions renders the one-line-per-skill list for the system prompt.
func (c *Catalog) Descriptions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.skills) == 0 {
		return "(no skills available)"
	}
	names := make([]string, 0, len(c.skills))
	for n := range c.skills {
		names = append(names, n)
	}
	sort.Strings(names)

	var lines []string
	for _, n := range names {
		s := c.skills[n]
		desc := s.Description
		if desc == "" {
			desc = "No description"
		}
		line := fmt.Sprintf("  - %s: %s", n, desc)
		if s.Tags != "" {
			line += fmt.Sprintf(" [%s]", s.Tags)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Load returns the full skill body wrapped in a <skill> envelope.
func (c *Catalog) Load(name string) (string, error) {
	c.mu.RLock()
	s, ok := c.skills[name]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("Unknown skill '%s'. Available: %s", name, strings.Join(c.Names(), ", "))
	}
	return fmt.Sprintf("<skill name=%q>\n%s\n</skill>", name, s.Body), nil
}
