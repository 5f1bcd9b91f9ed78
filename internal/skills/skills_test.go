package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCatalog_LoadAndDescriptions(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "pdf", `---
description: Generate PDF reports
tags: documents, reports
---
Use a PDF library. Steps follow.`)
	writeSkill(t, dir, "bare", "Just a body, no frontmatter.")

	c := NewCatalog(dir)

	desc := c.Descriptions()
	if !strings.Contains(desc, "  - pdf: Generate PDF reports [documents, reports]") {
		t.Errorf("descriptions:\n%s", desc)
	}
	if !strings.Contains(desc, "  - bare: No description") {
		t.Errorf("descriptions:\n%s", desc)
	}

	body, err := c.Load("pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(body, `<skill name="pdf">`) || !strings.HasSuffix(body, "</skill>") {
		t.Errorf("envelope = %q", body)
	}
	if strings.Contains(body, "description:") {
		t.Error("frontmatter leaked into body")
	}
	if !strings.Contains(body, "Use a PDF library.") {
		t.Errorf("body = %q", body)
	}
}

func TestCatalog_UnknownSkill(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "alpha", "a")
	writeSkill(t, dir, "beta", "b")

	c := NewCatalog(dir)
	_, err := c.Load("gamma")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Unknown skill 'gamma'. Available: alpha, beta"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestCatalog_MissingDir(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "nope"))
	if got := c.Descriptions(); got != "(no skills available)" {
		t.Errorf("descriptions = %q", got)
	}
}

func TestCatalog_Reload(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog(dir)
	if len(c.Names()) != 0 {
		t.Fatal("expected empty catalog")
	}

	writeSkill(t, dir, "new", `---
description: Added later
---
body`)
	c.Reload()
	if _, err := c.Load("new"); err != nil {
		t.Errorf("skill not picked up: %v", err)
	}
}

func TestParseFrontmatter_Unterminated(t *testing.T) {
	meta, body := parseFrontmatter("---\ndescription: x\nno end")
	if meta.Description != "" {
		t.Errorf("meta = %+v", meta)
	}
	if !strings.Contains(body, "no end") {
		t.Errorf("body = %q", body)
	}
}
