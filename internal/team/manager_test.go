package team

import (
	"strings"
	"testing"
)

func TestSpawnAndList(t *testing.T) {
	var started [][3]string
	mgr, err := NewManager(t.TempDir(), "demo", StarterFunc(func(name, role, prompt string) {
		started = append(started, [3]string{name, role, prompt})
	}))
	if err != nil {
		t.Fatal(err)
	}

	msg, err := mgr.Spawn("alice", "researcher", "Survey the corpus and report.")
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Spawned 'alice' (role: researcher)" {
		t.Errorf("spawn message = %q", msg)
	}
	if len(started) != 1 || started[0] != [3]string{"alice", "researcher", "Survey the corpus and report."} {
		t.Errorf("starter calls = %v", started)
	}

	out, err := mgr.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Team: demo") || !strings.Contains(out, "alice (researcher): working") {
		t.Errorf("list output: %q", out)
	}
}

func TestSpawnWorkingMemberRejected(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Spawn("bob", "writer", "draft the intro"); err != nil {
		t.Fatal(err)
	}
	_, err = mgr.Spawn("bob", "editor", "polish the intro")
	if err == nil || err.Error() != "'bob' is currently working" {
		t.Errorf("got %v", err)
	}
}

func TestRespawnUpdatesRole(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Spawn("bob", "writer", "draft the intro"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.SetStatus("bob", StatusIdle); err != nil {
		t.Fatal(err)
	}

	msg, err := mgr.Spawn("bob", "editor", "polish the intro")
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Spawned 'bob' (role: editor)" {
		t.Errorf("respawn message = %q", msg)
	}
	out, _ := mgr.ListAll()
	if !strings.Contains(out, "bob (editor): working") {
		t.Errorf("role not updated: %q", out)
	}
}

func TestRosterPersistsAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Spawn("alice", "researcher", "index the archive"); err != nil {
		t.Fatal(err)
	}

	fresh, err := NewManager(dir, "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	names, err := fresh.MemberNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "alice" {
		t.Errorf("names = %v", names)
	}
	status, err := fresh.Status("alice")
	if err != nil || status != StatusWorking {
		t.Errorf("status = %q, err = %v", status, err)
	}
}
