// Package team manages the teammate roster and lifecycle. The roster lives
// in .team/config.json so every process sees the same member list; scheduler
// goroutines drive each teammate through its work/idle phases.
package team

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LeadName is the reserved agent name for the lead.
const LeadName = "lead"

// Member statuses.
const (
	StatusWorking  = "working"
	StatusIdle     = "idle"
	StatusShutdown = "shutdown"
)

// Member is one roster entry.
type Member struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type rosterFile struct {
	TeamName string   `json:"team_name"`
	Members  []Member `json:"members"`
}

// Starter launches the worker loop for a spawned teammate. Injected so the
// roster can be tested without live agents.
type Starter interface {
	Start(name, role, prompt string)
}

// StarterFunc adapts a function to the Starter interface.
type StarterFunc func(name, role, prompt string)

func (f StarterFunc) Start(name, role, prompt string) { f(name, role, prompt) }

// Manager owns the roster file. All mutations go through one mutex and are
// written back whole.
type Manager struct {
	mu       sync.Mutex
	path     string
	teamName string
	starter  Starter
}

func NewManager(workspace, teamName string, starter Starter) (*Manager, error) {
	dir := filepath.Join(workspace, ".team")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("team: create %s: %w", dir, err)
	}
	if teamName == "" {
		teamName = "crew"
	}
	return &Manager{path: filepath.Join(dir, "config.json"), teamName: teamName, starter: starter}, nil
}

// TeamName returns the configured team name.
func (m *Manager) TeamName() string { return m.teamName }

func (m *Manager) load() (*rosterFile, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &rosterFile{TeamName: m.teamName}, nil
		}
		return nil, fmt.Errorf("team: read roster: %w", err)
	}
	var r rosterFile
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("team: roster corrupt: %w", err)
	}
	if r.TeamName == "" {
		r.TeamName = m.teamName
	}
	return &r, nil
}

func (m *Manager) save(r *rosterFile) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("team: write roster: %w", err)
	}
	return os.Rename(tmp, m.path)
}

// Spawn adds a teammate or reactivates an idle/shutdown one (updating its
// role). The prompt seeds the teammate's conversation. Spawning a working
// member fails.
func (m *Manager) Spawn(name, role, prompt string) (string, error) {
	m.mu.Lock()
	r, err := m.load()
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	for i := range r.Members {
		if r.Members[i].Name != name {
			continue
		}
		if r.Members[i].Status == StatusWorking {
			m.mu.Unlock()
			return "", fmt.Errorf("'%s' is currently %s", name, r.Members[i].Status)
		}
		r.Members[i].Role = role
		r.Members[i].Status = StatusWorking
		if err := m.save(r); err != nil {
			m.mu.Unlock()
			return "", err
		}
		m.mu.Unlock()
		if m.starter != nil {
			m.starter.Start(name, role, prompt)
		}
		return fmt.Sprintf("Spawned '%s' (role: %s)", name, role), nil
	}

	r.Members = append(r.Members, Member{Name: name, Role: role, Status: StatusWorking})
	if err := m.save(r); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.mu.Unlock()
	if m.starter != nil {
		m.starter.Start(name, role, prompt)
	}
	return fmt.Sprintf("Spawned '%s' (role: %s)", name, role), nil
}

// ListAll renders the roster with statuses.
func (m *Manager) ListAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.load()
	if err != nil {
		return "", err
	}
	if len(r.Members) == 0 {
		return fmt.Sprintf("Team: %s\n  (no teammates)", r.TeamName), nil
	}
	lines := []string{fmt.Sprintf("Team: %s", r.TeamName)}
	for _, mem := range r.Members {
		lines = append(lines, fmt.Sprintf("  %s (%s): %s", mem.Name, mem.Role, mem.Status))
	}
	return strings.Join(lines, "\n"), nil
}

// MemberNames returns every roster name.
func (m *Manager) MemberNames() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(r.Members))
	for i, mem := range r.Members {
		names[i] = mem.Name
	}
	return names, nil
}

// SetStatus updates one member's status.
func (m *Manager) SetStatus(name, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.load()
	if err != nil {
		return err
	}
	for i := range r.Members {
		if r.Members[i].Name == name {
			r.Members[i].Status = status
			return m.save(r)
		}
	}
	return fmt.Errorf("team: unknown member %q", name)
}

// Status returns one member's status.
func (m *Manager) Status(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.load()
	if err != nil {
		return "", err
	}
	for _, mem := range r.Members {
		if mem.Name == name {
			return mem.Status, nil
		}
	}
	return "", fmt.Errorf("team: unknown member %q", name)
}
