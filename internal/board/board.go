// Package board is the file-backed task board shared by the lead and
// teammates. Each task lives in .tasks/task_<id>.json; dependency edges are
// kept on both sides (blockedBy/blocks) and swept when a task completes.
package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusDeleted    = "deleted"
)

// Task is one persistent unit of work.
type Task struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Owner       string `json:"owner,omitempty"`
	BlockedBy   []int  `json:"blockedBy"`
	Blocks      []int  `json:"blocks"`
}

// Claimable reports whether a teammate may auto-claim this task:
// pending, unowned, and not blocked.
func (t *Task) Claimable() bool {
	return t.Status == StatusPending && t.Owner == "" && len(t.BlockedBy) == 0
}

// Store is a task board rooted at a .tasks directory. All operations are
// serialized by one mutex; files are replaced whole via temp+rename.
type Store struct {
	mu  sync.Mutex
	dir string
}

func NewStore(workspace string) (*Store, error) {
	dir := filepath.Join(workspace, ".tasks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("board: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("task_%d.json", id))
}

func (s *Store) nextID() int {
	max := 0
	entries, _ := os.ReadDir(s.dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "task_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "task_"), ".json")); err == nil && id > max {
			max = id
		}
	}
	return max + 1
}

func (s *Store) load(id int) (*Task, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("Task %d not found", id)
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("board: task %d corrupt: %w", id, err)
	}
	return &t, nil
}

func (s *Store) save(t *Task) error {
	if t.BlockedBy == nil {
		t.BlockedBy = []int{}
	}
	if t.Blocks == nil {
		t.Blocks = []int{}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(t.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(t.ID))
}

// Create adds a new pending task with the next free ID.
func (s *Store) Create(subject, description string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Task{
		ID:          s.nextID(),
		Subject:     subject,
		Description: description,
		Status:      StatusPending,
		BlockedBy:   []int{},
		Blocks:      []int{},
	}
	if err := s.save(t); err != nil {
		return nil, fmt.Errorf("board: save task: %w", err)
	}
	return t, nil
}

// Get returns a task by ID.
func (s *Store) Get(id int) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// Update changes status and/or extends dependency sets. Completing a task
// removes its ID from every other task's blockedBy set; deleting removes the
// file. The returned bool reports deletion.
func (s *Store) Update(id int, status string, addBlockedBy, addBlocks []int) (*Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(id)
	if err != nil {
		return nil, false, err
	}

	if status != "" {
		t.Status = status
		if status == StatusCompleted {
			if err := s.sweepBlockedBy(id); err != nil {
				return nil, false, err
			}
		}
		if status == StatusDeleted {
			if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
				return nil, false, fmt.Errorf("board: delete task %d: %w", id, err)
			}
			return t, true, nil
		}
	}
	t.BlockedBy = mergeIDs(t.BlockedBy, addBlockedBy)
	t.Blocks = mergeIDs(t.Blocks, addBlocks)

	if err := s.save(t); err != nil {
		return nil, false, fmt.Errorf("board: save task: %w", err)
	}
	return t, false, nil
}

// sweepBlockedBy removes completed from every task's blockedBy. Caller holds the lock.
func (s *Store) sweepBlockedBy(completed int) error {
	tasks, err := s.loadAll()
	if err != nil {
		return err
	}
	for _, t := range tasks {
		trimmed := t.BlockedBy[:0]
		for _, dep := range t.BlockedBy {
			if dep != completed {
				trimmed = append(trimmed, dep)
			}
		}
		if len(trimmed) != len(t.BlockedBy) {
			t.BlockedBy = trimmed
			if err := s.save(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns all tasks ordered by ID.
func (s *Store) List() ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAll()
}

func (s *Store) loadAll() ([]*Task, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("board: read %s: %w", s.dir, err)
	}
	var tasks []*Task
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "task_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "task_"), ".json"))
		if err != nil {
			continue
		}
		t, err := s.load(id)
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// Claim marks a task in_progress under the given owner. Claiming is
// unconditional: callers may reassign or take over tasks deliberately.
func (s *Store) Claim(id int, owner string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(id)
	if err != nil {
		return nil, err
	}
	t.Owner = owner
	t.Status = StatusInProgress
	if err := s.save(t); err != nil {
		return nil, fmt.Errorf("board: save task: %w", err)
	}
	return t, nil
}

// FirstClaimable returns the lowest-ID claimable task, or nil.
func (s *Store) FirstClaimable() (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.Claimable() {
			return t, nil
		}
	}
	return nil, nil
}

// RenderList formats the board as a checklist.
func RenderList(tasks []*Task) string {
	if len(tasks) == 0 {
		return "No tasks."
	}
	var lines []string
	for _, t := range tasks {
		var mark string
		switch t.Status {
		case StatusPending:
			mark = "[ ]"
		case StatusInProgress:
			mark = "[>]"
		case StatusCompleted:
			mark = "[x]"
		default:
			mark = "[?]"
		}
		line := fmt.Sprintf("%s #%d: %s", mark, t.ID, t.Subject)
		if t.Owner != "" {
			line += " @" + t.Owner
		}
		if len(t.BlockedBy) > 0 {
			deps := make([]string, len(t.BlockedBy))
			for i, d := range t.BlockedBy {
				deps[i] = strconv.Itoa(d)
			}
			line += fmt.Sprintf(" (blocked by: [%s])", strings.Join(deps, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func mergeIDs(existing, add []int) []int {
	if len(add) == 0 {
		return existing
	}
	seen := make(map[int]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range add {
		if !seen[id] {
			existing = append(existing, id)
			seen[id] = true
		}
	}
	return existing
}
