package tools

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Workdir is the mutable working directory shared by the shell and file
// tools. The coordination stores (.tasks, .team, skills) stay rooted at the
// startup workspace; only command and file resolution follow Set.
type Workdir struct {
	mu   sync.RWMutex
	path string
}

func NewWorkdir(path string) *Workdir {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Workdir{path: abs}
}

func (w *Workdir) Get() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.path
}

func (w *Workdir) Set(path string) {
	w.mu.Lock()
	w.path = path
	w.mu.Unlock()
}

// safePath resolves p against workdir. Writes must stay inside the
// workspace unless allowOutside is set; reads pass allowOutside=true.
func safePath(p, workdir string, allowOutside bool) (string, error) {
	var resolved string
	if filepath.IsAbs(p) {
		resolved = filepath.Clean(p)
	} else {
		resolved = filepath.Clean(filepath.Join(workdir, p))
	}
	if allowOutside {
		return resolved, nil
	}
	if !isPathInside(resolved, workdir) {
		return "", fmt.Errorf("Path escapes workspace: %s", p)
	}
	return resolved, nil
}

// isPathInside checks whether child is inside or equal to parent directory.
func isPathInside(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
