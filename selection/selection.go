// Package selection tracks the open file and the action target, two
// independent references into the tree
package selection

import (
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/internal/util"
)

// Model holds the open file (drives the editor) and the action target (drives
// create/delete/move). Selecting is pure state and never fetches.
type Model struct {
	mu           sync.RWMutex
	openFile     string
	actionTarget *dok.Target
}

func NewModel() *Model {
	return &Model{}
}

// SelectFile opens the file at entry.Path and also makes it the action
// target, as a click on a file does both
func (m *Model) SelectFile(entry dok.Entry) error {
	if entry.IsDirectory {
		return &dok.ValidationError{Op: "select", Path: entry.Path, Reason: "cannot open a directory"}
	}
	p := dok.CleanPath(entry.Path)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.openFile = p
	m.actionTarget = &dok.Target{Path: p}
	logger := util.GetLogger("Selection.SelectFile")
	logger.Trace().Str("path", p).Msg("Selected file")
	return nil
}

// SelectForAction sets only the action target
func (m *Model) SelectForAction(path string, isDirectory bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionTarget = &dok.Target{Path: dok.CleanPath(path), IsDirectory: isDirectory}
}

func (m *Model) ClearOpenFile() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openFile = ""
}

func (m *Model) ClearActionTarget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionTarget = nil
}

// OpenFile returns the open file path, or "" when nothing is open
func (m *Model) OpenFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openFile
}

// ActionTarget returns a copy of the action target. ok is false when there is
// none, which means root.
func (m *Model) ActionTarget() (dok.Target, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.actionTarget == nil {
		return dok.Target{}, false
	}
	return *m.actionTarget, true
}

// TargetDirectory is where create actions put new entries: the targeted
// directory, or root when the target is a file or absent
func (m *Model) TargetDirectory() string {
	t, ok := m.ActionTarget()
	if !ok || !t.IsDirectory {
		return dok.RootPath
	}
	return t.Path
}

// Rebase rewrites both references that lie within oldRoot after it was moved
// to newRoot
func (m *Model) Rebase(oldRoot, newRoot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openFile != "" && dok.IsWithin(m.openFile, oldRoot) {
		m.openFile = dok.Rebase(m.openFile, oldRoot, newRoot)
	}
	if m.actionTarget != nil && dok.IsWithin(m.actionTarget.Path, oldRoot) {
		m.actionTarget = &dok.Target{
			Path:        dok.Rebase(m.actionTarget.Path, oldRoot, newRoot),
			IsDirectory: m.actionTarget.IsDirectory,
		}
	}
}

// Snapshot returns a serializable copy of the selection
func (m *Model) Snapshot() dok.Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := dok.Selection{OpenFile: m.openFile}
	if m.actionTarget != nil {
		t := *m.actionTarget
		s.ActionTarget = &t
	}
	return s
}
