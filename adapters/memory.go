package adapters

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/config"
)

type memNode struct {
	isDir   bool
	content string
}

// MemoryGateway implements [dok.Gateway] over an in-process tree.
// It follows the remote API's semantics and backs offline mode and tests.
type MemoryGateway struct {
	mu    sync.RWMutex
	nodes map[string]*memNode // keyed by clean absolute path
}

var _ dok.Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway returns a tree containing only the root directory
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		nodes: map[string]*memNode{dok.RootPath: {isDir: true}},
	}
}

// NewMemoryGatewayFromConfig satisfies the registry factory signature
func NewMemoryGatewayFromConfig(_ *config.Config) (dok.Gateway, error) {
	return NewMemoryGateway(), nil
}

func (m *MemoryGateway) List(ctx context.Context, dir string) ([]dok.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &dok.TransportError{Op: "list", Path: dir, Err: err}
	}
	dir = dok.CleanPath(dir)

	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[dir]
	if !ok {
		return nil, &dok.NotFoundError{Op: "list", Path: dir}
	}
	if !n.isDir {
		return nil, &dok.ValidationError{Op: "list", Path: dir, Reason: "not a directory"}
	}

	entries := []dok.Entry{}
	for p, child := range m.nodes {
		if p == dok.RootPath || dok.ParentDir(p) != dir {
			continue
		}
		entries = append(entries, dok.Entry{Name: path.Base(p), Path: p, IsDirectory: child.isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (m *MemoryGateway) ReadRaw(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &dok.TransportError{Op: "raw", Path: p, Err: err}
	}
	p = dok.CleanPath(p)

	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[p]
	if !ok {
		return "", &dok.NotFoundError{Op: "raw", Path: p}
	}
	if n.isDir {
		return "", &dok.ValidationError{Op: "raw", Path: p, Reason: "is a directory"}
	}
	return n.content, nil
}

func (m *MemoryGateway) Write(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return &dok.TransportError{Op: "save", Path: p, Err: err}
	}
	p = dok.CleanPath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[p]; ok {
		if n.isDir {
			return &dok.ValidationError{Op: "save", Path: p, Reason: "is a directory"}
		}
		n.content = content
		return nil
	}
	if err := m.checkParentLocked("save", p); err != nil {
		return err
	}
	m.nodes[p] = &memNode{content: content}
	return nil
}

func (m *MemoryGateway) CreateFile(ctx context.Context, p string) error {
	return m.create(ctx, "create-file", p, false)
}

func (m *MemoryGateway) CreateDirectory(ctx context.Context, p string) error {
	return m.create(ctx, "create-directory", p, true)
}

func (m *MemoryGateway) create(ctx context.Context, op, p string, isDir bool) error {
	if err := ctx.Err(); err != nil {
		return &dok.TransportError{Op: op, Path: p, Err: err}
	}
	p = dok.CleanPath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[p]; ok {
		return &dok.ValidationError{Op: op, Path: p, Reason: "already exists"}
	}
	if err := m.checkParentLocked(op, p); err != nil {
		return err
	}
	m.nodes[p] = &memNode{isDir: isDir}
	return nil
}

func (m *MemoryGateway) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return &dok.TransportError{Op: "delete", Path: p, Err: err}
	}
	p = dok.CleanPath(p)
	if p == dok.RootPath {
		return &dok.ValidationError{Op: "delete", Path: p, Reason: "cannot delete root"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[p]; !ok {
		return &dok.NotFoundError{Op: "delete", Path: p}
	}
	for k := range m.nodes {
		if dok.IsWithin(k, p) {
			delete(m.nodes, k)
		}
	}
	return nil
}

func (m *MemoryGateway) Move(ctx context.Context, source, destination string) error {
	if err := ctx.Err(); err != nil {
		return &dok.TransportError{Op: "move", Path: source, Err: err}
	}
	source = dok.CleanPath(source)
	destination = dok.CleanPath(destination)
	if source == dok.RootPath {
		return &dok.ValidationError{Op: "move", Path: source, Reason: "cannot move root"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[source]; !ok {
		return &dok.NotFoundError{Op: "move", Path: source}
	}
	dst, ok := m.nodes[destination]
	if !ok {
		return &dok.NotFoundError{Op: "move", Path: destination}
	}
	if !dst.isDir {
		return &dok.ValidationError{Op: "move", Path: destination, Reason: "destination is not a directory"}
	}
	if dok.IsWithin(destination, source) {
		return &dok.ValidationError{Op: "move", Path: source, Reason: "cannot move a directory into itself"}
	}
	target := dok.JoinPath(destination, path.Base(source))
	if target == source {
		return nil
	}
	if _, exists := m.nodes[target]; exists {
		return &dok.ValidationError{Op: "move", Path: target, Reason: "already exists"}
	}

	moved := make(map[string]*memNode)
	for k, n := range m.nodes {
		if dok.IsWithin(k, source) {
			moved[dok.Rebase(k, source, target)] = n
			delete(m.nodes, k)
		}
	}
	for k, n := range moved {
		m.nodes[k] = n
	}
	return nil
}

// MkdirAll creates the directory at p and any missing ancestors, like `mkdir -p`.
// It does not error if the leaf already exists as a directory.
func (m *MemoryGateway) MkdirAll(p string) error {
	p = dok.CleanPath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAllLocked(p)
}

func (m *MemoryGateway) mkdirAllLocked(p string) error {
	cur := dok.RootPath
	for _, name := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if name == "" {
			continue
		}
		cur = dok.JoinPath(cur, name)
		if n, ok := m.nodes[cur]; ok {
			if !n.isDir {
				return &dok.ValidationError{Op: "mkdir", Path: cur, Reason: "not a directory"}
			}
			continue
		}
		m.nodes[cur] = &memNode{isDir: true}
	}
	return nil
}

// PutFile writes content to p, creating any missing ancestor directories
func (m *MemoryGateway) PutFile(p, content string) error {
	p = dok.CleanPath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.mkdirAllLocked(dok.ParentDir(p)); err != nil {
		return err
	}
	if n, ok := m.nodes[p]; ok && n.isDir {
		return &dok.ValidationError{Op: "put", Path: p, Reason: "is a directory"}
	}
	m.nodes[p] = &memNode{content: content}
	return nil
}

// Exists reports whether p exists and whether it is a directory
func (m *MemoryGateway) Exists(p string) (exists bool, isDir bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[dok.CleanPath(p)]
	if !ok {
		return false, false
	}
	return true, n.isDir
}

func (m *MemoryGateway) checkParentLocked(op, p string) error {
	parent := dok.ParentDir(p)
	n, ok := m.nodes[parent]
	if !ok {
		return &dok.NotFoundError{Op: op, Path: parent}
	}
	if !n.isDir {
		return &dok.ValidationError{Op: op, Path: parent, Reason: "not a directory"}
	}
	return nil
}
