package mocks

import (
	"context"
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/stretchr/testify/mock"
)

// MockGateway implements dok.Gateway for testing across packages
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) List(ctx context.Context, path string) ([]dok.Entry, error) {
	args := m.Called(ctx, path)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, string) []dok.Entry); ok {
		return fn(ctx, path), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dok.Entry), args.Error(1)
}

func (m *MockGateway) ReadRaw(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)

	if fn, ok := args.Get(0).(func(context.Context, string) string); ok {
		return fn(ctx, path), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Write(ctx context.Context, path, content string) error {
	return m.Called(ctx, path, content).Error(0)
}

func (m *MockGateway) CreateFile(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockGateway) CreateDirectory(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockGateway) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockGateway) Move(ctx context.Context, source, destination string) error {
	return m.Called(ctx, source, destination).Error(0)
}

var _ dok.Gateway = (*MockGateway)(nil)

// Call is one recorded gateway invocation
type Call struct {
	Op   string
	Args []string
}

// RecordingGateway wraps a real gateway and records every call in order.
// Hooks run before the wrapped call and may return an error to fail it.
type RecordingGateway struct {
	dok.Gateway

	mu    sync.Mutex
	calls []Call
	hooks map[string]func(args ...string) error
}

func NewRecordingGateway(gw dok.Gateway) *RecordingGateway {
	return &RecordingGateway{Gateway: gw, hooks: map[string]func(...string) error{}}
}

// OnCall installs a hook for op ("list", "raw", "save", "create-file",
// "create-directory", "delete", "move")
func (r *RecordingGateway) OnCall(op string, hook func(args ...string) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[op] = hook
}

// Calls returns a copy of the recorded calls, optionally filtered to one op
func (r *RecordingGateway) Calls(op ...string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if len(op) == 0 || c.Op == op[0] {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of recorded calls for op
func (r *RecordingGateway) Count(op string) int {
	return len(r.Calls(op))
}

// Reset forgets all recorded calls
func (r *RecordingGateway) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *RecordingGateway) record(op string, args ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	hook := r.hooks[op]
	r.mu.Unlock()
	if hook != nil {
		return hook(args...)
	}
	return nil
}

func (r *RecordingGateway) List(ctx context.Context, path string) ([]dok.Entry, error) {
	if err := r.record("list", path); err != nil {
		return nil, err
	}
	return r.Gateway.List(ctx, path)
}

func (r *RecordingGateway) ReadRaw(ctx context.Context, path string) (string, error) {
	if err := r.record("raw", path); err != nil {
		return "", err
	}
	return r.Gateway.ReadRaw(ctx, path)
}

func (r *RecordingGateway) Write(ctx context.Context, path, content string) error {
	if err := r.record("save", path, content); err != nil {
		return err
	}
	return r.Gateway.Write(ctx, path, content)
}

func (r *RecordingGateway) CreateFile(ctx context.Context, path string) error {
	if err := r.record("create-file", path); err != nil {
		return err
	}
	return r.Gateway.CreateFile(ctx, path)
}

func (r *RecordingGateway) CreateDirectory(ctx context.Context, path string) error {
	if err := r.record("create-directory", path); err != nil {
		return err
	}
	return r.Gateway.CreateDirectory(ctx, path)
}

func (r *RecordingGateway) Delete(ctx context.Context, path string) error {
	if err := r.record("delete", path); err != nil {
		return err
	}
	return r.Gateway.Delete(ctx, path)
}

func (r *RecordingGateway) Move(ctx context.Context, source, destination string) error {
	if err := r.record("move", source, destination); err != nil {
		return err
	}
	return r.Gateway.Move(ctx, source, destination)
}
