package mocks

import (
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/stretchr/testify/mock"
)

// MockPrompter implements dok.Prompter for testing across packages
type MockPrompter struct {
	mock.Mock
}

func (m *MockPrompter) Prompt(message string) (string, bool) {
	args := m.Called(message)
	return args.String(0), args.Bool(1)
}

func (m *MockPrompter) Confirm(message string) bool {
	return m.Called(message).Bool(0)
}

var _ dok.Prompter = (*MockPrompter)(nil)

// NotifySink collects notifications; safe for use from timer goroutines
type NotifySink struct {
	mu  sync.Mutex
	all []dok.Notification
}

func (s *NotifySink) Notify(n dok.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, n)
}

// All returns a copy of every notification received
func (s *NotifySink) All() []dok.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dok.Notification(nil), s.all...)
}

// Last returns the latest notification, if any
func (s *NotifySink) Last() (dok.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.all) == 0 {
		return dok.Notification{}, false
	}
	return s.all[len(s.all)-1], true
}

var _ dok.Notifier = (*NotifySink)(nil)

// ViewSink keeps every rendered view
type ViewSink struct {
	mu    sync.Mutex
	views []dok.View
}

func (s *ViewSink) Render(v dok.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

// Last returns the latest view
func (s *ViewSink) Last() dok.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.views) == 0 {
		return dok.View{}
	}
	return s.views[len(s.views)-1]
}

// Count returns how many renders happened
func (s *ViewSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

var _ dok.Renderer = (*ViewSink)(nil)
