// Package autosave writes editor content back to the remote after a quiet
// period, one edit session at a time.
package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/internal/util"
	"github.com/google/uuid"
)

// DefaultDelay is the quiet period after the last edit before a save fires
const DefaultDelay = 500 * time.Millisecond

// State of the current edit session
type State int

const (
	Closed      State = iota // no session
	Loading                  // content read in flight
	Ready                    // loaded, nothing unsaved
	Editing                  // unsaved edits and no save scheduled (i.e. after a failed save)
	SavePending              // debounce timer armed
	Saving                   // write in flight
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Editing:
		return "editing"
	case SavePending:
		return "save-pending"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Writer is the subset of [dok.Gateway] the pipeline needs
type Writer interface {
	Write(ctx context.Context, path, content string) error
}

// Timer is a pending debounce callback
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like [time.AfterFunc]
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option func(*Pipeline)

// WithDelay sets the debounce delay
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithAfterFunc replaces the timer factory. Tests use it to fire timers by hand.
func WithAfterFunc(fn AfterFunc) Option {
	return func(p *Pipeline) {
		p.afterFunc = fn
	}
}

// Status is a copy of the session for rendering
type Status struct {
	ID      uuid.UUID
	Path    string
	Content string
	State   State
	Dirty   bool
}

type session struct {
	id      uuid.UUID
	path    string
	content string // live editor content
	saved   string // last content known to be persisted
	state   State

	timer Timer
	// token identifies the armed timer; a callback carrying an older token is stale
	token uint64

	// held for the duration of a write so at most one is in flight
	writeMu sync.Mutex
}

// Pipeline owns the single edit session. A timer can never write into a
// session other than the one that armed it, and a session is never replaced
// without first flushing its unsaved content.
type Pipeline struct {
	mu        sync.Mutex
	writer    Writer
	notifier  dok.Notifier
	delay     time.Duration
	afterFunc AfterFunc
	sess      *session
}

func NewPipeline(writer Writer, notifier dok.Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		writer:    writer,
		notifier:  notifier,
		delay:     DefaultDelay,
		afterFunc: realAfterFunc,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin starts a new session for path in the Loading state, flushing the
// previous session first. The new session is started even if that flush
// fails; the failure has already been notified and is returned.
func (p *Pipeline) Begin(ctx context.Context, path string) (uuid.UUID, error) {
	logger := util.GetLogger("Autosave.Begin")
	flushErr := p.Close(ctx)

	s := &session{id: uuid.New(), path: dok.CleanPath(path), state: Loading}
	p.mu.Lock()
	p.sess = s
	p.mu.Unlock()

	logger.Debug().Str("path", s.path).Str("session", s.id.String()).Msg("Started edit session")
	return s.id, flushErr
}

// Loaded supplies the content read for session id. Returns false and changes
// nothing if the session has since been replaced.
func (p *Pipeline) Loaded(id uuid.UUID, content string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sess
	if s == nil || s.id != id || s.state != Loading {
		logger := util.GetLogger("Autosave.Loaded")
		logger.Trace().Str("session", id.String()).Msg("Discarding stale load")
		return false
	}
	s.content = content
	s.saved = content
	s.state = Ready
	return true
}

// LoadFailed ends session id if it is still current
func (p *Pipeline) LoadFailed(id uuid.UUID, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sess
	if s == nil || s.id != id {
		return false
	}
	logger := util.GetLogger("Autosave.LoadFailed")
	logger.Warn().Err(err).Str("path", s.path).Msg("Load failed")
	p.sess = nil
	return true
}

// OnEdit replaces the live content and re-arms the debounce timer.
// Content identical to the live content is ignored.
func (p *Pipeline) OnEdit(content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.sess
	if s == nil {
		return &dok.ValidationError{Op: "edit", Reason: "no file is open"}
	}
	if s.state == Loading {
		return &dok.ValidationError{Op: "edit", Path: s.path, Reason: "file is still loading"}
	}
	if content == s.content {
		return nil
	}

	s.content = content
	p.armLocked(s)
	logger := util.GetLogger("Autosave.OnEdit")
	logger.Trace().Str("path", s.path).Int("len", len(content)).Msg("Armed save")
	return nil
}

// Flush cancels any pending timer and writes unsaved content now, waiting for
// a write already in flight first
func (p *Pipeline) Flush(ctx context.Context) error {
	p.mu.Lock()
	s := p.sess
	if s == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopLocked(s)
	p.mu.Unlock()

	return p.save(ctx, s)
}

// Close flushes and ends the session
func (p *Pipeline) Close(ctx context.Context) error {
	err := p.Flush(ctx)
	p.mu.Lock()
	if p.sess != nil {
		p.stopLocked(p.sess)
		p.sess = nil
	}
	p.mu.Unlock()
	return err
}

// Discard ends the session without writing, used when the file was deleted
func (p *Pipeline) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return
	}
	p.stopLocked(p.sess)
	logger := util.GetLogger("Autosave.Discard")
	logger.Debug().Str("path", p.sess.path).Msg("Discarded edit session")
	p.sess = nil
}

// Rebase follows the session's file when oldRoot, which contains it, moved to
// newRoot. Callers flush before moving so no write targets the old path.
func (p *Pipeline) Rebase(oldRoot, newRoot string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil && dok.IsWithin(p.sess.path, oldRoot) {
		p.sess.path = dok.Rebase(p.sess.path, oldRoot, newRoot)
	}
}

// Status returns a copy of the session, or a Closed status when there is none
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sess
	if s == nil {
		return Status{State: Closed}
	}
	return Status{
		ID:      s.id,
		Path:    s.path,
		Content: s.content,
		State:   s.state,
		Dirty:   s.state != Loading && s.content != s.saved,
	}
}

func (p *Pipeline) armLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.token++
	token := s.token
	s.timer = p.afterFunc(p.delay, func() { p.fire(s, token) })
	s.state = SavePending
}

func (p *Pipeline) stopLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate callbacks that already started despite Stop
	s.token++
	if s.state == SavePending {
		s.state = Editing
	}
}

func (p *Pipeline) fire(s *session, token uint64) {
	p.mu.Lock()
	if p.sess != s || s.token != token {
		p.mu.Unlock()
		return
	}
	s.timer = nil
	p.mu.Unlock()

	_ = p.save(context.Background(), s)
}

// save writes s's live content if it differs from what was last persisted.
// Failures are notified as well as returned; they are not retried.
func (p *Pipeline) save(ctx context.Context, s *session) error {
	logger := util.GetLogger("Autosave.save")

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p.mu.Lock()
	if s.state == Loading {
		p.mu.Unlock()
		return nil
	}
	if s.content == s.saved {
		if s.timer == nil {
			s.state = Ready
		}
		p.mu.Unlock()
		return nil
	}
	path, content := s.path, s.content
	if s.timer == nil {
		s.state = Saving
	}
	p.mu.Unlock()

	logger.Debug().Str("path", path).Int("len", len(content)).Msg("Saving")
	err := p.writer.Write(ctx, path, content)

	p.mu.Lock()
	if err == nil {
		s.saved = content
	}
	switch {
	case s.timer != nil:
		s.state = SavePending
	case s.content == s.saved:
		s.state = Ready
	default:
		s.state = Editing
	}
	p.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Save failed")
		p.notifier.Notify(dok.Notification{
			Level:   dok.NotifyError,
			Op:      "save",
			Path:    path,
			Message: fmt.Sprintf("Failed to save '%s'; changes are not persisted", path),
			Err:     err,
		})
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
