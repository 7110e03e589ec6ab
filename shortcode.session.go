package shortcode

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FragmentUpdate reports that the directive at Index settled.
type FragmentUpdate struct {
	Index     int
	Directive string
	State     State
}

// Session is one asynchronous render pass. Directives resolve concurrently;
// their output is emitted in source order regardless of completion order.
type Session struct {
	id      string
	source  string
	engine  *Engine
	cancel  context.CancelFunc
	updates chan FragmentUpdate
	done    chan struct{}
	start   time.Time

	mu        sync.Mutex
	fragments []Fragment
	remaining int
	disposed  bool
	finished  bool
	err       error
}

// Start parses text and begins resolving its directives. It returns
// immediately; every registered directive starts in StateLoading.
func (e *Engine) Start(ctx context.Context, text string, rc *Context) *Session {
	if rc == nil {
		rc = &Context{}
	}
	fragments, pending := e.plan(text)

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:        uuid.NewString(),
		source:    text,
		engine:    e,
		cancel:    cancel,
		updates:   make(chan FragmentUpdate, len(pending)),
		done:      make(chan struct{}),
		start:     time.Now(),
		fragments: fragments,
		remaining: len(pending),
	}

	e.logger.Debug(LogMsgRenderStart,
		zap.String(LogFieldSession, s.id),
		zap.Int(LogFieldCount, len(pending)))

	if len(pending) == 0 {
		s.finish(nil)
		return s
	}

	go func() {
		g, gctx := errgroup.WithContext(sctx)
		g.SetLimit(e.config.concurrency)
		for _, p := range pending {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				d := s.fragments[p.index].Directive
				value := e.resolve(gctx, rc, d, p.handler, p.attrs)
				node := e.renderValue(d, p.handler, p.attrs, value)
				s.apply(p.index, value, node)
				return nil
			})
		}
		_ = g.Wait()
		s.finish(sctx.Err())
	}()

	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Updates streams one FragmentUpdate per settled directive. The channel is
// closed when every directive has settled or the session is disposed.
func (s *Session) Updates() <-chan FragmentUpdate {
	return s.updates
}

// Done is closed when resolution has finished or the session was disposed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until every directive has settled, the session is disposed,
// or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.remaining == 0 {
			return nil
		}
		if s.disposed {
			return ErrSessionDisposed
		}
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the document as it stands. Unsettled directives render
// their loading placeholder.
func (s *Session) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	fragments := make([]Fragment, len(s.fragments))
	copy(fragments, s.fragments)
	return &Document{Source: s.source, Fragments: fragments}
}

// Pending returns the number of directives still resolving.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Dispose cancels in-flight fetches. Results arriving afterwards are dropped.
// Dispose is idempotent.
func (s *Session) Dispose() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.engine.logger.Debug(LogMsgSessionDisposed,
		zap.String(LogFieldSession, s.id),
		zap.Int(LogFieldCount, s.remaining))
	s.closeLocked()
}

// apply records a settled directive unless the session has been disposed.
func (s *Session) apply(index int, value ResolvedValue, node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.fragments[index].Directive.Name
	if s.disposed {
		s.engine.logger.Debug(LogMsgLateResultDropped,
			zap.String(LogFieldSession, s.id),
			zap.String(LogFieldDirective, name))
		return
	}

	s.fragments[index].State = value.State
	s.fragments[index].Value = value
	s.fragments[index].Node = node
	s.remaining--

	s.engine.logger.Debug(LogMsgDirectiveResolved,
		zap.String(LogFieldSession, s.id),
		zap.String(LogFieldDirective, name),
		zap.String(LogFieldState, value.State.String()))

	s.updates <- FragmentUpdate{Index: index, Directive: name, State: value.State}
}

// finish marks resolution complete. err is the cancellation that stopped
// scheduling, if any.
func (s *Session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining > 0 && s.err == nil {
		s.err = err
	}
	if !s.disposed {
		s.engine.logger.Debug(LogMsgRenderEnd,
			zap.String(LogFieldSession, s.id),
			zap.Duration(LogFieldDuration, time.Since(s.start)))
	}
	s.closeLocked()
}

// closeLocked closes the channels once; s.mu must be held.
func (s *Session) closeLocked() {
	if s.finished {
		return
	}
	s.finished = true
	close(s.updates)
	close(s.done)
}
