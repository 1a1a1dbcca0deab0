// Package chat drives natural-language questions against the remote analytics
// service and accumulates the streamed answer into a domain.Session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/sse"
)

// ErrSessionInFlight is returned when a question is submitted while the
// previous one is still sending or streaming.
var ErrSessionInFlight = errors.New("a question is already being answered")

const (
	sendingMessage   = "Sending query..."
	internalFailure  = "internal error while processing the answer stream"
	missingBodyText  = "No streaming body."
	remoteErrorText  = "analytics service reported an error"
	maxLoggedPayload = 200
)

// Observer receives a snapshot of the session after every mutation.
// Snapshots are deep copies and may be retained.
type Observer func(domain.Session)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for frame diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdleTimeout fails a session that receives no frame for d. Zero
// disables the timeout and a silent stream stays streaming.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) { c.idleTimeout = d }
}

// WithObserver registers an observer for the controller's lifetime.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.subscribe(o)
		}
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

type subscription struct {
	id int
	fn Observer
}

// Controller owns one chat session at a time. It is safe for concurrent use:
// Snapshot and Subscribe never wait on the network.
type Controller struct {
	transport   Transport
	logger      *slog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	running   bool
	session   domain.Session
	observers []subscription
	nextSubID int
}

// NewController creates a controller that opens streams through transport.
func NewController(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		logger:    slog.Default(),
		now:       time.Now,
		session:   domain.Session{Status: domain.SessionIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chat")
	return c
}

// Subscribe registers o and returns a function that removes it.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	id := c.subscribe(o)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.observers {
			if s.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) subscribe(o Observer) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	c.observers = append(c.observers, subscription{id: c.nextSubID, fn: o})
	return c.nextSubID
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Busy reports whether a session currently holds the controller.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Submit asks question and blocks until the session is done or failed, or
// ctx is cancelled. A failed session is reported through the returned
// snapshot, not the error. The error is non-nil only when the question was
// not accepted or ctx ended the session early.
func (c *Controller) Submit(ctx context.Context, question string) (domain.Session, error) {
	if err := c.begin(question); err != nil {
		return c.Snapshot(), err
	}
	c.run(ctx)
	return c.Snapshot(), ctx.Err()
}

// Start accepts question and answers it in the background. Progress is
// visible through observers and Snapshot.
func (c *Controller) Start(ctx context.Context, question string) error {
	if err := c.begin(question); err != nil {
		return err
	}
	go c.run(ctx)
	return nil
}

// begin claims the controller and resets the session. The claim is made
// under the lock so two concurrent submissions cannot both win.
func (c *Controller) begin(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.ErrValidation("question must not be empty")
	}

	snap, observers, err := c.claim(question)
	if err != nil {
		return err
	}
	c.emit(snap, observers)
	return nil
}

func (c *Controller) claim(question string) (domain.Session, []Observer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return domain.Session{}, nil, ErrSessionInFlight
	}
	c.running = true
	c.session = domain.Session{
		ID:        domain.NewID(),
		Query:     question,
		Status:    domain.SessionSending,
		Narration: []string{},
		Log:       []domain.LogEntry{{Kind: domain.LogInfo, Text: sendingMessage}},
		StartedAt: c.safeNow(),
	}
	return c.session.Clone(), c.observerFuncs(), nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context) {
	defer c.release()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("chat session panicked", "panic", r)
			c.fail(ctx, internalFailure)
		}
	}()

	question := c.Snapshot().Query
	body, err := c.transport.Open(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("chat request failed", "error", err)
		c.fail(ctx, failureMessage(err))
		return
	}
	defer body.Close() //nolint:errcheck

	stopOnCancel := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stopOnCancel()

	var idle atomic.Bool
	resetIdle := func() {}
	if c.idleTimeout > 0 {
		timer := time.AfterFunc(c.idleTimeout, func() {
			idle.Store(true)
			_ = body.Close()
		})
		defer timer.Stop()
		resetIdle = func() { timer.Reset(c.idleTimeout) }
	}

	c.mutate(ctx, func(s *domain.Session) bool {
		return advance(s, domain.SessionStreaming, c.now())
	})

	reader := sse.NewReassembler(body)
	for frame, err := range reader.Frames() {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if idle.Load() {
				c.fail(ctx, fmt.Sprintf("no data from the analytics service for %s", c.idleTimeout))
				return
			}
			c.logger.Warn("chat stream ended with error", "error", err)
			c.fail(ctx, failureMessage(&domain.TransportError{Op: "read answer stream", Err: err}))
			return
		}
		resetIdle()
		for _, payload := range frame.Payloads() {
			if c.apply(ctx, payload) {
				return
			}
		}
	}

	if ctx.Err() != nil {
		return
	}
	if idle.Load() {
		c.fail(ctx, fmt.Sprintf("no data from the analytics service for %s", c.idleTimeout))
		return
	}
	c.mutate(ctx, func(s *domain.Session) bool {
		return advance(s, domain.SessionDone, c.now())
	})
}

// apply decodes one payload and applies it. It reports whether the session
// reached a terminal state.
func (c *Controller) apply(ctx context.Context, payload string) bool {
	ev, err := DecodeEvent(payload)
	if err != nil {
		c.logger.Warn("skipping malformed frame", "error", err, "payload", truncate(payload, maxLoggedPayload))
		return false
	}
	if ev.Kind == EventUnknown {
		c.logger.Debug("ignoring unknown event", "type", ev.WireType)
		return false
	}

	terminal := false
	c.mutate(ctx, func(s *domain.Session) bool {
		if s.Status.Terminal() {
			terminal = true
			return false
		}
		applyEvent(s, ev, c.now())
		terminal = s.Status.Terminal()
		return true
	})
	return terminal
}

// applyEvent performs the per-kind field updates on s.
func applyEvent(s *domain.Session, ev Event, now time.Time) {
	switch ev.Kind {
	case EventNarration:
		s.Narration = append(s.Narration, ev.Text)
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogNarration, Text: ev.Text})
	case EventCandidateQuery:
		sql := ev.SQL
		s.CandidateQuery = &sql
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogSQL, SQL: sql})
	case EventResultRows:
		rows := ev.Rows
		if rows == nil {
			rows = []domain.Row{}
		}
		s.ResultRows = rows
		s.ResultColumns = ev.Columns
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogInfo, Text: fmt.Sprintf("Received %d rows", len(rows))})
	case EventResultMeta:
		text := "Rows: unknown"
		if ev.RowCount != nil {
			n := *ev.RowCount
			s.ResultRowCount = &n
			text = fmt.Sprintf("Rows: %d", n)
		}
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogInfo, Text: text})
	case EventError:
		msg := ev.Text
		if msg == "" {
			msg = remoteErrorText
		}
		s.Error = &msg
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogError, Text: msg})
		advance(s, domain.SessionFailed, now)
	case EventInfo:
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogInfo, Text: ev.Text})
	case EventDone:
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogInfo, Text: ev.Text})
		advance(s, domain.SessionDone, now)
	}
}

// advance moves s forward to next. Backward or post-terminal moves are ignored.
func advance(s *domain.Session, next domain.SessionStatus, now time.Time) bool {
	if !s.Status.CanAdvanceTo(next) {
		return false
	}
	s.Status = next
	if next.Terminal() {
		t := now
		s.FinishedAt = &t
	}
	return true
}

// fail records msg and moves the session to failed, keeping collected state.
// It also runs after a recovered panic, so it must not depend on the
// injected clock behaving.
func (c *Controller) fail(ctx context.Context, msg string) {
	c.mutate(ctx, func(s *domain.Session) bool {
		if s.Status.Terminal() {
			return false
		}
		m := msg
		s.Error = &m
		s.Log = append(s.Log, domain.LogEntry{Kind: domain.LogError, Text: msg})
		return advance(s, domain.SessionFailed, c.safeNow())
	})
}

// safeNow is c.now with a fallback to the wall clock if it panics.
func (c *Controller) safeNow() (t time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("session clock panicked", "panic", r)
			t = time.Now()
		}
	}()
	return c.now()
}

// mutate applies fn under the lock and notifies observers when fn reports a
// change. Nothing is applied once ctx is done. A panic in fn propagates to
// the caller with the lock released.
func (c *Controller) mutate(ctx context.Context, fn func(*domain.Session) bool) {
	if snap, observers, ok := c.locked(ctx, fn); ok {
		c.emit(snap, observers)
	}
}

func (c *Controller) locked(ctx context.Context, fn func(*domain.Session) bool) (domain.Session, []Observer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || !fn(&c.session) {
		return domain.Session{}, nil, false
	}
	return c.session.Clone(), c.observerFuncs(), true
}

func (c *Controller) observerFuncs() []Observer {
	fns := make([]Observer, len(c.observers))
	for i, s := range c.observers {
		fns[i] = s.fn
	}
	return fns
}

// emit delivers snap to each observer. Each observer gets its own clone and
// a panicking observer does not affect the session or other observers.
func (c *Controller) emit(snap domain.Session, observers []Observer) {
	for i, o := range observers {
		s := snap
		if i > 0 {
			s = snap.Clone()
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("session observer panicked", "panic", r)
				}
			}()
			o(s)
		}()
	}
}

// failureMessage turns an open or read error into the session error text.
func failureMessage(err error) string {
	var rejected *domain.RemoteRejectionError
	if errors.As(err, &rejected) {
		return rejected.Error()
	}
	if errors.Is(err, domain.ErrStreamBodyMissing) {
		return missingBodyText
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Request failed"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
