// Package scheduler implements per-window delayed closing.
//
// A window with a configured close delay goes Visible -> PendingClose ->
// Hidden: the window-toggled event fires immediately when the close is
// scheduled, the backend hide happens once the delay elapses. At most one
// pending close exists per window; a newer close request supersedes the
// older timer rather than stacking a second one.
package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/wrenshell/wren/internal/domain/registry"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
	"github.com/wrenshell/wren/internal/infrastructure/monitoring"
)

// Poster schedules work onto the cooperative shell loop.
type Poster interface {
	Post(fn func())
}

type pendingClose struct {
	timer *time.Timer
	seq   uint64
}

// Scheduler drives delayed window closes. Loop-confined like the registry:
// every method and every timer callback runs on the shell loop, which is
// what makes cancellation effective-before-fire. A stopped timer whose
// callback already fired is still discarded, because the callback checks its
// sequence number against the current pending entry on the loop.
type Scheduler struct {
	reg     *registry.Manager
	delays  map[string]time.Duration
	pending map[string]*pendingClose
	post    Poster
	log     *logging.Logger
	metrics *monitoring.Metrics
	seq     uint64
}

// New creates a scheduler with an empty delay table.
func New(reg *registry.Manager, post Poster, log *logging.Logger) *Scheduler {
	return &Scheduler{
		reg:     reg,
		delays:  make(map[string]time.Duration),
		pending: make(map[string]*pendingClose),
		post:    post,
		log:     log,
	}
}

// WithMetrics adds metrics tracking to the scheduler.
func (s *Scheduler) WithMetrics(metrics *monitoring.Metrics) *Scheduler {
	s.metrics = metrics
	return s
}

// SetDelays installs the per-window delay table. The table is load-time
// state: it is set once when the configuration descriptor is applied and
// never mutated afterwards.
func (s *Scheduler) SetDelays(delays map[string]time.Duration) {
	if delays == nil {
		delays = make(map[string]time.Duration)
	}
	s.delays = delays
}

// Delay returns the configured close delay for name (zero when absent).
func (s *Scheduler) Delay(name string) time.Duration {
	return s.delays[name]
}

// Close requests that the window be hidden. Without a configured delay the
// hide is immediate. With a delay the logical window-toggled(false) event is
// published now and the backend hide runs after the delay elapses. A second
// close while one is already pending cancels and replaces the earlier timer
// and publishes nothing.
func (s *Scheduler) Close(name string) registry.Code {
	if prev, ok := s.pending[name]; ok {
		// Supersede: reset the countdown, keep the single pending slot.
		prev.timer.Stop()
		s.schedule(name, s.delays[name])
		s.metrics.RecordSuperseded()
		s.log.Debug("superseded pending close", zap.String("window", name))
		return registry.Ok
	}

	visible, code := s.reg.Visible(name)
	if code != registry.Ok {
		return code
	}
	if !visible {
		return registry.Ok
	}

	d := s.delays[name]
	if d <= 0 {
		return s.reg.Hide(name)
	}

	// Acknowledge the close now; the widget hides later.
	s.reg.MarkHidden(name)
	s.schedule(name, d)
	return registry.Ok
}

// CancelPending drops any pending close for name. Called when the window is
// opened again before the delay elapses. Reports whether a timer was
// cancelled.
func (s *Scheduler) CancelPending(name string) bool {
	p, ok := s.pending[name]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, name)
	s.metrics.SetPendingCloses(len(s.pending))
	return true
}

// CancelAll drops every pending close. Used on shutdown.
func (s *Scheduler) CancelAll() {
	for name, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, name)
	}
	s.metrics.SetPendingCloses(0)
}

// Pending reports whether a close is scheduled for name.
func (s *Scheduler) Pending(name string) bool {
	_, ok := s.pending[name]
	return ok
}

// PendingCount returns the number of scheduled closes.
func (s *Scheduler) PendingCount() int {
	return len(s.pending)
}

func (s *Scheduler) schedule(name string, d time.Duration) {
	s.seq++
	seq := s.seq
	timer := time.AfterFunc(d, func() {
		s.post.Post(func() {
			s.fire(name, seq)
		})
	})
	s.pending[name] = &pendingClose{timer: timer, seq: seq}
	s.metrics.SetPendingCloses(len(s.pending))
}

// fire runs on the loop when a close delay elapses. Superseded or cancelled
// timers are recognized by a stale sequence number and do nothing.
func (s *Scheduler) fire(name string, seq uint64) {
	cur, ok := s.pending[name]
	if !ok || cur.seq != seq {
		return
	}
	delete(s.pending, name)
	s.metrics.SetPendingCloses(len(s.pending))

	h, code := s.reg.Get(name)
	if code != registry.Ok {
		// Window was removed while the close was pending.
		return
	}
	h.Hide()
}
