package shell

import "sync"

// Loop is the single cooperative dispatch queue that owns all shell state.
// Registry mutation, timer firing, and bus call handling are interleaved on
// the one goroutine running Run, so the domain packages need no locking.
// Handlers must not block: a slow task stalls every window and bus call
// behind it.
type Loop struct {
	mu    sync.Mutex
	queue []func()

	wake     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a stopped-state loop; call Run to start dispatching.
func NewLoop() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Run dispatches posted tasks until Stop is called. It blocks the calling
// goroutine; all tasks run on it.
func (l *Loop) Run() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			select {
			case <-l.stopped:
				return
			default:
			}
			fn()
		}

		select {
		case <-l.wake:
		case <-l.stopped:
			return
		}
	}
}

// Post schedules fn onto the loop. It never blocks and is safe to call from
// any goroutine, including from a task already running on the loop. Tasks
// posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.stopped:
		return
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine itself. If the loop stops before fn runs, Call
// returns false and fn may never execute.
func (l *Loop) Call(fn func()) bool {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-l.stopped:
		// fn may still be mid-flight on the loop goroutine; give it a
		// chance to finish so callers never observe torn state.
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// Stop terminates the loop. Pending tasks are discarded. Safe to call from a
// loop task or any other goroutine, multiple times.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopped)
	})
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	select {
	case <-l.stopped:
		return true
	default:
		return false
	}
}
