package trip

import (
	"sync"
	"time"
)

// Stopwatch is a user-operated timer with tenth-of-a-second resolution. It
// is safe for concurrent use; buttons and the web API both drive it.
type Stopwatch struct {
	now func() time.Time

	mu      sync.Mutex
	running bool
	since   time.Time
	total   time.Duration
}

// NewStopwatch returns a stopped stopwatch. now may be nil to use time.Now.
func NewStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now}
}

// Start starts or resumes the stopwatch.
func (w *Stopwatch) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.since = w.now()
}

// Stop pauses the stopwatch.
func (w *Stopwatch) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.total += w.now().Sub(w.since)
	w.running = false
}

// Toggle starts a stopped stopwatch and stops a running one.
func (w *Stopwatch) Toggle() {
	if w.Running() {
		w.Stop()
		return
	}
	w.Start()
}

// Reset sets the elapsed time to zero without changing the run state.
func (w *Stopwatch) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.total = 0
	if w.running {
		w.since = w.now()
	}
}

func (w *Stopwatch) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Elapsed returns the accumulated time truncated to tenths of a second.
func (w *Stopwatch) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.total
	if w.running {
		d += w.now().Sub(w.since)
	}
	return d.Truncate(100 * time.Millisecond)
}
