// Package buttons turns GPIO button edges into short and long presses and
// maps them to tacho actions.
package buttons

import (
	"fmt"
	"sync"
	"time"
)

type Button int

const (
	Stopwatch Button = iota
	Record
	Page
	buttonCount
)

func (b Button) String() string {
	switch b {
	case Stopwatch:
		return "stopwatch"
	case Record:
		return "record"
	case Page:
		return "page"
	}
	return fmt.Sprintf("button(%d)", int(b))
}

type Kind int

const (
	Short Kind = iota
	Long
)

func (k Kind) String() string {
	if k == Long {
		return "long"
	}
	return "short"
}

type Event struct {
	Button Button
	Kind   Kind
}

type buttonState struct {
	down     bool
	since    time.Time
	lastEdge time.Time
	longSent bool
}

// Detector classifies presses. A long press fires while the button is
// still held; its release then produces nothing. Releasing earlier gives a
// short press. Edges closer than the debounce time to the previous edge of
// the same button are ignored.
type Detector struct {
	longPress time.Duration
	debounce  time.Duration

	mu  sync.Mutex
	btn [buttonCount]buttonState
}

func NewDetector(longPress, debounce time.Duration) *Detector {
	if longPress <= 0 {
		longPress = time.Second
	}
	return &Detector{longPress: longPress, debounce: debounce}
}

// Edge records a press (down) or release of b at the given time.
func (d *Detector) Edge(b Button, down bool, at time.Time) (Event, bool) {
	if b < 0 || b >= buttonCount {
		return Event{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &d.btn[b]
	if !s.lastEdge.IsZero() && at.Sub(s.lastEdge) < d.debounce {
		return Event{}, false
	}
	s.lastEdge = at
	if down == s.down {
		return Event{}, false
	}
	s.down = down
	if down {
		s.since = at
		s.longSent = false
		return Event{}, false
	}
	if s.longSent {
		return Event{}, false
	}
	if at.Sub(s.since) >= d.longPress {
		return Event{Button: b, Kind: Long}, true
	}
	return Event{Button: b, Kind: Short}, true
}

// Poll returns long presses for buttons held past the long press time.
func (d *Detector) Poll(now time.Time) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Event
	for i := range d.btn {
		s := &d.btn[i]
		if s.down && !s.longSent && now.Sub(s.since) >= d.longPress {
			s.longSent = true
			out = append(out, Event{Button: Button(i), Kind: Long})
		}
	}
	return out
}
