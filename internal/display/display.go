package display

import (
	"context"
	"log"
	"sync"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
)

// Sink shows frames. SetMode is only called when the mode changes.
type Sink interface {
	Show(f Frame) error
	SetMode(m Mode) error
	Close() error
}

// Frame is one rendered page.
type Frame struct {
	Page  Page                   `json:"page"`
	Mode  Mode                   `json:"mode"`
	View  View                   `json:"view"`
	Lines []string               `json:"lines"`
	Image *image1bit.VerticalLSB `json:"-"`
}

type Config struct {
	Interval time.Duration
	DimAfter time.Duration
	OffAfter time.Duration
}

// Display cycles pages and drives a Sink from gps snapshots.
type Display struct {
	cfg        Config
	sink       Sink
	indicators func() Indicators
	now        func() time.Time

	mu        sync.Mutex
	page      Page
	mode      Mode
	lastInput time.Time
	snap      gps.Snapshot
	lastErr   string
}

// New returns a display showing the first page. indicators may be nil.
func New(cfg Config, sink Sink, indicators func() Indicators) *Display {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if indicators == nil {
		indicators = func() Indicators { return Indicators{} }
	}
	d := &Display{cfg: cfg, sink: sink, indicators: indicators, now: time.Now}
	d.lastInput = d.now()
	return d
}

// Wake restarts the inactivity timers. It reports whether the panel was
// off, in which case the button press that woke it should be ignored.
func (d *Display) Wake() (wasOff bool) {
	d.mu.Lock()
	wasOff = d.mode == ModeOff
	changed := d.mode != ModeOn
	d.mode = ModeOn
	d.lastInput = d.now()
	d.mu.Unlock()
	if changed {
		if err := d.sink.SetMode(ModeOn); err != nil {
			d.setError(err)
		}
		d.refresh()
	}
	return wasOff
}

// NextPage advances to the following page and redraws.
func (d *Display) NextPage() Page {
	d.mu.Lock()
	d.page = d.page.Next()
	p := d.page
	d.mu.Unlock()
	d.refresh()
	return p
}

func (d *Display) Page() Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

func (d *Display) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Update stores the latest snapshot. It is drawn on the next tick.
func (d *Display) Update(s gps.Snapshot) {
	d.mu.Lock()
	d.snap = s
	d.mu.Unlock()
}

// Run redraws every interval until ctx is done.
func (d *Display) Run(ctx context.Context, snaps <-chan gps.Snapshot) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	defer func() {
		if err := d.sink.Close(); err != nil {
			log.Printf("display: close failed: %v", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-snaps:
			d.Update(s)
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick applies the timers and redraws unless the panel is off.
func (d *Display) tick() {
	d.mu.Lock()
	next := nextMode(d.mode, d.now().Sub(d.lastInput), d.cfg.DimAfter, d.cfg.OffAfter)
	changed := next != d.mode
	d.mode = next
	d.mu.Unlock()
	if changed {
		log.Printf("display: mode=%s", next)
		if err := d.sink.SetMode(next); err != nil {
			d.setError(err)
		}
	}
	d.refresh()
}

func (d *Display) refresh() {
	d.mu.Lock()
	if d.mode == ModeOff {
		d.mu.Unlock()
		return
	}
	v := View{Snapshot: d.snap, Indicators: d.indicators()}
	f := Frame{Page: d.page, Mode: d.mode, View: v}
	d.mu.Unlock()

	f.Lines = Lines(f.Page, v)
	f.Image = Render(f.Page, v)
	if err := d.sink.Show(f); err != nil {
		d.setError(err)
	}
}

// setError logs a sink failure once until it changes.
func (d *Display) setError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err.Error() == d.lastErr {
		return
	}
	d.lastErr = err.Error()
	log.Printf("display: %v", err)
}
