package display

import (
	"errors"
	"testing"
	"time"
)

type fakeSink struct {
	frames []Frame
	modes  []Mode
	err    error
	closed bool
}

func (s *fakeSink) Show(f Frame) error {
	s.frames = append(s.frames, f)
	return s.err
}

func (s *fakeSink) SetMode(m Mode) error {
	s.modes = append(s.modes, m)
	return s.err
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestDisplay(cfg Config) (*Display, *fakeSink, *fakeClock) {
	sink := &fakeSink{}
	clk := &fakeClock{t: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	d := New(cfg, sink, func() Indicators { return Indicators{Recording: true} })
	d.now = clk.now
	d.lastInput = clk.t
	return d, sink, clk
}

func TestDisplay_TickDrawsCurrentPage(t *testing.T) {
	d, sink, _ := newTestDisplay(Config{})
	d.Update(testView().Snapshot)
	d.tick()
	if len(sink.frames) != 1 {
		t.Fatalf("frames=%d", len(sink.frames))
	}
	f := sink.frames[0]
	if f.Page != PageSpeed || f.Image == nil || len(f.Lines) == 0 || !f.View.Indicators.Recording {
		t.Fatalf("frame=%+v", f)
	}
	if len(sink.modes) != 0 {
		t.Fatalf("unexpected mode change %v", sink.modes)
	}
}

func TestDisplay_NextPageRedraws(t *testing.T) {
	d, sink, _ := newTestDisplay(Config{})
	if p := d.NextPage(); p != PageAltitude {
		t.Fatalf("page=%s", p)
	}
	if len(sink.frames) != 1 || sink.frames[0].Page != PageAltitude {
		t.Fatalf("frames=%+v", sink.frames)
	}
}

func TestDisplay_DimOffAndWake(t *testing.T) {
	d, sink, clk := newTestDisplay(Config{DimAfter: 30 * time.Second, OffAfter: time.Minute})

	clk.t = clk.t.Add(30 * time.Second)
	d.tick()
	if d.Mode() != ModeDim {
		t.Fatalf("mode=%s", d.Mode())
	}

	clk.t = clk.t.Add(30 * time.Second)
	d.tick()
	if d.Mode() != ModeOff {
		t.Fatalf("mode=%s", d.Mode())
	}
	drawn := len(sink.frames)
	d.tick()
	if len(sink.frames) != drawn {
		t.Fatalf("drew while off")
	}

	if !d.Wake() {
		t.Fatalf("Wake() did not report the panel was off")
	}
	if d.Mode() != ModeOn || len(sink.frames) != drawn+1 {
		t.Fatalf("mode=%s frames=%d", d.Mode(), len(sink.frames))
	}
	if d.Wake() {
		t.Fatalf("second Wake() reported off")
	}
	want := []Mode{ModeDim, ModeOff, ModeOn}
	if len(sink.modes) != len(want) {
		t.Fatalf("modes=%v want %v", sink.modes, want)
	}
	for i := range want {
		if sink.modes[i] != want[i] {
			t.Fatalf("modes=%v want %v", sink.modes, want)
		}
	}
}

func TestDisplay_SinkErrorRemembered(t *testing.T) {
	d, sink, _ := newTestDisplay(Config{})
	sink.err = errors.New("i2c nack")
	d.tick()
	d.tick()
	if d.lastErr != "i2c nack" {
		t.Fatalf("lastErr=%q", d.lastErr)
	}
}
