package tracklog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

var (
	// ErrNotRecording is returned by Stop and Mark when no log is open.
	ErrNotRecording = errors.New("tracklog: not recording")
	// ErrNoSnapshot is returned by Mark before any receiver data arrived.
	ErrNoSnapshot = errors.New("tracklog: no data yet")
)

type Config struct {
	Dir       string
	Interval  time.Duration
	AutoStart bool
	Debug     bool
}

// Status describes the recorder for the web API and display.
type Status struct {
	Requested bool   `json:"requested"`
	Recording bool   `json:"recording"`
	TrackPath string `json:"track_path,omitempty"`
	EventPath string `json:"event_path,omitempty"`
	Rows      uint64 `json:"rows"`
	Events    uint64 `json:"events"`
	LastError string `json:"last_error,omitempty"`
}

// Recorder writes track and event CSV files from gps snapshots. A requested
// recording only opens its files once the receiver has had a fix, so file
// names carry the receiver's date and time.
type Recorder struct {
	cfg Config

	mu       sync.Mutex
	want     bool
	track    *csvFile
	events   *csvFile
	lastDist uint32
	lastRow  time.Time
	pending  trip.ChangeFlags
	last     *gps.Snapshot
	lastErr  string
}

func New(cfg Config) *Recorder {
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Recorder{cfg: cfg, want: cfg.AutoStart}
}

// Run consumes snapshots until ctx is done, then closes any open log.
func (r *Recorder) Run(ctx context.Context, snaps <-chan gps.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			if err := r.Stop(); err != nil && !errors.Is(err, ErrNotRecording) {
				log.Printf("tracklog: close failed: %v", err)
			}
			return
		case s := <-snaps:
			r.Handle(s)
		}
	}
}

// Handle folds one snapshot into the log.
func (r *Recorder) Handle(s gps.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &s
	r.pending |= s.Flags

	if r.want && r.track == nil && s.Status.HasFix {
		if err := r.openLocked(s); err != nil {
			r.lastErr = err.Error()
			r.want = false
			log.Printf("tracklog: start failed: %v", err)
			return
		}
	}
	if r.track == nil {
		return
	}

	due := s.At.Sub(r.lastRow) >= r.cfg.Interval
	if !due && !(r.cfg.Debug && r.pending != 0) {
		return
	}
	if err := r.track.write(Row(s.Fix, s.Trip, r.deltaLocked(s.Trip.Distance), r.pending, r.cfg.Debug)); err != nil {
		r.lastErr = err.Error()
		return
	}
	if err := r.track.flush(); err != nil {
		r.lastErr = err.Error()
	}
	r.pending = 0
	r.lastRow = s.At
}

// deltaLocked returns the distance since the previous row. A trip reset
// in between restarts the count from zero.
func (r *Recorder) deltaLocked(dist uint32) uint32 {
	d := dist
	if dist >= r.lastDist {
		d = dist - r.lastDist
	}
	r.lastDist = dist
	return d
}

func (r *Recorder) openLocked(s gps.Snapshot) error {
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	stamp := fileStamp(s)
	track, err := createCSV(filepath.Join(r.cfg.Dir, "track_"+stamp+".csv"))
	if err != nil {
		return err
	}
	events, err := createCSV(filepath.Join(r.cfg.Dir, "events_"+stamp+".csv"))
	if err != nil {
		_ = track.close()
		return err
	}
	r.track, r.events = track, events
	r.lastDist = s.Trip.Distance
	r.lastRow = time.Time{}
	r.pending = 0
	r.lastErr = ""
	log.Printf("tracklog: recording track=%s events=%s", track.path, events.path)
	return nil
}

// fileStamp is YYMMDD_HHMMSS of the receiver clock.
func fileStamp(s gps.Snapshot) string {
	if t := s.Status.GPSTime; t != nil {
		return t.Format("060102_150405")
	}
	d, t := s.Fix.Date, s.Fix.Time
	return fmt.Sprintf("%02d%02d%02d_%02d%02d%02d", d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second)
}

// Start requests recording. Files are opened with the next snapshot that
// has a fix.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.want = true
}

// Stop ends the recording and closes both files.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wasRequested := r.want
	r.want = false
	if r.track == nil {
		if wasRequested {
			return nil
		}
		return ErrNotRecording
	}
	err := errors.Join(r.track.close(), r.events.close())
	log.Printf("tracklog: stopped track=%s rows=%d", r.track.path, r.track.rows)
	r.track, r.events = nil, nil
	return err
}

// Toggle starts a stopped recorder and stops a running one. It returns the
// new requested state.
func (r *Recorder) Toggle() (bool, error) {
	r.mu.Lock()
	want := r.want || r.track != nil
	r.mu.Unlock()
	if want {
		return false, r.Stop()
	}
	r.Start()
	return true, nil
}

// Mark writes the latest snapshot to the event file.
func (r *Recorder) Mark() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		return ErrNotRecording
	}
	if r.last == nil {
		return ErrNoSnapshot
	}
	s := r.last
	// Events carry the distance since the last track row without consuming it.
	dist := s.Trip.Distance
	if dist >= r.lastDist {
		dist -= r.lastDist
	}
	if err := r.events.write(Row(s.Fix, s.Trip, dist, s.Flags, r.cfg.Debug)); err != nil {
		return err
	}
	return r.events.flush()
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{Requested: r.want, Recording: r.track != nil, LastError: r.lastErr}
	if r.track != nil {
		st.TrackPath = r.track.path
		st.EventPath = r.events.path
		st.Rows = r.track.rows
		st.Events = r.events.rows
	}
	return st
}
