package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

// Config controls the decoding loop. Zero values take the defaults below.
type Config struct {
	// Source labels the intake in the status ("nmea /dev/ttyACM0").
	Source string
	// Talker is the accepted two character talker ID.
	Talker string
	// Tick is the drain interval.
	Tick time.Duration
	// StaleAfter resets all values when no sentence arrived for this long.
	StaleAfter time.Duration

	Thresholds     trip.Thresholds
	LegacyDistance bool
}

const (
	DefaultTick       = 100 * time.Millisecond
	DefaultStaleAfter = 5 * time.Second
)

// Status describes the intake and loop, not the fix itself.
type Status struct {
	Source       string  `json:"source"`
	Running      bool    `json:"running"`
	Receiving    bool    `json:"receiving"`
	HasFix       bool    `json:"has_fix"`
	TTFFSec      float64 `json:"ttff_sec,omitempty"`
	Sentences    uint64  `json:"sentences"`
	Unrecognized uint64  `json:"unrecognized"`
	Overflows    uint64  `json:"overflows"`

	// GPSTime is the receiver's UTC date and time as of the last GGA.
	GPSTime *time.Time `json:"gps_time,omitempty"`

	LastError string `json:"last_error,omitempty"`
}

// Snapshot is an immutable view of the decoder and trip state. Consumers
// must not modify it.
type Snapshot struct {
	Seq  uint64      `json:"seq"`
	At   time.Time   `json:"at"`
	Fix  nmea.RawFix `json:"fix"`
	Trip trip.Stats  `json:"trip"`
	// Flags are the accumulator changes since the previous snapshot.
	Flags      trip.ChangeFlags `json:"flags"`
	Satellites []nmea.Satellite `json:"satellites"`
	Status     Status           `json:"status"`
}

type loopState struct {
	started      time.Time
	lastSentence time.Time
	stale        bool
	needRebase   bool
	hasFix       bool
	ttff         time.Duration
	sentences    uint64
	unrecognized uint64
	overflows    uint64
	flags        trip.ChangeFlags
	gpsTime      time.Time
	syncedAt     time.Time
	sourceEnded  bool
	lastErr      string
}

// Service drains a ByteSource through the assembler and accumulator on a
// single goroutine and publishes snapshots.
type Service struct {
	cfg Config
	src ByteSource

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu serializes the tick loop with trip resets from other goroutines.
	mu  sync.Mutex
	asm *nmea.Assembler
	acc *trip.Accumulator
	st  loopState
	seq uint64

	thresholds atomic.Value // trip.Thresholds
	last       atomic.Value // Snapshot

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

func New(cfg Config, src ByteSource) (*Service, error) {
	if src == nil {
		return nil, fmt.Errorf("gps source is nil")
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Thresholds == (trip.Thresholds{}) {
		cfg.Thresholds = trip.DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	asm, err := nmea.NewAssembler(cfg.Talker)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Service{
		cfg:  cfg,
		src:  src,
		asm:  asm,
		acc:  trip.New(trip.Config{LegacyDistance: cfg.LegacyDistance}),
		st:   loopState{started: now, lastSentence: now, needRebase: true},
		subs: make(map[chan Snapshot]struct{}),
	}
	s.thresholds.Store(cfg.Thresholds)
	s.publishLocked(now)
	return s, nil
}

// Start launches the tick loop. It returns immediately; Close stops it.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	now := time.Now()
	s.st.started = now
	s.st.lastSentence = now

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("tacho: gps loop started source=%q tick=%s stale_after=%s", s.cfg.Source, s.cfg.Tick, s.cfg.StaleAfter)
		t := time.NewTicker(s.cfg.Tick)
		defer t.Stop()
		for {
			select {
			case <-childCtx.Done():
				return
			case now := <-t.C:
				s.step(now)
			}
		}
	}()
	return nil
}

// Close stops the loop and closes the source when it is an io.Closer.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	if c, ok := s.src.(io.Closer); ok {
		_ = c.Close()
	}
}

// step drains every available byte and publishes when anything changed.
func (s *Service) step(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th := s.Thresholds()
	changed := false
	for s.src.Available() {
		c, err := s.src.ReadByte()
		if err != nil {
			break
		}
		r := s.asm.Feed(c)
		switch {
		case r == nmea.Incomplete:
		case r.Complete():
			s.sentenceLocked(now, r, th)
			changed = true
		case r == nmea.Overflow:
			s.st.overflows++
		default:
			s.st.unrecognized++
		}
	}

	if e, ok := s.src.(interface{ Err() error }); ok && !s.st.sourceEnded {
		if err := e.Err(); err != nil {
			s.st.sourceEnded = true
			if errors.Is(err, io.EOF) {
				s.st.lastErr = "gps source ended"
			} else {
				s.st.lastErr = fmt.Sprintf("gps read stopped: %v", err)
			}
			log.Printf("tacho: %s", s.st.lastErr)
			changed = true
		}
	}

	if !s.st.stale && now.Sub(s.st.lastSentence) >= s.cfg.StaleAfter {
		log.Printf("tacho: no sentence for %s, resetting values", now.Sub(s.st.lastSentence).Truncate(time.Millisecond))
		s.asm.Reset()
		s.acc.ResetAll()
		s.st.stale = true
		s.st.needRebase = true
		changed = true
	}

	if changed {
		s.publishLocked(now)
	}
}

func (s *Service) sentenceLocked(now time.Time, r nmea.Result, th trip.Thresholds) {
	s.st.sentences++
	s.st.lastSentence = now
	if s.st.stale {
		s.st.stale = false
		log.Printf("tacho: receiver data resumed")
	}

	fix := s.asm.Fix()
	if r == nmea.GGA && fix.Date.Valid() {
		s.st.gpsTime = fixTime(fix)
		s.st.syncedAt = now
	}

	flags := s.acc.Update(fix, th)
	if s.st.needRebase && fix.Type == nmea.Fix3D && fix.Quality != nmea.QualityInvalid {
		// The trip starts at the first usable 3D position.
		s.acc.Reset()
		flags = 0
		s.st.needRebase = false
		if !s.st.hasFix {
			s.st.hasFix = true
			s.st.ttff = now.Sub(s.st.started)
			log.Printf("tacho: first 3D fix ttff=%s lat=%s lon=%s", s.st.ttff.Truncate(100*time.Millisecond), fix.Lat, fix.Lon)
		}
	}
	s.st.flags |= flags
}

func fixTime(f nmea.RawFix) time.Time {
	return time.Date(2000+int(f.Date.Year), time.Month(f.Date.Month), int(f.Date.Day),
		int(f.Time.Hour), int(f.Time.Minute), int(f.Time.Second), int(f.Time.Millisecond)*int(time.Millisecond), time.UTC)
}

func (s *Service) statusLocked() Status {
	st := Status{
		Source:       s.cfg.Source,
		Running:      s.cancel != nil,
		Receiving:    !s.st.stale && s.st.sentences > 0,
		HasFix:       s.st.hasFix,
		Sentences:    s.st.sentences,
		Unrecognized: s.st.unrecognized,
		Overflows:    s.st.overflows,
		LastError:    s.st.lastErr,
	}
	if s.st.hasFix {
		st.TTFFSec = s.st.ttff.Seconds()
	}
	if !s.st.gpsTime.IsZero() {
		t := s.st.gpsTime
		st.GPSTime = &t
	}
	if g, ok := s.src.(interface{ LastError() string }); ok && st.LastError == "" {
		st.LastError = g.LastError()
	}
	return st
}

func (s *Service) publishLocked(now time.Time) {
	s.seq++
	fix := s.asm.Fix()
	snap := Snapshot{
		Seq:        s.seq,
		At:         now,
		Fix:        fix,
		Trip:       s.acc.Stats(),
		Flags:      s.st.flags,
		Satellites: fix.Satellites.Populated(),
		Status:     s.statusLocked(),
	}
	s.st.flags = 0
	s.last.Store(snap)
	s.broadcast(snap)
}

func (s *Service) broadcast(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the unread snapshot but keep its change flags.
		merged := snap
		select {
		case old := <-ch:
			merged.Flags |= old.Flags
		default:
		}
		ch <- merged
	}
}

// Snapshot returns the latest published state.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

// Subscribe returns a channel receiving every new snapshot. A slow reader
// only sees the latest one, with the change flags of the skipped ones
// merged in. The returned func unsubscribes.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
		})
	}
}

// ResetTrip zeroes the trip counters and rebases them on the current state.
func (s *Service) ResetTrip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc.Reset()
	log.Printf("tacho: trip reset")
	s.publishLocked(time.Now())
}

// Thresholds returns the thresholds applied to the next update.
func (s *Service) Thresholds() trip.Thresholds {
	return s.thresholds.Load().(trip.Thresholds)
}

// SetThresholds replaces the thresholds after validating them.
func (s *Service) SetThresholds(th trip.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	s.thresholds.Store(th)
	log.Printf("tacho: thresholds dop=%d distance=%d altitude=%d", th.DOP, th.Distance, th.Altitude)
	return nil
}

// Now returns the receiver-synced UTC time advanced by the local clock
// since the last GGA. ok is false before the first dated GGA.
func (s *Service) Now() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.gpsTime.IsZero() {
		return time.Time{}, false
	}
	return s.st.gpsTime.Add(time.Since(s.st.syncedAt)), true
}
