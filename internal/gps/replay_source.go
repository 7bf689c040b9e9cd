package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/replay"
)

// ReplayConfig selects a capture to play back instead of a live receiver.
type ReplayConfig struct {
	Path  string
	Speed float64
	Loop  bool
	// TextGap spaces the lines of a plain NMEA text log.
	TextGap time.Duration
}

// ReplaySource feeds a recorded capture through the same intake as a live
// port. When playback ends without Loop, ReadByte reports io.EOF once the
// remaining bytes are drained.
type ReplaySource struct {
	queue
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OpenReplay loads cfg.Path and starts playback.
func OpenReplay(ctx context.Context, cfg ReplayConfig, sleeper replay.Sleeper) (*ReplaySource, error) {
	gap := cfg.TextGap
	if gap <= 0 {
		gap = 100 * time.Millisecond
	}
	chunks, err := replay.Load(cfg.Path, gap)
	if err != nil {
		return nil, fmt.Errorf("replay load %s: %w", cfg.Path, err)
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = 1
	}
	return startReplay(ctx, chunks, speed, cfg.Loop, sleeper, cfg.Path), nil
}

func startReplay(ctx context.Context, chunks []replay.Chunk, speed float64, loop bool, sleeper replay.Sleeper, name string) *ReplaySource {
	childCtx, cancel := context.WithCancel(ctx)
	s := &ReplaySource{cancel: cancel}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("tacho: replay path=%s chunks=%d speed=%g loop=%t", name, len(chunks), speed, loop)
		err := replay.Play(childCtx, chunks, speed, loop, sleeper, func(data []byte) error {
			s.push(data)
			return nil
		})
		switch {
		case err == nil:
			s.fail(io.EOF)
		case errors.Is(err, context.Canceled):
			s.fail(io.EOF)
		default:
			s.fail(err)
		}
	}()
	return s
}

func (s *ReplaySource) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}
