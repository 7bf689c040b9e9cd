package gps

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type noSleep struct{}

func (noSleep) Sleep(context.Context, time.Duration) error { return nil }

func waitEnded(t *testing.T, q interface{ Err() error }) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for q.Err() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("replay did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReplaySource_FeedsService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.nmea")
	text := epoch("100000", "4807.0380", "545.4") + epoch("100010", "4807.0650", "545.4") + "$"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenReplay(context.Background(), ReplayConfig{Path: path}, noSleep{})
	if err != nil {
		t.Fatalf("OpenReplay() error: %v", err)
	}
	defer src.Close()
	waitEnded(t, src)

	s, err := New(Config{Source: "replay"}, src)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	s.step(time.Now())

	snap := s.Snapshot()
	if snap.Status.Sentences != 8 {
		t.Fatalf("sentences=%d", snap.Status.Sentences)
	}
	if d := snap.Trip.Distance; d < 495 || d > 505 {
		t.Fatalf("distance=%d", d)
	}
	if snap.Status.LastError != "gps source ended" {
		t.Fatalf("last error=%q", snap.Status.LastError)
	}
	if _, err := src.ReadByte(); err != io.EOF {
		t.Fatalf("err=%v", err)
	}
}

func TestOpenReplay_MissingFile(t *testing.T) {
	if _, err := OpenReplay(context.Background(), ReplayConfig{Path: filepath.Join(t.TempDir(), "nope")}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
