package replay

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Capture format: line-oriented text.
//
//   - Blank lines and lines starting with '#' are ignored.
//   - "START" resets the origin; following offsets are relative to it.
//   - Data lines are <t_ns>,<hex> where t_ns is nanoseconds since START and
//     hex is a chunk of raw receiver bytes as it arrived from the port.
//
// Chunks are stored unframed so a replay reproduces the exact byte stream
// the decoder saw, including partial sentences split across reads.

// Chunk is one captured read. Data is nil for START markers.
type Chunk struct {
	At   time.Duration
	Data []byte
}

// Reader parses a capture.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll parses the whole capture.
func (rr *Reader) ReadAll() ([]Chunk, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	out := make([]Chunk, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			out = append(out, Chunk{})
			continue
		}
		c, err := parseChunk(line)
		if err != nil {
			return nil, fmt.Errorf("capture line %d: %w", lineNo, err)
		}
		out = append(out, c)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseChunk(line string) (Chunk, error) {
	tsStr, hexStr, ok := strings.Cut(line, ",")
	if !ok {
		return Chunk{}, fmt.Errorf("missing comma: %q", line)
	}
	tsStr = strings.TrimSpace(tsStr)
	hexStr = strings.ReplaceAll(strings.TrimSpace(hexStr), " ", "")
	if tsStr == "" || hexStr == "" {
		return Chunk{}, fmt.Errorf("empty field: %q", line)
	}
	ns, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Chunk{}, fmt.Errorf("timestamp %q: %w", tsStr, err)
	}
	if ns < 0 {
		return Chunk{}, fmt.Errorf("negative timestamp %d", ns)
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return Chunk{}, fmt.Errorf("payload: %w", err)
	}
	return Chunk{At: time.Duration(ns), Data: b}, nil
}

// ReadText turns a plain NMEA text log (one sentence per line) into chunks
// spaced gap apart. Line endings are normalized to CRLF.
func ReadText(r io.Reader, gap time.Duration) ([]Chunk, error) {
	s := bufio.NewScanner(r)
	out := []Chunk{{}}
	var at time.Duration
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		out = append(out, Chunk{At: at, Data: []byte(line + "\r\n")})
		at += gap
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Load reads path as a capture when its first meaningful line is START or a
// <t_ns>,<hex> record, and as a plain NMEA text log otherwise.
func Load(path string, textGap time.Duration) ([]Chunk, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isCapture(string(b)) {
		return NewReader(strings.NewReader(string(b))).ReadAll()
	}
	return ReadText(strings.NewReader(string(b)), textGap)
}

func isCapture(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			return true
		}
		_, err := parseChunk(line)
		return err == nil
	}
	return false
}

// Writer appends chunks to a capture file. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

// CreateWriter truncates path and writes the START marker.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

// WriteChunk records data received at now.
func (ww *Writer) WriteChunk(now time.Time, data []byte) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("capture writer is closed")
	}
	if len(data) == 0 {
		return nil
	}
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(data))
	return err
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

// Sleeper waits between chunks. Tests inject a fake.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play delivers chunks to cb with their recorded spacing divided by speed
// (2.0 plays twice as fast). START markers reset the origin. With loop set
// the capture repeats until ctx is cancelled.
func Play(ctx context.Context, chunks []Chunk, speed float64, loop bool, sleeper Sleeper, cb func(data []byte) error) error {
	if speed <= 0 {
		return fmt.Errorf("replay speed must be > 0, got %v", speed)
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(chunks) == 0 {
		return errors.New("no chunks")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}

	for {
		var origin, last time.Duration
		haveLast := false
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if c.Data == nil {
				origin = c.At
				last = 0
				haveLast = false
				continue
			}
			at := c.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				if wait := time.Duration(float64(at-last) / speed); wait > 0 {
					if err := sleeper.Sleep(ctx, wait); err != nil {
						return err
					}
				}
			}
			if err := cb(c.Data); err != nil {
				return err
			}
			last = at
			haveLast = true
		}
		if !loop {
			return nil
		}
	}
}
