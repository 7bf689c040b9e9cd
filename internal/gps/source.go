package gps

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ByteSource is the non-blocking byte intake the tick loop drains.
type ByteSource interface {
	// Available reports whether ReadByte would return a byte right now.
	Available() bool
	// ReadByte returns the next byte. When nothing is buffered it returns
	// ErrNoData, or the error that ended the underlying stream.
	ReadByte() (byte, error)
}

// ErrNoData is returned by ReadByte when the source is drained but alive.
var ErrNoData = errors.New("gps: no data available")

// maxQueued bounds the intake so a stalled tick loop cannot grow memory
// without limit. The oldest bytes are dropped first.
const maxQueued = 64 * 1024

// queue is a ByteSource filled by a producer goroutine.
type queue struct {
	mu   sync.Mutex
	buf  []byte
	err  error
	drop uint64
}

func (q *queue) push(p []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, p...)
	if over := len(q.buf) - maxQueued; over > 0 {
		q.drop += uint64(over)
		q.buf = append(q.buf[:0], q.buf[over:]...)
	}
}

func (q *queue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

func (q *queue) Available() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) > 0
}

func (q *queue) ReadByte() (byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		if q.err != nil {
			return 0, q.err
		}
		return 0, ErrNoData
	}
	c := q.buf[0]
	q.buf = q.buf[1:]
	return c, nil
}

// Err returns the error that ended the producer, if any.
func (q *queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Dropped returns the number of bytes discarded because the intake was full.
func (q *queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drop
}

// CaptureFunc receives every chunk read from a source with its arrival time.
type CaptureFunc func(now time.Time, data []byte)

// StreamSource adapts a blocking reader (serial port, pipe) to ByteSource.
type StreamSource struct {
	queue
	rc      io.ReadCloser
	capture CaptureFunc
	done    chan struct{}
}

// NewStreamSource starts a goroutine reading rc until it fails or Close is
// called. capture may be nil.
func NewStreamSource(rc io.ReadCloser, capture CaptureFunc) *StreamSource {
	s := &StreamSource{rc: rc, capture: capture, done: make(chan struct{})}
	go s.run()
	return s
}

func (s *StreamSource) run() {
	defer close(s.done)
	buf := make([]byte, 256)
	for {
		n, err := s.rc.Read(buf)
		if n > 0 {
			s.push(buf[:n])
			if s.capture != nil {
				s.capture(time.Now(), buf[:n])
			}
		}
		if err != nil {
			s.fail(err)
			return
		}
	}
}

// Close closes the reader and waits for the reading goroutine to exit.
func (s *StreamSource) Close() error {
	err := s.rc.Close()
	<-s.done
	return err
}
