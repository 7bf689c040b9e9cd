package web

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogBuffer keeps the last lines written to it for /api/logs. Install it
// with log.SetOutput(io.MultiWriter(os.Stderr, buf)).
type LogBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial string
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{max: maxLines}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.partial + string(p)
	parts := strings.Split(data, "\n")
	// The last element is empty or an unterminated line.
	b.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		b.lines = append(b.lines, line)
	}
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append([]string(nil), b.lines[over:]...)
		b.dropped += uint64(over)
	}
	return len(p), nil
}

// Tail returns up to n of the newest lines and the count of lines dropped
// so far.
func (b *LogBuffer) Tail(n int) ([]string, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.lines) {
		n = len(b.lines)
	}
	return append([]string(nil), b.lines[len(b.lines)-n:]...), b.dropped
}

type LogsResponse struct {
	NowUTC  string   `json:"now_utc"`
	Dropped uint64   `json:"dropped"`
	Lines   []string `json:"lines"`
}

// Handler serves GET /api/logs?tail=N, 200 lines by default.
func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		tail := 200
		if s := r.URL.Query().Get("tail"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "tail must be a positive integer", http.StatusBadRequest)
				return
			}
			tail = n
		}
		lines, dropped := b.Tail(tail)
		if lines == nil {
			lines = []string{}
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, LogsResponse{
			NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
			Dropped: dropped,
			Lines:   lines,
		})
	})
}
