package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
	"github.com/ChriR/GPS-Speedo-Logger/internal/tracklog"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

// Tacho is the gps service as seen by the API.
type Tacho interface {
	Snapshot() gps.Snapshot
	Subscribe() (<-chan gps.Snapshot, func())
	ResetTrip()
	Thresholds() trip.Thresholds
	SetThresholds(th trip.Thresholds) error
}

// Recorder controls the CSV track log.
type Recorder interface {
	Start()
	Stop() error
	Mark() error
	Status() tracklog.Status
}

type Stopwatch interface {
	Toggle()
	Reset()
	Running() bool
	Elapsed() time.Duration
}

// Options wires the handlers. Recorder, Stopwatch and Logs may be nil;
// their endpoints then answer 404.
type Options struct {
	Tacho     Tacho
	Recorder  Recorder
	Stopwatch Stopwatch
	Logs      *LogBuffer

	// ConfigPath, when set, receives threshold changes so they survive a
	// restart.
	ConfigPath string
	// LogDir is reported with its free space in the status.
	LogDir string
}

func Handler(opts Options) http.Handler {
	started := time.Now().UTC()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, buildStatus(opts, started, time.Now().UTC()))
	})

	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, opts.Tacho.Snapshot())
	})

	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, opts.Tacho.Snapshot().Fix)
	})

	mux.HandleFunc("/api/trip", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, opts.Tacho.Snapshot().Trip)
	})

	mux.HandleFunc("/api/satellites", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		snap := opts.Tacho.Snapshot()
		writeJSON(w, SatellitesResponse{
			InView:     snap.Fix.SatsInView,
			InFix:      snap.Fix.SatsInFix,
			Satellites: snap.Satellites,
		})
	})

	mux.HandleFunc("/api/trip/reset", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		opts.Tacho.ResetTrip()
		writeJSON(w, opts.Tacho.Snapshot().Trip)
	})

	mux.Handle("/api/thresholds", thresholdsHandler(opts.Tacho, opts.ConfigPath))

	mux.HandleFunc("/api/record/", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		if opts.Recorder == nil {
			http.Error(w, "recording unavailable", http.StatusNotFound)
			return
		}
		var err error
		switch strings.TrimPrefix(r.URL.Path, "/api/record/") {
		case "start":
			opts.Recorder.Start()
		case "stop":
			err = opts.Recorder.Stop()
		case "mark":
			err = opts.Recorder.Mark()
		default:
			http.NotFound(w, r)
			return
		}
		if errors.Is(err, tracklog.ErrNotRecording) || errors.Is(err, tracklog.ErrNoSnapshot) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, opts.Recorder.Status())
	})

	mux.HandleFunc("/api/stopwatch", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		if opts.Stopwatch == nil {
			http.Error(w, "stopwatch unavailable", http.StatusNotFound)
			return
		}
		writeJSON(w, stopwatchState(opts.Stopwatch))
	})

	mux.HandleFunc("/api/stopwatch/", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		if opts.Stopwatch == nil {
			http.Error(w, "stopwatch unavailable", http.StatusNotFound)
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/api/stopwatch/") {
		case "toggle":
			opts.Stopwatch.Toggle()
		case "reset":
			opts.Stopwatch.Reset()
		default:
			http.NotFound(w, r)
			return
		}
		writeJSON(w, stopwatchState(opts.Stopwatch))
	})

	if opts.Logs != nil {
		mux.Handle("/api/logs", opts.Logs.Handler())
	}

	mux.HandleFunc("/api/about", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, about(time.Now().UTC()))
	})

	mux.Handle("/ws", snapshotsWS(opts))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, indexHTML)
	})

	return mux
}

// allow answers 405 unless r uses one of methods.
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func Serve(ctx context.Context, listenAddr string, opts Options) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

const indexHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>GPS Tacho</title>
<style>body{font-family:monospace;margin:1em}pre{font-size:1.2em}</style></head>
<body><h1>GPS Tacho</h1><pre id="out">connecting...</pre>
<script>
const out = document.getElementById("out");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (ev) => {
  const m = JSON.parse(ev.data);
  const t = m.snapshot.trip;
  out.textContent =
    "speed    " + (t.speed / 10).toFixed(1) + " km/h (avg " + (t.avg_speed / 10).toFixed(1) + ", max " + (t.max_speed / 10).toFixed(1) + ")\n" +
    "distance " + (t.distance / 10000).toFixed(3) + " km\n" +
    "altitude " + (t.altitude / 10).toFixed(1) + " m (+" + (t.climb / 10).toFixed(1) + " / -" + (t.descent / 10).toFixed(1) + ")\n" +
    "sats     " + m.snapshot.fix.sats_in_fix + "/" + m.snapshot.fix.sats_in_view + "\n" +
    "record   " + (m.record && m.record.recording ? "on" : "off");
};
ws.onclose = () => { out.textContent += "\n(disconnected)"; };
</script></body></html>
`
