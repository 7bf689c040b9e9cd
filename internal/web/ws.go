package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
	"github.com/ChriR/GPS-Speedo-Logger/internal/tracklog"
)

var upgrader = websocket.Upgrader{
	// The UI is served from the device itself and clients are phones on its
	// own network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 5 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = wsPingPeriod + 10*time.Second
)

// LiveMessage is pushed to /ws clients on every snapshot.
type LiveMessage struct {
	Snapshot  gps.Snapshot     `json:"snapshot"`
	Record    *tracklog.Status `json:"record,omitempty"`
	Stopwatch *StopwatchState  `json:"stopwatch,omitempty"`
}

func liveMessage(opts Options, snap gps.Snapshot) LiveMessage {
	m := LiveMessage{Snapshot: snap}
	if opts.Recorder != nil {
		st := opts.Recorder.Status()
		m.Record = &st
	}
	if opts.Stopwatch != nil {
		m.Stopwatch = stopwatchState(opts.Stopwatch)
	}
	return m
}

// snapshotsWS streams the current snapshot and every later one. Messages
// from the client are read only to notice when it goes away.
func snapshotsWS(opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		snaps, unsubscribe := opts.Tacho.Subscribe()
		defer unsubscribe()

		closed := make(chan struct{})
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(snap gps.Snapshot) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(liveMessage(opts, snap)) == nil
		}
		if !send(opts.Tacho.Snapshot()) {
			return
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-closed:
				return
			case snap, ok := <-snaps:
				if !ok || !send(snap) {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	})
}
