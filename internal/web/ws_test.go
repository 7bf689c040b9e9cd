package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ChriR/GPS-Speedo-Logger/internal/tracklog"
)

func TestWS_StreamsSnapshots(t *testing.T) {
	tacho := newFakeTacho()
	rec := &fakeRecorder{st: tracklog.Status{Recording: true}}
	ts := httptest.NewServer(Handler(Options{Tacho: tacho, Recorder: rec}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first LiveMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if first.Snapshot.Seq != 7 || first.Record == nil || !first.Record.Recording || first.Stopwatch != nil {
		t.Fatalf("first=%+v", first)
	}

	next := tacho.Snapshot()
	next.Seq = 8
	next.Trip.Speed = 250
	tacho.subs <- next

	var second LiveMessage
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.Snapshot.Seq != 8 || second.Snapshot.Trip.Speed != 250 {
		t.Fatalf("second=%+v", second.Snapshot)
	}
}
