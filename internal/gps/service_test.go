package gps

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

// epoch is one second of receiver output. VTG goes last so the position of
// an epoch is complete as soon as the next '$' arrives.
func epoch(clock, lat, alt string) string {
	return sentence("GPRMC,"+clock+",A,"+lat+",N,01131.000,E,000.0,000.0,191026,,") +
		sentence("GPGGA,"+clock+","+lat+",N,01131.000,E,1,08,0.9,"+alt+",M,46.9,M,,") +
		sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1") +
		sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
}

// sirfEpoch sends GGA and GSA before RMC, so the first 3D fix is seen before
// the date of the epoch.
func sirfEpoch(clock, date, lat string) string {
	return sentence("GPGGA,"+clock+","+lat+",N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,") +
		sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1") +
		sentence("GPRMC,"+clock+",A,"+lat+",N,01131.000,E,000.0,000.0,"+date+",,") +
		sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
}

func newTestService(t *testing.T, cfg Config) (*Service, *queue, time.Time) {
	t.Helper()
	q := &queue{}
	s, err := New(cfg, q)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t0 := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	s.st.started = t0
	s.st.lastSentence = t0
	return s, q, t0
}

func TestNew_Defaults(t *testing.T) {
	s, _, _ := newTestService(t, Config{})
	if s.cfg.Tick != DefaultTick || s.cfg.StaleAfter != DefaultStaleAfter {
		t.Fatalf("cfg=%+v", s.cfg)
	}
	if s.Thresholds() != trip.DefaultThresholds() {
		t.Fatalf("thresholds=%+v", s.Thresholds())
	}
	snap := s.Snapshot()
	if snap.Seq != 1 || snap.Fix.PDOP != nmea.DOPInvalid || snap.Fix.Lat.Hemisphere != nmea.HemisphereUnset {
		t.Fatalf("initial snapshot=%+v", snap)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
	if _, err := New(Config{Talker: "GPS"}, &queue{}); err == nil {
		t.Fatalf("expected error for bad talker")
	}
	if _, err := New(Config{Thresholds: trip.Thresholds{DOP: 0, Distance: 1, Altitude: 1}}, &queue{}); err == nil {
		t.Fatalf("expected error for bad thresholds")
	}
}

func TestStep_FirstFixStartsTrip(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})

	q.push([]byte(epoch("100000", "4807.0380", "545.4")))
	s.step(t0.Add(3 * time.Second))

	snap := s.Snapshot()
	if !snap.Status.HasFix || snap.Status.TTFFSec != 3 {
		t.Fatalf("status=%+v", snap.Status)
	}
	if snap.Status.Sentences != 3 {
		t.Fatalf("sentences=%d", snap.Status.Sentences)
	}
	if snap.Fix.Lat != (nmea.Coordinate{Hemisphere: nmea.North, Deg: 48, Frac: 11730}) {
		t.Fatalf("lat=%+v", snap.Fix.Lat)
	}
	if snap.Trip.Reference.Lat != snap.Fix.Lat || snap.Trip.Reference.Altitude != 5454 {
		t.Fatalf("trip not based on first fix: %+v", snap.Trip.Reference)
	}
	if snap.Trip.Distance != 0 || snap.Trip.Climb != 0 {
		t.Fatalf("trip=%+v", snap.Trip)
	}
	if snap.Flags != 0 {
		t.Fatalf("flags=%q", snap.Flags)
	}
	want := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	if snap.Status.GPSTime == nil || !snap.Status.GPSTime.Equal(want) {
		t.Fatalf("gps time=%v", snap.Status.GPSTime)
	}
}

func TestStep_AccumulatesDistance(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.push([]byte(epoch("100000", "4807.0380", "545.4")))
	s.step(t0.Add(time.Second))
	q.push([]byte(epoch("100010", "4807.0650", "547.4")))
	s.step(t0.Add(11 * time.Second))

	snap := s.Snapshot()
	if snap.Trip.Distance < 495 || snap.Trip.Distance > 505 {
		t.Fatalf("distance=%d", snap.Trip.Distance)
	}
	if snap.Trip.Climb != 20 {
		t.Fatalf("climb=%d", snap.Trip.Climb)
	}
	if snap.Trip.AvgSpeed != 180 {
		t.Fatalf("avg speed=%d", snap.Trip.AvgSpeed)
	}
	if snap.Trip.Speed != 102 {
		t.Fatalf("speed=%d", snap.Trip.Speed)
	}
	if snap.Flags != trip.Coordinates|trip.Travelled|trip.Climbed {
		t.Fatalf("flags=%q", snap.Flags)
	}
}

func TestStep_DateAfterFirstFix(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.push([]byte(sirfEpoch("100000", "191026", "4807.0380")))
	s.step(t0.Add(time.Second))
	q.push([]byte(sirfEpoch("100010", "191026", "4807.0650")))
	s.step(t0.Add(11 * time.Second))

	tr := s.Snapshot().Trip
	if tr.Elapsed != (trip.Elapsed{Seconds: 10}) {
		t.Fatalf("elapsed=%s", tr.Elapsed)
	}
	if tr.AvgSpeed != 180 {
		t.Fatalf("avg speed=%d distance=%d", tr.AvgSpeed, tr.Distance)
	}
}

func TestStep_MidnightRollover(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.push([]byte(sirfEpoch("235955", "191026", "4807.0380")))
	s.step(t0.Add(time.Second))

	// The GGA of the first epoch after midnight precedes the new date. It is
	// evaluated once the GSA behind it starts.
	q.push([]byte(sentence("GPGGA,000005,4807.0650,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,") +
		sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1")))
	s.step(t0.Add(10 * time.Second))
	if e := s.Snapshot().Trip.Elapsed; e != (trip.Elapsed{Seconds: 10}) {
		t.Fatalf("elapsed after gga=%s", e)
	}

	q.push([]byte(sentence("GPRMC,000005,A,4807.0650,N,01131.000,E,000.0,000.0,201026,,") + "$"))
	s.step(t0.Add(11 * time.Second))
	tr := s.Snapshot().Trip
	if tr.Elapsed != (trip.Elapsed{Seconds: 10}) {
		t.Fatalf("elapsed after rmc=%s", tr.Elapsed)
	}
	if tr.AvgSpeed != 180 {
		t.Fatalf("avg speed=%d distance=%d", tr.AvgSpeed, tr.Distance)
	}
}

func TestStep_ThresholdsReadFresh(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.push([]byte(epoch("100000", "4807.0380", "545.4")))
	s.step(t0.Add(time.Second))

	// 2.5 PDOP is now above the ceiling.
	if err := s.SetThresholds(trip.Thresholds{DOP: 20, Distance: 25, Altitude: 15}); err != nil {
		t.Fatalf("SetThresholds() error: %v", err)
	}
	q.push([]byte(epoch("100010", "4807.0650", "547.4")))
	s.step(t0.Add(11 * time.Second))
	if d := s.Snapshot().Trip.Distance; d != 0 {
		t.Fatalf("distance=%d", d)
	}
}

func TestSetThresholds_Rejects(t *testing.T) {
	s, _, _ := newTestService(t, Config{})
	if err := s.SetThresholds(trip.Thresholds{DOP: 255, Distance: 25, Altitude: 15}); err == nil {
		t.Fatalf("expected error")
	}
	if s.Thresholds() != trip.DefaultThresholds() {
		t.Fatalf("thresholds changed: %+v", s.Thresholds())
	}
}

func TestStep_StaleReceiverResets(t *testing.T) {
	s, q, t0 := newTestService(t, Config{StaleAfter: 5 * time.Second})
	q.push([]byte(epoch("100000", "4807.0380", "545.4")))
	s.step(t0.Add(time.Second))
	seq := s.Snapshot().Seq

	s.step(t0.Add(5 * time.Second))
	if s.Snapshot().Seq != seq {
		t.Fatalf("published without change")
	}

	s.step(t0.Add(6 * time.Second))
	snap := s.Snapshot()
	if snap.Status.Receiving {
		t.Fatalf("expected receiver marked silent")
	}
	if snap.Fix.Lat.Hemisphere != nmea.HemisphereUnset || snap.Fix.PDOP != nmea.DOPInvalid {
		t.Fatalf("fix not reset: %+v", snap.Fix)
	}
	if snap.Trip.Altitude != 0 || snap.Trip.Lat.Hemisphere != nmea.HemisphereUnset {
		t.Fatalf("trip not reset: %+v", snap.Trip)
	}
	if !snap.Status.HasFix {
		t.Fatalf("time to first fix must survive a stale reset")
	}

	// The next usable fix rebases the trip again instead of counting a climb
	// from zero altitude.
	q.push([]byte("$" + epoch("100100", "4807.0380", "545.4")))
	s.step(t0.Add(7 * time.Second))
	snap = s.Snapshot()
	if !snap.Status.Receiving || snap.Trip.Climb != 0 || snap.Trip.Reference.Altitude != 5454 {
		t.Fatalf("after resume: status=%+v trip=%+v", snap.Status, snap.Trip)
	}
}

func TestResetTrip(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.push([]byte(epoch("100000", "4807.0380", "545.4")))
	s.step(t0.Add(time.Second))
	q.push([]byte(epoch("100010", "4807.0650", "547.4")))
	s.step(t0.Add(11 * time.Second))
	if s.Snapshot().Trip.Distance == 0 {
		t.Fatalf("expected distance before reset")
	}

	s.ResetTrip()
	tr := s.Snapshot().Trip
	if tr.Distance != 0 || tr.Climb != 0 || tr.MaxSpeed != 0 {
		t.Fatalf("trip=%+v", tr)
	}
	if tr.Reference.Lat.Frac != 11775 {
		t.Fatalf("reference=%+v", tr.Reference.Lat)
	}
}

func TestSubscribe_MergesSkippedFlags(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	ch, cancel := s.Subscribe()
	defer cancel()

	q.push([]byte(epoch("100000", "4807.0380", "545.4")))
	s.step(t0.Add(time.Second))
	q.push([]byte(epoch("100010", "4807.0650", "545.4")))
	s.step(t0.Add(11 * time.Second))
	q.push([]byte(epoch("100020", "4807.0650", "565.4")))
	s.step(t0.Add(21 * time.Second))

	snap := <-ch
	if snap.Seq != s.Snapshot().Seq {
		t.Fatalf("got seq %d want latest %d", snap.Seq, s.Snapshot().Seq)
	}
	if snap.Flags&trip.Travelled == 0 || snap.Flags&trip.Climbed == 0 {
		t.Fatalf("flags=%q", snap.Flags)
	}

	cancel()
	q.push([]byte(epoch("100030", "4807.0650", "565.4")))
	s.step(t0.Add(31 * time.Second))
	select {
	case <-ch:
		t.Fatalf("received after unsubscribe")
	default:
	}
}

func TestStep_CountsRejectedInput(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.push([]byte(sentence("GNGGA,100000,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")))
	q.push([]byte("$" + strings.Repeat("X", 200) + "$"))
	s.step(t0.Add(time.Second))

	st := s.Snapshot().Status
	if st.Sentences != 0 || st.Overflows != 1 || st.Unrecognized < 1 {
		t.Fatalf("status=%+v", st)
	}
}

func TestStep_SourceEnded(t *testing.T) {
	s, q, t0 := newTestService(t, Config{})
	q.fail(io.EOF)
	s.step(t0.Add(time.Second))
	if got := s.Snapshot().Status.LastError; got != "gps source ended" {
		t.Fatalf("last error=%q", got)
	}
}

func TestStreamSource(t *testing.T) {
	r, w := io.Pipe()
	var captured []string
	done := make(chan struct{})
	src := NewStreamSource(r, func(_ time.Time, data []byte) {
		captured = append(captured, string(data))
		if len(captured) == 2 {
			close(done)
		}
	})

	_, _ = w.Write([]byte("$GPGGA"))
	_, _ = w.Write([]byte(",1"))
	<-done
	if got := drain(src); got != "$GPGGA,1" {
		t.Fatalf("drained %q", got)
	}
	if _, err := src.ReadByte(); err != ErrNoData {
		t.Fatalf("err=%v", err)
	}

	_ = w.Close()
	deadline := time.Now().Add(2 * time.Second)
	for src.Err() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := src.ReadByte(); err != io.EOF {
		t.Fatalf("err after writer close=%v", err)
	}
	_ = src.Close()
}

func TestQueue_DropsOldest(t *testing.T) {
	q := &queue{}
	q.push(make([]byte, maxQueued))
	q.push([]byte("ab"))
	if q.Dropped() != 2 {
		t.Fatalf("dropped=%d", q.Dropped())
	}
	var last byte
	for q.Available() {
		last, _ = q.ReadByte()
	}
	if last != 'b' {
		t.Fatalf("last=%q", last)
	}
}
