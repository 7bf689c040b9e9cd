package display

import (
	"fmt"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
)

type Page int

const (
	PageSpeed Page = iota
	PageAltitude
	PageDistance
	PagePosition
	PageSatellites
	pageCount
)

var pageNames = [...]string{"speed", "altitude", "distance", "position", "satellites"}

func (p Page) String() string {
	if p < 0 || p >= pageCount {
		return fmt.Sprintf("page(%d)", int(p))
	}
	return pageNames[p]
}

func (p Page) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Next returns the following page, wrapping after the last one.
func (p Page) Next() Page {
	return (p + 1) % pageCount
}

// Indicators are the values shown next to the fix that the gps service
// does not own.
type Indicators struct {
	Stopwatch        time.Duration `json:"stopwatch"`
	StopwatchRunning bool          `json:"stopwatch_running"`
	Recording        bool          `json:"recording"`
}

// View is everything a page renders.
type View struct {
	Snapshot   gps.Snapshot `json:"snapshot"`
	Indicators Indicators   `json:"indicators"`
}

// Lines returns the text rows of a page. The satellites page adds a bar
// chart below its single row.
func Lines(p Page, v View) []string {
	s := v.Snapshot
	st := s.Trip
	fix := s.Fix
	if !s.Status.HasFix && p != PageSatellites && p != PagePosition {
		return []string{header(v), "Waiting for fix", fmt.Sprintf("Sats %d/%d", fix.SatsInFix, fix.SatsInView)}
	}
	switch p {
	case PageSpeed:
		return []string{
			header(v),
			fmt.Sprintf("%s km/h", tenths(int64(st.Speed))),
			fmt.Sprintf("Avg %s Max %s", whole(int64(st.AvgSpeed)), whole(int64(st.MaxSpeed))),
			"SW " + stopwatch(v.Indicators),
		}
	case PageAltitude:
		return []string{
			header(v),
			fmt.Sprintf("Alt %s m", whole(int64(st.Altitude))),
			fmt.Sprintf("Up  %s m", whole(int64(st.Climb))),
			fmt.Sprintf("Dwn %s m", whole(int64(st.Descent))),
		}
	case PageDistance:
		return []string{
			header(v),
			distance(st.Distance),
			"Trip " + st.Elapsed.String(),
			"SW " + stopwatch(v.Indicators),
		}
	case PagePosition:
		return []string{
			header(v),
			st.Lat.String(),
			st.Lon.String(),
			fmt.Sprintf("Fix %s/%s", fix.Type, fix.Quality),
			fmt.Sprintf("P%s H%s V%s", dop(fix.PDOP), dop(fix.HDOP), dop(fix.VDOP)),
		}
	case PageSatellites:
		return []string{fmt.Sprintf("Sats view %d fix %d", fix.SatsInView, fix.SatsInFix)}
	}
	return nil
}

// header is the status row: UTC time, satellites in fix and the record
// marker.
func header(v View) string {
	s := v.Snapshot
	clock := "--:--:--"
	if s.Status.GPSTime != nil {
		clock = s.Status.GPSTime.Format("15:04:05")
	}
	rec := ""
	if v.Indicators.Recording {
		rec = " REC"
	}
	return fmt.Sprintf("%s %2dsat%s", clock, s.Fix.SatsInFix, rec)
}

func tenths(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}

// whole rounds 0.1 units to the nearest whole unit.
func whole(v int64) string {
	if v < 0 {
		return fmt.Sprintf("%d", (v-5)/10)
	}
	return fmt.Sprintf("%d", (v+5)/10)
}

// distance shows 0.1 m as km plus m.
func distance(dm uint32) string {
	m := dm / 10
	return fmt.Sprintf("%d km %03d m", m/1000, m%1000)
}

func dop(v uint8) string {
	if v == nmea.DOPInvalid {
		return "--"
	}
	return tenths(int64(v))
}

func stopwatch(ind Indicators) string {
	d := ind.Stopwatch
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	t := int(d/(100*time.Millisecond)) % 10
	mark := ""
	if ind.StopwatchRunning {
		mark = " >"
	}
	return fmt.Sprintf("%d:%02d:%02d.%d%s", h, m, s, t, mark)
}
