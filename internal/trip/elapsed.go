package trip

import (
	"fmt"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
)

// Elapsed is a span of whole seconds split into days, hours, minutes and
// seconds.
type Elapsed struct {
	Days    uint32 `json:"days"`
	Hours   uint8  `json:"hours"`
	Minutes uint8  `json:"minutes"`
	Seconds uint8  `json:"seconds"`
}

// Since returns now minus ref, borrowing from minutes, hours and days as
// needed. Milliseconds are ignored. A negative span (for example a time of
// day that rolled past midnight before the new date arrived) yields zero.
func Since(ref, now nmea.Time) Elapsed {
	s := int64(now.Second) - int64(ref.Second)
	m := int64(now.Minute) - int64(ref.Minute)
	h := int64(now.Hour) - int64(ref.Hour)
	d := int64(now.Day) - int64(ref.Day)

	if s < 0 {
		m--
		s += 60
	}
	if m < 0 {
		h--
		m += 60
	}
	if h < 0 {
		d--
		h += 24
	}
	if d < 0 {
		return Elapsed{}
	}
	return Elapsed{Days: uint32(d), Hours: uint8(h), Minutes: uint8(m), Seconds: uint8(s)}
}

// TotalSeconds returns the span in seconds.
func (e Elapsed) TotalSeconds() uint64 {
	return ((uint64(e.Days)*24+uint64(e.Hours))*60+uint64(e.Minutes))*60 + uint64(e.Seconds)
}

// Duration returns the span as a time.Duration.
func (e Elapsed) Duration() time.Duration {
	return time.Duration(e.TotalSeconds()) * time.Second
}

func (e Elapsed) String() string {
	if e.Days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", e.Days, e.Hours, e.Minutes, e.Seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", e.Hours, e.Minutes, e.Seconds)
}
