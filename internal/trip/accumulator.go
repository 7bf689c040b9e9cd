package trip

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
)

// Thresholds gate accumulation against receiver jitter. DOP is in 0.1 units,
// Distance and Altitude in 0.1 m.
type Thresholds struct {
	DOP      uint8  `json:"dop" yaml:"dop"`
	Distance uint32 `json:"distance" yaml:"distance"`
	Altitude int32  `json:"altitude" yaml:"altitude"`
}

// DefaultThresholds are 5.0 PDOP, 2.5 m distance and 1.5 m altitude.
func DefaultThresholds() Thresholds {
	return Thresholds{DOP: 50, Distance: 25, Altitude: 15}
}

// Validate checks the ranges the device accepts. DOP stops at 254 because
// 255 marks an invalid DOP.
func (t Thresholds) Validate() error {
	if t.DOP < 1 || t.DOP > 254 {
		return fmt.Errorf("dop threshold must be 1..254 (0.1 units), got %d", t.DOP)
	}
	if t.Distance < 1 || t.Distance > 5000 {
		return fmt.Errorf("distance threshold must be 1..5000 (0.1 m), got %d", t.Distance)
	}
	if t.Altitude < 1 || t.Altitude > 500 {
		return fmt.Errorf("altitude threshold must be 1..500 (0.1 m), got %d", t.Altitude)
	}
	return nil
}

// ChangeFlags reports what an Update changed.
type ChangeFlags uint8

const (
	// Coordinates: a new 3D position was taken over.
	Coordinates ChangeFlags = 1 << iota
	// Travelled: the position passed the gates and distance was added.
	Travelled
	// Climbed: altitude gain was added.
	Climbed
	// Descended: altitude loss was added.
	Descended
)

// String renders the flags the way the track log debug column does.
func (f ChangeFlags) String() string {
	var sb strings.Builder
	if f&Coordinates != 0 {
		sb.WriteByte('C')
	}
	if f&Travelled != 0 {
		sb.WriteByte('D')
	}
	if f&Climbed != 0 {
		sb.WriteByte('+')
	}
	if f&Descended != 0 {
		sb.WriteByte('-')
	}
	return sb.String()
}

// Reference is the last accepted state distance and altitude changes are
// measured against.
type Reference struct {
	Lat      nmea.Coordinate `json:"lat"`
	Lon      nmea.Coordinate `json:"lon"`
	Altitude int32           `json:"altitude"`
	Time     nmea.Time       `json:"time"`
}

// Stats are the trip figures. Speeds are in 0.1 km/h, Distance, Climb,
// Descent and Altitude in 0.1 m.
type Stats struct {
	Speed    uint16          `json:"speed"`
	MaxSpeed uint16          `json:"max_speed"`
	AvgSpeed uint16          `json:"avg_speed"`
	Distance uint32          `json:"distance"`
	Climb    uint32          `json:"climb"`
	Descent  uint32          `json:"descent"`
	Altitude int32           `json:"altitude"`
	Lat      nmea.Coordinate `json:"lat"`
	Lon      nmea.Coordinate `json:"lon"`
	Time     nmea.Time       `json:"time"`
	Elapsed  Elapsed         `json:"elapsed"`

	Reference Reference `json:"reference"`
}

// Config selects accumulator behaviour.
type Config struct {
	// LegacyDistance computes distances with LegacyDistance for parity with
	// logs of the original firmware.
	LegacyDistance bool
}

// Accumulator folds RawFix updates into trip statistics. It is owned by the
// goroutine that also owns the nmea.Assembler.
type Accumulator struct {
	cfg   Config
	stats Stats
	// start is the time base of Elapsed, captured on reset.
	start nmea.Time
}

// New returns an accumulator in the power-on state.
func New(cfg Config) *Accumulator {
	a := &Accumulator{cfg: cfg}
	a.ResetAll()
	return a
}

// Stats returns a copy of the current statistics.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// ResetAll restores the power-on state: no position, zero altitude, speed
// and time, and zeroed trip counters.
func (a *Accumulator) ResetAll() {
	a.stats = Stats{
		Lat: nmea.UnsetCoordinate(),
		Lon: nmea.UnsetCoordinate(),
	}
	a.Reset()
}

// Reset zeroes distance, climb, descent and speed aggregates and rebases the
// reference on the current position, altitude and time.
func (a *Accumulator) Reset() {
	s := &a.stats
	s.Reference = Reference{Lat: s.Lat, Lon: s.Lon, Altitude: s.Altitude, Time: s.Time}
	a.start = s.Time
	s.Distance = 0
	s.Climb = 0
	s.Descent = 0
	s.MaxSpeed = 0
	s.AvgSpeed = 0
	s.Elapsed = Since(a.start, s.Time)
}

// Update folds fix into the statistics using th. Calling it again with the
// same fix accumulates nothing.
func (a *Accumulator) Update(fix nmea.RawFix, th Thresholds) ChangeFlags {
	var flags ChangeFlags
	s := &a.stats
	precise := fix.PDOP <= th.DOP

	if fix.Type == nmea.Fix3D && (fix.Lat != s.Lat || fix.Lon != s.Lon) {
		flags |= Coordinates
		s.Lat = fix.Lat
		s.Lon = fix.Lon

		ref := &s.Reference
		if ref.Lat.Hemisphere == nmea.HemisphereUnset || ref.Lon.Hemisphere == nmea.HemisphereUnset {
			// Nothing to measure against yet.
			ref.Lat, ref.Lon = s.Lat, s.Lon
		} else if d := a.distance(ref.Lat, ref.Lon, s.Lat, s.Lon); precise && d >= th.Distance {
			flags |= Travelled
			ref.Lat, ref.Lon = s.Lat, s.Lon
			s.Distance = addSat(s.Distance, d)
		}
	}

	s.Time = fix.Time
	if a.start.Day == 0 && s.Time.Day != 0 {
		a.rebaseDay()
	}

	s.Speed = fix.Speed
	if s.Speed > s.MaxSpeed {
		s.MaxSpeed = s.Speed
	}

	s.Altitude = fix.Altitude
	ref := &s.Reference
	if precise && int64(s.Altitude) > int64(ref.Altitude)+int64(th.Altitude) {
		flags |= Climbed
		s.Climb = addSat(s.Climb, uint32(int64(s.Altitude)-int64(ref.Altitude)))
		ref.Altitude = s.Altitude
	}
	if precise && int64(s.Altitude) < int64(ref.Altitude)-int64(th.Altitude) {
		flags |= Descended
		s.Descent = addSat(s.Descent, uint32(int64(ref.Altitude)-int64(s.Altitude)))
		ref.Altitude = s.Altitude
	}

	s.Elapsed = Since(a.start, s.Time)
	s.AvgSpeed = AverageSpeed(s.Distance, s.Elapsed)
	return flags
}

// rebaseDay dates a time base that was captured before the receiver sent a
// date. The base is placed on the day of the first dated time, or the day
// before when that time of day is earlier than the base.
func (a *Accumulator) rebaseDay() {
	day := a.stats.Time.Day
	if secondOfDay(a.stats.Time) < secondOfDay(a.start) && day > 0 {
		day--
	}
	a.start.Day = day
	if a.stats.Reference.Time.Day == 0 {
		a.stats.Reference.Time.Day = day
	}
}

func secondOfDay(t nmea.Time) uint32 {
	return (uint32(t.Hour)*60+uint32(t.Minute))*60 + uint32(t.Second)
}

func (a *Accumulator) distance(lat1, lon1, lat2, lon2 nmea.Coordinate) uint32 {
	if a.cfg.LegacyDistance {
		return LegacyDistance(lat1, lon1, lat2, lon2)
	}
	return Distance(lat1, lon1, lat2, lon2)
}

// AverageSpeed returns distance (0.1 m) over elapsed time in 0.1 km/h using
// integer arithmetic. Zero elapsed time yields 0.
func AverageSpeed(distance uint32, elapsed Elapsed) uint16 {
	secs := elapsed.TotalSeconds()
	if secs == 0 {
		return 0
	}
	// 0.1 m/s * 3.6 = km/h; with 0.1 km/h output: d*36/s/10.
	v := uint64(distance) * 36 / secs / 10
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

func addSat(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
