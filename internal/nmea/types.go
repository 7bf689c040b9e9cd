package nmea

import (
	"fmt"
	"time"
)

// DOPInvalid marks a dilution of precision value that is not available.
const DOPInvalid uint8 = 255

// MaxFixSatellites is the number of satellite slots a GSA sentence carries.
const MaxFixSatellites = 12

// Hemisphere is the N/S/E/W indicator of a coordinate. HemisphereUnset is
// used before the receiver reported anything.
type Hemisphere byte

const (
	HemisphereUnset Hemisphere = '-'
	North           Hemisphere = 'N'
	South           Hemisphere = 'S'
	East            Hemisphere = 'E'
	West            Hemisphere = 'W'
)

func (h Hemisphere) String() string { return string([]byte{byte(h)}) }

func (h Hemisphere) MarshalText() ([]byte, error) { return []byte{byte(h)}, nil }

func (h *Hemisphere) UnmarshalText(b []byte) error {
	if len(b) != 1 {
		return fmt.Errorf("nmea: invalid hemisphere %q", b)
	}
	*h = Hemisphere(b[0])
	return nil
}

// Coordinate is an angle split into whole degrees and a fraction of a degree
// scaled by 1e5. Precision is truncated to five fractional digits.
type Coordinate struct {
	Hemisphere Hemisphere `json:"hemisphere"`
	Deg        uint8      `json:"deg"`
	Frac       uint32     `json:"frac"`
}

// UnsetCoordinate returns the power-on value of a coordinate.
func UnsetCoordinate() Coordinate {
	return Coordinate{Hemisphere: HemisphereUnset}
}

// Degrees returns the coordinate as decimal degrees, negative for S and W.
func (c Coordinate) Degrees() float64 {
	v := float64(c.Deg) + float64(c.Frac)/1e5
	if c.Hemisphere == South || c.Hemisphere == West {
		return -v
	}
	return v
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d.%05d%c", c.Deg, c.Frac, c.Hemisphere)
}

// Time is a UTC time of day. Day counts days since 0001-01-01 and is only
// known once a date has been received.
type Time struct {
	Hour        uint8  `json:"hour"`
	Minute      uint8  `json:"minute"`
	Second      uint8  `json:"second"`
	Millisecond uint16 `json:"millisecond"`
	Day         uint32 `json:"day"`
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// Date is a calendar date with a two digit year counted from 2000.
type Date struct {
	Day   uint8 `json:"day"`
	Month uint8 `json:"month"`
	Year  uint8 `json:"year"`
}

// Valid reports whether the date names an existing calendar day.
func (d Date) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := d.toTime()
	return t.Day() == int(d.Day) && t.Month() == time.Month(d.Month)
}

// DayNumber returns the number of days since 0001-01-01.
func (d Date) DayNumber() uint32 {
	// Unix epoch is day 719162 of the proleptic Gregorian calendar.
	return uint32(d.toTime().Unix()/86400 + 719162)
}

func (d Date) toTime() time.Time {
	return time.Date(2000+int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("20%02d/%02d/%02d", d.Year, d.Month, d.Day)
}

// FixQuality is the GGA fix quality indicator.
type FixQuality uint8

const (
	QualityInvalid FixQuality = iota
	QualityGPS
	QualityDGPS
	QualityPPS
	QualityRTK
	QualityFloatRTK
	QualityEstimated
	QualityManual
	QualitySimulation
)

var qualityNames = [...]string{"invalid", "gps", "dgps", "pps", "rtk", "float-rtk", "estimated", "manual", "simulation"}

func (q FixQuality) String() string {
	if int(q) < len(qualityNames) {
		return qualityNames[q]
	}
	return fmt.Sprintf("quality(%d)", uint8(q))
}

// FixType is the GSA navigation mode.
type FixType uint8

const (
	FixUnknown FixType = 0
	FixNone    FixType = 1
	Fix2D      FixType = 2
	Fix3D      FixType = 3
)

func (t FixType) String() string {
	switch t {
	case FixNone:
		return "none"
	case Fix2D:
		return "2d"
	case Fix3D:
		return "3d"
	default:
		return "unknown"
	}
}

// hasSolution reports whether DOP values of a sentence are meaningful.
func (t FixType) hasSolution() bool { return t == Fix2D || t == Fix3D }

// RawFix is the latest decoded receiver state. Altitude and GeoidHeight are
// in 0.1 m, Speed in 0.1 km/h and the DOP values in 0.1 units.
type RawFix struct {
	Quality       FixQuality              `json:"quality"`
	Type          FixType                 `json:"type"`
	Time          Time                    `json:"time"`
	Date          Date                    `json:"date"`
	Lat           Coordinate              `json:"lat"`
	Lon           Coordinate              `json:"lon"`
	Altitude      int32                   `json:"altitude"`
	GeoidHeight   int32                   `json:"geoid_height"`
	Speed         uint16                  `json:"speed"`
	PDOP          uint8                   `json:"pdop"`
	HDOP          uint8                   `json:"hdop"`
	VDOP          uint8                   `json:"vdop"`
	SatsInView    uint8                   `json:"sats_in_view"`
	SatsInFix     uint8                   `json:"sats_in_fix"`
	FixSatellites [MaxFixSatellites]uint8 `json:"fix_satellites"`
	Satellites    SatelliteTable          `json:"satellites"`
}

// defaultRawFix returns the power-on receiver state.
func defaultRawFix() RawFix {
	return RawFix{
		Quality: QualityInvalid,
		Lat:     UnsetCoordinate(),
		Lon:     UnsetCoordinate(),
		PDOP:    DOPInvalid,
		HDOP:    DOPInvalid,
		VDOP:    DOPInvalid,
	}
}
