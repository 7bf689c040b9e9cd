package tracklog

import (
	"reflect"
	"testing"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

func sampleFix() (nmea.RawFix, trip.Stats) {
	fix := nmea.RawFix{
		Quality:     nmea.QualityGPS,
		Type:        nmea.Fix3D,
		Date:        nmea.Date{Day: 19, Month: 10, Year: 26},
		Altitude:    5454,
		GeoidHeight: 469,
		PDOP:        25,
		SatsInFix:   8,
	}
	st := trip.Stats{
		Speed:    102,
		Altitude: 5454,
		Lat:      nmea.Coordinate{Hemisphere: nmea.North, Deg: 48, Frac: 11730},
		Lon:      nmea.Coordinate{Hemisphere: nmea.East, Deg: 11, Frac: 51667},
		Time:     nmea.Time{Hour: 10, Minute: 0, Second: 7, Millisecond: 250},
	}
	return fix, st
}

func TestRow(t *testing.T) {
	fix, st := sampleFix()
	got := Row(fix, st, 500, trip.Coordinates|trip.Travelled|trip.Climbed, true)
	want := []string{"2026/10/19", "10:00:07.2", "48.11730", "N", "011.51667", "E", "0545.4", "0046.9", "010.2", "0050.0", "08", "02.5", "1/3", "[CD+]", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("row=%q\nwant %q", got, want)
	}
}

func TestRow_WithoutDebug(t *testing.T) {
	fix, st := sampleFix()
	got := Row(fix, st, 0, trip.Coordinates, false)
	if len(got) != 14 || got[12] != "1/3" || got[13] != "" {
		t.Fatalf("row=%q", got)
	}
}

func TestRow_NegativeAltitude(t *testing.T) {
	fix, st := sampleFix()
	st.Altitude = -123
	fix.GeoidHeight = -5
	got := Row(fix, st, 0, 0, false)
	if got[6] != "-0012.3" || got[7] != "-0000.5" {
		t.Fatalf("alt=%q height=%q", got[6], got[7])
	}
}
