package tracklog

import (
	"fmt"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

// Row renders one log line. dist is the distance covered since the previous
// row in 0.1 m. With debug set, the DEBUG column carries the change flags.
func Row(fix nmea.RawFix, st trip.Stats, dist uint32, flags trip.ChangeFlags, debug bool) []string {
	d := fix.Date
	t := st.Time
	row := []string{
		fmt.Sprintf("20%02d/%02d/%02d", d.Year, d.Month, d.Day),
		fmt.Sprintf("%02d:%02d:%02d.%d", t.Hour, t.Minute, t.Second, t.Millisecond/100),
		fmt.Sprintf("%02d.%05d", st.Lat.Deg, st.Lat.Frac),
		st.Lat.Hemisphere.String(),
		fmt.Sprintf("%03d.%05d", st.Lon.Deg, st.Lon.Frac),
		st.Lon.Hemisphere.String(),
		signedTenths(int64(st.Altitude), 4),
		signedTenths(int64(fix.GeoidHeight), 4),
		tenths(uint64(st.Speed), 3),
		tenths(uint64(dist), 4),
		fmt.Sprintf("%02d", fix.SatsInFix),
		tenths(uint64(fix.PDOP), 2),
		fmt.Sprintf("%d/%d", fix.Quality, fix.Type),
	}
	if debug {
		row = append(row, "["+flags.String()+"]")
	}
	// Rows end with a delimiter.
	return append(row, "")
}

// tenths formats v (0.1 units) with at least intDigits integer digits.
func tenths(v uint64, intDigits int) string {
	return fmt.Sprintf("%0*d.%d", intDigits, v/10, v%10)
}

func signedTenths(v int64, intDigits int) string {
	if v < 0 {
		return "-" + tenths(uint64(-v), intDigits)
	}
	return tenths(uint64(v), intDigits)
}
