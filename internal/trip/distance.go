package trip

import (
	"math"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
)

// EarthDiameterM is the mean earth diameter used by Distance.
const EarthDiameterM = 12742001

// Distance returns the distance between two positions in 0.1 m using an
// equirectangular approximation. It is accurate for the short hops between
// consecutive fixes, not for long baselines.
//
// Hemispheres are honoured: S and W are negative. An unset hemisphere counts
// as N/E.
func Distance(lat1, lon1, lat2, lon2 nmea.Coordinate) uint32 {
	return flatEarth(signedRad(lat1), signedRad(lon1), signedRad(lat2), signedRad(lon2))
}

// LegacyDistance reproduces the distances written by the original logger
// firmware: hemispheres are ignored and the integer degrees of the second
// longitude are taken from the first point. Only use it for parity with
// existing logs.
func LegacyDistance(lat1, lon1, lat2, lon2 nmea.Coordinate) uint32 {
	lon2.Deg = lon1.Deg
	return flatEarth(absRad(lat1), absRad(lon1), absRad(lat2), absRad(lon2))
}

func flatEarth(lat1, lon1, lat2, lon2 float64) uint32 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := (dLat*dLat + math.Cos(lat1)*math.Cos(lat2)*dLon*dLon) / 4
	d := math.Atan(math.Sqrt(a))*EarthDiameterM*10 + 0.5
	if d >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(d)
}

func absRad(c nmea.Coordinate) float64 {
	return (float64(c.Deg) + float64(c.Frac)/1e5) * math.Pi / 180
}

func signedRad(c nmea.Coordinate) float64 {
	return c.Degrees() * math.Pi / 180
}
