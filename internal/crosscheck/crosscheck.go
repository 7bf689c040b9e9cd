// Package crosscheck decodes a receiver recording with both the tacho's
// assembler and github.com/adrianmo/go-nmea and reports where they
// disagree. It also measures the accumulated trip distance against the
// great-circle distance between the same reference points.
package crosscheck

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
	geo "github.com/kellydunn/golang-geo"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

// Mismatch is one field both decoders read differently.
type Mismatch struct {
	Line      int    `json:"line"`
	Sentence  string `json:"sentence"`
	Field     string `json:"field"`
	Ours      string `json:"ours"`
	Reference string `json:"reference"`
}

type Report struct {
	Sentences    int `json:"sentences"`
	Compared     int `json:"compared"`
	Unrecognized int `json:"unrecognized"`
	// RefErrors counts sentences the reference decoder rejected, typically
	// for a bad checksum.
	RefErrors  int        `json:"ref_errors"`
	Mismatches []Mismatch `json:"mismatches"`

	// Distance is the accumulated trip distance in 0.1 m.
	Distance uint32 `json:"distance"`
	// GreatCircle is the sum of great-circle hops between the same
	// reference points, in metres.
	GreatCircle float64 `json:"great_circle_m"`
}

// DistanceError returns the relative difference between the trip distance
// and the great-circle sum, or 0 when nothing was travelled.
func (r Report) DistanceError() float64 {
	if r.GreatCircle == 0 {
		return 0
	}
	return (float64(r.Distance)/10 - r.GreatCircle) / r.GreatCircle
}

type Options struct {
	Talker         string
	Thresholds     trip.Thresholds
	LegacyDistance bool
	// MaxMismatches stops recording mismatches after this many. Zero keeps
	// all of them.
	MaxMismatches int
}

// Checker consumes a byte stream. Use Write for every chunk, then Report.
type Checker struct {
	opts Options
	asm  *nmea.Assembler
	acc  *trip.Accumulator

	line    []byte
	lineNo  int
	started bool
	rep     Report
}

// New returns a Checker. Zero thresholds select trip.DefaultThresholds.
func New(opts Options) (*Checker, error) {
	asm, err := nmea.NewAssembler(opts.Talker)
	if err != nil {
		return nil, err
	}
	if opts.Thresholds == (trip.Thresholds{}) {
		opts.Thresholds = trip.DefaultThresholds()
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Checker{opts: opts, asm: asm, acc: trip.New(trip.Config{LegacyDistance: opts.LegacyDistance})}, nil
}

// Write feeds p. The assembler only finishes a sentence when the next '$'
// arrives, so the text of the sentence it reports is the line collected up
// to that byte.
func (c *Checker) Write(p []byte) {
	for _, b := range p {
		r := c.asm.Feed(b)
		if b != '$' {
			c.line = append(c.line, b)
			continue
		}
		text := strings.TrimSpace(string(c.line))
		c.line = append(c.line[:0], b)
		if text == "" {
			continue
		}
		c.lineNo++
		c.sentence(text, r)
	}
}

// Report flushes the last sentence and returns the totals.
func (c *Checker) Report() Report {
	// A trailing '$' completes the final sentence.
	c.Write([]byte{'$'})
	c.line = c.line[:0]
	c.rep.Distance = c.acc.Stats().Distance
	return c.rep
}

func (c *Checker) sentence(text string, r nmea.Result) {
	c.rep.Sentences++
	if !r.Complete() {
		c.rep.Unrecognized++
		return
	}
	fix := c.asm.Fix()
	c.accumulate(fix)

	s, err := gonmea.Parse(text)
	if err != nil {
		c.rep.RefErrors++
		return
	}
	c.rep.Compared++
	c.compare(text, s, fix)
}

// accumulate mirrors the service: the trip starts from the first usable 3D
// fix and every reference advance is measured on the great circle too.
func (c *Checker) accumulate(fix nmea.RawFix) {
	if !c.started {
		if fix.Type != nmea.Fix3D || fix.Quality == nmea.QualityInvalid {
			return
		}
		c.acc.Update(fix, c.opts.Thresholds)
		c.acc.Reset()
		c.started = true
		return
	}
	before := c.acc.Stats().Reference
	flags := c.acc.Update(fix, c.opts.Thresholds)
	if flags&trip.Travelled == 0 {
		return
	}
	after := c.acc.Stats().Reference
	p1 := geo.NewPoint(before.Lat.Degrees(), before.Lon.Degrees())
	p2 := geo.NewPoint(after.Lat.Degrees(), after.Lon.Degrees())
	c.rep.GreatCircle += p1.GreatCircleDistance(p2) * 1000
}

func (c *Checker) mismatch(text, field, ours, ref string) {
	if c.opts.MaxMismatches > 0 && len(c.rep.Mismatches) >= c.opts.MaxMismatches {
		return
	}
	c.rep.Mismatches = append(c.rep.Mismatches, Mismatch{Line: c.lineNo, Sentence: text, Field: field, Ours: ours, Reference: ref})
}

const (
	degTolerance   = 1.5e-5
	tenthTolerance = 0.1
)

func (c *Checker) compare(text string, s gonmea.Sentence, fix nmea.RawFix) {
	near := func(field string, ours, ref, tol float64) {
		if math.Abs(ours-ref) > tol {
			c.mismatch(text, field, strconv.FormatFloat(ours, 'f', -1, 64), strconv.FormatFloat(ref, 'f', -1, 64))
		}
	}
	same := func(field, ours, ref string) {
		if ours != ref {
			c.mismatch(text, field, ours, ref)
		}
	}
	dop := func(field string, ours uint8, ref float64) {
		if ours == nmea.DOPInvalid {
			return
		}
		near(field, float64(ours)/10, ref, tenthTolerance)
	}

	switch m := s.(type) {
	case gonmea.GGA:
		same("quality", strconv.Itoa(int(fix.Quality)), m.FixQuality)
		if m.FixQuality == gonmea.Invalid {
			return
		}
		near("latitude", fix.Lat.Degrees(), m.Latitude, degTolerance)
		near("longitude", fix.Lon.Degrees(), m.Longitude, degTolerance)
		near("altitude", float64(fix.Altitude)/10, m.Altitude, tenthTolerance)
		near("geoid_height", float64(fix.GeoidHeight)/10, m.Separation, tenthTolerance)
		dop("hdop", fix.HDOP, m.HDOP)
	case gonmea.GSA:
		same("fix_type", strconv.Itoa(int(fix.Type)), m.FixType)
		same("sats_in_fix", strconv.Itoa(int(fix.SatsInFix)), strconv.Itoa(len(m.SV)))
		dop("pdop", fix.PDOP, m.PDOP)
		dop("hdop", fix.HDOP, m.HDOP)
		dop("vdop", fix.VDOP, m.VDOP)
	case gonmea.GSV:
		if m.MessageNumber == m.TotalMessages {
			same("sats_in_view", strconv.Itoa(int(fix.SatsInView)), strconv.FormatInt(m.NumberSVsInView, 10))
		}
	case gonmea.RMC:
		if m.Date.Valid {
			same("date", fix.Date.String(), fmt.Sprintf("20%02d/%02d/%02d", m.Date.YY, m.Date.MM, m.Date.DD))
		}
	case gonmea.VTG:
		near("speed_kph", float64(fix.Speed)/10, m.GroundSpeedKPH, tenthTolerance)
	}
}
