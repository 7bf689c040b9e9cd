package crosscheck

import (
	"fmt"
	"math"
	"strings"
	"testing"

	gonmea "github.com/adrianmo/go-nmea"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
)

func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

func epoch(clock, lat string) string {
	return sentence("GPRMC,"+clock+",A,"+lat+",N,01131.000,E,000.0,000.0,191026,,") +
		sentence("GPGGA,"+clock+","+lat+",N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,") +
		sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1") +
		sentence("GPGSV,1,1,03,04,45,120,40,05,30,200,35,09,10,010,") +
		sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
}

func newChecker(t *testing.T) *Checker {
	t.Helper()
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestChecker_AgreesOnCleanInput(t *testing.T) {
	c := newChecker(t)
	c.Write([]byte(epoch("100000.00", "4807.038")))
	c.Write([]byte(epoch("100001.00", "4807.065")))
	rep := c.Report()

	if rep.Sentences != 10 || rep.Compared != 10 || rep.Unrecognized != 0 || rep.RefErrors != 0 {
		t.Fatalf("report=%+v", rep)
	}
	if len(rep.Mismatches) != 0 {
		t.Fatalf("mismatches=%+v", rep.Mismatches)
	}
}

func TestChecker_DistanceMatchesGreatCircle(t *testing.T) {
	c := newChecker(t)
	// 0.027' of latitude per epoch, about 50 m.
	for i := 0; i < 5; i++ {
		lat := fmt.Sprintf("4807.%03d", 38+27*i)
		c.Write([]byte(epoch(fmt.Sprintf("1000%02d.00", i), lat)))
	}
	rep := c.Report()
	if rep.Distance < 1900 || rep.Distance > 2100 {
		t.Fatalf("distance=%d", rep.Distance)
	}
	if math.Abs(rep.DistanceError()) > 0.01 {
		t.Fatalf("distance=%d great circle=%.1f error=%.4f", rep.Distance, rep.GreatCircle, rep.DistanceError())
	}
}

func TestChecker_CountsBadChecksumAndForeignTalker(t *testing.T) {
	c := newChecker(t)
	good := sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
	bad := strings.Replace(good, "010.2", "011.2", 1)
	c.Write([]byte(good + bad + sentence("GNVTG,054.7,T,034.4,M,005.5,N,010.2,K")))
	rep := c.Report()
	if rep.Sentences != 3 || rep.Compared != 1 || rep.RefErrors != 1 || rep.Unrecognized != 1 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestChecker_WriteFeedsAssembler(t *testing.T) {
	c := newChecker(t)
	c.Write([]byte(sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K") + "$"))
	if got := c.asm.Fix().Speed; got != 102 {
		t.Fatalf("assembler speed=%d want 102", got)
	}
	if c.rep.Compared != 1 || c.rep.Unrecognized != 0 {
		t.Fatalf("report=%+v", c.rep)
	}
}

func TestChecker_FindsSpeedBeyondRange(t *testing.T) {
	c := newChecker(t)
	// 9999.9 km/h does not fit the 0.1 km/h speed field and is clamped.
	c.Write([]byte(sentence("GPVTG,054.7,T,034.4,M,5399.5,N,9999.9,K")))
	rep := c.Report()
	if rep.Compared != 1 || len(rep.Mismatches) != 1 {
		t.Fatalf("report=%+v", rep)
	}
	m := rep.Mismatches[0]
	if m.Line != 1 || m.Field != "speed_kph" || m.Ours != "6553.5" || m.Reference != "9999.9" {
		t.Fatalf("mismatch=%+v", m)
	}
	if !strings.HasPrefix(m.Sentence, "$GPVTG") {
		t.Fatalf("sentence=%q", m.Sentence)
	}
}

func TestChecker_ReportsMismatch(t *testing.T) {
	c := newChecker(t)
	c.Write([]byte(epoch("100000.00", "4807.038")))
	c.compare("x", mustParse(t, sentence("GPVTG,054.7,T,034.4,M,005.5,N,012.0,K")), nmea.RawFix{Speed: 102})
	rep := c.Report()
	if len(rep.Mismatches) != 1 || rep.Mismatches[0].Field != "speed_kph" || rep.Mismatches[0].Ours != "10.2" || rep.Mismatches[0].Reference != "12" {
		t.Fatalf("mismatches=%+v", rep.Mismatches)
	}
}

func TestChecker_MaxMismatches(t *testing.T) {
	c, err := New(Options{MaxMismatches: 1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	s := mustParse(t, sentence("GPVTG,054.7,T,034.4,M,005.5,N,012.0,K"))
	c.compare("x", s, nmea.RawFix{})
	c.compare("x", s, nmea.RawFix{})
	if len(c.rep.Mismatches) != 1 {
		t.Fatalf("mismatches=%d", len(c.rep.Mismatches))
	}
}

func mustParse(t *testing.T, raw string) gonmea.Sentence {
	t.Helper()
	s, err := gonmea.Parse(strings.TrimSpace(raw))
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", raw, err)
	}
	return s
}
