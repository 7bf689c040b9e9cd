package nmea

import "fmt"

// BufferSize is the intake capacity: 80 visible characters plus CR, LF and
// one spare byte. The leading '$' is not stored.
const BufferSize = 83

// maxFields bounds the number of comma separated fields split per sentence.
// GSV is the widest sentence with 20 fields plus the checksum.
const maxFields = 24

// DefaultTalker is the talker ID accepted when none is configured.
const DefaultTalker = "GP"

// Result is the outcome of feeding one byte.
type Result uint8

const (
	// Unrecognized means a '$' closed a sentence that was discarded: wrong
	// talker, unsupported kind, malformed layout or a GSV sequencing error.
	Unrecognized Result = 0

	GGA Result = 1
	GSA Result = 2
	GSV Result = 3
	RMC Result = 4
	VTG Result = 5

	// Overflow means a '$' closed a sentence that did not fit the intake
	// buffer. Its prefix was discarded without being parsed.
	Overflow Result = 254

	// Incomplete means the byte was buffered; keep feeding.
	Incomplete Result = 255
)

// Complete reports whether r names a decoded sentence kind.
func (r Result) Complete() bool { return r >= GGA && r <= VTG }

func (r Result) String() string {
	switch r {
	case Unrecognized:
		return "unrecognized"
	case GGA:
		return "GGA"
	case GSA:
		return "GSA"
	case GSV:
		return "GSV"
	case RMC:
		return "RMC"
	case VTG:
		return "VTG"
	case Overflow:
		return "overflow"
	case Incomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

// Assembler reconstructs sentences from a byte stream and folds them into a
// RawFix. A sentence is evaluated when the '$' of the next one arrives.
type Assembler struct {
	talker [2]byte

	buf      [BufferSize]byte
	n        int
	overflow bool
	fields   [][]byte

	fix  RawFix
	sats SatelliteBuffer
	gsv  gsvCycle
}

// NewAssembler returns an Assembler accepting the given two character
// talker ID ("GP" when empty).
func NewAssembler(talker string) (*Assembler, error) {
	if talker == "" {
		talker = DefaultTalker
	}
	if len(talker) != 2 {
		return nil, fmt.Errorf("nmea: talker must be 2 characters, got %q", talker)
	}
	a := &Assembler{fields: make([][]byte, 0, maxFields)}
	copy(a.talker[:], talker)
	a.Reset()
	return a, nil
}

// Reset restores the power-on state: empty intake buffer, default RawFix and
// empty satellite tables.
func (a *Assembler) Reset() {
	a.n = 0
	a.overflow = false
	a.fix = defaultRawFix()
	a.sats.Reset()
	a.gsv.abandon()
}

// Fix returns a copy of the current RawFix including the readable satellite
// table.
func (a *Assembler) Fix() RawFix {
	f := a.fix
	f.Satellites = a.sats.Readable()
	return f
}

// Satellites returns a copy of the readable satellite table.
func (a *Assembler) Satellites() SatelliteTable {
	return a.sats.Readable()
}

// Feed consumes one byte. It never blocks and only does work proportional to
// the buffered sentence when c is '$'.
func (a *Assembler) Feed(c byte) Result {
	if c != '$' {
		if a.n < len(a.buf) {
			a.buf[a.n] = c
			a.n++
		} else {
			a.overflow = true
		}
		return Incomplete
	}

	var r Result
	if a.overflow {
		r = Overflow
	} else {
		r = a.evaluate(a.buf[:a.n])
	}
	a.n = 0
	a.overflow = false
	return r
}

// Write feeds p and calls fn with every result that is not Incomplete. It
// implements the drain loop for callers holding a whole chunk.
func (a *Assembler) Write(p []byte, fn func(Result)) {
	for _, c := range p {
		if r := a.Feed(c); r != Incomplete && fn != nil {
			fn(r)
		}
	}
}

func (a *Assembler) evaluate(s []byte) Result {
	if len(s) < 5 || s[0] != a.talker[0] || s[1] != a.talker[1] {
		return Unrecognized
	}
	var l *layout
	for _, cand := range layouts {
		if string(s[2:5]) == cand.code {
			l = cand
			break
		}
	}
	if l == nil {
		return Unrecognized
	}

	f := a.split(s)
	if len(f) < l.minFields {
		return Unrecognized
	}
	for _, fd := range l.fields {
		fd.apply(a, f[fd.index])
	}
	if l.finish != nil {
		return l.finish(a, f)
	}
	return l.kind
}

// split cuts s at ',' and '*' into the reusable field slice. Trailing
// carriage return and line feed stay attached to the last field.
func (a *Assembler) split(s []byte) [][]byte {
	f := a.fields[:0]
	start := 0
	for i, c := range s {
		if c != ',' && c != '*' {
			continue
		}
		if len(f) == maxFields-1 {
			break
		}
		f = append(f, s[start:i])
		start = i + 1
	}
	f = append(f, s[start:])
	a.fields = f
	return f
}
