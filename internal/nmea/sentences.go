package nmea

// field binds one positional field of a sentence to the RawFix member it
// updates. Fields are applied in declaration order.
type field struct {
	index int
	apply func(a *Assembler, v []byte)
}

// layout is the positional contract of one sentence kind. A sentence with
// fewer than minFields fields (counting the address field) is rejected.
type layout struct {
	kind      Result
	code      string
	minFields int
	fields    []field
	// finish runs after fields were applied and may veto the sentence.
	finish func(a *Assembler, f [][]byte) Result
}

// GGA: 0 address, 1 time, 2 lat, 3 N/S, 4 lon, 5 E/W, 6 quality, 7 sats used,
// 8 HDOP, 9 altitude, 10 M, 11 geoid height, 12 M.
var ggaLayout = layout{
	kind:      GGA,
	code:      "GGA",
	minFields: 12,
	fields: []field{
		{1, (*Assembler).setTime},
		{2, func(a *Assembler, v []byte) { ParseCoordinate(v, &a.fix.Lat, false) }},
		{3, func(a *Assembler, v []byte) { a.fix.Lat.Hemisphere = hemisphere(v) }},
		{4, func(a *Assembler, v []byte) { ParseCoordinate(v, &a.fix.Lon, true) }},
		{5, func(a *Assembler, v []byte) { a.fix.Lon.Hemisphere = hemisphere(v) }},
		{6, func(a *Assembler, v []byte) { a.fix.Quality = FixQuality(ParseNatural(v)) }},
		{8, func(a *Assembler, v []byte) { a.fix.HDOP = a.dop(v) }},
		{9, func(a *Assembler, v []byte) { a.fix.Altitude = ParseFixed(v) }},
		{11, func(a *Assembler, v []byte) { a.fix.GeoidHeight = ParseFixed(v) }},
	},
}

// GSA: 0 address, 1 mode A/M, 2 fix type, 3-14 satellite IDs, 15 PDOP,
// 16 HDOP, 17 VDOP.
var gsaLayout = layout{
	kind:      GSA,
	code:      "GSA",
	minFields: 18,
	fields: []field{
		{2, func(a *Assembler, v []byte) { a.fix.Type = FixType(ParseNatural(v)) }},
		{15, func(a *Assembler, v []byte) { a.fix.PDOP = a.dop(v) }},
		{16, func(a *Assembler, v []byte) { a.fix.HDOP = a.dop(v) }},
		{17, func(a *Assembler, v []byte) { a.fix.VDOP = a.dop(v) }},
	},
	finish: func(a *Assembler, f [][]byte) Result {
		a.fix.SatsInFix = 0
		a.fix.FixSatellites = [MaxFixSatellites]uint8{}
		for _, v := range f[3 : 3+MaxFixSatellites] {
			if len(v) == 0 {
				continue
			}
			a.fix.FixSatellites[a.fix.SatsInFix] = ParseNatural(v)
			a.fix.SatsInFix++
		}
		return GSA
	},
}

// GSV: 0 address, 1 message count, 2 message number, 3 satellites in view,
// then per satellite: ID, elevation, azimuth, SNR.
var gsvLayout = layout{
	kind:      GSV,
	code:      "GSV",
	minFields: 4,
	finish:    (*Assembler).finishGSV,
}

// RMC: time (field 1) and date (field 9) are taken together so the day and
// the time of day always come from the same epoch. Position comes from GGA.
var rmcLayout = layout{
	kind:      RMC,
	code:      "RMC",
	minFields: 10,
	fields: []field{
		{1, (*Assembler).setTime},
		{9, func(a *Assembler, v []byte) {
			if ParseDate(v, &a.fix.Date) && a.fix.Date.Valid() {
				a.fix.Time.Day = a.fix.Date.DayNumber()
			}
		}},
	},
}

// VTG: 0 address, 1 track true, 2 T, 3 track magnetic, 4 M, 5 speed knots,
// 6 N, 7 speed km/h, 8 K.
var vtgLayout = layout{
	kind:      VTG,
	code:      "VTG",
	minFields: 8,
	fields: []field{
		{7, func(a *Assembler, v []byte) {
			s := ParseFixed(v)
			if s < 0 {
				s = 0
			} else if s > 0xFFFF {
				s = 0xFFFF
			}
			a.fix.Speed = uint16(s)
		}},
	},
}

var layouts = []*layout{&ggaLayout, &gsaLayout, &gsvLayout, &rmcLayout, &vtgLayout}

func (a *Assembler) finishGSV(f [][]byte) Result {
	count := ParseNatural(f[1])
	number := ParseNatural(f[2])
	if !a.gsv.accept(count, number) {
		return Unrecognized
	}
	if number == 1 {
		a.sats.clearWritable()
	}

	inView := ParseNatural(f[3])
	offset := int(number-1) * satsPerGSV
	n := int(inView) - offset
	if n > satsPerGSV {
		n = satsPerGSV
	}
	for j := 0; j < n; j++ {
		base := 4 + j*4
		if base+3 >= len(f) {
			// Truncated message: the cycle cannot be completed reliably.
			a.gsv.abandon()
			return Unrecognized
		}
		a.sats.set(offset+j, Satellite{ID: ParseNatural(f[base]), SNR: ParseNatural(f[base+3])})
	}

	if a.gsv.complete() {
		a.fix.SatsInView = inView
		a.sats.Swap()
	}
	return GSV
}

// setTime takes a new time of day. Once the day is known, a step from hour
// 23 to hour 0 advances it, so a GGA that arrives before the RMC of the first
// epoch after midnight does not move the clock back by a day.
func (a *Assembler) setTime(v []byte) {
	prev := a.fix.Time
	ParseTime(v, &a.fix.Time)
	if a.fix.Time.Day != 0 && prev.Hour == 23 && a.fix.Time.Hour == 0 {
		a.fix.Time.Day++
	}
}

// dop parses a dilution of precision field, honouring the rule that DOP
// values are only meaningful with a 2D or 3D solution.
func (a *Assembler) dop(v []byte) uint8 {
	if !a.fix.Type.hasSolution() {
		return DOPInvalid
	}
	d := ParseFixed(v)
	if d < 0 || d > int32(DOPInvalid) {
		return DOPInvalid
	}
	return uint8(d)
}

func hemisphere(v []byte) Hemisphere {
	if len(v) == 0 {
		return HemisphereUnset
	}
	return Hemisphere(v[0])
}
