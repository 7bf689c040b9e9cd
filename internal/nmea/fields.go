package nmea

// The parsers in this file are total: they never fail, they work on integer
// arithmetic only and they treat any non-digit where a digit is expected as 0.

func digit(c byte) uint32 {
	if c < '0' || c > '9' {
		return 0
	}
	return uint32(c - '0')
}

// ParseNatural converts a one or two digit field to 0..99. Any other length
// yields 0.
func ParseNatural(b []byte) uint8 {
	switch len(b) {
	case 1:
		return uint8(digit(b[0]))
	case 2:
		return uint8(digit(b[0])*10 + digit(b[1]))
	default:
		return 0
	}
}

// ParseFixed converts a signed decimal with at most one fractional digit to
// an integer scaled by ten ("-12.3" -> -123, "545" -> 5450). Fractional
// digits after the first are ignored.
func ParseFixed(b []byte) int32 {
	if len(b) == 0 {
		return 0
	}
	dot := len(b)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '.' {
			dot = i
			break
		}
	}

	i := 0
	neg := b[0] == '-'
	if neg {
		i = 1
	}
	var num int32
	for ; i < dot; i++ {
		num = num*10 + int32(digit(b[i]))
	}
	num *= 10
	if dot+1 < len(b) {
		num += int32(digit(b[dot+1]))
	}
	if neg {
		return -num
	}
	return num
}

// ParseTime decodes HHMMSS[.mmm] into t. Inputs shorter than six bytes leave
// t untouched. Milliseconds are 0 unless a '.' follows the seconds and three
// digits are present. t.Day is never modified.
func ParseTime(b []byte, t *Time) {
	if len(b) < 6 {
		return
	}
	t.Hour = uint8(digit(b[0])*10 + digit(b[1]))
	t.Minute = uint8(digit(b[2])*10 + digit(b[3]))
	t.Second = uint8(digit(b[4])*10 + digit(b[5]))
	if len(b) >= 10 && b[6] == '.' {
		t.Millisecond = uint16(digit(b[7])*100 + digit(b[8])*10 + digit(b[9]))
	} else {
		t.Millisecond = 0
	}
}

// ParseDate decodes DDMMYY into d. Any other length leaves d untouched.
func ParseDate(b []byte, d *Date) bool {
	if len(b) != 6 {
		return false
	}
	d.Day = ParseNatural(b[0:2])
	d.Month = ParseNatural(b[2:4])
	d.Year = ParseNatural(b[4:6])
	return true
}

// ParseCoordinate decodes DDMM.MMMM (latitude) or DDDMM.MMMM (longitude, lon
// set) into c. Degree and minute digits are mandatory; up to four minute
// decimals are used and missing decimals count as zero. Shorter input leaves
// c untouched. The hemisphere is not part of the field and is not modified.
func ParseCoordinate(b []byte, c *Coordinate, lon bool) bool {
	degDigits := 2
	if lon {
		degDigits = 3
	}
	minEnd := degDigits + 2
	if len(b) < minEnd {
		return false
	}
	if len(b) > minEnd && b[minEnd] != '.' {
		return false
	}

	var deg uint32
	for i := 0; i < degDigits; i++ {
		deg = deg*10 + digit(b[i])
	}

	// Whole minutes to 1e-5 degrees: mm * 100000/60, computed as mm*426666/256.
	mm := digit(b[degDigits])*10 + digit(b[degDigits+1])
	frac := (mm*426666 + 128) / 256

	// Minute decimals (1e-4 min) to 1e-5 degrees: ffff/6, as ffff*10923/65536.
	var ffff uint32
	for i := 0; i < 4; i++ {
		ffff *= 10
		if p := minEnd + 1 + i; p < len(b) {
			ffff += digit(b[p])
		}
	}
	frac += (ffff*10923 + 32768) / 65536

	c.Deg = uint8(deg)
	c.Frac = frac
	return true
}
