package nmea

// MaxSatellites is the capacity of a SatelliteTable.
const MaxSatellites = 32

// satsPerGSV is the number of satellites described by one GSV message.
const satsPerGSV = 4

// Satellite is one entry of the satellites-in-view list. SNR is in dB, 0
// when the satellite is not tracked.
type Satellite struct {
	ID  uint8 `json:"id"`
	SNR uint8 `json:"snr"`
}

// SatelliteTable holds the satellites of one complete GSV cycle in message
// order. Slots past RawFix.SatsInView are zero.
type SatelliteTable [MaxSatellites]Satellite

// InView returns the first n populated slots.
func (t *SatelliteTable) InView(n uint8) []Satellite {
	if int(n) > len(t) {
		n = uint8(len(t))
	}
	out := make([]Satellite, n)
	copy(out, t[:n])
	return out
}

// Populated returns the slots up to and including the last one holding a
// satellite ID.
func (t *SatelliteTable) Populated() []Satellite {
	n := len(t)
	for n > 0 && t[n-1].ID == 0 {
		n--
	}
	return t.InView(uint8(n))
}

// SatelliteBuffer is a pair of satellite tables: one readable table holding
// the last complete cycle and one writable table being filled by the cycle in
// progress. Swap exchanges the roles. The writable table is never handed out
// to readers and the readable table is never written.
type SatelliteBuffer struct {
	tables [2]SatelliteTable
	read   int
}

// Readable returns a copy of the last complete table.
func (b *SatelliteBuffer) Readable() SatelliteTable {
	return b.tables[b.read]
}

func (b *SatelliteBuffer) writable() *SatelliteTable {
	return &b.tables[1-b.read]
}

// clearWritable zeroes the table a new cycle is about to fill.
func (b *SatelliteBuffer) clearWritable() {
	*b.writable() = SatelliteTable{}
}

// set writes one slot of the writable table. Out of range slots are ignored.
func (b *SatelliteBuffer) set(slot int, s Satellite) {
	if slot < 0 || slot >= MaxSatellites {
		return
	}
	b.writable()[slot] = s
}

// Swap publishes the writable table.
func (b *SatelliteBuffer) Swap() {
	b.read = 1 - b.read
}

// Reset clears both tables.
func (b *SatelliteBuffer) Reset() {
	b.tables = [2]SatelliteTable{}
	b.read = 0
}

// gsvCycle tracks the sequencing of a multi-message GSV report.
type gsvCycle struct {
	count  uint8
	number uint8
}

// accept applies the sequencing rules to a message header. A new cycle may
// only begin with message 1; within a cycle the count must not change and
// numbers must be consecutive. A rejected message abandons the cycle so it
// cannot be resumed by a later message.
func (c *gsvCycle) accept(count, number uint8) bool {
	if count == 0 || number == 0 || number > count {
		c.abandon()
		return false
	}
	if count != c.count && number != 1 {
		c.abandon()
		return false
	}
	if number != 1 && number != c.number+1 {
		c.abandon()
		return false
	}
	c.count = count
	c.number = number
	return true
}

func (c *gsvCycle) abandon() {
	c.count = 0
	c.number = 0
}

func (c *gsvCycle) complete() bool {
	return c.number != 0 && c.number == c.count
}
