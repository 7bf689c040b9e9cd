package display

import (
	"fmt"
	"time"
)

// Mode is the panel power state.
type Mode int

const (
	ModeOn Mode = iota
	ModeDim
	ModeOff
)

func (m Mode) String() string {
	switch m {
	case ModeOn:
		return "on"
	case ModeDim:
		return "dim"
	case ModeOff:
		return "off"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// nextMode applies the inactivity timers. A zero timer never fires. Dimming
// is skipped when the panel would switch off at or before the dim time.
func nextMode(cur Mode, idle, dimAfter, offAfter time.Duration) Mode {
	if offAfter != 0 && idle >= offAfter {
		return ModeOff
	}
	if cur == ModeOn && dimAfter != 0 && idle >= dimAfter && (offAfter == 0 || offAfter > dimAfter) {
		return ModeDim
	}
	return cur
}
