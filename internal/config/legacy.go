package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// LoadLegacy applies a logger.cfg file of the SD-card firmware on top of
// base and validates the result. The file holds key=value lines; numbers
// carry at most one decimal digit. Out-of-range or malformed values fall
// back to the firmware defaults, unknown keys are ignored.
func LoadLegacy(r io.Reader, base Config) (Config, error) {
	cfg := base
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if i := strings.IndexAny(val, " \t"); i >= 0 {
			val = val[:i]
		}

		switch key {
		case "logDebug":
			cfg.Log.Debug = legacyBool(val, true)
		case "logAutoStart":
			cfg.Log.AutoStart = legacyBool(val, true)
		case "logIntvl":
			v := legacyTenths(val, 10)
			if v < 5 || v > 255 {
				v = 10
			}
			cfg.Log.Interval = time.Duration(v) * 100 * time.Millisecond
		case "gpsUartBaud":
			v := legacyTenths(val, 1152000) / 10
			if v < 2400 || v > 921600 {
				v = 115200
			}
			cfg.GPS.Baud = int(v)
		case "gpsAltThreshold":
			v := legacyTenths(val, 15)
			if v < 1 || v > 500 {
				v = 15
			}
			cfg.Thresholds.Altitude = int32(v)
		case "gpsDopThreshold":
			v := legacyTenths(val, 50)
			if v < 1 || v > 254 {
				v = 50
			}
			cfg.Thresholds.DOP = uint8(v)
		case "gpsDistThreshold":
			v := legacyTenths(val, 25)
			if v < 1 || v > 5000 {
				v = 25
			}
			cfg.Thresholds.Distance = uint32(v)
		case "dispDimTime":
			cfg.Display.DimAfter = legacyTimer(val, 300)
		case "dispOffTime":
			cfg.Display.OffAfter = legacyTimer(val, 36000)
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("read legacy config: %w", err)
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// legacyTenths parses "12" or "12.3" as 120 or 123. Anything else yields def.
func legacyTenths(s string, def uint64) uint64 {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return def
	}
	var v uint64
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		v = v*10 + uint64(s[i]-'0')
		if v > 1<<40 {
			return def
		}
	}
	v *= 10
	if i < len(s) && s[i] == '.' {
		i++
		if i >= len(s) || s[i] < '0' || s[i] > '9' {
			return def
		}
		v += uint64(s[i] - '0')
		i++
	}
	if i != len(s) {
		return def
	}
	return v
}

func legacyBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	switch c := s[0]; {
	case c == '0' || c == 'f' || c == 'F':
		return false
	case (c >= '1' && c <= '9') || c == 't' || c == 'T':
		return true
	}
	return def
}

func legacyTimer(s string, def uint64) time.Duration {
	v := legacyTenths(s, def)
	if time.Duration(v)*100*time.Millisecond > maxDisplayTimer {
		v = def
	}
	return time.Duration(v) * 100 * time.Millisecond
}
