package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

type Config struct {
	GPS        GPSConfig       `yaml:"gps"`
	Thresholds trip.Thresholds `yaml:"thresholds"`
	Log        LogConfig       `yaml:"log"`
	Display    DisplayConfig   `yaml:"display"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
	Web        WebConfig       `yaml:"web"`
	Buttons    ButtonsConfig   `yaml:"buttons"`
}

type GPSConfig struct {
	// Source is "nmea" (serial port), "gpsd" or "replay".
	Source   string `yaml:"source"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	GPSDAddr string `yaml:"gpsd_addr"`
	Talker   string `yaml:"talker"`

	Tick       time.Duration `yaml:"tick"`
	StaleAfter time.Duration `yaml:"stale_after"`

	// LegacyDistance reproduces the distance figures of the SD-card logger
	// firmware, including its longitude defect.
	LegacyDistance bool `yaml:"legacy_distance"`

	Replay ReplayConfig `yaml:"replay"`
	Record RecordConfig `yaml:"record"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type LogConfig struct {
	Enable   bool          `yaml:"enable"`
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	// AutoStart begins recording once the first fix is available.
	AutoStart bool `yaml:"auto_start"`
	// Debug writes an extra row whenever the trip figures change.
	Debug bool `yaml:"debug"`
}

type DisplayConfig struct {
	Enable bool `yaml:"enable"`
	// Driver is "ssd1306" or "udp".
	Driver   string        `yaml:"driver"`
	I2CBus   string        `yaml:"i2c_bus"`
	Interval time.Duration `yaml:"interval"`
	// DimAfter and OffAfter count from the last button press; 0 disables.
	DimAfter time.Duration `yaml:"dim_after"`
	OffAfter time.Duration `yaml:"off_after"`
	UDPDest  string        `yaml:"udp_dest"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type ButtonsConfig struct {
	Enable    bool          `yaml:"enable"`
	Chip      string        `yaml:"chip"`
	Lines     ButtonLines   `yaml:"lines"`
	LongPress time.Duration `yaml:"long_press"`
	Debounce  time.Duration `yaml:"debounce"`
}

// ButtonLines are GPIO line offsets on Chip.
type ButtonLines struct {
	Stopwatch int `yaml:"stopwatch"`
	Record    int `yaml:"record"`
	Page      int `yaml:"page"`
}

const (
	maxDisplayTimer = 12 * time.Hour
	minLogInterval  = 500 * time.Millisecond
	maxLogInterval  = 25500 * time.Millisecond
)

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	if err := DefaultAndValidate(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return Config{}, fmt.Errorf("config contains unknown fields: %w", err)
		}
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills unset fields and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	g := &cfg.GPS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = "nmea"
	}
	switch g.Source {
	case "nmea", "gpsd", "replay":
	default:
		return fmt.Errorf("gps.source must be one of nmea, gpsd, replay (got %q)", g.Source)
	}
	if g.Baud == 0 {
		g.Baud = 115200
	}
	if g.Baud < 2400 || g.Baud > 921600 {
		return fmt.Errorf("gps.baud must be 2400..921600")
	}
	if g.GPSDAddr == "" {
		g.GPSDAddr = "127.0.0.1:2947"
	}
	if g.Talker == "" {
		g.Talker = "GP"
	}
	if len(g.Talker) != 2 {
		return fmt.Errorf("gps.talker must be 2 characters")
	}
	if g.Tick <= 0 {
		g.Tick = 100 * time.Millisecond
	}
	if g.StaleAfter <= 0 {
		g.StaleAfter = 5 * time.Second
	}
	if g.Source == "replay" {
		if g.Replay.Path == "" {
			return fmt.Errorf("gps.replay.path is required when gps.source is replay")
		}
		if g.Replay.Speed == 0 {
			g.Replay.Speed = 1
		}
		if g.Replay.Speed < 0 {
			return fmt.Errorf("gps.replay.speed must be > 0")
		}
		if g.Record.Enable {
			return fmt.Errorf("gps.record cannot be used with gps.source=replay")
		}
	}
	if g.Record.Enable && g.Record.Path == "" {
		return fmt.Errorf("gps.record.path is required when gps.record.enable is true")
	}

	th := &cfg.Thresholds
	def := trip.DefaultThresholds()
	if th.DOP == 0 {
		th.DOP = def.DOP
	}
	if th.Distance == 0 {
		th.Distance = def.Distance
	}
	if th.Altitude == 0 {
		th.Altitude = def.Altitude
	}
	if err := th.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	l := &cfg.Log
	if l.Dir == "" {
		l.Dir = "logs"
	}
	if l.Interval == 0 {
		l.Interval = time.Second
	}
	if l.Interval < minLogInterval || l.Interval > maxLogInterval {
		return fmt.Errorf("log.interval must be between %s and %s", minLogInterval, maxLogInterval)
	}

	d := &cfg.Display
	if d.Driver == "" {
		d.Driver = "ssd1306"
	}
	if d.Interval <= 0 {
		d.Interval = 500 * time.Millisecond
	}
	if d.DimAfter < 0 || d.DimAfter > maxDisplayTimer || d.OffAfter < 0 || d.OffAfter > maxDisplayTimer {
		return fmt.Errorf("display.dim_after and display.off_after must be between 0 and %s", maxDisplayTimer)
	}
	if d.Enable {
		switch d.Driver {
		case "ssd1306":
		case "udp":
			if d.UDPDest == "" {
				return fmt.Errorf("display.udp_dest is required when display.driver is udp")
			}
		default:
			return fmt.Errorf("display.driver must be ssd1306 or udp (got %q)", d.Driver)
		}
	}

	m := &cfg.MQTT
	if m.Broker == "" {
		m.Broker = "tcp://127.0.0.1:1883"
	}
	if m.ClientID == "" {
		m.ClientID = "gpstacho"
	}
	m.TopicPrefix = strings.Trim(m.TopicPrefix, "/")
	if m.TopicPrefix == "" {
		m.TopicPrefix = "gpstacho"
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	b := &cfg.Buttons
	if b.Chip == "" {
		b.Chip = "gpiochip0"
	}
	if b.LongPress <= 0 {
		b.LongPress = time.Second
	}
	if b.Debounce <= 0 {
		b.Debounce = 30 * time.Millisecond
	}
	if b.Enable {
		ln := b.Lines
		if ln.Stopwatch < 0 || ln.Record < 0 || ln.Page < 0 {
			return fmt.Errorf("buttons.lines must be >= 0")
		}
		if ln.Stopwatch == ln.Record || ln.Stopwatch == ln.Page || ln.Record == ln.Page {
			return fmt.Errorf("buttons.lines must be distinct")
		}
	}

	return nil
}
