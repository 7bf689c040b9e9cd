package display

import (
	"fmt"
	"image"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

const (
	contrastOn  = 0xCF
	contrastDim = 0x08
)

// OLED is an SSD1306 panel on I2C.
type OLED struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenOLED initializes periph and the panel on the named I2C bus. An empty
// name picks the first bus.
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("ssd1306 init: %w", err)
	}
	log.Printf("display: ssd1306 ready bus=%s", bus)
	return &OLED{bus: bus, dev: dev}, nil
}

func (o *OLED) Show(f Frame) error {
	return o.dev.Draw(o.dev.Bounds(), f.Image, image.Point{})
}

// SetMode changes contrast for on and dim and halts the panel for off. The
// next Show wakes a halted panel.
func (o *OLED) SetMode(m Mode) error {
	switch m {
	case ModeOff:
		return o.dev.Halt()
	case ModeDim:
		return o.dev.SetContrast(contrastDim)
	default:
		return o.dev.SetContrast(contrastOn)
	}
}

func (o *OLED) Close() error {
	err := o.dev.Halt()
	if cerr := o.bus.Close(); err == nil {
		err = cerr
	}
	return err
}
