package gps

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// DefaultBaud matches the receiver's factory configuration.
const DefaultBaud = 115200

// OpenSerial opens device (auto-detected when empty) in raw 8N1 mode and
// returns it as a ByteSource together with the resolved device path.
func OpenSerial(device string, baud int, capture CaptureFunc) (*StreamSource, string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return nil, "", fmt.Errorf("gps auto-detect failed: no /dev/ttyACM*, /dev/ttyUSB* or /dev/serial0 found")
		}
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := openSerial(device, baud)
	if err != nil {
		return nil, device, fmt.Errorf("gps open failed device=%s baud=%d: %w", device, baud, err)
	}
	log.Printf("tacho: serial open device=%s baud=%d", device, baud)
	return NewStreamSource(port, capture), device, nil
}

func autoDetectDevice() string {
	candidates := []string{"/dev/serial0"}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i), fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
