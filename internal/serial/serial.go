// Package serial provides the non-blocking GPS byte source: a raw-mode UART
// that yields whatever bytes have arrived since the last call, so the tick
// loop can drain it without ever blocking.
package serial

import (
	"fmt"
	"os"
)

// Source is a non-blocking, ordered byte source. ReadAvailable returns the
// bytes received since the previous call, which may be zero without that
// being an error.
type Source interface {
	ReadAvailable(p []byte) (int, error)
	Close() error
}

// Config selects the GPS serial device.
//
// Device may be empty to auto-detect the usual USB/ACM nodes. Baud defaults
// to 9600; the receiver rates 9600/19200/38400 are all acceptable.
type Config struct {
	Device string
	Baud   int
}

// Open opens the configured device in raw non-blocking mode.
func Open(cfg Config) (Source, error) {
	device := cfg.Device
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return nil, fmt.Errorf("serial auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	return openPort(device, baud)
}

func autoDetectDevice() string {
	// Keep it intentionally tiny and predictable.
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
