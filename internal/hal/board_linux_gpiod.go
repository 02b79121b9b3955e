//go:build linux

package hal

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"gps-autopilot/internal/config"
)

// Board is the datum-capture button and status LED, driven through the
// Linux GPIO character device.
type Board struct {
	button *gpiocdev.Line
	led    *gpiocdev.Line
}

// OpenBoard requests the configured lines. The button is pulled up and
// reads active-low; the LED starts off. Returns (nil, nil) when no chip is
// configured so headless and sim runs need no board at all.
func OpenBoard(cfg config.BoardConfig) (*Board, error) {
	if cfg.GPIOChip == "" {
		return nil, nil
	}

	b := &Board{}
	if cfg.ButtonPin > 0 {
		line, err := gpiocdev.RequestLine(cfg.GPIOChip, cfg.ButtonPin,
			gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithConsumer("gps-autopilot-button"))
		if err != nil {
			return nil, fmt.Errorf("hal: request button gpio %d: %w", cfg.ButtonPin, err)
		}
		b.button = line
	}
	if cfg.LEDPin > 0 {
		line, err := gpiocdev.RequestLine(cfg.GPIOChip, cfg.LEDPin,
			gpiocdev.AsOutput(0), gpiocdev.WithConsumer("gps-autopilot-led"))
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("hal: request led gpio %d: %w", cfg.LEDPin, err)
		}
		b.led = line
	}
	return b, nil
}

// ButtonPressed reads the button line; pressed pulls the line low.
func (b *Board) ButtonPressed() (bool, error) {
	if b == nil || b.button == nil {
		return false, nil
	}
	v, err := b.button.Value()
	if err != nil {
		return false, fmt.Errorf("hal: read button: %w", err)
	}
	return v == 0, nil
}

// SetLED drives the status LED.
func (b *Board) SetLED(on bool) error {
	if b == nil || b.led == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	return b.led.SetValue(v)
}

// Close releases the lines, leaving the LED off.
func (b *Board) Close() error {
	if b == nil {
		return nil
	}
	var first error
	if b.led != nil {
		_ = b.led.SetValue(0)
		if err := b.led.Close(); err != nil && first == nil {
			first = err
		}
		b.led = nil
	}
	if b.button != nil {
		if err := b.button.Close(); err != nil && first == nil {
			first = err
		}
		b.button = nil
	}
	return first
}
