//go:build !linux

package hal

import (
	"fmt"

	"gps-autopilot/internal/config"
)

// Board stub for non-Linux platforms; the GPIO character device is
// Linux-only.
type Board struct{}

func OpenBoard(cfg config.BoardConfig) (*Board, error) {
	if cfg.GPIOChip == "" {
		return nil, nil
	}
	return nil, fmt.Errorf("hal: gpio unsupported on this platform")
}

func (b *Board) ButtonPressed() (bool, error) { return false, nil }
func (b *Board) SetLED(on bool) error         { return nil }
func (b *Board) Close() error                 { return nil }
