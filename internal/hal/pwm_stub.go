//go:build !linux

package hal

import "fmt"

func openPWM(chip, channel int) (pulseDriver, error) {
	return nil, fmt.Errorf("hal: pwm unsupported on this platform")
}
