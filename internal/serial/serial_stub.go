//go:build !linux

package serial

import "fmt"

func openPort(path string, baud int) (Source, error) {
	return nil, fmt.Errorf("gps serial not supported on this platform")
}
