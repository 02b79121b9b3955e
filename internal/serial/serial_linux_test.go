//go:build linux

package serial

import (
	"fmt"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// openPTY hands back the master side and the slave device path.
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()
	m, err := os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		t.Skipf("no pty support: %v", err)
	}
	if err := unix.IoctlSetPointerInt(int(m.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		_ = m.Close()
		t.Fatalf("unlock pty: %v", err)
	}
	n, err := unix.IoctlGetInt(int(m.Fd()), unix.TIOCGPTN)
	if err != nil {
		_ = m.Close()
		t.Fatalf("pty number: %v", err)
	}
	return m, fmt.Sprintf("/dev/pts/%d", n)
}

func TestReadAvailableSilentPort(t *testing.T) {
	// The byte-source contract: a tick with nothing queued returns (0, nil),
	// never an error. A drained VMIN=0 tty read comes back as io.EOF from
	// os.File, which must not leak to the caller.
	master, slavePath := openPTY(t)
	defer master.Close()

	src, err := openPort(slavePath, 9600)
	if err != nil {
		t.Fatalf("openPort() error: %v", err)
	}
	defer src.Close()

	buf := make([]byte, 64)
	for i := 0; i < 3; i++ {
		n, err := src.ReadAvailable(buf)
		if n != 0 || err != nil {
			t.Fatalf("silent ReadAvailable()=(%d, %v) want (0, nil)", n, err)
		}
	}
}

func TestReadAvailableDrainsQueuedBytes(t *testing.T) {
	master, slavePath := openPTY(t)
	defer master.Close()

	src, err := openPort(slavePath, 9600)
	if err != nil {
		t.Fatalf("openPort() error: %v", err)
	}
	defer src.Close()

	sent := []byte("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n")
	if _, err := master.Write(sent); err != nil {
		t.Fatalf("master write: %v", err)
	}

	// The kernel delivers the bytes asynchronously; poll briefly.
	got := make([]byte, 0, len(sent))
	buf := make([]byte, 64)
	deadline := time.Now().Add(time.Second)
	for len(got) < len(sent) && time.Now().Before(deadline) {
		n, err := src.ReadAvailable(buf)
		if err != nil {
			t.Fatalf("ReadAvailable() error: %v", err)
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != string(sent) {
		t.Fatalf("read %q want %q", got, sent)
	}
}
