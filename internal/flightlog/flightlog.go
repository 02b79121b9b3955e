// Package flightlog records the per-tick state of the autopilot to a
// line-oriented CSV file for post-flight analysis.
//
// Log format:
//   - Lines starting with '#' are comments; the first line names the columns.
//   - Data lines are written at a decimated rate (every Nth control tick).
package flightlog

import (
	"bufio"
	"fmt"
	"os"

	"gps-autopilot/internal/control"
	"gps-autopilot/internal/geo"
	"gps-autopilot/internal/nav"
)

const header = "# t_ms,mode,fix_valid,lat_deg,lon_deg,range_m,bearing_deg,alt_agl_m,speed_ms,track_deg,roll_cmd,motor_cmd\n"

type Writer struct {
	f     *os.File
	w     *bufio.Writer
	every int
	tick  int
}

// Create opens the log file, truncating any previous flight. everyNTicks
// decimates the 50 Hz loop; values below 1 log every tick.
func Create(path string, everyNTicks int) (*Writer, error) {
	if everyNTicks < 1 {
		everyNTicks = 1
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, every: everyNTicks}, nil
}

// Log records one control tick. Only every Nth call produces a line.
func (w *Writer) Log(nowMS int64, st nav.State, cs control.Snapshot) error {
	w.tick++
	if w.tick%w.every != 0 {
		return nil
	}
	fixValid := 0
	if st.FixValid {
		fixValid = 1
	}
	_, err := fmt.Fprintf(w.w, "%d,%s,%d,%.6f,%.6f,%.1f,%.1f,%.1f,%.2f,%.1f,%.3f,%.3f\n",
		nowMS, cs.Mode, fixValid,
		st.LatDeg, st.LonDeg,
		st.RangeFromDatum, st.BearingToDatum*geo.RadToDeg,
		st.AltAboveDatumM, st.GroundSpeedMS, st.GroundTrackRad*geo.RadToDeg,
		cs.RollCmd, cs.MotorCmd)
	return err
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if w == nil || w.f == nil {
		return nil
	}
	ferr := w.w.Flush()
	cerr := w.f.Close()
	w.f = nil
	if ferr != nil {
		return ferr
	}
	return cerr
}
