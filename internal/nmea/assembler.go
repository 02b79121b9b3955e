package nmea

// maxLineBytes matches the receiver-side buffer: NMEA sentences are at most
// 82 characters, so 128 gives headroom without letting junk accumulate.
const maxLineBytes = 128

// Assembler reassembles framed NMEA lines from an arbitrary sequence of byte
// bursts. A line is a maximal run of bytes ending in CR or LF; empty lines
// produce nothing.
//
// The assembler holds a single fixed-size buffer. If no terminator arrives
// within the buffer size, the in-flight line is discarded and reassembly
// resumes at the next terminator.
//
// Not safe for concurrent use.
type Assembler struct {
	buf     [maxLineBytes]byte
	n       int
	discard bool
}

// Feed consumes a burst of bytes and calls emit once per completed line.
// The slice passed to emit aliases the internal buffer and is only valid for
// the duration of the call.
func (a *Assembler) Feed(p []byte, emit func(line []byte)) {
	for _, c := range p {
		if c == '\r' || c == '\n' {
			if a.discard {
				// Overflowed line ends here; resume normally.
				a.discard = false
				a.n = 0
				continue
			}
			if a.n > 0 {
				emit(a.buf[:a.n])
				a.n = 0
			}
			continue
		}
		if a.discard {
			continue
		}
		if a.n >= len(a.buf) {
			// No terminator within the buffer: drop the in-flight line.
			a.discard = true
			a.n = 0
			continue
		}
		a.buf[a.n] = c
		a.n++
	}
}

// Reset drops any in-flight partial line.
func (a *Assembler) Reset() {
	a.n = 0
	a.discard = false
}
