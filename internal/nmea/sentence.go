package nmea

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Sentence is a framed NMEA sentence split into its comma-separated fields.
// Type is the trailing three characters of the address field ("GGA", "RMC"),
// so GP and GN talkers are treated alike.
type Sentence struct {
	Type   string
	Fields []string
}

// ParseSentence validates the framing of a single NMEA line and splits it
// into fields. If a `*hh` checksum is present it must match; a sentence
// without a checksum is accepted and left to field-level validation.
func ParseSentence(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Sentence{}, fmt.Errorf("nmea: missing '$'")
	}

	payload := line[1:]
	if star := strings.LastIndexByte(payload, '*'); star != -1 {
		ck := strings.TrimSpace(payload[star+1:])
		payload = payload[:star]
		if len(ck) < 2 {
			return Sentence{}, fmt.Errorf("nmea: short checksum")
		}
		want, err := hex.DecodeString(ck[:2])
		if err != nil || len(want) != 1 {
			return Sentence{}, fmt.Errorf("nmea: bad checksum")
		}
		if Checksum(payload) != want[0] {
			return Sentence{}, fmt.Errorf("nmea: checksum mismatch")
		}
	}

	parts := strings.Split(payload, ",")
	typeField := parts[0]
	if len(typeField) < 3 {
		return Sentence{}, fmt.Errorf("nmea: short type")
	}
	t := typeField
	if len(t) > 3 {
		t = t[len(t)-3:]
	}
	return Sentence{Type: strings.ToUpper(t), Fields: parts}, nil
}

// Checksum returns the XOR of all payload bytes (the text between '$' and '*').
func Checksum(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseLatLon parses NMEA ddmm.mmmm (latitude) or dddmm.mmmm (longitude)
// plus hemisphere into signed decimal degrees.
func parseLatLon(v, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.TrimSpace(strings.ToUpper(hemi))
	if v == "" || (hemi != "N" && hemi != "S" && hemi != "E" && hemi != "W") {
		return 0, false
	}

	// The last two digits of the integer part are whole minutes.
	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, true
}
