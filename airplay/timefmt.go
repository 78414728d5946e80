package airplay

import (
	"fmt"
	"strconv"
	"strings"
)

// HMSToSec converts an AVTransport time value (H:MM:SS or H:MM:SS.mmm)
// to seconds. Unknown values such as "NOT_IMPLEMENTED" or an empty
// string yield 0.
func HMSToSec(hms string) float64 {
	parts := strings.Split(strings.TrimSpace(hms), ":")
	if len(parts) != 3 {
		return 0
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || s < 0 || s >= 60 {
		return 0
	}

	return float64(h)*3600 + float64(m)*60 + s
}

// SecToHMS renders seconds as the H:MM:SS value AVTransport expects.
func SecToHMS(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
