// Package timecode converts between HH:MM:SS:FF timecode strings and
// absolute frame counts. All modulus arithmetic uses the frame rate
// rounded to the nearest integer, matching the NLE's own display
// convention for fractional rates like 23.976 or 29.97.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse converts a 4-field timecode string to an absolute frame count.
// Both ":" and ";" (drop-frame) delimiters are accepted and treated
// identically. Anything other than exactly four integer fields returns
// ok=false; callers must treat that as "timecode unavailable", not zero.
func Parse(tc string, rate float64) (int, bool) {
	parts := strings.Split(strings.ReplaceAll(tc, ";", ":"), ":")
	if len(parts) != 4 {
		return 0, false
	}

	fields := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, false
		}
		fields[i] = n
	}

	r := int(math.Round(rate))
	h, m, s, f := fields[0], fields[1], fields[2], fields[3]
	return (h*3600+m*60+s)*r + f, true
}

// Format converts an absolute frame count to a timecode string.
// Negative frame counts are clamped to zero, and a non-positive rate
// yields a fixed zero timecode so the output is always well formed.
func Format(frames int, rate float64) string {
	r := int(math.Round(rate))
	if r <= 0 {
		return "00:00:00:00"
	}
	if frames < 0 {
		frames = 0
	}

	f := frames % r
	s := (frames / r) % 60
	m := (frames / (r * 60)) % 60
	h := frames / (r * 3600)
	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}
