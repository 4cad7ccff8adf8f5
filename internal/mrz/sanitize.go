package mrz

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoLines is returned when OCR text holds no usable MRZ line.
var ErrNoLines = errors.New("no MRZ lines in recognized text")

// SanitizeLines turns raw OCR output into candidate MRZ lines: spaces are
// removed, empty lines dropped, and every line shorter than the (integer)
// average line length is discarded as header or border noise. Width
// consistency is left to Parse.
func SanitizeLines(text string) ([]string, error) {
	text = strings.ReplaceAll(text, " ", "")

	var lines []string
	total := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		total += utf8.RuneCountInString(line)
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	average := total / len(lines)
	kept := lines[:0]
	for _, line := range lines {
		if utf8.RuneCountInString(line) >= average {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoLines
	}
	return kept, nil
}
