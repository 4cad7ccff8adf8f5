package mrz

import (
	"fmt"
	"strings"
)

// LineSet is an immutable, validated group of MRZ lines: two or three lines
// of identical width, each 30, 36 or 44 characters of the MRZ alphabet.
type LineSet struct {
	lines []string
}

// NewLineSet validates lines and wraps an uppercased copy of them.
func NewLineSet(lines []string) (LineSet, error) {
	upper := make([]string, len(lines))
	for i, line := range lines {
		upper[i] = strings.ToUpper(line)
	}
	lines = upper
	if len(lines) < 2 || len(lines) > 3 {
		return LineSet{}, fmt.Errorf("%w: %d lines", ErrUnrecognizedFormat, len(lines))
	}
	width := len(lines[0])
	switch width {
	case 30, 36, 44:
	default:
		return LineSet{}, fmt.Errorf("%w: line width %d", ErrUnrecognizedFormat, width)
	}
	for i, line := range lines {
		if len(line) != width {
			return LineSet{}, fmt.Errorf("%w: line %d has width %d, want %d",
				ErrUnrecognizedFormat, i+1, len(line), width)
		}
		for j := 0; j < len(line); j++ {
			if _, ok := CharValue(line[j]); !ok {
				return LineSet{}, fmt.Errorf("%w: line %d has invalid character %q",
					ErrUnrecognizedFormat, i+1, line[j])
			}
		}
	}
	return LineSet{lines: lines}, nil
}

// Len returns the number of lines.
func (s LineSet) Len() int { return len(s.lines) }

// Width returns the shared line width.
func (s LineSet) Width() int {
	if len(s.lines) == 0 {
		return 0
	}
	return len(s.lines[0])
}

// Lines returns a copy of the lines.
func (s LineSet) Lines() []string { return append([]string(nil), s.lines...) }

func (s LineSet) String() string { return strings.Join(s.lines, "\n") }
