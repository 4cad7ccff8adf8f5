// Package mrz decodes and validates ICAO 9303 machine-readable zones.
//
// The package is pure: every function is a deterministic transformation of
// its input and the immutable layout tables below, so a Parser may be shared
// freely between goroutines.
package mrz

import (
	"fmt"
	"strings"
)

// Filler pads fixed-width fields and separates name components.
const Filler = '<'

// Format identifies one of the supported MRZ layouts.
type Format int

const (
	FormatUnknown Format = iota
	FormatTD1            // ID card, 3 x 30
	FormatTD2            // ID card, 2 x 36
	FormatTD3            // passport, 2 x 44
	FormatMRVA           // visa, 2 x 44
	FormatMRVB           // visa, 2 x 36
)

func (f Format) String() string {
	switch f {
	case FormatTD1:
		return "TD1"
	case FormatTD2:
		return "TD2"
	case FormatTD3:
		return "TD3"
	case FormatMRVA:
		return "MRV-A"
	case FormatMRVB:
		return "MRV-B"
	default:
		return "Unknown"
	}
}

// ParseFormat is the inverse of Format.String. It accepts the names case
// insensitively, with or without the hyphen.
func ParseFormat(name string) (Format, error) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", ""))
	for _, f := range []Format{FormatTD1, FormatTD2, FormatTD3, FormatMRVA, FormatMRVB} {
		if strings.ReplaceAll(f.String(), "-", "") == key {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, name)
}

// fieldKind selects the OCR-confusion correction applied to a span.
type fieldKind int

const (
	kindAlnum   fieldKind = iota // mixed content, left untouched
	kindAlpha                    // letters and filler only
	kindNumeric                  // digits only (dates, check digits)
)

// span is a fixed column range on one MRZ line. A zero Length marks a field
// the layout does not carry.
type span struct {
	Line   int
	Start  int
	Length int
	Kind   fieldKind
}

func (s span) present() bool { return s.Length > 0 }

func (s span) end() int { return s.Start + s.Length }

// Layout is the column-to-field map of one format.
type Layout struct {
	Format Format
	Lines  int
	Width  int

	documentType    span
	issuingCountry  span
	names           span
	documentNumber  span
	nationality     span
	birthdate       span
	sex             span
	expiryDate      span
	personalNumber  span
	personalNumber2 span

	documentNumberCheck span
	birthdateCheck      span
	expiryDateCheck     span
	personalNumberCheck span
	compositeCheck      span

	// composite lists the spans concatenated for the composite check digit.
	composite []span
}

func alpha(line, start, length int) span   { return span{line, start, length, kindAlpha} }
func numeric(line, start, length int) span { return span{line, start, length, kindNumeric} }
func alnum(line, start, length int) span   { return span{line, start, length, kindAlnum} }
func check(line, col int) span             { return numeric(line, col, 1) }

var layoutTD1 = Layout{
	Format: FormatTD1, Lines: 3, Width: 30,

	documentType:        alpha(0, 0, 2),
	issuingCountry:      alpha(0, 2, 3),
	documentNumber:      alnum(0, 5, 9),
	documentNumberCheck: check(0, 14),
	personalNumber:      alnum(0, 15, 15),

	birthdate:       numeric(1, 0, 6),
	birthdateCheck:  check(1, 6),
	sex:             alnum(1, 7, 1),
	expiryDate:      numeric(1, 8, 6),
	expiryDateCheck: check(1, 14),
	nationality:     alpha(1, 15, 3),
	personalNumber2: alnum(1, 18, 11),
	compositeCheck:  check(1, 29),

	names: alpha(2, 0, 30),

	composite: []span{alnum(0, 5, 25), alnum(1, 0, 7), alnum(1, 8, 7), alnum(1, 18, 11)},
}

var layoutTD2 = Layout{
	Format: FormatTD2, Lines: 2, Width: 36,

	documentType:   alpha(0, 0, 2),
	issuingCountry: alpha(0, 2, 3),
	names:          alpha(0, 5, 31),

	documentNumber:      alnum(1, 0, 9),
	documentNumberCheck: check(1, 9),
	nationality:         alpha(1, 10, 3),
	birthdate:           numeric(1, 13, 6),
	birthdateCheck:      check(1, 19),
	sex:                 alnum(1, 20, 1),
	expiryDate:          numeric(1, 21, 6),
	expiryDateCheck:     check(1, 27),
	personalNumber:      alnum(1, 28, 7),
	compositeCheck:      check(1, 35),

	composite: []span{alnum(1, 0, 10), alnum(1, 13, 7), alnum(1, 21, 14)},
}

var layoutTD3 = Layout{
	Format: FormatTD3, Lines: 2, Width: 44,

	documentType:   alpha(0, 0, 2),
	issuingCountry: alpha(0, 2, 3),
	names:          alpha(0, 5, 39),

	documentNumber:      alnum(1, 0, 9),
	documentNumberCheck: check(1, 9),
	nationality:         alpha(1, 10, 3),
	birthdate:           numeric(1, 13, 6),
	birthdateCheck:      check(1, 19),
	sex:                 alnum(1, 20, 1),
	expiryDate:          numeric(1, 21, 6),
	expiryDateCheck:     check(1, 27),
	personalNumber:      alnum(1, 28, 14),
	personalNumberCheck: check(1, 42),
	compositeCheck:      check(1, 43),

	composite: []span{alnum(1, 0, 10), alnum(1, 13, 7), alnum(1, 21, 22)},
}

var layoutMRVA = Layout{
	Format: FormatMRVA, Lines: 2, Width: 44,

	documentType:   alpha(0, 0, 2),
	issuingCountry: alpha(0, 2, 3),
	names:          alpha(0, 5, 39),

	documentNumber:      alnum(1, 0, 9),
	documentNumberCheck: check(1, 9),
	nationality:         alpha(1, 10, 3),
	birthdate:           numeric(1, 13, 6),
	birthdateCheck:      check(1, 19),
	sex:                 alnum(1, 20, 1),
	expiryDate:          numeric(1, 21, 6),
	expiryDateCheck:     check(1, 27),
	personalNumber:      alnum(1, 28, 16),
}

var layoutMRVB = Layout{
	Format: FormatMRVB, Lines: 2, Width: 36,

	documentType:   alpha(0, 0, 2),
	issuingCountry: alpha(0, 2, 3),
	names:          alpha(0, 5, 31),

	documentNumber:      alnum(1, 0, 9),
	documentNumberCheck: check(1, 9),
	nationality:         alpha(1, 10, 3),
	birthdate:           numeric(1, 13, 6),
	birthdateCheck:      check(1, 19),
	sex:                 alnum(1, 20, 1),
	expiryDate:          numeric(1, 21, 6),
	expiryDateCheck:     check(1, 27),
	personalNumber:      alnum(1, 28, 8),
}

var layouts = []*Layout{&layoutTD1, &layoutTD2, &layoutTD3, &layoutMRVA, &layoutMRVB}

// LayoutFor returns the layout table of f, or nil for FormatUnknown.
func LayoutFor(f Format) *Layout {
	for _, l := range layouts {
		if l.Format == f {
			return l
		}
	}
	return nil
}

// matchLayout selects the layout for a line set. TD3/MRV-A and TD2/MRV-B
// share their geometry, so the document type code decides between them.
func matchLayout(set LineSet) *Layout {
	visa := len(set.lines[0]) > 0 && set.lines[0][0] == 'V'
	for _, l := range layouts {
		if l.Lines != set.Len() || l.Width != set.Width() {
			continue
		}
		isVisaLayout := l.Format == FormatMRVA || l.Format == FormatMRVB
		if l.Lines == 2 && isVisaLayout != visa {
			continue
		}
		return l
	}
	return nil
}
