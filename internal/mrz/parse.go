package mrz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnrecognizedFormat is returned when a line set matches no layout.
var ErrUnrecognizedFormat = errors.New("unrecognized MRZ format")

// Parser decodes line sets into Results.
type Parser struct {
	ocrCorrection bool
	now           func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithOCRCorrection toggles the OCR-confusion correction. Enabled by default.
func WithOCRCorrection(enabled bool) Option {
	return func(p *Parser) { p.ocrCorrection = enabled }
}

// WithClock sets the reference time used to resolve two-digit years.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{ocrCorrection: true, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse decodes candidate lines with the default parser.
func Parse(lines []string) (*Result, error) {
	return defaultParser.Parse(lines)
}

// Parse matches lines against the known layouts, decodes every field and
// recomputes the check digits. An error is returned only when no layout
// matches; failed check digits are reported through Result.Checks.
func (p *Parser) Parse(lines []string) (*Result, error) {
	set, err := NewLineSet(lines)
	if err != nil {
		return nil, err
	}
	return p.ParseSet(set)
}

// ParseSet decodes an already validated line set.
func (p *Parser) ParseSet(set LineSet) (*Result, error) {
	layout := matchLayout(set)
	if layout == nil {
		return nil, fmt.Errorf("%w: %d x %d", ErrUnrecognizedFormat, set.Len(), set.Width())
	}

	lines := set.Lines()
	if p.ocrCorrection {
		lines = layout.correctLines(lines)
	}

	docNumber := slice(lines, layout.documentNumber)
	docNumberCheck := at(lines, layout.documentNumberCheck)
	personalNumber := slice(lines, layout.personalNumber)
	if layout.Format == FormatTD1 && docNumberCheck == Filler {
		docNumber, docNumberCheck, personalNumber = extendDocumentNumber(docNumber, personalNumber)
	}

	surnames, givenNames := decodeNames(slice(lines, layout.names))
	ref := p.now()

	res := &Result{
		Format:                 layout.Format,
		DocumentType:           trimFiller(slice(lines, layout.documentType)),
		CountryCode:            trimFiller(slice(lines, layout.issuingCountry)),
		Surnames:               surnames,
		GivenNames:             givenNames,
		DocumentNumber:         trimFiller(docNumber),
		NationalityCountryCode: trimFiller(slice(lines, layout.nationality)),
		Birthdate:              decodeBirthdate(slice(lines, layout.birthdate), ref),
		Sex:                    decodeSex(at(lines, layout.sex)),
		ExpiryDate:             decodeExpiryDate(slice(lines, layout.expiryDate), ref),
		PersonalNumber:         trimFiller(personalNumber),
		Lines:                  lines,
	}
	if layout.personalNumber2.present() {
		if pn2 := trimFiller(slice(lines, layout.personalNumber2)); pn2 != "" {
			res.PersonalNumber2 = &pn2
		}
	}

	res.Checks = layout.validate(lines, docNumber, docNumberCheck)
	res.AllCheckDigitsValid = res.Checks.All()
	return res, nil
}

// extendDocumentNumber resolves a TD1 document number longer than nine
// characters: its tail continues in the optional data up to the first
// filler, and the last character of that run is the check digit.
func extendDocumentNumber(principal, optional string) (number string, checkDigit byte, rest string) {
	end := strings.IndexByte(optional, Filler)
	if end < 0 {
		end = len(optional)
	}
	if end == 0 {
		return principal, Filler, optional
	}
	return principal + optional[:end-1], optional[end-1], optional[end:]
}

// decodeNames splits the name field into the primary identifier (before the
// first "<<") and the secondary identifiers. Single fillers inside either
// part become spaces; trailing filler is dropped.
func decodeNames(field string) (surnames, givenNames string) {
	field = strings.TrimRight(field, string(Filler))
	primary, secondary, _ := strings.Cut(field, "<<")
	return joinComponents(primary), joinComponents(secondary)
}

func joinComponents(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == Filler }), " ")
}

func trimFiller(s string) string {
	return strings.Trim(s, string(Filler))
}

// decodeDate parses YYMMDD in the given century, returning nil for
// non-numeric input and impossible calendar dates.
func decodeDate(s string, century int) *time.Time {
	if len(s) != 6 {
		return nil
	}
	var n [3]int
	for i := 0; i < 3; i++ {
		hi, lo := s[2*i], s[2*i+1]
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			return nil
		}
		n[i] = int(hi-'0')*10 + int(lo-'0')
	}
	year, month, day := century+n[0], time.Month(n[1]), n[2]
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return nil
	}
	return &t
}

// decodeBirthdate places the date in the most recent century that does not
// put the birth after the reference time.
func decodeBirthdate(s string, ref time.Time) *time.Time {
	if t := decodeDate(s, 2000); t != nil && !t.After(ref) {
		return t
	}
	return decodeDate(s, 1900)
}

// decodeExpiryDate assumes the current century unless that lands more than
// fifty years past the reference time.
func decodeExpiryDate(s string, ref time.Time) *time.Time {
	century := 2000
	if yy := twoDigits(s); yy >= 0 && 2000+yy > ref.Year()+50 {
		century = 1900
	}
	return decodeDate(s, century)
}

func twoDigits(s string) int {
	if len(s) < 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return -1
	}
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
