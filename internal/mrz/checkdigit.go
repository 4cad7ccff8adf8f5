package mrz

import "fmt"

var checkWeights = [3]int{7, 3, 1}

// CharValue returns the ICAO 9303 numeric value of an MRZ character:
// digits map to themselves, A-Z to 10-35 and the filler to 0.
func CharValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == Filler:
		return 0, true
	}
	return 0, false
}

// CheckDigit computes the weighted modulo-10 check digit of s.
func CheckDigit(s string) (byte, error) {
	sum := 0
	for i := 0; i < len(s); i++ {
		v, ok := CharValue(s[i])
		if !ok {
			return 0, fmt.Errorf("invalid MRZ character %q at position %d", s[i], i)
		}
		sum += v * checkWeights[i%3]
	}
	return byte('0' + sum%10), nil
}

// ValidateCheckDigit reports whether the declared check digit matches the
// value computed over field. Characters outside the MRZ alphabet never
// validate.
func ValidateCheckDigit(field string, declared byte) bool {
	want, err := CheckDigit(field)
	if err != nil {
		return false
	}
	return declared == want
}

// validateOptional applies the relaxed rule for optional fields: a filler
// check digit is accepted when the whole field is filler.
func validateOptional(field string, declared byte) bool {
	if declared == Filler && isAllFiller(field) {
		return true
	}
	return ValidateCheckDigit(field, declared)
}

func isAllFiller(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != Filler {
			return false
		}
	}
	return true
}

// Validity holds the per-field check digit outcomes. Checks that the layout
// does not define are reported as valid.
type Validity struct {
	DocumentNumber bool `json:"documentNumber"`
	Birthdate      bool `json:"birthdate"`
	ExpiryDate     bool `json:"expiryDate"`
	PersonalNumber bool `json:"personalNumber"`
	Composite      bool `json:"composite"`
}

// All reports whether every check passed.
func (v Validity) All() bool {
	return v.DocumentNumber && v.Birthdate && v.ExpiryDate && v.PersonalNumber && v.Composite
}

// validate recomputes every check digit the layout defines over the
// corrected lines. docNumber/docNumberCheck carry the (possibly extended)
// document number resolved by the parser.
func (l *Layout) validate(lines []string, docNumber string, docNumberCheck byte) Validity {
	v := Validity{
		DocumentNumber: ValidateCheckDigit(docNumber, docNumberCheck),
		Birthdate:      ValidateCheckDigit(slice(lines, l.birthdate), at(lines, l.birthdateCheck)),
		ExpiryDate:     ValidateCheckDigit(slice(lines, l.expiryDate), at(lines, l.expiryDateCheck)),
		PersonalNumber: true,
		Composite:      true,
	}
	if l.personalNumberCheck.present() {
		v.PersonalNumber = validateOptional(slice(lines, l.personalNumber), at(lines, l.personalNumberCheck))
	}
	if l.compositeCheck.present() {
		var composite []byte
		for _, s := range l.composite {
			composite = append(composite, slice(lines, s)...)
		}
		v.Composite = ValidateCheckDigit(string(composite), at(lines, l.compositeCheck))
	}
	return v
}

func slice(lines []string, s span) string {
	if !s.present() {
		return ""
	}
	return lines[s.Line][s.Start:s.end()]
}

func at(lines []string, s span) byte {
	return lines[s.Line][s.Start]
}
