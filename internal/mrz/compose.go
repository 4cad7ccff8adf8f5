package mrz

import (
	"fmt"
	"strings"
	"time"
)

// Fields is the input of Compose. Dates are rendered as YYMMDD; Sex is the
// single-letter code (M, F, X or filler).
type Fields struct {
	DocumentType    string
	IssuingCountry  string
	Surnames        string
	GivenNames      string
	DocumentNumber  string
	Nationality     string
	Birthdate       time.Time
	Sex             byte
	ExpiryDate      time.Time
	PersonalNumber  string
	PersonalNumber2 string
}

// Compose renders fields as the lines of the given format, computing every
// check digit the layout defines. Values longer than their field are
// truncated, as issuing authorities do for names.
func Compose(format Format, f Fields) ([]string, error) {
	l := LayoutFor(format)
	if l == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, format)
	}
	if len(f.DocumentNumber) > l.documentNumber.Length {
		return nil, fmt.Errorf("document number %q exceeds %d characters", f.DocumentNumber, l.documentNumber.Length)
	}

	buf := make([][]byte, l.Lines)
	for i := range buf {
		buf[i] = []byte(strings.Repeat(string(Filler), l.Width))
	}
	put := func(s span, value string) {
		if !s.present() {
			return
		}
		value = strings.ToUpper(strings.ReplaceAll(value, " ", string(Filler)))
		if len(value) > s.Length {
			value = value[:s.Length]
		}
		copy(buf[s.Line][s.Start:s.end()], value)
	}
	putCheck := func(s, field span) error {
		if !s.present() {
			return nil
		}
		c, err := CheckDigit(string(buf[field.Line][field.Start:field.end()]))
		if err != nil {
			return err
		}
		buf[s.Line][s.Start] = c
		return nil
	}

	sex := f.Sex
	if sex == 0 {
		sex = Filler
	}

	put(l.documentType, f.DocumentType)
	put(l.issuingCountry, f.IssuingCountry)
	put(l.names, composeNames(f.Surnames, f.GivenNames))
	put(l.documentNumber, f.DocumentNumber)
	put(l.nationality, f.Nationality)
	put(l.birthdate, f.Birthdate.Format("060102"))
	put(l.sex, string(sex))
	put(l.expiryDate, f.ExpiryDate.Format("060102"))
	put(l.personalNumber, f.PersonalNumber)
	put(l.personalNumber2, f.PersonalNumber2)

	for _, c := range [][2]span{
		{l.documentNumberCheck, l.documentNumber},
		{l.birthdateCheck, l.birthdate},
		{l.expiryDateCheck, l.expiryDate},
		{l.personalNumberCheck, l.personalNumber},
	} {
		if err := putCheck(c[0], c[1]); err != nil {
			return nil, err
		}
	}

	if l.compositeCheck.present() {
		var composite []byte
		for _, s := range l.composite {
			composite = append(composite, buf[s.Line][s.Start:s.end()]...)
		}
		c, err := CheckDigit(string(composite))
		if err != nil {
			return nil, err
		}
		buf[l.compositeCheck.Line][l.compositeCheck.Start] = c
	}

	lines := make([]string, len(buf))
	for i, b := range buf {
		lines[i] = string(b)
	}
	return lines, nil
}

func composeNames(surnames, givenNames string) string {
	primary := strings.Join(strings.Fields(surnames), string(Filler))
	secondary := strings.Join(strings.Fields(givenNames), string(Filler))
	if secondary == "" {
		return primary
	}
	return primary + "<<" + secondary
}
