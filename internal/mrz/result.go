package mrz

import "time"

// Sex is the decoded holder sex.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

func decodeSex(c byte) *Sex {
	var s Sex
	switch c {
	case 'M':
		s = SexMale
	case 'F':
		s = SexFemale
	default:
		return nil
	}
	return &s
}

// Result is a decoded MRZ. Nullable fields are nil when the MRZ carries an
// implausible value; that does not fail the parse, it only surfaces through
// the check digit outcomes.
type Result struct {
	Format                 Format
	DocumentType           string
	CountryCode            string
	Surnames               string
	GivenNames             string
	DocumentNumber         string
	NationalityCountryCode string
	Birthdate              *time.Time
	Sex                    *Sex
	ExpiryDate             *time.Time
	PersonalNumber         string
	PersonalNumber2        *string

	Checks              Validity
	AllCheckDigitsValid bool

	// Lines are the corrected lines the fields were decoded from.
	Lines []string
}
