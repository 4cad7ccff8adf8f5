package scanner

import (
	"time"

	"github.com/disintegration/imaging"

	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/mrz"
)

// Host dictionary keys.
const (
	KeyDocumentImage          = "documentImage"
	KeyFaceImage              = "faceImage"
	KeyDocumentType           = "documentType"
	KeyCountryCode            = "countryCode"
	KeySurname                = "surname"
	KeyGivenName              = "givenName"
	KeyDocumentNumber         = "documentNumber"
	KeyNationalityCountryCode = "nationalityCountryCode"
	KeyBirthdate              = "birthdate"
	KeySex                    = "sex"
	KeyExpiryDate             = "expiryDate"
	KeyPersonalNumber         = "personalNumber"
	KeyPersonalNumber2        = "personalNumber2"
)

// HostDictionary flattens an outcome into the string mapping delivered to
// the host. Images are JPEG-encoded at full quality and base64-wrapped;
// they are left out when includeImages is false. Absent dates are "", an
// absent sex is "-" and an absent second personal number is "".
func HostDictionary(o *Outcome, includeImages bool) (map[string]string, error) {
	dict := ResultDictionary(o.Result)
	if !includeImages {
		return dict, nil
	}

	doc := ""
	if o.DocumentImage != nil {
		enc, err := mrzimage.EncodeBase64(o.DocumentImage, imaging.JPEG)
		if err != nil {
			return nil, err
		}
		doc = enc
	}
	dict[KeyDocumentImage] = doc

	if o.FaceImage != nil {
		enc, err := mrzimage.EncodeBase64(o.FaceImage, imaging.JPEG)
		if err != nil {
			return nil, err
		}
		dict[KeyFaceImage] = enc
	}
	return dict, nil
}

// ResultDictionary flattens the parsed fields alone.
func ResultDictionary(r *mrz.Result) map[string]string {
	sex := "-"
	if r.Sex != nil {
		sex = string(*r.Sex)
	}
	pn2 := ""
	if r.PersonalNumber2 != nil {
		pn2 = *r.PersonalNumber2
	}
	return map[string]string{
		KeyDocumentType:           r.DocumentType,
		KeyCountryCode:            r.CountryCode,
		KeySurname:                r.Surnames,
		KeyGivenName:              r.GivenNames,
		KeyDocumentNumber:         r.DocumentNumber,
		KeyNationalityCountryCode: r.NationalityCountryCode,
		KeyBirthdate:              formatDate(r.Birthdate),
		KeySex:                    sex,
		KeyExpiryDate:             formatDate(r.ExpiryDate),
		KeyPersonalNumber:         r.PersonalNumber,
		KeyPersonalNumber2:        pn2,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
