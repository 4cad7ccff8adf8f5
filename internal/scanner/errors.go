package scanner

import "errors"

// Per-frame rejections. None of them is surfaced to the host: the frame is
// dropped and the next one retried.
var (
	ErrNoTextRegion       = errors.New("no text region")
	ErrOCRFailure         = errors.New("OCR failure")
	ErrUnrecognizedFormat = errors.New("unrecognized MRZ format")
	ErrChecksumInvalid    = errors.New("MRZ check digits invalid")
)

var rejections = []error{ErrNoTextRegion, ErrOCRFailure, ErrUnrecognizedFormat, ErrChecksumInvalid}

// IsRejection reports whether err is a silent-retry condition.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}

// RejectionReason returns a short label for a rejection, or "" when err is
// not one. Labels are used as log fields and metric label values.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoTextRegion):
		return "no_text_region"
	case errors.Is(err, ErrOCRFailure):
		return "ocr_failure"
	case errors.Is(err, ErrUnrecognizedFormat):
		return "unrecognized_format"
	case errors.Is(err, ErrChecksumInvalid):
		return "checksum_invalid"
	}
	return ""
}

// RejectionReasons lists every label RejectionReason can return.
func RejectionReasons() []string {
	reasons := make([]string, len(rejections))
	for i, err := range rejections {
		reasons[i] = RejectionReason(err)
	}
	return reasons
}
