package mrz

// OCR-B glyph pairs that Tesseract commonly swaps on MRZ text. Numeric
// fields map letters to the digit they resemble; alphabetic fields map the
// other way. Mixed fields (document and personal numbers) are never touched
// since either reading may be correct there.
var (
	letterToDigit = map[byte]byte{
		'O': '0', 'Q': '0', 'D': '0',
		'I': '1', 'L': '1',
		'Z': '2',
		'S': '5',
		'G': '6',
		'B': '8',
	}
	digitToLetter = map[byte]byte{
		'0': 'O',
		'1': 'I',
		'2': 'Z',
		'5': 'S',
		'6': 'G',
		'8': 'B',
	}
)

// correct rewrites the characters of one field according to its kind.
func correct(field []byte, kind fieldKind) {
	var table map[byte]byte
	switch kind {
	case kindNumeric:
		table = letterToDigit
	case kindAlpha:
		table = digitToLetter
	default:
		return
	}
	for i, c := range field {
		if r, ok := table[c]; ok {
			field[i] = r
		}
	}
}

// correctLines returns copies of lines with every field of the layout
// corrected in place.
func (l *Layout) correctLines(lines []string) []string {
	buf := make([][]byte, len(lines))
	for i, line := range lines {
		buf[i] = []byte(line)
	}
	for _, s := range l.spans() {
		if !s.present() {
			continue
		}
		correct(buf[s.Line][s.Start:s.end()], s.Kind)
	}
	out := make([]string, len(buf))
	for i, b := range buf {
		out[i] = string(b)
	}
	return out
}

func (l *Layout) spans() []span {
	return []span{
		l.documentType, l.issuingCountry, l.names, l.documentNumber,
		l.nationality, l.birthdate, l.sex, l.expiryDate,
		l.personalNumber, l.personalNumber2,
		l.documentNumberCheck, l.birthdateCheck, l.expiryDateCheck,
		l.personalNumberCheck, l.compositeCheck,
	}
}
