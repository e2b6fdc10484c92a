package x837

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// NoteCode is a three-digit TA1 envelope note code, per §4.5.
type NoteCode string

const (
	NoteICNMismatch               NoteCode = "001"
	NoteInvalidSegmentTerminator  NoteCode = "004"
	NoteInvalidSenderQualifier    NoteCode = "005"
	NoteInvalidSenderID           NoteCode = "006"
	NoteInvalidReceiverQualifier  NoteCode = "007"
	NoteInvalidReceiverID         NoteCode = "008"
	NoteInvalidAuthQualifier      NoteCode = "010"
	NoteInvalidAuthValue          NoteCode = "011"
	NoteInvalidSecurityQualifier  NoteCode = "012"
	NoteInvalidSecurityValue      NoteCode = "013"
	NoteInvalidInterchangeDate    NoteCode = "014"
	NoteInvalidInterchangeTime    NoteCode = "015"
	NoteInvalidStandardsID        NoteCode = "016"
	NoteInvalidVersionID          NoteCode = "017"
	NoteInvalidControlNumber      NoteCode = "018"
	NoteInvalidAckRequested       NoteCode = "019"
	NoteInvalidTestIndicator      NoteCode = "020"
	NoteInvalidGroupCount         NoteCode = "021"
	NoteInvalidControlStructure   NoteCode = "022"
	NoteInvalidElementSeparator   NoteCode = "026"
	NoteInvalidComponentSeparator NoteCode = "027"
	NoteAccepted                  NoteCode = "000"
)

var validSenderReceiverQualifiers = map[string]bool{
	"01": true, "14": true, "20": true, "27": true, "28": true,
	"29": true, "30": true, "33": true, "ZZ": true,
}

// ValidateEnvelope runs the TA1 envelope checks of §4.5 against an already
// decoded Interchange and the raw bytes it came from, returning the
// deduplicated list of note codes in the order each check first fired. The
// delimiter self-test runs first and, on failure, short-circuits every
// later check: a parsed Interchange built against unreliable delimiters is
// not trustworthy enough to inspect element by element.
func ValidateEnvelope(interchange *Interchange, raw string) []NoteCode {
	var codes []NoteCode
	seen := make(map[NoteCode]bool)
	add := func(code NoteCode) {
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	clean := strings.TrimSpace(raw)
	if !strings.HasPrefix(clean, "ISA") || len(clean) < isaFixedLength {
		add(NoteInvalidControlStructure)
		return codes
	}

	elementSep := clean[isaElementSeparatorIndex]
	componentSep := clean[isaComponentSepIndex]
	segmentTerm := clean[isaSegmentTermIndex]

	if !isValidDelimiterRune(rune(elementSep)) {
		add(NoteInvalidElementSeparator)
	}
	if !isValidDelimiterRune(rune(segmentTerm)) || segmentTerm == '\r' || segmentTerm == '\n' {
		add(NoteInvalidSegmentTerminator)
	}
	if !isValidDelimiterRune(rune(componentSep)) {
		add(NoteInvalidComponentSeparator)
	}
	if len(codes) > 0 {
		return codes
	}

	isa := interchange.Header
	iea := interchange.Trailer
	if isa == nil || iea == nil || len(isa.Elements) == 0 || len(iea.Elements) == 0 {
		add(NoteInvalidControlStructure)
		return codes
	}

	if strings.TrimSpace(isa.Element(13)) != strings.TrimSpace(iea.Element(2)) {
		add(NoteICNMismatch)
	}

	if !validSenderReceiverQualifiers[strings.TrimSpace(isa.Element(5))] {
		add(NoteInvalidSenderQualifier)
	}
	if strings.TrimSpace(isa.Element(6)) == "" {
		add(NoteInvalidSenderID)
	}
	if !validSenderReceiverQualifiers[strings.TrimSpace(isa.Element(7))] {
		add(NoteInvalidReceiverQualifier)
	}
	if strings.TrimSpace(isa.Element(8)) == "" {
		add(NoteInvalidReceiverID)
	}

	authQual := strings.TrimSpace(isa.Element(1))
	if authQual != "00" && authQual != "03" {
		add(NoteInvalidAuthQualifier)
	}
	authValue := strings.TrimSpace(isa.Element(2))
	if authQual == "03" && authValue == "" {
		add(NoteInvalidAuthValue)
	}
	if authQual == "00" && authValue != "" {
		add(NoteInvalidAuthValue)
	}

	securityQual := strings.TrimSpace(isa.Element(3))
	if securityQual != "00" && securityQual != "01" {
		add(NoteInvalidSecurityQualifier)
	}
	securityValue := strings.TrimSpace(isa.Element(4))
	if securityQual == "01" && securityValue == "" {
		add(NoteInvalidSecurityValue)
	}
	if securityQual == "00" && securityValue != "" {
		add(NoteInvalidSecurityValue)
	}

	if _, err := time.Parse("060102", isa.Element(9)); err != nil {
		add(NoteInvalidInterchangeDate)
	}
	if _, err := time.Parse("1504", isa.Element(10)); err != nil {
		add(NoteInvalidInterchangeTime)
	}

	if isa.Element(11) != "^" {
		add(NoteInvalidStandardsID)
	}
	versionID := isa.Element(12)
	if len(versionID) != 5 || !isAllDigits(versionID) {
		add(NoteInvalidVersionID)
	}

	icn := strings.TrimSpace(isa.Element(13))
	if len(icn) != 9 || !isAllDigits(icn) {
		add(NoteInvalidControlNumber)
	}

	if ack := isa.Element(14); ack != "0" && ack != "1" {
		add(NoteInvalidAckRequested)
	}
	if ind := isa.Element(15); ind != "T" && ind != "P" {
		add(NoteInvalidTestIndicator)
	}

	groupCount, err := strconv.Atoi(strings.TrimSpace(iea.Element(1)))
	if err != nil || groupCount != len(interchange.Groups) {
		add(NoteInvalidGroupCount)
	}

	return codes
}

// isValidDelimiterRune reports whether r is a legal single-character X12
// delimiter: a single non-alphanumeric printable character.
func isValidDelimiterRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return unicode.IsPrint(r)
}
