package x837

import (
	"fmt"
	"strings"
	"time"
)

const (
	ackAccepted = "A"
	ackRejected = "R"

	// ta1ComponentSeparator is the fixed outbound component separator for
	// generated acknowledgements; it is never negotiated with the sender.
	ta1ComponentSeparator = ">"
)

// GenerateTA1 builds a TA1 acknowledgement interchange for isa given the
// envelope errors already found for it, per §4.6. It returns ok == false
// when nothing should be generated: the suppression rule is errors empty
// AND ISA14 != "1" AND force == false.
//
// Unlike the envelope it is acknowledging, the response interchange's own
// delimiters are fixed at "*", ">", "~" rather than inherited — the
// generator does not negotiate delimiters with the sender.
func GenerateTA1(isa *Segment, errors []NoteCode, force bool) (string, bool) {
	if isa == nil || len(isa.Elements) < 16 {
		return "", false
	}

	ackRequested := strings.TrimSpace(isa.Element(14)) == "1"
	hasErrors := len(errors) > 0

	if !hasErrors && !ackRequested && !force {
		return "", false
	}

	ackCode := ackAccepted
	noteCode := NoteAccepted
	if hasErrors {
		ackCode = ackRejected
		noteCode = errors[0]
	}

	originalICN := zeroPadLeft(strings.TrimSpace(isa.Element(13)), 9)
	originalDate := isa.Element(9)
	originalTime := isa.Element(10)

	ta1Date := originalDate
	if len(originalDate) == 8 {
		ta1Date = originalDate[2:]
	}

	now := time.Now().UTC()
	responseDate := now.Format("060102")
	responseTime := now.Format("1504")
	stamp := responseDate + responseTime
	responseICN := stamp[len(stamp)-9:]

	authQual := orDefault(isa.Element(1), "00")
	authInfo := orDefault(isa.Element(2), strings.Repeat(" ", 10))
	securityQual := orDefault(isa.Element(3), "00")
	securityInfo := orDefault(isa.Element(4), strings.Repeat(" ", 10))
	originalSenderQual := orDefault(isa.Element(5), "ZZ")
	originalSenderID := orDefault(isa.Element(6), strings.Repeat(" ", 15))
	originalReceiverQual := orDefault(isa.Element(7), "ZZ")
	originalReceiverID := orDefault(isa.Element(8), strings.Repeat(" ", 15))
	standardsID := orDefault(isa.Element(11), "^")
	version := orDefault(isa.Element(12), "00501")
	testIndicator := orDefault(isa.Element(15), "P")

	ta1Segment := fmt.Sprintf("TA1*%s*%s*%s*%s*%s", originalICN, ta1Date, originalTime, ackCode, noteCode)

	// Sender and receiver are swapped: the original receiver becomes this
	// response's sender, and vice versa.
	isaResponse := fmt.Sprintf(
		"ISA*%s*%s*%s*%s*%s*%s*%s*%s*%s*%s*%s*%s*%s*0*%s*%s~",
		authQual, authInfo,
		securityQual, securityInfo,
		originalReceiverQual, originalReceiverID,
		originalSenderQual, originalSenderID,
		responseDate, responseTime, standardsID,
		version, responseICN, testIndicator, ta1ComponentSeparator,
	)

	ieaResponse := fmt.Sprintf("IEA*1*%s~", responseICN)

	return isaResponse + ta1Segment + "~" + ieaResponse, true
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func zeroPadLeft(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return strings.Repeat("0", width-len(value)) + value
}
