package x837

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	defaultElementSeparator   = "*"
	defaultComponentSeparator = ":"
	defaultSegmentTerminator  = "~"

	isaFixedLength           = 106
	isaElementSeparatorIndex = 3
	isaComponentSepIndex     = 104
	isaSegmentTermIndex      = 105
)

// detectDelimiters reads the three delimiter characters out of a raw
// interchange's opening ISA segment at their fixed offsets, falling back to
// the conventional defaults (*, :, ~) when the input doesn't look like a
// well-formed ISA header. usedDefault reports which branch was taken.
func detectDelimiters(raw string) (elementSep, componentSep, segmentTerm string, usedDefault bool) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "ISA") && len(trimmed) >= isaFixedLength {
		return string(trimmed[isaElementSeparatorIndex]), string(trimmed[isaComponentSepIndex]), string(trimmed[isaSegmentTermIndex]), false
	}
	return defaultElementSeparator, defaultComponentSeparator, defaultSegmentTerminator, true
}

// tokenizeSegments normalizes line endings and splits raw into Segments
// using the given delimiters. CRLF/CR are folded to LF; if the segment
// terminator itself isn't a newline, any remaining LFs (from pretty-printed
// input) are stripped first so multi-line and single-line input parse
// identically. Scanning stops at (and including) the first IEA segment.
func tokenizeSegments(raw, elementSep, segmentTerm string) []*Segment {
	content := strings.TrimSpace(raw)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	if segmentTerm != "\n" {
		content = strings.ReplaceAll(content, "\n", "")
	}

	var segments []*Segment
	for _, piece := range strings.Split(content, segmentTerm) {
		clean := strings.TrimSpace(piece)
		if clean == "" {
			continue
		}
		parts := strings.Split(clean, elementSep)
		seg := NewSegment(parts[0], len(segments), clean, parts[1:])
		segments = append(segments, seg)
		if seg.ID == "IEA" {
			break
		}
	}
	return segments
}

// decodeEnvelope is the Envelope Decoder: it detects delimiters and
// tokenizes raw into an ordered flat list of Segments, returning a warning
// Finding when no ISA header could be found and the default delimiter set
// had to be assumed.
func decodeEnvelope(raw string, log logrus.FieldLogger) (segments []*Segment, elementSep, componentSep string, findings []Finding) {
	elementSep, componentSep, segmentTerm, usedDefault := detectDelimiters(raw)
	if usedDefault {
		msg := "No ISA header found (or input shorter than 106 characters); falling back to default delimiters '*' / ':' / '~'."
		log.Warn(msg)
		findings = append(findings, Finding{Message: msg})
	} else {
		log.WithFields(logrus.Fields{
			"element":   elementSep,
			"component": componentSep,
			"segment":   segmentTerm,
		}).Debug("detected EDI delimiters")
	}
	segments = tokenizeSegments(raw, elementSep, segmentTerm)
	return segments, elementSep, componentSep, findings
}

// findSegment returns the index of the first segment with the given
// identifier at or after start, or -1 if none is found.
func findSegment(segments []*Segment, id string, start int) int {
	for i := start; i < len(segments); i++ {
		if segments[i].ID == id {
			return i
		}
	}
	return -1
}
