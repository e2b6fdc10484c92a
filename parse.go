package x837

import (
	"fmt"
)

// Parse decodes raw X12 text into an Interchange tree and validates every
// segment it can place, per §4. It never returns an error: anything that
// goes wrong — a missing ISA/IEA envelope, an unclosed group or transaction,
// a segment the schema has no definition for — is recorded as a Finding
// somewhere in the returned tree instead. schema supplies the segment and
// structural definitions for the one transaction set raw is expected to
// carry.
func Parse(raw string, schema *Schema, opts ...ParseOption) *Interchange {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	segments, _, componentSep, decoderFindings := decodeEnvelope(raw, cfg.log)

	isaIdx := findSegment(segments, "ISA", 0)
	ieaIdx := -1
	if isaIdx != -1 {
		ieaIdx = findSegment(segments, "IEA", isaIdx)
	}
	if isaIdx == -1 || ieaIdx == -1 {
		findings := append([]Finding{{Message: "No complete ISA/IEA interchange envelope was found."}}, decoderFindings...)
		return &Interchange{
			Header:   NewSegment("ISA", 0, "", nil),
			Trailer:  NewSegment("IEA", 0, "", nil),
			Findings: findings,
		}
	}

	isaSeg := segments[isaIdx]
	ieaSeg := segments[ieaIdx]

	validator := newSegmentValidator(schema, componentSep, cfg.log)
	isaSeg.Findings = append(isaSeg.Findings, validator.validate(isaSeg, "")...)
	ieaSeg.Findings = append(ieaSeg.Findings, validator.validate(ieaSeg, "")...)

	interchange := &Interchange{Header: isaSeg, Trailer: ieaSeg}
	interchange.Findings = append(interchange.Findings, decoderFindings...)

	stChildren, err := stLoopChildren(schema)
	if err != nil {
		interchange.Findings = append(interchange.Findings, Finding{Message: err.Error()})
		return interchange
	}

	matcher := newStructuralMatcher(validator, cfg.log, cfg.trialLogging)
	groupSegments := segments[isaIdx+1 : ieaIdx]
	cursor := 0

	for cursor < len(groupSegments) {
		gsIdx := findSegment(groupSegments, "GS", cursor)
		if gsIdx == -1 {
			break
		}
		geIdx := findSegment(groupSegments, "GE", gsIdx)
		if geIdx == -1 {
			interchange.Findings = append(interchange.Findings, Finding{
				Message:   fmt.Sprintf("Functional group starting at line %d is missing its GE trailer.", groupSegments[gsIdx].Line),
				SegmentID: "GS",
				Line:      groupSegments[gsIdx].Line,
			})
			// An unclosed group leaves no reliable boundary for anything that
			// follows it in this interchange, so scanning stops here.
			break
		}

		gsSeg := groupSegments[gsIdx]
		geSeg := groupSegments[geIdx]
		gsSeg.Findings = append(gsSeg.Findings, validator.validate(gsSeg, "")...)
		geSeg.Findings = append(geSeg.Findings, validator.validate(geSeg, "")...)

		group := &FunctionalGroup{Header: gsSeg, Trailer: geSeg}

		txSegments := groupSegments[gsIdx+1 : geIdx]
		txCursor := 0
		for txCursor < len(txSegments) {
			stIdx := findSegment(txSegments, "ST", txCursor)
			if stIdx == -1 {
				break
			}
			seIdx := findSegment(txSegments, "SE", stIdx)
			if seIdx == -1 {
				group.Findings = append(group.Findings, Finding{
					Message:   fmt.Sprintf("Transaction set starting at line %d is missing its SE trailer.", txSegments[stIdx].Line),
					SegmentID: "ST",
					Line:      txSegments[stIdx].Line,
				})
				// Unlike an unclosed group, an unclosed transaction only
				// forfeits the rest of this one group; later groups in the
				// same interchange are still scanned.
				break
			}

			block := txSegments[stIdx : seIdx+1]
			tx := parseTransaction(block, stChildren, validator, matcher)
			group.Transactions = append(group.Transactions, tx)
			txCursor = seIdx + 1
		}

		interchange.Groups = append(interchange.Groups, group)
		cursor = geIdx + 1
	}

	return interchange
}

// parseTransaction validates the ST/SE envelope and matches the body
// segments between them against the schema's ST_LOOP children. A panic
// anywhere inside the structural matcher (for example an out-of-range index
// on a malformed schema) is contained to this one transaction and surfaced
// as a Finding instead of aborting the whole interchange. A Go stack
// overflow is a fatal runtime error, not a panic, and is not contained.
func parseTransaction(block []*Segment, stChildren []*StructureNode, validator *segmentValidator, matcher *structuralMatcher) (tx *Transaction) {
	header := block[0]
	trailer := block[len(block)-1]
	body := block[1 : len(block)-1]

	header.Findings = append(header.Findings, validator.validate(header, "")...)
	trailer.Findings = append(trailer.Findings, validator.validate(trailer, "")...)

	tx = &Transaction{Header: header, Trailer: trailer, Body: NewLoop("ST_LOOP")}

	defer func() {
		if r := recover(); r != nil {
			tx.Body = NewLoop("ST_LOOP")
			tx.Findings = append(tx.Findings, Finding{
				Message:   fmt.Sprintf("Transaction set aborted by an internal parsing error: %v", r),
				SegmentID: header.ID,
				Line:      header.Line,
			})
		}
	}()

	bodyLoop, consumed := matcher.buildTree(body, stChildren, "ST_LOOP")
	tx.Body = bodyLoop

	if consumed < len(body) {
		stray := body[consumed]
		tx.Findings = append(tx.Findings, Finding{
			Message:   fmt.Sprintf("%d segment(s) starting with '%s' could not be matched against the schema and were left unparsed.", len(body)-consumed, stray.ID),
			SegmentID: stray.ID,
			Line:      stray.Line,
		})
	}

	return tx
}

// GuideVersionFromEDI scans raw for its first GS segment and returns
// element GS08, the implementation guide version string a schema is
// expected to be selected by, without requiring a schema up front.
func GuideVersionFromEDI(raw string) (string, bool) {
	elementSep, _, segmentTerm, _ := detectDelimiters(raw)
	segments := tokenizeSegments(raw, elementSep, segmentTerm)
	for _, seg := range segments {
		if seg.ID != "GS" {
			continue
		}
		if version := seg.Element(8); version != "" {
			return version, true
		}
		return "", false
	}
	return "", false
}
