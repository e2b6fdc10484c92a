package x837

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
)

// structuralMatcher walks a flat window of Segments against the sibling
// StructureNodes of one schema Loop, per §4.4. It is the core of the
// parser: the only way to tell which loop an ambiguous segment identifier
// (NM1, HL, REF, DTP...) belongs to is to try the contextual definition and
// see whether an identifier element validates.
type structuralMatcher struct {
	validator    *segmentValidator
	log          logrus.FieldLogger
	trialLogging bool
}

func newStructuralMatcher(validator *segmentValidator, log logrus.FieldLogger, trialLogging bool) *structuralMatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &structuralMatcher{validator: validator, log: log, trialLogging: trialLogging}
}

// usageLimit returns the repeat ceiling for a node: max_use for a segment,
// repeat for a loop. A non-integer repeat token (">1" and friends) maps to
// an effectively unbounded limit, matching a malformed-schema repeat being
// downgraded rather than rejected.
func usageLimit(node *StructureNode) int {
	if node.Type == "segment" {
		if node.MaxUse <= 0 {
			return 1
		}
		return node.MaxUse
	}
	if n, err := strconv.Atoi(node.Repeat); err == nil {
		return n
	}
	return math.MaxInt32
}

// startingSegmentID returns the segment identifier that must appear for
// this node to even be considered: the node's own xid for a segment, or
// recursively the starting id of a loop's first child (a loop always
// starts with a segment).
func startingSegmentID(node *StructureNode) string {
	if node.Type == "segment" {
		return node.Xid
	}
	if node.Type == "loop" && len(node.Children) > 0 {
		return startingSegmentID(node.Children[0])
	}
	return ""
}

// contextIDForTrial returns the contextual definition id to trial-validate
// a candidate segment against: the node's own context id for a segment, or
// — only one level deep, not recursively — the first child's context id
// when that first child is itself a segment.
func contextIDForTrial(node *StructureNode) string {
	if node.Type == "segment" {
		return node.ContextDefinitionID
	}
	if node.Type == "loop" && len(node.Children) > 0 && node.Children[0].Type == "segment" {
		return node.Children[0].ContextDefinitionID
	}
	return ""
}

// findBestMatch scans nodes in schema order and returns the first one whose
// usage limit isn't exhausted, whose starting id matches the current
// segment, and whose trial validation produces no identifier-element
// errors. Trial validation is only attempted once the first two gates
// pass, keeping the cost linear in schema fanout rather than exponential.
func (m *structuralMatcher) findBestMatch(segment *Segment, nodes []*StructureNode, usageCounts []int) (*StructureNode, int) {
	for i, node := range nodes {
		if usageCounts[i] >= usageLimit(node) {
			continue
		}
		if segment.ID != startingSegmentID(node) {
			continue
		}
		trial := m.validator.validate(segment, contextIDForTrial(node))
		identifierErr := anyIdentifierError(trial)
		if m.trialLogging {
			m.log.WithFields(logrus.Fields{
				"segment":       segment.ID,
				"line":          segment.Line,
				"candidate":     node.Xid,
				"identifierErr": identifierErr,
			}).Debug("trial-validated segment against candidate node")
		}
		if !identifierErr {
			return node, i
		}
	}
	return nil, -1
}

func anyIdentifierError(findings []Finding) bool {
	for _, f := range findings {
		if f.IsIdentifierError {
			return true
		}
	}
	return false
}

// buildTree aligns segments against nodes, the children of one schema Loop,
// returning the populated Loop and the number of segments it consumed. A
// segment that matches no sibling ends the loop without being consumed, so
// control returns to the caller, which may claim it as its own.
func (m *structuralMatcher) buildTree(segments []*Segment, nodes []*StructureNode, parentXid string) (*Loop, int) {
	loop := NewLoop(parentXid)
	usageCounts := make([]int, len(nodes))
	cursor := 0

	for cursor < len(segments) {
		current := segments[cursor]
		node, idx := m.findBestMatch(current, nodes, usageCounts)
		if node == nil {
			break
		}

		switch node.Type {
		case "segment":
			findings := m.validator.validate(current, node.ContextDefinitionID)
			current.Findings = append(current.Findings, findings...)
			loop.Segments = append(loop.Segments, current)
			cursor++
		case "loop":
			child, consumed := m.buildTree(segments[cursor:], node.Children, node.Xid)
			loop.AddLoop(child)
			cursor += consumed
		}
		usageCounts[idx]++
	}

	for i, node := range nodes {
		if node.Usage == "R" && usageCounts[i] == 0 {
			loop.Findings = append(loop.Findings, Finding{
				Message: fmt.Sprintf("Required segment or loop '%s' (%s) is missing from loop '%s'.", node.Xid, node.Name, parentXid),
			})
		}
	}

	return loop, cursor
}
