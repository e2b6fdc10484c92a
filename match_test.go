package x837

import "testing"

func ambiguousHLSchema() *Schema {
	return &Schema{
		SegmentDefinitions: map[string]*SegmentDefinition{
			"HL": {ID: "HL", Elements: []*BaseElement{
				{Xid: "HL01", Seq: 1, Usage: "R", DataType: "AN"},
				{Xid: "HL02", Seq: 2, Usage: "S", DataType: "AN"},
				{Xid: "HL03", Seq: 3, Usage: "R", DataType: "ID", IsIdentifier: true},
				{Xid: "HL04", Seq: 4, Usage: "S", DataType: "ID"},
			}},
		},
		ContextualDefinitions: map[string]*ContextualDefinition{
			"CTX_BILLING": {ID: "CTX_BILLING", Elements: map[string]*ElementOverride{
				"HL03": {ValidCodes: []CodeDefinition{{Code: "20"}}},
			}},
			"CTX_SUBSCRIBER": {ID: "CTX_SUBSCRIBER", Elements: map[string]*ElementOverride{
				"HL03": {ValidCodes: []CodeDefinition{{Code: "22"}}},
			}},
		},
	}
}

func TestFindBestMatchUsesContextualValidationToDisambiguate(t *testing.T) {
	schema := ambiguousHLSchema()
	validator := newSegmentValidator(schema, ":", nil)
	matcher := newStructuralMatcher(validator, nil, false)

	nodes := []*StructureNode{
		{Type: "segment", Xid: "HL", Usage: "R", MaxUse: 1, ContextDefinitionID: "CTX_BILLING"},
		{Type: "segment", Xid: "HL", Usage: "R", MaxUse: 1, ContextDefinitionID: "CTX_SUBSCRIBER"},
	}
	usageCounts := make([]int, len(nodes))

	subscriberSegment := NewSegment("HL", 0, "", []string{"2", "1", "22", "0"})
	node, idx := matcher.findBestMatch(subscriberSegment, nodes, usageCounts)
	if node == nil {
		t.Fatal("expected a match for the subscriber-level HL segment")
	}
	if idx != 1 {
		t.Errorf("matched sibling index %d, want 1 (the subscriber context)", idx)
	}
}

func TestFindBestMatchRespectsUsageLimit(t *testing.T) {
	schema := ambiguousHLSchema()
	validator := newSegmentValidator(schema, ":", nil)
	matcher := newStructuralMatcher(validator, nil, false)

	nodes := []*StructureNode{{Type: "segment", Xid: "HL", Usage: "R", MaxUse: 1, ContextDefinitionID: "CTX_BILLING"}}
	usageCounts := []int{1}

	segment := NewSegment("HL", 0, "", []string{"1", "", "20", "1"})
	node, _ := matcher.findBestMatch(segment, nodes, usageCounts)
	if node != nil {
		t.Error("expected no match once usage limit is exhausted")
	}
}

func TestFindBestMatchReturnsNilWhenNoSiblingFits(t *testing.T) {
	schema := ambiguousHLSchema()
	validator := newSegmentValidator(schema, ":", nil)
	matcher := newStructuralMatcher(validator, nil, false)

	nodes := []*StructureNode{{Type: "segment", Xid: "NM1", Usage: "R", MaxUse: 1}}
	node, idx := matcher.findBestMatch(NewSegment("HL", 0, "", nil), nodes, []int{0})
	if node != nil || idx != -1 {
		t.Errorf("got (%v, %d), want (nil, -1) for a segment id with no matching sibling", node, idx)
	}
}

func TestBuildTreeRecordsRequiredMissingFinding(t *testing.T) {
	schema := &Schema{
		SegmentDefinitions: map[string]*SegmentDefinition{
			"NM1": {ID: "NM1", Elements: []*BaseElement{{Xid: "NM101", Seq: 1, Usage: "R", DataType: "ID"}}},
		},
		ContextualDefinitions: map[string]*ContextualDefinition{},
	}
	validator := newSegmentValidator(schema, ":", nil)
	matcher := newStructuralMatcher(validator, nil, false)

	nodes := []*StructureNode{
		{Type: "segment", Xid: "NM1", Name: "SUBMITTER NAME", Usage: "R", MaxUse: 1},
	}

	loop, consumed := matcher.buildTree(nil, nodes, "ST_LOOP")
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0 for an empty segment window", consumed)
	}
	if len(loop.Findings) != 1 {
		t.Fatalf("got %d findings, want 1 required-missing finding", len(loop.Findings))
	}
	want := "Required segment or loop 'NM1' (SUBMITTER NAME) is missing from loop 'ST_LOOP'."
	if got := loop.Findings[0].Message; got != want {
		t.Errorf("finding message = %q, want %q", got, want)
	}
}

func TestBuildTreeStopsAtUnmatchedSegmentWithoutConsumingIt(t *testing.T) {
	schema := &Schema{
		SegmentDefinitions: map[string]*SegmentDefinition{
			"NM1": {ID: "NM1", Elements: []*BaseElement{{Xid: "NM101", Seq: 1, Usage: "S", DataType: "ID"}}},
		},
		ContextualDefinitions: map[string]*ContextualDefinition{},
	}
	validator := newSegmentValidator(schema, ":", nil)
	matcher := newStructuralMatcher(validator, nil, false)

	nodes := []*StructureNode{{Type: "segment", Xid: "NM1", Usage: "S", MaxUse: 1}}
	segments := []*Segment{
		NewSegment("NM1", 0, "", []string{"41"}),
		NewSegment("HL", 1, "", []string{"1"}),
	}

	loop, consumed := matcher.buildTree(segments, nodes, "ST_LOOP")
	if consumed != 1 {
		t.Fatalf("consumed = %d, want 1 (the HL segment belongs to an ancestor)", consumed)
	}
	if len(loop.Segments) != 1 || loop.Segments[0].ID != "NM1" {
		t.Errorf("loop.Segments = %v, want exactly the NM1 segment", loop.Segments)
	}
}

func TestFindBestMatchTrialLoggingDoesNotAffectTheWinningCandidate(t *testing.T) {
	schema := ambiguousHLSchema()
	validator := newSegmentValidator(schema, ":", nil)

	quiet := newStructuralMatcher(validator, nil, false)
	verbose := newStructuralMatcher(validator, nil, true)

	nodes := []*StructureNode{
		{Type: "segment", Xid: "HL", Usage: "R", MaxUse: 1, ContextDefinitionID: "CTX_BILLING"},
		{Type: "segment", Xid: "HL", Usage: "R", MaxUse: 1, ContextDefinitionID: "CTX_SUBSCRIBER"},
	}
	segment := NewSegment("HL", 0, "", []string{"1", "", "22"})
	usageCounts := make([]int, len(nodes))

	quietNode, quietIdx := quiet.findBestMatch(segment, nodes, usageCounts)
	verboseNode, verboseIdx := verbose.findBestMatch(segment, nodes, usageCounts)
	if quietNode != verboseNode || quietIdx != verboseIdx {
		t.Errorf("trial logging changed the match result: quiet=%v/%d verbose=%v/%d", quietNode, quietIdx, verboseNode, verboseIdx)
	}
}
