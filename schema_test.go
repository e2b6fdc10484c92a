package x837

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadSchemaAcceptsMaxUseSpellingVariants(t *testing.T) {
	data := []byte(`{
		"transactionName": "t", "version": "v",
		"segmentDefinitions": {
			"NM1": {"id": "NM1", "name": "Name", "usage": "R", "max_use": 3, "elements": []},
			"HL":  {"id": "HL", "name": "Level", "usage": "R", "maxUse": 5, "elements": []},
			"REF": {"id": "REF", "name": "Ref", "usage": "S", "elements": []}
		},
		"structure": []
	}`)

	schema, err := LoadSchema(data)
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}
	if got := schema.SegmentDefinitions["NM1"].MaxUse; got != 3 {
		t.Errorf("NM1 MaxUse (max_use) = %d, want 3", got)
	}
	if got := schema.SegmentDefinitions["HL"].MaxUse; got != 5 {
		t.Errorf("HL MaxUse (maxUse) = %d, want 5", got)
	}
	if got := schema.SegmentDefinitions["REF"].MaxUse; got != 1 {
		t.Errorf("REF MaxUse (absent) = %d, want default 1", got)
	}
}

func TestLoadSchemaAcceptsFormatAsStringOrList(t *testing.T) {
	data := []byte(`{
		"transactionName": "t", "version": "v",
		"segmentDefinitions": {
			"ISA": {"id": "ISA", "name": "isa", "usage": "R", "elements": [
				{"xid": "ISA09", "name": "Date", "usage": "R", "seq": 9, "dataType": "DT", "format": "CCYYMMDD"},
				{"xid": "ISA10", "name": "Time", "usage": "R", "seq": 10, "dataType": "TM", "format": ["HHMM", "HHMMSS"]}
			]}
		},
		"structure": []
	}`)

	schema, err := LoadSchema(data)
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}
	elements := schema.SegmentDefinitions["ISA"].Elements
	if elements[0].Format != "CCYYMMDD" {
		t.Errorf("ISA09 format = %q, want CCYYMMDD", elements[0].Format)
	}
	if elements[1].Format != "HHMM" {
		t.Errorf("ISA10 format = %q, want first list element HHMM", elements[1].Format)
	}
}

func TestStructureNodeRepeatTokenVariants(t *testing.T) {
	data := []byte(`{"type": "loop", "xid": "2000A", "name": "Billing", "usage": "R", "repeat": ">1", "children": []}`)
	var node StructureNode
	if err := node.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if node.Repeat != ">1" {
		t.Errorf("Repeat = %q, want >1", node.Repeat)
	}

	data2 := []byte(`{"type": "loop", "xid": "1000A", "name": "Submitter", "usage": "R", "repeat": 1, "children": []}`)
	var node2 StructureNode
	if err := node2.UnmarshalJSON(data2); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if node2.Repeat != "1" {
		t.Errorf("Repeat = %q, want \"1\"", node2.Repeat)
	}
}

func TestEffectiveSegmentDefinitionIDFallback(t *testing.T) {
	tests := []struct {
		name string
		node StructureNode
		want string
	}{
		{"explicit segmentDefinitionId", StructureNode{Xid: "NM1", SegmentDefinitionID: "NM1_ALT"}, "NM1_ALT"},
		{"baseDefinitionId fallback", StructureNode{Xid: "NM1", BaseDefinitionID: "NM1_BASE"}, "NM1_BASE"},
		{"xid fallback", StructureNode{Xid: "NM1"}, "NM1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.node.EffectiveSegmentDefinitionID(); got != tc.want {
				t.Errorf("EffectiveSegmentDefinitionID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStLoopChildrenStripsEnvelopeSegments(t *testing.T) {
	schema := &Schema{
		Structure: []*StructureNode{
			{
				Type: "loop", Xid: "ST_LOOP", Children: []*StructureNode{
					{Type: "segment", Xid: "ST"},
					{Type: "loop", Xid: "1000A"},
					{Type: "segment", Xid: "SE"},
				},
			},
		},
	}
	children, err := stLoopChildren(schema)
	if err != nil {
		t.Fatalf("stLoopChildren failed: %v", err)
	}
	want := []string{"1000A"}
	var got []string
	for _, c := range children {
		got = append(got, c.Xid)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("children xids mismatch (-want +got):\n%s", diff)
	}
}

func TestStLoopChildrenMissingIsError(t *testing.T) {
	schema := &Schema{Structure: []*StructureNode{{Type: "loop", Xid: "GS_LOOP"}}}
	if _, err := stLoopChildren(schema); err == nil {
		t.Error("expected an error when ST_LOOP is absent from the structure")
	}
}
