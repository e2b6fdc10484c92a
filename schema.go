package x837

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// CodeDefinition is one allowed value of a code-set-constrained element.
type CodeDefinition struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// BaseElement is the schema's description of one positional element within
// a segment (or, recursively, one sub-element of a Composite element).
type BaseElement struct {
	Xid          string           `json:"xid"`
	DataEle      string           `json:"data_ele,omitempty"`
	Name         string           `json:"name"`
	Usage        string           `json:"usage"` // R, S, or N
	Seq          int              `json:"seq"`
	DataType     string           `json:"dataType"` // ID, AN, DT, TM, N0, N1, N2, R, Composite
	Description  string           `json:"description,omitempty"`
	MinLength    *int             `json:"minLength,omitempty"`
	MaxLength    *int             `json:"maxLength,omitempty"`
	Format       string           `json:"-"`
	ValidCodes   []CodeDefinition `json:"valid_codes,omitempty"`
	SubElements  []*BaseElement   `json:"sub_elements,omitempty"`
	IsIdentifier bool             `json:"is_identifier,omitempty"`
}

// baseElementAlias exists only so UnmarshalJSON can decode the Format field,
// which the schema may express as either a single string or a list of
// strings (only the first is meaningful to this implementation).
type baseElementAlias BaseElement

// UnmarshalJSON decodes a BaseElement, tolerating a format field given as
// either a string or a list of strings.
func (e *BaseElement) UnmarshalJSON(data []byte) error {
	var raw struct {
		baseElementAlias
		Format json.RawMessage `json:"format"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = BaseElement(raw.baseElementAlias)
	if len(raw.Format) > 0 {
		var asString string
		if err := json.Unmarshal(raw.Format, &asString); err == nil {
			e.Format = asString
		} else {
			var asList []string
			if err := json.Unmarshal(raw.Format, &asList); err == nil && len(asList) > 0 {
				e.Format = asList[0]
			}
		}
	}
	return nil
}

// ConditionClause is one clause of a SyntaxRule's condition expression.
type ConditionClause struct {
	Element  string `json:"element"`
	Operator string `json:"operator"` // IS, IS_NOT, IS_PRESENT, IS_NOT_PRESENT
	Value    string `json:"value,omitempty"`
}

// Conditions is a SyntaxRule's condition expression: exactly one of AllOf or
// AnyOf is populated. An empty Conditions evaluates to true (the rule always
// fires).
type Conditions struct {
	AllOf []ConditionClause `json:"ALL_OF,omitempty"`
	AnyOf []ConditionClause `json:"ANY_OF,omitempty"`
}

// AssertionClause is one assertion a SyntaxRule executes when its
// conditions hold.
type AssertionClause struct {
	Element    string   `json:"element,omitempty"`
	Elements   []string `json:"elements,omitempty"`
	Assertion  string   `json:"assertion"` // MUST_BE_PRESENT, MUST_HAVE_LENGTH, ANY_OF_MUST_BE_PRESENT
	LengthWant int      `json:"value,omitempty"`
}

// SyntaxRule is a conditional cross-element constraint on a segment.
type SyntaxRule struct {
	RuleID     string            `json:"ruleId"`
	Conditions Conditions        `json:"conditions"`
	Then       []AssertionClause `json:"then"`
}

// SegmentDefinition is the base, context-independent description of a
// segment's elements and cross-element syntax rules.
type SegmentDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Usage       string         `json:"usage"`
	MaxUse      int            `json:"-"`
	Elements    []*BaseElement `json:"elements"`
	Rules       []*SyntaxRule  `json:"rules,omitempty"`
}

type segmentDefinitionAlias SegmentDefinition

// UnmarshalJSON decodes a SegmentDefinition, accepting either max_use or
// maxUse for its repeat-limit field and defaulting it to 1 when absent.
func (d *SegmentDefinition) UnmarshalJSON(data []byte) error {
	var raw struct {
		segmentDefinitionAlias
		MaxUseSnake *int `json:"max_use"`
		MaxUseCamel *int `json:"maxUse"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = SegmentDefinition(raw.segmentDefinitionAlias)
	switch {
	case raw.MaxUseSnake != nil:
		d.MaxUse = *raw.MaxUseSnake
	case raw.MaxUseCamel != nil:
		d.MaxUse = *raw.MaxUseCamel
	default:
		d.MaxUse = 1
	}
	return nil
}

// ElementOverride is a sparse overlay on a BaseElement: only the fields
// present in the schema's contextual definition are non-nil, and only those
// fields replace the corresponding base field. SubElements overlays the
// base composite's sub-elements by their xid.
type ElementOverride struct {
	Name         *string
	Usage        *string
	DataType     *string
	MinLength    *int
	MaxLength    *int
	Format       *string
	ValidCodes   []CodeDefinition
	IsIdentifier *bool
	SubElements  map[string]*ElementOverride
}

// UnmarshalJSON decodes an ElementOverride, leaving every field absent from
// the JSON object as nil/unset so the merger can distinguish "not
// overridden" from "overridden to the zero value."
func (o *ElementOverride) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["name"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			o.Name = &s
		}
	}
	if v, ok := raw["usage"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			o.Usage = &s
		}
	}
	if v, ok := raw["dataType"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			o.DataType = &s
		}
	}
	if v, ok := raw["minLength"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			o.MinLength = &n
		}
	}
	if v, ok := raw["maxLength"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			o.MaxLength = &n
		}
	}
	if v, ok := raw["format"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			o.Format = &s
		} else {
			var list []string
			if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
				o.Format = &list[0]
			}
		}
	}
	if v, ok := raw["valid_codes"]; ok {
		var codes []CodeDefinition
		if err := json.Unmarshal(v, &codes); err == nil {
			o.ValidCodes = codes
		}
	}
	if v, ok := raw["is_identifier"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			o.IsIdentifier = &b
		}
	}
	if v, ok := raw["sub_elements"]; ok {
		var subs map[string]*ElementOverride
		if err := json.Unmarshal(v, &subs); err == nil {
			o.SubElements = subs
		}
	}
	return nil
}

// ContextualDefinition overlays a base SegmentDefinition for one position
// in the structure tree, keyed by the element xid it overrides.
type ContextualDefinition struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name,omitempty"`
	Description string                      `json:"description,omitempty"`
	Elements    map[string]*ElementOverride `json:"elements,omitempty"`
}

// StructureNode is a tagged-union node of the schema's structural tree: a
// segment or a loop, discriminated by Type. Loop-only fields (Repeat,
// Children) and segment-only fields (MaxUse, the definition id fields) are
// simply left at their zero value on the variant that doesn't use them.
type StructureNode struct {
	Type                string           `json:"type"` // "segment" or "loop"
	Xid                 string           `json:"xid"`
	Name                string           `json:"name"`
	Usage               string           `json:"usage"`
	MaxUse              int              `json:"-"`
	Repeat              string           `json:"-"`
	SegmentDefinitionID string           `json:"segmentDefinitionId,omitempty"`
	BaseDefinitionID    string           `json:"baseDefinitionId,omitempty"`
	ContextDefinitionID string           `json:"contextDefinitionId,omitempty"`
	Children            []*StructureNode `json:"children,omitempty"`
}

type structureNodeAlias StructureNode

// UnmarshalJSON decodes a StructureNode, tolerating a numeric or string
// max_use and a numeric or string (e.g. ">1") repeat field.
func (n *StructureNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		structureNodeAlias
		MaxUse json.RawMessage `json:"max_use"`
		Repeat json.RawMessage `json:"repeat"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = StructureNode(raw.structureNodeAlias)
	n.MaxUse = decodeIntOrDefault(raw.MaxUse, 1)
	n.Repeat = decodeRepeatToken(raw.Repeat)
	return nil
}

func decodeIntOrDefault(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func decodeRepeatToken(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "1"
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return strconv.Itoa(asInt)
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	return "1"
}

// EffectiveSegmentDefinitionID returns the segment definition id a
// StructureSegment node references, accepting both the segmentDefinitionId
// and baseDefinitionId spellings and falling back to the node's own xid.
func (n *StructureNode) EffectiveSegmentDefinitionID() string {
	if n.SegmentDefinitionID != "" {
		return n.SegmentDefinitionID
	}
	if n.BaseDefinitionID != "" {
		return n.BaseDefinitionID
	}
	return n.Xid
}

// Schema is the in-memory representation of an implementation guide: the
// segment and contextual definitions it declares, and the structural tree
// describing how they nest.
type Schema struct {
	TransactionName       string                            `json:"transactionName"`
	Version               string                            `json:"version"`
	Description           string                            `json:"description,omitempty"`
	SegmentDefinitions    map[string]*SegmentDefinition      `json:"segmentDefinitions"`
	ContextualDefinitions map[string]*ContextualDefinition   `json:"contextualDefinitions,omitempty"`
	Structure             []*StructureNode                   `json:"structure"`
}

// LoadSchema decodes an implementation guide schema from JSON.
func LoadSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decoding EDI schema JSON")
	}
	if s.SegmentDefinitions == nil {
		s.SegmentDefinitions = map[string]*SegmentDefinition{}
	}
	if s.ContextualDefinitions == nil {
		s.ContextualDefinitions = map[string]*ContextualDefinition{}
	}
	return &s, nil
}

// findStructureLoop searches nodes (and, if recursive is true, their
// children) for a loop node with the given xid.
func findStructureLoop(nodes []*StructureNode, xid string, recursive bool) *StructureNode {
	for _, n := range nodes {
		if n.Type == "loop" && n.Xid == xid {
			return n
		}
		if recursive && n.Type == "loop" {
			if found := findStructureLoop(n.Children, xid, recursive); found != nil {
				return found
			}
		}
	}
	return nil
}

// stLoopChildren locates the schema's ST_LOOP node (searching through
// ISA_LOOP/GS_LOOP if it isn't a top-level structure entry) and returns its
// children with the ST and SE segment nodes themselves stripped out: those
// two are consumed by envelope splitting, not by the structural matcher.
func stLoopChildren(schema *Schema) ([]*StructureNode, error) {
	stLoop := findStructureLoop(schema.Structure, "ST_LOOP", true)
	if stLoop == nil {
		return nil, errors.New("ST_LOOP not found in schema structure")
	}
	children := make([]*StructureNode, 0, len(stLoop.Children))
	for _, c := range stLoop.Children {
		if c.Xid == "ST" || c.Xid == "SE" {
			continue
		}
		children = append(children, c)
	}
	return children, nil
}
