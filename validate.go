package x837

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// segmentValidator validates a Segment against the schema's base and
// contextual definitions, per §4.3.
type segmentValidator struct {
	schema              *Schema
	componentSeparator  string
	log                 logrus.FieldLogger
}

func newSegmentValidator(schema *Schema, componentSeparator string, log logrus.FieldLogger) *segmentValidator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &segmentValidator{schema: schema, componentSeparator: componentSeparator, log: log}
}

// validate evaluates every element of the merged definition plus any
// syntax rules and returns the resulting Findings. It does not mutate
// segment; callers decide whether to attach the result (full validation) or
// discard it (a matcher trial).
func (v *segmentValidator) validate(segment *Segment, contextID string) []Finding {
	base, ok := v.schema.SegmentDefinitions[segment.ID]
	if !ok {
		msg := fmt.Sprintf("Base definition for segment '%s' not found in schema.", segment.ID)
		v.log.WithField("segment", segment.ID).Warn(msg)
		return []Finding{{Message: msg, Line: segment.Line, SegmentID: segment.ID}}
	}

	var ctx *ContextualDefinition
	if contextID != "" {
		ctx = v.schema.ContextualDefinitions[contextID]
	}
	effective := effectiveDefinition(base, ctx)

	var findings []Finding
	for _, elDef := range effective.Elements {
		value := segment.Element(elDef.Seq)
		findings = append(findings, v.validateElement(elDef, value, "")...)
	}
	findings = append(findings, v.validateSyntaxRules(segment, effective)...)

	for i := range findings {
		findings[i].SegmentID = segment.ID
		findings[i].Line = segment.Line
	}
	return findings
}

func (v *segmentValidator) validateElement(elDef *BaseElement, value string, parentXid string) []Finding {
	fullXid := elDef.Xid
	if parentXid != "" {
		fullXid = parentXid + "-" + elDef.Xid
	}
	isPresent := value != ""

	if elDef.Usage == "R" && !isPresent {
		return []Finding{{
			Message:           fmt.Sprintf("Required element '%s' is missing.", fullXid),
			ElementPath:       fullXid,
			IsIdentifierError: elDef.IsIdentifier,
		}}
	}

	var findings []Finding
	if elDef.Usage == "N" && isPresent {
		findings = append(findings, Finding{
			Message:           fmt.Sprintf("Element '%s' is Not Used and should not contain data.", fullXid),
			ElementPath:       fullXid,
			IsIdentifierError: elDef.IsIdentifier,
		})
	}
	if !isPresent {
		return findings
	}

	if elDef.DataType == "Composite" {
		subValues := strings.Split(value, v.componentSeparator)
		for _, sub := range elDef.SubElements {
			subValue := ""
			if idx := sub.Seq - 1; idx >= 0 && idx < len(subValues) {
				subValue = subValues[idx]
			}
			findings = append(findings, v.validateElement(sub, subValue, fullXid)...)
		}
		return findings
	}

	add := func(message string) {
		findings = append(findings, Finding{Message: message, ElementPath: fullXid, IsIdentifierError: elDef.IsIdentifier})
	}

	if elDef.MinLength != nil && len(value) < *elDef.MinLength {
		add(fmt.Sprintf("Element '%s': Value is shorter than min length %d.", fullXid, *elDef.MinLength))
	}
	if elDef.MaxLength != nil && len(value) > *elDef.MaxLength {
		add(fmt.Sprintf("Element '%s': Value is longer than max length %d.", fullXid, *elDef.MaxLength))
	}
	if elDef.DataType != "" && !validDataType(value, elDef.DataType) {
		add(fmt.Sprintf("Element '%s': Value does not match expected data type '%s'.", fullXid, elDef.DataType))
	}
	if elDef.Format != "" && !validFormat(value, elDef.Format) {
		add(fmt.Sprintf("Element '%s': Value does not match expected format '%s'.", fullXid, elDef.Format))
	}
	if len(elDef.ValidCodes) > 0 && !codeAllowed(elDef.ValidCodes, value) {
		add(fmt.Sprintf("Element '%s': Invalid code value. Allowed: %s.", fullXid, sortedCodeList(elDef.ValidCodes)))
	}

	return findings
}

func validDataType(value, dataType string) bool {
	switch dataType {
	case "Composite", "AN", "ID", "DT", "TM":
		return true
	case "N0", "N1", "N2", "R":
		if value == "" {
			return true
		}
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	default:
		return false
	}
}

func validFormat(value, format string) bool {
	if value == "" {
		return true
	}
	switch format {
	case "CCYYMMDD":
		if len(value) != 8 || !isAllDigits(value) {
			return false
		}
		_, err := time.Parse("20060102", value)
		return err == nil
	case "YYMMDD":
		if len(value) != 6 || !isAllDigits(value) {
			return false
		}
		_, err := time.Parse("060102", value)
		return err == nil
	case "HHMM":
		if len(value) != 4 || !isAllDigits(value) {
			return false
		}
		hh, _ := strconv.Atoi(value[:2])
		mm, _ := strconv.Atoi(value[2:])
		return hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59
	default:
		return true
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func codeAllowed(codes []CodeDefinition, value string) bool {
	for _, c := range codes {
		if c.Code == value {
			return true
		}
	}
	return false
}

func sortedCodeList(codes []CodeDefinition) string {
	values := make([]string, len(codes))
	for i, c := range codes {
		values[i] = c.Code
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}

func (v *segmentValidator) validateSyntaxRules(segment *Segment, effective *SegmentDefinition) []Finding {
	var findings []Finding
	for _, rule := range effective.Rules {
		if !evaluateConditions(segment, rule.Conditions) {
			continue
		}
		for _, assertion := range rule.Then {
			findings = append(findings, executeAssertion(segment, assertion, rule.RuleID)...)
		}
	}
	return findings
}

func evaluateConditions(segment *Segment, c Conditions) bool {
	switch {
	case len(c.AllOf) > 0:
		for _, clause := range c.AllOf {
			if !evaluateClause(segment, clause) {
				return false
			}
		}
		return true
	case len(c.AnyOf) > 0:
		for _, clause := range c.AnyOf {
			if evaluateClause(segment, clause) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func evaluateClause(segment *Segment, clause ConditionClause) bool {
	value := segment.Element(elementXidToPosition(clause.Element))
	switch clause.Operator {
	case "IS_PRESENT":
		return strings.TrimSpace(value) != ""
	case "IS_NOT_PRESENT":
		return strings.TrimSpace(value) == ""
	case "IS":
		return value == clause.Value
	case "IS_NOT":
		return value != clause.Value
	default:
		return false
	}
}

func executeAssertion(segment *Segment, assertion AssertionClause, ruleID string) []Finding {
	var failed bool
	switch assertion.Assertion {
	case "MUST_BE_PRESENT":
		value := segment.Element(elementXidToPosition(assertion.Element))
		failed = strings.TrimSpace(value) == ""
	case "MUST_HAVE_LENGTH":
		value := segment.Element(elementXidToPosition(assertion.Element))
		failed = len(value) != assertion.LengthWant
	case "ANY_OF_MUST_BE_PRESENT":
		failed = true
		for _, elID := range assertion.Elements {
			if segment.Element(elementXidToPosition(elID)) != "" {
				failed = false
				break
			}
		}
	default:
		return nil
	}
	if !failed {
		return nil
	}
	return []Finding{{Message: fmt.Sprintf("Syntax Rule Failed (%s): %s", ruleID, assertion.Assertion)}}
}

// elementXidToPosition extracts the element position from an xid like
// "NM108" or "CLM05" by stripping every non-digit character and parsing
// what remains, matching the schema's own convention for element and
// sub-element references inside syntax rules.
func elementXidToPosition(xid string) int {
	var digits strings.Builder
	for _, r := range xid {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	pos, err := strconv.Atoi(digits.String())
	if err != nil {
		return -1
	}
	return pos
}
