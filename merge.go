package x837

// effectiveDefinition merges a base SegmentDefinition with an optional
// ContextualDefinition, producing the segment definition that is effective
// at one position in the structure tree. The base is never mutated: a
// contextual override always operates on a fresh clone, per §4.2.
//
// Only elements named in the context's override map are touched, and only
// the override's non-nil fields replace the corresponding base field — an
// override can tighten or replace a field but never remove one. Composite
// sub-element overrides are applied the same way, one level down, keyed by
// the sub-element's own xid.
func effectiveDefinition(base *SegmentDefinition, ctx *ContextualDefinition) *SegmentDefinition {
	if base == nil {
		return nil
	}
	if ctx == nil || len(ctx.Elements) == 0 {
		return base
	}
	clone := cloneSegmentDefinition(base)
	for _, el := range clone.Elements {
		if override, ok := ctx.Elements[el.Xid]; ok {
			applyElementOverride(el, override)
		}
	}
	return clone
}

func cloneSegmentDefinition(base *SegmentDefinition) *SegmentDefinition {
	clone := *base
	clone.Elements = make([]*BaseElement, len(base.Elements))
	for i, el := range base.Elements {
		clone.Elements[i] = cloneBaseElement(el)
	}
	return &clone
}

func cloneBaseElement(e *BaseElement) *BaseElement {
	clone := *e
	if e.MinLength != nil {
		v := *e.MinLength
		clone.MinLength = &v
	}
	if e.MaxLength != nil {
		v := *e.MaxLength
		clone.MaxLength = &v
	}
	if e.ValidCodes != nil {
		clone.ValidCodes = append([]CodeDefinition(nil), e.ValidCodes...)
	}
	if e.SubElements != nil {
		clone.SubElements = make([]*BaseElement, len(e.SubElements))
		for i, sub := range e.SubElements {
			clone.SubElements[i] = cloneBaseElement(sub)
		}
	}
	return &clone
}

func applyElementOverride(el *BaseElement, o *ElementOverride) {
	if o == nil {
		return
	}
	if o.Name != nil {
		el.Name = *o.Name
	}
	if o.Usage != nil {
		el.Usage = *o.Usage
	}
	if o.DataType != nil {
		el.DataType = *o.DataType
	}
	if o.MinLength != nil {
		v := *o.MinLength
		el.MinLength = &v
	}
	if o.MaxLength != nil {
		v := *o.MaxLength
		el.MaxLength = &v
	}
	if o.Format != nil {
		el.Format = *o.Format
	}
	if o.ValidCodes != nil {
		el.ValidCodes = o.ValidCodes
	}
	if o.IsIdentifier != nil {
		el.IsIdentifier = *o.IsIdentifier
	}
	if o.SubElements != nil {
		for _, sub := range el.SubElements {
			if subOverride, ok := o.SubElements[sub.Xid]; ok {
				applyElementOverride(sub, subOverride)
			}
		}
	}
}
