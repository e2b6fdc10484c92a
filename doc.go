// Package x837 implements a schema-driven parser and validator for HIPAA
// 837 Professional (005010X222A1) X12 EDI interchanges.
//
// The package decodes a raw interchange into a hierarchical Interchange
// document, aligning each flat segment against a recursive loop structure
// described by a JSON implementation-guide schema (see Schema), and
// produces a list of Findings describing structural, content, and envelope
// problems encountered along the way. Parsing never fails outright: malformed
// input still yields a document, with the defect recorded as a Finding.
//
// Three entry points make up the core of the public surface: Parse decodes
// and validates an interchange against a Schema, ValidateEnvelope runs the
// TA1-style envelope checks against an already-parsed Interchange, and
// GenerateTA1 synthesizes a TA1 acknowledgement interchange. LoadSchema,
// CollectFindings and GuideVersionFromEDI are exported helpers around them.
package x837
