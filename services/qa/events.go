// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package qa implements the grounded question-answering engine for Groundline.
//
// The engine streams a model answer through an incremental citation parser
// that recognizes inline markers such as [A-001] or [R-014], resolves them
// against the constitution (axiom store) and the request-scoped reality
// statements, and delivers an ordered sequence of typed stream events to the
// caller. Unresolvable or malformed markers degrade to literal text; they are
// never an error.
package qa

// =============================================================================
// Stream Event Union
// =============================================================================

// StreamEvent is one element of the answer stream delivered to callers.
//
// # Description
//
// StreamEvent is a closed union over the three concrete event types:
//
//   - TextSegment: literal answer text
//   - AxiomCitation: a resolved reference to a constitutional axiom
//   - RealityCitation: a resolved reference to a request-scoped reality statement
//
// The union is closed via the unexported isStreamEvent marker so that type
// switches over events cover every case that can ever occur. Content()
// returns the exact text the event contributes to the flattened answer, so
// concatenating Content() across a whole stream reproduces the model output
// byte for byte.
//
// # Thread Safety
//
// All event types are immutable value types and safe to share.
type StreamEvent interface {
	// Content returns the text this event contributes to the flat answer.
	Content() string

	isStreamEvent()
}

// TextSegment is literal answer text between citations.
//
// # Description
//
// A TextSegment carries a maximal safe slice of model output: it never
// contains a complete citation marker. The segment preceding a citation may
// be empty when the marker starts the chunk or follows another marker
// directly. A degraded citation also surfaces as a TextSegment carrying its
// raw marker.
type TextSegment struct {
	Text string
}

// Content returns the literal text of the segment.
func (s TextSegment) Content() string { return s.Text }

func (TextSegment) isStreamEvent() {}

// AxiomCitation is a citation resolved against the axiom store.
type AxiomCitation struct {
	Axiom Axiom
}

// Content returns the canonical marker form, "[" + id + "]".
func (c AxiomCitation) Content() string { return "[" + c.Axiom.ID + "]" }

func (AxiomCitation) isStreamEvent() {}

// RealityCitation is a citation resolved against the request-scoped reality set.
type RealityCitation struct {
	Statement RealityStatement
}

// Content returns the canonical marker form, "[" + id + "]".
func (c RealityCitation) Content() string { return "[" + c.Statement.ID + "]" }

func (RealityCitation) isStreamEvent() {}

// =============================================================================
// Reference Kinds
// =============================================================================

// ReferenceKind distinguishes the two reference stores a citation can target.
type ReferenceKind string

const (
	// KindAxiom marks citations of the fixed constitution ([A-...] / [AXIOM-...]).
	KindAxiom ReferenceKind = "axiom"

	// KindReality marks citations of caller-supplied reality statements
	// ([R-...] / [REALITY-...]).
	KindReality ReferenceKind = "reality"
)

// =============================================================================
// Citation Candidates (parser output, pre-resolution)
// =============================================================================

// CitationCandidate is a complete citation marker recognized by the parser
// before it has been checked against any reference store.
//
// # Description
//
// Candidates exist only between the incremental parser and the resolver.
// RawMarker preserves the exact matched text, brackets included, so an
// unresolvable candidate can degrade back to literal output without losing
// a single character.
//
// # Fields
//
//   - Kind: Which store the marker targets (axiom or reality).
//   - ID: The id inside the brackets, e.g. "A-001".
//   - RawMarker: The exact matched text, e.g. "[A-001]".
type CitationCandidate struct {
	Kind      ReferenceKind
	ID        string
	RawMarker string
}

// parseEvent is the union emitted by the incremental parser: either a
// TextSegment or a CitationCandidate, in strict arrival order.
type parseEvent interface {
	isParseEvent()
}

func (TextSegment) isParseEvent()       {}
func (CitationCandidate) isParseEvent() {}
