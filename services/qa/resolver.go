// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package qa

// =============================================================================
// Citation Resolver
// =============================================================================

// resolveCandidate maps a citation candidate to its final stream event.
//
// # Description
//
// Axiom candidates are looked up in the process-wide axiom store; reality
// candidates ONLY in the request-scoped lookup, never in the axiom store.
// An unknown id is not a failure: the candidate degrades to a TextSegment
// carrying its raw marker, so "[A-999] " renders exactly as the model wrote
// it. Pure function, no side effects beyond store reads.
//
// # Inputs
//
//   - cand: A complete marker recognized by the parser.
//   - axioms: Process-wide axiom store. Read-only.
//   - reality: Request-private reality lookup. Read-only.
//
// # Outputs
//
//   - StreamEvent: AxiomCitation, RealityCitation, or the degraded TextSegment.
func resolveCandidate(cand CitationCandidate, axioms *AxiomStore, reality *realityLookup) StreamEvent {
	switch cand.Kind {
	case KindAxiom:
		if ax, ok := axioms.Get(cand.ID); ok {
			return AxiomCitation{Axiom: ax}
		}
	case KindReality:
		if st, ok := reality.get(cand.ID); ok {
			return RealityCitation{Statement: st}
		}
	}
	return TextSegment{Text: cand.RawMarker}
}
