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

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Axiom Store
// =============================================================================

// Axiom is one reference statement from the constitution.
//
// # Description
//
// Axioms are the fixed grounding rules the model is instructed to cite.
// They are loaded once at process start and never mutated. Identity is the
// ID; IDs are unique within a store (later duplicates win during load).
type Axiom struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// AxiomStore is an immutable id -> Axiom lookup built once at startup.
//
// # Description
//
// The store is read-only after construction, so it is shared by every
// in-flight request without locking. List() preserves first-seen insertion
// order, which keeps constitution prompt rendering stable across runs.
//
// # Thread Safety
//
// Safe for concurrent reads. There are no writes after NewAxiomStore returns.
type AxiomStore struct {
	byID  map[string]Axiom
	order []string
}

// NewAxiomStore builds a store from an ordered axiom collection.
//
// # Description
//
// Later entries with a duplicate ID overwrite earlier ones, but the ID keeps
// its original position in List() order.
//
// # Inputs
//
//   - axioms: Ordered axioms, typically from LoadAxioms.
//
// # Outputs
//
//   - *AxiomStore: Immutable store ready for concurrent reads.
func NewAxiomStore(axioms []Axiom) *AxiomStore {
	s := &AxiomStore{byID: make(map[string]Axiom, len(axioms))}
	for _, ax := range axioms {
		if _, seen := s.byID[ax.ID]; !seen {
			s.order = append(s.order, ax.ID)
		}
		s.byID[ax.ID] = ax
	}
	return s
}

// Get returns the axiom for id, or false if the id is unknown.
func (s *AxiomStore) Get(id string) (Axiom, bool) {
	ax, ok := s.byID[id]
	return ax, ok
}

// List returns every axiom in insertion order.
func (s *AxiomStore) List() []Axiom {
	out := make([]Axiom, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of distinct axioms in the store.
func (s *AxiomStore) Len() int { return len(s.byID) }

// LoadAxioms parses a constitution JSON document into an AxiomStore.
//
// # Description
//
// The document is a JSON array of objects with at least "id" and
// "description". Unknown fields (subject, entity, trigger, conditions,
// category, ...) are ignored so the constitution file can carry richer
// metadata for other tools.
//
// # Inputs
//
//   - data: Raw JSON bytes of the constitution file.
//
// # Outputs
//
//   - *AxiomStore: Store over the parsed axioms.
//   - error: Non-nil if the document is not a valid JSON array of axioms.
func LoadAxioms(data []byte) (*AxiomStore, error) {
	var axioms []Axiom
	if err := json.Unmarshal(data, &axioms); err != nil {
		return nil, fmt.Errorf("parse constitution: %w", err)
	}
	return NewAxiomStore(axioms), nil
}
