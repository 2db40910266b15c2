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
// Reality Statements
// =============================================================================

// RealityStatement is one caller-supplied, request-scoped grounding fact.
//
// # Description
//
// Reality statements arrive with each generate request and exist only for
// that request. They are never merged into the axiom store; two concurrent
// requests with colliding reality IDs must never observe each other's
// statements.
type RealityStatement struct {
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	Attribute   string `json:"attribute"`
	Value       string `json:"value"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

// realityLookup is the request-private id -> statement index the resolver
// consults for reality citations. Built once per request, read-only after.
type realityLookup struct {
	byID map[string]RealityStatement
}

// newRealityLookup indexes the caller's reality list. Later duplicate IDs
// overwrite earlier ones, matching axiom load semantics. A nil or empty list
// yields a usable lookup in which every id is unknown.
func newRealityLookup(statements []RealityStatement) *realityLookup {
	l := &realityLookup{byID: make(map[string]RealityStatement, len(statements))}
	for _, st := range statements {
		l.byID[st.ID] = st
	}
	return l
}

// get returns the statement for id, or false if the id is unknown.
func (l *realityLookup) get(id string) (RealityStatement, bool) {
	st, ok := l.byID[id]
	return st, ok
}

// LoadReality parses a JSON array of reality statements.
//
// # Description
//
// Unknown fields are ignored, mirroring LoadAxioms. Used both by the HTTP
// layer (base64 reality payloads) and by callers embedding the engine.
//
// # Inputs
//
//   - data: Raw JSON bytes containing an array of statements.
//
// # Outputs
//
//   - []RealityStatement: Parsed statements in document order.
//   - error: Non-nil if the document is not a valid JSON array.
func LoadReality(data []byte) ([]RealityStatement, error) {
	var statements []RealityStatement
	if err := json.Unmarshal(data, &statements); err != nil {
		return nil, fmt.Errorf("parse reality statements: %w", err)
	}
	return statements, nil
}
