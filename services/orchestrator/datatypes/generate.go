// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and wire types for the orchestrator
// service.
//
// This file contains the generate endpoint types: the request body with its
// flexible reality payload, and the newline-delimited JSON line types that
// form the streaming wire contract.
package datatypes

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/groundline/pkg/validation"
	"github.com/AleutianAI/groundline/services/qa"
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxQuestionBytes is the maximum size of a question. Byte length, not
	// rune count, to bound memory for pathological payloads.
	MaxQuestionBytes = 32 * 1024 // 32KB

	// MaxRealityStatements caps the per-request reality list.
	MaxRealityStatements = 500
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// generateValidate is the validator instance for generate datatypes.
// Initialized in init() with custom validators.
var generateValidate *validator.Validate

func init() {
	generateValidate = validator.New()

	_ = generateValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = generateValidate.RegisterValidation("sessionid", validateSessionID)
}

// validateMaxBytes enforces MaxQuestionBytes on a string field.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxQuestionBytes
}

// validateSessionID enforces the opaque session id character set.
func validateSessionID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return true // optional field
	}
	return validation.ValidateSessionID(id) == nil
}

// =============================================================================
// Generate Request
// =============================================================================

// RealityPayload is the request's reality field, accepting two encodings.
//
// # Description
//
// Clients send reality statements either as a plain JSON array of statement
// objects or as a base64-encoded JSON document (convenient for clients that
// pass reality through systems that mangle nested JSON). Both decode to the
// same statement list; unknown fields inside statements are ignored.
type RealityPayload []qa.RealityStatement

// UnmarshalJSON decodes either encoding of the reality field.
func (r *RealityPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}

	if trimmed[0] == '[' {
		statements, err := qa.LoadReality(trimmed)
		if err != nil {
			return err
		}
		*r = statements
		return nil
	}

	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return fmt.Errorf("parse reality string: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("decode base64 reality: %w", err)
		}
		statements, err := qa.LoadReality(decoded)
		if err != nil {
			return err
		}
		*r = statements
		return nil
	}

	return fmt.Errorf("reality must be a JSON array or a base64 string")
}

// GenerateRequest is the POST /api/generate request body.
//
// # Description
//
// Carries one question, an optional reality payload scoped to this request
// only, and an optional session id for multi-turn continuity. An absent or
// empty session id yields a one-shot anonymous conversation.
//
// # Fields
//
//   - Question: Required, non-empty, at most MaxQuestionBytes.
//   - Reality: Optional statements; array or base64 encoding.
//   - SessionID: Optional opaque conversation key, validated against the
//     session id character set to keep logs and lookups injection-free.
type GenerateRequest struct {
	Question  string         `json:"question" validate:"required,min=1,maxbytes"`
	Reality   RealityPayload `json:"reality"`
	SessionID string         `json:"session_id" validate:"omitempty,sessionid"`
}

// Validate checks the request against all constraints.
//
// # Outputs
//
//   - error: Non-nil describing the first violated constraint.
func (r *GenerateRequest) Validate() error {
	if err := generateValidate.Struct(r); err != nil {
		return err
	}
	if len(r.Reality) > MaxRealityStatements {
		return fmt.Errorf("reality exceeds %d statements", MaxRealityStatements)
	}
	return nil
}

var _ json.Unmarshaler = (*RealityPayload)(nil)

// =============================================================================
// Session Reset
// =============================================================================

// SessionResetRequest is the POST /api/session/reset request body.
type SessionResetRequest struct {
	SessionID string `json:"session_id" validate:"required,sessionid"`
}

// Validate checks the reset request.
func (r *SessionResetRequest) Validate() error {
	return generateValidate.Struct(r)
}

// =============================================================================
// Wire Lines (NDJSON stream contract)
// =============================================================================

// TextLine is one literal text event on the wire.
type TextLine struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextLine builds a text line.
func NewTextLine(text string) TextLine {
	return TextLine{Type: "text", Text: text}
}

// AxiomCitationLine is one resolved axiom citation on the wire.
type AxiomCitationLine struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

// NewAxiomCitationLine builds an axiom citation line from the resolved axiom.
func NewAxiomCitationLine(ax qa.Axiom) AxiomCitationLine {
	return AxiomCitationLine{Type: "axiom_citation", ID: ax.ID, Description: ax.Description}
}

// RealityCitationLine is one resolved reality citation on the wire. It echoes
// every statement field so clients can render the grounding fact in full.
type RealityCitationLine struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	Attribute   string `json:"attribute"`
	Value       string `json:"value"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

// NewRealityCitationLine builds a reality citation line from the statement.
func NewRealityCitationLine(st qa.RealityStatement) RealityCitationLine {
	return RealityCitationLine{
		Type:        "reality_citation",
		ID:          st.ID,
		Entity:      st.Entity,
		Attribute:   st.Attribute,
		Value:       st.Value,
		Number:      st.Number,
		Description: st.Description,
	}
}

// ErrorLine is the terminal error event. The stream ends immediately after.
type ErrorLine struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorLine builds an error line.
func NewErrorLine(message string) ErrorLine {
	return ErrorLine{Type: "error", Message: message}
}
