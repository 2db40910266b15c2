// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// log lines, map keys, or headers. Using these validators prevents log
// injection and pathological keys.
package validation

import (
	"fmt"
	"regexp"
)

// sessionIDPattern matches valid client session ids.
// Allows: letters, digits, dots, underscores, hyphens.
// Max length: 128 characters.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidateSessionID validates a caller-supplied session id.
//
// Session ids are opaque to the service - they carry no semantics beyond
// identity - but they are used as map keys and appear in structured logs
// and the reset endpoint, so the character set is restricted.
//
// Valid session ids:
//   - 1-128 characters
//   - Letters A-Z a-z, digits 0-9
//   - Dots (.), underscores (_), hyphens (-) after the first character
//
// Returns an error if the id is invalid.
//
// Example:
//
//	if err := validation.ValidateSessionID(req.SessionID); err != nil {
//	    return fmt.Errorf("invalid session id: %w", err)
//	}
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if len(id) > 128 {
		return fmt.Errorf("session id exceeds 128 characters")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("session id contains invalid characters")
	}
	return nil
}
