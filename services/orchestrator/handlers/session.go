// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/groundline/services/orchestrator/datatypes"
	"github.com/AleutianAI/groundline/services/orchestrator/observability"
)

// SessionResetter is the session capability HandleSessionReset depends on.
type SessionResetter interface {
	// Reset discards the thread bound to the session id, if any.
	Reset(sessionID string)
}

// HandleSessionReset returns the handler for POST /api/session/reset.
//
// # Description
//
// Discards the conversation thread bound to the given session id. The
// next generate call with that id starts a fresh thread. Resetting an
// unknown session is not an error; the operation is idempotent.
//
// # Outputs
//
//   - gin.HandlerFunc: Writes 200 with {"status":"reset"} on success,
//     400 on validation failure.
func HandleSessionReset(sessions SessionResetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SessionResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessions.Reset(req.SessionID)
		observability.DefaultMetrics.RecordSessionReset()

		c.JSON(http.StatusOK, gin.H{
			"status":     "reset",
			"session_id": req.SessionID,
		})
	}
}
