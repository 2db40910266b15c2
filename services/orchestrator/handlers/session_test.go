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
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// stubResetter records reset calls.
type stubResetter struct {
	resets []string
}

func (s *stubResetter) Reset(sessionID string) {
	s.resets = append(s.resets, sessionID)
}

func setupSessionRouter(sessions *stubResetter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/session/reset", HandleSessionReset(sessions))
	return router
}

func postReset(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/session/reset", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleSessionReset(t *testing.T) {
	sessions := &stubResetter{}
	router := setupSessionRouter(sessions)

	w := postReset(router, `{"session_id":"cli-user-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"cli-user-1"}, sessions.resets)
	assert.Contains(t, w.Body.String(), `"reset"`)
	assert.Contains(t, w.Body.String(), "cli-user-1")
}

func TestHandleSessionResetUnknownIDStillSucceeds(t *testing.T) {
	sessions := &stubResetter{}
	router := setupSessionRouter(sessions)

	w := postReset(router, `{"session_id":"never-seen"}`)

	assert.Equal(t, http.StatusOK, w.Code, "reset is idempotent")
}

func TestHandleSessionResetValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing session id", `{}`},
		{"empty session id", `{"session_id":""}`},
		{"hostile session id", `{"session_id":"../../etc"}`},
		{"malformed json", `{"session_id"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &stubResetter{}
			router := setupSessionRouter(sessions)

			w := postReset(router, tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, sessions.resets)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/health", HealthCheck)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
