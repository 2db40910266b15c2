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
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/AleutianAI/groundline/services/orchestrator/datatypes"
	"github.com/AleutianAI/groundline/services/orchestrator/observability"
	"github.com/AleutianAI/groundline/services/qa"
)

// =============================================================================
// Interface Definition
// =============================================================================

// StreamWriter defines the contract for writing answer stream lines to an
// HTTP response.
//
// # Description
//
// StreamWriter abstracts the newline-delimited JSON wire format, enabling
// testability and separation from HTTP response mechanics. Each write emits
// exactly one JSON object terminated by '\n' and flushes immediately, so
// clients observe events as they are produced.
//
// Wire contract (one line per event):
//
//	{"type":"text","text":"<content>"}
//	{"type":"axiom_citation","id":"<id>","description":"<description>"}
//	{"type":"reality_citation","id":"<id>",...statement fields...}
//	{"type":"error","message":"<message>"}   <- terminal, stream ends after
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; writes are serialized
// internally.
//
// # Limitations
//
//   - Must be used with an http.Flusher-compatible ResponseWriter.
//   - Response headers must be set before the first write.
//
// # Assumptions
//
//   - Caller has set Content-Type: application/x-ndjson before writing.
type StreamWriter interface {
	// WriteText writes one literal text line.
	WriteText(text string) error

	// WriteAxiomCitation writes one resolved axiom citation line.
	WriteAxiomCitation(ax qa.Axiom) error

	// WriteRealityCitation writes one resolved reality citation line.
	WriteRealityCitation(st qa.RealityStatement) error

	// WriteError writes the terminal error line. No line may follow it.
	// The message should be sanitized; internal details belong in logs.
	WriteError(message string) error
}

// =============================================================================
// Implementation
// =============================================================================

// ndjsonWriter implements StreamWriter over an http.ResponseWriter.
//
// # Fields
//
//   - writer: Underlying ResponseWriter.
//   - flusher: http.Flusher for immediate delivery of each line.
//   - mu: Serializes writes.
//
// # Thread Safety
//
// Thread-safe via mutex.
//
// # Limitations
//
//   - Cannot be reused across requests.
type ndjsonWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewStreamWriter creates a StreamWriter for the given ResponseWriter.
//
// # Inputs
//
//   - w: HTTP ResponseWriter. Must implement http.Flusher.
//
// # Outputs
//
//   - StreamWriter: Ready to write NDJSON lines.
//   - error: Non-nil if the ResponseWriter doesn't support flushing.
func NewStreamWriter(w http.ResponseWriter) (StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &ndjsonWriter{writer: w, flusher: flusher}, nil
}

// SetStreamHeaders configures the response headers for NDJSON streaming.
// Must be called before the first write.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func (w *ndjsonWriter) WriteText(text string) error {
	return w.writeLine("text", datatypes.NewTextLine(text))
}

func (w *ndjsonWriter) WriteAxiomCitation(ax qa.Axiom) error {
	return w.writeLine("axiom_citation", datatypes.NewAxiomCitationLine(ax))
}

func (w *ndjsonWriter) WriteRealityCitation(st qa.RealityStatement) error {
	return w.writeLine("reality_citation", datatypes.NewRealityCitationLine(st))
}

func (w *ndjsonWriter) WriteError(message string) error {
	return w.writeLine("error", datatypes.NewErrorLine(message))
}

// writeLine marshals one wire line, writes it with its terminating newline,
// and flushes.
func (w *ndjsonWriter) writeLine(wireType string, line any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal %s line: %w", wireType, err)
	}
	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s line: %w", wireType, err)
	}
	w.flusher.Flush()

	observability.DefaultMetrics.RecordEvent(wireType)
	return nil
}
