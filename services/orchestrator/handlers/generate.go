// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP surface of the answer service:
// the streaming generate endpoint, session reset, and health.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/groundline/services/orchestrator/datatypes"
	"github.com/AleutianAI/groundline/services/orchestrator/observability"
	"github.com/AleutianAI/groundline/services/qa"
)

// HeaderThreadID carries the resolved conversation thread back to the
// caller. It is set before the first body byte so clients can persist the
// handle even when the stream later fails.
const HeaderThreadID = "X-Thread-Id"

// AnswerStreamer is the engine capability HandleGenerate depends on.
//
// # Description
//
// Narrow interface over qa.Engine so handler tests can substitute a mock
// without constructing a model client.
type AnswerStreamer interface {
	AnswerStream(
		ctx context.Context,
		question string,
		reality []qa.RealityStatement,
		sessionID string,
		handler qa.StreamHandler,
	) (string, error)
}

// streamBridge adapts a StreamWriter into the qa.StreamHandler callbacks.
//
// OnThread fires before any event, while response headers are still
// mutable, so the thread handle travels as a header rather than a wire
// line.
type streamBridge struct {
	ctx    *gin.Context
	writer StreamWriter
}

func (b *streamBridge) OnThread(threadID string) error {
	b.ctx.Header(HeaderThreadID, threadID)
	return nil
}

func (b *streamBridge) OnEvent(ev qa.StreamEvent) error {
	switch e := ev.(type) {
	case qa.TextSegment:
		return b.writer.WriteText(e.Text)
	case qa.AxiomCitation:
		return b.writer.WriteAxiomCitation(e.Axiom)
	case qa.RealityCitation:
		return b.writer.WriteRealityCitation(e.Statement)
	default:
		return fmt.Errorf("unknown stream event type %T", ev)
	}
}

// HandleGenerate returns the handler for POST /api/generate.
//
// # Description
//
// Validates the request, then streams the grounded answer as
// newline-delimited JSON. Each model fragment is parsed incrementally;
// citation markers are resolved against the constitution and the
// request's reality statements and emitted as structured citation lines,
// everything else as text lines. A mid-stream failure terminates the
// stream with a single error line; lines already sent are not retracted.
//
// # Inputs
//
//   - engine: Streaming answer engine.
//
// # Outputs
//
//   - gin.HandlerFunc: Writes 200 + NDJSON on success path, 400 on
//     validation failure, 500 if streaming is unsupported.
//
// # Limitations
//
//   - Once streaming has begun the HTTP status is fixed at 200; errors
//     surface as a terminal error line instead.
func HandleGenerate(engine AnswerStreamer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		SetStreamHeaders(c.Writer)
		writer, err := NewStreamWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		observability.DefaultMetrics.StreamStarted()
		defer observability.DefaultMetrics.StreamEnded()

		bridge := &streamBridge{ctx: c, writer: writer}
		threadID, err := engine.AnswerStream(ctx, req.Question, []qa.RealityStatement(req.Reality), req.SessionID, bridge)

		if err != nil {
			observability.DefaultMetrics.RecordStream(false, time.Since(start).Seconds())
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				slog.Info("client disconnected mid-stream",
					"thread_id", threadID)
				return
			}
			slog.Error("answer stream failed",
				"thread_id", threadID,
				"error", err)
			// Internal detail stays in the log; the wire gets a stable
			// message.
			_ = writer.WriteError("model stream failed")
			return
		}

		observability.DefaultMetrics.RecordStream(true, time.Since(start).Seconds())
	}
}
