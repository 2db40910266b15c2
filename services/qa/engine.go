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
	"context"
	"log/slog"
	"strings"

	"github.com/AleutianAI/groundline/services/llm"
	"github.com/AleutianAI/groundline/services/orchestrator/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var engineTracer = otel.Tracer("groundline.qa.engine")

// =============================================================================
// Stream Handler Contract
// =============================================================================

// StreamHandler receives the output of one answer stream in order.
//
// # Description
//
// OnThread is called exactly once, before any event, with the resolved thread
// handle - the HTTP layer uses this to expose the handle in a response header
// before the body starts. OnEvent is then called once per StreamEvent in
// strict arrival order. Returning a non-nil error from either method aborts
// the stream; the engine releases the model stream promptly and propagates
// the error.
//
// # Thread Safety
//
// Methods are invoked sequentially from a single goroutine per stream.
type StreamHandler interface {
	OnThread(threadID string) error
	OnEvent(event StreamEvent) error
}

// =============================================================================
// Engine
// =============================================================================

// Engine composes the session manager, prompt builder, model client,
// incremental parser, and citation resolver into the public answer
// operations.
//
// # Description
//
// Each call to AnswerStream drives one independent pipeline:
//
//	resolve thread -> build reality lookup -> build prompt
//	  -> model fragment stream -> citation parser -> resolver -> handler
//
// The axiom store is shared read-only across all concurrent calls; the
// reality lookup and parser are private to one call. The session map inside
// SessionManager is the only shared mutable state.
//
// # Thread Safety
//
// Safe for concurrent use. All fields are read-only after construction.
//
// # Limitations
//
//   - The model failure is propagated, never retried here; retry policy
//     belongs to the model client.
type Engine struct {
	client   llm.StreamClient
	axioms   *AxiomStore
	sessions *SessionManager
	params   llm.GenerationParams

	// release drops client-side thread state, nil when the client keeps
	// none. Session evictions go through the same function via the
	// manager's evict hook; AnswerStream calls it directly for anonymous
	// one-shot threads, which no later call can ever reference.
	release func(threadID string)
}

// NewEngine creates an Engine with the provided dependencies.
//
// # Description
//
// Panics if client, axioms, or sessions is nil - these are programming
// errors, not runtime conditions.
//
// # Inputs
//
//   - client: Model collaborator. Must not be nil.
//   - axioms: Process-wide axiom store. Must not be nil.
//   - sessions: Session/thread manager. Must not be nil.
//   - params: Generation parameters forwarded to the model client.
//
// # Outputs
//
//   - *Engine: Ready for concurrent use.
func NewEngine(client llm.StreamClient, axioms *AxiomStore, sessions *SessionManager,
	params llm.GenerationParams) *Engine {

	if client == nil {
		panic("qa.NewEngine: client must not be nil")
	}
	if axioms == nil {
		panic("qa.NewEngine: axioms must not be nil")
	}
	if sessions == nil {
		panic("qa.NewEngine: sessions must not be nil")
	}
	e := &Engine{client: client, axioms: axioms, sessions: sessions, params: params}
	if r, ok := client.(llm.ThreadReleaser); ok {
		e.release = r.ReleaseThread
		sessions.OnEvict(r.ReleaseThread)
	}
	return e
}

// Sessions returns the engine's session manager for administrative
// operations (reset endpoint, idle sweeper).
func (e *Engine) Sessions() *SessionManager { return e.sessions }

// AnswerStream streams the grounded answer for one question.
//
// # Description
//
// Resolves or creates the conversation thread, renders the prompt with the
// constitution and the caller's reality statements, opens the model fragment
// stream, and delivers parsed, resolved StreamEvents to handler in strict
// arrival order. If the model stream fails mid-answer, every event already
// delivered stands and the failure is returned; nothing is retried or
// swallowed. If ctx is cancelled or the handler aborts, the model stream is
// released promptly.
//
// # Inputs
//
//   - ctx: Cancellation for the model stream.
//   - question: Non-empty user question (validated upstream).
//   - reality: Request-scoped statements. May be nil.
//   - sessionID: Opaque session id, or "" for an anonymous one-shot turn.
//   - handler: Receives the thread handle and the ordered events.
//
// # Outputs
//
//   - string: The thread handle used for this turn.
//   - error: Model stream failure, handler abort, or prompt build failure.
func (e *Engine) AnswerStream(ctx context.Context, question string,
	reality []RealityStatement, sessionID string, handler StreamHandler) (string, error) {

	ctx, span := engineTracer.Start(ctx, "Engine.AnswerStream")
	defer span.End()

	threadID := e.sessions.Resolve(sessionID)
	if sessionID == "" && e.release != nil {
		// Anonymous handles are never stored, so nothing else will
		// release the thread state behind them.
		defer e.release(threadID)
	}
	span.SetAttributes(
		attribute.String("qa.thread_id", threadID),
		attribute.Int("qa.reality_count", len(reality)),
	)

	if err := handler.OnThread(threadID); err != nil {
		return threadID, err
	}

	lookup := newRealityLookup(reality)
	prompt, err := BuildUserPrompt(e.axioms, question, reality)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt build failed")
		return threadID, err
	}

	parser := &citationParser{}
	emit := func(ev parseEvent) error {
		switch v := ev.(type) {
		case TextSegment:
			return handler.OnEvent(v)
		case CitationCandidate:
			resolved := resolveCandidate(v, e.axioms, lookup)
			_, degraded := resolved.(TextSegment)
			observability.DefaultMetrics.RecordCitation(string(v.Kind), !degraded)
			return handler.OnEvent(resolved)
		}
		return nil
	}

	streamErr := e.client.StreamConversation(ctx, threadID, prompt, e.params,
		func(fragment string) error {
			return parser.Feed(fragment, emit)
		})
	if streamErr != nil {
		span.RecordError(streamErr)
		span.SetStatus(codes.Error, "model stream failed")
		slog.Error("Model stream failed", "thread_id", threadID, "error", streamErr)
		return threadID, streamErr
	}

	if err := parser.Close(emit); err != nil {
		return threadID, err
	}
	return threadID, nil
}

// Answer runs AnswerStream to completion and flattens the events.
//
// # Description
//
// Defined purely in terms of AnswerStream: the result is the concatenation
// of Content() over every emitted event, where a citation contributes its
// canonical "[" + id + "]" form.
//
// # Outputs
//
//   - string: The complete grounded answer text.
//   - string: The thread handle used for this turn.
//   - error: Any failure AnswerStream would return.
func (e *Engine) Answer(ctx context.Context, question string,
	reality []RealityStatement, sessionID string) (string, string, error) {

	var c answerCollector
	threadID, err := e.AnswerStream(ctx, question, reality, sessionID, &c)
	if err != nil {
		return "", threadID, err
	}
	return c.sb.String(), threadID, nil
}

// answerCollector flattens a stream into its concatenated content.
type answerCollector struct {
	sb strings.Builder
}

func (c *answerCollector) OnThread(string) error { return nil }

func (c *answerCollector) OnEvent(ev StreamEvent) error {
	c.sb.WriteString(ev.Content())
	return nil
}
