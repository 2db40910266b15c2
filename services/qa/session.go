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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Session / Thread Manager
// =============================================================================

// SessionManager maps opaque client session ids to provider thread handles.
//
// # Description
//
// A session id is a caller-chosen key with no semantics beyond identity; a
// thread handle is the opaque continuation token the model client uses to
// recall prior turns of one conversation. One session id maps to exactly one
// live thread handle. Resetting a session discards the mapping so the next
// use of that id allocates a fresh handle; other sessions are untouched.
//
// State machine per session id:
//
//	Unmapped --(first use)--> Mapped --(Reset)--> Unmapped --(next use)--> Mapped(new handle)
//
// Mappings live for the process lifetime unless the optional idle sweeper
// (services/orchestrator/ttl) is enabled.
//
// # Thread Safety
//
// Safe for concurrent use. sync.Map's LoadOrStore makes first-use allocation
// atomic per key: two concurrent first calls for one session id observe the
// same handle, and calls for different ids never block each other.
type SessionManager struct {
	sessions sync.Map

	// onEvict receives the thread handle of every mapping discarded by
	// Reset or ExpireIdle. Set once during wiring, before concurrent use.
	onEvict func(threadID string)
}

// sessionEntry is one live session mapping. lastUsed is Unix milliseconds of
// the most recent Resolve, consumed only by the idle sweeper.
type sessionEntry struct {
	threadID string
	lastUsed atomic.Int64
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// OnEvict registers a hook invoked with the thread handle of every mapping
// discarded by Reset or ExpireIdle.
//
// # Description
//
// The model client registers its per-thread cleanup here so a dropped
// mapping also drops the conversation history held for its handle. Must be
// set before the manager sees concurrent use.
func (m *SessionManager) OnEvict(hook func(threadID string)) {
	m.onEvict = hook
}

func (m *SessionManager) evict(threadID string) {
	if m.onEvict != nil {
		m.onEvict(threadID)
	}
}

// Resolve returns the thread handle for sessionID, creating one on first use.
//
// # Description
//
// An empty sessionID is the anonymous calling convention: a fresh handle is
// returned and nothing is stored, so the conversation is one-shot. A known
// sessionID returns its existing handle unchanged; an unknown one atomically
// allocates, stores, and returns a new handle. Concurrent first uses of the
// same id are serialized by LoadOrStore, so exactly one handle wins.
//
// # Inputs
//
//   - sessionID: Opaque caller-supplied id, or "" for an anonymous turn.
//
// # Outputs
//
//   - string: The thread handle for the conversation.
func (m *SessionManager) Resolve(sessionID string) string {
	if sessionID == "" {
		return newThreadHandle()
	}

	entry := &sessionEntry{threadID: newThreadHandle()}
	actual, loaded := m.sessions.LoadOrStore(sessionID, entry)
	e := actual.(*sessionEntry)
	e.lastUsed.Store(time.Now().UnixMilli())

	if !loaded {
		slog.Debug("Created session mapping", "session_id", sessionID, "thread_id", e.threadID)
	}
	return e.threadID
}

// Reset discards the mapping for sessionID.
//
// # Description
//
// The next Resolve for this id behaves as a first use and allocates a new
// thread handle. Resetting an unmapped id is a no-op, not an error; the
// operation is idempotent.
func (m *SessionManager) Reset(sessionID string) {
	if value, loaded := m.sessions.LoadAndDelete(sessionID); loaded {
		m.evict(value.(*sessionEntry).threadID)
	}
	slog.Debug("Reset session mapping", "session_id", sessionID)
}

// ExpireIdle removes every mapping whose last use is before cutoff.
//
// # Description
//
// Called by the optional TTL sweeper. Expired sessions lose conversational
// continuity: their next use allocates a fresh thread handle, and the evict
// hook lets the model client drop the history behind the old one. Returns
// the number of mappings removed.
func (m *SessionManager) ExpireIdle(cutoff time.Time) int {
	cutoffMs := cutoff.UnixMilli()
	removed := 0
	m.sessions.Range(func(key, value any) bool {
		if value.(*sessionEntry).lastUsed.Load() < cutoffMs {
			// LoadAndDelete so a concurrent Reset cannot make the hook
			// fire twice for one mapping.
			if v, loaded := m.sessions.LoadAndDelete(key); loaded {
				m.evict(v.(*sessionEntry).threadID)
				removed++
			}
		}
		return true
	})
	return removed
}

// Len returns the current number of live session mappings.
func (m *SessionManager) Len() int {
	n := 0
	m.sessions.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// newThreadHandle allocates a globally unique provider thread handle.
func newThreadHandle() string {
	return "thread-" + uuid.New().String()
}
