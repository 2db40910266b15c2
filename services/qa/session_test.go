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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionResolveIsStable(t *testing.T) {
	m := NewSessionManager()

	first := m.Resolve("cli-user-1")
	second := m.Resolve("cli-user-1")

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "thread-"))
	assert.Equal(t, 1, m.Len())
}

func TestSessionResolveDistinctIDs(t *testing.T) {
	m := NewSessionManager()

	a := m.Resolve("session-a")
	b := m.Resolve("session-b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, m.Len())
}

func TestSessionAnonymousIsOneShot(t *testing.T) {
	m := NewSessionManager()

	first := m.Resolve("")
	second := m.Resolve("")

	assert.NotEqual(t, first, second, "anonymous turns never share a thread")
	assert.Equal(t, 0, m.Len(), "anonymous handles are not stored")
}

func TestSessionResetAllocatesFreshHandle(t *testing.T) {
	m := NewSessionManager()

	before := m.Resolve("cli-user-1")
	m.Reset("cli-user-1")
	after := m.Resolve("cli-user-1")

	assert.NotEqual(t, before, after)
}

func TestSessionResetIsIdempotent(t *testing.T) {
	m := NewSessionManager()

	// Unknown id, then double reset of a known one. None may panic or error.
	m.Reset("never-seen")
	m.Resolve("cli-user-1")
	m.Reset("cli-user-1")
	m.Reset("cli-user-1")

	assert.Equal(t, 0, m.Len())
}

func TestSessionResetLeavesOtherSessionsAlone(t *testing.T) {
	m := NewSessionManager()

	keep := m.Resolve("keeper")
	m.Resolve("goner")
	m.Reset("goner")

	assert.Equal(t, keep, m.Resolve("keeper"))
	assert.Equal(t, 1, m.Len())
}

func TestSessionConcurrentFirstUseSingleHandle(t *testing.T) {
	m := NewSessionManager()

	const goroutines = 32
	handles := make([]string, goroutines)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = m.Resolve("contended")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		require.Equal(t, handles[0], handles[i],
			"goroutine %d observed a different handle", i)
	}
	assert.Equal(t, 1, m.Len())
}

func TestSessionResetInvokesEvictHook(t *testing.T) {
	m := NewSessionManager()
	var evicted []string
	m.OnEvict(func(threadID string) { evicted = append(evicted, threadID) })

	handle := m.Resolve("cli-user-1")
	m.Reset("cli-user-1")

	assert.Equal(t, []string{handle}, evicted,
		"the dropped mapping must hand its thread handle to the hook")

	// Resetting an unmapped id has nothing to evict.
	m.Reset("cli-user-1")
	m.Reset("never-seen")
	assert.Equal(t, []string{handle}, evicted)
}

func TestSessionExpireIdleInvokesEvictHook(t *testing.T) {
	m := NewSessionManager()
	var evicted []string
	m.OnEvict(func(threadID string) { evicted = append(evicted, threadID) })

	a := m.Resolve("idle-a")
	b := m.Resolve("idle-b")

	removed := m.ExpireIdle(time.Now().Add(time.Hour))
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{a, b}, evicted)
}

func TestSessionExpireIdle(t *testing.T) {
	m := NewSessionManager()

	m.Resolve("idle-session")
	m.Resolve("fresh-session")

	// A cutoff in the past expires nothing.
	removed := m.ExpireIdle(time.Now().Add(-time.Hour))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, m.Len())

	// A cutoff in the future expires everything not used since.
	removed = m.ExpireIdle(time.Now().Add(time.Hour))
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, m.Len())
}
