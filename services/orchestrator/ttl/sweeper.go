// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ttl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/groundline/services/orchestrator/observability"
)

// =============================================================================
// Session Idle Sweeper
// =============================================================================

// SessionExpirer is the session-store capability the sweeper depends on.
//
// # Description
//
// Satisfied by qa.SessionManager. Narrowed to the single operation the
// sweeper needs so tests can substitute a counter.
type SessionExpirer interface {
	// ExpireIdle removes every session whose last use is before cutoff
	// and returns the number removed.
	ExpireIdle(cutoff time.Time) int
}

// SweeperConfig holds configuration for the idle-session sweeper.
//
// # Fields
//
//   - Interval: How often the sweep runs. Default: 15 minutes.
//   - IdleTTL: How long a session may sit unused before it is expired.
//     Default: 24 hours.
type SweeperConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// DefaultSweeperConfig returns production defaults.
//
// # Outputs
//
//   - SweeperConfig: 15 minute sweep interval, 24 hour idle TTL.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 15 * time.Minute,
		IdleTTL:  24 * time.Hour,
	}
}

// Sweeper periodically expires idle session mappings.
//
// # Description
//
// Runs a background goroutine on a ticker. Each cycle computes the cutoff
// as now minus IdleTTL and asks the session store to drop everything older.
// An expired session only loses conversational continuity; the next request
// with that id silently starts a fresh thread.
//
// Uses the ticker + done channel pattern for shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Sweeper struct {
	sessions SessionExpirer
	clock    Clock
	config   SweeperConfig
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSweeper creates an idle-session sweeper.
//
// # Inputs
//
//   - sessions: Session store to sweep. Must be non-nil.
//   - clock: Time source. Pass nil for the system clock.
//   - config: Sweep interval and idle TTL. Zero fields use defaults.
//
// # Outputs
//
//   - *Sweeper: Ready to Start().
func NewSweeper(sessions SessionExpirer, clock Clock, config SweeperConfig) *Sweeper {
	if clock == nil {
		clock = SystemClock()
	}
	defaults := DefaultSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	return &Sweeper{
		sessions: sessions,
		clock:    clock,
		config:   config,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.
//
// # Description
//
// Starts a goroutine that sweeps at the configured interval until Stop()
// is called or the context is cancelled. No initial sweep runs at start;
// a just-booted process has nothing idle yet.
//
// # Outputs
//
//   - error: Non-nil if the sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset for potential restart
	s.mu.Unlock()

	slog.Info("Session idle sweeper starting",
		"interval", s.config.Interval.String(),
		"idle_ttl", s.config.IdleTTL.String(),
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the sweep loop to exit. Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	slog.Info("Session idle sweeper stopping")
	close(s.done)
	s.running = false
}

// RunNow performs one sweep immediately and returns the number of
// sessions expired. Does not affect the scheduled cycle.
func (s *Sweeper) RunNow() int {
	return s.sweep()
}

func (s *Sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session idle sweeper stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("Session idle sweeper stopped (stop requested)")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep runs one expiry cycle.
func (s *Sweeper) sweep() int {
	cutoff := s.clock.Now().Add(-s.config.IdleTTL)
	removed := s.sessions.ExpireIdle(cutoff)
	if removed > 0 {
		slog.Info("Expired idle sessions",
			"removed", removed,
			"cutoff", cutoff.Format(time.RFC3339),
		)
		observability.DefaultMetrics.RecordSessionsExpired(removed)
	}
	return removed
}
