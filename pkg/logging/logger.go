// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging setup for Groundline
// components.
//
// Built on the standard library slog package. Logs go to stderr by
// default (Unix CLI convention); JSON format is available for
// machine-parsed deployments. Setup installs the configured handler as
// the process-wide slog default, so packages log through plain
// slog.Info / slog.Error calls without carrying a logger around.
//
// # Basic Usage
//
//	logging.Setup(logging.Config{Level: logging.LevelInfo, Service: "answer-service"})
//	slog.Info("starting server", "port", port)
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers
// must ensure API keys and user content are not logged:
//
//	// BAD: logs the key
//	slog.Info("auth", "api_key", key)
//
//	// GOOD: log metadata only
//	slog.Info("auth", "api_key_present", key != "")
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity. Levels follow the slog convention and
// are ordered Debug < Info < Warn < Error; setting a minimum level
// filters out everything below it.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for recoverable issues (retries, degraded mode).
	LevelWarn

	// LevelError is for operation failures the system survives.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back
// to Info; case-insensitive.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// toSlogLevel bridges Level to the standard library type.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures logging for the process.
//
// A zero-value Config writes Info+ messages to stderr in text format
// with no service attribute.
type Config struct {
	// Level sets the minimum log level. Default: LevelInfo
	Level Level

	// Service identifies the component generating logs. When set it is
	// included in every entry as the "service" attribute.
	Service string

	// JSON enables JSON output (machine-parseable). Default false:
	// human-readable text.
	JSON bool
}

// =============================================================================
// Setup
// =============================================================================

// Setup builds the handler described by cfg and installs it as the
// process-wide slog default.
//
// # Inputs
//
//   - cfg: Logging configuration. Zero value gives Info-level text on
//     stderr.
//
// # Outputs
//
//   - *slog.Logger: The installed logger, for callers that want a
//     handle rather than the package-level functions.
func Setup(cfg Config) *slog.Logger {
	logger := New(cfg)
	slog.SetDefault(logger)
	return logger
}

// New builds the logger described by cfg without installing it as the
// default. Useful in tests that should not disturb global state.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Level.toSlogLevel(),
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", cfg.Service),
		})
	}

	return slog.New(handler)
}
