// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command groundline starts the Groundline grounded answer service.
//
// Configuration is layered: built-in defaults, then an optional
// config.yaml, then environment variables, then flags.
//
// # Environment Variables
//
//   - GROUNDLINE_PORT: HTTP server port (default: 12310)
//   - GROUNDLINE_CONSTITUTION: Path to the axiom constitution JSON
//   - OPENAI_API_KEY: Model provider credential (or /run/secrets/openai_api_key)
//   - OPENAI_MODEL: Model name (default: gpt-4o-mini)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	# Build
//	go build -o groundline ./cmd/groundline
//
//	# Run
//	./groundline serve --constitution constitution.json
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
