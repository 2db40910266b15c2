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
	"regexp"
	"strings"
)

// =============================================================================
// Incremental Citation Parser
// =============================================================================

// citationPattern matches one complete citation marker. Both the short and
// long prefix spellings are accepted ([A-001], [AXIOM-001], [R-7], [REALITY-7]).
var citationPattern = regexp.MustCompile(`\[(AXIOM|A|REALITY|R)-(\d+)\]`)

// emitFunc receives parser output in strict arrival order.
type emitFunc func(parseEvent) error

// citationParser splits an unbounded sequence of text fragments into
// TextSegment and CitationCandidate events.
//
// # Description
//
// The model client delivers arbitrarily sized fragments, so a marker like
// [A-001] can arrive split at any position. The parser owns a single
// accumulation buffer: each fragment is appended, every complete marker in
// the buffer is emitted (text before the marker first, then the candidate),
// and the remainder is flushed as text only when it cannot be the beginning
// of a marker still in flight.
//
// The buffer is held back only when it ends in an unclosed bracket run: if
// the last '[' in the buffer has no ']' after it, the whole buffer waits for
// the next fragment. Anything else - no brackets at all, or a bracket span
// that is syntactically closed without forming a valid marker - is emitted
// verbatim. Close() flushes whatever is left, so a stream ending mid-marker
// ("...[A-12") still surfaces every character as literal text.
//
// Invariant: concatenating the Text of every TextSegment and the RawMarker of
// every CitationCandidate reproduces the concatenated input exactly. No
// characters are created, dropped, or reordered.
//
// # Thread Safety
//
// Not safe for concurrent use. One parser serves exactly one stream.
type citationParser struct {
	buf string
}

// Feed appends one fragment and emits every event it completes.
//
// # Description
//
// Emission order is fixed for protocol compatibility: for each marker found,
// the text before it is emitted first, then the candidate. A marker at
// buffer position 0 is preceded by an empty TextSegment, so back-to-back
// markers carry an empty segment between them. Empty fragments are absorbed
// without producing events.
//
// # Inputs
//
//   - fragment: Next chunk of model output. May be empty or split anywhere.
//   - emit: Receives events in order. A non-nil return aborts the feed.
//
// # Outputs
//
//   - error: The first error returned by emit, if any.
func (p *citationParser) Feed(fragment string, emit emitFunc) error {
	p.buf += fragment

	for {
		loc := citationPattern.FindStringSubmatchIndex(p.buf)
		if loc == nil {
			break
		}

		if err := emit(TextSegment{Text: p.buf[:loc[0]]}); err != nil {
			return err
		}

		raw := p.buf[loc[0]:loc[1]]
		prefix := p.buf[loc[2]:loc[3]]
		if err := emit(CitationCandidate{
			Kind:      kindForPrefix(prefix),
			ID:        raw[1 : len(raw)-1],
			RawMarker: raw,
		}); err != nil {
			return err
		}

		p.buf = p.buf[loc[1]:]
	}

	if p.buf != "" && safeToFlush(p.buf) {
		seg := TextSegment{Text: p.buf}
		p.buf = ""
		return emit(seg)
	}
	return nil
}

// Close flushes the remaining buffer as literal text.
//
// # Description
//
// Called once after the fragment source is exhausted. A retained tail that
// looks like the start of a marker is literal text at end-of-stream.
func (p *citationParser) Close(emit emitFunc) error {
	if p.buf == "" {
		return nil
	}
	seg := TextSegment{Text: p.buf}
	p.buf = ""
	return emit(seg)
}

// safeToFlush reports whether buf cannot be a prefix of a marker in flight.
// Only the last '[' matters: everything before it is either bracket-free or
// already syntactically closed, and a closed span that failed to match the
// citation pattern is plain text.
func safeToFlush(buf string) bool {
	open := strings.LastIndexByte(buf, '[')
	if open == -1 {
		return true
	}
	return strings.IndexByte(buf[open:], ']') != -1
}

// kindForPrefix maps a matched marker prefix to its reference kind.
func kindForPrefix(prefix string) ReferenceKind {
	if prefix[0] == 'R' {
		return KindReality
	}
	return KindAxiom
}
