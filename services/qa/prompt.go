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
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// =============================================================================
// Prompt Building
// =============================================================================

//go:embed templates/*.tmpl
var templateFS embed.FS

// SystemPrompt is the instruction block handed to the model client at
// construction time. It travels with the binary so deployments cannot drift
// from the citation contract the parser expects.
//
//go:embed templates/system_prompt.md
var SystemPrompt string

var promptTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// userPromptData is the payload for user_prompt.tmpl.
type userPromptData struct {
	Constitution string
	Reality      string
	Question     string
}

// BuildUserPrompt renders the full user prompt: constitution block, optional
// reality block, and the question.
//
// # Description
//
// The constitution block lists every axiom with its bracketed id; the reality
// block is rendered only when the caller supplied statements. The rendered
// ids are exactly the ids the parser will later recognize in the model's
// answer, closing the citation loop.
//
// # Inputs
//
//   - axioms: Process-wide axiom store.
//   - question: The user's question. Assumed non-empty (validated upstream).
//   - reality: Optional request-scoped statements. May be nil.
//
// # Outputs
//
//   - string: The rendered prompt.
//   - error: Non-nil only if template execution fails.
func BuildUserPrompt(axioms *AxiomStore, question string, reality []RealityStatement) (string, error) {
	constitution, err := renderTemplate("constitution.tmpl", axioms.List())
	if err != nil {
		return "", err
	}

	realityBlock := ""
	if len(reality) > 0 {
		realityBlock, err = renderTemplate("reality.tmpl", reality)
		if err != nil {
			return "", err
		}
	}

	return renderTemplate("user_prompt.tmpl", userPromptData{
		Constitution: strings.TrimRight(constitution, "\n"),
		Reality:      strings.TrimRight(realityBlock, "\n"),
		Question:     question,
	})
}

func renderTemplate(name string, data any) (string, error) {
	var sb strings.Builder
	if err := promptTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}
