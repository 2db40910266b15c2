// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/groundline/services/qa"
)

func TestGenerateRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		req     GenerateRequest
		wantErr bool
	}{
		{
			name: "minimal valid request",
			req:  GenerateRequest{Question: "Are deposits insured?"},
		},
		{
			name: "valid with session id",
			req:  GenerateRequest{Question: "q", SessionID: "cli-user.1_2"},
		},
		{
			name:    "empty question rejected",
			req:     GenerateRequest{Question: ""},
			wantErr: true,
		},
		{
			name:    "oversized question rejected",
			req:     GenerateRequest{Question: strings.Repeat("x", MaxQuestionBytes+1)},
			wantErr: true,
		},
		{
			name: "question at the byte limit passes",
			req:  GenerateRequest{Question: strings.Repeat("x", MaxQuestionBytes)},
		},
		{
			name:    "session id with shell metacharacters rejected",
			req:     GenerateRequest{Question: "q", SessionID: "id; rm -rf /"},
			wantErr: true,
		},
		{
			name:    "session id starting with punctuation rejected",
			req:     GenerateRequest{Question: "q", SessionID: "-leading-dash"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateRequestRealityLimit(t *testing.T) {
	reality := make(RealityPayload, MaxRealityStatements+1)
	req := GenerateRequest{Question: "q", Reality: reality}

	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	req.Reality = reality[:MaxRealityStatements]
	assert.NoError(t, req.Validate())
}

func TestRealityPayloadArrayEncoding(t *testing.T) {
	body := `{"question":"q","reality":[{"id":"R-1","entity":"acme_bank","value":"solvent"}]}`

	var req GenerateRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.Reality, 1)
	assert.Equal(t, "acme_bank", req.Reality[0].Entity)
}

func TestRealityPayloadBase64Encoding(t *testing.T) {
	doc := `[{"id":"R-2","entity":"acme_bank","attribute":"tier1_ratio","value":"8.1%"}]`
	encoded := base64.StdEncoding.EncodeToString([]byte(doc))

	var req GenerateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","reality":"`+encoded+`"}`), &req))
	require.Len(t, req.Reality, 1)
	assert.Equal(t, "tier1_ratio", req.Reality[0].Attribute)
}

func TestRealityPayloadAbsentAndNull(t *testing.T) {
	var req GenerateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q"}`), &req))
	assert.Nil(t, req.Reality)

	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","reality":null}`), &req))
	assert.Nil(t, req.Reality)
}

func TestRealityPayloadRejectsBadEncodings(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not base64", `{"question":"q","reality":"%%%not-base64%%%"}`},
		{"base64 of non-array", `{"question":"q","reality":"` + base64.StdEncoding.EncodeToString([]byte(`{"a":1}`)) + `"}`},
		{"number", `{"question":"q","reality":7}`},
		{"object", `{"question":"q","reality":{"id":"R-1"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req GenerateRequest
			assert.Error(t, json.Unmarshal([]byte(tc.body), &req))
		})
	}
}

func TestSessionResetRequestValidation(t *testing.T) {
	valid := SessionResetRequest{SessionID: "cli-user-1"}
	assert.NoError(t, valid.Validate())

	missing := SessionResetRequest{}
	assert.Error(t, missing.Validate())

	hostile := SessionResetRequest{SessionID: "../../etc/passwd"}
	assert.Error(t, hostile.Validate())
}

func TestWireLineShapes(t *testing.T) {
	text, err := json.Marshal(NewTextLine("Hello "))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","text":"Hello "}`, string(text))

	axiom, err := json.Marshal(NewAxiomCitationLine(qa.Axiom{
		ID: "A-001", Description: "Deposits are insured.",
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"axiom_citation","id":"A-001","description":"Deposits are insured."}`, string(axiom))

	reality, err := json.Marshal(NewRealityCitationLine(qa.RealityStatement{
		ID: "R-14", Entity: "acme_bank", Attribute: "tier1_ratio",
		Value: "8.1%", Number: "0.081", Description: "Capital ratio.",
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"reality_citation","id":"R-14","entity":"acme_bank",
		"attribute":"tier1_ratio","value":"8.1%","number":"0.081",
		"description":"Capital ratio."
	}`, string(reality))

	errLine, err := json.Marshal(NewErrorLine("model stream failed"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"model stream failed"}`, string(errLine))
}
