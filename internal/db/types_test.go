package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Affirm", "affirm"},
		{"Affirm, Inc.", "affirminc"},
		{"Google LLC", "googlellc"},
		{"open AI", "openai"},
		{"100 Thieves", "100thieves"},
		{"  Spaces Around  ", "spacesaround"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	in := time.Date(2026, 3, 9, 22, 30, 0, 0, loc) // 2026-03-10 06:30 UTC

	got := DateOf(in)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, got, DateOf(got))
}

func TestMarshalCounts_NilIsEmptyObject(t *testing.T) {
	b, err := marshalCounts(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestMarshalRequirements_Nil(t *testing.T) {
	b, err := marshalRequirements(nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestPostingJSON_OmitsNulls(t *testing.T) {
	p := Posting{ExternalJobID: "123", Title: "Engineer", ATSType: "lever", Status: PostingOpen}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "department")
	assert.Contains(t, string(b), `"status":"open"`)
}
