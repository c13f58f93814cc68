package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecords(t *testing.T) {
	chunks := []Chunk{
		{Text: "Leave policy", Source: "leave.md", Kind: ContentKindProse},
		{Text: "TABLE ROW from staff.csv | name: Ada", Source: "staff.csv", Kind: ContentKindTable},
	}

	records := NewRecords(chunks)

	require.Len(t, records, 2)
	for i, r := range records {
		assert.Equal(t, i, r.Ordinal, "Expected ordinal to equal corpus position")
		assert.Equal(t, chunks[i], r.Chunk)
	}
}

func TestRecordJSON(t *testing.T) {
	r := Record{Ordinal: 3, Chunk: Chunk{Text: "t", Source: "s.md", Kind: ContentKindProse}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ordinal":3,"text":"t","source":"s.md","kind":"prose"}`, string(data), "Expected chunk fields to be flattened")
}
