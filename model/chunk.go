package model

// ContentKind is the closed set of content kinds the loader understands.
type ContentKind string

const (
	ContentKindProse       ContentKind = "prose"
	ContentKindTable       ContentKind = "table"
	ContentKindUnsupported ContentKind = "unsupported"
)

// Chunk represents the atomic retrievable unit of an HR source file
type Chunk struct {
	Text     string      `json:"text"`
	Source   string      `json:"source"` // file base name
	Kind     ContentKind `json:"kind"`
	Metadata Metadata    `json:"metadata,omitempty"`
}

// Record is a chunk stored at the ordinal position of its vector in the index
type Record struct {
	Ordinal int `json:"ordinal"`
	Chunk
}

// NewRecords assigns ordinals 0..n-1 in corpus order.
func NewRecords(chunks []Chunk) []Record {
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = Record{Ordinal: i, Chunk: c}
	}
	return records
}
