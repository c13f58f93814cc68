package model

const (
	// LLMErrorMarker prefixes every answer produced in place of a failed LLM call.
	LLMErrorMarker = "[LLM ERROR]"
	// UnknownAnswer is the fallback phrase the assistant uses when the context holds no answer.
	UnknownAnswer = "I don't know based on the indexed policies/data."
)

// RetrievalResult represents a record retrieved by a query
type RetrievalResult struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"` // inner product of normalized vectors
	Rank   int     `json:"rank"`  // 1-based position after deduplication
}

// Answer is what a retrieval hands back to the calling application
type Answer struct {
	Question  string             `json:"question"`
	Text      string             `json:"answer"`
	Citations []string           `json:"citations"`
	Results   []*RetrievalResult `json:"results,omitempty"`
	Context   string             `json:"-"`
	LLMError  error              `json:"-"`
}

// Failed reports whether Text is a sentinel instead of a generated answer.
func (a *Answer) Failed() bool {
	return a != nil && a.LLMError != nil
}
