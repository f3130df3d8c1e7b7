package domain

// Rewrite is the result of converting a raw question into a
// retrieval-optimised query with structured filters.
type Rewrite struct {
	// Rewritten is the retrieval-optimised question.
	Rewritten string `json:"rewritten"`

	// Filters are the structured constraints extracted from the
	// question, nil when none were found.
	Filters *Filters `json:"filters,omitempty"`

	// SameAsOriginal is true when the rewritten question equals the
	// original after whitespace normalisation.
	SameAsOriginal bool `json:"same_as_original"`
}
