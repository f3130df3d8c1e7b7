package domain

// RunRequest is a caller's submission for one end-to-end query run.
type RunRequest struct {
	// Question is the raw user question.
	Question string `json:"question"`

	// Rewrite optionally carries a precomputed rewrite; when set, the
	// engine receives the rewritten question and curation applies the
	// rewrite's hard filters.
	Rewrite *Rewrite `json:"rewrite,omitempty"`

	// Curation holds the curation rules for this run.
	Curation CurationSpec `json:"curation"`

	// Corpus is the opaque corpus reference forwarded to the engine.
	Corpus any `json:"-"`

	// Stream requests that incremental engine output be relayed as log
	// events while the run is in flight.
	Stream bool `json:"stream,omitempty"`
}

// Validate checks that the request can be submitted.
func (r RunRequest) Validate() error {
	if r.Question == "" {
		return ErrInvalidInput
	}
	return r.Curation.Validate()
}
