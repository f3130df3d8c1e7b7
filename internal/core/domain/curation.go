package domain

// CurationSpec configures evidence curation for a run.
//
// RelevanceCutoff and MaxSources are applied by tuning the engine before
// the run (they shape what is retrieved); PerDocCap and hard Filters are
// applied after the run against the returned evidence list, because they
// need text-level heuristics the engine does not expose.
type CurationSpec struct {
	// RelevanceCutoff is the minimum relevance score in [0,1] the engine
	// should accept for evidence.
	RelevanceCutoff float64 `json:"relevance_cutoff"`

	// PerDocCap bounds how many evidence snippets a single document may
	// contribute. Zero means uncapped.
	PerDocCap int `json:"per_doc_cap,omitempty"`

	// MaxSources bounds the number of sources in the exported summary.
	// Zero means unbounded.
	MaxSources int `json:"max_sources,omitempty"`
}

// Validate checks the spec's value ranges.
func (c CurationSpec) Validate() error {
	if c.RelevanceCutoff < 0 || c.RelevanceCutoff > 1 {
		return ErrInvalidInput
	}
	if c.PerDocCap < 0 || c.MaxSources < 0 {
		return ErrInvalidInput
	}
	return nil
}

// DefaultCurationSpec returns a spec with sensible defaults: no relevance
// cutoff, no per-document cap, at most ten exported sources.
func DefaultCurationSpec() CurationSpec {
	return CurationSpec{
		RelevanceCutoff: 0.0,
		PerDocCap:       0,
		MaxSources:      10,
	}
}
