package domain

// Filters holds hard metadata constraints applied to retrieved evidence.
// A nil or empty axis means "no constraint on this axis"; an empty list
// is never interpreted as "match nothing". Every consumer must check the
// HasX accessors instead of comparing lengths inline, so the empty-list
// semantics stay in one place.
type Filters struct {
	// Years restricts evidence to documents published in these years,
	// sorted ascending.
	Years []int `json:"years,omitempty"`

	// Venues restricts evidence to citations mentioning any of these
	// venue strings (case-insensitive substring match).
	Venues []string `json:"venues,omitempty"`

	// Fields restricts evidence to snippets/titles/citations mentioning
	// any of these field strings (case-insensitive substring match).
	Fields []string `json:"fields,omitempty"`
}

// HasYears returns true if the year axis is constrained.
func (f *Filters) HasYears() bool {
	return f != nil && len(f.Years) > 0
}

// HasVenues returns true if the venue axis is constrained.
func (f *Filters) HasVenues() bool {
	return f != nil && len(f.Venues) > 0
}

// HasFields returns true if the field axis is constrained.
func (f *Filters) HasFields() bool {
	return f != nil && len(f.Fields) > 0
}

// IsEmpty returns true if no axis carries a constraint.
func (f *Filters) IsEmpty() bool {
	return !f.HasYears() && !f.HasVenues() && !f.HasFields()
}
