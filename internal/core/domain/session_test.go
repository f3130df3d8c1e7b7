package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDocument_Key tests the docname -> title -> empty preference order
func TestDocument_Key(t *testing.T) {
	assert.Equal(t, "doc1", Document{Docname: "doc1", Title: "Paper"}.Key())
	assert.Equal(t, "Paper", Document{Title: "Paper"}.Key())
	assert.Equal(t, "", Document{}.Key())
}

// TestDocument_CitationText tests the citation -> title -> docname preference order
func TestDocument_CitationText(t *testing.T) {
	d := Document{Docname: "doc1", Title: "Paper", Citation: "Smith et al. (2020)"}
	assert.Equal(t, "Smith et al. (2020)", d.CitationText())

	d.Citation = ""
	assert.Equal(t, "Paper", d.CitationText())

	d.Title = ""
	assert.Equal(t, "doc1", d.CitationText())

	assert.Equal(t, "", Document{}.CitationText())
}

// TestCurationSpec_Validate tests value-range checks
func TestCurationSpec_Validate(t *testing.T) {
	assert.NoError(t, DefaultCurationSpec().Validate())
	assert.NoError(t, CurationSpec{RelevanceCutoff: 1.0, PerDocCap: 2, MaxSources: 5}.Validate())

	assert.ErrorIs(t, CurationSpec{RelevanceCutoff: 1.2}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, CurationSpec{RelevanceCutoff: -0.1}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, CurationSpec{PerDocCap: -1}.Validate(), ErrInvalidInput)
}
