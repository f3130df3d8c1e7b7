package domain

import "time"

// Document is the source-document metadata attached to a piece of evidence.
// The engine owns its internal representation; this is the minimal shape
// the control layer relies on.
type Document struct {
	// Docname is the engine's stable identifier for the document.
	Docname string `json:"docname,omitempty"`

	// Title is the document title.
	Title string `json:"title,omitempty"`

	// Citation is the formatted citation string.
	Citation string `json:"citation,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty"`
}

// Key returns the stable identifier used for per-document counting:
// docname, else title, else empty.
func (d Document) Key() string {
	if d.Docname != "" {
		return d.Docname
	}
	return d.Title
}

// CitationText returns the best available citation string: the formatted
// citation, else the title, else the docname, else empty.
func (d Document) CitationText() string {
	if d.Citation != "" {
		return d.Citation
	}
	if d.Title != "" {
		return d.Title
	}
	return d.Docname
}

// Context is one retrieved evidence snippet. Contexts are owned by the
// Session that produced them; curation filters the list but never mutates
// an individual item.
type Context struct {
	// Document is the source-document metadata.
	Document Document `json:"document"`

	// Page is the page number the snippet came from, zero when unknown.
	Page int `json:"page,omitempty"`

	// Score is the engine's relevance score for the snippet.
	Score float64 `json:"score,omitempty"`

	// Text is the snippet text.
	Text string `json:"text"`
}

// Session is the engine's run result. Its Contexts field is replaced in
// place by the curation pipeline, the one deliberate mutation point,
// applied exactly once between the engine call and summarisation.
type Session struct {
	// Answer is the synthesized answer markdown.
	Answer string `json:"answer"`

	// Contexts is the evidence list in relevance order.
	Contexts []Context `json:"contexts"`
}

// SourceRef is one exported source entry in a SessionSummary.
type SourceRef struct {
	Citation string  `json:"citation"`
	Page     int     `json:"page,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// SessionSummary is the durable snapshot of a completed run. It is built
// only after the run completes, never partially constructed, and
// replaces the previous latest summary (single slot, last write wins).
type SessionSummary struct {
	// RunID identifies the run that produced this summary.
	RunID string `json:"run_id"`

	// Question is the raw user question.
	Question string `json:"question"`

	// Rewritten is the retrieval-optimised question, empty if the run
	// used the raw question unchanged.
	Rewritten string `json:"rewritten,omitempty"`

	// Filters are the hard filters applied during curation, if any.
	Filters *Filters `json:"filters,omitempty"`

	// Curation is the curation spec the run was submitted with.
	Curation CurationSpec `json:"curation"`

	// AnswerMarkdown is the final answer text, empty if the engine
	// produced none.
	AnswerMarkdown string `json:"answer_markdown,omitempty"`

	// Sources lists the curated evidence sources in rank order.
	Sources []SourceRef `json:"sources"`

	// CreatedAt is when the summary was built.
	CreatedAt time.Time `json:"created_at"`
}

// ExportBundle aggregates the latest summary with the full event trace.
// It is a read-only view with no lifecycle of its own.
type ExportBundle struct {
	Session *SessionSummary `json:"session"`
	Trace   []Event         `json:"trace"`
}
