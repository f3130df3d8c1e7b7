package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// yearPattern matches 4-digit years between 1900 and 2099.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ApplyPerDocCap bounds how many evidence snippets a single document may
// contribute, walking contexts in their existing relevance order and
// keeping the first cap entries per document. It never re-sorts. A cap of
// zero is the identity. Idempotent: the operation only narrows.
func ApplyPerDocCap(session *domain.Session, cap int) {
	if session == nil || cap <= 0 {
		return
	}

	counts := make(map[string]int)
	kept := make([]domain.Context, 0, len(session.Contexts))
	for _, c := range session.Contexts {
		key := c.Document.Key()
		if counts[key] >= cap {
			continue
		}
		counts[key]++
		kept = append(kept, c)
	}

	if len(kept) < len(session.Contexts) {
		logger.Debug("curation: per-doc cap %d dropped %d of %d contexts",
			cap, len(session.Contexts)-len(kept), len(session.Contexts))
	}
	session.Contexts = kept
}

// ApplyHardFilters narrows a session's contexts to those passing every
// active filter axis. Empty filters are the identity - an empty axis is
// "no constraint", never "match nothing". Idempotent.
func ApplyHardFilters(session *domain.Session, filters *domain.Filters) {
	if session == nil || filters.IsEmpty() {
		return
	}

	kept := make([]domain.Context, 0, len(session.Contexts))
	for _, c := range session.Contexts {
		if contextPasses(c, filters) {
			kept = append(kept, c)
		}
	}

	if len(kept) < len(session.Contexts) {
		logger.Debug("curation: hard filters dropped %d of %d contexts",
			len(session.Contexts)-len(kept), len(session.Contexts))
	}
	session.Contexts = kept
}

// contextPasses evaluates every active axis against one context: AND
// across axes, OR within an axis. A panic while evaluating a malformed
// context drops that context instead of failing the run.
func contextPasses(c domain.Context, filters *domain.Filters) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("curation: dropping context after evaluation panic: %v", r)
			keep = false
		}
	}()

	citation := c.Document.CitationText()

	if filters.HasYears() && !yearMatches(c.Document, citation, filters.Years) {
		return false
	}
	if filters.HasVenues() && !anySubstring(strings.ToLower(citation), filters.Venues) {
		return false
	}
	if filters.HasFields() {
		haystack := strings.ToLower(c.Document.Title) + "\n" +
			strings.ToLower(c.Text) + "\n" +
			strings.ToLower(citation)
		if !anySubstring(haystack, filters.Fields) {
			return false
		}
	}

	return true
}

// yearMatches prefers the document's structured year, falling back to the
// first year-shaped substring of the citation. A context with no
// derivable year fails closed: undated evidence must not silently pass an
// active year filter.
func yearMatches(doc domain.Document, citation string, years []int) bool {
	year := doc.Year
	if year == 0 {
		if m := yearPattern.FindString(citation); m != "" {
			year, _ = strconv.Atoi(m)
		}
	}
	if year == 0 {
		return false
	}

	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}

// anySubstring reports whether any needle occurs in the lower-cased
// haystack, case-insensitively. Empty needles never match.
func anySubstring(haystack string, needles []string) bool {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
