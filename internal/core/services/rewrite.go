package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Ensure RewriteService implements the interface.
var _ driving.RewriteService = (*RewriteService)(nil)

// Proactive throttle on delegated rewrite calls.
const (
	rewriteRate  = 1.0 // requests per second
	rewriteBurst = 3
)

// rewritePrompt is the fixed instruction contract for the delegated path.
// The model must return strict JSON; anything else fails validation and
// falls back to the heuristic.
const rewritePrompt = `Rewrite this question into a retrieval-optimised search query and extract
structured filters. Respond with ONLY a JSON object, no prose:
{"rewritten": "<query>", "filters": {"years": [..], "venues": [..], "fields": [..]}}
Omit filter axes you cannot extract with confidence.

Question: %s`

// rewriteResponseSchema is the strict shape a delegated response must
// validate against before any field of it is adopted.
const rewriteResponseSchema = `{
  "type": "object",
  "required": ["rewritten"],
  "properties": {
    "rewritten": {"type": "string", "minLength": 1},
    "filters": {
      "type": "object",
      "properties": {
        "years": {"type": "array", "items": {"type": "integer"}},
        "venues": {"type": "array", "items": {"type": "string"}},
        "fields": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

// rewriteResponse is the decoded delegated response.
type rewriteResponse struct {
	Rewritten string `json:"rewritten"`
	Filters   *struct {
		Years  []int    `json:"years"`
		Venues []string `json:"venues"`
		Fields []string `json:"fields"`
	} `json:"filters"`
}

// RewriteService converts a raw question into a retrieval-optimised query
// plus structured filters, trying the delegated LLM path first and
// degrading - once, silently - to a deterministic heuristic.
type RewriteService struct {
	llm     driven.LLMService
	limiter *rate.Limiter
	schema  *jsonschema.Schema
}

// NewRewriteService creates a rewrite service. The llm parameter is
// optional (can be nil); without it every rewrite uses the heuristic.
func NewRewriteService(llm driven.LLMService) *RewriteService {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(rewriteResponseSchema))
	if err != nil {
		// The schema is a compile-time constant; failing to compile it
		// is a programming error.
		panic(fmt.Sprintf("rewrite: compile response schema: %v", err))
	}

	return &RewriteService{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(rewriteRate), rewriteBurst),
		schema:  schema,
	}
}

// Rewrite converts the original question. It always returns a usable
// result: delegated failures of any kind (throttled, unreachable,
// malformed output) degrade to the heuristic within the same call, with
// no second network attempt.
func (s *RewriteService) Rewrite(ctx context.Context, original string, useLLM bool) domain.Rewrite {
	if useLLM && s.llm != nil {
		if rw, ok := s.delegatedRewrite(ctx, original); ok {
			return rw
		}
		logger.Debug("rewrite: delegated path failed, using heuristic")
	}
	return s.heuristicRewrite(original)
}

// delegatedRewrite asks the LLM for a strict-JSON rewrite. The response
// is adopted only if it validates against the schema in full - no
// partial adoption of a malformed response.
func (s *RewriteService) delegatedRewrite(ctx context.Context, original string) (domain.Rewrite, bool) {
	if !s.limiter.Allow() {
		logger.Debug("rewrite: delegated call throttled")
		return domain.Rewrite{}, false
	}

	raw, err := s.llm.Generate(ctx, fmt.Sprintf(rewritePrompt, original), driven.GenerateOptions{
		MaxTokens:   300,
		Temperature: 0,
	})
	if err != nil {
		logger.Debug("rewrite: delegated call failed: %v", err)
		return domain.Rewrite{}, false
	}

	payload := []byte(extractJSONObject(raw))
	if result := s.schema.ValidateJSON(payload); !result.IsValid() {
		logger.Debug("rewrite: delegated response failed validation: %v", result.Errors)
		return domain.Rewrite{}, false
	}

	var resp rewriteResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		logger.Debug("rewrite: delegated response undecodable: %v", err)
		return domain.Rewrite{}, false
	}

	rewritten := normalizeWhitespace(resp.Rewritten)
	if rewritten == "" {
		return domain.Rewrite{}, false
	}

	var filters *domain.Filters
	if resp.Filters != nil {
		f := &domain.Filters{
			Years:  sortedUniqueYears(resp.Filters.Years),
			Venues: resp.Filters.Venues,
			Fields: resp.Filters.Fields,
		}
		if !f.IsEmpty() {
			filters = f
		}
	}

	logger.Info("rewrite: delegated rewrite via %s", s.llm.ModelName())
	return domain.Rewrite{
		Rewritten:      rewritten,
		Filters:        filters,
		SameAsOriginal: rewritten == normalizeWhitespace(original),
	}, true
}

// heuristicRewrite is the deterministic fallback: whitespace
// normalisation plus year extraction from the original text. Venues and
// fields are left unset - the heuristic has no reliable signal for them.
func (s *RewriteService) heuristicRewrite(original string) domain.Rewrite {
	rewritten := normalizeWhitespace(original)

	var filters *domain.Filters
	if years := extractYears(original); len(years) > 0 {
		filters = &domain.Filters{Years: years}
	}

	return domain.Rewrite{
		Rewritten:      rewritten,
		Filters:        filters,
		SameAsOriginal: true,
	}
}

// normalizeWhitespace collapses runs of whitespace to single spaces and
// trims both ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractYears finds all 1900-2099 year substrings, deduplicated and
// sorted ascending. Returns nil - not an empty slice - when none are
// found, keeping "no years" distinct from "match no years".
func extractYears(s string) []int {
	matches := yearPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var years []int
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// sortedUniqueYears sanitises delegated year lists the same way the
// heuristic does.
func sortedUniqueYears(years []int) []int {
	if len(years) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, y := range years {
		if seen[y] {
			continue
		}
		seen[y] = true
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// extractJSONObject pulls the first balanced JSON object out of model
// output that may be wrapped in code fences or prose. If no object is
// found the trimmed input is returned so validation can reject it.
func extractJSONObject(content string) string {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := -1
	depth := 0
	inString := false
	escape := false
	for i, r := range trimmed {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[start : i+1]
			}
		}
	}
	return trimmed
}
