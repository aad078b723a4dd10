package feed

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/atikulmunna/pulse/internal/model"
)

// StepFilter selects entries whose state matches one of a set of glob
// patterns, e.g. "RAG*" or "{LLM,TOOL}*". Matching is case-insensitive.
type StepFilter struct {
	patterns []string
}

// NewStepFilter compiles comma-separated patterns. An empty list matches
// everything.
func NewStepFilter(list string) (*StepFilter, error) {
	f := &StepFilter{}
	for _, p := range splitPatterns(list) {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid step pattern %q", p)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// Match reports whether e passes the filter.
func (f *StepFilter) Match(e model.LogEntry) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	state := strings.ToUpper(strings.Trim(e.State, "[]"))
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, state); ok {
			return true
		}
	}
	return false
}

// splitPatterns splits on commas that are not inside a {a,b} alternation.
func splitPatterns(list string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range list {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, list[start:i])
				start = i + 1
			}
		}
	}
	return append(out, list[start:])
}
