// Package query parses comma separated tag queries into include and exclude terms
// and validates and expands wildcard terms.
//
// Grammar, per comma separated token (trimmed and lowercased, empty tokens dropped):
//
//	tag      include tag
//	-tag     exclude tag
//	-        include the tag named "-"
//	--tag    exclude the tag named "-tag"
//	a*b      wildcard, expanded to concrete tag names before searching
package query

import (
	"strings"

	"github.com/gcbaptista/tagsearch/internal/errors"
)

// Query is a parsed tag query. Include and Exclude are deduplicated in first-seen
// order, lowercase, non-empty and disjoint.
type Query struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// Empty reports whether the query has no terms at all.
func (q Query) Empty() bool {
	return len(q.Include) == 0 && len(q.Exclude) == 0
}

// IncludeLiterals returns the include terms that are not wildcards.
func (q Query) IncludeLiterals() []string { return filterTerms(q.Include, false) }

// IncludeWildcards returns the include terms that are wildcards.
func (q Query) IncludeWildcards() []string { return filterTerms(q.Include, true) }

// ExcludeLiterals returns the exclude terms that are not wildcards.
func (q Query) ExcludeLiterals() []string { return filterTerms(q.Exclude, false) }

// ExcludeWildcards returns the exclude terms that are wildcards.
func (q Query) ExcludeWildcards() []string { return filterTerms(q.Exclude, true) }

func filterTerms(terms []string, wildcard bool) []string {
	var out []string
	for _, t := range terms {
		if IsWildcard(t) == wildcard {
			out = append(out, t)
		}
	}
	return out
}

// String renders the query back into its canonical comma separated form.
func (q Query) String() string {
	parts := make([]string, 0, len(q.Include)+len(q.Exclude))
	parts = append(parts, q.Include...)
	for _, t := range q.Exclude {
		parts = append(parts, "-"+t)
	}
	return strings.Join(parts, ",")
}

// Parse splits raw into include and exclude terms. A tag that appears both included
// and excluded is rejected rather than resolved silently. Wildcard terms are
// validated here so malformed patterns fail before any lookup.
func Parse(raw string) (Query, error) {
	var q Query
	seenInclude := make(map[string]struct{})
	seenExclude := make(map[string]struct{})

	for _, token := range strings.Split(raw, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}

		term, negated := splitNegation(token)
		if term == "" {
			return Query{}, errors.NewValidationError("tags", "'"+token+"' has no tag name after '-'")
		}

		if IsWildcard(term) {
			if err := ValidateWildcard(token); err != nil {
				return Query{}, err
			}
		}

		if negated {
			if _, ok := seenExclude[term]; ok {
				continue
			}
			seenExclude[term] = struct{}{}
			q.Exclude = append(q.Exclude, term)
		} else {
			if _, ok := seenInclude[term]; ok {
				continue
			}
			seenInclude[term] = struct{}{}
			q.Include = append(q.Include, term)
		}
	}

	for _, term := range q.Include {
		if _, ok := seenExclude[term]; ok {
			return Query{}, errors.NewValidationError("tags", "'"+term+"' is both included and excluded")
		}
	}

	return q, nil
}

// splitNegation strips exactly one leading '-' from a token longer than one
// character. The remainder is trimmed so "- tag" reads as "-tag".
func splitNegation(token string) (string, bool) {
	if len(token) > 1 && token[0] == '-' {
		return strings.TrimSpace(token[1:]), true
	}
	return token, false
}
