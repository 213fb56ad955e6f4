package query

import (
	"context"
	"strings"

	"github.com/gcbaptista/tagsearch/internal/errors"
)

// DefaultWildcardCap is the maximum number of tags a single wildcard may expand to.
const DefaultWildcardCap = 500

// MinLiteralChars is the minimum number of non-'*' characters in a wildcard.
const MinLiteralChars = 2

// IsWildcard reports whether term, negated or not, contains '*'.
func IsWildcard(term string) bool {
	return strings.Contains(term, "*")
}

// ValidationResult is the outcome of validating a pattern on its own.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// CheckWildcard wraps ValidateWildcard for callers that want a result value.
func CheckWildcard(pattern string) ValidationResult {
	if err := ValidateWildcard(pattern); err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}
	}
	return ValidationResult{Valid: true}
}

// ValidateWildcard rejects patterns that would match everything or are too
// unspecific to expand. A pattern without '*' is a literal tag and always valid.
func ValidateWildcard(pattern string) error {
	p := strings.ToLower(strings.TrimSpace(pattern))
	body, negated := splitNegation(p)

	if body == "" {
		return errors.NewValidationError("pattern", "pattern cannot be empty")
	}
	if !IsWildcard(body) {
		return nil
	}

	if strings.Trim(body, "*") == "" {
		switch {
		case negated:
			return errors.NewValidationError("pattern", "'"+p+"' would exclude all tags")
		case body == "*":
			return errors.NewValidationError("pattern", "'*' would match every tag; add at least 2 characters")
		default:
			return errors.NewValidationError("pattern", "wildcard pattern must contain literal characters")
		}
	}

	literals := len([]rune(strings.ReplaceAll(body, "*", "")))
	if literals < MinLiteralChars {
		return errors.NewValidationError("pattern", "wildcard pattern needs at least 2 literal characters")
	}

	return nil
}

// Match reports whether name matches pattern, where '*' matches any run of
// characters (including none) and every other character matches itself.
// Segments must appear in order, anchored at the ends unless the pattern
// starts or ends with '*'.
func Match(pattern, name string) bool {
	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return pattern == name
	}

	first, last := segments[0], segments[len(segments)-1]
	if !strings.HasPrefix(name, first) {
		return false
	}
	name = name[len(first):]

	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		i := strings.Index(name, seg)
		if i < 0 {
			return false
		}
		name = name[i+len(seg):]
	}

	return strings.HasSuffix(name, last)
}

// LikePattern converts a wildcard into a SQL LIKE pattern for use with ESCAPE '\'.
func LikePattern(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 4)
	for _, r := range pattern {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TagMatcher finds tag names matching a LIKE pattern, returning at most limit names.
type TagMatcher interface {
	MatchTagNames(ctx context.Context, likePattern string, limit int) ([]string, error)
}

// Expand resolves a wildcard (without its negation prefix) to concrete tag names,
// sorted by the matcher. More than maxTags matches is a capacity error; results are
// never truncated.
func Expand(ctx context.Context, m TagMatcher, pattern string, maxTags int) ([]string, error) {
	if err := ValidateWildcard(pattern); err != nil {
		return nil, err
	}
	if maxTags <= 0 {
		maxTags = DefaultWildcardCap
	}

	candidates, err := m.MatchTagNames(ctx, LikePattern(pattern), maxTags+1)
	if err != nil {
		return nil, err
	}

	// LIKE is case-insensitive for ASCII, Match keeps the result exact.
	names := candidates[:0]
	for _, name := range candidates {
		if Match(pattern, name) {
			names = append(names, name)
		}
	}

	if len(names) > maxTags {
		return nil, errors.NewWildcardCapacityError(pattern, maxTags)
	}
	return names, nil
}
