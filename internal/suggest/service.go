// Package suggest proposes known tags for a term that matched nothing.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

const (
	// MaxDistance is the largest edit distance a suggestion may have.
	MaxDistance = 2
	// DefaultLimit is used when the caller asks for zero suggestions.
	DefaultLimit = 5
	// candidatePool bounds how many same-initial tags are scored per request.
	candidatePool = 5000
)

// Store lists tags sharing a name prefix.
type Store interface {
	TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]model.Tag, error)
}

// Service implements services.TagSuggester.
type Service struct {
	store Store
}

var _ services.TagSuggester = (*Service)(nil)

// NewService creates a Service
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &Service{store: store}, nil
}

type candidate struct {
	tag      model.Tag
	distance int
}

// Suggest returns up to limit tags within MaxDistance of term that start with the
// same character, closest first and then most used. Tags no post carries are
// never suggested.
func (s *Service) Suggest(ctx context.Context, term string, limit int) ([]model.Tag, error) {
	term = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(term), "-")))
	if term == "" {
		return []model.Tag{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	first, _ := utf8.DecodeRuneInString(term)
	tags, err := s.store.TagsWithPrefix(ctx, string(first), candidatePool)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestion candidates: %w", err)
	}

	var matches []candidate
	for _, t := range tags {
		if t.PostCount == 0 {
			continue
		}
		if d := DistanceWithLimit(term, t.Name, MaxDistance); d <= MaxDistance {
			matches = append(matches, candidate{tag: t, distance: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		if matches[i].tag.PostCount != matches[j].tag.PostCount {
			return matches[i].tag.PostCount > matches[j].tag.PostCount
		}
		return matches[i].tag.Name < matches[j].tag.Name
	})

	out := make([]model.Tag, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.tag)
	}
	return out, nil
}
