package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
)

func TestIsWildcard(t *testing.T) {
	assert.True(t, IsWildcard("character:*"))
	assert.True(t, IsWildcard("*_eyes"))
	assert.True(t, IsWildcard("blue*eyes"))
	assert.True(t, IsWildcard("-character:*"))
	assert.False(t, IsWildcard("blue_eyes"))
}

func TestValidateWildcard(t *testing.T) {
	tests := []struct {
		pattern string
		valid   bool
	}{
		{"*", false},
		{"-*", false},
		{"***", false},
		{"-***", false},
		{"a*", false},
		{"*a*", false},
		{"ab*", true},
		{"*ab", true},
		{"a*b", true},
		{"-ab*", true},
		{"blue_eyes", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := ValidateWildcard(tt.pattern)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestValidateWildcardDistinctMessages(t *testing.T) {
	star := ValidateWildcard("*")
	negStar := ValidateWildcard("-*")
	stars := ValidateWildcard("***")
	short := ValidateWildcard("a*")

	msgs := map[string]bool{}
	for _, err := range []error{star, negStar, stars, short} {
		require.Error(t, err)
		msgs[err.Error()] = true
	}
	assert.Len(t, msgs, 4, "each rejection has its own message")
	assert.Contains(t, negStar.Error(), "exclude all tags")
	assert.Contains(t, stars.Error(), "literal characters")
}

func TestCheckWildcard(t *testing.T) {
	assert.Equal(t, ValidationResult{Valid: true}, CheckWildcard("ab*"))

	res := CheckWildcard("*")
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Error)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"character:*", "character:alice", true},
		{"character:*", "xcharacter:alice", false},
		{"*_eyes", "blue_eyes", true},
		{"*_eyes", "blue_eyes_closed", false},
		{"blue*eyes", "blue_green_eyes", true},
		{"blue*eyes", "eyes_blue", false},
		{"*ue*ey*", "blue_eyes", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
		{"ab*ba", "aba", false},
		{"exact", "exact", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.pattern, tt.name), "Match(%q, %q)", tt.pattern, tt.name)
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `blue\_%`, LikePattern("blue_*"))
	assert.Equal(t, `%100\%%`, LikePattern("*100%*"))
	assert.Equal(t, `a\\b%`, LikePattern(`a\b*`))
}

// sliceMatcher emulates a LIKE scan over an in-memory tag list.
type sliceMatcher struct {
	tags    []string
	pattern string
	err     error
}

func (m *sliceMatcher) MatchTagNames(_ context.Context, likePattern string, limit int) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.pattern = likePattern
	glob := strings.ReplaceAll(likePattern, "%", "*")
	glob = strings.NewReplacer(`\_`, "_", `\\`, `\`, `\*`, "%").Replace(glob)

	var out []string
	for _, tag := range m.tags {
		if Match(glob, tag) {
			out = append(out, tag)
		}
		if len(out) == limit {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

func TestExpand(t *testing.T) {
	m := &sliceMatcher{tags: []string{"blue_eyes", "red_eyes", "blue_hair", "eyes_closed"}}

	names, err := Expand(context.Background(), m, "*_eyes", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue_eyes", "red_eyes"}, names)
	assert.Equal(t, `%\_eyes`, m.pattern)
}

func TestExpandCapacity(t *testing.T) {
	tags := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		tags = append(tags, fmt.Sprintf("tag_%02d", i))
	}
	m := &sliceMatcher{tags: tags}

	_, err := Expand(context.Background(), m, "tag*", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))

	names, err := Expand(context.Background(), m, "tag*", 12)
	require.NoError(t, err)
	assert.Len(t, names, 12, "exactly at the cap is allowed")
}

func TestExpandInvalidPattern(t *testing.T) {
	m := &sliceMatcher{}
	_, err := Expand(context.Background(), m, "a*", 10)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Empty(t, m.pattern, "matcher must not be queried")
}

func TestExpandPropagatesStoreError(t *testing.T) {
	m := &sliceMatcher{err: errors.New("database is locked")}
	_, err := Expand(context.Background(), m, "ab*", 10)
	assert.EqualError(t, err, "database is locked")
}
