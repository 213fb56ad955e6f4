package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"both empty", "", "", 0},
		{"a empty", "", "hello", 5},
		{"b empty", "hello", "", 5},
		{"identical", "blue_eyes", "blue_eyes", 0},
		{"substitution", "kitten", "sitten", 1},
		{"insertion", "apple", "applye", 1},
		{"deletion", "banana", "banna", 1},
		{"transposition", "blue_eyse", "blue_eyes", 1},
		{"transposition at start", "lbue", "blue", 1},
		{"multiple edits", "saturday", "sunday", 3},
		{"unicode", "résumé", "resume", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, Distance(tt.b, tt.a), "distance is symmetric")
		})
	}
}

func TestDistanceWithLimit(t *testing.T) {
	tests := []struct {
		name  string
		a     string
		b     string
		limit int
		want  int
	}{
		{"within limit", "long_hiar", "long_hair", 2, 1},
		{"at limit", "saturday", "sunday", 3, 3},
		{"over limit", "saturday", "sunday", 2, 3},
		{"length gap over limit", "ab", "abcdef", 2, 3},
		{"zero limit exact", "solo", "solo", 0, 0},
		{"zero limit miss", "solo", "sola", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DistanceWithLimit(tt.a, tt.b, tt.limit))
		})
	}
}
