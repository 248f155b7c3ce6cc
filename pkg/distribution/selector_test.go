package distribution

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

func TestPickEmptySet(t *testing.T) {
	s := NewSelector()
	_, _, ok := s.Pick(nil)
	assert.False(t, ok)
}

func TestPickWeightedBoundaries(t *testing.T) {
	candidates := []Candidate{{ID: "a", Weight: 3}, {ID: "b", Weight: 1}}

	cases := []struct {
		draw int64
		want string
	}{
		{0, "a"},
		{2, "a"},
		{3, "b"},
	}
	for _, tc := range cases {
		s := NewSelectorWithRand(func(int64) int64 { return tc.draw })
		id, algo, ok := s.Pick(candidates)
		require.True(t, ok)
		assert.Equal(t, tc.want, id, "draw %d", tc.draw)
		assert.Equal(t, models.AlgorithmWeighted, algo)
	}
}

func TestPickSkipsNonPositiveWeights(t *testing.T) {
	candidates := []Candidate{
		{ID: "zero", Weight: 0},
		{ID: "neg", Weight: -5},
		{ID: "only", Weight: 2},
	}
	s := NewSelectorWithRand(func(int64) int64 { return 0 })
	for i := 0; i < 10; i++ {
		id, _, ok := s.Pick(candidates)
		require.True(t, ok)
		assert.Equal(t, "only", id)
	}
}

func TestPickWeightedProportions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewSelectorWithRand(rng.Int63n)
	candidates := []Candidate{{ID: "a", Weight: 3}, {ID: "b", Weight: 1}}

	counts := map[string]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		id, _, ok := s.Pick(candidates)
		require.True(t, ok)
		counts[id]++
	}

	// Expect roughly 75/25 with a generous tolerance for a fixed seed.
	ratio := float64(counts["a"]) / draws
	assert.InDelta(t, 0.75, ratio, 0.03)
}

func TestPickRoundRobinWhenAllWeightsZero(t *testing.T) {
	s := NewSelector()
	candidates := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	var got []string
	for i := 0; i < 6; i++ {
		id, algo, ok := s.Pick(candidates)
		require.True(t, ok)
		assert.Equal(t, models.AlgorithmRoundRobin, algo)
		got = append(got, id)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)
}

func TestPickRoundRobinCursorSurvivesSetChanges(t *testing.T) {
	s := NewSelector()
	_, _, ok := s.Pick([]Candidate{{ID: "a"}, {ID: "b"}})
	require.True(t, ok)

	id, _, ok := s.Pick([]Candidate{{ID: "x"}, {ID: "y"}, {ID: "z"}})
	require.True(t, ok)
	assert.Equal(t, "y", id)
}
