package distribution

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Candidate is one agent entered into a selection draw.
type Candidate struct {
	ID     string
	Weight int
}

// Selector picks an agent from a candidate set. With positive total weight
// it runs a weighted roulette draw; when every weight is zero it falls back
// to a round-robin cursor so nobody starves.
type Selector struct {
	mu     sync.Mutex
	cursor int
	randFn func(n int64) int64
}

// NewSelector creates a selector seeded from the clock.
func NewSelector() *Selector {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Selector{randFn: rng.Int63n}
}

// NewSelectorWithRand creates a selector with an injected random source.
// Tests use it to make draws deterministic.
func NewSelectorWithRand(randFn func(n int64) int64) *Selector {
	return &Selector{randFn: randFn}
}

// Pick selects one candidate and reports which algorithm decided. An empty
// set returns ok=false; negative weights count as zero.
func (s *Selector) Pick(candidates []Candidate) (string, models.Algorithm, bool) {
	if len(candidates) == 0 {
		return "", "", false
	}

	var total int64
	for _, c := range candidates {
		if c.Weight > 0 {
			total += int64(c.Weight)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if total == 0 {
		id := candidates[s.cursor%len(candidates)].ID
		s.cursor++
		return id, models.AlgorithmRoundRobin, true
	}

	r := s.randFn(total)
	var cum int64
	for _, c := range candidates {
		if c.Weight <= 0 {
			continue
		}
		cum += int64(c.Weight)
		if r < cum {
			return c.ID, models.AlgorithmWeighted, true
		}
	}
	// Unreachable while r < total holds; guard against a bad randFn.
	return candidates[len(candidates)-1].ID, models.AlgorithmWeighted, true
}
