package peers

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrNotEnoughPeers is returned when fewer than k peers are eligible for a
// sample. The network must always contain at least k+1 nodes.
var ErrNotEnoughPeers = errors.New("not enough peers to sample from")

// Sampler draws uniform random samples of peer IDs. It is safe for concurrent
// use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a Sampler seeded with seed. A zero seed is replaced by a
// time-independent but fixed default so that runs stay reproducible unless a
// seed is configured.
func NewSampler(seed int64) *Sampler {
	if seed == 0 {
		seed = 1
	}
	return &Sampler{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Sample returns k distinct IDs drawn uniformly without replacement from ids,
// never including exclude.
func (s *Sampler) Sample(ids []uint64, exclude uint64, k int) ([]uint64, error) {
	eligible := ExcludeID(ids, exclude)
	if len(eligible) < k {
		return nil, fmt.Errorf("%w: want %d, have %d eligible", ErrNotEnoughPeers, k, len(eligible))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher-Yates: the first k slots end up holding the sample.
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}

	return eligible[:k], nil
}
