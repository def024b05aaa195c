package hsmmlib

import (
	"time"

	"golang.org/x/exp/rand"
)

// SeedGen is the sole source of randomness for a model instance.  All
// stochastic initialization draws from it, so reseeding makes multi-restart
// fits reproducible.
type SeedGen struct {
	seed uint64
	rng  *rand.Rand
}

// NewSeedGen returns a generator seeded with the given value.  A zero seed
// is replaced by the current time.
func NewSeedGen(seed uint64) *SeedGen {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SeedGen{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the generator was last (re)initialized with.
func (sg *SeedGen) Seed() uint64 {
	return sg.seed
}

// Reseed resets the generator to a known state.
func (sg *SeedGen) Reseed(seed uint64) {
	sg.seed = seed
	sg.rng = rand.New(rand.NewSource(seed))
}

// Rand exposes the underlying generator for sampling.
func (sg *SeedGen) Rand() *rand.Rand {
	return sg.rng
}
