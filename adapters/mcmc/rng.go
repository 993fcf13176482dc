package mcmc

import (
	"math/rand/v2"
)

// RNGAdapter derives independent PCG streams from a base seed
type RNGAdapter struct{}

// NewRNGAdapter returns the default stream factory
func NewRNGAdapter() *RNGAdapter {
	return &RNGAdapter{}
}

// SeededStream creates a deterministic source for a named operation
func (r *RNGAdapter) SeededStream(name string, seed uint64) rand.Source {
	return rand.NewPCG(seed, uint64(hashString(name)))
}

// ChainStream creates the source for one chain; the chain index is mixed
// into the PCG stream selector.
func (r *RNGAdapter) ChainStream(seed uint64, chain int) rand.Source {
	return rand.NewPCG(seed, uint64(hashString("chain"))^(uint64(chain+1)*0x9e3779b97f4a7c15))
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
