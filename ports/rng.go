package ports

import (
	"math/rand/v2"
)

// RNGPort provides seeded random streams for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic source for a named operation
	SeededStream(name string, seed uint64) rand.Source

	// ChainStream creates the source for one MCMC chain. Different chains
	// of the same seed never share a stream.
	ChainStream(seed uint64, chain int) rand.Source
}
