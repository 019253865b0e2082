package draw

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// RandomSource yields integers in [0, n). *rand.Rand from math/rand/v2
// satisfies it. Implementations need not be safe for concurrent use.
type RandomSource interface {
	IntN(n int) int
}

// NewSecureSource returns a ChaCha8 generator seeded from crypto/rand.
func NewSecureSource() RandomSource {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand.Read does not fail on supported platforms.
		panic("draw: reading random seed: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

// NewSeededSource returns a deterministic PCG generator.
func NewSeededSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SourceFactory builds a fresh RandomSource per draw.
type SourceFactory func() RandomSource
