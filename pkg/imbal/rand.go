package imbal

import "math/rand/v2"

// Stream ids for the deterministic random number streams of an
// experiment run.  Every consumer of randomness gets its own stream so
// that changing one step does not shift the numbers drawn by the others.
const (
	StreamSplit uint64 = iota + 1
	StreamResample
	StreamClassifier
)

// NewRand returns a deterministic random number generator for the
// given seed and stream.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}
