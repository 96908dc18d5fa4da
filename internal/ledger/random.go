package ledger

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource picks spotlight players. IntN returns a value in [0, n).
type RandomSource interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// NewSeededSource returns a deterministic source. Two sources built from
// the same seeds produce the same sequence.
func NewSeededSource(seed1, seed2 uint64) RandomSource {
	return &lockedRand{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewRandomSource returns a source seeded from crypto/rand.
func NewRandomSource() RandomSource {
	var b [16]byte
	_, _ = crand.Read(b[:])
	return NewSeededSource(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]))
}
