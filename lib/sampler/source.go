package sampler

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// NewSource returns a deterministic ChaCha8 generator for seed. Two
// sources with the same seed produce the same sequence.
func NewSource(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return rand.New(rand.NewChaCha8(key))
}

// NewSecureSource returns a ChaCha8 generator keyed from crypto/rand.
func NewSecureSource() *rand.Rand {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		panic("sampler: reading crypto/rand: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(key))
}

// Locked wraps src so that it can be shared between goroutines.
func Locked(src Source) Source {
	return &lockedSource{src: src}
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) Uint64N(n uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64N(n)
}
