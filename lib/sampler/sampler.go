package sampler

import (
	"math/bits"
	"sort"
)

// Source supplies uniform random numbers. *math/rand/v2.Rand satisfies it.
type Source interface {
	// Uint64N returns a uniform value in [0, n). n is never 0.
	Uint64N(n uint64) uint64
}

// Mode records how a sample was drawn.
type Mode uint8

const (
	// ModeWeighted is a normal draw proportional to weight.
	ModeWeighted Mode = iota
	// ModeUniformFallback means every candidate weighed 0 and one was
	// chosen uniformly instead.
	ModeUniformFallback
)

func (m Mode) String() string {
	switch m {
	case ModeWeighted:
		return "weighted"
	case ModeUniformFallback:
		return "uniform-fallback"
	default:
		return "unknown"
	}
}

// Sample picks one candidate with probability proportional to its weight.
//
// Zero-weight candidates are never picked while the total is positive. If
// every weight is 0 a candidate is picked uniformly and the mode is
// ModeUniformFallback. An empty candidate list returns ok == false.
// Sample keeps no state; all randomness comes from src.
func Sample[T any](candidates []T, weight func(T) uint64, src Source) (chosen T, mode Mode, ok bool) {
	if len(candidates) == 0 {
		return chosen, ModeWeighted, false
	}
	ws, total := weigh(candidates, weight)
	if total == 0 {
		return candidates[src.Uint64N(uint64(len(candidates)))], ModeUniformFallback, true
	}
	return candidates[draw(ws, total, src)], ModeWeighted, true
}

// SampleN picks up to n distinct candidates without replacement, each
// draw proportional to weight among those not yet picked.
//
// If some weight is positive only positive-weight candidates are
// returned, so fewer than n may come back. If every weight is 0, up to n
// candidates are picked uniformly and the mode is ModeUniformFallback.
func SampleN[T any](candidates []T, n int, weight func(T) uint64, src Source) ([]T, Mode) {
	if len(candidates) == 0 || n <= 0 {
		return nil, ModeWeighted
	}
	ws, total := weigh(candidates, weight)
	mode := ModeWeighted
	if total == 0 {
		mode = ModeUniformFallback
		for i := range ws {
			ws[i] = 1
		}
		total = uint64(len(ws))
	}

	out := make([]T, 0, min(n, len(candidates)))
	for len(out) < n && total > 0 {
		i := draw(ws, total, src)
		out = append(out, candidates[i])
		total -= ws[i]
		ws[i] = 0
	}
	return out, mode
}

// weigh evaluates every weight once. If the running sum would overflow,
// all weights are halved until it fits.
func weigh[T any](candidates []T, weight func(T) uint64) ([]uint64, uint64) {
	ws := make([]uint64, len(candidates))
	var total uint64
	var shift uint
	for i, c := range candidates {
		w := weight(c) >> shift
		for {
			sum, carry := bits.Add64(total, w, 0)
			if carry == 0 {
				total = sum
				break
			}
			shift++
			w >>= 1
			total = 0
			for j := range i {
				ws[j] >>= 1
				total += ws[j]
			}
		}
		ws[i] = w
	}
	return ws, total
}

// draw maps one uniform value in [0,total) onto the candidate whose
// cumulative range contains it.
func draw(ws []uint64, total uint64, src Source) int {
	target := src.Uint64N(total)
	cum := make([]uint64, len(ws))
	var acc uint64
	for i, w := range ws {
		acc += w
		cum[i] = acc
	}
	return sort.Search(len(cum), func(i int) bool { return cum[i] > target })
}
