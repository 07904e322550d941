// Package weighted implements weighted random choice over small, ordered
// tables. Every function takes its random source explicitly so callers can
// seed it for deterministic tests.
package weighted

import (
	"math/rand/v2"
	"sync"
)

// Rand is the subset of *rand.Rand the package needs.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a PCG-backed source. It is not safe for concurrent use;
// wrap it with Locked when shared.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Locked serializes access to r.
func Locked(r Rand) Rand {
	return &lockedRand{r: r}
}

type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Entry is one key with its relative weight.
type Entry[K any] struct {
	Key    K
	Weight float64
}

// Table is an ordered weight table. Order matters: keys are walked in
// insertion order when resolving a draw.
type Table[K any] []Entry[K]

// Total sums the non-negative weights.
func (t Table[K]) Total() float64 {
	var sum float64
	for _, e := range t {
		if e.Weight > 0 {
			sum += e.Weight
		}
	}
	return sum
}

// Pick draws one key with probability proportional to its weight. Keys with
// zero or negative weight are never returned by a successful draw. If rounding
// leaves the draw unmatched, the first key is returned. ok is false only for
// an empty table or one whose weights sum to zero; the first key (or the zero
// value) is returned in that case.
func Pick[K any](t Table[K], r Rand) (key K, ok bool) {
	if len(t) == 0 {
		return key, false
	}
	total := t.Total()
	if total <= 0 {
		return t[0].Key, false
	}
	draw := r.Float64() * total
	var acc float64
	for _, e := range t {
		if e.Weight <= 0 {
			continue
		}
		acc += e.Weight
		if acc >= draw {
			return e.Key, true
		}
	}
	return t[0].Key, true
}

// MustPick is Pick without the ok flag, for static tables known to be valid.
func MustPick[K any](t Table[K], r Rand) K {
	k, _ := Pick(t, r)
	return k
}

// Choice picks uniformly from items. It panics on an empty slice.
func Choice[T any](items []T, r Rand) T {
	return items[r.IntN(len(items))]
}

// Between returns a uniform integer in [lo, hi].
func Between(lo, hi int, r Rand) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
