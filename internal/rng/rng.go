// Package rng provides a splittable seed sequence and the sampling
// distributions the core needs: uniform, exponential, uniform integer,
// categorical.
//
// Any label spawns an independent, deterministically-derived generator,
// which is what the source, each physics process, and each worker need to
// stay isolated from one another while remaining reproducible at a fixed
// master seed.
package rng

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
)

// RootLabel is reserved: SeedSequence.Spawn(RootLabel) returns a generator
// seeded directly from the master seed, for callers that want the master
// sequence itself rather than a derived one.
const RootLabel = "root"

// SeedSequence is a splittable seed: each Spawn(label) call derives an
// independent *Generator. The same (masterSeed, label) pair always yields
// bit-identical sequences, which is what makes a run reproducible at a
// fixed seed.
//
// Not safe for concurrent use: Spawn reads and writes an unguarded cache
// map, so calls must not overlap, whatever their labels. Each worker
// should hold its own *Generator exclusively.
type SeedSequence struct {
	masterSeed int64
	spawned    map[string]*Generator
}

// NewSeedSequence creates a SeedSequence from a master seed.
func NewSeedSequence(masterSeed int64) *SeedSequence {
	return &SeedSequence{masterSeed: masterSeed, spawned: make(map[string]*Generator)}
}

// Spawn returns the Generator for label, creating and caching it on first
// use. Never returns nil.
func (s *SeedSequence) Spawn(label string) *Generator {
	if g, ok := s.spawned[label]; ok {
		return g
	}
	derived := s.masterSeed
	if label != RootLabel {
		derived ^= fnv1a64(label)
	}
	g := &Generator{r: rand.New(rand.NewSource(derived)), label: label, seed: derived}
	s.spawned[label] = g
	return g
}

// MasterSeed returns the seed this sequence was constructed with.
func (s *SeedSequence) MasterSeed() int64 { return s.masterSeed }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// Generator is a per-worker random number generator exposing the
// distributions the core needs. Exactly one goroutine should own a given
// Generator at a time.
type Generator struct {
	r     *rand.Rand
	label string
	seed  int64
}

// NewGenerator builds a standalone Generator directly from a seed, for
// callers that don't need subsystem isolation (e.g. a unit test).
func NewGenerator(seed int64) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed)), label: RootLabel, seed: seed}
}

// Label returns the subsystem label this generator was spawned for.
func (g *Generator) Label() string { return g.label }

// Uniform01 draws a uniform real in [0,1).
func (g *Generator) Uniform01() float64 { return g.r.Float64() }

// Exponential draws from an exponential distribution with the given mean
// (not rate). Returns +Inf if mean is +Inf, and 0 if mean <= 0.
func (g *Generator) Exponential(mean float64) float64 {
	if math.IsInf(mean, 1) {
		return math.Inf(1)
	}
	if mean <= 0 {
		return 0
	}
	return g.r.ExpFloat64() * mean
}

// UniformInt draws a uniform integer in [lo, hi).
func (g *Generator) UniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Intn(hi-lo)
}

// Categorical draws an index in [0, len(weights)) with probability
// proportional to weights[i]. weights need not be normalized. Panics if
// weights is empty or sums to <= 0.
func (g *Generator) Categorical(weights []float64) int {
	if len(weights) == 0 {
		panic("rng: Categorical called with no weights")
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		panic("rng: Categorical weights sum to a non-positive value")
	}
	target := g.r.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

// State serializes the generator's seed (8 bytes, little-endian). It does
// not capture the position within the sequence: RestoreState from it
// replays the sequence from its first draw.
func (g *Generator) State() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(g.seed))
	return buf
}

// RestoreState reseeds the generator from a previously captured State().
// The sequence restarts from the seed, not from the exact draw position —
// callers that need exact positional resumption should track draw counts
// themselves.
func (g *Generator) RestoreState(state []byte) {
	if len(state) < 8 {
		return
	}
	seed := int64(binary.LittleEndian.Uint64(state))
	g.seed = seed
	g.r = rand.New(rand.NewSource(seed))
}
