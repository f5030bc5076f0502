// Package particle implements the struct-of-arrays photon batch that
// flows through a simulation run, and the interaction records a
// propagation step emits.
package particle

import (
	"sync/atomic"

	"github.com/nmsim/phospec/internal/units"
)

// Batch is a columnar collection of n photons. Every slice has length n;
// index i across all slices describes one photon.
type Batch struct {
	ID     []uint64
	KindID []int // currently always 0 (gamma); kept for future particle kinds

	Position  []units.Vec3
	Direction []units.Vec3
	Energy    []float64

	EmissionPosition  []units.Vec3
	EmissionDirection []units.Vec3
	EmissionEnergy    []float64
	EmissionTime      []float64

	DistanceTraveled []float64
}

// Len returns the photon count.
func (b *Batch) Len() int { return len(b.ID) }

// IDAllocator hands out globally-unique photon IDs. Each worker should
// own a disjoint IDAllocator — constructed with a start offset spaced far
// enough apart that two workers' ranges never collide — rather than
// sharing one atomic counter across goroutines, so ID assignment never
// becomes a point of contention between simulation workers.
type IDAllocator struct {
	next uint64
}

// NewIDAllocator creates an allocator that starts handing out IDs at
// start.
func NewIDAllocator(start uint64) *IDAllocator {
	return &IDAllocator{next: start}
}

// Allocate returns n fresh, strictly increasing IDs.
func (a *IDAllocator) Allocate(n int) []uint64 {
	ids := make([]uint64, n)
	first := atomic.AddUint64(&a.next, uint64(n)) - uint64(n)
	for i := range ids {
		ids[i] = first + uint64(i)
	}
	return ids
}

// NewBatch constructs a Batch of n freshly-emitted photons at the given
// positions, directions, and energies. EmissionPosition/Direction/Energy
// are snapshotted from position/direction/energy, DistanceTraveled starts
// at zero, and IDs come from idAlloc.
func NewBatch(idAlloc *IDAllocator, position, direction []units.Vec3, energy []float64, emissionTime []float64) *Batch {
	n := len(energy)
	b := &Batch{
		ID:                idAlloc.Allocate(n),
		KindID:            make([]int, n),
		Position:          append([]units.Vec3(nil), position...),
		Direction:         append([]units.Vec3(nil), direction...),
		Energy:            append([]float64(nil), energy...),
		EmissionPosition:  append([]units.Vec3(nil), position...),
		EmissionDirection: append([]units.Vec3(nil), direction...),
		EmissionEnergy:    append([]float64(nil), energy...),
		EmissionTime:      append([]float64(nil), emissionTime...),
		DistanceTraveled:  make([]float64, n),
	}
	return b
}

// Move advances every photon's position by d[i] along its current
// direction, and accumulates the traveled distance.
func (b *Batch) Move(d []float64) {
	for i := range b.Position {
		b.Position[i] = b.Position[i].Add(b.Direction[i].Mul(d[i]))
		b.DistanceTraveled[i] += d[i]
	}
}

// Rotate deflects every photon's direction by polar angle theta[i] and
// azimuth phi[i] around its current direction, using the pole-stable
// "cosTheta − b/(1+|z|)" rotation rather than a textbook basis change
// that loses precision near either pole.
func (b *Batch) Rotate(theta, phi []float64) {
	for i := range b.Direction {
		b.Direction[i] = units.RotateToward(b.Direction[i], theta[i], phi[i])
	}
}

// ChangeEnergy subtracts delta[i] from every photon's energy. Floor
// enforcement (discarding photons that fall below a minimum energy) is
// the caller's responsibility — it sits one layer up, in the physics
// package that knows what "below floor" should trigger.
func (b *Batch) ChangeEnergy(delta []float64) {
	for i := range b.Energy {
		b.Energy[i] -= delta[i]
	}
}

// Select returns a new Batch containing only the photons at the given
// indices, preserving order. Used to shrink a batch after filtering out
// absorbed or escaped photons.
func (b *Batch) Select(indices []int) *Batch {
	out := &Batch{
		ID:                make([]uint64, len(indices)),
		KindID:            make([]int, len(indices)),
		Position:          make([]units.Vec3, len(indices)),
		Direction:         make([]units.Vec3, len(indices)),
		Energy:            make([]float64, len(indices)),
		EmissionPosition:  make([]units.Vec3, len(indices)),
		EmissionDirection: make([]units.Vec3, len(indices)),
		EmissionEnergy:    make([]float64, len(indices)),
		EmissionTime:      make([]float64, len(indices)),
		DistanceTraveled:  make([]float64, len(indices)),
	}
	for j, i := range indices {
		out.ID[j] = b.ID[i]
		out.KindID[j] = b.KindID[i]
		out.Position[j] = b.Position[i]
		out.Direction[j] = b.Direction[i]
		out.Energy[j] = b.Energy[i]
		out.EmissionPosition[j] = b.EmissionPosition[i]
		out.EmissionDirection[j] = b.EmissionDirection[i]
		out.EmissionEnergy[j] = b.EmissionEnergy[i]
		out.EmissionTime[j] = b.EmissionTime[i]
		out.DistanceTraveled[j] = b.DistanceTraveled[i]
	}
	return out
}

// WriteBack copies the direction and energy of src's photons back into b
// at the given indices, mirroring how a propagation step writes an
// interacted sub-batch back into the full batch it was Select-ed from.
func (b *Batch) WriteBack(indices []int, src *Batch) {
	for j, idx := range indices {
		b.Direction[idx] = src.Direction[j]
		b.Energy[idx] = src.Energy[j]
	}
}

// ReplaceAt overwrites every field of b's photons at the given indices
// with replacement's same-position entry, splicing freshly emitted
// photons into the slots vacated by photons that failed a validity
// filter. len(indices) must equal replacement.Len().
func (b *Batch) ReplaceAt(indices []int, replacement *Batch) {
	for j, idx := range indices {
		b.ID[idx] = replacement.ID[j]
		b.KindID[idx] = replacement.KindID[j]
		b.Position[idx] = replacement.Position[j]
		b.Direction[idx] = replacement.Direction[j]
		b.Energy[idx] = replacement.Energy[j]
		b.EmissionPosition[idx] = replacement.EmissionPosition[j]
		b.EmissionDirection[idx] = replacement.EmissionDirection[j]
		b.EmissionEnergy[idx] = replacement.EmissionEnergy[j]
		b.EmissionTime[idx] = replacement.EmissionTime[j]
		b.DistanceTraveled[idx] = replacement.DistanceTraveled[j]
	}
}

// Append concatenates other onto b in place, returning b.
func (b *Batch) Append(other *Batch) *Batch {
	b.ID = append(b.ID, other.ID...)
	b.KindID = append(b.KindID, other.KindID...)
	b.Position = append(b.Position, other.Position...)
	b.Direction = append(b.Direction, other.Direction...)
	b.Energy = append(b.Energy, other.Energy...)
	b.EmissionPosition = append(b.EmissionPosition, other.EmissionPosition...)
	b.EmissionDirection = append(b.EmissionDirection, other.EmissionDirection...)
	b.EmissionEnergy = append(b.EmissionEnergy, other.EmissionEnergy...)
	b.EmissionTime = append(b.EmissionTime, other.EmissionTime...)
	b.DistanceTraveled = append(b.DistanceTraveled, other.DistanceTraveled...)
	return b
}
