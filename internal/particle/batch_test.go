package particle

import (
	"math"
	"testing"

	"github.com/nmsim/phospec/internal/units"
)

func TestIDAllocator_DisjointRangesNeverCollide(t *testing.T) {
	a := NewIDAllocator(0)
	b := NewIDAllocator(1_000_000)

	idsA := a.Allocate(5)
	idsB := b.Allocate(5)

	seen := make(map[uint64]bool)
	for _, id := range append(idsA, idsB...) {
		if seen[id] {
			t.Fatalf("ID %d allocated twice across disjoint allocators", id)
		}
		seen[id] = true
	}
}

func TestIDAllocator_StrictlyIncreasing(t *testing.T) {
	a := NewIDAllocator(0)
	ids := a.Allocate(10)
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("IDs not strictly increasing: %v", ids)
		}
	}
}

func TestNewBatch_SnapshotsEmissionState(t *testing.T) {
	pos := []units.Vec3{{0, 0, 0}, {1, 1, 1}}
	dir := []units.Vec3{{0, 0, 1}, {0, 1, 0}}
	energy := []float64{0.140, 0.364}
	emissionTime := []float64{0, 10}

	b := NewBatch(NewIDAllocator(0), pos, dir, energy, emissionTime)

	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	for i := range pos {
		if b.EmissionPosition[i] != pos[i] {
			t.Errorf("EmissionPosition[%d] = %v, want %v", i, b.EmissionPosition[i], pos[i])
		}
		if b.EmissionEnergy[i] != energy[i] {
			t.Errorf("EmissionEnergy[%d] = %v, want %v", i, b.EmissionEnergy[i], energy[i])
		}
	}
}

func TestBatch_Move_AdvancesPositionAndDistance(t *testing.T) {
	b := NewBatch(NewIDAllocator(0),
		[]units.Vec3{{0, 0, 0}}, []units.Vec3{{1, 0, 0}}, []float64{0.14}, []float64{0})

	b.Move([]float64{5})

	if b.Position[0] != (units.Vec3{5, 0, 0}) {
		t.Errorf("Position = %v, want {5,0,0}", b.Position[0])
	}
	if b.DistanceTraveled[0] != 5 {
		t.Errorf("DistanceTraveled = %v, want 5", b.DistanceTraveled[0])
	}
}

func TestBatch_Rotate_PreservesUnitNorm(t *testing.T) {
	b := NewBatch(NewIDAllocator(0),
		[]units.Vec3{{0, 0, 0}}, []units.Vec3{{0, 0, 1}}, []float64{0.14}, []float64{0})

	b.Rotate([]float64{0.5}, []float64{1.2})

	if !units.IsUnit(b.Direction[0], 1e-6) {
		t.Errorf("direction not unit norm after Rotate: %v", b.Direction[0])
	}
}

func TestBatch_ChangeEnergy(t *testing.T) {
	b := NewBatch(NewIDAllocator(0),
		[]units.Vec3{{0, 0, 0}}, []units.Vec3{{1, 0, 0}}, []float64{0.5}, []float64{0})

	b.ChangeEnergy([]float64{0.2})

	if math.Abs(b.Energy[0]-0.3) > 1e-12 {
		t.Errorf("Energy = %v, want 0.3", b.Energy[0])
	}
}

func TestBatch_SelectShrinksInOrder(t *testing.T) {
	b := NewBatch(NewIDAllocator(0),
		[]units.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}},
		[]units.Vec3{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}},
		[]float64{0.1, 0.2, 0.3}, []float64{0, 0, 0})

	sub := b.Select([]int{2, 0})

	if sub.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sub.Len())
	}
	if sub.Energy[0] != 0.3 || sub.Energy[1] != 0.1 {
		t.Errorf("Select did not preserve requested order: %v", sub.Energy)
	}
}

func TestBatch_Append(t *testing.T) {
	a := NewBatch(NewIDAllocator(0), []units.Vec3{{0, 0, 0}}, []units.Vec3{{1, 0, 0}}, []float64{0.1}, []float64{0})
	b := NewBatch(NewIDAllocator(100), []units.Vec3{{1, 0, 0}}, []units.Vec3{{1, 0, 0}}, []float64{0.2}, []float64{0})

	a.Append(b)

	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	if a.Energy[1] != 0.2 {
		t.Errorf("Energy[1] = %v, want 0.2", a.Energy[1])
	}
}
