package transport

import (
	"context"
	"testing"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/source"
	"github.com/nmsim/phospec/internal/units"
)

func testSource(t *testing.T, gen *rng.Generator) *source.Source {
	t.Helper()
	dist := source.VoxelDistribution{
		Activity:  []float64{1},
		Dims:      [3]int{1, 1, 1},
		VoxelSize: units.Vec3{1, 1, 1},
	}
	iso := source.Isotope{
		Name:          "Tc-99m",
		EnergyLines:   []float64{0.1405},
		Probabilities: []float64{1},
		HalfLife:      6.0 * 3600 * 1e9,
	}
	src, err := source.New(dist, iso, 1e6, units.Identity(), gen)
	if err != nil {
		t.Fatalf("source.New: unexpected error: %v", err)
	}
	return src
}

func TestSimulationManager_RunDrainsToEndOfStream(t *testing.T) {
	mdb := materials.NewMaterialDatabase()
	adb := materials.NewAttenuationDatabase()
	scene := geometry.NewScene()
	prop := NewPropagator(mdb)

	gen := rng.NewGenerator(3)
	src := testSource(t, gen)
	sink := NewChannelSink()
	idAlloc := particle.NewIDAllocator(0)

	// minEnergy above the isotope's only line guarantees every photon
	// fails EnergyAboveFloor on the first step, draining the run quickly.
	sm := NewSimulationManager(src, scene, prop, sink, 10, 0, 1.0, gen, idAlloc)

	done := make(chan error, 1)
	go func() { done <- sm.Run(context.Background()) }()

	sawEnd := false
	for batch := range sink.Batches() {
		_ = batch
	}
	sawEnd = true

	if err := <-done; err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if !sawEnd {
		t.Fatal("expected the batch channel to close")
	}
	_ = adb
}

func TestSimulationManager_RunWithNopSink(t *testing.T) {
	mdb := materials.NewMaterialDatabase()
	scene := geometry.NewScene()
	prop := NewPropagator(mdb)

	gen := rng.NewGenerator(11)
	src := testSource(t, gen)
	idAlloc := particle.NewIDAllocator(0)

	sm := NewSimulationManager(src, scene, prop, NopSink{}, 10, 0, 1.0, gen, idAlloc)
	if err := sm.Run(context.Background()); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
}

func TestSimulationManager_CancelStopsRefilling(t *testing.T) {
	mdb := materials.NewMaterialDatabase()
	scene := geometry.NewScene()
	prop := NewPropagator(mdb)

	gen := rng.NewGenerator(5)
	src := testSource(t, gen)
	idAlloc := particle.NewIDAllocator(0)

	// A stop time far in the future would normally refill forever; an
	// already-cancelled context should still drain to completion, and the
	// energy floor above the isotope's line guarantees that happens on
	// the very first step regardless of cancellation timing.
	sm := NewSimulationManager(src, scene, prop, NopSink{}, 10, 1e18, 1.0, gen, idAlloc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sm.Run(ctx); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
}

func TestEnergyAboveFloor(t *testing.T) {
	scene := geometry.NewScene()
	b := &particle.Batch{Energy: []float64{0, 0.5, 1e-6}}
	f := EnergyAboveFloor(1e-6)
	want := []bool{false, true, false}
	for i, w := range want {
		if got := f(b, scene, i); got != w {
			t.Errorf("index %d: EnergyAboveFloor = %v, want %v", i, got, w)
		}
	}
}

func TestInsideRoot(t *testing.T) {
	scene := geometry.NewScene()
	b := &particle.Batch{Position: []units.Vec3{{0, 0, 0}, {1e20, 1e20, 1e20}}}
	f := InsideRoot()
	if !f(b, scene, 0) {
		t.Error("expected origin to be inside the world root")
	}
	if f(b, scene, 1) {
		t.Error("expected a far-outside point to fail InsideRoot")
	}
}

func TestComplementIndices(t *testing.T) {
	got := complementIndices([]int{1, 3}, 5)
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("complementIndices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("complementIndices[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
