package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
)

// emptyWorld builds a bare MaterialDatabase, empty Scene, and a
// Propagator with no processes registered — enough for a
// SimulationManager to run without ever producing an interaction.
func emptyWorld() (*materials.MaterialDatabase, *Propagator, *geometry.Scene) {
	mdb := materials.NewMaterialDatabase()
	scene := geometry.NewScene()
	return mdb, NewPropagator(mdb), scene
}

func TestLockRegistry_SameKeyReturnsSameMutex(t *testing.T) {
	r := NewLockRegistry()
	a := r.Lock("view-0")
	b := r.Lock("view-0")
	if a != b {
		t.Error("expected the same key to return the same *sync.Mutex instance")
	}
	c := r.Lock("view-1")
	if a == c {
		t.Error("expected different keys to return different *sync.Mutex instances")
	}
}

func TestManager_RunBuildsAndRunsEveryItem(t *testing.T) {
	seeds := rng.NewSeedSequence(1)
	var built int32

	build := func(item WorkItem, gen *rng.Generator, idAlloc *particle.IDAllocator) (*SimulationManager, error) {
		atomic.AddInt32(&built, 1)
		mdb, prop, scene := emptyWorld()
		src := testSource(t, gen)
		sm := NewSimulationManager(src, scene, prop, NopSink{}, 5, 0, 1.0, gen, idAlloc)
		_ = mdb
		return sm, nil
	}

	m := NewManager(seeds, build)
	items := []WorkItem{{ViewID: "0", TimeSlice: 0}, {ViewID: "1", TimeSlice: 0}, {ViewID: "2", TimeSlice: 0}}

	if err := m.Run(context.Background(), items); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&built); got != int32(len(items)) {
		t.Errorf("expected %d workers built, got %d", len(items), got)
	}
}

func TestManager_RunPropagatesBuildError(t *testing.T) {
	seeds := rng.NewSeedSequence(1)
	wantErr := errors.New("boom")
	build := func(item WorkItem, gen *rng.Generator, idAlloc *particle.IDAllocator) (*SimulationManager, error) {
		return nil, wantErr
	}
	m := NewManager(seeds, build)

	err := m.Run(context.Background(), []WorkItem{{ViewID: "0"}})
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("expected error wrapping %v, got %v", wantErr, err)
	}
}

func TestManager_RunGivesEachWorkerADisjointIDRange(t *testing.T) {
	seeds := rng.NewSeedSequence(1)
	ranges := make([]uint64, 3)
	var idx int32

	build := func(item WorkItem, gen *rng.Generator, idAlloc *particle.IDAllocator) (*SimulationManager, error) {
		i := atomic.AddInt32(&idx, 1) - 1
		ids := idAlloc.Allocate(1)
		ranges[i] = ids[0]
		_, prop, scene := emptyWorld()
		src := testSource(t, gen)
		return NewSimulationManager(src, scene, prop, NopSink{}, 1, 0, 1.0, gen, particle.NewIDAllocator(ids[0])), nil
	}

	m := NewManager(seeds, build)
	items := []WorkItem{{ViewID: "0"}, {ViewID: "1"}, {ViewID: "2"}}
	if err := m.Run(context.Background(), items); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}

	seen := make(map[uint64]bool)
	for _, id := range ranges {
		if seen[id] {
			t.Errorf("worker ID ranges collided at %d", id)
		}
		seen[id] = true
	}
}
