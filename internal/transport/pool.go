package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
)

// LockRegistry hands out a shared *sync.Mutex per key, for Sinks that
// write to the same underlying file across workers (e.g. several
// time-slice workers sharing one file per view angle).
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry creates an empty LockRegistry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

// Lock returns the mutex registered under key, creating it on first use.
func (r *LockRegistry) Lock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[key] = l
	return l
}

// WorkItem identifies one (view angle, time slice) unit of work a
// Manager hands to a freshly built SimulationManager. Manager treats it
// as an opaque label; everything it implies about scene geometry or
// sink selection is BuildFn's concern.
type WorkItem struct {
	ViewID    string
	TimeSlice int
}

// idRangeWidth is the number of photon IDs reserved per worker, wide
// enough that no realistic single-worker run exhausts its range and
// collides with the next worker's.
const idRangeWidth = 1 << 40

// BuildFn constructs the SimulationManager for one WorkItem, given the
// RNG subsystem and ID allocator the Manager has already carved out for
// it. Implementations typically Scene.Duplicate the shared base scene,
// re-transform its detector for the item's view angle, and look up or
// create the item's Sink (consulting Manager.Locks if multiple items
// share an underlying file).
type BuildFn func(item WorkItem, gen *rng.Generator, idAlloc *particle.IDAllocator) (*SimulationManager, error)

// Manager runs many SimulationManagers concurrently, one per WorkItem,
// over a Cartesian product of (view angle, time slice). Each worker gets
// its own RNG split from one shared rng.SeedSequence and its own
// disjoint photon ID range; workers share no mutable state beyond what
// BuildFn's caller wires up (typically a read-only AttenuationDatabase
// and MaterialDatabase).
type Manager struct {
	Seeds *rng.SeedSequence
	Build BuildFn
	Locks *LockRegistry
}

// NewManager creates a Manager deriving every worker's RNG from seeds.
func NewManager(seeds *rng.SeedSequence, build BuildFn) *Manager {
	return &Manager{Seeds: seeds, Build: build, Locks: NewLockRegistry()}
}

// Run builds and runs one SimulationManager per item concurrently,
// returning the first error encountered after every worker has finished.
// ctx is propagated to every worker's Run, so cancelling it drains every
// worker cooperatively rather than aborting mid-step.
func (m *Manager) Run(ctx context.Context, items []WorkItem) error {
	var wg sync.WaitGroup
	errs := make([]error, len(items))

	for i, item := range items {
		label := fmt.Sprintf("%s/%d", item.ViewID, item.TimeSlice)
		gen := m.Seeds.Spawn(label)
		idAlloc := particle.NewIDAllocator(uint64(i) * idRangeWidth)

		sm, err := m.Build(item, gen, idAlloc)
		if err != nil {
			errs[i] = fmt.Errorf("transport: building worker %q: %w", label, err)
			continue
		}

		wg.Add(1)
		go func(i int, label string, sm *SimulationManager) {
			defer wg.Done()
			if err := sm.Run(ctx); err != nil {
				errs[i] = fmt.Errorf("transport: worker %q: %w", label, err)
			}
		}(i, label, sm)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
