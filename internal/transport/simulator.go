package transport

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/source"
)

// Filter is a per-photon validity predicate: it returns true if photon i
// in b should keep running. A photon that fails any Filter is dropped
// from the batch (and, while the source is still active, replaced by a
// freshly emitted one in the same slot).
type Filter func(b *particle.Batch, scene *geometry.Scene, i int) bool

// EnergyAboveFloor rejects photons whose energy has fallen to or below
// minEnergy — typically because a photoelectric absorption zeroed it.
func EnergyAboveFloor(minEnergy float64) Filter {
	return func(b *particle.Batch, scene *geometry.Scene, i int) bool {
		return b.Energy[i] > minEnergy
	}
}

// InsideRoot rejects photons that have escaped the scene's root volume.
func InsideRoot() Filter {
	return func(b *particle.Batch, scene *geometry.Scene, i int) bool {
		return scene.PointIn(geometry.RootID, b.Position[i])
	}
}

// SimulationManager owns one worker's view of a run: its own source, its
// own scene, its own propagator RNG and ID allocator, and the sink its
// interaction records flow to. Two SimulationManagers never share mutable
// state apart from the read-only AttenuationDatabase/MaterialDatabase the
// Propagator and Source were built against.
type SimulationManager struct {
	Source            *source.Source
	Scene             *geometry.Scene
	Propagator        *Propagator
	Sink              Sink
	ParticlesPerBatch int
	StopTime          float64
	Filters           []Filter
	Step              int

	RNG     *rng.Generator
	IDAlloc *particle.IDAllocator
}

// NewSimulationManager builds a manager with the default validity filters
// (energy above minEnergy, inside the scene root).
func NewSimulationManager(src *source.Source, scene *geometry.Scene, prop *Propagator, sink Sink, particlesPerBatch int, stopTime, minEnergy float64, gen *rng.Generator, idAlloc *particle.IDAllocator) *SimulationManager {
	return &SimulationManager{
		Source:            src,
		Scene:             scene,
		Propagator:        prop,
		Sink:              sink,
		ParticlesPerBatch: particlesPerBatch,
		StopTime:          stopTime,
		Filters:           []Filter{EnergyAboveFloor(minEnergy), InsideRoot()},
		RNG:               gen,
		IDAlloc:           idAlloc,
	}
}

// Run drives the emit → step → filter → refill-or-shrink → send loop
// until the batch empties, then signals EndOfStream. ctx cancellation is
// cooperative: it sets StopTime to 0, which stops refilling on the next
// iteration and lets the remaining live photons die out naturally rather
// than aborting mid-step.
func (sm *SimulationManager) Run(ctx context.Context) error {
	batch := sm.Source.Emit(sm.ParticlesPerBatch, sm.IDAlloc)

	for {
		select {
		case <-ctx.Done():
			sm.StopTime = 0
		default:
		}

		records, err := sm.Propagator.Step(batch, sm.Scene, sm.RNG)
		if err != nil {
			return fmt.Errorf("transport: step %d: %w", sm.Step, err)
		}
		logrus.Debugf("[step %07d] tracked %d photons, %d interactions", sm.Step, batch.Len(), records.Len())

		invalid := sm.invalidIndices(batch)
		if sm.Source.Timer() <= sm.StopTime {
			refill := sm.Source.Emit(len(invalid), sm.IDAlloc)
			batch.ReplaceAt(invalid, refill)
			if len(invalid) > 0 {
				logrus.Debugf("[step %07d] refilled %d photons", sm.Step, len(invalid))
			}
		} else if len(invalid) > 0 {
			batch = batch.Select(complementIndices(invalid, batch.Len()))
			logrus.Debugf("[step %07d] shrank batch by %d, %d remaining", sm.Step, len(invalid), batch.Len())
		}
		sm.Step++

		if records.Len() > 0 {
			if err := sm.Sink.RecordBatch(records); err != nil {
				return fmt.Errorf("transport: %w: %v", ErrSink, err)
			}
		}
		if batch.Len() == 0 {
			break
		}
	}

	if err := sm.Sink.EndOfStream(); err != nil {
		return fmt.Errorf("transport: %w: %v", ErrSink, err)
	}
	logrus.Infof("[step %07d] simulation manager finished", sm.Step)
	return nil
}

func (sm *SimulationManager) invalidIndices(b *particle.Batch) []int {
	var invalid []int
	for i := 0; i < b.Len(); i++ {
		valid := true
		for _, f := range sm.Filters {
			if !f(b, sm.Scene, i) {
				valid = false
				break
			}
		}
		if !valid {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

func complementIndices(invalid []int, n int) []int {
	skip := make(map[int]bool, len(invalid))
	for _, i := range invalid {
		skip[i] = true
	}
	out := make([]int, 0, n-len(invalid))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}
