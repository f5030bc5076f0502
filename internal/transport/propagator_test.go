package transport

import (
	"errors"
	"math"
	"testing"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/physics"
	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/units"
)

type fakeElementProvider struct {
	tables map[string]materials.ElementTable
}

func (p fakeElementProvider) ElementTable(symbol string) (materials.ElementTable, error) {
	t, ok := p.tables[symbol]
	if !ok {
		return materials.ElementTable{}, errors.New("no such element")
	}
	return t, nil
}

func newFakeProvider() fakeElementProvider {
	return fakeElementProvider{tables: map[string]materials.ElementTable{
		"H": {
			Energies: []float64{0.01, 0.1, 1.0},
			MAC: map[materials.Process][]float64{
				materials.Photoelectric: {5.0, 0.5, 0.01},
				materials.Coherent:      {0.3, 0.05, 0.001},
				materials.Compton:       {0.2, 0.15, 0.1},
			},
		},
		"O": {
			Energies: []float64{0.01, 0.1, 1.0},
			MAC: map[materials.Process][]float64{
				materials.Photoelectric: {8.0, 0.8, 0.02},
				materials.Coherent:      {0.4, 0.06, 0.002},
				materials.Compton:       {0.25, 0.18, 0.11},
			},
		},
	}}
}

// testWorld builds a single water box inside the scene root, a matching
// MaterialDatabase/AttenuationDatabase, and a Propagator running all
// three core processes.
func testWorld(t *testing.T, halfExtent float64) (*geometry.Scene, *materials.MaterialDatabase, *Propagator) {
	t.Helper()
	mdb := materials.NewMaterialDatabase()
	water, err := mdb.Register(materials.Material{
		Name:        "Water",
		Kind:        materials.KindCompound,
		Density:     1e-3,
		Composition: map[string]float64{"H": 0.111898, "O": 0.888102},
	})
	if err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}

	adb := materials.NewAttenuationDatabase()
	if err := adb.BuildAll(mdb, newFakeProvider()); err != nil {
		t.Fatalf("BuildAll: unexpected error: %v", err)
	}

	scene := geometry.NewScene()
	scene.AddChild(geometry.RootID, "water-box", units.Identity(), geometry.Elementary,
		geometry.Box{HalfExtents: units.Vec3{halfExtent, halfExtent, halfExtent}}, geometry.MaterialID(water.ID))

	prop := NewPropagator(mdb,
		physics.NewPhotoelectric(adb),
		physics.NewCoherent(adb),
		physics.NewCompton(adb),
	)
	return scene, mdb, prop
}

func photonBatch(n int, energy float64) *particle.Batch {
	pos := make([]units.Vec3, n)
	dir := make([]units.Vec3, n)
	energies := make([]float64, n)
	emissionTime := make([]float64, n)
	for i := 0; i < n; i++ {
		dir[i] = units.Vec3{1, 0, 0}
		energies[i] = energy
	}
	return particle.NewBatch(particle.NewIDAllocator(0), pos, dir, energies, emissionTime)
}

func TestStep_NeverInteractsInVacuum(t *testing.T) {
	mdb := materials.NewMaterialDatabase()
	adb := materials.NewAttenuationDatabase()
	scene := geometry.NewScene()
	prop := NewPropagator(mdb, physics.NewPhotoelectric(adb), physics.NewCoherent(adb), physics.NewCompton(adb))

	b := photonBatch(5, 0.1)
	gen := rng.NewGenerator(1)

	records, err := prop.Step(b, scene, gen)
	if err != nil {
		t.Fatalf("Step: unexpected error: %v", err)
	}
	if records.Len() != 0 {
		t.Errorf("expected no interactions in vacuum, got %d", records.Len())
	}
	for i, e := range b.Energy {
		if e != 0.1 {
			t.Errorf("photon %d: energy changed in vacuum: %v", i, e)
		}
	}
	for i, d := range b.DistanceTraveled {
		if d <= 0 {
			t.Errorf("photon %d: expected to stream toward the world boundary, DistanceTraveled = %v", i, d)
		}
	}
}

func TestStep_InteractsWithinWaterBox(t *testing.T) {
	scene, _, prop := testWorld(t, 2000)
	gen := rng.NewGenerator(42)

	b := photonBatch(500, 0.1)
	records, err := prop.Step(b, scene, gen)
	if err != nil {
		t.Fatalf("Step: unexpected error: %v", err)
	}

	// THEN some (not necessarily all) photons interacted within the box,
	// each record deposits a sane amount of energy, and no photon energy
	// went negative or exceeded its starting value.
	if records.Len() == 0 {
		t.Fatalf("expected at least one interaction in a 4 m water box at 0.1 MeV")
	}
	for _, rec := range records.Records {
		if rec.EnergyDeposit < 0 || rec.EnergyDeposit > 0.1 {
			t.Errorf("record for particle %d: EnergyDeposit = %v out of [0, 0.1]", rec.ParticleID, rec.EnergyDeposit)
		}
	}
	for i, e := range b.Energy {
		if e < 0 || e > 0.1 {
			t.Errorf("photon %d: energy %v out of [0, 0.1]", i, e)
		}
	}
}

func TestStep_DirectionsStayUnitNorm(t *testing.T) {
	scene, _, prop := testWorld(t, 2000)
	gen := rng.NewGenerator(7)

	b := photonBatch(200, 0.1)
	if _, err := prop.Step(b, scene, gen); err != nil {
		t.Fatalf("Step: unexpected error: %v", err)
	}
	for i, d := range b.Direction {
		if math.Abs(d.Len()-1) > 1e-9 {
			t.Errorf("photon %d: direction norm = %v, want 1", i, d.Len())
		}
	}
}

func TestStep_EmptyBatchIsNoop(t *testing.T) {
	scene, _, prop := testWorld(t, 2000)
	gen := rng.NewGenerator(1)
	b := photonBatch(0, 0.1)

	records, err := prop.Step(b, scene, gen)
	if err != nil {
		t.Fatalf("Step: unexpected error: %v", err)
	}
	if records.Len() != 0 {
		t.Errorf("expected no records for an empty batch, got %d", records.Len())
	}
}
