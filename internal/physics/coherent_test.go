package physics

import (
	"math"
	"testing"

	"github.com/nmsim/phospec/internal/rng"
)

func TestCoherent_Apply_PreservesEnergy(t *testing.T) {
	// GIVEN a batch of photons at 0.1 MeV
	db := newTestDB(t)
	p := NewCoherent(db)
	b := testBatch(5)
	mats := testMaterials(5, water())
	gen := rng.NewGenerator(7)

	before := append([]float64(nil), b.Energy...)

	// WHEN coherent scattering is applied
	records, err := p.Apply(b, mats, gen)
	if err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}

	// THEN energy is unchanged and every record deposits zero
	for i, e := range b.Energy {
		if e != before[i] {
			t.Errorf("photon %d: energy changed from %v to %v", i, before[i], e)
		}
	}
	for i, rec := range records.Records {
		if rec.EnergyDeposit != 0 {
			t.Errorf("record %d: EnergyDeposit = %v, want 0", i, rec.EnergyDeposit)
		}
	}
}

func TestCoherent_Apply_DirectionsStayUnitNorm(t *testing.T) {
	db := newTestDB(t)
	p := NewCoherent(db)
	b := testBatch(10)
	mats := testMaterials(10, water())
	gen := rng.NewGenerator(11)

	if _, err := p.Apply(b, mats, gen); err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}
	for i, d := range b.Direction {
		if math.Abs(d.Len()-1) > 1e-9 {
			t.Errorf("photon %d: direction norm = %v, want 1", i, d.Len())
		}
	}
}

func TestSampleCoherentTheta_StaysWithinRange(t *testing.T) {
	gen := rng.NewGenerator(3)
	for i := 0; i < 200; i++ {
		theta := SampleCoherentTheta(0.1, 8, gen)
		if theta < 0 || theta > math.Pi {
			t.Fatalf("SampleCoherentTheta out of [0,pi]: %v", theta)
		}
	}
}
