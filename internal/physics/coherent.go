package physics

import (
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
)

// Coherent is Rayleigh (coherent) scattering: the photon changes
// direction but loses no energy.
type Coherent struct {
	base
}

// NewCoherent builds a Coherent process backed by db.
func NewCoherent(db *materials.AttenuationDatabase) *Coherent {
	return &Coherent{base: newBase(db, materials.Coherent)}
}

func (p *Coherent) Name() string { return "CoherentScattering" }

// Apply rotates each photon by a sampled (theta, phi) and records the
// scattering angles, with zero energy deposit.
func (p *Coherent) Apply(b *particle.Batch, mats []materials.Material, gen *rng.Generator) (*particle.InteractionBatch, error) {
	n := b.Len()
	theta := make([]float64, n)
	phi := make([]float64, n)

	for i := 0; i < n; i++ {
		z := mats[i].Zeff()
		theta[i] = SampleCoherentTheta(b.Energy[i], int(z+0.5), gen)
		phi[i] = SamplePhi(gen)
	}

	records := make([]particle.InteractionRecord, n)
	for i := range records {
		records[i] = newRecord(b, i, p.Name(), mats[i], 0, [2]float64{theta[i], phi[i]})
	}
	b.Rotate(theta, phi)

	return &particle.InteractionBatch{Records: records}, nil
}
