package physics

import (
	"math"

	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/units"
)

// Compton is incoherent (Compton) scattering: the photon changes both
// direction and energy, depositing the Klein-Nishina energy transfer.
type Compton struct {
	base
}

// NewCompton builds a Compton process backed by db.
func NewCompton(db *materials.AttenuationDatabase) *Compton {
	return &Compton{base: newBase(db, materials.Compton)}
}

func (p *Compton) Name() string { return "ComptonScattering" }

// energyDeposit computes ΔE = E·k(1−cosθ)/(1+k(1−cosθ)), k = E/mₑc².
func energyDeposit(energy, theta float64) float64 {
	k := energy / units.ElectronRestMassMeV
	kOneMinusCos := k * (1 - math.Cos(theta))
	return energy * kOneMinusCos / (1 + kOneMinusCos)
}

// Apply rotates each photon by a Klein-Nishina-sampled (theta, phi) and
// deposits the corresponding energy transfer.
func (p *Compton) Apply(b *particle.Batch, mats []materials.Material, gen *rng.Generator) (*particle.InteractionBatch, error) {
	n := b.Len()
	theta := make([]float64, n)
	phi := make([]float64, n)
	deposit := make([]float64, n)

	for i := 0; i < n; i++ {
		theta[i] = SampleComptonTheta(b.Energy[i], gen)
		phi[i] = SamplePhi(gen)
		deposit[i] = energyDeposit(b.Energy[i], theta[i])
	}

	records := make([]particle.InteractionRecord, n)
	for i := range records {
		records[i] = newRecord(b, i, p.Name(), mats[i], deposit[i], [2]float64{theta[i], phi[i]})
	}
	b.Rotate(theta, phi)
	b.ChangeEnergy(deposit)

	return &particle.InteractionBatch{Records: records}, nil
}
