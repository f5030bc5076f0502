package physics

import (
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
)

// Photoelectric deposits a photon's full energy and terminates it.
type Photoelectric struct {
	base
}

// NewPhotoelectric builds a Photoelectric process backed by db.
func NewPhotoelectric(db *materials.AttenuationDatabase) *Photoelectric {
	return &Photoelectric{base: newBase(db, materials.Photoelectric)}
}

func (p *Photoelectric) Name() string { return "PhotoelectricEffect" }

// Apply deposits each photon's entire remaining energy and zeroes it,
// recording one interaction per photon.
func (p *Photoelectric) Apply(b *particle.Batch, mats []materials.Material, gen *rng.Generator) (*particle.InteractionBatch, error) {
	records := make([]particle.InteractionRecord, b.Len())
	deposit := make([]float64, b.Len())
	copy(deposit, b.Energy)

	for i := range records {
		records[i] = newRecord(b, i, p.Name(), mats[i], deposit[i], [2]float64{})
	}
	b.ChangeEnergy(deposit)

	return &particle.InteractionBatch{Records: records}, nil
}
