// Package physics implements the photon interaction processes a
// propagation step may dispatch to: photoelectric absorption, coherent
// (Rayleigh) scattering, and Compton scattering.
package physics

import (
	"math"

	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
)

// Process is one photon interaction mechanism: it knows its own
// attenuation coefficient, can sample a free path to the next
// interaction of its kind, and can apply itself to a batch, mutating
// photon state and returning the interaction records produced.
type Process interface {
	Name() string
	Tag() materials.Process
	EnergyRange() (lo, hi float64)
	LAC(b *particle.Batch, mats []materials.Material) ([]float64, error)
	SampleFreePath(b *particle.Batch, mats []materials.Material, gen *rng.Generator) ([]float64, error)
	Apply(b *particle.Batch, mats []materials.Material, gen *rng.Generator) (*particle.InteractionBatch, error)
}

// base holds the machinery every Process implementation shares: a
// reference to the attenuation database it queries and the tabulated
// process tag it queries under.
type base struct {
	db  *materials.AttenuationDatabase
	tag materials.Process
	lo  float64
	hi  float64
}

// defaultEnergyRange bounds the energies this package's processes are
// validated against: 1 keV to 1 MeV, the diagnostic SPECT range.
const (
	defaultEnergyLo = 1e-3
	defaultEnergyHi = 1.0
)

func newBase(db *materials.AttenuationDatabase, tag materials.Process) base {
	return base{db: db, tag: tag, lo: defaultEnergyLo, hi: defaultEnergyHi}
}

func (p base) Tag() materials.Process           { return p.tag }
func (p base) EnergyRange() (float64, float64) { return p.lo, p.hi }

// LAC returns, per photon, the linear attenuation coefficient for this
// process's tag in the photon's current material at its current energy.
func (p base) LAC(b *particle.Batch, mats []materials.Material) ([]float64, error) {
	out := make([]float64, b.Len())
	for i := range out {
		lac, err := p.db.LAC(mats[i], b.Energy[i], p.tag)
		if err != nil {
			return nil, err
		}
		out[i] = lac
	}
	return out, nil
}

// SampleFreePath draws, per photon, an exponential free path with mean
// 1/LAC. A photon in a material with zero LAC for this process (e.g.
// vacuum) gets an infinite free path: it will never interact via this
// process there.
func (p base) SampleFreePath(b *particle.Batch, mats []materials.Material, gen *rng.Generator) ([]float64, error) {
	lac, err := p.LAC(b, mats)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(lac))
	for i, l := range lac {
		if l <= 0 {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = gen.Exponential(1 / l)
	}
	return out, nil
}

func newRecord(b *particle.Batch, i int, processName string, mat materials.Material, energyDeposit float64, scatteringAngles [2]float64) particle.InteractionRecord {
	return particle.InteractionRecord{
		GlobalPosition:    b.Position[i],
		GlobalDirection:   b.Direction[i],
		ProcessName:       processName,
		ParticleID:        b.ID[i],
		MaterialName:      mat.Name,
		EnergyDeposit:     energyDeposit,
		MaterialDensity:   mat.Density,
		ScatteringAngles:  scatteringAngles,
		EmissionTime:      b.EmissionTime[i],
		EmissionEnergy:    b.EmissionEnergy[i],
		EmissionPosition:  b.EmissionPosition[i],
		EmissionDirection: b.EmissionDirection[i],
		DistanceTraveled:  b.DistanceTraveled[i],
	}
}
