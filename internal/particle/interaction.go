package particle

import "github.com/nmsim/phospec/internal/units"

// InteractionRecord is one photon interaction event: the global and
// local-frame position/direction at the moment of interaction, which
// process fired, how much energy it deposited, and the full emission
// history carried over from the photon's Batch entry (for provenance —
// e.g. reconstructing the emission point of a detected photon).
type InteractionRecord struct {
	GlobalPosition  units.Vec3
	GlobalDirection units.Vec3
	LocalPosition   units.Vec3
	LocalDirection  units.Vec3

	ProcessName  string
	ParticleID   uint64
	MaterialName string

	EnergyDeposit    float64
	MaterialDensity  float64
	ScatteringAngles [2]float64 // theta, phi; zero for a pure absorption

	EmissionTime      float64
	EmissionEnergy    float64
	EmissionPosition  units.Vec3
	EmissionDirection units.Vec3
	DistanceTraveled  float64
}

// InteractionBatch is a slice-backed collection of InteractionRecords
// produced by one propagation step, across every process that fired.
type InteractionBatch struct {
	Records []InteractionRecord
}

// Len returns the number of records.
func (ib *InteractionBatch) Len() int {
	if ib == nil {
		return 0
	}
	return len(ib.Records)
}

// Append adds other's records onto ib in place, returning ib. A nil
// receiver is treated as an empty batch and a fresh one is returned.
func (ib *InteractionBatch) Append(other *InteractionBatch) *InteractionBatch {
	if ib == nil {
		ib = &InteractionBatch{}
	}
	if other == nil {
		return ib
	}
	ib.Records = append(ib.Records, other.Records...)
	return ib
}
