// Package units defines the internal unit system and the affine/vector
// primitives shared by every other package.
//
// Internally all lengths are in millimetres, energies in MeV, times in
// nanoseconds, and densities in g·mm⁻³. Keeping one coherent unit system
// means multiplying a linear attenuation coefficient (mm⁻¹) by a distance
// (mm) yields a dimensionless optical depth directly, with no conversion
// at the call site. Every exported function in this package documents the
// unit of each numeric argument/return where it isn't obvious from the
// type name.
package units

const (
	// MeVPerJoule converts joules to MeV, for callers ingesting SI-neutral
	// external data (e.g. NIST tables quoted in keV).
	MeVPerJoule = 6.241509074e12

	// CmToMM converts centimetres (the unit most attenuation/material
	// tables are quoted in) to the internal millimetre length unit.
	CmToMM = 10.0

	// GPerCM3ToGPerMM3 converts a density in g·cm⁻³ (NIST convention) to
	// the internal g·mm⁻³ unit.
	GPerCM3ToGPerMM3 = 1e-3

	// EVToMeV converts electron-volts to MeV, used for the small
	// edge-displacement constant in the attenuation database builder.
	EVToMeV = 1e-6

	// ElectronRestMassMeV is mₑc², used by the Compton process's
	// Klein-Nishina energy transfer formula.
	ElectronRestMassMeV = 0.5109989
)
