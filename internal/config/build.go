package config

import (
	"fmt"
	"math"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/geometry/camera"
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/source"
	"github.com/nmsim/phospec/internal/units"
)

// densityCM3ToMM3 converts g·cm⁻³ (the conventional unit materials are
// authored in) to g·mm⁻³ (materials.Material's internal unit): 1 cm³ is
// 1000 mm³.
const densityCM3ToMM3 = 1e-3

// BuildMaterialDatabase registers every MaterialSpec in b against a fresh
// MaterialDatabase (which always starts pre-populated with Vacuum).
func BuildMaterialDatabase(b *Bundle) (*materials.MaterialDatabase, error) {
	mdb := materials.NewMaterialDatabase()
	for _, spec := range b.Materials {
		_, err := mdb.Register(materials.Material{
			Name:        spec.Name,
			Kind:        materials.KindCompound,
			Density:     spec.DensityGCM3 * densityCM3ToMM3,
			Composition: spec.Composition,
		})
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", spec.Name, err)
		}
	}
	return mdb, nil
}

// BuildIsotope converts an IsotopeSpec into a source.Isotope. HalfLife is
// carried in the same time unit the rest of the run uses (nanoseconds),
// matching HalfLifeSeconds·1e9.
func BuildIsotope(b *Bundle) source.Isotope {
	return source.Isotope{
		Name:          b.Isotope.Name,
		EnergyLines:   b.Isotope.EnergyLinesMeV,
		Probabilities: b.Isotope.Probabilities,
		HalfLife:      b.Isotope.HalfLifeSeconds * 1e9,
	}
}

// BuildVoxelDistribution converts a SourceSpec's grid parameters into a
// source.VoxelDistribution over the given activity values, which the
// caller has already resolved (ResolveActivity reads them from
// b.Source.ActivityPath); BuildVoxelDistribution itself opens no file.
func BuildVoxelDistribution(b *Bundle, activity []float64) source.VoxelDistribution {
	return source.VoxelDistribution{
		Activity:  activity,
		Dims:      b.Source.Dims,
		VoxelSize: units.Vec3(b.Source.VoxelSizeMM),
	}
}

// resolveMaterial looks up name in mdb and returns its MaterialID. The
// empty string resolves to Vacuum.
func resolveMaterial(mdb *materials.MaterialDatabase, name string) (geometry.MaterialID, error) {
	if name == "" {
		name = materials.VacuumName
	}
	m, err := mdb.Get(name)
	if err != nil {
		return 0, err
	}
	return geometry.MaterialID(m.ID), nil
}

// BuildCameraSpec resolves a CameraSpec's material names against mdb,
// producing the camera.Spec the geometry/camera package builds a scene
// subtree from.
func BuildCameraSpec(b *Bundle, mdb *materials.MaterialDatabase, name string) (camera.Spec, error) {
	scint, err := resolveMaterial(mdb, b.Camera.ScintillatorMaterial)
	if err != nil {
		return camera.Spec{}, fmt.Errorf("scintillator_material: %w", err)
	}
	glass, err := resolveMaterial(mdb, b.Camera.GlassMaterial)
	if err != nil {
		return camera.Spec{}, fmt.Errorf("glass_material: %w", err)
	}
	air, err := resolveMaterial(mdb, b.Camera.AirMaterial)
	if err != nil {
		return camera.Spec{}, fmt.Errorf("air_material: %w", err)
	}
	shielding, err := resolveMaterial(mdb, b.Camera.ShieldingMaterial)
	if err != nil {
		return camera.Spec{}, fmt.Errorf("shielding_material: %w", err)
	}
	hole, err := resolveMaterial(mdb, b.Camera.Collimator.HoleMaterial)
	if err != nil {
		return camera.Spec{}, fmt.Errorf("collimator.hole_material: %w", err)
	}
	septa, err := resolveMaterial(mdb, b.Camera.Collimator.SeptaMaterial)
	if err != nil {
		return camera.Spec{}, fmt.Errorf("collimator.septa_material: %w", err)
	}

	collimatorSize := units.Vec3{
		b.Camera.DetectorSizeMM[0],
		b.Camera.DetectorSizeMM[1],
		b.Camera.Collimator.ThicknessMM,
	}

	return camera.Spec{
		Name: name,
		Collimator: camera.CollimatorSpec{
			Size:          collimatorSize,
			HoleDiameter:  b.Camera.Collimator.HoleDiameterMM,
			Septa:         b.Camera.Collimator.SeptaMM,
			HoleMaterial:  hole,
			SeptaMaterial: septa,
			Majorant:      majorantOf(septa, hole),
		},
		DetectorSize:          units.Vec3(b.Camera.DetectorSizeMM),
		ScintillatorMaterial:  scint,
		GlassBackendThickness: b.Camera.GlassThicknessMM,
		GlassMaterial:         glass,
		AirMaterial:           air,
		ShieldingThickness:    b.Camera.ShieldingThicknessMM,
		ShieldingMaterial:     shielding,
	}, nil
}

// majorantOf picks the collimator's Woodcock majorant material: septa
// (almost always lead) rather than the hole material (air or vacuum),
// since septa's Zeff·density dominates in every realistic collimator.
func majorantOf(septa, hole geometry.MaterialID) geometry.MaterialID {
	return septa
}

// ViewAngles returns the evenly-spaced camera angles (radians) a pool of
// b.Run.Views workers should place their detector heads at, sweeping
// b.Run.AngularRangeDegrees starting from zero.
func ViewAngles(b *Bundle) []float64 {
	angles := make([]float64, b.Run.Views)
	if b.Run.Views == 1 {
		return angles
	}
	step := b.Run.AngularRangeDegrees * math.Pi / 180 / float64(b.Run.Views-1)
	for i := range angles {
		angles[i] = float64(i) * step
	}
	return angles
}
