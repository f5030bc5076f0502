// Package camera assembles the canonical SPECT detector head subtree —
// lead shielding, a parallel-hole collimator, a scintillator crystal, and
// a glass back-end — as a single prefab attachable under a scene's root
// at any placement.
package camera

import (
	"math"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/units"
)

// CollimatorSpec describes a parallel-hole collimator: a slab of
// septaMaterial (typically lead) perforated by a hexagonal lattice of
// hexagonal holes, HoleDiameter across flats (typically vacuum or air),
// tracked with a single majorant
// cross-section and a mask function selecting the real material per
// point.
type CollimatorSpec struct {
	Size          units.Vec3 // full x,y,z extent, mm
	HoleDiameter  float64
	Septa         float64
	HoleMaterial  geometry.MaterialID
	SeptaMaterial geometry.MaterialID
	Majorant      geometry.MaterialID // majorant material for Woodcock tracking
}

// Spec parameterizes a full gamma-camera head.
type Spec struct {
	Name string

	Collimator CollimatorSpec

	DetectorSize          units.Vec3 // scintillator crystal: full x,y,z extent, mm
	ScintillatorMaterial  geometry.MaterialID
	GlassBackendThickness float64
	GlassMaterial         geometry.MaterialID
	AirMaterial           geometry.MaterialID

	ShieldingThickness float64
	ShieldingMaterial  geometry.MaterialID
}

// Build attaches a gamma-camera head as a Transformable subtree under
// parent at the given placement, and returns the head's root NodeID and
// the scintillator crystal's NodeID (the sensitive volume a Sink should
// watch).
func Build(s *geometry.Scene, parent geometry.NodeID, placement units.AffineMatrix, spec Spec) (head, scintillator geometry.NodeID) {
	detectorBoxXY := units.Vec3{
		math.Max(spec.Collimator.Size[0], spec.DetectorSize[0]),
		math.Max(spec.Collimator.Size[1], spec.DetectorSize[1]),
		0,
	}
	detectorBoxZ := spec.Collimator.Size[2] + spec.DetectorSize[2] + spec.GlassBackendThickness
	detectorBoxSize := units.Vec3{detectorBoxXY[0], detectorBoxXY[1], detectorBoxZ}

	headSize := units.Vec3{
		detectorBoxSize[0] + 2*spec.ShieldingThickness,
		detectorBoxSize[1] + 2*spec.ShieldingThickness,
		detectorBoxSize[2] + spec.ShieldingThickness,
	}

	head = s.AddChild(parent, spec.Name, placement, geometry.Transformable,
		geometry.Box{HalfExtents: half(headSize)}, spec.ShieldingMaterial)

	detectorBox := s.AddChild(head, spec.Name+"-detector-box",
		units.Translation(units.Vec3{0, 0, spec.ShieldingThickness / 2}),
		geometry.WithChildren, geometry.Box{HalfExtents: half(detectorBoxSize)}, spec.AirMaterial)

	collimatorZ := detectorBoxSize[2]/2 - spec.Collimator.Size[2]/2
	collimator := s.AddChild(detectorBox, spec.Name+"-collimator",
		units.Translation(units.Vec3{0, 0, collimatorZ}),
		geometry.WoodcockParametric, geometry.Box{HalfExtents: half(spec.Collimator.Size)},
		spec.Collimator.SeptaMaterial)
	s.SetWoodcockParametric(collimator, spec.Collimator.Majorant, hexMask(spec.Collimator))

	detectorZ := detectorBoxSize[2]/2 - spec.Collimator.Size[2] - spec.DetectorSize[2]/2
	scintillator = s.AddChild(detectorBox, spec.Name+"-scintillator",
		units.Translation(units.Vec3{0, 0, detectorZ}),
		geometry.Elementary, geometry.Box{HalfExtents: half(spec.DetectorSize)},
		spec.ScintillatorMaterial)

	glassSize := units.Vec3{detectorBoxSize[0], detectorBoxSize[1], spec.GlassBackendThickness}
	glassZ := detectorBoxSize[2]/2 - spec.Collimator.Size[2] - spec.DetectorSize[2] - spec.GlassBackendThickness/2
	s.AddChild(detectorBox, spec.Name+"-glass-backend",
		units.Translation(units.Vec3{0, 0, glassZ}),
		geometry.Elementary, geometry.Box{HalfExtents: half(glassSize)},
		spec.GlassMaterial)

	return head, scintillator
}

func half(full units.Vec3) units.Vec3 {
	return units.Vec3{full[0] / 2, full[1] / 2, full[2] / 2}
}

// hexMask builds the collimator's mask function: a hexagonal lattice of
// hexagonal holes (holeDiameter across flats) tiled at period
// (holeDiameter+septa, √3·period) in x and y, tested against both lattice
// phases since a single parallelogram test under-covers a staggered hex
// tiling. The lattice is shifted by half a period in x so the local
// origin lies on the septum between two neighbouring holes.
func hexMask(spec CollimatorSpec) geometry.MaskFunc {
	periodX := spec.HoleDiameter + spec.Septa
	periodY := math.Sqrt(3) * periodX
	a := math.Sqrt(3) / 4
	d := spec.HoleDiameter * 2 / math.Sqrt(3)
	cornerX := periodX / 2
	cornerY := periodY / 2
	ad := a * d
	ad2 := ad / 2

	inHole := func(x, y float64) bool {
		px := math.Mod(x, periodX)
		if px < 0 {
			px += periodX
		}
		py := math.Mod(y, periodY)
		if py < 0 {
			py += periodY
		}
		px = math.Abs(px - cornerX)
		py = math.Abs(py - cornerY)
		return px <= ad && a*py+px/4 <= ad2
	}

	return func(local units.Vec3) geometry.MaterialID {
		x, y := local[0]+periodX/2, local[1]
		if inHole(x, y) || inHole(x+periodX/2, y+periodY/2) {
			return spec.HoleMaterial
		}
		return geometry.NoOverride
	}
}
