package camera

import (
	"testing"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/units"
)

func testSpec() Spec {
	return Spec{
		Name: "head-0",
		Collimator: CollimatorSpec{
			Size:          units.Vec3{400, 400, 35},
			HoleDiameter:  1.5,
			Septa:         0.2,
			HoleMaterial:  geometry.MaterialID(0), // vacuum
			SeptaMaterial: geometry.MaterialID(1), // lead
			Majorant:      geometry.MaterialID(1),
		},
		DetectorSize:          units.Vec3{400, 400, 9.5},
		ScintillatorMaterial:  geometry.MaterialID(2),
		GlassBackendThickness: 50,
		GlassMaterial:         geometry.MaterialID(3),
		AirMaterial:           geometry.MaterialID(4),
		ShieldingThickness:    20,
		ShieldingMaterial:     geometry.MaterialID(1),
	}
}

func TestBuild_AttachesHeadWithScintillatorChild(t *testing.T) {
	s := geometry.NewScene()

	head, scintillator := Build(s, geometry.RootID, units.Identity(), testSpec())

	if head == geometry.RootID {
		t.Fatalf("head should be a distinct node from the scene root")
	}
	if scintillator == head {
		t.Fatalf("scintillator should be a distinct node from the head")
	}
	if s.Name(scintillator) != "head-0-scintillator" {
		t.Errorf("scintillator name = %q, want %q", s.Name(scintillator), "head-0-scintillator")
	}
}

func TestBuild_CollimatorIsWoodcockTagged(t *testing.T) {
	s := geometry.NewScene()
	Build(s, geometry.RootID, units.Identity(), testSpec())

	// The collimator is one of the head's grandchildren; find it with
	// NodeAt at its own center, which lies inside no other volume of the
	// head: the detector box sits ShieldingThickness/2 above the head's
	// center, and the collimator fills the top 35 mm of that box.
	head, _ := Build(s, geometry.RootID, units.Translation(units.Vec3{1000, 0, 0}), testSpec())
	collimatorID := s.NodeAt(head, units.Vec3{1000, 0, 20.0/2 + (35.0+9.5+50)/2 - 35.0/2})
	if !s.IsWoodcockTagged(collimatorID) {
		t.Errorf("expected the collimator node to be Woodcock-tagged")
	}
}

func TestHexMask_CenterIsSeptum(t *testing.T) {
	mask := hexMask(testSpec().Collimator)

	// At the lattice origin (midway between two holes) the mask should report the
	// septum material (NoOverride), not a hole.
	got := mask(units.Vec3{0, 0, 0})
	if got != geometry.NoOverride {
		t.Errorf("expected the lattice origin to fall on a septum, got material %v", got)
	}
}

func TestHexMask_PeriodicInX(t *testing.T) {
	mask := hexMask(testSpec().Collimator)
	periodX := testSpec().Collimator.HoleDiameter + testSpec().Collimator.Septa

	for x := 0.0; x < periodX*4; x += 0.37 {
		a := mask(units.Vec3{x, 0.6, 0})
		b := mask(units.Vec3{x + periodX, 0.6, 0})
		if a != b {
			t.Fatalf("mask should be periodic in x with period %v: mask(%v)=%v, mask(%v)=%v",
				periodX, x, a, x+periodX, b)
		}
	}
}
