package config

import (
	"math"
	"testing"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load(writeTempYAML(t, validBundleYAML))
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	return b
}

func TestBuildMaterialDatabase_RegistersEveryMaterial(t *testing.T) {
	b := testBundle(t)
	mdb, err := BuildMaterialDatabase(b)
	if err != nil {
		t.Fatalf("BuildMaterialDatabase: unexpected error: %v", err)
	}
	for _, spec := range b.Materials {
		m, err := mdb.Get(spec.Name)
		if err != nil {
			t.Errorf("expected material %q to be registered: %v", spec.Name, err)
			continue
		}
		wantDensity := spec.DensityGCM3 * densityCM3ToMM3
		if math.Abs(m.Density-wantDensity) > 1e-12 {
			t.Errorf("material %q: density = %v, want %v", spec.Name, m.Density, wantDensity)
		}
	}
}

func TestBuildIsotope_ConvertsHalfLifeToNanoseconds(t *testing.T) {
	b := testBundle(t)
	iso := BuildIsotope(b)
	want := b.Isotope.HalfLifeSeconds * 1e9
	if iso.HalfLife != want {
		t.Errorf("HalfLife = %v, want %v", iso.HalfLife, want)
	}
	if err := iso.Validate(1e-6); err != nil {
		t.Errorf("expected a valid isotope, got: %v", err)
	}
}

func TestBuildCameraSpec_ResolvesMaterialNames(t *testing.T) {
	b := testBundle(t)
	mdb, err := BuildMaterialDatabase(b)
	if err != nil {
		t.Fatalf("BuildMaterialDatabase: unexpected error: %v", err)
	}
	spec, err := BuildCameraSpec(b, mdb, "head-0")
	if err != nil {
		t.Fatalf("BuildCameraSpec: unexpected error: %v", err)
	}

	lead, _ := mdb.Get("Lead")
	nai, _ := mdb.Get("NaI")
	if int(spec.ShieldingMaterial) != lead.ID {
		t.Errorf("ShieldingMaterial = %d, want %d (Lead)", spec.ShieldingMaterial, lead.ID)
	}
	if int(spec.ScintillatorMaterial) != nai.ID {
		t.Errorf("ScintillatorMaterial = %d, want %d (NaI)", spec.ScintillatorMaterial, nai.ID)
	}
	if spec.Collimator.Majorant != spec.Collimator.SeptaMaterial {
		t.Errorf("expected the collimator majorant to be septa material")
	}
}

func TestBuildCameraSpec_UnknownMaterialFails(t *testing.T) {
	b := testBundle(t)
	mdb, err := BuildMaterialDatabase(b)
	if err != nil {
		t.Fatalf("BuildMaterialDatabase: unexpected error: %v", err)
	}
	b.Camera.GlassMaterial = "Unobtanium"
	if _, err := BuildCameraSpec(b, mdb, "head-0"); err == nil {
		t.Error("expected an error for an unresolvable glass_material reference")
	}
}

func TestViewAngles_SpansFullRange(t *testing.T) {
	b := testBundle(t)
	b.Run.Views = 4
	b.Run.AngularRangeDegrees = 360

	angles := ViewAngles(b)
	if len(angles) != 4 {
		t.Fatalf("expected 4 angles, got %d", len(angles))
	}
	if angles[0] != 0 {
		t.Errorf("expected the first angle to be 0, got %v", angles[0])
	}
	wantLast := 360 * math.Pi / 180 / 3 * 3
	if math.Abs(angles[3]-wantLast) > 1e-9 {
		t.Errorf("expected the last angle to be %v, got %v", wantLast, angles[3])
	}
}

func TestViewAngles_SingleViewIsZero(t *testing.T) {
	b := testBundle(t)
	b.Run.Views = 1

	angles := ViewAngles(b)
	if len(angles) != 1 || angles[0] != 0 {
		t.Errorf("expected a single zero angle, got %v", angles)
	}
}
