// Package config loads and validates the YAML run bundle that describes a
// scene's materials, isotope, source distribution, gamma-camera geometry,
// and run control parameters — the on-disk counterpart of the §6
// Configuration surface a cmd/run invocation exposes as flags.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// MaterialSpec describes one registered material. Density is given in the
// conventional g·cm⁻³; BuildMaterialDatabase converts it to the
// materials.Material's internal g·mm⁻³.
type MaterialSpec struct {
	Name        string             `yaml:"name"`
	DensityGCM3 float64            `yaml:"density_g_cm3"`
	Composition map[string]float64 `yaml:"composition"`
}

// IsotopeSpec describes a discrete-line gamma emitter.
type IsotopeSpec struct {
	Name            string    `yaml:"name"`
	EnergyLinesMeV  []float64 `yaml:"energy_lines_mev"`
	Probabilities   []float64 `yaml:"probabilities"`
	HalfLifeSeconds float64   `yaml:"half_life_seconds"`
}

// SourceSpec describes the emission distribution. ActivityPath names a
// phantom file holding the per-voxel relative activity grid;
// ResolveActivity (phantom.go) reads it.
type SourceSpec struct {
	ActivityPath      string     `yaml:"activity_path"`
	VoxelSizeMM       [3]float64 `yaml:"voxel_size_mm"`
	Dims              [3]int     `yaml:"dims"`
	InitialActivityBq float64    `yaml:"initial_activity_bq"`
}

// CollimatorSpec describes a parallel-hole collimator by material name;
// BuildCameraSpec resolves the names against a MaterialDatabase.
type CollimatorSpec struct {
	HoleDiameterMM float64 `yaml:"hole_diameter_mm"`
	SeptaMM        float64 `yaml:"septa_mm"`
	ThicknessMM    float64 `yaml:"thickness_mm"`
	HoleMaterial   string  `yaml:"hole_material"`
	SeptaMaterial  string  `yaml:"septa_material"`
}

// CameraSpec describes one gamma-camera head by material name.
type CameraSpec struct {
	DetectorSizeMM       [3]float64     `yaml:"detector_size_mm"`
	ScintillatorMaterial string         `yaml:"scintillator_material"`
	GlassThicknessMM     float64        `yaml:"glass_thickness_mm"`
	GlassMaterial        string         `yaml:"glass_material"`
	AirMaterial          string         `yaml:"air_material"`
	ShieldingThicknessMM float64        `yaml:"shielding_thickness_mm"`
	ShieldingMaterial    string         `yaml:"shielding_material"`
	Collimator           CollimatorSpec `yaml:"collimator"`
}

// RunSpec is the §6 Configuration surface: number of views, cameras per
// view, detector ring radius, angular range, start/stop time, pool size,
// particles per batch, the energy floor, RNG seed, and log level.
type RunSpec struct {
	Views               int     `yaml:"views"`
	CamerasPerView      int     `yaml:"cameras_per_view"`
	RadiusMM            float64 `yaml:"radius_mm"`
	AngularRangeDegrees float64 `yaml:"angular_range_degrees"`
	StartTimeNS         float64 `yaml:"start_time_ns"`
	StopTimeNS          float64 `yaml:"stop_time_ns"`
	PoolSize            int     `yaml:"pool_size"`
	ParticlesPerBatch   int     `yaml:"particles_per_batch"`
	MinEnergyMeV        float64 `yaml:"min_energy_mev"`
	Seed                int64   `yaml:"seed"`
	LogLevel            string  `yaml:"log_level"`
}

// Bundle is the full on-disk run description.
type Bundle struct {
	Materials []MaterialSpec `yaml:"materials"`
	Isotope   IsotopeSpec    `yaml:"isotope"`
	Source    SourceSpec     `yaml:"source"`
	Camera    CameraSpec     `yaml:"camera"`
	Run       RunSpec        `yaml:"run"`
}

// Load reads and strictly parses a YAML run bundle: unrecognized keys
// (typos) are rejected rather than silently ignored.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading bundle: %w", err)
	}
	var b Bundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil {
		return nil, fmt.Errorf("config: parsing bundle: %w", err)
	}
	return &b, nil
}

// Validate checks every bundle field against the invariants the runtime
// packages (materials, source, transport) themselves enforce, failing
// fast before any worker starts — exactly the boundary §7's ConfigError
// describes. It deliberately re-uses BuildMaterialDatabase/BuildIsotope
// rather than duplicating their range checks.
func (b *Bundle) Validate() error {
	if b.Run.Views <= 0 {
		return fmt.Errorf("config: %w: views must be positive, got %d", ErrConfig, b.Run.Views)
	}
	if b.Run.CamerasPerView <= 0 {
		return fmt.Errorf("config: %w: cameras_per_view must be positive, got %d", ErrConfig, b.Run.CamerasPerView)
	}
	if b.Run.RadiusMM <= 0 {
		return fmt.Errorf("config: %w: radius_mm must be positive, got %v", ErrConfig, b.Run.RadiusMM)
	}
	if b.Run.PoolSize <= 0 {
		return fmt.Errorf("config: %w: pool_size must be positive, got %d", ErrConfig, b.Run.PoolSize)
	}
	if b.Run.ParticlesPerBatch <= 0 {
		return fmt.Errorf("config: %w: particles_per_batch must be positive, got %d", ErrConfig, b.Run.ParticlesPerBatch)
	}
	if b.Run.StopTimeNS < b.Run.StartTimeNS {
		return fmt.Errorf("config: %w: stop_time_ns (%v) precedes start_time_ns (%v)", ErrConfig, b.Run.StopTimeNS, b.Run.StartTimeNS)
	}
	if b.Run.LogLevel != "" {
		if _, err := logrus.ParseLevel(b.Run.LogLevel); err != nil {
			return fmt.Errorf("config: %w: log_level: %v", ErrConfig, err)
		}
	}

	if err := b.Source.validate(); err != nil {
		return err
	}

	if _, err := BuildMaterialDatabase(b); err != nil {
		return fmt.Errorf("config: %w: %v", ErrConfig, err)
	}
	if err := BuildIsotope(b).Validate(1e-6); err != nil {
		return fmt.Errorf("config: %w: %v", ErrConfig, err)
	}
	if err := b.Camera.validateMaterialRefs(b.materialNames()); err != nil {
		return err
	}
	return nil
}

func (s SourceSpec) validate() error {
	for axis, v := range s.VoxelSizeMM {
		if v <= 0 {
			return fmt.Errorf("config: %w: voxel_size_mm[%d] must be positive, got %v", ErrConfig, axis, v)
		}
	}
	for axis, v := range s.Dims {
		if v <= 0 {
			return fmt.Errorf("config: %w: dims[%d] must be positive, got %d", ErrConfig, axis, v)
		}
	}
	if s.InitialActivityBq <= 0 || math.IsNaN(s.InitialActivityBq) || math.IsInf(s.InitialActivityBq, 0) {
		return fmt.Errorf("config: %w: initial_activity_bq must be a positive finite number, got %v", ErrConfig, s.InitialActivityBq)
	}
	return nil
}

func (b *Bundle) materialNames() map[string]bool {
	names := map[string]bool{"Vacuum": true}
	for _, m := range b.Materials {
		names[m.Name] = true
	}
	return names
}

func (c CameraSpec) validateMaterialRefs(known map[string]bool) error {
	refs := map[string]string{
		"scintillator_material": c.ScintillatorMaterial,
		"glass_material":        c.GlassMaterial,
		"air_material":          c.AirMaterial,
		"shielding_material":    c.ShieldingMaterial,
		"collimator.hole_material":  c.Collimator.HoleMaterial,
		"collimator.septa_material": c.Collimator.SeptaMaterial,
	}
	for field, name := range refs {
		if name == "" || !known[name] {
			return fmt.Errorf("config: %w: camera.%s references unknown material %q", ErrConfig, field, name)
		}
	}
	return nil
}
