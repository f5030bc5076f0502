package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PhantomFile is the on-disk shape of an activity phantom: a flat,
// row-major list of per-voxel relative activity values, one entry per
// voxel in SourceSpec.Dims order. This package never interprets a
// clinical phantom format (DICOM, raw binary) itself — this YAML layout
// is the concrete phantom this repo ships, following the same
// yaml.v3-with-strict-parsing convention as Load/LoadElementTables.
type PhantomFile struct {
	Activity []float64 `yaml:"activity"`
}

// LoadPhantom reads and strictly parses an activity phantom file.
func LoadPhantom(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading phantom: %w", err)
	}
	var f PhantomFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: parsing phantom: %w", err)
	}
	return f.Activity, nil
}

// ResolveActivity loads b.Source.ActivityPath if set, otherwise returns a
// uniform activity grid spanning b.Source.Dims — the single-voxel and
// simple-phantom case a run bundle needs no external file for.
func ResolveActivity(b *Bundle) ([]float64, error) {
	if b.Source.ActivityPath == "" {
		return uniformActivity(b.Source.Dims), nil
	}
	activity, err := LoadPhantom(b.Source.ActivityPath)
	if err != nil {
		return nil, err
	}
	want := b.Source.Dims[0] * b.Source.Dims[1] * b.Source.Dims[2]
	if len(activity) != want {
		return nil, fmt.Errorf("config: %w: phantom %q has %d voxels, dims imply %d", ErrConfig, b.Source.ActivityPath, len(activity), want)
	}
	return activity, nil
}

func uniformActivity(dims [3]int) []float64 {
	n := dims[0] * dims[1] * dims[2]
	if n <= 0 {
		n = 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
