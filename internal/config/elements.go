package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nmsim/phospec/internal/materials"
)

// macCM2G converts cm²·g⁻¹ — the unit element attenuation tables are
// conventionally published in — to mm²·g⁻¹, materials.ElementTable's
// internal unit: 1 cm² is 100 mm².
const macCM2G = 100

// ElementTableSpec is one element's tabulated mass attenuation
// coefficients, in the conventional cm²·g⁻¹ units, as authored in an
// element-table YAML file.
type ElementTableSpec struct {
	EnergiesMeV   []float64 `yaml:"energies_mev"`
	Photoelectric []float64 `yaml:"photoelectric_cm2g"`
	Coherent      []float64 `yaml:"coherent_cm2g"`
	Compton       []float64 `yaml:"compton_cm2g"`
}

// ElementTableFile is the on-disk shape of an element-table YAML file:
// element symbol to its tabulated coefficients. The core never reads an
// HDF5 attenuation table itself (§6's hierarchical per-element store is
// an external collaborator's format); this YAML layout is the concrete
// ElementTableProvider this repo ships, following the same
// yaml.v3-with-strict-parsing convention as Load/Bundle.
type ElementTableFile map[string]ElementTableSpec

// LoadElementTables reads and strictly parses an element-table YAML file.
func LoadElementTables(path string) (ElementTableFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading element tables: %w", err)
	}
	var file ElementTableFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("config: parsing element tables: %w", err)
	}
	return file, nil
}

// ElementTable implements materials.ElementTableProvider, converting this
// element's spec to internal units on lookup.
func (f ElementTableFile) ElementTable(symbol string) (materials.ElementTable, error) {
	spec, ok := f[symbol]
	if !ok {
		return materials.ElementTable{}, fmt.Errorf("config: %w: no attenuation table for element %q", ErrConfig, symbol)
	}
	if len(spec.EnergiesMeV) != len(spec.Photoelectric) ||
		len(spec.EnergiesMeV) != len(spec.Coherent) ||
		len(spec.EnergiesMeV) != len(spec.Compton) {
		return materials.ElementTable{}, fmt.Errorf("config: %w: element %q has mismatched array lengths", ErrConfig, symbol)
	}
	return materials.ElementTable{
		Energies: spec.EnergiesMeV,
		MAC: map[materials.Process][]float64{
			materials.Photoelectric: scaleBy(spec.Photoelectric, macCM2G),
			materials.Coherent:      scaleBy(spec.Coherent, macCM2G),
			materials.Compton:       scaleBy(spec.Compton, macCM2G),
		},
	}, nil
}

func scaleBy(vals []float64, factor float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v * factor
	}
	return out
}
