package materials

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Process is the closed set of photon interaction processes the
// attenuation database tabulates coefficients for.
// PairProduction is reserved, not part of this enumeration: no table is
// ever built for it.
type Process int

const (
	Photoelectric Process = iota
	Coherent
	Compton
)

func (p Process) String() string {
	switch p {
	case Photoelectric:
		return "PhotoelectricEffect"
	case Coherent:
		return "CoherentScattering"
	case Compton:
		return "ComptonScattering"
	default:
		return "unknown"
	}
}

// AllProcesses lists every process a freshly-built AttenuationDatabase
// tabulates.
var AllProcesses = []Process{Photoelectric, Coherent, Compton}

// ElementTable is a per-element tabulated mass attenuation coefficient
// set, keyed by process, in internal units (energy in MeV, mass
// attenuation coefficient in mm²/g), once converted from its cm²/g
// source units.
type ElementTable struct {
	Energies []float64
	MAC      map[Process][]float64
}

// ElementTableProvider is the external, read-only collaborator the
// database builder pulls per-element tables from. The core never opens an
// HDF5 file itself; a concrete provider (backed by whatever format the
// deployment uses) is supplied by the caller.
type ElementTableProvider interface {
	ElementTable(symbol string) (ElementTable, error)
}

// edgeDisplacement is the small energy shift applied to the
// lower of a duplicate-energy pair (an absorption edge) so the grid
// becomes strictly increasing. One electron-volt, as the original
// toolkit's displacement trick used, converted to MeV.
const edgeDisplacement = 1e-6 // 1 eV in MeV

// MaterialTable is the built attenuation table for one material: a
// strictly-monotone energy grid and, per process, the material's mass
// attenuation coefficient (not yet multiplied by density — that is
// deferred to query time).
type MaterialTable struct {
	Energies     []float64
	EdgeEnergies []float64
	MAC          map[Process][]float64

	interpolators map[Process]*interp.PiecewiseLinear
}

// AttenuationDatabase holds, for each registered Material, a MaterialTable.
type AttenuationDatabase struct {
	tables map[string]*MaterialTable
}

// NewAttenuationDatabase creates an empty AttenuationDatabase.
func NewAttenuationDatabase() *AttenuationDatabase {
	return &AttenuationDatabase{tables: make(map[string]*MaterialTable)}
}

// BuildAll constructs and stores the MaterialTable for every material in
// mdb (Vacuum is skipped: it never participates in a real interaction).
func (db *AttenuationDatabase) BuildAll(mdb *MaterialDatabase, provider ElementTableProvider) error {
	for _, name := range mdb.Names() {
		m, err := mdb.Get(name)
		if err != nil {
			return err
		}
		if err := db.BuildFor(m, provider); err != nil {
			return err
		}
	}
	return nil
}

// BuildFor constructs and stores the MaterialTable for a single material.
func (db *AttenuationDatabase) BuildFor(m Material, provider ElementTableProvider) error {
	if m.Name == VacuumName {
		return nil
	}
	table, err := buildMaterialTable(m, provider)
	if err != nil {
		return fmt.Errorf("materials: building attenuation table for %q: %w", m.Name, err)
	}
	db.tables[m.Name] = table
	return nil
}

func buildMaterialTable(m Material, provider ElementTableProvider) (*MaterialTable, error) {
	type weighted struct {
		energies []float64
		mac      map[Process][]float64
	}

	var elements []weighted
	var edges []float64
	for symbol, w := range m.Composition {
		if w <= 0 {
			continue
		}
		et, err := provider.ElementTable(symbol)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", symbol, err)
		}
		scaled := make(map[Process][]float64, len(et.MAC))
		for proc, vals := range et.MAC {
			row := make([]float64, len(vals))
			for i, v := range vals {
				row[i] = v * w
			}
			scaled[proc] = row
		}
		// Step 3: displace duplicate energies (absorption edges) so the
		// element's grid is strictly increasing, remembering the original
		// edge energies for diagnostics.
		elEdges, energies := displaceDuplicates(et.Energies)
		edges = append(edges, elEdges...)
		elements = append(elements, weighted{energies: energies, mac: scaled})
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("material has no positive-weight elements in its composition")
	}

	// Step 4: union energy grid across all elements.
	seen := make(map[float64]bool)
	var union []float64
	for _, el := range elements {
		for _, e := range el.energies {
			if !seen[e] {
				seen[e] = true
				union = append(union, e)
			}
		}
	}
	sort.Float64s(union)
	sort.Float64s(edges)

	// Step 5: for each process, sum per-element contributions
	// interpolated onto the union grid.
	mac := make(map[Process][]float64, len(AllProcesses))
	for _, proc := range AllProcesses {
		summed := make([]float64, len(union))
		for _, el := range elements {
			vals, ok := el.mac[proc]
			if !ok {
				continue
			}
			lerp := newLerp(el.energies, vals)
			for i, e := range union {
				summed[i] += lerp(e)
			}
		}
		mac[proc] = summed
	}

	table := &MaterialTable{
		Energies:     union,
		EdgeEnergies: edges,
		MAC:          mac,
	}
	if err := table.buildInterpolators(); err != nil {
		return nil, err
	}
	return table, nil
}

// displaceDuplicates returns the original duplicate (edge) energies and a
// strictly-increasing copy of energies with the lower of each duplicate
// pair shifted down by edgeDisplacement.
func displaceDuplicates(energies []float64) (edges, out []float64) {
	out = append([]float64(nil), energies...)
	for i := 0; i+1 < len(out); i++ {
		if out[i+1] == out[i] {
			edges = append(edges, out[i])
			out[i] -= edgeDisplacement
		}
	}
	return edges, out
}

// newLerp returns a piecewise-linear interpolator closure over (xs, ys),
// clamping to the boundary values outside [xs[0], xs[len-1]] — the
// per-element scratch interpolation used only to build the union-grid sum
// (step 5); out-of-range behavior for the *material's* table is governed
// separately by Query, which returns ErrEnergyOutOfRange.
func newLerp(xs, ys []float64) func(float64) float64 {
	return func(x float64) float64 {
		if len(xs) == 0 {
			return 0
		}
		if x <= xs[0] {
			return ys[0]
		}
		if x >= xs[len(xs)-1] {
			return ys[len(ys)-1]
		}
		i := sort.SearchFloat64s(xs, x)
		if xs[i] == x {
			return ys[i]
		}
		x0, x1 := xs[i-1], xs[i]
		y0, y1 := ys[i-1], ys[i]
		t := (x - x0) / (x1 - x0)
		return y0 + t*(y1-y0)
	}
}

func (t *MaterialTable) buildInterpolators() error {
	t.interpolators = make(map[Process]*interp.PiecewiseLinear, len(t.MAC))
	for proc, vals := range t.MAC {
		pl := new(interp.PiecewiseLinear)
		if err := pl.Fit(t.Energies, vals); err != nil {
			return fmt.Errorf("fitting interpolator for process %v: %w", proc, err)
		}
		t.interpolators[proc] = pl
	}
	return nil
}

// Query returns the mass attenuation coefficient μ/ρ for material at
// energy and process, by piecewise-linear interpolation in energy.
// Out-of-range queries fail with ErrEnergyOutOfRange.
func (db *AttenuationDatabase) Query(material Material, energy float64, proc Process) (float64, error) {
	if material.Name == VacuumName {
		return 0, nil
	}
	t, ok := db.tables[material.Name]
	if !ok {
		return 0, fmt.Errorf("materials: %w: no attenuation table for %q", ErrUnknownMaterial, material.Name)
	}
	if len(t.Energies) == 0 || energy < t.Energies[0] || energy > t.Energies[len(t.Energies)-1] {
		return 0, fmt.Errorf("materials: %w: energy %v MeV for %q", ErrEnergyOutOfRange, energy, material.Name)
	}
	pl, ok := t.interpolators[proc]
	if !ok {
		return 0, fmt.Errorf("materials: no table for process %v on %q", proc, material.Name)
	}
	return pl.Predict(energy), nil
}

// LAC returns the linear attenuation coefficient μ_p(E) = (μ/ρ)·density.
func (db *AttenuationDatabase) LAC(material Material, energy float64, proc Process) (float64, error) {
	mac, err := db.Query(material, energy, proc)
	if err != nil {
		return 0, err
	}
	return mac * material.Density, nil
}

// TotalLAC sums the linear attenuation coefficient across every process
// the database tabulates, used by the propagator to sample a total free
// path during delta tracking.
func (db *AttenuationDatabase) TotalLAC(material Material, energy float64) (float64, error) {
	var total float64
	for _, proc := range AllProcesses {
		lac, err := db.LAC(material, energy, proc)
		if err != nil {
			return 0, err
		}
		total += lac
	}
	return total, nil
}

// Table exposes the built MaterialTable, mainly for tests asserting the
// strict-monotonicity invariant.
func (db *AttenuationDatabase) Table(materialName string) (*MaterialTable, bool) {
	t, ok := db.tables[materialName]
	return t, ok
}
