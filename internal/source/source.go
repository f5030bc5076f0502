// Package source implements radioactive emission sampling: voxelized
// spatial distributions, discrete-line isotopes, and decay-correct
// emission timing.
package source

import (
	"fmt"
	"math"

	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/units"
)

// VoxelDistribution is a dense relative-activity grid over a regular
// voxel lattice, row-major in (x, y, z).
type VoxelDistribution struct {
	Activity  []float64
	Dims      [3]int
	VoxelSize units.Vec3
}

// emissionTable is the flattened (lower corner, weight) pairs for every
// voxel with positive activity, built once so per-batch sampling never has
// to walk the dense grid. Despite the field name, centers[i] is voxel i's
// lower corner in the grid-centred local frame; samplePositions adds a
// uniform offset of up to one voxel to it.
type emissionTable struct {
	centers []units.Vec3
	weights []float64
}

func (d VoxelDistribution) flatten() (emissionTable, error) {
	nx, ny, nz := d.Dims[0], d.Dims[1], d.Dims[2]
	if nx*ny*nz != len(d.Activity) {
		return emissionTable{}, fmt.Errorf("source: distribution has %d cells, dims imply %d", len(d.Activity), nx*ny*nz)
	}
	size := units.Vec3{
		float64(nx) * d.VoxelSize[0],
		float64(ny) * d.VoxelSize[1],
		float64(nz) * d.VoxelSize[2],
	}

	var table emissionTable
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			for iz := 0; iz < nz; iz++ {
				idx := (ix*ny+iy)*nz + iz
				w := d.Activity[idx]
				if w <= 0 {
					continue
				}
				corner := units.Vec3{
					float64(ix) * d.VoxelSize[0],
					float64(iy) * d.VoxelSize[1],
					float64(iz) * d.VoxelSize[2],
				}
				center := corner.Sub(size.Mul(0.5))
				table.centers = append(table.centers, center)
				table.weights = append(table.weights, w)
			}
		}
	}
	if len(table.weights) == 0 {
		return emissionTable{}, fmt.Errorf("source: distribution has no positive-activity voxels")
	}
	return table, nil
}

// Isotope is a discrete-line gamma emitter: each line fires with
// probability Probabilities[i] (summing to 1±ε), and the population
// decays with the given half-life.
type Isotope struct {
	Name          string
	EnergyLines   []float64 // MeV
	Probabilities []float64
	HalfLife      float64 // ns
}

// Validate checks that line probabilities sum to 1±tol.
func (iso Isotope) Validate(tol float64) error {
	if len(iso.EnergyLines) != len(iso.Probabilities) {
		return fmt.Errorf("source: isotope %q has %d energy lines but %d probabilities",
			iso.Name, len(iso.EnergyLines), len(iso.Probabilities))
	}
	var sum float64
	for _, p := range iso.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > tol {
		return fmt.Errorf("source: isotope %q line probabilities sum to %v, want 1±%v", iso.Name, sum, tol)
	}
	return nil
}

// Source samples emission batches from a voxelized activity distribution
// and an isotope's decay/line model, tracking a decay-correct wall-clock
// timer across successive Emit calls.
type Source struct {
	table     emissionTable
	voxelSize units.Vec3
	isotope   Isotope

	initialActivity float64
	timer           float64
	placement       units.AffineMatrix
	rng             *rng.Generator
}

// New builds a Source from a voxel distribution and isotope, placed in
// the scene by placement (local-to-world), driven by gen.
func New(dist VoxelDistribution, isotope Isotope, initialActivity float64, placement units.AffineMatrix, gen *rng.Generator) (*Source, error) {
	if err := isotope.Validate(1e-6); err != nil {
		return nil, err
	}
	table, err := dist.flatten()
	if err != nil {
		return nil, err
	}
	return &Source{
		table:           table,
		voxelSize:       dist.VoxelSize,
		isotope:         isotope,
		initialActivity: initialActivity,
		placement:       placement,
		rng:             gen,
	}, nil
}

// Activity returns the current decayed activity in Bq.
func (s *Source) Activity() float64 {
	return s.initialActivity * math.Exp2(-s.timer/s.isotope.HalfLife)
}

// NucleiNumber returns the current undecayed nuclei count implied by
// Activity (decays per second) and HalfLife (ns, converted to seconds).
func (s *Source) NucleiNumber() float64 {
	return s.Activity() * (s.isotope.HalfLife * 1e-9) / math.Ln2
}

// Timer returns the source's current wall-clock position.
func (s *Source) Timer() float64 { return s.timer }

// SetState resumes a source from a previously recorded timer value and
// (optionally) a previously captured generator state.
func (s *Source) SetState(timer float64, rngState []byte) {
	s.timer = timer
	if rngState != nil {
		s.rng.RestoreState(rngState)
	}
}

// Emit samples n freshly-emitted photons: isotropic directions, isotope
// line energies, voxel-weighted positions jittered within their voxel
// and placed in world frame, and decay-correct emission times. Advances
// the source's timer by the elapsed decay interval the batch represents.
func (s *Source) Emit(n int, idAlloc *particle.IDAllocator) *particle.Batch {
	energies := s.sampleEnergies(n)
	directions := s.sampleDirections(n)
	positions := s.samplePositions(n)
	emissionTimes, dt := s.sampleEmissionTimes(n)
	s.timer += dt
	return particle.NewBatch(idAlloc, positions, directions, energies, emissionTimes)
}

func (s *Source) sampleEnergies(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		line := s.rng.Categorical(s.isotope.Probabilities)
		out[i] = s.isotope.EnergyLines[line]
	}
	return out
}

// sampleDirections draws isotropic unit directions via
// cosα = 1−2U, β = 2πV, giving a uniform distribution over the sphere.
func (s *Source) sampleDirections(n int) []units.Vec3 {
	out := make([]units.Vec3, n)
	for i := range out {
		u := s.rng.Uniform01()
		v := s.rng.Uniform01()
		cosAlpha := 1 - 2*u
		sq := math.Sqrt(1 - cosAlpha*cosAlpha)
		beta := 2 * math.Pi * v
		out[i] = units.Vec3{cosAlpha, sq * math.Cos(beta), sq * math.Sin(beta)}
	}
	return out
}

func (s *Source) samplePositions(n int) []units.Vec3 {
	out := make([]units.Vec3, n)
	for i := range out {
		voxel := s.rng.Categorical(s.table.weights)
		center := s.table.centers[voxel]
		jitter := units.Vec3{
			s.rng.Uniform01() * s.voxelSize[0],
			s.rng.Uniform01() * s.voxelSize[1],
			s.rng.Uniform01() * s.voxelSize[2],
		}
		local := center.Add(jitter)
		out[i] = s.placement.TransformPoint(local)
	}
	return out
}

// sampleEmissionTimes implements decay-correct timing: given the current
// nuclei population N(t), the interval Δt over which n decays are
// expected to occur is ln(1+n/N(t))·T½/ln2; each individual decay time
// within that interval is recovered by inverting the exponential decay
// law on a uniformly-sampled surviving fraction.
func (s *Source) sampleEmissionTimes(n int) (times []float64, dt float64) {
	nuclei := s.NucleiNumber()
	dt = math.Log(1+float64(n)/nuclei) * s.isotope.HalfLife / math.Ln2

	a := math.Exp2(-s.timer / s.isotope.HalfLife)
	b := math.Exp2(-(s.timer + dt) / s.isotope.HalfLife)

	times = make([]float64, n)
	for i := range times {
		alpha := b + s.rng.Uniform01()*(a-b)
		times[i] = -math.Log(alpha) * s.isotope.HalfLife / math.Ln2
	}
	return times, dt
}
