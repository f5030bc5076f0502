package physics

import (
	"math"

	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/units"
)

// sampleKleinNishinaEpsilon draws the post-scatter to pre-scatter energy
// ratio ε = E'/E for a Compton event at incident energy k = E/mₑc²,
// using the standard Klein-Nishina rejection method (as implemented by
// e.g. Geant4's low-energy Compton model): two candidate distributions
// for ε are mixed by their relative weight, then accepted against the
// exact differential cross section shape.
func sampleKleinNishinaEpsilon(k float64, gen *rng.Generator) (epsilon, cosTheta float64) {
	eps0 := 1 / (1 + 2*k)
	eps0sq := eps0 * eps0
	alpha1 := -math.Log(eps0)
	alpha2 := 0.5 * (1 - eps0sq)

	for {
		if gen.Uniform01()*(alpha1+alpha2) < alpha1 {
			epsilon = math.Exp(-alpha1 * gen.Uniform01())
		} else {
			epsSq := eps0sq + (1-eps0sq)*gen.Uniform01()
			epsilon = math.Sqrt(epsSq)
		}

		oneMinusCosT := (1 - epsilon) / (epsilon * k)
		sinT2 := oneMinusCosT * (2 - oneMinusCosT)
		g := 1 - epsilon*sinT2/(1+epsilon*epsilon)

		if gen.Uniform01() <= g {
			cosTheta = 1 - oneMinusCosT
			return epsilon, cosTheta
		}
	}
}

// SampleComptonTheta returns a scattering polar angle theta for a
// Compton event at energy (MeV), drawn from the exact Klein-Nishina
// angular distribution.
func SampleComptonTheta(energy float64, gen *rng.Generator) float64 {
	k := energy / units.ElectronRestMassMeV
	_, cosTheta := sampleKleinNishinaEpsilon(k, gen)
	return math.Acos(clamp(cosTheta, -1, 1))
}

// SampleCoherentTheta returns a scattering polar angle for a coherent
// (Rayleigh) event off an atom of atomic number z at the given photon
// energy, sampled by rejection against a Thomson angular shape
// (1+cos²θ)/2 narrowed by a forward-peaking factor that grows with Z and
// shrinks with energy — heavier, lower-energy targets scatter more
// forward, matching the qualitative trend of real atomic form factors.
func SampleCoherentTheta(energy float64, z int, gen *rng.Generator) float64 {
	peaking := float64(z) / (energy*1000 + 1)
	for {
		cosTheta := 1 - 2*gen.Uniform01()
		thomson := (1 + cosTheta*cosTheta) / 2
		forward := math.Exp(-peaking * (1 - cosTheta))
		accept := thomson * forward
		if gen.Uniform01() < accept {
			return math.Acos(clamp(cosTheta, -1, 1))
		}
	}
}

// SamplePhi draws a uniform azimuthal scattering angle in (-π, π].
func SamplePhi(gen *rng.Generator) float64 {
	return math.Pi * (1 - 2*gen.Uniform01())
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
