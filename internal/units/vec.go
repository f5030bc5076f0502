package units

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a 3-vector of real numbers, in internal units (mm for positions,
// dimensionless for directions). Aliasing mgl64.Vec3 keeps scene-graph math
// on the same vector library used elsewhere, at float64 precision for
// sub-nanometre round-trip accuracy through nested transforms.
type Vec3 = mgl64.Vec3

// Zero3 is the zero vector.
func Zero3() Vec3 { return Vec3{0, 0, 0} }

// IsUnit reports whether v has unit norm within tol.
func IsUnit(v Vec3, tol float64) bool {
	return math.Abs(v.Len()-1) < tol
}

// AffineMatrix represents rotation ∘ translation in homogeneous form.
// Composition is associative; Identity is the neutral element. Vectors
// transform as homogeneous points (w=1) for positions and as pure
// rotations (w=0) for directions.
type AffineMatrix struct {
	m mgl64.Mat4
}

// Identity returns the neutral affine transform.
func Identity() AffineMatrix {
	return AffineMatrix{m: mgl64.Ident4()}
}

// Translation builds a pure-translation affine transform.
func Translation(t Vec3) AffineMatrix {
	return AffineMatrix{m: mgl64.Translate3D(t[0], t[1], t[2])}
}

// RotationTranslation builds an affine transform that rotates by rot then
// translates by t, i.e. applies rotation first in the local frame.
func RotationTranslation(rot mgl64.Mat3, t Vec3) AffineMatrix {
	m := rot.Mat4()
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return AffineMatrix{m: m}
}

// FromMat4 wraps a raw affine Mat4 (bottom row assumed [0 0 0 1]).
func FromMat4(m mgl64.Mat4) AffineMatrix { return AffineMatrix{m: m} }

// Compose returns a ∘ b: applying the result to a point is equivalent to
// applying b first, then a.
func (a AffineMatrix) Compose(b AffineMatrix) AffineMatrix {
	return AffineMatrix{m: a.m.Mul4(b.m)}
}

// Inverse returns the inverse transform, used for world→local round trips.
func (a AffineMatrix) Inverse() AffineMatrix {
	return AffineMatrix{m: a.m.Inv()}
}

// TransformPoint transforms p as a homogeneous point (w=1): applies
// rotation and translation.
func (a AffineMatrix) TransformPoint(p Vec3) Vec3 {
	v4 := a.m.Mul4x1(p.Vec4(1))
	return Vec3{v4[0], v4[1], v4[2]}
}

// TransformDirection transforms d as a homogeneous direction (w=0): applies
// rotation only, translation has no effect.
func (a AffineMatrix) TransformDirection(d Vec3) Vec3 {
	v4 := a.m.Mul4x1(d.Vec4(0))
	return Vec3{v4[0], v4[1], v4[2]}
}

// Mat4 exposes the underlying matrix for callers that need raw access
// (e.g. the geometry camera builder composing with mathgl quaternions).
func (a AffineMatrix) Mat4() mgl64.Mat4 { return a.m }

// RotateToward returns the unit direction obtained by deflecting d0 by
// polar angle theta and azimuth phi around it, using the
// "cos_theta − b/(1+|z|)" form rather than the textbook 1/sqrt(1-z²)
// basis change, which loses precision as the direction approaches either
// pole. The denominator here, 1+|z|, never vanishes.
func RotateToward(d0 Vec3, theta, phi float64) Vec3 {
	x, y, z := d0[0], d0[1], d0[2]
	cosTheta := math.Cos(theta)
	sinTheta := math.Sin(theta)
	delta1 := sinTheta * math.Cos(phi)
	delta2 := sinTheta * math.Sin(phi)

	sign := 1.0
	if z < 0 {
		sign = -1.0
	}

	b := x*delta1 + y*delta2
	tmp := cosTheta - b/(1+math.Abs(z))

	return Vec3{
		x*tmp + delta1,
		y*tmp + delta2,
		z*cosTheta - sign*b,
	}.Normalize()
}
