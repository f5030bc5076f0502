// Package geometry implements the scene graph: axis-aligned bounding
// boxes in local frame, a tagged-union volume tree, and the traversal
// operations that recurse through it.
package geometry

import (
	"math"

	"github.com/nmsim/phospec/internal/units"
)

// surfaceEpsilon is added to a returned CastPath distance so the stepped
// photon lands strictly past the surface instead of exactly on it, which
// would otherwise make the next containment test ambiguous.
const surfaceEpsilon = 1e-9

// Backend selects the ray-box intersection algorithm CastPath uses.
type Backend int

const (
	// RayCasting solves the slab method analytically.
	RayCasting Backend = iota
	// RayMarching steps along the ray in fixed increments until its
	// inside/outside state changes (the exit from an inside origin, the
	// entry from an outside one), for geometries where the analytic form is
	// unavailable (kept for parity with voxelized volumes that override
	// the boundary test).
	RayMarching
)

// rayMarchStep is the fixed step size RayMarching advances by.
const rayMarchStep = 0.05 // mm

// Box is an axis-aligned box in its owner's local frame, centered at the
// local origin.
type Box struct {
	HalfExtents units.Vec3
}

// Inside reports whether p (in local frame) is inside the box, closed on
// the boundary.
func (b Box) Inside(p units.Vec3) bool {
	return math.Abs(p[0]) <= b.HalfExtents[0] &&
		math.Abs(p[1]) <= b.HalfExtents[1] &&
		math.Abs(p[2]) <= b.HalfExtents[2]
}

// Outside is the open complement of Inside.
func (b Box) Outside(p units.Vec3) bool { return !b.Inside(p) }

// CastPath returns the distance from origin along dir (local frame,
// dir need not be unit length) to the box boundary, and whether origin
// itself starts inside the box. A non-intersecting ray returns distance
// 0; a genuine hit always returns a strictly positive distance (at least
// surfaceEpsilon), even for a boundary-exact origin/direction that exits
// or enters in zero parametric length, so 0 stays an unambiguous miss
// sentinel.
func (b Box) CastPath(origin, dir units.Vec3, backend Backend) (distance float64, inside bool) {
	inside = b.Inside(origin)
	var hit bool
	switch backend {
	case RayMarching:
		distance, hit = b.castPathMarching(origin, dir, inside)
	default:
		distance, hit = b.castPathSlab(origin, dir, inside)
	}
	if hit {
		distance += surfaceEpsilon
	} else {
		distance = 0
	}
	return distance, inside
}

// castPathSlab implements the slab method: for each axis, compute the
// entry/exit parametric distances and intersect the three intervals.
// The bool return distinguishes a genuine hit (possibly at distance 0,
// when origin already sits on the binding face) from a true miss — the
// two are not both expressible in the distance value alone.
func (b Box) castPathSlab(origin, dir units.Vec3, inside bool) (float64, bool) {
	tEnter := math.Inf(-1)
	tExit := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		d := dir[axis]
		o := origin[axis]
		h := b.HalfExtents[axis]

		if math.Abs(d) < 1e-12 {
			// Ray parallel to this slab: no intersection unless already
			// within the slab's extent on this axis.
			if o < -h || o > h {
				return 0, false
			}
			continue
		}

		t0 := (-h - o) / d
		t1 := (h - o) / d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tEnter {
			tEnter = t0
		}
		if t1 < tExit {
			tExit = t1
		}
		if tEnter > tExit {
			return 0, false
		}
	}

	if inside {
		if tExit < 0 {
			return 0, false
		}
		return tExit, true
	}
	if tEnter < 0 {
		return 0, false
	}
	return tEnter, true
}

// castPathMarching advances along dir in fixed steps until the
// containment state flips, for callers that need a boundary estimate
// without an analytic slab solve.
func (b Box) castPathMarching(origin, dir units.Vec3, inside bool) (float64, bool) {
	norm := dir.Len()
	if norm < 1e-12 {
		return 0, false
	}
	unit := dir.Mul(1 / norm)

	maxDist := 4 * (b.HalfExtents[0] + b.HalfExtents[1] + b.HalfExtents[2])
	for t := rayMarchStep; t < maxDist; t += rayMarchStep {
		p := origin.Add(unit.Mul(t))
		if b.Inside(p) != inside {
			return t, true
		}
	}
	return 0, false
}
