package geometry

import "github.com/nmsim/phospec/internal/units"

// PointIn reports whether world (in world coordinates) lies within id's
// own box, tested in id's local frame.
func (s *Scene) PointIn(id NodeID, world units.Vec3) bool {
	local := s.localToWorld(id).Inverse().TransformPoint(world)
	return s.nodes[id].Box.Inside(local)
}

// CastPath walks the subtree rooted at root, returning the distance from
// origin along dir to the nearest boundary a photon traveling in a
// straight line would cross, and the deepest node containing origin (the
// volume the photon travels through up to that boundary). Children whose
// box contains origin are descended into; children that do not contain
// origin contribute only their entry distance. Among those distances and
// this node's own exit distance, the minimum wins. Ties (equal distances)
// between containing children resolve to whichever child was inserted
// first, since it is visited first in the loop below.
func (s *Scene) CastPath(root NodeID, origin, dir units.Vec3) (distance float64, hit NodeID) {
	n := &s.nodes[root]
	toLocal := s.localToWorld(root).Inverse()
	localOrigin := toLocal.TransformPoint(origin)
	localDir := toLocal.TransformDirection(dir)

	bestDist, _ := n.Box.CastPath(localOrigin, localDir, n.Backend)
	bestHit := root

	var entryDist float64
	for _, child := range n.Children {
		if !s.PointIn(child, origin) {
			c := &s.nodes[child]
			toChild := s.localToWorld(child).Inverse()
			d, _ := c.Box.CastPath(toChild.TransformPoint(origin), toChild.TransformDirection(dir), c.Backend)
			if d > 0 && (entryDist <= 0 || d < entryDist) {
				entryDist = d
			}
			continue
		}
		d, h := s.CastPath(child, origin, dir)
		if d > 0 && (bestDist <= 0 || d < bestDist) {
			bestDist = d
			bestHit = h
		}
	}
	if entryDist > 0 && (bestDist <= 0 || entryDist < bestDist) {
		bestDist = entryDist
	}
	return bestDist, bestHit
}

// MaterialAt returns the material occupying world inside the subtree
// rooted at id. The deepest child containing the point wins; if id
// itself is Woodcock-parametric or a voxel grid, its mask/grid overrides
// whatever the children produced, applied as the final step.
func (s *Scene) MaterialAt(id NodeID, world units.Vec3) MaterialID {
	n := &s.nodes[id]
	mat := n.Material

	for _, child := range n.Children {
		if s.PointIn(child, world) {
			mat = s.MaterialAt(child, world)
		}
	}

	switch n.Kind {
	case WoodcockParametric:
		if n.Mask != nil {
			local := s.localToWorld(id).Inverse().TransformPoint(world)
			if m := n.Mask(local); m != NoOverride {
				mat = m
			}
		}
	case Voxel:
		local := s.localToWorld(id).Inverse().TransformPoint(world)
		if m, ok := n.voxelMaterialAt(local); ok {
			mat = m
		}
	}
	return mat
}

// NodeAt returns the ID of the deepest volume containing world, starting
// the search at root. Used by the propagator to look up the current
// volume's Woodcock tag after a boundary crossing.
func (s *Scene) NodeAt(root NodeID, world units.Vec3) NodeID {
	n := &s.nodes[root]
	deepest := root
	for _, child := range n.Children {
		if s.PointIn(child, world) {
			deepest = s.NodeAt(child, world)
		}
	}
	return deepest
}
