package geometry

import (
	"github.com/google/uuid"

	"github.com/nmsim/phospec/internal/units"
)

// NodeID indexes a volumeNode within a Scene's arena. The zero value is
// the scene root.
type NodeID uint32

// RootID is always the scene root, a WithChildren volume.
const RootID NodeID = 0

// MaterialID indexes a material.MaterialDatabase entry. NoOverride is the
// sentinel a Woodcock-parametric mask function returns to mean "defer to
// the enclosing volume's material", since -1 can never be a real index.
type MaterialID int

const NoOverride MaterialID = -1

// Kind is the closed tagged-union discriminant for a volumeNode.
type Kind int

const (
	// Elementary is a leaf volume with a single uniform material.
	Elementary Kind = iota
	// Transformable is an interior node that carries its own transform
	// but no children of its own beyond what's attached to it (used for
	// prefab subtrees like a GammaCamera that get attached wholesale).
	Transformable
	// WithChildren is a grouping node: its own material fills whatever
	// part of its box its children do not cover.
	WithChildren
	// Woodcock marks a volume as using a majorant cross-section for
	// delta tracking, but with a single uniform real material inside.
	Woodcock
	// WoodcockParametric additionally carries a mask function that maps
	// a local-frame point to a real material (e.g. collimator septa vs.
	// hole), still tracked against a single majorant.
	WoodcockParametric
	// Voxel is a WoodcockParametric volume whose mask is a dense regular
	// grid instead of an analytic function.
	Voxel
)

// MaskFunc maps a local-frame point inside a WoodcockParametric volume to
// the real material occupying it, or NoOverride to defer to the node's
// own uniform Material.
type MaskFunc func(local units.Vec3) MaterialID

// Node is the data common to every volume: its name, the rigid transform
// from its own local frame to its parent's, and its parent link. The
// root has no parent.
type Node struct {
	Name      string
	Local     units.AffineMatrix
	Parent    NodeID
	HasParent bool
}

// volumeNode is the concrete arena element. Only the fields relevant to
// its Kind are populated; the others sit at their zero value.
type volumeNode struct {
	Node
	Kind    Kind
	Box     Box
	Backend Backend

	Material MaterialID // Elementary, Transformable, WithChildren, Woodcock

	MajorantMaterial MaterialID // Woodcock, WoodcockParametric, Voxel
	Mask             MaskFunc   // WoodcockParametric

	VoxelSize units.Vec3
	VoxelDims [3]int
	VoxelGrid []MaterialID // Voxel, row-major x,y,z

	Children []NodeID
}

// worldExtent bounds the root volume: large enough that no realistic
// scene geometry reaches it, small enough to stay inside float64 slab
// arithmetic without overflow.
const worldExtent = 1e12

// Scene owns the volume arena. Index 0 is always the root.
type Scene struct {
	nodes []volumeNode
}

// NewScene creates a Scene with an empty WithChildren root.
func NewScene() *Scene {
	s := &Scene{}
	s.nodes = append(s.nodes, volumeNode{
		Node: Node{Name: "root", Local: units.Identity()},
		Kind: WithChildren,
		Box:  Box{HalfExtents: units.Vec3{worldExtent, worldExtent, worldExtent}},
	})
	return s
}

// AddChild attaches a new volume node under parent and returns its ID.
func (s *Scene) AddChild(parent NodeID, name string, local units.AffineMatrix, kind Kind, box Box, material MaterialID) NodeID {
	id := NodeID(len(s.nodes))
	s.nodes = append(s.nodes, volumeNode{
		Node:     Node{Name: name, Local: local, Parent: parent, HasParent: true},
		Kind:     kind,
		Box:      box,
		Material: material,
	})
	s.nodes[parent].Children = append(s.nodes[parent].Children, id)
	return id
}

// SetWoodcock tags an existing node as using majorant for free-path
// sampling while holding a single uniform real material.
func (s *Scene) SetWoodcock(id NodeID, majorant MaterialID) {
	n := &s.nodes[id]
	n.Kind = Woodcock
	n.MajorantMaterial = majorant
}

// SetWoodcockParametric tags an existing node as Woodcock-tracked with a
// mask function deciding the real material per point.
func (s *Scene) SetWoodcockParametric(id NodeID, majorant MaterialID, mask MaskFunc) {
	n := &s.nodes[id]
	n.Kind = WoodcockParametric
	n.MajorantMaterial = majorant
	n.Mask = mask
}

// SetVoxel tags an existing node as a dense voxel grid, majorant-tracked.
// grid is row-major in (x, y, z) with dims giving each axis's extent.
func (s *Scene) SetVoxel(id NodeID, majorant MaterialID, voxelSize units.Vec3, dims [3]int, grid []MaterialID) {
	n := &s.nodes[id]
	n.Kind = Voxel
	n.MajorantMaterial = majorant
	n.VoxelSize = voxelSize
	n.VoxelDims = dims
	n.VoxelGrid = grid
}

// IsWoodcockTagged reports whether id uses a majorant cross-section
// (Woodcock, WoodcockParametric, or Voxel).
func (s *Scene) IsWoodcockTagged(id NodeID) bool {
	switch s.nodes[id].Kind {
	case Woodcock, WoodcockParametric, Voxel:
		return true
	default:
		return false
	}
}

// Majorant returns the node's majorant material. Only meaningful when
// IsWoodcockTagged(id) is true.
func (s *Scene) Majorant(id NodeID) MaterialID { return s.nodes[id].MajorantMaterial }

// NodeMaterial returns the material a propagation step should sample a
// candidate free path against while id is the photon's current volume:
// the majorant material for a Woodcock-tagged node, otherwise the node's
// own uniform material.
func (s *Scene) NodeMaterial(id NodeID) MaterialID {
	if s.IsWoodcockTagged(id) {
		return s.nodes[id].MajorantMaterial
	}
	return s.nodes[id].Material
}

// Name returns the node's name.
func (s *Scene) Name(id NodeID) string { return s.nodes[id].Name }

// WorldToLocal returns the transform from world space into id's local
// frame, for sinks that need to express a global position/direction in a
// sensitive volume's own coordinates.
func (s *Scene) WorldToLocal(id NodeID) units.AffineMatrix {
	return s.localToWorld(id).Inverse()
}

// localToWorld composes the local-to-parent transforms from id up to the
// root.
func (s *Scene) localToWorld(id NodeID) units.AffineMatrix {
	n := &s.nodes[id]
	if !n.HasParent {
		return n.Local
	}
	return s.localToWorld(n.Parent).Compose(n.Local)
}

func (n *volumeNode) voxelMaterialAt(local units.Vec3) (MaterialID, bool) {
	if n.VoxelSize[0] <= 0 || n.VoxelSize[1] <= 0 || n.VoxelSize[2] <= 0 {
		return NoOverride, false
	}
	half := units.Vec3{
		float64(n.VoxelDims[0]) * n.VoxelSize[0] / 2,
		float64(n.VoxelDims[1]) * n.VoxelSize[1] / 2,
		float64(n.VoxelDims[2]) * n.VoxelSize[2] / 2,
	}
	ix := int((local[0] + half[0]) / n.VoxelSize[0])
	iy := int((local[1] + half[1]) / n.VoxelSize[1])
	iz := int((local[2] + half[2]) / n.VoxelSize[2])
	if ix < 0 || ix >= n.VoxelDims[0] || iy < 0 || iy >= n.VoxelDims[1] || iz < 0 || iz >= n.VoxelDims[2] {
		return NoOverride, false
	}
	idx := (iz*n.VoxelDims[1]+iy)*n.VoxelDims[0] + ix
	if idx < 0 || idx >= len(n.VoxelGrid) {
		return NoOverride, false
	}
	return n.VoxelGrid[idx], true
}

// Duplicate deep-copies the subtree rooted at id into the same arena,
// giving every copied node a uuid-suffixed name, and attaches the new
// subtree's root as an additional sibling under id's original parent.
// Returns the duplicate's root ID.
func (s *Scene) Duplicate(id NodeID) NodeID {
	newID := s.duplicateSubtree(id)
	orig := s.nodes[id]
	if orig.HasParent {
		s.nodes[orig.Parent].Children = append(s.nodes[orig.Parent].Children, newID)
		s.nodes[newID].Parent = orig.Parent
		s.nodes[newID].HasParent = true
	}
	return newID
}

func (s *Scene) duplicateSubtree(id NodeID) NodeID {
	orig := s.nodes[id]
	originalChildren := append([]NodeID(nil), orig.Children...)

	copyNode := orig
	copyNode.Name = orig.Name + "-" + uuid.NewString()
	copyNode.Children = nil
	newID := NodeID(len(s.nodes))
	s.nodes = append(s.nodes, copyNode)

	for _, child := range originalChildren {
		childCopyID := s.duplicateSubtree(child)
		s.nodes[childCopyID].Parent = newID
		s.nodes[childCopyID].HasParent = true
		s.nodes[newID].Children = append(s.nodes[newID].Children, childCopyID)
	}
	return newID
}
