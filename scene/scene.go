// Package scene is the in-memory scene graph shared by the conversion stages.
// Nodes, meshes and materials live in arenas addressed by integer handles.
package scene

import (
	"fmt"

	"github.com/binzume/fbx2gltf/geom"
)

type NodeID int
type MeshID int
type MaterialID int

const (
	RootID NodeID = 0

	NoNode     NodeID     = -1
	NoMesh     MeshID     = -1
	NoMaterial MaterialID = -1
)

type Scene struct {
	Nodes     []*Node // Nodes[0] is the synthetic root
	Meshes    []*Mesh
	Materials []*Material
	Takes     []*Take
	Baked     []*BakedTake

	SourcePath string
	Axes       AxisSystem
	UnitScale  float64 // meters per file unit
	FrameRate  float64

	// Conversion is the axis and unit conversion applied by normalization, nil before.
	Conversion *geom.Matrix4

	// Media holds embedded files waiting to be written to the media directory.
	Media []*MediaFile
}

type MediaFile struct {
	Path string
	Data []byte
}

func New() *Scene {
	root := NewNode("RootNode", MatrixTransform(geom.NewMatrix4()))
	root.Parent = NoNode
	return &Scene{Nodes: []*Node{root}, Axes: YUp, UnitScale: 0.01}
}

func (s *Scene) Root() *Node {
	return s.Nodes[RootID]
}

func (s *Scene) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(s.Nodes) {
		return nil
	}
	return s.Nodes[id]
}

// AddNode appends n as the last child of parent and returns its handle.
func (s *Scene) AddNode(parent NodeID, n *Node) NodeID {
	id := NodeID(len(s.Nodes))
	n.Parent = parent
	if n.Local == nil {
		n.Local = n.Transform.Evaluate()
	}
	s.Nodes = append(s.Nodes, n)
	p := s.Nodes[parent]
	p.Children = append(p.Children, id)
	return id
}

func (s *Scene) Mesh(id MeshID) *Mesh {
	if id < 0 || int(id) >= len(s.Meshes) {
		return nil
	}
	return s.Meshes[id]
}

func (s *Scene) AddMesh(m *Mesh) MeshID {
	s.Meshes = append(s.Meshes, m)
	return MeshID(len(s.Meshes) - 1)
}

func (s *Scene) Material(id MaterialID) *Material {
	if id < 0 || int(id) >= len(s.Materials) {
		return nil
	}
	return s.Materials[id]
}

func (s *Scene) AddMaterial(m *Material) MaterialID {
	s.Materials = append(s.Materials, m)
	return MaterialID(len(s.Materials) - 1)
}

// SetMesh binds a mesh and its material slots to a node.
func (s *Scene) SetMesh(node NodeID, mesh MeshID, materials []MaterialID) {
	n := s.Nodes[node]
	if old := s.Mesh(n.Mesh); old != nil {
		old.Users--
	}
	n.Mesh = mesh
	n.Materials = materials
	if m := s.Mesh(mesh); m != nil {
		m.Users++
	}
}

// Walk visits the subtree of id in pre-order following child order.
func (s *Scene) Walk(id NodeID, fn func(id NodeID, n *Node) error) error {
	n := s.Node(id)
	if n == nil {
		return fmt.Errorf("scene: invalid node %d", id)
	}
	if err := fn(id, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := s.Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// WorldMatrix returns the product of the local matrices from the root to id.
func (s *Scene) WorldMatrix(id NodeID) *geom.Matrix4 {
	m := geom.NewMatrix4()
	for n := s.Node(id); n != nil; n = s.Node(n.Parent) {
		m = n.Local.Mul(m)
	}
	return m
}

// Validate checks the tree shape and every handle.
func (s *Scene) Validate() error {
	if len(s.Nodes) == 0 || s.Nodes[0].Parent != NoNode {
		return fmt.Errorf("scene: missing root")
	}
	seen := make([]bool, len(s.Nodes))
	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if id < 0 || int(id) >= len(s.Nodes) {
			return fmt.Errorf("scene: invalid node handle %d", id)
		}
		if seen[id] {
			return fmt.Errorf("scene: node %d reached twice", id)
		}
		seen[id] = true
		n := s.Nodes[id]
		for _, c := range n.Children {
			if c >= 0 && int(c) < len(s.Nodes) && s.Nodes[c].Parent != id {
				return fmt.Errorf("scene: node %d has parent %d, listed under %d", c, s.Nodes[c].Parent, id)
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		if n.Mesh != NoMesh && s.Mesh(n.Mesh) == nil {
			return fmt.Errorf("scene: node %q: invalid mesh handle %d", n.Name, n.Mesh)
		}
		for _, m := range n.Materials {
			if m != NoMaterial && s.Material(m) == nil {
				return fmt.Errorf("scene: node %q: invalid material handle %d", n.Name, m)
			}
		}
		return nil
	}
	if err := visit(RootID); err != nil {
		return err
	}
	for id, ok := range seen {
		if !ok {
			return fmt.Errorf("scene: node %d (%q) is not reachable from the root", id, s.Nodes[id].Name)
		}
	}
	for i, m := range s.Meshes {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("scene: mesh %d: %w", i, err)
		}
		if m.Skin != nil {
			for _, j := range m.Skin.Joints {
				if s.Node(j.Node) == nil {
					return fmt.Errorf("scene: mesh %d: invalid joint handle %d", i, j.Node)
				}
			}
		}
	}
	for _, take := range s.Takes {
		for _, tr := range take.Tracks {
			if s.Node(tr.Node) == nil {
				return fmt.Errorf("scene: take %q: invalid node handle %d", take.Name, tr.Node)
			}
		}
	}
	return nil
}
