package scene

import (
	"fmt"

	"github.com/binzume/fbx2gltf/geom"
)

const MaxUVSets = 2

// Corner is a polygon corner with its per-corner attributes.
type Corner struct {
	Point  int
	Normal geom.Vector3
	UV     [MaxUVSets]geom.Vector2
	Color  geom.Vector4
}

type Influence struct {
	Joint  int // index into Skin.Joints
	Weight float32
}

type SkinJoint struct {
	Node NodeID
	// BindMatrix is the world matrix of the joint at bind time.
	BindMatrix *geom.Matrix4
	// MeshBindMatrix is the world matrix of the mesh at bind time.
	MeshBindMatrix *geom.Matrix4
}

type Skin struct {
	Joints     []SkinJoint
	Influences [][]Influence // per control point
}

type MorphTarget struct {
	Name   string
	Deltas []geom.Vector3 // per control point
	Weight float32        // static weight, 0..1
}

// Mesh is shared by every node that instances it; Users counts them.
type Mesh struct {
	Name    string
	Points  []*geom.Vector3
	Corners []Corner
	Faces   [][]int // corner indices per face

	// FaceMaterials is the material slot of each face.
	FaceMaterials []int

	HasNormals bool
	UVSets     int
	HasColors  bool

	Skin    *Skin
	Targets []*MorphTarget

	Users int
}

// Validate checks that every corner and face index is in range.
func (m *Mesh) Validate() error {
	for i, c := range m.Corners {
		if c.Point < 0 || c.Point >= len(m.Points) {
			return fmt.Errorf("corner %d: point %d out of range (%d points)", i, c.Point, len(m.Points))
		}
	}
	for i, f := range m.Faces {
		for _, c := range f {
			if c < 0 || c >= len(m.Corners) {
				return fmt.Errorf("face %d: corner %d out of range", i, c)
			}
		}
	}
	if len(m.FaceMaterials) != len(m.Faces) {
		return fmt.Errorf("%d face materials for %d faces", len(m.FaceMaterials), len(m.Faces))
	}
	if m.Skin != nil && len(m.Skin.Influences) != len(m.Points) {
		return fmt.Errorf("skin has %d influence lists for %d points", len(m.Skin.Influences), len(m.Points))
	}
	for _, t := range m.Targets {
		if len(t.Deltas) != len(m.Points) {
			return fmt.Errorf("morph target %q has %d deltas for %d points", t.Name, len(t.Deltas), len(m.Points))
		}
	}
	return nil
}

// Triangles returns the number of triangles after triangulation.
func (m *Mesh) Triangles() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}

// Clone returns a deep copy with Users reset.
func (m *Mesh) Clone() *Mesh {
	r := *m
	r.Users = 0
	r.Points = make([]*geom.Vector3, len(m.Points))
	for i, p := range m.Points {
		v := *p
		r.Points[i] = &v
	}
	r.Corners = append([]Corner(nil), m.Corners...)
	r.Faces = make([][]int, len(m.Faces))
	for i, f := range m.Faces {
		r.Faces[i] = append([]int(nil), f...)
	}
	r.FaceMaterials = append([]int(nil), m.FaceMaterials...)
	if m.Skin != nil {
		skin := &Skin{Joints: append([]SkinJoint(nil), m.Skin.Joints...)}
		skin.Influences = make([][]Influence, len(m.Skin.Influences))
		for i, in := range m.Skin.Influences {
			skin.Influences[i] = append([]Influence(nil), in...)
		}
		r.Skin = skin
	}
	r.Targets = nil
	for _, t := range m.Targets {
		c := *t
		c.Deltas = append([]geom.Vector3(nil), t.Deltas...)
		r.Targets = append(r.Targets, &c)
	}
	return &r
}

// Transform applies mat to points, normals and morph deltas in place.
func (m *Mesh) Transform(mat *geom.Matrix4) {
	for i, p := range m.Points {
		m.Points[i] = mat.ApplyTo(p)
	}
	normalMat := mat.Inverse().Transposed()
	for i := range m.Corners {
		c := &m.Corners[i]
		c.Normal = *normalMat.ApplyToDirection(&c.Normal).Normalize()
	}
	for _, t := range m.Targets {
		for i := range t.Deltas {
			t.Deltas[i] = *mat.ApplyToDirection(&t.Deltas[i])
		}
	}
	if mat.Det() < 0 {
		m.ReverseWinding()
	}
}

// ReverseWinding flips the corner order of every face.
func (m *Mesh) ReverseWinding() {
	for _, f := range m.Faces {
		for i, j := 0, len(f)-1; i < j; i, j = i+1, j-1 {
			f[i], f[j] = f[j], f[i]
		}
	}
}
