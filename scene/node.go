package scene

import (
	"github.com/binzume/fbx2gltf/geom"
)

type Node struct {
	Name     string
	Parent   NodeID
	Children []NodeID

	Transform Transform
	// Local is the canonical local matrix resolved from Transform.
	Local *geom.Matrix4

	Mesh      MeshID
	Materials []MaterialID // material per mesh slot
	IsJoint   bool
}

func NewNode(name string, t Transform) *Node {
	return &Node{Name: name, Parent: NoNode, Mesh: NoMesh, Transform: t, Local: t.Evaluate()}
}

type TransformKind int

const (
	// TransformEuler is T * R * S.
	TransformEuler TransformKind = iota
	// TransformPivot is the full chain with offsets, pivots and pre/post rotations:
	// T * Roff * Rp * Rpre * R * Rpost^-1 * Rp^-1 * Soff * Sp * S * Sp^-1
	TransformPivot
	// TransformMatrix is an explicit matrix.
	TransformMatrix
)

// Transform is the local transform of a node as the source file describes it.
// Rotations are Euler angles in degrees.
type Transform struct {
	Kind TransformKind

	Translation geom.Vector3
	Rotation    geom.Vector3
	Scaling     geom.Vector3
	Order       geom.RotationOrder

	PreRotation    geom.Vector3
	PostRotation   geom.Vector3
	RotationOffset geom.Vector3
	RotationPivot  geom.Vector3
	ScalingOffset  geom.Vector3
	ScalingPivot   geom.Vector3
	// PrePostOrder is the rotation order of PreRotation and PostRotation.
	PrePostOrder geom.RotationOrder

	Matrix geom.Matrix4
}

func EulerTransform(t, r, s *geom.Vector3, order geom.RotationOrder) Transform {
	return Transform{Kind: TransformEuler, Translation: *t, Rotation: *r, Scaling: *s, Order: order}
}

func MatrixTransform(m *geom.Matrix4) Transform {
	return Transform{Kind: TransformMatrix, Matrix: *m, Scaling: geom.Vector3{X: 1, Y: 1, Z: 1}}
}

func translation(v *geom.Vector3) *geom.Matrix4 {
	return geom.NewTranslateMatrix4(v.X, v.Y, v.Z)
}

func rotation(v *geom.Vector3, order geom.RotationOrder) *geom.Matrix4 {
	return geom.NewEulerDegrees(v, order).ToMatrix4()
}

// Evaluate returns the local matrix.
func (t *Transform) Evaluate() *geom.Matrix4 {
	switch t.Kind {
	case TransformMatrix:
		m := t.Matrix
		return &m
	case TransformPivot:
		rp := translation(&t.RotationPivot)
		sp := translation(&t.ScalingPivot)
		m := translation(&t.Translation).
			Mul(translation(&t.RotationOffset)).
			Mul(rp).
			Mul(rotation(&t.PreRotation, t.PrePostOrder)).
			Mul(rotation(&t.Rotation, t.Order)).
			Mul(rotation(&t.PostRotation, t.PrePostOrder).Inverse()).
			Mul(rp.Inverse()).
			Mul(translation(&t.ScalingOffset)).
			Mul(sp).
			Mul(geom.NewScaleMatrix4(t.Scaling.X, t.Scaling.Y, t.Scaling.Z)).
			Mul(sp.Inverse())
		return m
	default:
		return geom.NewTRSMatrix4(&t.Translation, geom.NewEulerDegrees(&t.Rotation, t.Order).ToQuaternion(), &t.Scaling)
	}
}

// With returns a copy of t with the given components replaced. nil keeps the
// current value. Explicit matrices are not affected.
func (t *Transform) With(tr, rot, scale *geom.Vector3) *Transform {
	r := *t
	if tr != nil {
		r.Translation = *tr
	}
	if rot != nil {
		r.Rotation = *rot
	}
	if scale != nil {
		r.Scaling = *scale
	}
	return &r
}
