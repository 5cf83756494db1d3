package scene

import (
	"testing"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func euler(tx, ty, tz float32) Transform {
	return EulerTransform(geom.NewVector3(tx, ty, tz), &geom.Vector3{}, geom.NewVector3(1, 1, 1), geom.RotationOrderXYZ)
}

func TestWalkPreOrder(t *testing.T) {
	s := New()
	a := s.AddNode(RootID, NewNode("a", euler(1, 0, 0)))
	b := s.AddNode(RootID, NewNode("b", euler(0, 1, 0)))
	s.AddNode(a, NewNode("a1", euler(0, 0, 1)))
	s.AddNode(b, NewNode("b1", euler(0, 0, 1)))
	s.AddNode(a, NewNode("a2", euler(0, 0, 1)))

	var names []string
	require.NoError(t, s.Walk(RootID, func(id NodeID, n *Node) error {
		names = append(names, n.Name)
		return nil
	}))
	assert.Equal(t, []string{"RootNode", "a", "a1", "a2", "b", "b1"}, names)
	assert.NoError(t, s.Validate())

	w := s.WorldMatrix(4) // b1
	assert.Equal(t, &geom.Vector3{X: 0, Y: 1, Z: 1}, w.ApplyTo(&geom.Vector3{}))
}

func TestValidate(t *testing.T) {
	s := New()
	a := s.AddNode(RootID, NewNode("a", euler(0, 0, 0)))
	b := s.AddNode(a, NewNode("b", euler(0, 0, 0)))
	require.NoError(t, s.Validate())

	// cycle: b lists a as its child
	s.Nodes[b].Children = append(s.Nodes[b].Children, a)
	assert.Error(t, s.Validate())
	s.Nodes[b].Children = nil

	s.Nodes[b].Mesh = 3
	assert.Error(t, s.Validate())
	s.Nodes[b].Mesh = NoMesh

	mesh := &Mesh{Points: []*geom.Vector3{{}}, Corners: []Corner{{Point: 1}}, Faces: [][]int{{0}}, FaceMaterials: []int{0}}
	s.SetMesh(b, s.AddMesh(mesh), nil)
	assert.Equal(t, 1, mesh.Users)
	assert.Error(t, s.Validate())
	mesh.Corners[0].Point = 0
	assert.NoError(t, s.Validate())

	s.Nodes = append(s.Nodes, NewNode("orphan", euler(0, 0, 0)))
	assert.Error(t, s.Validate())
}

func TestTransformKinds(t *testing.T) {
	const eps = 0.0001
	tr := EulerTransform(geom.NewVector3(1, 2, 3), geom.NewVector3(30, 45, 60), geom.NewVector3(2, 1, 0.5), geom.RotationOrderZYX)

	pivot := tr
	pivot.Kind = TransformPivot
	pivot.PrePostOrder = geom.RotationOrderZYX
	assert.True(t, tr.Evaluate().NearlyEqual(pivot.Evaluate(), eps))

	m := MatrixTransform(tr.Evaluate())
	assert.True(t, tr.Evaluate().NearlyEqual(m.Evaluate(), eps))

	// a rotation pivot keeps the pivot point fixed
	pivot = EulerTransform(&geom.Vector3{}, geom.NewVector3(0, 0, 90), geom.NewVector3(1, 1, 1), geom.RotationOrderZYX)
	pivot.Kind = TransformPivot
	pivot.RotationPivot = *geom.NewVector3(1, 0, 0)
	p := pivot.Evaluate().ApplyTo(geom.NewVector3(1, 0, 0))
	assert.InDelta(t, 0, p.Sub(geom.NewVector3(1, 0, 0)).Len(), eps)
	q := pivot.Evaluate().ApplyTo(geom.NewVector3(2, 0, 0))
	assert.InDelta(t, 0, q.Sub(geom.NewVector3(1, 1, 0)).Len(), eps)

	// pre-rotation applies before the animated rotation
	pre := EulerTransform(&geom.Vector3{}, &geom.Vector3{}, geom.NewVector3(1, 1, 1), geom.RotationOrderZYX)
	pre.Kind = TransformPivot
	pre.PreRotation = *geom.NewVector3(0, 0, 90)
	v := pre.Evaluate().ApplyTo(geom.NewVector3(1, 0, 0))
	assert.InDelta(t, 0, v.Sub(geom.NewVector3(0, 1, 0)).Len(), eps)

	with := tr.With(nil, &geom.Vector3{}, nil)
	assert.Equal(t, tr.Translation, with.Translation)
	assert.Equal(t, geom.Vector3{}, with.Rotation)
	assert.Equal(t, geom.Vector3{X: 30, Y: 45, Z: 60}, tr.Rotation)
}

func TestCurveEvaluate(t *testing.T) {
	linear := &Curve{Keys: []Key{
		{Time: 0, Value: 0, Interpolation: InterpolationLinear},
		{Time: 1, Value: 10, Interpolation: InterpolationConstant},
		{Time: 2, Value: 20, Interpolation: InterpolationLinear},
	}}
	assert.Equal(t, 0.0, linear.Evaluate(-1))
	assert.Equal(t, 5.0, linear.Evaluate(0.5))
	assert.Equal(t, 10.0, linear.Evaluate(1.5))
	assert.Equal(t, 20.0, linear.Evaluate(3))

	cubic := &Curve{Keys: []Key{
		{Time: 0, Value: 0, Interpolation: InterpolationCubic, RightSlope: 0, NextLeftSlope: 0, HasSlopes: true},
		{Time: 2, Value: 1, Interpolation: InterpolationCubic},
	}}
	assert.InDelta(t, 0.5, cubic.Evaluate(1), 1e-9)
	assert.InDelta(t, 0.15625, cubic.Evaluate(0.5), 1e-9) // smoothstep(0.25)

	// without stored slopes a straight line stays straight
	auto := &Curve{Keys: []Key{
		{Time: 0, Value: 0, Interpolation: InterpolationCubic},
		{Time: 1, Value: 1, Interpolation: InterpolationCubic},
		{Time: 2, Value: 2, Interpolation: InterpolationCubic},
	}}
	assert.InDelta(t, 1.5, auto.Evaluate(1.5), 1e-9)

	assert.Equal(t, 0.0, (&Curve{}).Evaluate(1))
}

func TestTakeKeyRange(t *testing.T) {
	take := &Take{Tracks: []*Track{
		{Curves: [3]*Curve{{Keys: []Key{{Time: 0.5}, {Time: 2}}}}},
		{Curves: [3]*Curve{nil, {Keys: []Key{{Time: 0.25}}}}},
		{},
	}}
	start, stop, ok := take.KeyRange()
	assert.True(t, ok)
	assert.Equal(t, 0.25, start)
	assert.Equal(t, 2.0, stop)

	_, _, ok = (&Take{}).KeyRange()
	assert.False(t, ok)
}

func TestAxisConversion(t *testing.T) {
	assert.True(t, YUp.Matrix().IsIdentity())

	zUp := AxisSystem{Right: SignedAxis{0, 1}, Up: SignedAxis{2, 1}, Front: SignedAxis{1, -1}}
	m := zUp.Matrix()
	assert.Equal(t, &geom.Vector3{X: 0, Y: 1, Z: 0}, m.ApplyTo(geom.NewVector3(0, 0, 1)))
	assert.Equal(t, &geom.Vector3{X: 0, Y: 0, Z: 1}, m.ApplyTo(geom.NewVector3(0, -1, 0)))
	assert.Equal(t, float32(1), m.Det())

	s := New()
	s.Axes = zUp
	s.UnitScale = 0.01
	c := s.ConversionMatrix()
	p := c.ApplyTo(geom.NewVector3(100, 0, 200))
	assert.InDelta(t, 0, p.Sub(geom.NewVector3(1, 2, 0)).Len(), 1e-5)

	mirrored := AxisSystem{Right: SignedAxis{0, -1}, Up: SignedAxis{1, 1}, Front: SignedAxis{2, 1}}
	assert.Equal(t, float32(-1), mirrored.Matrix().Det())
}

func TestMeshTransformMirrored(t *testing.T) {
	m := &Mesh{
		Points:        []*geom.Vector3{{X: 0}, {X: 1}, {Y: 1}},
		Corners:       []Corner{{Point: 0, Normal: geom.Vector3{Z: 1}}, {Point: 1, Normal: geom.Vector3{Z: 1}}, {Point: 2, Normal: geom.Vector3{Z: 1}}},
		Faces:         [][]int{{0, 1, 2}},
		FaceMaterials: []int{0},
		Targets:       []*MorphTarget{{Deltas: []geom.Vector3{{X: 1}, {}, {}}}},
	}
	c := m.Clone()
	m.Transform(geom.NewScaleMatrix4(-2, 2, 2))
	assert.Equal(t, []int{2, 1, 0}, m.Faces[0])
	assert.Equal(t, &geom.Vector3{X: -2}, m.Points[1])
	assert.Equal(t, geom.Vector3{Z: 1}, m.Corners[0].Normal)
	assert.Equal(t, geom.Vector3{X: -2}, m.Targets[0].Deltas[0])

	// the clone is independent
	assert.Equal(t, []int{0, 1, 2}, c.Faces[0])
	assert.Equal(t, &geom.Vector3{X: 1}, c.Points[1])
	assert.Equal(t, 1, c.Triangles())
}
