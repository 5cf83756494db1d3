package scene

import "github.com/binzume/fbx2gltf/geom"

// SignedAxis is an axis index (0 X, 1 Y, 2 Z) with a sign of +1 or -1.
type SignedAxis struct {
	Axis int
	Sign int
}

// AxisSystem names the source axes that map to right (+X), up (+Y) and front (+Z).
type AxisSystem struct {
	Right SignedAxis
	Up    SignedAxis
	Front SignedAxis
}

// YUp is the right-handed, Y up, Z front convention of glTF.
var YUp = AxisSystem{Right: SignedAxis{0, 1}, Up: SignedAxis{1, 1}, Front: SignedAxis{2, 1}}

// Matrix maps source coordinates to the Y up convention.
func (a AxisSystem) Matrix() *geom.Matrix4 {
	m := &geom.Matrix4{}
	m[a.Right.Axis*4+0] = geom.Element(a.Right.Sign)
	m[a.Up.Axis*4+1] = geom.Element(a.Up.Sign)
	m[a.Front.Axis*4+2] = geom.Element(a.Front.Sign)
	m[15] = 1
	return m
}

// ConversionMatrix returns the unit scale times the axis mapping.
func (s *Scene) ConversionMatrix() *geom.Matrix4 {
	scale := geom.Element(s.UnitScale)
	if scale <= 0 {
		scale = 1
	}
	return geom.NewScaleMatrix4(scale, scale, scale).Mul(s.Axes.Matrix())
}
