package fbx

import (
	"github.com/binzume/fbx2gltf/geom"
)

// Rotation orders of the RotationOrder property.
const (
	EulerXYZ = iota
	EulerXZY
	EulerYZX
	EulerYXZ
	EulerZXY
	EulerZYX
	EulerSphericXYZ
)

type Model struct {
	Obj
}

func NewModel(name, kind string) *Model {
	model := &Model{
		Obj: *newObj("Model", name, "Model", kind, NewNode("Version", 232)),
	}
	model.SetStringProperty("Culling", "CullingOff")
	return model
}

func (m *Model) vector(name string, def float32) *geom.Vector3 {
	return m.GetProperty70(name).ToVector3(def, def, def)
}

func (m *Model) GetTranslation() *geom.Vector3 {
	return m.vector("Lcl Translation", 0)
}

func (m *Model) SetTranslation(v *geom.Vector3) {
	m.SetVector3Property("Lcl Translation", "Lcl Translation", v)
}

// GetRotation returns Euler angles in degrees, see GetRotationOrder.
func (m *Model) GetRotation() *geom.Vector3 {
	return m.vector("Lcl Rotation", 0)
}

func (m *Model) SetRotation(v *geom.Vector3) {
	m.SetVector3Property("Lcl Rotation", "Lcl Rotation", v)
}

func (m *Model) GetScaling() *geom.Vector3 {
	return m.vector("Lcl Scaling", 1)
}

func (m *Model) SetScaling(v *geom.Vector3) {
	m.SetVector3Property("Lcl Scaling", "Lcl Scaling", v)
}

func (m *Model) GetPreRotation() *geom.Vector3 {
	return m.vector("PreRotation", 0)
}

func (m *Model) SetPreRotation(v *geom.Vector3) {
	m.SetVector3Property("PreRotation", "Vector3D", v)
}

func (m *Model) GetPostRotation() *geom.Vector3 {
	return m.vector("PostRotation", 0)
}

func (m *Model) GetRotationOffset() *geom.Vector3 {
	return m.vector("RotationOffset", 0)
}

func (m *Model) GetRotationPivot() *geom.Vector3 {
	return m.vector("RotationPivot", 0)
}

func (m *Model) SetRotationPivot(v *geom.Vector3) {
	m.SetVector3Property("RotationPivot", "Vector3D", v)
}

func (m *Model) GetScalingOffset() *geom.Vector3 {
	return m.vector("ScalingOffset", 0)
}

func (m *Model) GetScalingPivot() *geom.Vector3 {
	return m.vector("ScalingPivot", 0)
}

// GetRotationOrder returns one of the Euler* constants.
func (m *Model) GetRotationOrder() int {
	order := m.GetProperty70("RotationOrder").ToInt(EulerXYZ)
	if order < EulerXYZ || order > EulerSphericXYZ {
		return EulerXYZ
	}
	return order
}

func (m *Model) SetRotationOrder(order int) {
	m.SetEnumProperty("RotationOrder", order)
}

// RotationActive reports whether pre/post rotations and the rotation order apply.
// Files written without the flag still carry meaningful PreRotation values, so a
// missing property counts as active.
func (m *Model) RotationActive() bool {
	return m.GetProperty70("RotationActive").ToInt(1) != 0
}

func (m *Model) GetGeometricTranslation() *geom.Vector3 {
	return m.vector("GeometricTranslation", 0)
}

func (m *Model) GetGeometricRotation() *geom.Vector3 {
	return m.vector("GeometricRotation", 0)
}

func (m *Model) GetGeometricScaling() *geom.Vector3 {
	return m.vector("GeometricScaling", 1)
}

func (m *Model) SetGeometricTranslation(v *geom.Vector3) {
	m.SetVector3Property("GeometricTranslation", "Vector3D", v)
}

// IsJoint reports whether the model is a skeleton node.
func (m *Model) IsJoint() bool {
	k := m.Kind()
	return k == "LimbNode" || k == "Root" || k == "Limb"
}

// GetParent returns the first model this model is connected to. Top level
// models return the scene root (ID 0).
func (m *Model) GetParent() *Model {
	for _, r := range m.Owners {
		if p, ok := r.Object.(*Model); ok && r.Prop == "" {
			return p
		}
	}
	return nil
}

func (m *Model) GetChildModels() []*Model {
	var r []*Model
	for _, ref := range m.Refs {
		if c, ok := ref.Object.(*Model); ok && ref.Prop == "" {
			r = append(r, c)
		}
	}
	return r
}

func (m *Model) GetGeometry() *Geometry {
	for _, ref := range m.Refs {
		if g, ok := ref.Object.(*Geometry); ok {
			return g
		}
	}
	return nil
}

// GetMaterials returns the materials in connection order, which is the order
// the geometry's material indices refer to.
func (m *Model) GetMaterials() []*Material {
	var r []*Material
	for _, ref := range m.Refs {
		if mat, ok := ref.Object.(*Material); ok {
			r = append(r, mat)
		}
	}
	return r
}
