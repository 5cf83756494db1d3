package fbx

import (
	"github.com/binzume/fbx2gltf/geom"
)

type Skin struct {
	Obj
}

func NewSkin(name string) *Skin {
	return &Skin{Obj: *newObj("Deformer", name, "Deformer", "Skin", NewNode("Version", 101))}
}

func (s *Skin) GetClusters() []*Cluster {
	var r []*Cluster
	for _, ref := range s.Refs {
		if c, ok := ref.Object.(*Cluster); ok {
			r = append(r, c)
		}
	}
	return r
}

// Cluster binds control points to one joint.
type Cluster struct {
	Obj
}

func NewCluster(name string, indexes []int32, weights []float64, transform, transformLink *geom.Matrix4) *Cluster {
	return &Cluster{Obj: *newObj("Deformer", name, "SubDeformer", "Cluster",
		NewNode("Version", 100),
		NewNode("Indexes", indexes),
		NewNode("Weights", weights),
		NewNode("Transform", matrixArray(transform)),
		NewNode("TransformLink", matrixArray(transformLink)),
	)}
}

func matrixArray(m *geom.Matrix4) []float64 {
	a := make([]float64, 16)
	for i, v := range m {
		a[i] = float64(v)
	}
	return a
}

func (d *Cluster) GetWeights() []float64 {
	return d.FindChild("Weights").Prop(0).ToFloat64Array()
}

func (d *Cluster) GetIndexes() []int32 {
	return d.FindChild("Indexes").Prop(0).ToInt32Array()
}

func (d *Cluster) getMatrix(name string) *geom.Matrix4 {
	m := d.FindChild(name).Prop(0).ToFloat64Array()
	if len(m) != 16 {
		return geom.NewMatrix4()
	}
	return geom.NewMatrix4FromFloat64(m)
}

// GetTransform returns the mesh world matrix at bind time.
func (d *Cluster) GetTransform() *geom.Matrix4 {
	return d.getMatrix("Transform")
}

// GetTransformLink returns the joint world matrix at bind time.
func (d *Cluster) GetTransformLink() *geom.Matrix4 {
	return d.getMatrix("TransformLink")
}

// GetLink returns the joint model.
func (d *Cluster) GetLink() *Model {
	for _, ref := range d.Refs {
		if m, ok := ref.Object.(*Model); ok {
			return m
		}
	}
	return nil
}

type BlendShape struct {
	Obj
}

func NewBlendShape(name string) *BlendShape {
	return &BlendShape{Obj: *newObj("Deformer", name, "Deformer", "BlendShape", NewNode("Version", 100))}
}

func (b *BlendShape) GetChannels() []*BlendShapeChannel {
	var r []*BlendShapeChannel
	for _, ref := range b.Refs {
		if c, ok := ref.Object.(*BlendShapeChannel); ok {
			r = append(r, c)
		}
	}
	return r
}

type BlendShapeChannel struct {
	Obj
}

func NewBlendShapeChannel(name string, deformPercent float64) *BlendShapeChannel {
	c := &BlendShapeChannel{Obj: *newObj("Deformer", name, "SubDeformer", "BlendShapeChannel",
		NewNode("Version", 100),
		NewNode("DeformPercent", deformPercent),
		NewNode("FullWeights", []float64{100}),
	)}
	c.SetProperty70("DeformPercent", &Property70{Type: "Number", Flag: "A", PropertyList: PropertyList{NewProperty(deformPercent)}})
	return c
}

// GetDeformPercent returns the static weight in percent.
func (c *BlendShapeChannel) GetDeformPercent() float64 {
	if p := c.GetProperty70("DeformPercent"); p.Valid() {
		return p.ToFloat64(0)
	}
	return c.FindChild("DeformPercent").Prop(0).ToFloat64(0)
}

// GetShapes returns the target shapes. Only the first one is used for
// channels without in-between shapes.
func (c *BlendShapeChannel) GetShapes() []*Shape {
	var r []*Shape
	for _, ref := range c.Refs {
		if s, ok := ref.Object.(*Shape); ok {
			r = append(r, s)
		}
	}
	return r
}
