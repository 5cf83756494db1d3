package fbx

import (
	"github.com/binzume/fbx2gltf/geom"
)

type MappingType string

const (
	AllSame         MappingType = "AllSame"
	ByPolygon       MappingType = "ByPolygon"
	ByVertice       MappingType = "ByVertice"
	ByVertex        MappingType = "ByVertex"
	ByPolygonVertex MappingType = "ByPolygonVertex"
	ByControlPoint  MappingType = "ByControlPoint"
)

type ReferenceType string

const (
	Direct        ReferenceType = "Direct"
	IndexToDirect ReferenceType = "IndexToDirect"
	Index         ReferenceType = "Index"
)

type Geometry struct {
	Obj
}

type LayerElement struct {
	*Node
	Array     *Node
	IndexNode *Node
}

func NewGeometry(name string, verts []*geom.Vector3, faces [][]int) *Geometry {
	var varray []float64
	for _, v := range verts {
		varray = append(varray, float64(v.X), float64(v.Y), float64(v.Z))
	}
	indices := []int32{}
	for _, f := range faces {
		for _, i := range f {
			indices = append(indices, int32(i))
		}
		if len(f) > 0 {
			indices[len(indices)-1] = ^indices[len(indices)-1]
		}
	}

	return &Geometry{
		Obj: *newObj("Geometry", name, "Geometry", "Mesh",
			NewNode("Vertices", varray),
			NewNode("PolygonVertexIndex", indices),
			NewNode("GeometryVersion", 124),
			NewNode("Layer", 0),
		),
	}
}

func (g *Geometry) GetVertices() []*geom.Vector3 {
	return g.FindChild("Vertices").Prop(0).ToVec3Array()
}

// GetPolygons returns control point indices per polygon. A negative index
// (bitwise complement) closes a polygon.
func (g *Geometry) GetPolygons() [][]int {
	var polygons [][]int
	var face []int
	for _, index := range g.FindChild("PolygonVertexIndex").Prop(0).ToInt64Array() {
		if index < 0 {
			face = append(face, int(^index))
			polygons = append(polygons, face)
			face = nil
			continue
		}
		face = append(face, int(index))
	}
	if len(face) > 0 {
		polygons = append(polygons, face)
	}
	return polygons
}

func (g *Geometry) GetSkins() []*Skin {
	var r []*Skin
	for _, ref := range g.Refs {
		if s, ok := ref.Object.(*Skin); ok {
			r = append(r, s)
		}
	}
	return r
}

func (g *Geometry) GetBlendShapes() []*BlendShape {
	var r []*BlendShape
	for _, ref := range g.Refs {
		if s, ok := ref.Object.(*BlendShape); ok {
			r = append(r, s)
		}
	}
	return r
}

func (g *Geometry) setLayerElementNode(name string, index int, values []*Node) {
	node := NewNode(name, index)
	node.Children = append([]*Node{NewNode("Version", 101), NewNode("Name", "")}, values...)
	for i, c := range g.Children {
		if c.Name == name && c.PropInt(0) == index {
			g.Children[i] = node
			return
		}
	}
	g.Children = append(g.Children, node)
	layer := g.FindChild("Layer")
	if layer == nil {
		layer = g.AddChild(NewNode("Layer", 0))
	}
	layer.AddChild(&Node{Name: "LayerElement", Children: []*Node{
		NewNode("Type", name),
		NewNode("TypedIndex", index),
	}})
}

func (g *Geometry) SetLayerElementMaterial(mat []int32, mappingType MappingType) {
	g.setLayerElementNode("LayerElementMaterial", 0, []*Node{
		NewNode("MappingInformationType", string(mappingType)),
		NewNode("ReferenceInformationType", string(IndexToDirect)),
		NewNode("Materials", mat),
	})
}

func (g *Geometry) SetLayerElementUV(index int, uv []*geom.Vector2, indices []int32, mappingType MappingType) {
	var floatArray []float64
	for _, v := range uv {
		floatArray = append(floatArray, float64(v.X), float64(v.Y))
	}
	values := []*Node{
		NewNode("MappingInformationType", string(mappingType)),
		NewNode("ReferenceInformationType", string(Direct)),
		NewNode("UV", floatArray),
	}
	if indices != nil {
		values[1] = NewNode("ReferenceInformationType", string(IndexToDirect))
		values = append(values, NewNode("UVIndex", indices))
	}
	g.setLayerElementNode("LayerElementUV", index, values)
}

func (g *Geometry) SetLayerElementNormal(normals []*geom.Vector3, mappingType MappingType) {
	var floatArray []float64
	for _, v := range normals {
		floatArray = append(floatArray, float64(v.X), float64(v.Y), float64(v.Z))
	}
	g.setLayerElementNode("LayerElementNormal", 0, []*Node{
		NewNode("MappingInformationType", string(mappingType)),
		NewNode("ReferenceInformationType", string(Direct)),
		NewNode("Normals", floatArray),
	})
}

func (g *Geometry) SetLayerElementColor(colors []*geom.Vector4, mappingType MappingType) {
	var floatArray []float64
	for _, c := range colors {
		floatArray = append(floatArray, float64(c.X), float64(c.Y), float64(c.Z), float64(c.W))
	}
	g.setLayerElementNode("LayerElementColor", 0, []*Node{
		NewNode("MappingInformationType", string(mappingType)),
		NewNode("ReferenceInformationType", string(Direct)),
		NewNode("Colors", floatArray),
	})
}

func (g *Geometry) getLayerElement(name string, index int, arrayName string, indexName string) *LayerElement {
	nodes := g.FindChildren(name)
	if index >= len(nodes) {
		return nil
	}
	node := nodes[index]
	return &LayerElement{node, node.FindChild(arrayName), node.FindChild(indexName)}
}

// NumUVSets returns the number of LayerElementUV blocks.
func (g *Geometry) NumUVSets() int {
	return len(g.FindChildren("LayerElementUV"))
}

func (g *Geometry) GetLayerElementUV(index int) *LayerElement {
	return g.getLayerElement("LayerElementUV", index, "UV", "UVIndex")
}

func (g *Geometry) GetLayerElementNormal() *LayerElement {
	return g.getLayerElement("LayerElementNormal", 0, "Normals", "NormalsIndex")
}

func (g *Geometry) GetLayerElementColor() *LayerElement {
	return g.getLayerElement("LayerElementColor", 0, "Colors", "ColorIndex")
}

// GetLayerElementMaterial returns the material element. Its array holds material
// slot numbers, so the index node is the array itself.
func (g *Geometry) GetLayerElementMaterial() *LayerElement {
	return g.getLayerElement("LayerElementMaterial", 0, "Materials", "")
}

func (e *LayerElement) Valid() bool {
	return e != nil && e.Node != nil && e.Array != nil
}

func (e *LayerElement) GetMappingInformationType() MappingType {
	return MappingType(e.FindChild("MappingInformationType").PropString(0))
}

func (e *LayerElement) GetReferenceInformationType() ReferenceType {
	return ReferenceType(e.FindChild("ReferenceInformationType").PropString(0))
}

// GetArray returns the direct array, nil when the element is missing.
func (e *LayerElement) GetArray() *Property {
	if !e.Valid() {
		return nil
	}
	return e.Array.Prop(0)
}

func (e *LayerElement) GetIndexes() []int32 {
	return e.IndexNode.Prop(0).ToInt32Array()
}

// Lookup returns the position in the element's direct array for a polygon corner,
// or -1 when the element does not define a value for it.
type Lookup func(polygon, corner, controlPoint int) int

func (e *LayerElement) Lookup(size int) Lookup {
	if !e.Valid() {
		return func(int, int, int) int { return -1 }
	}
	mapping := e.GetMappingInformationType()
	var indexes []int32
	if ref := e.GetReferenceInformationType(); ref == IndexToDirect || ref == Index {
		indexes = e.GetIndexes()
	}
	return func(polygon, corner, controlPoint int) int {
		var i int
		switch mapping {
		case ByPolygonVertex:
			i = corner
		case ByControlPoint, ByVertice, ByVertex:
			i = controlPoint
		case ByPolygon:
			i = polygon
		case AllSame:
			i = 0
		default:
			return -1
		}
		if indexes != nil {
			if i >= len(indexes) {
				return -1
			}
			i = int(indexes[i])
		}
		if i < 0 || i >= size {
			return -1
		}
		return i
	}
}

// Shape is a blend shape target: sparse control point deltas.
type Shape struct {
	Obj
}

func NewShape(name string, indexes []int32, deltas []*geom.Vector3) *Shape {
	var varray []float64
	for _, v := range deltas {
		varray = append(varray, float64(v.X), float64(v.Y), float64(v.Z))
	}
	return &Shape{
		Obj: *newObj("Geometry", name, "Geometry", "Shape",
			NewNode("Version", 100),
			NewNode("Indexes", indexes),
			NewNode("Vertices", varray),
		),
	}
}

func (s *Shape) GetIndexes() []int32 {
	return s.FindChild("Indexes").Prop(0).ToInt32Array()
}

func (s *Shape) GetVertices() []*geom.Vector3 {
	return s.FindChild("Vertices").Prop(0).ToVec3Array()
}

func (s *Shape) GetNormals() []*geom.Vector3 {
	return s.FindChild("Normals").Prop(0).ToVec3Array()
}
