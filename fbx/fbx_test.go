package fbx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestDocument() (*Document, *Model, *Geometry, *Material) {
	doc := NewDocument()

	model := NewModel("Cube", "Mesh")
	model.SetTranslation(&geom.Vector3{X: 1, Y: 0, Z: 0})
	model.SetScaling(&geom.Vector3{X: 1, Y: 2, Z: 1})
	doc.AddObject(model)

	var verts []*geom.Vector3
	for i := 0; i < 40; i++ {
		verts = append(verts, &geom.Vector3{X: float32(i), Y: float32(i % 2), Z: 0.5})
	}
	g := NewGeometry("Cube", verts, [][]int{{0, 1, 2, 3}, {4, 5, 6}})
	g.SetLayerElementMaterial([]int32{0}, AllSame)
	g.SetLayerElementUV(0, []*geom.Vector2{{X: 0, Y: 0}, {X: 1, Y: 0.25}}, []int32{0, 1, 1, 0, 0, 1, 1}, ByPolygonVertex)
	doc.AddObject(g)

	mat := NewMaterial("Red")
	mat.SetColor("DiffuseColor", &geom.Vector3{X: 1, Y: 0, Z: 0.5})
	doc.AddObject(mat)

	tex := NewTexture("Albedo", "C:/textures/albedo.png")
	doc.AddObject(tex)

	doc.AddConnection(doc.Scene, model)
	doc.AddConnection(model, g)
	doc.AddConnection(model, mat)
	doc.AddPropertyConnection(mat, "DiffuseColor", tex)
	return doc, model, g, mat
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, version := range []uint32{7400, 7500, 7700} {
		doc, _, _, _ := buildTestDocument()
		var buf bytes.Buffer
		require.NoError(t, WriteBinary(&buf, doc.Build(), version))

		parsed, err := Parse(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err, version)
		assert.Equal(t, version, parsed.Version)
		require.Len(t, parsed.Objects, 4)

		model, ok := parsed.Objects[0].(*Model)
		require.True(t, ok)
		assert.Equal(t, "Cube", model.Name())
		assert.Equal(t, "Mesh", model.Kind())
		assert.Equal(t, &geom.Vector3{X: 1, Y: 0, Z: 0}, model.GetTranslation())
		assert.Equal(t, &geom.Vector3{X: 1, Y: 2, Z: 1}, model.GetScaling())
		assert.Same(t, parsed.Scene, model.GetParent())

		g := model.GetGeometry()
		require.NotNil(t, g)
		assert.Len(t, g.GetVertices(), 40)
		assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6}}, g.GetPolygons())
		assert.Equal(t, 1, g.NumUVSets())

		mats := model.GetMaterials()
		require.Len(t, mats, 1)
		assert.Equal(t, "Red", mats[0].Name())
		assert.Equal(t, &geom.Vector3{X: 1, Y: 0, Z: 0.5}, mats[0].GetColor("DiffuseColor", nil))
		tex := mats[0].GetTexture("DiffuseColor")
		require.NotNil(t, tex)
		assert.Equal(t, "C:/textures/albedo.png", tex.GetFileName())
		assert.Nil(t, mats[0].GetTexture("NormalMap"))
	}
}

func TestRecordLayout(t *testing.T) {
	assert.Equal(t, 12, layoutForVersion(7400).headerLen())
	assert.Equal(t, 24, layoutForVersion(7500).headerLen())

	// a node without children or properties ends with a null record
	for version, size := range map[uint32]int{7400: 13, 7500: 25} {
		root := &Node{Children: []*Node{NewNode("A", int32(1))}}
		var buf bytes.Buffer
		require.NoError(t, WriteBinary(&buf, root, version))
		recordLen := size - 1 + 1 + 1 + 5 // header, name length, "A", 'I' + int32
		nullStart := 27 + recordLen
		assert.Equal(t, make([]byte, size), buf.Bytes()[nullStart:nullStart+size], version)
	}
}

func TestCompressedArrays(t *testing.T) {
	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i%4) * 0.5
	}
	root := &Node{Children: []*Node{NewNode("Data", values, []int32{1, -2, 3})}}
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, root, 7500))
	assert.Less(t, buf.Len(), 8000)

	parsed, version, err := ParseNodes(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(7500), version)
	data := parsed.FindChild("Data")
	require.NotNil(t, data)
	assert.Equal(t, values, data.Prop(0).ToFloat64Array())
	assert.Equal(t, uint(1000), data.Prop(0).Count)
	assert.Equal(t, []int32{1, -2, 3}, data.Prop(1).ToInt32Array())
}

const testText = `; FBX 7.4.0 project file
FBXHeaderExtension:  {
	FBXHeaderVersion: 1003
	FBXVersion: 7400
	Creator: "test"
}
GlobalSettings:  {
	Version: 1000
	Properties70:  {
		P: "UpAxis", "int", "Integer", "",2
		P: "FrontAxis", "int", "Integer", "",1
		P: "FrontAxisSign", "int", "Integer", "",-1
		P: "UnitScaleFactor", "double", "Number", "",2.54
	}
}
Objects:  {
	Model: 100, "Model::Cube", "Mesh" {
		Version: 232
		Properties70:  {
			P: "Lcl Translation", "Lcl Translation", "", "A",1,2.5,-3e-1
		}
		Shading: Y
	}
	Geometry: 200, "Geometry::Cube", "Mesh" {
		Vertices: *12 {
			a: 0,0,0,1,0,0,
			1,1,0,0,1,0
		}
		PolygonVertexIndex: *4 {
			a: 0,1,2,-4
		}
	}
	AnimationCurve: 300, "AnimCurve::", "" {
		KeyTime: *2 {
			a: 0,46186158000
		}
		KeyValueFloat: *2 {
			a: 0,1.5
		}
	}
}
Connections:  {
	;Model::Cube, Model::RootNode
	C: "OO",100,0
	C: "OO",200,100
}
`

func TestTextParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(testText))
	require.NoError(t, err)
	assert.Equal(t, uint32(7400), doc.Version)
	assert.Equal(t, "test", doc.Creator)
	assert.Equal(t, 2.54, doc.GlobalSettings.UnitScaleFactor())
	assert.Equal(t, AxisSystem{UpAxis: 2, UpSign: 1, FrontAxis: 1, FrontSign: -1, CoordAxis: 0, CoordSign: 1}, doc.GlobalSettings.AxisSystem())

	require.Len(t, doc.Objects, 3)
	model := doc.Objects[0].(*Model)
	assert.Equal(t, "Cube", model.Name())
	tr := model.GetTranslation()
	assert.InDelta(t, 1, tr.X, 1e-6)
	assert.InDelta(t, 2.5, tr.Y, 1e-6)
	assert.InDelta(t, -0.3, tr.Z, 1e-6)
	shading := model.FindChild("Shading").Prop(0)
	assert.Equal(t, byte('C'), shading.Type)
	assert.Equal(t, byte('Y'), shading.Value)

	g := model.GetGeometry()
	require.NotNil(t, g)
	assert.Len(t, g.GetVertices(), 4)
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, g.GetPolygons())

	curve := doc.Objects[2].(*AnimationCurve)
	keys := curve.GetKeys()
	require.Len(t, keys, 2)
	assert.Equal(t, int64(TimeUnit), keys[1].Time)
	assert.Equal(t, 1.5, keys[1].Value)
	assert.Equal(t, int32(InterpolationCubic), keys[1].Interpolation())
	assert.False(t, keys[1].HasSlopes)
}

func TestTextRoundTrip(t *testing.T) {
	doc, _, _, _ := buildTestDocument()
	video := NewVideo("Albedo", "albedo.png", []byte{0x89, 'P', 'N', 'G', 0, 1, 2})
	doc.AddObject(video)
	doc.AddConnection(doc.Objects[3], video)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, doc.Build(), 7400))

	parsed, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, parsed.Objects, 5)
	model := parsed.Objects[0].(*Model)
	assert.Equal(t, "Cube", model.Name())
	assert.Equal(t, &geom.Vector3{X: 1, Y: 2, Z: 1}, model.GetScaling())
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6}}, model.GetGeometry().GetPolygons())

	tex := model.GetMaterials()[0].GetTexture("DiffuseColor")
	require.NotNil(t, tex)
	require.NotNil(t, tex.GetVideo())
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0, 1, 2}, tex.GetVideo().GetContent())
}

func TestVersionRejection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, &Node{Children: []*Node{NewNode("A", 1)}}, 6100))
	_, err := Parse(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, int64(23), perr.Offset)

	text := strings.Replace(testText, "FBXVersion: 7400", "FBXVersion: 6100", 1)
	_, err = Parse(strings.NewReader(text))
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestTruncated(t *testing.T) {
	doc, _, _, _ := buildTestDocument()
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, doc.Build(), 7400))
	data := buf.Bytes()

	for _, n := range []int{30, len(data) / 3, len(data) / 2, len(data) * 3 / 4} {
		_, err := Parse(bytes.NewReader(data[:n]))
		require.Error(t, err, n)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), n)
		assert.True(t, errors.Is(err, ErrTruncated) || errors.Is(err, ErrBadRecord), "%d: %v", n, err)
		assert.Greater(t, perr.Offset, int64(26))
	}

	_, err := Parse(strings.NewReader(strings.TrimSuffix(testText, "}\n")))
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Greater(t, perr.Line, 40)

	// a double array declaring 2^26 elements followed by 16 bytes of payload
	const count = 1 << 26
	huge := []byte(binaryMagic + "\x1a\x00")
	huge = binary.LittleEndian.AppendUint32(huge, 7400)
	propLen := uint64(13 + count*8)
	huge = recordLayout32{}.appendHeader(huge, uint64(len(huge))+12+2+propLen, 1, propLen)
	huge = append(huge, 1, 'X', 'd')
	huge = binary.LittleEndian.AppendUint32(huge, count)
	huge = binary.LittleEndian.AppendUint32(huge, 0)
	huge = binary.LittleEndian.AppendUint32(huge, count*8)
	huge = append(huge, make([]byte, 16)...)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err = Parse(bytes.NewReader(huge))
	runtime.ReadMemStats(&after)
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, "X", perr.Node)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
}

func TestUnknownPropertyType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, &Node{Children: []*Node{NewNode("N", int32(7))}}, 7400))
	data := buf.Bytes()
	// header(27) + record header(12) + name length(1) + "N"
	require.Equal(t, byte('I'), data[41])
	data[41] = 'X'

	_, err := Parse(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProperty))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "N", perr.Node)
}

func TestMalformedHeader(t *testing.T) {
	for _, input := range []string{"", "\x00\x01\x02garbage", "Kaydara FBX Binary"} {
		_, err := Parse(strings.NewReader(input))
		assert.True(t, errors.Is(err, ErrMalformedHeader), "%q: %v", input, err)
	}
}

func TestCurveKeyAttributes(t *testing.T) {
	c := &AnimationCurve{Obj: *newObj("AnimationCurve", "", "AnimCurve", "",
		NewNode("KeyTime", []int64{0, 10, 20, 30}),
		NewNode("KeyValueFloat", []float32{1, 2, 3, 4}),
		NewNode("KeyAttrFlags", []int32{InterpolationConstant, InterpolationCubic}),
		NewNode("KeyAttrDataFloat", []float32{0, 0, 0, 0, 0.5, -0.5, 0, 0}),
		NewNode("KeyAttrRefCount", []int32{1, 3}),
	)}
	keys := c.GetKeys()
	require.Len(t, keys, 4)
	assert.Equal(t, int32(InterpolationConstant), keys[0].Interpolation())
	for _, k := range keys[1:] {
		assert.Equal(t, int32(InterpolationCubic), k.Interpolation())
		assert.Equal(t, 0.5, k.RightSlope)
		assert.Equal(t, -0.5, k.NextLeftSlope)
	}
}

func TestDecodeShiftJIS(t *testing.T) {
	// "テスト" in Shift-JIS
	assert.Equal(t, "テスト", decodeString([]byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67}))
	assert.Equal(t, "plain", decodeString([]byte("plain")))
}
