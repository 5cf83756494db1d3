package converter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/fbx2gltf/fbx"
	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/gltfutil"
	"github.com/binzume/fbx2gltf/scene"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument() *fbx.Document {
	doc := fbx.NewDocument()
	// meters
	doc.GlobalSettings.SetFloatProperty("UnitScaleFactor", 100)
	return doc
}

func addModel(doc *fbx.Document, parent fbx.Object, name, kind string) *fbx.Model {
	m := fbx.NewModel(name, kind)
	doc.AddObject(m)
	doc.AddConnection(parent, m)
	return m
}

func addGeometry(doc *fbx.Document, model *fbx.Model, verts []*geom.Vector3, faces [][]int) *fbx.Geometry {
	g := fbx.NewGeometry(model.Name(), verts, faces)
	doc.AddObject(g)
	doc.AddConnection(model, g)
	return g
}

func quad() []*geom.Vector3 {
	return []*geom.Vector3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}}
}

// addTranslationTake animates the X translation of model.
func addTranslationTake(doc *fbx.Document, model *fbx.Model, name string, start, stop float64, times []float64, values []float32) {
	stack := fbx.NewAnimationStack(name, fbx.SecondsToKTime(start), fbx.SecondsToKTime(stop))
	doc.AddObject(stack)
	layer := fbx.NewAnimationLayer("BaseLayer")
	doc.AddObject(layer)
	doc.AddConnection(stack, layer)
	cn := fbx.NewAnimationCurveNode("T", map[string]float64{"d|X": 0, "d|Y": 0, "d|Z": 0})
	doc.AddObject(cn)
	doc.AddConnection(layer, cn)
	doc.AddPropertyConnection(model, "Lcl Translation", cn)

	ktimes := make([]int64, len(times))
	for i, t := range times {
		ktimes[i] = fbx.SecondsToKTime(t)
	}
	curve := fbx.NewAnimationCurve("", ktimes, values, fbx.InterpolationLinear)
	doc.AddObject(curve)
	doc.AddPropertyConnection(cn, "d|X", curve)
}

func writeFixture(t *testing.T, dir string, doc *fbx.Document) string {
	t.Helper()
	path := filepath.Join(dir, "model.fbx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, fbx.WriteBinary(f, doc.Build(), 7400))
	return path
}

func convertFixture(t *testing.T, doc *fbx.Document, opts *Options) *Result {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	opts.InputPath = writeFixture(t, t.TempDir(), doc)
	r, err := Convert(context.Background(), opts)
	require.NoError(t, err)
	return r
}

func readFloats(t *testing.T, doc *gltfutil.Document, accessor uint32) []float32 {
	t.Helper()
	v, err := gltfutil.ReadFloats(doc.Document, doc.Accessors[accessor])
	require.NoError(t, err)
	return v
}

func TestConvertHierarchy(t *testing.T) {
	doc := newTestDocument()
	root := addModel(doc, doc.Scene, "Root", "Null")
	root.SetTranslation(&geom.Vector3{X: 1, Y: 2, Z: 3})
	child := addModel(doc, root, "Child", "Mesh")
	addGeometry(doc, child, quad(), [][]int{{0, 1, 2, 3}})
	addModel(doc, doc.Scene, "Other", "Null")

	r := convertFixture(t, doc, nil)
	out := r.Document
	require.Len(t, out.Nodes, 3)
	assert.Equal(t, "Root", out.Nodes[0].Name)
	assert.Equal(t, "Child", out.Nodes[1].Name)
	assert.Equal(t, "Other", out.Nodes[2].Name)
	assert.Equal(t, []uint32{0, 2}, out.Scenes[0].Nodes)
	assert.Equal(t, []uint32{1}, out.Nodes[0].Children)
	assert.InDeltaSlice(t, []float32{1, 2, 3}, out.Nodes[0].Translation[:], 1e-5)
	require.NotNil(t, out.Nodes[1].Mesh)
	assert.Nil(t, out.Nodes[2].Mesh)
	assert.Equal(t, Generator, out.Asset.Generator)
	assert.Empty(t, r.Warnings)
}

func TestTriangleCount(t *testing.T) {
	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Shapes", "Mesh")
	verts := quad()
	for i := 0; i < 5; i++ {
		verts = append(verts, &geom.Vector3{X: float32(i), Y: float32(i * i % 3), Z: 1})
	}
	verts = append(verts, &geom.Vector3{X: 0, Y: 0, Z: 2}, &geom.Vector3{X: 1, Y: 0, Z: 2}, &geom.Vector3{X: 0, Y: 1, Z: 2})
	addGeometry(doc, m, verts, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7, 8}, {9, 10, 11}})

	out := convertFixture(t, doc, nil).Document
	require.Len(t, out.Meshes, 1)
	triangles := 0
	for _, p := range out.Meshes[0].Primitives {
		triangles += int(out.Accessors[*p.Indices].Count) / 3
	}
	assert.Equal(t, 2+3+1, triangles)
}

func TestFlipV(t *testing.T) {
	for _, noFlip := range []bool{false, true} {
		doc := newTestDocument()
		m := addModel(doc, doc.Scene, "Quad", "Mesh")
		g := addGeometry(doc, m, quad(), [][]int{{0, 1, 2, 3}})
		g.SetLayerElementUV(0, []*geom.Vector2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0.75}, {X: 0, Y: 0.75}}, nil, fbx.ByPolygonVertex)

		out := convertFixture(t, doc, &Options{NoFlipV: noFlip}).Document
		p := out.Meshes[0].Primitives[0]
		uv := readFloats(t, out, p.Attributes["TEXCOORD_0"])
		var vs []float32
		for i := 1; i < len(uv); i += 2 {
			vs = append(vs, uv[i])
		}
		if noFlip {
			assert.ElementsMatch(t, []float32{0, 0, 0.75, 0.75}, vs)
		} else {
			assert.ElementsMatch(t, []float32{1, 1, 0.25, 0.25}, vs)
		}
	}
}

func TestSingleKeyTake(t *testing.T) {
	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Mover", "Null")
	addTranslationTake(doc, m, "Still", 0, 2, []float64{0}, []float32{5})

	r := convertFixture(t, doc, nil)
	require.Len(t, r.Takes, 1)
	assert.Equal(t, 61, r.Takes[0].Samples)

	out := r.Document
	require.Len(t, out.Animations, 1)
	a := out.Animations[0]
	require.Len(t, a.Channels, 1)
	assert.Equal(t, gltf.TRSTranslation, a.Channels[0].Target.Path)
	s := a.Samplers[*a.Channels[0].Sampler]
	assert.Equal(t, uint32(1), out.Accessors[*s.Input].Count)
	assert.Equal(t, []float32{0}, readFloats(t, out, *s.Input))
	assert.InDeltaSlice(t, []float32{5, 0, 0}, readFloats(t, out, *s.Output), 1e-5)
}

func TestBakedSamples(t *testing.T) {
	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Mover", "Null")
	addTranslationTake(doc, m, "Move", 0, 1, []float64{0, 1}, []float32{0, 3})

	r := convertFixture(t, doc, &Options{BakeRate: 30})
	require.Len(t, r.Takes, 1)
	assert.Equal(t, TakeSummary{Name: "Move", Duration: 1, Samples: 31}, r.Takes[0])

	out := r.Document
	s := out.Animations[0].Samplers[0]
	times := readFloats(t, out, *s.Input)
	require.Len(t, times, 31)
	assert.Equal(t, float32(1), times[30])
	values := readFloats(t, out, *s.Output)
	assert.InDelta(t, 1.5, values[15*3], 1e-4)
	assert.InDelta(t, 3, values[30*3], 1e-5)
}

func TestSuspectDuration(t *testing.T) {
	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Mover", "Null")
	addTranslationTake(doc, m, "Long", 0, 1000, []float64{0, 1000}, []float32{0, 1})

	r := convertFixture(t, doc, &Options{SuspectedDurationLimit: 10})
	var w *SuspectAnimationWarning
	require.Len(t, r.Warnings, 1)
	require.True(t, errors.As(r.Warnings[0], &w))
	assert.Equal(t, "Long", w.Take)
	assert.InDelta(t, 1000, w.Declared, 1e-9)

	require.Len(t, r.Takes, 1)
	assert.True(t, r.Takes[0].Suspect)
	assert.InDelta(t, 10, r.Takes[0].Duration, 1e-9)
	assert.Equal(t, 301, r.Takes[0].Samples)

	extras, ok := r.Document.Animations[0].Extras.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, extras["suspect"])
	assert.InDelta(t, 1000, extras["declaredDuration"], 1e-9)
}

func addTexturedMaterial(doc *fbx.Document, model *fbx.Model, file string, content []byte) {
	mat := fbx.NewMaterial("Skin")
	doc.AddObject(mat)
	doc.AddConnection(model, mat)
	tex := fbx.NewTexture("Albedo", file)
	doc.AddObject(tex)
	doc.AddPropertyConnection(mat, "DiffuseColor", tex)
	if content != nil {
		v := fbx.NewVideo("Albedo", file, content)
		doc.AddObject(v)
		doc.AddConnection(tex, v)
	}
}

func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMissingTexture(t *testing.T) {
	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Quad", "Mesh")
	addGeometry(doc, m, quad(), [][]int{{0, 1, 2, 3}})
	addTexturedMaterial(doc, m, "missing.png", nil)

	r := convertFixture(t, doc, nil)
	require.Len(t, r.Warnings, 1)
	var w *ResourceWarning
	require.True(t, errors.As(r.Warnings[0], &w))
	assert.Equal(t, "Skin", w.Material)
	assert.Equal(t, scene.BaseColorTexture, w.Slot)

	out := r.Document
	require.Len(t, out.Materials, 1)
	assert.Nil(t, out.Materials[0].PBRMetallicRoughness.BaseColorTexture)
	assert.Empty(t, out.Textures)
	assert.Empty(t, out.Document.Images)
}

func TestTextureResolution(t *testing.T) {
	dir := t.TempDir()
	data := testPNG(t, color.RGBA{255, 0, 0, 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "albedo.png"), data, 0o644))

	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Quad", "Mesh")
	addGeometry(doc, m, quad(), [][]int{{0, 1, 2, 3}})
	addTexturedMaterial(doc, m, `C:\work\textures\albedo.png`, nil)

	r, err := Convert(context.Background(), &Options{InputPath: writeFixture(t, dir, doc)})
	require.NoError(t, err)
	assert.Empty(t, r.Warnings)

	out := r.Document
	require.Len(t, out.Textures, 1)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "albedo", out.Sources[0].Name)
	assert.Equal(t, "image/png", out.Sources[0].MimeType)
	assert.Equal(t, data, out.Sources[0].Data)
	assert.False(t, out.Sources[0].Embedded)
	tex := out.Materials[0].PBRMetallicRoughness.BaseColorTexture
	require.NotNil(t, tex)
	assert.Equal(t, uint32(0), tex.Index)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, *out.Materials[0].PBRMetallicRoughness.BaseColorFactor)
	assert.Equal(t, gltf.AlphaOpaque, out.Materials[0].AlphaMode)
}

func TestEmbeddedTexture(t *testing.T) {
	media := filepath.Join(t.TempDir(), "media")
	data := testPNG(t, color.NRGBA{0, 0, 255, 128})

	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Quad", "Mesh")
	addGeometry(doc, m, quad(), [][]int{{0, 1, 2, 3}})
	addTexturedMaterial(doc, m, "packed.png", data)

	r := convertFixture(t, doc, &Options{MediaDir: media})
	assert.Empty(t, r.Warnings)
	require.Len(t, r.Document.Sources, 1)
	assert.True(t, r.Document.Sources[0].Embedded)
	assert.Equal(t, gltf.AlphaBlend, r.Document.Materials[0].AlphaMode)

	extracted, err := os.ReadFile(filepath.Join(media, "packed.png"))
	require.NoError(t, err)
	assert.Equal(t, data, extracted)
}

// addBigMesh adds a mesh with 65538 distinct vertices.
func addBigMesh(doc *fbx.Document) *fbx.Model {
	const triangles = 21846
	var verts []*geom.Vector3
	var faces [][]int
	for i := 0; i < triangles; i++ {
		x := float32(i)
		verts = append(verts, &geom.Vector3{X: x}, &geom.Vector3{X: x + 1}, &geom.Vector3{X: x, Y: 1})
		faces = append(faces, []int{i * 3, i*3 + 1, i*3 + 2})
	}
	m := addModel(doc, doc.Scene, "Big", "Mesh")
	addGeometry(doc, m, verts, faces)
	return m
}

func TestIndexOverflow(t *testing.T) {
	doc := newTestDocument()
	addBigMesh(doc)

	dir := t.TempDir()
	path := writeFixture(t, dir, doc)
	r, err := Convert(context.Background(), &Options{InputPath: path, IndexFormat: IndexFormat16})
	require.Error(t, err)
	assert.Nil(t, r)
	var ce *CapacityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Big", ce.Mesh)
	assert.Equal(t, uint64(65535), ce.Limit)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.fbx", entries[0].Name())

	// the same mesh fits 32 bit indices
	r, err = Convert(context.Background(), &Options{InputPath: path})
	require.NoError(t, err)
	acr := r.Document.Accessors[*r.Document.Meshes[0].Primitives[0].Indices]
	assert.Equal(t, gltf.ComponentUint, acr.ComponentType)
}

func TestIndexOverflowKeepsMedia(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "media")
	doc := newTestDocument()
	m := addBigMesh(doc)
	addTexturedMaterial(doc, m, "packed.png", testPNG(t, color.NRGBA{0, 0, 255, 255}))
	path := writeFixture(t, dir, doc)

	_, err := Convert(context.Background(), &Options{InputPath: path, MediaDir: media, IndexFormat: IndexFormat16})
	var ce *CapacityError
	require.True(t, errors.As(err, &ce))
	assert.NoDirExists(t, media)

	_, err = Convert(context.Background(), &Options{InputPath: path, MediaDir: media})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(media, "packed.png"))
}

func TestAxisConversion(t *testing.T) {
	doc := newTestDocument()
	doc.GlobalSettings.SetAxisSystem(fbx.AxisSystem{UpAxis: 2, UpSign: 1, FrontAxis: 1, FrontSign: -1, CoordAxis: 0, CoordSign: 1})
	m := addModel(doc, doc.Scene, "Up", "Mesh")
	m.SetTranslation(&geom.Vector3{X: 0, Y: 0, Z: 5})
	addGeometry(doc, m, []*geom.Vector3{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}}, [][]int{{0, 1, 2}})

	out := convertFixture(t, doc, nil).Document
	assert.InDeltaSlice(t, []float32{0, 5, 0}, out.Nodes[0].Translation[:], 1e-5)
	assert.InDeltaSlice(t, []float32{0, 0, 0, 1}, out.Nodes[0].Rotation[:], 1e-5)
	pos := readFloats(t, out, out.Meshes[0].Primitives[0].Attributes["POSITION"])
	assert.InDeltaSlice(t, []float32{0, 1, 0, 1, 1, 0, 0, 1, -1}, pos, 1e-5)
}

func TestSkinInverseBindMatrices(t *testing.T) {
	doc := newTestDocument()
	body := addModel(doc, doc.Scene, "Body", "Mesh")
	g := addGeometry(doc, body, quad(), [][]int{{0, 1, 2, 3}})
	bone := addModel(doc, doc.Scene, "Bone", "LimbNode")
	bone.SetTranslation(&geom.Vector3{X: 0, Y: 2, Z: 0})

	skin := fbx.NewSkin("Skin")
	doc.AddObject(skin)
	doc.AddConnection(g, skin)
	cl := fbx.NewCluster("Cluster", []int32{0, 1, 2, 3}, []float64{1, 1, 1, 1}, geom.NewMatrix4(), geom.NewTranslateMatrix4(0, 2, 0))
	doc.AddObject(cl)
	doc.AddConnection(skin, cl)
	doc.AddConnection(cl, bone)

	out := convertFixture(t, doc, nil).Document
	require.Len(t, out.Skins, 1)
	assert.Equal(t, []uint32{1}, out.Skins[0].Joints)
	require.NotNil(t, out.Nodes[0].Skin)
	ibm := readFloats(t, out, *out.Skins[0].InverseBindMatrices)
	assert.InDeltaSlice(t, []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -2, 0, 1}, ibm, 1e-5)

	p := out.Meshes[0].Primitives[0]
	require.Contains(t, p.Attributes, "JOINTS_0")
	weights := readFloats(t, out, p.Attributes["WEIGHTS_0"])
	assert.InDeltaSlice(t, []float32{1, 0, 0, 0}, weights[:4], 1e-6)
}

func TestConvertDeterministic(t *testing.T) {
	doc := newTestDocument()
	m := addModel(doc, doc.Scene, "Quad", "Mesh")
	m.SetRotation(&geom.Vector3{X: 30, Y: 45, Z: 60})
	addGeometry(doc, m, quad(), [][]int{{0, 1, 2, 3}})
	addTranslationTake(doc, m, "Move", 0, 1, []float64{0, 0.5, 1}, []float32{0, 2, 1})
	path := writeFixture(t, t.TempDir(), doc)

	write := func() ([]byte, []byte) {
		r, err := Convert(context.Background(), &Options{InputPath: path})
		require.NoError(t, err)
		out := filepath.Join(t.TempDir(), "out.gltf")
		require.NoError(t, gltfutil.Write(context.Background(), r.Document, out, nil))
		js, err := os.ReadFile(out)
		require.NoError(t, err)
		bin, err := os.ReadFile(filepath.Join(filepath.Dir(out), "out.bin"))
		require.NoError(t, err)
		return js, bin
	}
	js1, bin1 := write()
	js2, bin2 := write()
	assert.Equal(t, js1, js2)
	assert.Equal(t, bin1, bin2)
}

func TestConvertCanceled(t *testing.T) {
	doc := newTestDocument()
	addModel(doc, doc.Scene, "Empty", "Null")
	path := writeFixture(t, t.TempDir(), doc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Convert(ctx, &Options{InputPath: path})
	assert.ErrorIs(t, err, context.Canceled)
}
