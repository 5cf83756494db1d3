package converter

import (
	"context"
	"fmt"

	"github.com/binzume/fbx2gltf/fbx"
	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
	"go.uber.org/zap"
)

type morphChannel struct {
	geometry int64
	target   int
}

type fbxToScene struct {
	log *zap.Logger
	doc *fbx.Document
	dst *scene.Scene

	nodes     map[int64]scene.NodeID
	models    []*fbx.Model // in node order
	meshes    map[int64]scene.MeshID
	materials map[int64]scene.MaterialID
	geomUsers map[int64][]scene.NodeID
	channels  map[int64]morphChannel
}

func newFBXToScene(log *zap.Logger) *fbxToScene {
	if log == nil {
		log = zap.NewNop()
	}
	return &fbxToScene{
		log:       log,
		nodes:     map[int64]scene.NodeID{},
		meshes:    map[int64]scene.MeshID{},
		materials: map[int64]scene.MaterialID{},
		geomUsers: map[int64][]scene.NodeID{},
		channels:  map[int64]morphChannel{},
	}
}

// ReadScene parses an FBX file into a scene graph. Texture paths are recorded
// but not opened.
func ReadScene(ctx context.Context, path string) (*scene.Scene, error) {
	return readScene(ctx, path, zap.NewNop())
}

func readScene(ctx context.Context, path string, log *zap.Logger) (*scene.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fbx.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Debug("fbx loaded", zap.String("path", path), zap.Uint32("version", doc.Version), zap.String("creator", doc.Creator))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := newFBXToScene(log).Convert(doc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s.SourcePath = path
	return s, nil
}

func (c *fbxToScene) Convert(doc *fbx.Document) (*scene.Scene, error) {
	c.doc = doc
	c.dst = scene.New()

	gs := doc.GlobalSettings
	a := gs.AxisSystem()
	c.dst.Axes = scene.AxisSystem{
		Right: scene.SignedAxis{Axis: a.CoordAxis, Sign: a.CoordSign},
		Up:    scene.SignedAxis{Axis: a.UpAxis, Sign: a.UpSign},
		Front: scene.SignedAxis{Axis: a.FrontAxis, Sign: a.FrontSign},
	}
	c.dst.UnitScale = gs.UnitScaleFactor() / 100
	c.dst.FrameRate = gs.FrameRate()

	c.nodes[doc.Scene.ID()] = scene.RootID
	c.convertChildren(doc.Scene, scene.RootID)
	for _, o := range doc.Objects {
		if m, ok := o.(*fbx.Model); ok {
			if _, found := c.nodes[m.ID()]; !found {
				c.log.Warn("model is not reachable from the scene root", zap.String("model", m.Name()), zap.Int64("id", m.ID()))
			}
		}
	}

	for _, m := range c.models {
		c.convertModelMesh(m, c.nodes[m.ID()])
	}
	c.convertAnimations()

	if err := c.dst.Validate(); err != nil {
		return nil, err
	}
	return c.dst, nil
}

// convertChildren adds the child models of parent. A model connected to more
// than one parent stays under the first one.
func (c *fbxToScene) convertChildren(parent *fbx.Model, pid scene.NodeID) {
	for _, m := range parent.GetChildModels() {
		if _, done := c.nodes[m.ID()]; done {
			continue
		}
		if p := m.GetParent(); p != nil && p.ID() != parent.ID() {
			continue
		}
		n := scene.NewNode(m.Name(), modelTransform(m))
		n.IsJoint = m.IsJoint()
		id := c.dst.AddNode(pid, n)
		c.nodes[m.ID()] = id
		c.models = append(c.models, m)
		c.convertChildren(m, id)
	}
}

// rotationOrder maps an FBX rotation order to geom. FBX names the order the
// rotations are applied in, geom names the order of the matrix product.
func rotationOrder(order int) geom.RotationOrder {
	switch order {
	case fbx.EulerXZY:
		return geom.RotationOrderYZX
	case fbx.EulerYZX:
		return geom.RotationOrderXZY
	case fbx.EulerYXZ:
		return geom.RotationOrderZXY
	case fbx.EulerZXY:
		return geom.RotationOrderYXZ
	case fbx.EulerZYX:
		return geom.RotationOrderXYZ
	default:
		return geom.RotationOrderZYX
	}
}

func modelTransform(m *fbx.Model) scene.Transform {
	t := scene.EulerTransform(m.GetTranslation(), m.GetRotation(), m.GetScaling(), geom.RotationOrderZYX)
	// pre and post rotations always use XYZ
	t.PrePostOrder = geom.RotationOrderZYX
	if m.RotationActive() {
		t.Order = rotationOrder(m.GetRotationOrder())
		t.PreRotation = *m.GetPreRotation()
		t.PostRotation = *m.GetPostRotation()
	}
	t.RotationOffset = *m.GetRotationOffset()
	t.RotationPivot = *m.GetRotationPivot()
	t.ScalingOffset = *m.GetScalingOffset()
	t.ScalingPivot = *m.GetScalingPivot()

	zero := geom.Vector3{}
	for _, v := range []geom.Vector3{t.PreRotation, t.PostRotation, t.RotationOffset, t.RotationPivot, t.ScalingOffset, t.ScalingPivot} {
		if v != zero {
			t.Kind = scene.TransformPivot
			break
		}
	}
	return t
}

// geometricMatrix is the offset of the geometry from its model. It does not
// propagate to children.
func geometricMatrix(m *fbx.Model) *geom.Matrix4 {
	t, r, s := m.GetGeometricTranslation(), m.GetGeometricRotation(), m.GetGeometricScaling()
	return geom.NewTranslateMatrix4(t.X, t.Y, t.Z).
		Mul(geom.NewEulerDegrees(r, geom.RotationOrderZYX).ToMatrix4()).
		Mul(geom.NewScaleMatrix4(s.X, s.Y, s.Z))
}

func (c *fbxToScene) convertModelMesh(m *fbx.Model, id scene.NodeID) {
	g := m.GetGeometry()
	if g == nil {
		return
	}
	if g.Kind() != "Mesh" {
		c.log.Debug("skipping geometry", zap.String("geometry", g.Name()), zap.String("kind", g.Kind()))
		return
	}
	meshID, ok := c.meshes[g.ID()]
	if !ok {
		meshID = c.dst.AddMesh(c.convertGeometry(g))
		c.meshes[g.ID()] = meshID
	}
	if gm := geometricMatrix(m); !gm.NearlyEqual(geom.NewMatrix4(), 1e-6) {
		mesh := c.dst.Mesh(meshID).Clone()
		mesh.Transform(gm)
		meshID = c.dst.AddMesh(mesh)
	}

	var materials []scene.MaterialID
	for _, mat := range m.GetMaterials() {
		materials = append(materials, c.material(mat))
	}
	c.dst.SetMesh(id, meshID, materials)
	c.geomUsers[g.ID()] = append(c.geomUsers[g.ID()], id)
}
