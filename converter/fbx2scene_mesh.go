package converter

import (
	"github.com/binzume/fbx2gltf/fbx"
	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
	"go.uber.org/zap"
)

// convertGeometry expands the layer elements of g into per-corner attributes.
func (c *fbxToScene) convertGeometry(g *fbx.Geometry) *scene.Mesh {
	mesh := &scene.Mesh{Name: g.Name(), Points: g.GetVertices()}

	normalElem := g.GetLayerElementNormal()
	normals := normalElem.GetArray().ToVec3Array()
	normalAt := normalElem.Lookup(len(normals))
	mesh.HasNormals = len(normals) > 0

	var uvs [scene.MaxUVSets][]*geom.Vector2
	var uvAt [scene.MaxUVSets]fbx.Lookup
	for i := range uvs {
		e := g.GetLayerElementUV(i)
		uvs[i] = e.GetArray().ToVec2Array()
		uvAt[i] = e.Lookup(len(uvs[i]))
		if len(uvs[i]) > 0 {
			mesh.UVSets = i + 1
		}
	}
	if n := g.NumUVSets(); n > scene.MaxUVSets {
		c.log.Info("extra uv sets dropped", zap.String("geometry", g.Name()), zap.Int("sets", n))
	}

	colorElem := g.GetLayerElementColor()
	var colors []geom.Vector4
	rgba := colorElem.GetArray().ToFloat64Array()
	for i := 0; i+3 < len(rgba); i += 4 {
		colors = append(colors, geom.Vector4{X: float32(rgba[i]), Y: float32(rgba[i+1]), Z: float32(rgba[i+2]), W: float32(rgba[i+3])})
	}
	colorAt := colorElem.Lookup(len(colors))
	mesh.HasColors = len(colors) > 0

	// material slots are stored directly, without an index array
	matElem := g.GetLayerElementMaterial()
	slots := matElem.GetArray().ToInt32Array()
	byPolygon := matElem.Valid() && matElem.GetMappingInformationType() == fbx.ByPolygon
	slotOf := func(polygon int) int {
		i := 0
		if byPolygon {
			i = polygon
		}
		if i < len(slots) && slots[i] >= 0 {
			return int(slots[i])
		}
		return 0
	}

	corner, skipped := 0, 0
	for p, poly := range g.GetPolygons() {
		valid := len(poly) >= 3
		for _, cp := range poly {
			if cp >= len(mesh.Points) {
				valid = false
			}
		}
		if !valid {
			corner += len(poly)
			skipped++
			continue
		}
		face := make([]int, len(poly))
		for k, cp := range poly {
			ci := corner + k
			cc := scene.Corner{Point: cp, Color: geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}}
			if i := normalAt(p, ci, cp); i >= 0 {
				cc.Normal = *normals[i]
			}
			for s := range uvs {
				if i := uvAt[s](p, ci, cp); i >= 0 {
					cc.UV[s] = *uvs[s][i]
				}
			}
			if i := colorAt(p, ci, cp); i >= 0 {
				cc.Color = colors[i]
			}
			face[k] = len(mesh.Corners)
			mesh.Corners = append(mesh.Corners, cc)
		}
		mesh.Faces = append(mesh.Faces, face)
		mesh.FaceMaterials = append(mesh.FaceMaterials, slotOf(p))
		corner += len(poly)
	}
	if skipped > 0 {
		c.log.Warn("skipped invalid polygons", zap.String("geometry", g.Name()), zap.Int("count", skipped))
	}

	mesh.Skin = c.convertSkin(g, len(mesh.Points))
	c.convertBlendShapes(g, mesh)
	return mesh
}

func (c *fbxToScene) convertSkin(g *fbx.Geometry, points int) *scene.Skin {
	skins := g.GetSkins()
	if len(skins) == 0 {
		return nil
	}
	if len(skins) > 1 {
		c.log.Info("only the first skin is used", zap.String("geometry", g.Name()))
	}
	skin := &scene.Skin{Influences: make([][]scene.Influence, points)}
	for _, cl := range skins[0].GetClusters() {
		link := cl.GetLink()
		if link == nil {
			continue
		}
		node, ok := c.nodes[link.ID()]
		if !ok {
			c.log.Warn("cluster links to a dropped model", zap.String("cluster", cl.Name()), zap.String("model", link.Name()))
			continue
		}
		joint := len(skin.Joints)
		indexes, weights := cl.GetIndexes(), cl.GetWeights()
		for i, idx := range indexes {
			if i >= len(weights) || idx < 0 || int(idx) >= points || weights[i] <= 0 {
				continue
			}
			skin.Influences[idx] = append(skin.Influences[idx], scene.Influence{Joint: joint, Weight: float32(weights[i])})
		}
		skin.Joints = append(skin.Joints, scene.SkinJoint{
			Node:           node,
			BindMatrix:     cl.GetTransformLink(),
			MeshBindMatrix: cl.GetTransform(),
		})
		c.dst.Nodes[node].IsJoint = true
	}
	if len(skin.Joints) == 0 {
		return nil
	}
	return skin
}

func (c *fbxToScene) convertBlendShapes(g *fbx.Geometry, mesh *scene.Mesh) {
	for _, bs := range g.GetBlendShapes() {
		for _, ch := range bs.GetChannels() {
			shapes := ch.GetShapes()
			if len(shapes) == 0 {
				continue
			}
			// the last shape is the full weight target, earlier ones are in-betweens
			shape := shapes[len(shapes)-1]
			deltas := make([]geom.Vector3, len(mesh.Points))
			vs := shape.GetVertices()
			for i, idx := range shape.GetIndexes() {
				if i < len(vs) && idx >= 0 && int(idx) < len(deltas) {
					deltas[idx] = *vs[i]
				}
			}
			c.channels[ch.ID()] = morphChannel{geometry: g.ID(), target: len(mesh.Targets)}
			mesh.Targets = append(mesh.Targets, &scene.MorphTarget{
				Name:   ch.Name(),
				Deltas: deltas,
				Weight: float32(ch.GetDeformPercent() / 100),
			})
		}
	}
}
