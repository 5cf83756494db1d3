package converter

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

const maxJoints = 65536

// vertexKey identifies a welded vertex: corners with equal keys share a vertex.
type vertexKey struct {
	point  int
	normal geom.Vector3
	uv     [scene.MaxUVSets]geom.Vector2
	color  geom.Vector4
}

// maxIndex returns the largest usable index; the all-ones value is reserved.
func (b *sceneToGltf) maxIndex() uint64 {
	if b.opts.IndexFormat == IndexFormat16 {
		return math.MaxUint16 - 1
	}
	return math.MaxUint32 - 1
}

func (b *sceneToGltf) convertMesh(m *scene.Mesh, materials []scene.MaterialID) (*gltf.Mesh, error) {
	index := map[vertexKey]uint32{}
	var vertices []vertexKey
	indices := map[int][]uint32{}
	limit := b.maxIndex() + 1

	for f, face := range m.Faces {
		if len(face) < 3 {
			continue
		}
		slot := m.FaceMaterials[f]
		var tri [3]uint32
		for i, c := range face {
			corner := &m.Corners[c]
			k := vertexKey{point: corner.Point}
			if m.HasNormals {
				k.normal = corner.Normal
			}
			for s := 0; s < m.UVSets && s < scene.MaxUVSets; s++ {
				k.uv[s] = corner.UV[s]
			}
			if m.HasColors {
				k.color = corner.Color
			}
			vi, ok := index[k]
			if !ok {
				if uint64(len(vertices)) >= limit {
					return nil, &CapacityError{Mesh: m.Name, What: "vertices", Limit: limit, Required: uint64(len(vertices)) + 1}
				}
				vi = uint32(len(vertices))
				index[k] = vi
				vertices = append(vertices, k)
			}
			// fan for faces that were not triangulated
			switch {
			case i < 2:
				tri[i] = vi
			case i == 2:
				tri[2] = vi
				indices[slot] = append(indices[slot], tri[:]...)
			default:
				tri[1], tri[2] = tri[2], vi
				indices[slot] = append(indices[slot], tri[:]...)
			}
		}
	}
	if len(vertices) == 0 {
		b.log.Debug("empty mesh skipped", zap.String("mesh", m.Name))
		return nil, nil
	}

	doc := b.Document.Document
	attributes := b.writeVertices(m, vertices)

	var targets []map[string]uint32
	var targetNames []string
	var weights []float32
	for _, t := range m.Targets {
		deltas := make([][3]float32, len(vertices))
		for i, v := range vertices {
			deltas[i] = t.Deltas[v.point].Array()
		}
		targets = append(targets, map[string]uint32{"POSITION": modeler.WritePosition(doc, deltas)})
		targetNames = append(targetNames, t.Name)
		weights = append(weights, t.Weight)
	}

	slots := make([]int, 0, len(indices))
	for slot := range indices {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	small := b.opts.IndexFormat == IndexFormat16 ||
		b.opts.IndexFormat == IndexFormatAuto && len(vertices) <= math.MaxUint16
	mesh := &gltf.Mesh{Name: m.Name, Weights: weights}
	for _, slot := range slots {
		p := &gltf.Primitive{
			Indices:    gltf.Index(b.writeIndices(indices[slot], small)),
			Attributes: attributes,
			Targets:    targets,
		}
		if slot >= 0 && slot < len(materials) && materials[slot] != scene.NoMaterial {
			p.Material = gltf.Index(b.material(materials[slot]))
		}
		mesh.Primitives = append(mesh.Primitives, p)
	}
	if len(targetNames) > 0 {
		mesh.Extras = map[string]interface{}{"targetNames": targetNames}
	}
	return mesh, nil
}

func (b *sceneToGltf) writeIndices(indices []uint32, small bool) uint32 {
	if !small {
		return modeler.WriteIndices(b.Document.Document, indices)
	}
	r := make([]uint16, len(indices))
	for i, v := range indices {
		r[i] = uint16(v)
	}
	return modeler.WriteIndices(b.Document.Document, r)
}

func (b *sceneToGltf) writeVertices(m *scene.Mesh, vertices []vertexKey) map[string]uint32 {
	doc := b.Document.Document
	positions := make([][3]float32, len(vertices))
	for i, v := range vertices {
		positions[i] = m.Points[v.point].Array()
	}
	attributes := map[string]uint32{"POSITION": modeler.WritePosition(doc, positions)}

	if m.HasNormals {
		normals := make([][3]float32, len(vertices))
		for i, v := range vertices {
			normals[i] = v.normal.Array()
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	for s := 0; s < m.UVSets && s < scene.MaxUVSets; s++ {
		uvs := make([][2]float32, len(vertices))
		for i, v := range vertices {
			uvs[i] = [2]float32{v.uv[s].X, v.uv[s].Y}
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", s)] = modeler.WriteTextureCoord(doc, uvs)
	}
	if m.HasColors {
		colors := make([][4]float32, len(vertices))
		for i, v := range vertices {
			colors[i] = v.color.Array()
		}
		attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
	}
	if m.Skin != nil && len(m.Skin.Joints) > 0 {
		joints := make([][4]uint16, len(vertices))
		weights := make([][4]float32, len(vertices))
		for i, v := range vertices {
			joints[i], weights[i] = topInfluences(m.Skin.Influences[v.point])
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}
	return attributes
}

// topInfluences keeps the four largest influences and normalizes them to sum
// to one. A vertex without influences is bound to the first joint.
func topInfluences(in []scene.Influence) ([4]uint16, [4]float32) {
	sorted := slices.Clone(in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	var joints [4]uint16
	var weights [4]float32
	var sum float32
	for i := 0; i < len(sorted) && i < 4; i++ {
		if sorted[i].Weight <= 0 {
			break
		}
		joints[i] = uint16(sorted[i].Joint)
		weights[i] = sorted[i].Weight
		sum += sorted[i].Weight
	}
	if sum <= 0 {
		return [4]uint16{}, [4]float32{1, 0, 0, 0}
	}
	for i := range weights {
		weights[i] /= sum
	}
	return joints, weights
}

func (b *sceneToGltf) addMatrices(mat [][4][4]float32) uint32 {
	a := make([][4]float32, len(mat)*4)
	for i, m := range mat {
		a[i*4+0] = m[0]
		a[i*4+1] = m[1]
		a[i*4+2] = m[2]
		a[i*4+3] = m[3]
	}
	acc := modeler.WriteTangent(b.Document.Document, a)
	b.Accessors[acc].Type = gltf.AccessorMat4
	b.Accessors[acc].Count /= 4
	b.BufferViews[*b.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

// skin returns the glTF skin of a mesh. Inverse bind matrices map mesh space
// at bind time to joint space.
func (b *sceneToGltf) skin(id scene.MeshID, m *scene.Mesh) (uint32, error) {
	if s, ok := b.skins[id]; ok {
		return s, nil
	}
	if len(m.Skin.Joints) > maxJoints {
		return 0, &CapacityError{Mesh: m.Name, What: "joints", Limit: maxJoints, Required: uint64(len(m.Skin.Joints))}
	}
	joints := make([]uint32, len(m.Skin.Joints))
	mats := make([][4][4]float32, len(m.Skin.Joints))
	for i, j := range m.Skin.Joints {
		joints[i] = uint32(b.nodeIndex[j.Node])
		ibm := j.BindMatrix.Inverse().Mul(j.MeshBindMatrix)
		for c := 0; c < 4; c++ {
			copy(mats[i][c][:], ibm[c*4:c*4+4])
		}
	}
	b.Skins = append(b.Skins, &gltf.Skin{
		Name:                m.Name,
		Joints:              joints,
		InverseBindMatrices: gltf.Index(b.addMatrices(mats)),
	})
	index := uint32(len(b.Skins) - 1)
	b.skins[id] = index
	return index, nil
}
