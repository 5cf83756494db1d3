package converter

import (
	"context"
	"fmt"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/gltfutil"
	"github.com/binzume/fbx2gltf/scene"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

const Generator = "fbx2gltf"

type sceneToGltf struct {
	*gltfutil.Document
	log   *zap.Logger
	opts  *Options
	scene *scene.Scene

	nodeIndex []int // scene node -> glTF node, -1 for the root
	meshes    map[string]uint32
	skins     map[scene.MeshID]uint32
	materials map[scene.MaterialID]uint32
	images    map[*scene.Image]uint32
	textures  map[*scene.Image]uint32
	times     []timeAccessor
}

// BuildDocument assembles a glTF document from a normalized and baked scene.
// Image payloads are attached to the document and placed by gltfutil.Write.
func BuildDocument(ctx context.Context, s *scene.Scene, options *Options) (*gltfutil.Document, error) {
	opts, err := options.withDefaults()
	if err != nil {
		return nil, err
	}
	b := &sceneToGltf{
		Document:  gltfutil.NewDocument(Generator),
		log:       opts.Logger,
		opts:      opts,
		scene:     s,
		meshes:    map[string]uint32{},
		skins:     map[scene.MeshID]uint32{},
		materials: map[scene.MaterialID]uint32{},
		images:    map[*scene.Image]uint32{},
		textures:  map[*scene.Image]uint32{},
	}
	order, err := b.convertNodes()
	if err != nil {
		return nil, err
	}
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.convertNodeMesh(id); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.convertAnimations()
	b.log.Debug("document built",
		zap.Int("nodes", len(b.Nodes)), zap.Int("meshes", len(b.Meshes)),
		zap.Int("materials", len(b.Materials)), zap.Int("animations", len(b.Animations)))
	return b.Document, nil
}

// setTransform stores m as TRS, or as a matrix when it does not decompose exactly.
func setTransform(node *gltf.Node, m *geom.Matrix4) {
	t, r, s := m.Decompose()
	node.Rotation = [4]float32{0, 0, 0, 1}
	node.Scale = [3]float32{1, 1, 1}
	if isAffine(m) && geom.NewTRSMatrix4(t, r, s).NearlyEqual(m, 1e-4) {
		node.Translation = t.Array()
		node.Rotation = r.Array()
		node.Scale = s.Array()
		return
	}
	node.Matrix = *m
}

func isAffine(m *geom.Matrix4) bool {
	return m[3] == 0 && m[7] == 0 && m[11] == 0 && m[15] == 1
}

// convertNodes emits every node except the synthetic root in pre-order and
// returns the scene handles in that order.
func (b *sceneToGltf) convertNodes() ([]scene.NodeID, error) {
	s := b.scene
	var order []scene.NodeID
	err := s.Walk(scene.RootID, func(id scene.NodeID, n *scene.Node) error {
		if id != scene.RootID {
			order = append(order, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.nodeIndex = make([]int, len(s.Nodes))
	for i := range b.nodeIndex {
		b.nodeIndex[i] = -1
	}
	for i, id := range order {
		b.nodeIndex[id] = i
	}
	for _, id := range order {
		n := s.Nodes[id]
		node := &gltf.Node{Name: n.Name}
		setTransform(node, n.Local)
		for _, c := range n.Children {
			node.Children = append(node.Children, uint32(b.nodeIndex[c]))
		}
		b.Nodes = append(b.Nodes, node)
	}
	for _, c := range s.Root().Children {
		b.Scenes[0].Nodes = append(b.Scenes[0].Nodes, uint32(b.nodeIndex[c]))
	}
	return order, nil
}

func (b *sceneToGltf) convertNodeMesh(id scene.NodeID) error {
	n := b.scene.Nodes[id]
	mesh := b.scene.Mesh(n.Mesh)
	if mesh == nil {
		return nil
	}
	node := b.Nodes[b.nodeIndex[id]]

	key := fmt.Sprint(n.Mesh, n.Materials)
	index, ok := b.meshes[key]
	if !ok {
		m, err := b.convertMesh(mesh, n.Materials)
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		index = uint32(len(b.Meshes))
		b.Meshes = append(b.Meshes, m)
		b.meshes[key] = index
	}
	node.Mesh = gltf.Index(index)

	if mesh.Skin != nil && len(mesh.Skin.Joints) > 0 {
		skin, err := b.skin(n.Mesh, mesh)
		if err != nil {
			return err
		}
		node.Skin = gltf.Index(skin)
	}
	return nil
}
