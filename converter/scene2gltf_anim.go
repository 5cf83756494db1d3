package converter

import (
	"slices"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

type timeAccessor struct {
	times []float32
	index uint32
}

// timeAccessor returns an input accessor for times, shared between samplers
// with identical times.
func (b *sceneToGltf) timeAccessor(times []float32) uint32 {
	for _, t := range b.times {
		if slices.Equal(t.times, times) {
			return t.index
		}
	}
	index := modeler.WriteAccessor(b.Document.Document, gltf.TargetNone, times)
	acr := b.Accessors[index]
	acr.Min = []float32{times[0]}
	acr.Max = []float32{times[len(times)-1]}
	b.times = append(b.times, timeAccessor{times: times, index: index})
	return index
}

func vec3Array(v []*geom.Vector3) [][3]float32 {
	r := make([][3]float32, len(v))
	for i, e := range v {
		r[i] = e.Array()
	}
	return r
}

func addChannel(a *gltf.Animation, input, output uint32, node int, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(input),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(uint32(node)),
			Path: path,
		},
	})
}

func (b *sceneToGltf) convertAnimations() {
	doc := b.Document.Document
	for _, take := range b.scene.Baked {
		a := &gltf.Animation{Name: take.Name}
		for _, tr := range take.Nodes {
			node := b.nodeIndex[tr.Node]
			if node < 0 || len(tr.Times) == 0 {
				continue
			}
			input := b.timeAccessor(tr.Times)
			if tr.Translations != nil {
				addChannel(a, input, modeler.WriteAccessor(doc, gltf.TargetNone, vec3Array(tr.Translations)), node, gltf.TRSTranslation)
			}
			if tr.Rotations != nil {
				rotations := make([][4]float32, len(tr.Rotations))
				for i, q := range tr.Rotations {
					rotations[i] = q.Array()
				}
				addChannel(a, input, modeler.WriteAccessor(doc, gltf.TargetNone, rotations), node, gltf.TRSRotation)
			}
			if tr.Scales != nil {
				addChannel(a, input, modeler.WriteAccessor(doc, gltf.TargetNone, vec3Array(tr.Scales)), node, gltf.TRSScale)
			}
		}
		for _, tr := range take.Weights {
			node := b.nodeIndex[tr.Node]
			if node < 0 || len(tr.Times) == 0 || b.Nodes[node].Mesh == nil {
				continue
			}
			var weights []float32
			for _, row := range tr.Weights {
				weights = append(weights, row...)
			}
			addChannel(a, b.timeAccessor(tr.Times), modeler.WriteAccessor(doc, gltf.TargetNone, weights), node, gltf.TRSWeights)
		}
		if len(a.Channels) == 0 {
			b.log.Debug("take without channels skipped", zap.String("take", take.Name))
			continue
		}
		if take.Suspect {
			a.Extras = map[string]interface{}{
				"suspect":          true,
				"declaredDuration": take.DeclaredDuration,
			}
		}
		b.Animations = append(b.Animations, a)
	}
}
