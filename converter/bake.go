package converter

import (
	"context"
	"math"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
	"go.uber.org/zap"
)

// Bake resamples every take of s at opts.BakeRate and stores the result in
// s.Baked. Node samples are local TRS in the converted space of a normalized
// scene.
func Bake(ctx context.Context, s *scene.Scene, options *Options) ([]error, error) {
	opts, err := options.withDefaults()
	if err != nil {
		return nil, err
	}
	b := &baker{
		log:   opts.Logger,
		scene: s,
		rate:  opts.BakeRate,
		limit: opts.SuspectedDurationLimit,
	}
	if s.Conversion != nil {
		b.conv = s.Conversion
		b.convInv = s.Conversion.Inverse()
	}

	var warnings []error
	s.Baked = nil
	for _, take := range s.Takes {
		if err := ctx.Err(); err != nil {
			return warnings, err
		}
		baked, err := b.bakeTake(take)
		if err != nil {
			return warnings, err
		}
		if baked.Suspect {
			warnings = append(warnings, &SuspectAnimationWarning{Take: take.Name, Declared: baked.DeclaredDuration, Limit: b.limit})
		}
		s.Baked = append(s.Baked, baked)
	}
	return warnings, nil
}

type baker struct {
	log     *zap.Logger
	scene   *scene.Scene
	rate    float64
	limit   float64
	conv    *geom.Matrix4
	convInv *geom.Matrix4
}

// nodeTracks groups the T/R/S tracks of one node.
type nodeTracks struct {
	node              scene.NodeID
	trans, rot, scale *scene.Track
}

func (g *nodeTracks) maxKeys() int {
	n := 0
	for _, t := range []*scene.Track{g.trans, g.rot, g.scale} {
		if t != nil {
			n = max(n, t.MaxKeys())
		}
	}
	return n
}

// weightTracks groups the morph weight tracks of one node by target index.
type weightTracks struct {
	node    scene.NodeID
	mesh    scene.MeshID
	targets map[int]*scene.Track
}

func (g *weightTracks) maxKeys() int {
	n := 0
	for _, t := range g.targets {
		n = max(n, t.MaxKeys())
	}
	return n
}

// window returns the baked span of take and its declared duration.
func (b *baker) window(take *scene.Take) (start, stop float64) {
	if take.HasSpan {
		start, stop = take.Start, take.Stop
	} else if first, last, ok := take.KeyRange(); ok {
		start, stop = min(0, first), last
	}
	if stop < start {
		stop = start
	}
	return
}

func (b *baker) bakeTake(take *scene.Take) (*scene.BakedTake, error) {
	start, stop := b.window(take)
	declared := stop - start
	baked := &scene.BakedTake{Name: take.Name, Rate: b.rate, DeclaredDuration: declared}

	if b.limit > 0 && declared > b.limit {
		stop = start + b.limit
		baked.Suspect = true
		b.log.Warn("suspicious animation duration", zap.String("take", take.Name),
			zap.Float64("declared", declared), zap.Float64("limit", b.limit))
	}

	duration := stop - start
	count := math.Ceil(duration*b.rate-1e-6) + 1
	if count > math.MaxUint32 {
		return nil, &CapacityError{Mesh: take.Name, What: "animation samples",
			Limit: math.MaxUint32, Required: uint64(min(count, math.MaxInt64))}
	}
	times := make([]float64, int(count))
	baked.Times = make([]float32, len(times))
	for i := range times {
		t := float64(i) / b.rate
		if t > duration || i == len(times)-1 {
			t = duration
		}
		times[i] = t
		baked.Times[i] = float32(t)
	}
	baked.Duration = duration

	var nodes []*nodeTracks
	var weights []*weightTracks
	nodeIndex := map[scene.NodeID]int{}
	weightIndex := map[scene.NodeID]int{}
	for _, tr := range take.Tracks {
		if tr.Property == scene.TrackMorphWeight {
			i, ok := weightIndex[tr.Node]
			if !ok {
				i = len(weights)
				weightIndex[tr.Node] = i
				weights = append(weights, &weightTracks{node: tr.Node, mesh: tr.Mesh, targets: map[int]*scene.Track{}})
			}
			weights[i].targets[tr.Target] = tr
			continue
		}
		i, ok := nodeIndex[tr.Node]
		if !ok {
			i = len(nodes)
			nodeIndex[tr.Node] = i
			nodes = append(nodes, &nodeTracks{node: tr.Node})
		}
		switch tr.Property {
		case scene.TrackTranslation:
			nodes[i].trans = tr
		case scene.TrackRotation:
			nodes[i].rot = tr
		case scene.TrackScale:
			nodes[i].scale = tr
		}
	}

	for _, g := range nodes {
		baked.Nodes = append(baked.Nodes, b.bakeNode(g, start, times, baked.Times))
	}
	for _, g := range weights {
		if w := b.bakeWeights(g, start, times, baked.Times); w != nil {
			baked.Weights = append(baked.Weights, w)
		}
	}
	b.log.Debug("take baked", zap.String("take", take.Name), zap.Int("samples", len(times)),
		zap.Int("nodes", len(baked.Nodes)), zap.Int("weights", len(baked.Weights)))
	return baked, nil
}

func sampleVector(tr *scene.Track, t float64) *geom.Vector3 {
	if tr == nil {
		return nil
	}
	return &geom.Vector3{
		X: geom.Element(tr.Value(0, t)),
		Y: geom.Element(tr.Value(1, t)),
		Z: geom.Element(tr.Value(2, t)),
	}
}

func (b *baker) bakeNode(g *nodeTracks, start float64, times []float64, times32 []float32) *scene.BakedNodeTrack {
	n := b.scene.Nodes[g.node]
	if g.maxKeys() <= 1 {
		times, times32 = times[:1], times32[:1]
	}
	bt := &scene.BakedNodeTrack{Node: g.node, Times: times32}
	// pivots couple the components, so every channel is emitted
	all := n.Transform.Kind == scene.TransformPivot

	var prev *geom.Quaternion
	for _, t := range times {
		abs := start + t
		tr := n.Transform.With(sampleVector(g.trans, abs), sampleVector(g.rot, abs), sampleVector(g.scale, abs))
		m := tr.Evaluate()
		if b.conv != nil {
			m = m.Conjugate(b.conv, b.convInv)
		}
		pos, rot, scale := m.Decompose()
		if prev != nil && prev.Dot(rot) < 0 {
			rot = rot.Negate()
		}
		prev = rot
		if all || g.trans != nil {
			bt.Translations = append(bt.Translations, pos)
		}
		if all || g.rot != nil {
			bt.Rotations = append(bt.Rotations, rot)
		}
		if all || g.scale != nil {
			bt.Scales = append(bt.Scales, scale)
		}
	}
	return bt
}

func (b *baker) bakeWeights(g *weightTracks, start float64, times []float64, times32 []float32) *scene.BakedWeightTrack {
	mesh := b.scene.Mesh(g.mesh)
	if mesh == nil || len(mesh.Targets) == 0 {
		return nil
	}
	if g.maxKeys() <= 1 {
		times, times32 = times[:1], times32[:1]
	}
	bt := &scene.BakedWeightTrack{Node: g.node, Mesh: g.mesh, Times: times32}
	for _, t := range times {
		row := make([]float32, len(mesh.Targets))
		for k, target := range mesh.Targets {
			row[k] = target.Weight
			if tr, ok := g.targets[k]; ok {
				row[k] = float32(tr.Value(0, start+t) / 100)
			}
		}
		bt.Weights = append(bt.Weights, row)
	}
	return bt
}
