package converter

import (
	"github.com/binzume/fbx2gltf/fbx"
	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
	"go.uber.org/zap"
)

var componentChannels = [3]string{"d|X", "d|Y", "d|Z"}

func (c *fbxToScene) convertAnimations() {
	for _, o := range c.doc.Objects {
		stack, ok := o.(*fbx.AnimationStack)
		if !ok {
			continue
		}
		take := &scene.Take{Name: stack.Name()}
		if start, stop, ok := stack.GetTimeSpan(); ok {
			take.Start, take.Stop, take.HasSpan = fbx.KTimeToSeconds(start), fbx.KTimeToSeconds(stop), true
		}
		layers := stack.GetLayers()
		if len(layers) > 1 {
			c.log.Info("only the first animation layer is converted", zap.String("take", take.Name), zap.Int("layers", len(layers)))
		}
		if len(layers) > 0 {
			for _, cn := range layers[0].GetCurveNodes() {
				take.Tracks = append(take.Tracks, c.convertCurveNode(cn)...)
			}
		}
		c.dst.Takes = append(c.dst.Takes, take)
	}
}

func (c *fbxToScene) convertCurveNode(cn *fbx.AnimationCurveNode) []*scene.Track {
	target, prop := cn.GetTarget()
	switch t := target.(type) {
	case *fbx.Model:
		node, ok := c.nodes[t.ID()]
		if !ok {
			return nil
		}
		var property scene.TrackProperty
		var value *geom.Vector3
		switch prop {
		case "Lcl Translation":
			property, value = scene.TrackTranslation, t.GetTranslation()
		case "Lcl Rotation":
			property, value = scene.TrackRotation, t.GetRotation()
		case "Lcl Scaling":
			property, value = scene.TrackScale, t.GetScaling()
		default:
			c.log.Debug("unsupported animated property", zap.String("model", t.Name()), zap.String("property", prop))
			return nil
		}
		tr := &scene.Track{Node: node, Property: property, Mesh: scene.NoMesh}
		static := value.Array()
		for i, ch := range componentChannels {
			tr.Defaults[i] = cn.GetDefault(ch, float64(static[i]))
			tr.Curves[i] = convertCurve(cn.GetCurve(ch))
		}
		return []*scene.Track{tr}
	case *fbx.BlendShapeChannel:
		mc, ok := c.channels[t.ID()]
		if !ok || prop != "DeformPercent" {
			return nil
		}
		curve := convertCurve(cn.GetCurve("d|DeformPercent"))
		def := cn.GetDefault("d|DeformPercent", t.GetDeformPercent())
		var tracks []*scene.Track
		for _, node := range c.geomUsers[mc.geometry] {
			tracks = append(tracks, &scene.Track{
				Node:     node,
				Property: scene.TrackMorphWeight,
				Curves:   [3]*scene.Curve{curve},
				Defaults: [3]float64{def},
				Mesh:     c.dst.Nodes[node].Mesh,
				Target:   mc.target,
			})
		}
		return tracks
	}
	return nil
}

// convertCurve returns nil for a missing or empty curve. Keys that do not
// advance in time are dropped.
func convertCurve(src *fbx.AnimationCurve) *scene.Curve {
	if src == nil {
		return nil
	}
	keys := src.GetKeys()
	if len(keys) == 0 {
		return nil
	}
	curve := &scene.Curve{Keys: make([]scene.Key, 0, len(keys))}
	for _, k := range keys {
		key := scene.Key{
			Time:          fbx.KTimeToSeconds(k.Time),
			Value:         k.Value,
			RightSlope:    k.RightSlope,
			NextLeftSlope: k.NextLeftSlope,
			HasSlopes:     k.HasSlopes,
		}
		switch k.Interpolation() {
		case fbx.InterpolationConstant:
			key.Interpolation = scene.InterpolationConstant
		case fbx.InterpolationLinear:
			key.Interpolation = scene.InterpolationLinear
		default:
			key.Interpolation = scene.InterpolationCubic
		}
		if n := len(curve.Keys); n > 0 && key.Time <= curve.Keys[n-1].Time {
			continue
		}
		curve.Keys = append(curve.Keys, key)
	}
	return curve
}
