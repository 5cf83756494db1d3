package converter

import (
	"math"

	"github.com/binzume/fbx2gltf/fbx"
	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
)

// material properties a texture slot is looked up on, in priority order
var textureProperties = [scene.NumTextureSlots][]string{
	scene.BaseColorTexture: {"DiffuseColor", "Maya|baseColor"},
	scene.NormalTexture:    {"NormalMap", "Bump"},
	scene.EmissiveTexture:  {"EmissiveColor", "Maya|emissionColor"},
}

func (c *fbxToScene) material(m *fbx.Material) scene.MaterialID {
	if id, ok := c.materials[m.ID()]; ok {
		return id
	}
	id := c.dst.AddMaterial(convertMaterial(m))
	c.materials[m.ID()] = id
	return id
}

func convertMaterial(m *fbx.Material) *scene.Material {
	mat := scene.NewMaterial(m.Name())

	diffuse := m.GetColor("DiffuseColor", geom.NewVector3(0.8, 0.8, 0.8)).Scale(m.GetFactor("DiffuseFactor", 1))
	opacity := float32(1)
	if m.HasProperty("Opacity") {
		opacity = m.GetFactor("Opacity", 1)
	} else if m.HasProperty("TransparencyFactor") {
		tc := m.GetColor("TransparentColor", geom.NewVector3(1, 1, 1))
		opacity = 1 - m.GetFactor("TransparencyFactor", 0)*float32(math.Max(float64(tc.X), math.Max(float64(tc.Y), float64(tc.Z))))
	}
	mat.BaseColor = geom.Vector4{X: diffuse.X, Y: diffuse.Y, Z: diffuse.Z, W: clamp01(opacity)}
	mat.Emissive = *m.GetColor("EmissiveColor", nil).Scale(m.GetFactor("EmissiveFactor", 1))

	switch m.GetShadingModel() {
	case "lambert":
		mat.Roughness = 1
	default:
		// Blinn-Phong exponent to GGX roughness
		shininess := m.GetFactor("ShininessExponent", 20)
		if shininess < 0 {
			shininess = 0
		}
		mat.Roughness = clamp01(float32(math.Sqrt(2 / (float64(shininess) + 2))))
	}
	mat.Metallic = clamp01(m.GetFactor("ReflectionFactor", 0) * m.GetColor("ReflectionColor", nil).Len())

	for slot, props := range textureProperties {
		for _, p := range props {
			if t := m.GetTexture(p); t != nil {
				mat.Textures[slot] = textureRef(t)
				break
			}
		}
	}
	if mat.Textures[scene.BaseColorTexture] != nil {
		mat.BaseColor.X, mat.BaseColor.Y, mat.BaseColor.Z = 1, 1, 1
	}
	return mat
}

func textureRef(t *fbx.Texture) *scene.TextureRef {
	ref := &scene.TextureRef{
		Name:             t.Name(),
		FileName:         t.GetFileName(),
		RelativeFileName: t.GetRelativeFileName(),
	}
	if v := t.GetVideo(); v != nil {
		ref.Content = v.GetContent()
		if ref.FileName == "" {
			ref.FileName = v.GetFileName()
		}
		if ref.RelativeFileName == "" {
			ref.RelativeFileName = v.GetRelativeFileName()
		}
	}
	return ref
}

func clamp01(v float32) float32 {
	return float32(math.Max(0, math.Min(float64(v), 1)))
}
