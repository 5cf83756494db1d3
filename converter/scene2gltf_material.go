package converter

import (
	"bytes"
	"image"

	"github.com/binzume/fbx2gltf/gltfutil"
	"github.com/binzume/fbx2gltf/scene"
	"github.com/qmuntal/gltf"
)

func (b *sceneToGltf) material(id scene.MaterialID) uint32 {
	if index, ok := b.materials[id]; ok {
		return index
	}
	mat := b.scene.Materials[id]
	baseColor := mat.BaseColor.Array()
	metallic, roughness := mat.Metallic, mat.Roughness
	mm := &gltf.Material{
		Name: mat.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &baseColor,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
		EmissiveFactor: mat.Emissive.Array(),
	}

	if ref := mat.Textures[scene.BaseColorTexture]; ref != nil && ref.Image != nil {
		mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: b.texture(ref.Image)}
	}
	if ref := mat.Textures[scene.NormalTexture]; ref != nil && ref.Image != nil {
		mm.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(b.texture(ref.Image))}
	}
	if ref := mat.Textures[scene.EmissiveTexture]; ref != nil && ref.Image != nil {
		mm.EmissiveTexture = &gltf.TextureInfo{Index: b.texture(ref.Image)}
		if mm.EmissiveFactor == [3]float32{} {
			mm.EmissiveFactor = [3]float32{1, 1, 1}
		}
	}
	if mat.BaseColor.W < 0.99 || hasAlpha(mat.Textures[scene.BaseColorTexture]) {
		mm.AlphaMode = gltf.AlphaBlend
	}

	index := uint32(len(b.Materials))
	b.Materials = append(b.Materials, mm)
	b.materials[id] = index
	return index
}

// hasAlpha reports whether a PNG texture has transparent pixels.
func hasAlpha(ref *scene.TextureRef) bool {
	if ref == nil || ref.Image == nil || ref.Image.MimeType != "image/png" {
		return false
	}
	img, _, err := image.Decode(bytes.NewReader(ref.Image.Data))
	if err != nil {
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

// texture returns the texture of img, adding the image on first use.
func (b *sceneToGltf) texture(img *scene.Image) uint32 {
	if index, ok := b.textures[img]; ok {
		return index
	}
	source, ok := b.images[img]
	if !ok {
		source = b.AddImage(&gltfutil.ImageSource{
			Name:     img.Name,
			MimeType: img.MimeType,
			Data:     img.Data,
			Embedded: img.Embedded,
		})
		b.images[img] = source
	}
	if len(b.Samplers) == 0 {
		b.Samplers = append(b.Samplers, &gltf.Sampler{})
	}
	b.Textures = append(b.Textures, &gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(source)})
	index := uint32(len(b.Textures) - 1)
	b.textures[img] = index
	return index
}
