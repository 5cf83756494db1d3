package scene

import "github.com/binzume/fbx2gltf/geom"

type TextureSlot int

const (
	BaseColorTexture TextureSlot = iota
	NormalTexture
	EmissiveTexture
	NumTextureSlots
)

func (s TextureSlot) String() string {
	return [...]string{"baseColor", "normal", "emissive"}[s]
}

// TextureRef records where a texture comes from. Image is filled in by
// media resolution.
type TextureRef struct {
	Name             string
	FileName         string
	RelativeFileName string
	Content          []byte
	Image            *Image
}

type Image struct {
	Name     string
	MimeType string
	Data     []byte
	// Embedded is set when the bytes came from the source file itself.
	Embedded bool
}

type Material struct {
	Name      string
	BaseColor geom.Vector4 // rgb and opacity
	Emissive  geom.Vector3
	Metallic  float32
	Roughness float32
	Textures  [NumTextureSlots]*TextureRef
}

func NewMaterial(name string) *Material {
	return &Material{Name: name, BaseColor: geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}, Roughness: 1}
}
