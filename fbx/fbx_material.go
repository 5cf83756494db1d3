package fbx

import (
	"path/filepath"
	"strings"

	"github.com/binzume/fbx2gltf/geom"
)

type Material struct {
	Obj
}

func NewMaterial(name string) *Material {
	mat := &Material{
		Obj: *newObj("Material", name, "Material", "", NewNode("Version", 102)),
	}
	mat.SetStringProperty("ShadingModel", "phong")
	return mat
}

func (m *Material) GetShadingModel() string {
	s := m.GetProperty70("ShadingModel").ToString("")
	if s == "" {
		s = m.FindChild("ShadingModel").PropString(0)
	}
	return strings.ToLower(s)
}

func (m *Material) GetColor(name string, def *geom.Vector3) *geom.Vector3 {
	if def == nil {
		def = &geom.Vector3{}
	}
	return m.GetProperty70(name).ToVector3(def.X, def.Y, def.Z)
}

func (m *Material) HasProperty(name string) bool {
	return m.GetProperty70(name).Valid()
}

func (m *Material) SetColor(name string, c *geom.Vector3) {
	m.SetColorProperty(name, c)
}

func (m *Material) GetFactor(name string, def float32) float32 {
	return m.GetProperty70(name).ToFloat32(def)
}

func (m *Material) SetFactor(name string, v float64) {
	m.SetFloatProperty(name, v)
}

// GetTexture returns the texture connected to the named property, e.g. "DiffuseColor".
func (m *Material) GetTexture(prop string) *Texture {
	for _, o := range m.FindPropertyRefs(prop) {
		if t, ok := o.(*Texture); ok {
			return t
		}
	}
	return nil
}

type Texture struct {
	Obj
}

func NewTexture(name, fileName string) *Texture {
	t := &Texture{Obj: *newObj("Texture", name, "Texture", "",
		NewNode("Type", "TextureVideoClip"),
		NewNode("Version", 202),
		NewNode("TextureName", name+nameSeparator+"Texture"),
		NewNode("FileName", fileName),
		NewNode("RelativeFilename", filepath.Base(fileName)),
	)}
	return t
}

func (t *Texture) GetFileName() string {
	if s := t.FindChild("FileName").PropString(0); s != "" {
		return s
	}
	return t.GetProperty70("Path").ToString("")
}

func (t *Texture) GetRelativeFileName() string {
	return t.FindChild("RelativeFilename").PropString(0)
}

// GetVideo returns the media object carrying the image, if any.
func (t *Texture) GetVideo() *Video {
	for _, ref := range t.Refs {
		if v, ok := ref.Object.(*Video); ok {
			return v
		}
	}
	return nil
}

// Video holds a texture's image file reference and optionally its bytes.
type Video struct {
	Obj
}

func NewVideo(name, fileName string, content []byte) *Video {
	nodes := []*Node{
		NewNode("Type", "Clip"),
		NewNode("FileName", fileName),
		NewNode("RelativeFilename", filepath.Base(fileName)),
	}
	if content != nil {
		nodes = append(nodes, NewNode("Content", content))
	}
	return &Video{Obj: *newObj("Video", name, "Video", "Clip", nodes...)}
}

func (v *Video) GetFileName() string {
	return v.FindChild("FileName").PropString(0)
}

func (v *Video) GetRelativeFileName() string {
	return v.FindChild("RelativeFilename").PropString(0)
}

// GetContent returns the embedded file bytes, nil when the file is external.
func (v *Video) GetContent() []byte {
	c := v.FindChild("Content")
	for _, p := range c.GetProperties() {
		if b := p.ToBytes(); len(b) > 0 {
			return b
		}
	}
	return nil
}
