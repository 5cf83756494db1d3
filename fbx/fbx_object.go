package fbx

import (
	"strings"

	"github.com/binzume/fbx2gltf/geom"
)

// Property70 is a typed entry of a Properties70 block.
type Property70 struct {
	PropertyList
	Type  string
	Label string
	Flag  string
}

func (p *Property70) ToFloat32(def float32) float32 {
	return p.Get(0).ToFloat32(def)
}

func (p *Property70) ToFloat64(def float64) float64 {
	return p.Get(0).ToFloat64(def)
}

func (p *Property70) ToInt(def int) int {
	return p.Get(0).ToInt(def)
}

func (p *Property70) ToInt64(def int64) int64 {
	return p.Get(0).ToInt64(def)
}

func (p *Property70) ToString(def string) string {
	return p.Get(0).ToString(def)
}

func (p *Property70) ToVector3(x, y, z float32) *geom.Vector3 {
	return &geom.Vector3{X: p.Get(0).ToFloat32(x), Y: p.Get(1).ToFloat32(y), Z: p.Get(2).ToFloat32(z)}
}

// Valid reports whether the property was found on the object or its template.
func (p *Property70) Valid() bool {
	return p != nil && len(p.PropertyList) > 0
}

type Connection struct {
	Type string
	To   int64
	From int64
	Prop string
}

// Ref is one end of a connection. Prop is set for object-property connections.
type Ref struct {
	Object Object
	Prop   string
}

type Object interface {
	GetNode() *Node
	NodeName() string
	ID() int64
	Name() string
	Kind() string
	GetProperty70(name string) *Property70
	GetRefs() []Ref
	GetOwners() []Ref
	AddRef(o Object, prop string)
	AddOwner(o Object, prop string)
}

type Obj struct {
	*Node
	Template   *Obj
	Refs       []Ref                  // objects connected to this object
	Owners     []Ref                  // objects this object is connected to
	properties map[string]*Property70 // lazy initialize
}

func newObj(typ, name, class, kind string, nodes ...*Node) *Obj {
	children := append(nodes, &Node{Name: "Properties70"})
	return &Obj{Node: &Node{
		Name:       typ,
		Properties: PropertyList{NewProperty(int64(0)), NewProperty(name + nameSeparator + class), NewProperty(kind)},
		Children:   children,
	}}
}

func (o *Obj) GetNode() *Node {
	return o.Node
}

func (o *Obj) NodeName() string {
	return o.Node.Name
}

func (o *Obj) ID() int64 {
	return o.Prop(0).ToInt64(0)
}

func (o *Obj) Name() string {
	s := o.Prop(1).ToString("")
	if name, _, ok := strings.Cut(s, nameSeparator); ok {
		return name
	}
	if _, name, ok := strings.Cut(s, "::"); ok {
		return name
	}
	return s
}

func (o *Obj) Kind() string {
	return o.Prop(2).ToString("")
}

func (o *Obj) GetProperty70(name string) *Property70 {
	if o == nil || o.Node == nil {
		return &Property70{}
	}
	if o.properties == nil {
		o.properties = map[string]*Property70{}
		for _, node := range o.FindChild("Properties70").GetChildren() {
			if len(node.Properties) < 4 {
				continue
			}
			o.properties[node.PropString(0)] = &Property70{
				PropertyList: node.Properties[4:],
				Type:         node.PropString(1),
				Label:        node.PropString(2),
				Flag:         node.PropString(3)}
		}
	}
	if p, ok := o.properties[name]; ok {
		return p
	} else if o.Template != nil {
		return o.Template.GetProperty70(name)
	}
	return &Property70{}
}

func (o *Obj) SetProperty70(name string, prop *Property70) *Property70 {
	if o.properties != nil {
		o.properties[name] = prop
	}
	props := PropertyList{NewProperty(name), NewProperty(prop.Type), NewProperty(prop.Label), NewProperty(prop.Flag)}
	props = append(props, prop.PropertyList...)
	properties70 := o.FindChild("Properties70")
	if properties70 == nil {
		properties70 = o.AddChild(&Node{Name: "Properties70"})
	}
	for _, node := range properties70.GetChildren() {
		if node.PropString(0) == name {
			node.Properties = props
			return prop
		}
	}
	properties70.Children = append(properties70.Children, &Node{Name: "P", Properties: props})
	return prop
}

func (o *Obj) SetIntProperty(name string, v int) *Property70 {
	return o.SetProperty70(name, &Property70{Type: "int", Label: "Integer", PropertyList: PropertyList{NewProperty(int32(v))}})
}

func (o *Obj) SetEnumProperty(name string, v int) *Property70 {
	return o.SetProperty70(name, &Property70{Type: "enum", PropertyList: PropertyList{NewProperty(int32(v))}})
}

func (o *Obj) SetFloatProperty(name string, v float64) *Property70 {
	return o.SetProperty70(name, &Property70{Type: "double", Label: "Number", PropertyList: PropertyList{NewProperty(v)}})
}

func (o *Obj) SetTimeProperty(name string, v int64) *Property70 {
	return o.SetProperty70(name, &Property70{Type: "KTime", Label: "Time", PropertyList: PropertyList{NewProperty(v)}})
}

func (o *Obj) SetStringProperty(name string, v string) *Property70 {
	return o.SetProperty70(name, &Property70{Type: "KString", PropertyList: PropertyList{NewProperty(v)}})
}

func (o *Obj) SetColorProperty(name string, c *geom.Vector3) *Property70 {
	return o.SetProperty70(name, &Property70{Type: "Color", Flag: "A", PropertyList: PropertyList{
		NewProperty(float64(c.X)), NewProperty(float64(c.Y)), NewProperty(float64(c.Z))}})
}

func (o *Obj) SetVector3Property(name, typ string, v *geom.Vector3) *Property70 {
	return o.SetProperty70(name, &Property70{Type: typ, Flag: "A", PropertyList: PropertyList{
		NewProperty(float64(v.X)), NewProperty(float64(v.Y)), NewProperty(float64(v.Z))}})
}

func (o *Obj) GetRefs() []Ref {
	return o.Refs
}

func (o *Obj) GetOwners() []Ref {
	return o.Owners
}

// FindRefs returns connected objects of the given node type in connection order.
func (o *Obj) FindRefs(typ string) []Object {
	var refs []Object
	for _, r := range o.Refs {
		if r.Object.NodeName() == typ {
			refs = append(refs, r.Object)
		}
	}
	return refs
}

// FindPropertyRefs returns objects connected to the named property.
func (o *Obj) FindPropertyRefs(prop string) []Object {
	var refs []Object
	for _, r := range o.Refs {
		if r.Prop == prop {
			refs = append(refs, r.Object)
		}
	}
	return refs
}

func (o *Obj) FindOwners(typ string) []Object {
	var owners []Object
	for _, r := range o.Owners {
		if r.Object.NodeName() == typ {
			owners = append(owners, r.Object)
		}
	}
	return owners
}

func (o *Obj) AddRef(ref Object, prop string) {
	o.Refs = append(o.Refs, Ref{Object: ref, Prop: prop})
}

func (o *Obj) AddOwner(owner Object, prop string) {
	o.Owners = append(o.Owners, Ref{Object: owner, Prop: prop})
}

func (o *Obj) AddOrReplaceChild(node *Node) bool {
	for i, c := range o.Children {
		if c.Name == node.Name {
			o.Children[i] = node
			return false
		}
	}
	o.Children = append(o.Children, node)
	return true
}
