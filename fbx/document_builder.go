package fbx

import (
	"fmt"
)

// Document is the object graph of an FBX file. Objects keep file order.
type Document struct {
	Version      uint32
	FileId       []byte
	Creator      string
	CreationTime string

	GlobalSettings *GlobalSettings
	Scene          *Model
	Objects        []Object
	Connections    []*Connection

	RawNode *Node

	objects map[int64]Object
	nextID  int64
}

// NewDocument returns an empty document with default (Y up, centimeter) settings.
func NewDocument() *Document {
	doc := &Document{Scene: newSceneRoot(), objects: map[int64]Object{}, nextID: 1000}
	doc.objects[0] = doc.Scene
	doc.GlobalSettings = &GlobalSettings{Obj: Obj{Node: &Node{Name: "GlobalSettings", Children: []*Node{
		NewNode("Version", 1000),
		{Name: "Properties70"},
	}}}}
	doc.GlobalSettings.SetAxisSystem(DefaultAxisSystem)
	doc.GlobalSettings.SetFloatProperty("UnitScaleFactor", 1)
	return doc
}

func newSceneRoot() *Model {
	m := &Model{Obj: *newObj("Model", "RootNode", "Model", "Null")}
	return m
}

func (doc *Document) FindObject(id int64) Object {
	return doc.objects[id]
}

// AddObject registers o and assigns an ID when it has none.
func (doc *Document) AddObject(o Object) {
	n := o.GetNode()
	if o.ID() == 0 {
		doc.nextID++
		n.Properties[0] = NewProperty(doc.nextID)
	}
	doc.Objects = append(doc.Objects, o)
	doc.objects[o.ID()] = o
}

// AddConnection connects child to parent ("OO").
func (doc *Document) AddConnection(parent, child Object) {
	doc.connect(&Connection{Type: "OO", From: child.ID(), To: parent.ID()})
}

// AddPropertyConnection connects child to a property of parent ("OP").
func (doc *Document) AddPropertyConnection(parent Object, prop string, child Object) {
	doc.connect(&Connection{Type: "OP", From: child.ID(), To: parent.ID(), Prop: prop})
}

func (doc *Document) connect(c *Connection) bool {
	from := doc.objects[c.From]
	to := doc.objects[c.To]
	if to == nil || from == nil {
		return false
	}
	doc.Connections = append(doc.Connections, c)
	to.AddRef(from, c.Prop)
	from.AddOwner(to, c.Prop)
	return true
}

func parseConnection(node *Node) *Connection {
	c := &Connection{
		Type: node.PropString(0),
		From: node.PropInt64(1),
		To:   node.PropInt64(2),
	}
	if c.Type == "OP" {
		c.Prop = node.PropString(3)
	}
	return c
}

func newObject(base *Obj) Object {
	switch base.Node.Name {
	case "Model":
		return &Model{Obj: *base}
	case "Geometry":
		if base.Kind() == "Shape" {
			return &Shape{Obj: *base}
		}
		return &Geometry{Obj: *base}
	case "Material":
		return &Material{Obj: *base}
	case "Texture":
		return &Texture{Obj: *base}
	case "Video":
		return &Video{Obj: *base}
	case "Deformer":
		switch base.Kind() {
		case "Skin":
			return &Skin{Obj: *base}
		case "Cluster":
			return &Cluster{Obj: *base}
		case "BlendShape":
			return &BlendShape{Obj: *base}
		case "BlendShapeChannel":
			return &BlendShapeChannel{Obj: *base}
		}
	case "AnimationStack":
		return &AnimationStack{Obj: *base}
	case "AnimationLayer":
		return &AnimationLayer{Obj: *base}
	case "AnimationCurveNode":
		return &AnimationCurveNode{Obj: *base}
	case "AnimationCurve":
		return &AnimationCurve{Obj: *base}
	}
	return base
}

// BuildDocument builds the object graph from a parsed node tree.
func BuildDocument(root *Node) (*Document, error) {
	doc := &Document{RawNode: root, Scene: newSceneRoot(), objects: map[int64]Object{}}
	doc.objects[0] = doc.Scene

	header := root.FindChild("FBXHeaderExtension")
	doc.Creator = root.FindChild("Creator").PropString(0)
	if doc.Creator == "" {
		doc.Creator = header.FindChild("Creator").PropString(0)
	}
	doc.CreationTime = root.FindChild("CreationTime").PropString(0)
	doc.FileId, _ = root.FindChild("FileId").PropValue(0).([]byte)

	templates := map[string]*Obj{}
	for _, node := range root.FindChild("Definitions").GetChildren() {
		if node.Name != "ObjectType" {
			continue
		}
		if t := node.FindChild("PropertyTemplate"); t != nil {
			templates[node.PropString(0)] = &Obj{Node: t}
		}
	}
	doc.GlobalSettings = &GlobalSettings{Obj: Obj{Node: root.FindChild("GlobalSettings"), Template: templates["GlobalSettings"]}}
	if doc.GlobalSettings.Node == nil {
		doc.GlobalSettings.Node = &Node{Name: "GlobalSettings"}
	}

	for _, node := range root.FindChild("Objects").GetChildren() {
		base := &Obj{Node: node, Template: templates[node.Name]}
		id := base.ID()
		if id == 0 {
			continue
		}
		if _, dup := doc.objects[id]; dup {
			return nil, &ParseError{Offset: -1, Node: node.Name, Err: fmt.Errorf("%w: duplicate object id %d", ErrBadRecord, id)}
		}
		obj := newObject(base)
		doc.Objects = append(doc.Objects, obj)
		doc.objects[id] = obj
		if id > doc.nextID {
			doc.nextID = id
		}
	}

	for _, node := range root.FindChild("Connections").GetChildren() {
		if node.Name != "C" {
			continue
		}
		c := parseConnection(node)
		if c.Type == "OO" || c.Type == "OP" {
			doc.connect(c)
		}
	}
	return doc, nil
}

// Build returns the node tree of doc, suitable for WriteBinary and WriteText.
func (doc *Document) Build() *Node {
	root := &Node{Name: rootNodeName}
	version := doc.Version
	if version == 0 {
		version = 7400
	}
	header := root.AddChild(NewNode("FBXHeaderExtension"))
	header.AddChild(NewNode("FBXHeaderVersion", 1003))
	header.AddChild(NewNode("FBXVersion", int(version)))
	header.AddChild(NewNode("Creator", "fbx2gltf"))
	root.AddChild(doc.GlobalSettings.Node)

	objects := root.AddChild(NewNode("Objects"))
	for _, o := range doc.Objects {
		objects.AddChild(o.GetNode())
	}
	connections := root.AddChild(NewNode("Connections"))
	for _, c := range doc.Connections {
		if c.Type == "OP" {
			connections.AddChild(NewNode("C", c.Type, c.From, c.To, c.Prop))
		} else {
			connections.AddChild(NewNode("C", c.Type, c.From, c.To))
		}
	}
	doc.RawNode = root
	return root
}
