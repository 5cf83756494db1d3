package fbx

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/binzume/fbx2gltf/geom"
)

// nameSeparator joins object name and class in binary files ("name\x00\x01Class").
// Text files write "Class::name" instead.
const nameSeparator = "\x00\x01"

type Node struct {
	Name       string
	Properties PropertyList
	Children   []*Node
}

// NewNode returns a node whose property types are inferred from the Go types of values.
func NewNode(name string, values ...interface{}) *Node {
	n := &Node{Name: name}
	for _, v := range values {
		n.Properties = append(n.Properties, NewProperty(v))
	}
	return n
}

func NewProperty(v interface{}) *Property {
	switch v := v.(type) {
	case *Property:
		return v
	case bool:
		if v {
			return &Property{Type: 'C', Value: byte('T')}
		}
		return &Property{Type: 'C', Value: byte('F')}
	case byte:
		return &Property{Type: 'C', Value: v}
	case int16:
		return &Property{Type: 'Y', Value: v}
	case int32:
		return &Property{Type: 'I', Value: v}
	case int:
		if int64(int32(v)) == int64(v) {
			return &Property{Type: 'I', Value: int32(v)}
		}
		return &Property{Type: 'L', Value: int64(v)}
	case int64:
		return &Property{Type: 'L', Value: v}
	case float32:
		return &Property{Type: 'F', Value: v}
	case float64:
		return &Property{Type: 'D', Value: v}
	case string:
		return &Property{Type: 'S', Value: v}
	case []byte:
		return &Property{Type: 'R', Value: v}
	case []bool:
		b := make([]byte, len(v))
		for i, f := range v {
			if f {
				b[i] = 1
			}
		}
		return &Property{Type: 'b', Value: b, Count: uint(len(b))}
	case []int32:
		return &Property{Type: 'i', Value: v, Count: uint(len(v))}
	case []int64:
		return &Property{Type: 'l', Value: v, Count: uint(len(v))}
	case []float32:
		return &Property{Type: 'f', Value: v, Count: uint(len(v))}
	case []float64:
		return &Property{Type: 'd', Value: v, Count: uint(len(v))}
	}
	panic(fmt.Sprintf("fbx: unsupported property value %T", v))
}

func (n *Node) FindChild(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) FindChildren(name string) []*Node {
	if n == nil {
		return nil
	}
	var r []*Node
	for _, c := range n.Children {
		if c.Name == name {
			r = append(r, c)
		}
	}
	return r
}

func (n *Node) GetChildren() []*Node {
	if n == nil {
		return nil
	}
	return n.Children
}

func (n *Node) GetProperties() PropertyList {
	if n == nil {
		return nil
	}
	return n.Properties
}

func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

func (n *Node) Prop(i int) *Property {
	if n == nil {
		return nil
	}
	return n.Properties.Get(i)
}

func (n *Node) PropValue(i int) interface{} {
	if p := n.Prop(i); p != nil {
		return p.Value
	}
	return nil
}

func (n *Node) PropInt(i int) int {
	return n.Prop(i).ToInt(0)
}

func (n *Node) PropInt64(i int) int64 {
	return n.Prop(i).ToInt64(0)
}

func (n *Node) PropFloat(i int) float32 {
	return n.Prop(i).ToFloat32(0)
}

func (n *Node) PropString(i int) string {
	return n.Prop(i).ToString("")
}

// Property is a node value. Type is the binary type code ('I', 'D', 'S', 'd', ...)
// and Count is the element count of array properties.
type Property struct {
	Type  byte
	Value interface{}
	Count uint
}

type PropertyList []*Property

func (p PropertyList) Get(i int) *Property {
	if i < 0 || i >= len(p) {
		return nil
	}
	return p[i]
}

func (p *Property) IsArray() bool {
	return p != nil && p.Type >= 'a' && p.Type <= 'z'
}

func (p *Property) ToInt(defvalue int) int {
	return int(p.ToInt64(int64(defvalue)))
}

func (p *Property) ToInt64(defvalue int64) int64 {
	if p == nil {
		return defvalue
	}
	switch v := p.Value.(type) {
	case byte:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return defvalue
}

func (p *Property) ToFloat32(defvalue float32) float32 {
	return float32(p.ToFloat64(float64(defvalue)))
}

func (p *Property) ToFloat64(defvalue float64) float64 {
	if p == nil {
		return defvalue
	}
	switch v := p.Value.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case byte:
		return float64(v)
	}
	return defvalue
}

func (p *Property) ToString(defvalue string) string {
	if p == nil {
		return defvalue
	}
	if v, ok := p.Value.(string); ok {
		return v
	} else if v, ok := p.Value.([]byte); ok {
		return string(v)
	}
	return defvalue
}

// ToBytes returns raw data. Text files store raw data as base64 strings.
func (p *Property) ToBytes() []byte {
	if p == nil {
		return nil
	}
	switch v := p.Value.(type) {
	case []byte:
		return v
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

func (p *Property) ToVec3Array() []*geom.Vector3 {
	v := p.ToFloat64Array()
	var vv []*geom.Vector3
	for i := 0; i < len(v)/3; i++ {
		vv = append(vv, geom.NewVector3FromFloat64(v[i*3], v[i*3+1], v[i*3+2]))
	}
	return vv
}

func (p *Property) ToVec2Array() []*geom.Vector2 {
	v := p.ToFloat64Array()
	var vv []*geom.Vector2
	for i := 0; i < len(v)/2; i++ {
		vv = append(vv, geom.NewVector2FromFloat64(v[i*2], v[i*2+1]))
	}
	return vv
}

func (p *Property) ToInt32Array() []int32 {
	if p == nil {
		return nil
	}
	if vv, ok := p.Value.([]int32); ok {
		return vv
	}
	vv := p.ToInt64Array()
	if vv == nil {
		return nil
	}
	r := make([]int32, len(vv))
	for i, v := range vv {
		r[i] = int32(v)
	}
	return r
}

func (p *Property) ToInt64Array() []int64 {
	if p == nil {
		return nil
	}
	var r []int64
	switch vv := p.Value.(type) {
	case []int64:
		return vv
	case []int32:
		r = make([]int64, len(vv))
		for i, v := range vv {
			r[i] = int64(v)
		}
	case []byte:
		r = make([]int64, len(vv))
		for i, v := range vv {
			r[i] = int64(v)
		}
	case []float64:
		r = make([]int64, len(vv))
		for i, v := range vv {
			r[i] = int64(v)
		}
	}
	return r
}

func (p *Property) ToFloat32Array() []float32 {
	if p == nil {
		return nil
	}
	if vv, ok := p.Value.([]float32); ok {
		return vv
	}
	vv := p.ToFloat64Array()
	if vv == nil {
		return nil
	}
	r := make([]float32, len(vv))
	for i, v := range vv {
		r[i] = float32(v)
	}
	return r
}

func (p *Property) ToFloat64Array() []float64 {
	if p == nil {
		return nil
	}
	var r []float64
	switch vv := p.Value.(type) {
	case []float64:
		return vv
	case []float32:
		r = make([]float64, len(vv))
		for i, v := range vv {
			r[i] = float64(v)
		}
	case []int32:
		r = make([]float64, len(vv))
		for i, v := range vv {
			r[i] = float64(v)
		}
	case []int64:
		r = make([]float64, len(vv))
		for i, v := range vv {
			r[i] = float64(v)
		}
	}
	return r
}

func (p *Property) String() string {
	switch v := p.Value.(type) {
	case string:
		if name, class, ok := strings.Cut(v, nameSeparator); ok {
			v = class + "::" + name
		}
		return `"` + strings.ReplaceAll(v, `"`, "&quot;") + `"`
	case []byte:
		if p.Type == 'b' {
			return fmt.Sprint(v)
		}
		return strconv.Quote(base64.StdEncoding.EncodeToString(v))
	case byte:
		if p.Type == 'C' && (v >= 'A' && v <= 'Z' || v >= 'a' && v <= 'z') {
			return string(rune(v))
		}
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Dump writes n in the text FBX syntax. Arrays longer than 16 are elided unless full is set.
func (n *Node) Dump(w io.Writer, d int, full bool) {
	fmt.Fprint(w, strings.Repeat("\t", d), n.Name, ":")
	var arrayReplacer = strings.NewReplacer("[", "{ a: ", "]", " }", " ", ",")
	for i, p := range n.Properties {
		var s string
		if p.IsArray() {
			if !full && p.Count > 16 {
				s = fmt.Sprintf("*%d { SKIPPED }", p.Count)
			} else {
				s = fmt.Sprint("*", p.Count, " ", arrayReplacer.Replace(fmt.Sprint(p.Value)))
			}
		} else {
			s = p.String()
		}
		if i == 0 {
			fmt.Fprint(w, " ", s)
		} else {
			fmt.Fprint(w, ", ", s)
		}
	}
	if len(n.Children) > 0 || len(n.Properties) == 0 {
		fmt.Fprintln(w, " {")
		for _, c := range n.Children {
			c.Dump(w, d+1, full)
		}
		fmt.Fprintln(w, strings.Repeat("\t", d)+"}")
	} else {
		fmt.Fprintln(w, "")
	}
}
