package fbx

import "math"

// TimeUnit is the number of KTime ticks per second.
const TimeUnit = 46186158000

func KTimeToSeconds(t int64) float64 {
	return float64(t) / TimeUnit
}

func SecondsToKTime(s float64) int64 {
	return int64(math.Round(s * TimeUnit))
}

// Interpolation bits of KeyAttrFlags.
const (
	InterpolationConstant = 0x00000002
	InterpolationLinear   = 0x00000004
	InterpolationCubic    = 0x00000008
)

type AnimationStack struct {
	Obj
}

func NewAnimationStack(name string, start, stop int64) *AnimationStack {
	s := &AnimationStack{Obj: *newObj("AnimationStack", name, "AnimStack", "")}
	s.SetTimeProperty("LocalStart", start)
	s.SetTimeProperty("LocalStop", stop)
	return s
}

// GetTimeSpan returns the declared take span in KTime. ok is false when the
// stack declares none.
func (s *AnimationStack) GetTimeSpan() (start, stop int64, ok bool) {
	for _, prefix := range []string{"Local", "Reference"} {
		st, sp := s.GetProperty70(prefix+"Start"), s.GetProperty70(prefix+"Stop")
		if sp.Valid() && sp.ToInt64(0) > st.ToInt64(0) {
			return st.ToInt64(0), sp.ToInt64(0), true
		}
	}
	return 0, 0, false
}

func (s *AnimationStack) GetLayers() []*AnimationLayer {
	var r []*AnimationLayer
	for _, ref := range s.Refs {
		if l, ok := ref.Object.(*AnimationLayer); ok {
			r = append(r, l)
		}
	}
	return r
}

type AnimationLayer struct {
	Obj
}

func NewAnimationLayer(name string) *AnimationLayer {
	return &AnimationLayer{Obj: *newObj("AnimationLayer", name, "AnimLayer", "")}
}

func (l *AnimationLayer) GetCurveNodes() []*AnimationCurveNode {
	var r []*AnimationCurveNode
	for _, ref := range l.Refs {
		if n, ok := ref.Object.(*AnimationCurveNode); ok {
			r = append(r, n)
		}
	}
	return r
}

// AnimationCurveNode groups the component curves of one animated property.
type AnimationCurveNode struct {
	Obj
}

func NewAnimationCurveNode(name string, defaults map[string]float64) *AnimationCurveNode {
	n := &AnimationCurveNode{Obj: *newObj("AnimationCurveNode", name, "AnimCurveNode", "")}
	for _, ch := range []string{"d|X", "d|Y", "d|Z", "d|DeformPercent"} {
		if v, ok := defaults[ch]; ok {
			n.SetProperty70(ch, &Property70{Type: "Number", Flag: "A", PropertyList: PropertyList{NewProperty(v)}})
		}
	}
	return n
}

// GetTarget returns the animated object and property name.
func (n *AnimationCurveNode) GetTarget() (Object, string) {
	for _, ref := range n.Owners {
		if ref.Prop != "" {
			return ref.Object, ref.Prop
		}
	}
	return nil, ""
}

// GetCurve returns the curve connected to a channel such as "d|X".
func (n *AnimationCurveNode) GetCurve(channel string) *AnimationCurve {
	for _, o := range n.FindPropertyRefs(channel) {
		if c, ok := o.(*AnimationCurve); ok {
			return c
		}
	}
	return nil
}

// GetDefault returns the channel value used when no curve is connected.
func (n *AnimationCurveNode) GetDefault(channel string, def float64) float64 {
	return n.GetProperty70(channel).ToFloat64(def)
}

type AnimationCurve struct {
	Obj
}

type Key struct {
	Time          int64
	Value         float64
	Flags         int32
	RightSlope    float64
	NextLeftSlope float64
	HasSlopes     bool
}

func (k *Key) Interpolation() int32 {
	switch {
	case k.Flags&InterpolationConstant != 0:
		return InterpolationConstant
	case k.Flags&InterpolationLinear != 0:
		return InterpolationLinear
	default:
		return InterpolationCubic
	}
}

func NewAnimationCurve(name string, times []int64, values []float32, flags int32) *AnimationCurve {
	var def float64
	if len(values) > 0 {
		def = float64(values[0])
	}
	return &AnimationCurve{Obj: *newObj("AnimationCurve", name, "AnimCurve", "",
		NewNode("Default", def),
		NewNode("KeyVer", 4009),
		NewNode("KeyTime", times),
		NewNode("KeyValueFloat", values),
		NewNode("KeyAttrFlags", []int32{flags}),
		NewNode("KeyAttrDataFloat", []float32{0, 0, 0, 0}),
		NewNode("KeyAttrRefCount", []int32{int32(len(times))}),
	)}
}

func (c *AnimationCurve) GetDefault() float64 {
	return c.FindChild("Default").Prop(0).ToFloat64(0)
}

// GetKeys expands the shared key attributes. Keys missing a value are dropped.
func (c *AnimationCurve) GetKeys() []Key {
	times := c.FindChild("KeyTime").Prop(0).ToInt64Array()
	values := c.FindChild("KeyValueFloat").Prop(0).ToFloat64Array()
	flags := c.FindChild("KeyAttrFlags").Prop(0).ToInt32Array()
	data := c.FindChild("KeyAttrDataFloat").Prop(0).ToFloat64Array()
	refs := c.FindChild("KeyAttrRefCount").Prop(0).ToInt32Array()

	n := len(times)
	if len(values) < n {
		n = len(values)
	}
	keys := make([]Key, n)
	attr, used := 0, 0
	for i := range keys {
		keys[i] = Key{Time: times[i], Value: values[i], Flags: InterpolationCubic}
		for attr < len(refs) && used >= int(refs[attr]) {
			attr++
			used = 0
		}
		if attr < len(flags) {
			keys[i].Flags = flags[attr]
		}
		if attr*4+1 < len(data) {
			keys[i].RightSlope = data[attr*4]
			keys[i].NextLeftSlope = data[attr*4+1]
			keys[i].HasSlopes = true
		}
		used++
	}
	return keys
}
