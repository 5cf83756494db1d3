package scene

import (
	"sort"

	"github.com/binzume/fbx2gltf/geom"
)

type Interpolation int

const (
	InterpolationConstant Interpolation = iota
	InterpolationLinear
	InterpolationCubic
)

// Key is a curve key. Time is in seconds; slopes are value per second.
type Key struct {
	Time          float64
	Value         float64
	Interpolation Interpolation
	RightSlope    float64
	NextLeftSlope float64
	HasSlopes     bool
}

// Curve is a sparse keyframe curve with keys in ascending time order.
type Curve struct {
	Keys []Key
}

// Evaluate returns the curve value at t, clamped to the first and last key.
func (c *Curve) Evaluate(t float64) float64 {
	keys := c.Keys
	if len(keys) == 0 {
		return 0
	}
	if t <= keys[0].Time {
		return keys[0].Value
	}
	last := len(keys) - 1
	if t >= keys[last].Time {
		return keys[last].Value
	}
	// keys[i].Time <= t < keys[i+1].Time
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t }) - 1
	k0, k1 := &keys[i], &keys[i+1]
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k1.Value
	}
	s := (t - k0.Time) / dt
	switch k0.Interpolation {
	case InterpolationConstant:
		return k0.Value
	case InterpolationLinear:
		return k0.Value + (k1.Value-k0.Value)*s
	}

	m0, m1 := k0.RightSlope, k0.NextLeftSlope
	if !k0.HasSlopes {
		m0 = c.catmullRomSlope(i)
		m1 = c.catmullRomSlope(i + 1)
	}
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*k0.Value + h10*dt*m0 + h01*k1.Value + h11*dt*m1
}

func (c *Curve) catmullRomSlope(i int) float64 {
	keys := c.Keys
	prev, next := i-1, i+1
	if prev < 0 {
		prev = i
	}
	if next >= len(keys) {
		next = i
	}
	dt := keys[next].Time - keys[prev].Time
	if dt <= 0 {
		return 0
	}
	return (keys[next].Value - keys[prev].Value) / dt
}

type TrackProperty int

const (
	TrackTranslation TrackProperty = iota
	TrackRotation
	TrackScale
	TrackMorphWeight
)

func (p TrackProperty) String() string {
	return [...]string{"translation", "rotation", "scale", "weights"}[p]
}

// Track animates one property of one node. Component curves may be nil, in
// which case Defaults applies. Morph weight tracks use Curves[0] in percent.
type Track struct {
	Node     NodeID
	Property TrackProperty
	Curves   [3]*Curve
	Defaults [3]float64

	// morph weight target
	Mesh   MeshID
	Target int
}

// KeyRange returns the time span covered by the track's keys.
func (t *Track) KeyRange() (start, stop float64, ok bool) {
	for _, c := range t.Curves {
		if c == nil || len(c.Keys) == 0 {
			continue
		}
		first, last := c.Keys[0].Time, c.Keys[len(c.Keys)-1].Time
		if !ok || first < start {
			start = first
		}
		if !ok || last > stop {
			stop = last
		}
		ok = true
	}
	return
}

// MaxKeys returns the largest key count of the component curves.
func (t *Track) MaxKeys() int {
	n := 0
	for _, c := range t.Curves {
		if c != nil && len(c.Keys) > n {
			n = len(c.Keys)
		}
	}
	return n
}

// Value evaluates component i at time t.
func (t *Track) Value(i int, time float64) float64 {
	if c := t.Curves[i]; c != nil && len(c.Keys) > 0 {
		return c.Evaluate(time)
	}
	return t.Defaults[i]
}

type Take struct {
	Name string
	// Start and Stop are the declared span in seconds. HasSpan is false when
	// the file declares none.
	Start, Stop float64
	HasSpan     bool
	Tracks      []*Track
}

// KeyRange returns the span covered by all keys of the take.
func (t *Take) KeyRange() (start, stop float64, ok bool) {
	for _, tr := range t.Tracks {
		s, e, tok := tr.KeyRange()
		if !tok {
			continue
		}
		if !ok || s < start {
			start = s
		}
		if !ok || e > stop {
			stop = e
		}
		ok = true
	}
	return
}

// BakedTake is a take resampled at a fixed rate. Times are relative to the
// window start.
type BakedTake struct {
	Name     string
	Rate     float64
	Duration float64
	Times    []float32

	Suspect          bool
	DeclaredDuration float64

	Nodes   []*BakedNodeTrack
	Weights []*BakedWeightTrack
}

// BakedNodeTrack holds local TRS samples of one node. Unanimated components are nil.
type BakedNodeTrack struct {
	Node         NodeID
	Times        []float32
	Translations []*geom.Vector3
	Rotations    []*geom.Quaternion
	Scales       []*geom.Vector3
}

// BakedWeightTrack holds morph weight samples of one node, one row per sample
// with a weight for every morph target of the mesh.
type BakedWeightTrack struct {
	Node    NodeID
	Mesh    MeshID
	Times   []float32
	Weights [][]float32
}
