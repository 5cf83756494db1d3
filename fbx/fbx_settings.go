package fbx

// AxisSystem describes the file's coordinate axes. Axis values are 0 (X), 1 (Y) or 2 (Z)
// and signs are +1 or -1.
type AxisSystem struct {
	UpAxis, UpSign       int
	FrontAxis, FrontSign int
	CoordAxis, CoordSign int
}

// DefaultAxisSystem is Y up, Z front, X right (the FBX SDK default).
var DefaultAxisSystem = AxisSystem{UpAxis: 1, UpSign: 1, FrontAxis: 2, FrontSign: 1, CoordAxis: 0, CoordSign: 1}

func (a AxisSystem) Valid() bool {
	if a.UpAxis == a.FrontAxis || a.UpAxis == a.CoordAxis || a.FrontAxis == a.CoordAxis {
		return false
	}
	for _, v := range []int{a.UpAxis, a.FrontAxis, a.CoordAxis} {
		if v < 0 || v > 2 {
			return false
		}
	}
	for _, s := range []int{a.UpSign, a.FrontSign, a.CoordSign} {
		if s != 1 && s != -1 {
			return false
		}
	}
	return true
}

type GlobalSettings struct {
	Obj
}

// AxisSystem returns the declared axes, or DefaultAxisSystem when they are missing or inconsistent.
func (g *GlobalSettings) AxisSystem() AxisSystem {
	d := DefaultAxisSystem
	a := AxisSystem{
		UpAxis:    g.GetProperty70("UpAxis").ToInt(d.UpAxis),
		UpSign:    g.GetProperty70("UpAxisSign").ToInt(d.UpSign),
		FrontAxis: g.GetProperty70("FrontAxis").ToInt(d.FrontAxis),
		FrontSign: g.GetProperty70("FrontAxisSign").ToInt(d.FrontSign),
		CoordAxis: g.GetProperty70("CoordAxis").ToInt(d.CoordAxis),
		CoordSign: g.GetProperty70("CoordAxisSign").ToInt(d.CoordSign),
	}
	if !a.Valid() {
		return d
	}
	return a
}

func (g *GlobalSettings) SetAxisSystem(a AxisSystem) {
	g.SetIntProperty("UpAxis", a.UpAxis)
	g.SetIntProperty("UpAxisSign", a.UpSign)
	g.SetIntProperty("FrontAxis", a.FrontAxis)
	g.SetIntProperty("FrontAxisSign", a.FrontSign)
	g.SetIntProperty("CoordAxis", a.CoordAxis)
	g.SetIntProperty("CoordAxisSign", a.CoordSign)
}

// UnitScaleFactor is the length of one file unit in centimeters.
func (g *GlobalSettings) UnitScaleFactor() float64 {
	s := g.GetProperty70("UnitScaleFactor").ToFloat64(1)
	if s <= 0 {
		return 1
	}
	return s
}

var timeModeFrameRates = map[int]float64{
	1: 120, 2: 100, 3: 60, 4: 50, 5: 48, 6: 30, 7: 30, 8: 29.97, 9: 29.97,
	10: 25, 11: 24, 12: 1000, 13: 23.976, 15: 96, 16: 72, 17: 59.94, 18: 119.88,
}

// FrameRate returns the scene frame rate, 0 when unknown.
func (g *GlobalSettings) FrameRate() float64 {
	mode := g.GetProperty70("TimeMode").ToInt(0)
	if mode == 14 {
		return g.GetProperty70("CustomFrameRate").ToFloat64(0)
	}
	return timeModeFrameRates[mode]
}
