package geom

import (
	"math"
	"testing"
)

func TestTriangulate(t *testing.T) {
	tris := Triangulate([]*Vector3{
		{0, 0, 0},
		{0, 1, 0},
		{0, 1, 1},
	})
	if len(tris) != 1 || tris[0] != [3]int{0, 1, 2} {
		t.Error("triangle: ", tris)
	}

	tris2 := Triangulate([]*Vector3{
		{0, 0, 0},
		{0, 1, 0},
		{0, 1, 1},
		{0, 0, 1},
	})
	if len(tris2) != 2 {
		t.Error("quad: ", tris2)
	}

	// non-convex
	poly3 := []*Vector3{
		{0, 0, 0},
		{0, 1, 0},
		{0, 1, 1},
		{0, 0.8, 0.2},
	}
	tris3 := Triangulate(poly3)
	if len(tris3) != 2 {
		t.Error("non-convex: ", tris3)
	}
	n := PolygonNormal(poly3)
	for _, tri := range tris3 {
		a, b, c := poly3[tri[0]], poly3[tri[1]], poly3[tri[2]]
		if a.Sub(b).Cross(c.Sub(b)).Dot(n) < 0 {
			t.Error("winding flipped: ", tri)
		}
	}

	// Empty
	if len(Triangulate(nil)) != 0 {
		t.Error("not empty")
	}
}

func TestTriangulateCount(t *testing.T) {
	for n := 3; n < 12; n++ {
		var poly []*Vector3
		for i := 0; i < n; i++ {
			// star shaped: alternate radius
			r := float32(1)
			if i%2 == 1 {
				r = 0.4
			}
			a := float64(i) / float64(n) * 2 * math.Pi
			poly = append(poly, NewVector3(r*float32(math.Cos(a)), r*float32(math.Sin(a)), 0))
		}
		if got := len(Triangulate(poly)); got != n-2 {
			t.Error("triangles: ", n, got)
		}
	}
}
