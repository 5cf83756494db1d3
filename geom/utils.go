package geom

func Abs(v Element) Element {
	if v < 0 {
		return -v
	}
	return v
}

func IsInTriangle(p, a, b, c *Vector3) bool {
	ab, bc, ca := b.Sub(a), c.Sub(b), a.Sub(c)
	c1, c2, c3 := ab.Cross(p.Sub(a)), bc.Cross(p.Sub(b)), ca.Cross(p.Sub(c))
	return c1.Dot(c2) > 0 && c2.Dot(c3) > 0 && c3.Dot(c1) > 0
}

// PolygonNormal returns the Newell normal of poly (not normalized).
func PolygonNormal(poly []*Vector3) *Vector3 {
	n := &Vector3{}
	for i := range poly {
		v0 := poly[(i+len(poly)-1)%len(poly)]
		v1 := poly[i]
		v2 := poly[(i+1)%len(poly)]
		n = n.Add(v0.Sub(v1).Cross(v2.Sub(v1)))
	}
	return n
}

// Triangulate splits a simple polygon by ear clipping. Triangles keep the
// winding of poly and there are always len(poly)-2 of them: when no ear can be
// found (self-intersecting input) the remaining vertices are fanned.
func Triangulate(poly []*Vector3) [][3]int {
	var dst [][3]int
	if len(poly) < 3 {
		return dst
	}
	if len(poly) == 3 {
		return append(dst, [3]int{0, 1, 2})
	}
	n := PolygonNormal(poly).Normalize()

	ii := make([]int, len(poly))
	for i := range ii {
		ii[i] = i
	}

	// O(N*N)...
	for len(ii) > 3 {
		count := len(ii)
		found := false
		for i := count - 1; i >= 0; i-- {
			i0 := ii[(i+count-1)%count]
			i1 := ii[i]
			i2 := ii[(i+1)%count]
			v0, v1, v2 := poly[i0], poly[i1], poly[i2]
			if v0.Sub(v1).Cross(v2.Sub(v1)).Dot(n) < 0 {
				continue // reflex
			}
			ear := true
			for _, j := range ii {
				if j != i0 && j != i1 && j != i2 && IsInTriangle(poly[j], v0, v1, v2) {
					ear = false
					break
				}
			}
			if ear {
				dst = append(dst, [3]int{i0, i1, i2})
				ii = append(ii[:i:i], ii[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			// maybe self-intersecting polygon
			for i := 1; i < len(ii)-1; i++ {
				dst = append(dst, [3]int{ii[0], ii[i], ii[i+1]})
			}
			return dst
		}
	}
	return append(dst, [3]int{ii[0], ii[1], ii[2]})
}
