package geom

import (
	"math"
	"testing"
)

func TestQuaternion(t *testing.T) {
	const eps = 0.00001

	{
		q := NewEuler(0, 0, 0, RotationOrderXYZ).ToQuaternion()
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		q := NewEuler(2*math.Pi, 0, 0, RotationOrderXYZ).ToQuaternion()
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		q := NewEuler(1, 2, 3, RotationOrderXYZ).ToQuaternion()
		q = q.Mul(q.Inverse())
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		// 90 degrees around Y maps +X to -Z
		q := NewEuler(0, math.Pi/2, 0, RotationOrderXYZ).ToQuaternion()
		v := q.ApplyTo(NewVector3(1, 0, 0))
		if v.Sub(NewVector3(0, 0, -1)).Len() > eps {
			t.Error("rotY(90) * X: ", v)
		}
	}
}

func TestQuaternionFromMatrix(t *testing.T) {
	const eps = 0.00001
	for _, e := range []*EulerAngles{
		NewEuler(0, 0, 0, RotationOrderXYZ),
		NewEuler(math.Pi, 0, 0, RotationOrderXYZ),
		NewEuler(0, math.Pi, 0, RotationOrderXYZ),
		NewEuler(0, 0, math.Pi, RotationOrderXYZ),
		NewEuler(0.3, -1.2, 2.5, RotationOrderZYX),
	} {
		q := e.ToQuaternion()
		q2 := NewQuaternionFromMatrix4(NewRotationMatrix4FromQuaternion(q))
		if q.Sub(q2).Len() > eps && q.Add(q2).Len() > eps {
			t.Error("quaternion: ", e, q, q2)
		}
	}
}
