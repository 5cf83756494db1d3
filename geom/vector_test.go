package geom

import (
	"testing"
)

func TestVector2(t *testing.T) {
	zero := NewVector2(0, 0)
	if zero.Len() != 0 || zero.LenSqr() != 0 || zero.Dot(zero) != 0 {
		t.Error("len != 0")
	}

	if *zero.Normalize() != *NewVector2(1, 0) {
		t.Error("Normalize should return a unit vector.", zero.Normalize())
	}

	if *NewVector2(1, 0).Add(NewVector2(0, 1)) != *NewVector2(1, 1) {
		t.Error("Vector.Add()")
	}

	if NewVector2(1, 0).Cross(NewVector2(0, 1)) != 1 {
		t.Error("Vector.Cross()")
	}

	uv := NewVector2(0.25, 0.25)
	if *uv.FlipV() != *NewVector2(0.25, 0.75) || *uv.FlipV().FlipV() != *uv {
		t.Error("FlipV()", uv.FlipV())
	}
}

func TestVector3(t *testing.T) {
	zero := NewVector3(0, 0, 0)
	if zero.Len() != 0 || zero.LenSqr() != 0 || zero.Dot(zero) != 0 {
		t.Error("len != 0")
	}

	if *zero.Normalize() != *NewVector3(1, 0, 0) {
		t.Error("Normalize should return a unit vector.", zero.Normalize())
	}

	if *NewVector3(1, 0, 0).Add(NewVector3(0, 1, 0)) != *NewVector3(1, 1, 0) {
		t.Error("Vector.Add()")
	}

	if *NewVector3(1, 0, 0).Cross(NewVector3(0, 1, 0)) != *NewVector3(0, 0, 1) {
		t.Error("Vector.Cross()")
	}

	v := NewVector3(1, -2, 3)
	if *v.Negate() != *NewVector3(-1, 2, -3) {
		t.Error("Negate()", v.Negate())
	}
	if v.Array() != [3]Element{1, -2, 3} {
		t.Error("Array()", v.Array())
	}
}

func TestApplyToDirection(t *testing.T) {
	mat := NewTranslateMatrix4(10, 20, 30).Mul(NewScaleMatrix4(2, 2, 2))
	v := NewVector3(1, 1, 0)

	if *mat.ApplyTo(v) != *NewVector3(12, 22, 30) {
		t.Error("ApplyTo()", mat.ApplyTo(v))
	}
	// translation does not move directions
	if *mat.ApplyToDirection(v) != *NewVector3(2, 2, 0) {
		t.Error("ApplyToDirection()", mat.ApplyToDirection(v))
	}
}

func TestVector4(t *testing.T) {
	zero := NewVector4(0, 0, 0, 0)
	if zero.Len() != 0 || zero.LenSqr() != 0 || zero.Dot(zero) != 0 {
		t.Error("len != 0")
	}

	if *zero.Normalize() != *NewVector4(0, 0, 0, 1) {
		t.Error("Normalize should return the identity rotation.", zero.Normalize())
	}

	if *NewVector4(1, 0, 0, 0).Add(NewVector4(0, 1, 0, 0)) != *NewVector4(1, 1, 0, 0) {
		t.Error("Vector.Add()")
	}

	q := NewVector4(1, 2, 3, 4)
	if *q.Negate() != *NewVector4(-1, -2, -3, -4) || q.Array() != [4]Element{1, 2, 3, 4} {
		t.Error("Negate() / Array()")
	}
}
