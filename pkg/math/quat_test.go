package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()

	if length := math.Sqrt(n.Dot(n)); math.Abs(length-1) > 1e-9 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero quaternion should normalize to identity, got %v", got)
	}
}

func TestQuatSlerp(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2)

	if r := q1.Slerp(q2, 0); math.Abs(r.W-q1.W) > 1e-6 {
		t.Errorf("Slerp at t=0 should equal q1, got %v", r)
	}
	if r := q1.Slerp(q2, 1); math.Abs(r.W-q2.W) > 1e-6 {
		t.Errorf("Slerp at t=1 should equal q2, got %v", r)
	}

	// Halfway through a 90 degree turn is 45 degrees.
	r := q1.Slerp(q2, 0.5)
	if want := math.Cos(math.Pi / 8); math.Abs(r.W-want) > 1e-6 {
		t.Errorf("Slerp at t=0.5: expected W ~%v, got %v", want, r.W)
	}
}

func TestQuatToMat4(t *testing.T) {
	if m := QuatIdentity().ToMat4(); !m.ApproxEqual(Identity(), 1e-12) {
		t.Errorf("Identity quat should produce identity matrix, got %v", m)
	}

	m := QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2).ToMat4()
	if !m.ApproxEqual(RotateY(math.Pi/2), 1e-9) {
		t.Errorf("ToMat4() = %v, want RotateY(pi/2)", m)
	}
}

func TestQuatFromEuler(t *testing.T) {
	q := QuatFromEuler(math.Pi/2, 0, math.Pi/2)
	// X first: (0,1,0) -> (0,0,1); then Z leaves it unchanged.
	got := q.ToMat4().TransformPoint(Vec3{0, 1, 0})
	if got.Distance(Vec3{0, 0, 1}) > 1e-9 {
		t.Errorf("QuatFromEuler rotation = %v, want (0, 0, 1)", got)
	}
}

func TestQuatWXYZ(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	got := q.WXYZ()
	want := []float64{4, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("WXYZ() = %v, want %v", got, want)
		}
	}
}

func TestQuatBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to Vec3
	}{
		{"same", Vec3{Y: 1}, Vec3{Y: 1}},
		{"y to z", Vec3{Y: 1}, Vec3{Z: 1}},
		{"y to x scaled", Vec3{Y: 2}, Vec3{X: 5}},
		{"opposite", Vec3{Y: 1}, Vec3{Y: -1}},
		{"oblique", Vec3{Y: 1}, Vec3{X: 1, Y: 1, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatBetween(tt.from, tt.to)
			got := q.ToMat4().TransformDirection(tt.from.Normalize())
			if got.Distance(tt.to.Normalize()) > 1e-9 {
				t.Errorf("rotated = %v, want %v", got, tt.to.Normalize())
			}
		})
	}
}
