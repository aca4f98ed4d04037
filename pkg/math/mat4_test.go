package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(Vec3{1, 2, 3})
	result := m.Mul(Identity())

	if result != m {
		t.Errorf("M * I should equal M: got %v, want %v", result, m)
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(Vec3{5, 10, 15})

	// Translation lives in elements 12..14, which is the fourth emitted row.
	if got := m.Translation(); got != (Vec3{5, 10, 15}) {
		t.Errorf("Translation() = %v, want (5, 10, 15)", got)
	}
	rows := m.Rows()
	if rows[3] != [4]float64{5, 10, 15, 1} {
		t.Errorf("Rows()[3] = %v, want [5 10 15 1]", rows[3])
	}
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    Vec3
		want Vec3
	}{
		{"translate", Translate(Vec3{10, 20, 30}), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", UniformScale(2), Vec3{1, 2, 3}, Vec3{2, 4, 6}},
		{"rotate y", RotateY(math.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
		{"rotate x", RotateX(-math.Pi / 2), Vec3{0, 0, 1}, Vec3{0, 1, 0}},
		{"rotate z", RotateZ(math.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformPoint(tt.p)
			if got.Distance(tt.want) > 1e-9 {
				t.Errorf("TransformPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(Vec3{4, 5, 6})
	if got := m.TransformDirection(Vec3{0, 1, 0}); got != (Vec3{0, 1, 0}) {
		t.Errorf("TransformDirection() = %v, want (0, 1, 0)", got)
	}
}

func TestTranspose(t *testing.T) {
	m := Translate(Vec3{1, 2, 3})
	tr := m.Transpose()
	if tr[3] != 1 || tr[7] != 2 || tr[11] != 3 {
		t.Errorf("Transpose() = %v", tr)
	}
	if tr.Transpose() != m {
		t.Error("double transpose should be the original")
	}
}

func TestCompose(t *testing.T) {
	r := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	m := Compose(Vec3{1, 0, 0}, r, Vec3{2, 2, 2})

	// (1,0,0) scaled to (2,0,0), rotated to (0,2,0), translated to (1,2,0).
	got := m.TransformPoint(Vec3{1, 0, 0})
	if got.Distance(Vec3{1, 2, 0}) > 1e-9 {
		t.Errorf("Compose().TransformPoint() = %v, want (1, 2, 0)", got)
	}
}

func TestApproxEqual(t *testing.T) {
	a := Identity()
	b := Identity()
	b[12] = 1e-8
	if !a.ApproxEqual(b, 1e-6) {
		t.Error("expected matrices to be approximately equal")
	}
	b[12] = 1e-3
	if a.ApproxEqual(b, 1e-6) {
		t.Error("expected matrices to differ")
	}
}
