package usd

import (
	gomath "math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/Faultbox/usdz-export/pkg/math"
)

// Precision is the number of decimal places values are rounded to before
// being printed with six significant digits.
const Precision = 6

var roundScale = gomath.Pow10(Precision)

// Float formats a scalar the way every numeric literal in a document is
// written: rounded to Precision decimals, then printed with six significant
// digits. Negative zero prints as 0.
func Float(v float64) string {
	if gomath.Abs(v) < 1e15 {
		v = gomath.Round(v*roundScale) / roundScale
	}
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Tuple formats values as a comma separated list without delimiters.
func Tuple(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Float(v)
	}
	return strings.Join(parts, ", ")
}

// Vectors wraps every tuple in parentheses and joins them.
func Vectors(vectors [][]float64) string {
	parts := make([]string, len(vectors))
	for i, v := range vectors {
		parts[i] = "(" + Tuple(v...) + ")"
	}
	return strings.Join(parts, ", ")
}

// Vec3s formats a sequence of 3D vectors.
func Vec3s(vs []math.Vec3) string {
	tuples := make([][]float64, len(vs))
	for i, v := range vs {
		tuples[i] = v.Array()
	}
	return Vectors(tuples)
}

// Vec2s formats a sequence of 2D vectors.
func Vec2s(vs []math.Vec2) string {
	tuples := make([][]float64, len(vs))
	for i, v := range vs {
		tuples[i] = v.Array()
	}
	return Vectors(tuples)
}

// Quats formats quaternions with the scalar part first.
func Quats(qs []math.Quat) string {
	tuples := make([][]float64, len(qs))
	for i, q := range qs {
		tuples[i] = q.WXYZ()
	}
	return Vectors(tuples)
}

// Indices comma-joins integer literals.
func Indices[T constraints.Integer](indices []T) string {
	var b strings.Builder
	for i, idx := range indices {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatInt(int64(idx), 10))
	}
	return b.String()
}

// Matrix formats a 4x4 matrix as a parenthesized group of four rows.
func Matrix(mat math.Mat4) string {
	rows := mat.Rows()
	tuples := make([][]float64, 4)
	for i := range rows {
		tuples[i] = rows[i][:]
	}
	return "(" + Vectors(tuples) + ")"
}

// Matrices formats a sequence of matrices.
func Matrices(mats []math.Mat4) string {
	parts := make([]string, len(mats))
	for i, mat := range mats {
		parts[i] = Matrix(mat)
	}
	return strings.Join(parts, ", ")
}

// Tokens quotes and joins token strings.
func Tokens(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = strconv.Quote(t)
	}
	return strings.Join(parts, ", ")
}
