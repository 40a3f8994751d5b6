package sparse

import (
	"math"
	"sort"
)

// Vector is a sparse row. Indices are strictly ascending.
type Vector struct {
	Indices []int
	Values  []float64
}

func (v Vector) Len() int {
	return len(v.Indices)
}

// At returns the value stored at column j, or 0.
func (v Vector) At(j int) float64 {
	k := sort.SearchInts(v.Indices, j)
	if k < len(v.Indices) && v.Indices[k] == j {
		return v.Values[k]
	}
	return 0
}

func (v Vector) Dot(w []float64) float64 {
	sum := 0.0
	for k, j := range v.Indices {
		sum += v.Values[k] * w[j]
	}
	return sum
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Matrix stores rows of a sparse matrix with a fixed column space.
type Matrix struct {
	Rows    []Vector
	NumCols int
}

func NewMatrix(rows []Vector, numCols int) *Matrix {
	return &Matrix{Rows: rows, NumCols: numCols}
}

func (m *Matrix) Dims() (int, int) {
	return len(m.Rows), m.NumCols
}

func (m *Matrix) NumRows() int {
	return len(m.Rows)
}

func (m *Matrix) Row(i int) Vector {
	return m.Rows[i]
}

func (m *Matrix) NNZ() int {
	n := 0
	for _, r := range m.Rows {
		n += r.Len()
	}
	return n
}

// Subset returns a matrix sharing row storage, in the order given by idx.
func (m *Matrix) Subset(idx []int) *Matrix {
	rows := make([]Vector, len(idx))
	for i, r := range idx {
		rows[i] = m.Rows[r]
	}
	return &Matrix{Rows: rows, NumCols: m.NumCols}
}

// MinValue returns the smallest stored value, or 0 for an all-zero matrix.
func (m *Matrix) MinValue() float64 {
	min := 0.0
	for _, r := range m.Rows {
		for _, x := range r.Values {
			if x < min {
				min = x
			}
		}
	}
	return min
}

// Equal reports whether both matrices have the same shape and identical entries.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.NumCols != o.NumCols || len(m.Rows) != len(o.Rows) {
		return false
	}
	for i := range m.Rows {
		a, b := m.Rows[i], o.Rows[i]
		if len(a.Indices) != len(b.Indices) {
			return false
		}
		for k := range a.Indices {
			if a.Indices[k] != b.Indices[k] || a.Values[k] != b.Values[k] {
				return false
			}
		}
	}
	return true
}

// Dense expands the matrix; intended for small matrices and tests.
func (m *Matrix) Dense() [][]float64 {
	out := make([][]float64, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = make([]float64, m.NumCols)
		for k, j := range r.Indices {
			out[i][j] = r.Values[k]
		}
	}
	return out
}

// FromDense builds a sparse matrix dropping zero entries.
func FromDense(X [][]float64) *Matrix {
	cols := 0
	rows := make([]Vector, len(X))
	for i, row := range X {
		if len(row) > cols {
			cols = len(row)
		}
		for j, x := range row {
			if x != 0 {
				rows[i].Indices = append(rows[i].Indices, j)
				rows[i].Values = append(rows[i].Values, x)
			}
		}
	}
	return &Matrix{Rows: rows, NumCols: cols}
}
