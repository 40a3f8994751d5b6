package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDenseRoundTrip(t *testing.T) {
	dense := [][]float64{
		{0, 1.5, 0},
		{2, 0, 0},
		{0, 0, 0},
	}
	m := FromDense(dense)

	rows, cols := m.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 2, m.NNZ())
	assert.Equal(t, dense, m.Dense())
}

func TestVectorAtAndDot(t *testing.T) {
	v := Vector{Indices: []int{1, 4}, Values: []float64{3, 4}}

	assert.Equal(t, 3.0, v.At(1))
	assert.Equal(t, 0.0, v.At(2))
	assert.Equal(t, 4.0, v.At(4))
	assert.InDelta(t, 5.0, v.Norm(), 1e-12)
	assert.InDelta(t, 3*2+4*0.5, v.Dot([]float64{0, 2, 0, 0, 0.5}), 1e-12)
}

func TestSubsetAndEqual(t *testing.T) {
	m := FromDense([][]float64{{1, 0}, {0, 2}, {3, 0}})
	sub := m.Subset([]int{2, 0})

	require.Equal(t, 2, sub.NumRows())
	assert.Equal(t, 3.0, sub.Row(0).At(0))
	assert.True(t, sub.Equal(FromDense([][]float64{{3, 0}, {1, 0}})))
	assert.False(t, sub.Equal(m))
}

func TestMinValue(t *testing.T) {
	assert.Equal(t, 0.0, FromDense([][]float64{{1, 2}}).MinValue())
	assert.Equal(t, -1.0, FromDense([][]float64{{1, -1}}).MinValue())
}
