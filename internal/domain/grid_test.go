package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAxes() []Axis {
	return []Axis{
		{Name: "time", Times: []time.Time{day(1), day(2)}},
		{Name: "lat", Values: []float64{10.0}},
		{Name: "lon", Values: []float64{76.0}},
	}
}

func TestNewGriddedField(t *testing.T) {
	t.Run("valid field", func(t *testing.T) {
		f, err := NewGriddedField(validAxes(), map[string]*sparse.DenseArray{
			"RAINFALL": sparse.ZerosDense(2, 1, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"time", "lat", "lon"}, f.AxisNames())
		assert.Equal(t, []string{"RAINFALL"}, f.VariableNames())

		ax, ok := f.Axis("time")
		require.True(t, ok)
		assert.True(t, ax.IsTime())
		assert.Equal(t, 2, ax.Len())
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := NewGriddedField(validAxes(), map[string]*sparse.DenseArray{
			"RAINFALL": sparse.ZerosDense(3, 1, 1),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension 0")
	})

	t.Run("rank mismatch", func(t *testing.T) {
		_, err := NewGriddedField(validAxes(), map[string]*sparse.DenseArray{
			"RAINFALL": sparse.ZerosDense(2, 1),
		})
		require.Error(t, err)
	})

	t.Run("non-monotonic time axis", func(t *testing.T) {
		axes := validAxes()
		axes[0].Times = []time.Time{day(2), day(1)}
		_, err := NewGriddedField(axes, map[string]*sparse.DenseArray{
			"RAINFALL": sparse.ZerosDense(2, 1, 1),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "monotonically")
	})

	t.Run("duplicate axis name", func(t *testing.T) {
		axes := validAxes()
		axes[2].Name = "lat"
		_, err := NewGriddedField(axes, map[string]*sparse.DenseArray{
			"RAINFALL": sparse.ZerosDense(2, 1, 1),
		})
		require.Error(t, err)
	})

	t.Run("no variables", func(t *testing.T) {
		_, err := NewGriddedField(validAxes(), nil)
		require.Error(t, err)
	})
}

func TestGriddedFieldVariable(t *testing.T) {
	f, err := NewGriddedField(validAxes(), map[string]*sparse.DenseArray{
		"RAINFALL": sparse.ZerosDense(2, 1, 1),
	})
	require.NoError(t, err)

	t.Run("present", func(t *testing.T) {
		data, err := f.Variable("RAINFALL")
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1, 1}, data.Shape)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := f.Variable("TEMP")
		var notFound *VariableNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "TEMP", notFound.Variable)
	})
}
