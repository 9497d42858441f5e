package export

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-map-service/internal/domain"
)

func testField(values [][]float64) *domain.AggregatedField {
	data := sparse.ZerosDense(len(values), len(values[0]))
	lats := make([]float64, len(values))
	lons := make([]float64, len(values[0]))
	for i := range values {
		lats[i] = 8.5 + 0.25*float64(i)
		for j, v := range values[i] {
			lons[j] = 77.0 + 0.25*float64(j)
			data.Set(v, i, j)
		}
	}
	return &domain.AggregatedField{
		Variable: "RAINFALL",
		Mode:     domain.ModeCumulative,
		Window: domain.TimeWindow{
			Start: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC),
		},
		Lats: lats,
		Lons: lons,
		Data: data,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	field := testField([][]float64{
		{12.5, 0},
		{1.0 / 3.0, 842.75},
	})
	require.NoError(t, WriteCSV(&buf, field))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "latitude,longitude,RAINFALL", lines[0])
	assert.Equal(t, "8.5,77,12.5", lines[1])

	t.Run("no duplicate coordinate pairs", func(t *testing.T) {
		seen := map[string]bool{}
		for _, line := range lines[1:] {
			parts := strings.SplitN(line, ",", 3)
			key := parts[0] + "|" + parts[1]
			assert.False(t, seen[key], "duplicate pair %s", key)
			seen[key] = true
		}
	})
}

func TestCSVRoundTrip(t *testing.T) {
	field := testField([][]float64{
		{12.5, math.NaN()},
		{1.0 / 3.0, 842.7500000001},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, field))

	variable, rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, "RAINFALL", variable)
	require.Len(t, rows, 4)

	k := 0
	for i, lat := range field.Lats {
		for j, lon := range field.Lons {
			assert.Equal(t, lat, rows[k].Lat)
			assert.Equal(t, lon, rows[k].Lon)
			want := field.Value(i, j)
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(rows[k].Value))
			} else {
				// Bit-exact: the shortest round-trippable representation
				// must reproduce the original float64.
				assert.Equal(t, want, rows[k].Value)
			}
			k++
		}
	}
}

func TestReadCSVRejectsForeignFormat(t *testing.T) {
	t.Run("wrong header", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("x,y,z\n1,2,3\n"))
		require.Error(t, err)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("latitude,longitude,RAINFALL\n8.5,77,heavy\n"))
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader(""))
		require.Error(t, err)
	})
}
