// Package netcdf loads gridded rainfall datasets from NetCDF files into
// domain fields, decoding CF time units and mapping fill-value sentinels to
// NaN. It also provides a content-fingerprinted LRU cache so repeated
// requests against the same file skip the decode.
package netcdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"

	"github.com/couchcryptid/rainfall-map-service/internal/domain"
)

// Loader reads a NetCDF file into a GriddedField.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load opens the file and builds a GriddedField from its 3-D data variables
// and their coordinate variables. The returned field is independent of the
// file handle, which is closed before returning.
func (l *Loader) Load(ctx context.Context, path string) (*domain.GriddedField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer nc.Close()

	var (
		axes     []domain.Axis
		axisDims []string
		vars     = make(map[string]*sparse.DenseArray)
	)

	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %q: %w", name, err)
		}
		if len(v.Dimensions) != 3 {
			continue // coordinate variables and scalars are handled via dims
		}

		if axes == nil {
			axes, err = l.buildAxes(nc, v.Dimensions)
			if err != nil {
				return nil, err
			}
			axisDims = v.Dimensions
		} else if !sameDims(axisDims, v.Dimensions) {
			l.logger.Debug("skipping variable with foreign dimensions",
				"variable", name, "dims", v.Dimensions)
			continue
		}

		data, err := decodeValues(v, axes)
		if err != nil {
			return nil, fmt.Errorf("decode variable %q: %w", name, err)
		}
		vars[name] = data
	}

	if len(vars) == 0 {
		return nil, fmt.Errorf("dataset %s: no 3-D data variables", path)
	}

	field, err := domain.NewGriddedField(axes, vars)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return field, nil
}

// buildAxes reads the coordinate variable for each dimension. The dimension
// matching a recognized time-axis spelling is decoded via its CF units
// attribute; everything else is numeric.
func (l *Loader) buildAxes(nc api.Group, dims []string) ([]domain.Axis, error) {
	timeAxis := ""
	if res, err := domain.ResolveTimeAxis(dims); err == nil {
		// Resolution failures are not fatal here: the field can still be
		// built and the aggregator will report CoordinateNotFoundError with
		// the full axis list.
		timeAxis = res.Axis
		if res.Ambiguous {
			l.logger.Warn("multiple recognized time-axis spellings on dataset",
				"matches", res.Matches, "picked", res.Axis)
		}
	}

	axes := make([]domain.Axis, 0, len(dims))
	for _, dim := range dims {
		cv, err := nc.GetVariable(dim)
		if err != nil {
			return nil, fmt.Errorf("read coordinate %q: %w", dim, err)
		}
		values, err := numericValues(cv.Values)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", dim, err)
		}

		if dim == timeAxis {
			units := attrString(cv.Attributes, "units")
			times, err := decodeCFTimes(values, units)
			if err != nil {
				return nil, fmt.Errorf("coordinate %q: %w", dim, err)
			}
			axes = append(axes, domain.Axis{Name: dim, Times: times})
			continue
		}
		axes = append(axes, domain.Axis{Name: dim, Values: values})
	}
	return axes, nil
}

// decodeValues flattens a 3-D variable into a DenseArray, replacing fill
// values with NaN and applying CF scale_factor/add_offset packing.
func decodeValues(v *api.Variable, axes []domain.Axis) (*sparse.DenseArray, error) {
	flat, shape, err := flatten(v.Values)
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("expected 3 dimensions, got %d", len(shape))
	}
	for i, ax := range axes {
		if shape[i] != ax.Len() {
			return nil, fmt.Errorf("dimension %d has length %d, coordinate %q has %d values",
				i, shape[i], ax.Name, ax.Len())
		}
	}

	fill, hasFill := attrFloat(v.Attributes, "_FillValue")
	if !hasFill {
		fill, hasFill = attrFloat(v.Attributes, "missing_value")
	}
	scale, hasScale := attrFloat(v.Attributes, "scale_factor")
	offset, hasOffset := attrFloat(v.Attributes, "add_offset")

	data := sparse.ZerosDense(shape...)
	for i, raw := range flat {
		switch {
		case hasFill && raw == fill:
			data.Elements[i] = math.NaN()
		default:
			val := raw
			if hasScale {
				val *= scale
			}
			if hasOffset {
				val += offset
			}
			data.Elements[i] = val
		}
	}
	return data, nil
}

// flatten converts the nested slices returned by the NetCDF reader into a
// flat row-major float64 slice plus its shape.
func flatten(values any) ([]float64, []int, error) {
	switch v := values.(type) {
	case []float64:
		return append([]float64(nil), v...), []int{len(v)}, nil
	case []float32:
		return widen(v), []int{len(v)}, nil
	case []int64:
		return widen(v), []int{len(v)}, nil
	case []int32:
		return widen(v), []int{len(v)}, nil
	case []int16:
		return widen(v), []int{len(v)}, nil
	case [][]float64:
		return flattenNested(len(v), func(i int) any { return v[i] })
	case [][]float32:
		return flattenNested(len(v), func(i int) any { return v[i] })
	case [][]int16:
		return flattenNested(len(v), func(i int) any { return v[i] })
	case [][][]float64:
		return flattenNested(len(v), func(i int) any { return v[i] })
	case [][][]float32:
		return flattenNested(len(v), func(i int) any { return v[i] })
	case [][][]int16:
		return flattenNested(len(v), func(i int) any { return v[i] })
	default:
		return nil, nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func flattenNested(n int, row func(int) any) ([]float64, []int, error) {
	if n == 0 {
		return nil, nil, fmt.Errorf("empty dimension")
	}
	var (
		flat     []float64
		subShape []int
	)
	for i := 0; i < n; i++ {
		sub, shape, err := flatten(row(i))
		if err != nil {
			return nil, nil, err
		}
		if subShape == nil {
			subShape = shape
		} else if !sameShape(subShape, shape) {
			return nil, nil, fmt.Errorf("ragged array")
		}
		flat = append(flat, sub...)
	}
	return flat, append([]int{n}, subShape...), nil
}

func widen[T float32 | int64 | int32 | int16](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func numericValues(values any) ([]float64, error) {
	flat, shape, err := flatten(values)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("coordinate is not 1-D")
	}
	return flat, nil
}

// cfUnitsRe matches CF time units like "days since 1901-01-01" or
// "hours since 1900-01-01 00:00:0.0".
var cfUnitsRe = regexp.MustCompile(`^(\w+)\s+since\s+(\d{4}-\d{1,2}-\d{1,2})`)

// decodeCFTimes converts numeric offsets plus a CF units string into UTC
// timestamps.
func decodeCFTimes(values []float64, units string) ([]time.Time, error) {
	m := cfUnitsRe.FindStringSubmatch(units)
	if m == nil {
		return nil, fmt.Errorf("unsupported time units %q", units)
	}

	var step time.Duration
	switch m[1] {
	case "days", "day":
		step = 24 * time.Hour
	case "hours", "hour":
		step = time.Hour
	case "minutes", "minute":
		step = time.Minute
	case "seconds", "second":
		step = time.Second
	default:
		return nil, fmt.Errorf("unsupported time unit %q in %q", m[1], units)
	}

	base, err := time.Parse("2006-1-2", m[2])
	if err != nil {
		return nil, fmt.Errorf("bad epoch in time units %q: %w", units, err)
	}

	times := make([]time.Time, len(values))
	for i, v := range values {
		times[i] = base.Add(time.Duration(v * float64(step))).UTC()
	}
	return times, nil
}

func attrString(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	raw, has := attrs.Get(key)
	if !has {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, has := attrs.Get(key)
	if !has {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
