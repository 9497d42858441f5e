package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/ctessum/sparse"
)

// Axis is one named coordinate axis of a gridded field. Exactly one of Times
// or Values is set: Times for the temporal axis, Values for spatial axes.
type Axis struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// Len returns the number of coordinate values along the axis.
func (a Axis) Len() int {
	if a.Times != nil {
		return len(a.Times)
	}
	return len(a.Values)
}

// IsTime reports whether the axis carries temporal coordinates.
func (a Axis) IsTime() bool { return a.Times != nil }

// GriddedField is an n-dimensional numeric array indexed by named axes, with
// one or more named variables sharing the axes. Fields are immutable after
// construction; aggregation allocates new arrays and never writes back.
type GriddedField struct {
	axes []Axis
	vars map[string]*sparse.DenseArray
}

// NewGriddedField validates axis/variable agreement and returns a field.
// Every variable must span the given axes in order, and temporal coordinates
// must be monotonically non-decreasing.
func NewGriddedField(axes []Axis, vars map[string]*sparse.DenseArray) (*GriddedField, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("gridded field: no axes")
	}
	seen := make(map[string]bool, len(axes))
	for _, ax := range axes {
		if ax.Name == "" {
			return nil, fmt.Errorf("gridded field: unnamed axis")
		}
		if seen[ax.Name] {
			return nil, fmt.Errorf("gridded field: duplicate axis %q", ax.Name)
		}
		seen[ax.Name] = true
		if ax.Len() == 0 {
			return nil, fmt.Errorf("gridded field: axis %q has no coordinates", ax.Name)
		}
		for i := 1; i < len(ax.Times); i++ {
			if ax.Times[i].Before(ax.Times[i-1]) {
				return nil, fmt.Errorf("gridded field: axis %q is not monotonically non-decreasing at index %d", ax.Name, i)
			}
		}
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("gridded field: no variables")
	}
	for name, data := range vars {
		if data == nil {
			return nil, fmt.Errorf("gridded field: variable %q has no data", name)
		}
		if len(data.Shape) != len(axes) {
			return nil, fmt.Errorf("gridded field: variable %q has %d dimensions, field has %d axes",
				name, len(data.Shape), len(axes))
		}
		for i, ax := range axes {
			if data.Shape[i] != ax.Len() {
				return nil, fmt.Errorf("gridded field: variable %q dimension %d has length %d, axis %q has %d coordinates",
					name, i, data.Shape[i], ax.Name, ax.Len())
			}
		}
	}

	f := &GriddedField{
		axes: append([]Axis(nil), axes...),
		vars: make(map[string]*sparse.DenseArray, len(vars)),
	}
	for name, data := range vars {
		f.vars[name] = data
	}
	return f, nil
}

// AxisNames returns the axis names in field order.
func (f *GriddedField) AxisNames() []string {
	names := make([]string, len(f.axes))
	for i, ax := range f.axes {
		names[i] = ax.Name
	}
	return names
}

// Axis returns the named axis, if present.
func (f *GriddedField) Axis(name string) (Axis, bool) {
	for _, ax := range f.axes {
		if ax.Name == name {
			return ax, true
		}
	}
	return Axis{}, false
}

// axisIndex returns the position of the named axis, or -1.
func (f *GriddedField) axisIndex(name string) int {
	for i, ax := range f.axes {
		if ax.Name == name {
			return i
		}
	}
	return -1
}

// VariableNames returns the variable names in sorted order.
func (f *GriddedField) VariableNames() []string {
	names := make([]string, 0, len(f.vars))
	for name := range f.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variable returns the named variable's data. Lookup is case-sensitive;
// a miss is a VariableNotFoundError, never an empty array.
func (f *GriddedField) Variable(name string) (*sparse.DenseArray, error) {
	data, ok := f.vars[name]
	if !ok {
		return nil, &VariableNotFoundError{Variable: name, Available: f.VariableNames()}
	}
	return data, nil
}

// AggregatedField is the 2-D result of reducing one variable over a time
// window: Data has shape [len(Lats), len(Lons)]. It is never mutated after
// creation; renderers and exporters consume it read-only.
type AggregatedField struct {
	Variable string
	Mode     AggregationMode
	Window   TimeWindow

	// TimeAxis is the resolved time-axis name; AmbiguousTimeAxis is set when
	// more than one recognized spelling was present on the source field.
	TimeAxis          string
	AmbiguousTimeAxis bool

	// TimeSteps is the number of steps the window selected (always >= 1).
	TimeSteps int

	Lats []float64
	Lons []float64
	Data *sparse.DenseArray

	GeneratedAt time.Time
}

// Value returns the aggregated value at latitude index i, longitude index j.
// Missing cells are NaN.
func (a *AggregatedField) Value(i, j int) float64 {
	return a.Data.Get(i, j)
}
