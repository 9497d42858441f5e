package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ctessum/sparse"
)

// AggregationMode selects the reduction applied across the time slice.
type AggregationMode string

const (
	// ModeCumulative sums each cell across the selected time steps.
	ModeCumulative AggregationMode = "Cumulative"
	// ModeAverage takes the arithmetic mean of each cell's present
	// observations across the selected time steps.
	ModeAverage AggregationMode = "Average"
)

// ParseMode validates a mode string from a request.
func ParseMode(s string) (AggregationMode, error) {
	switch AggregationMode(s) {
	case ModeCumulative:
		return ModeCumulative, nil
	case ModeAverage:
		return ModeAverage, nil
	default:
		return "", &UnsupportedModeError{Mode: s}
	}
}

// TimeWindow is an inclusive pair of calendar dates.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow normalizes both bounds to midnight UTC and enforces
// start <= end.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	start = truncateToDate(start)
	end = truncateToDate(end)
	if start.After(end) {
		return TimeWindow{}, &InvalidWindowError{Start: start, End: end}
	}
	return TimeWindow{Start: start, End: end}, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// slice returns the half-open index range [lo, hi) of axis steps falling on
// a calendar day within the window. Both date bounds are inclusive; no
// resampling or gap-filling happens, the native step granularity is kept.
func (w TimeWindow) slice(times []time.Time) (lo, hi int) {
	endExclusive := w.End.AddDate(0, 0, 1)
	// Times are monotonically non-decreasing (field invariant), so the
	// bounds can be found by binary search.
	lo = sort.Search(len(times), func(i int) bool { return !times[i].Before(w.Start) })
	hi = sort.Search(len(times), func(i int) bool { return !times[i].Before(endExclusive) })
	return lo, hi
}

// Aggregate reduces one variable of the field over the window using the
// given mode. It resolves the time axis, validates, slices inclusively, and
// reduces per spatial cell. The source field is not modified; the result is
// a fresh [lat, lon] array. Identical inputs yield bit-identical output.
func Aggregate(f *GriddedField, variable string, window TimeWindow, mode AggregationMode) (*AggregatedField, error) {
	if mode != ModeCumulative && mode != ModeAverage {
		return nil, &UnsupportedModeError{Mode: string(mode)}
	}
	if window.Start.After(window.End) {
		return nil, &InvalidWindowError{Start: window.Start, End: window.End}
	}

	resolution, err := ResolveTimeAxis(f.AxisNames())
	if err != nil {
		return nil, err
	}

	data, err := f.Variable(variable)
	if err != nil {
		return nil, err
	}

	timeAxis, _ := f.Axis(resolution.Axis)
	lo, hi := window.slice(timeAxis.Times)
	if hi <= lo {
		return nil, &EmptySliceError{Axis: resolution.Axis, Start: window.Start, End: window.End}
	}

	latName, lonName := resolveSpatialAxes(f.AxisNames(), resolution.Axis)
	timePos := f.axisIndex(resolution.Axis)
	latPos := f.axisIndex(latName)
	lonPos := f.axisIndex(lonName)
	if len(data.Shape) != 3 || latPos < 0 || lonPos < 0 {
		return nil, fmt.Errorf("variable %q: expected one time and two spatial axes, got %v",
			variable, f.AxisNames())
	}

	latAxis, _ := f.Axis(latName)
	lonAxis, _ := f.Axis(lonName)

	out := sparse.ZerosDense(latAxis.Len(), lonAxis.Len())
	idx := make([]int, 3)
	for i := 0; i < latAxis.Len(); i++ {
		for j := 0; j < lonAxis.Len(); j++ {
			idx[latPos] = i
			idx[lonPos] = j

			sum := 0.0
			present := 0
			for k := lo; k < hi; k++ {
				idx[timePos] = k
				v := data.Get(idx...)
				if math.IsNaN(v) {
					continue
				}
				sum += v
				present++
			}

			switch {
			case present == 0:
				// Missing in every step of the slice propagates as missing.
				out.Set(math.NaN(), i, j)
			case mode == ModeCumulative:
				out.Set(sum, i, j)
			default:
				out.Set(sum/float64(present), i, j)
			}
		}
	}

	return &AggregatedField{
		Variable:          variable,
		Mode:              mode,
		Window:            window,
		TimeAxis:          resolution.Axis,
		AmbiguousTimeAxis: resolution.Ambiguous,
		TimeSteps:         hi - lo,
		Lats:              append([]float64(nil), latAxis.Values...),
		Lons:              append([]float64(nil), lonAxis.Values...),
		Data:              out,
		GeneratedAt:       clock.Now().UTC(),
	}, nil
}
