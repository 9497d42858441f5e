package domain

import (
	"fmt"
	"strings"
	"time"
)

// CoordinateNotFoundError reports that no recognized time-axis spelling is
// present on a field. Available carries every axis name actually found so an
// operator can diagnose the schema mismatch.
type CoordinateNotFoundError struct {
	Available []string
}

func (e *CoordinateNotFoundError) Error() string {
	return fmt.Sprintf("no recognized time coordinate found; available coordinates: %s",
		strings.Join(e.Available, ", "))
}

// VariableNotFoundError reports that the requested value variable is absent
// from a field. Variable names are case-sensitive.
type VariableNotFoundError struct {
	Variable  string
	Available []string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q not found; available variables: %s",
		e.Variable, strings.Join(e.Available, ", "))
}

// EmptySliceError reports a valid window that selects zero time steps. It is
// distinct from a zero-filled result: the caller must not treat it as data.
type EmptySliceError struct {
	Axis       string
	Start, End time.Time
}

func (e *EmptySliceError) Error() string {
	return fmt.Sprintf("window %s..%s selects no steps on axis %q",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Axis)
}

// InvalidWindowError reports a window whose start is after its end.
type InvalidWindowError struct {
	Start, End time.Time
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window: start %s is after end %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

// UnsupportedModeError reports an aggregation mode outside the enumerated
// set. This is a programming or configuration error, not a data problem.
type UnsupportedModeError struct {
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported aggregation mode %q; choose %q or %q",
		e.Mode, ModeCumulative, ModeAverage)
}
