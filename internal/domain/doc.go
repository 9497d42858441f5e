// Package domain models gridded daily rainfall observations and implements
// the temporal aggregation engine: time-axis resolution, window validation,
// and cumulative/average reduction.
//
// # Data Source
//
// Rainfall grids originate from IMD (India Meteorological Department) daily
// gridded rainfall products distributed as NetCDF, e.g. the 0.25°x0.25°
// RF25 series. The value variable is conventionally named "RAINFALL" and is
// dimensioned (time, latitude, longitude) with one step per calendar day.
//
// # Coordinate Naming
//
// Producers have shipped the time axis under several spellings over the
// years. Resolution uses a fixed, ordered lookup table:
//
//	time, TIME, timestamp, date
//
// The first spelling present wins. If several are present at once (a schema
// inconsistency seen in merged archives) the pick is still deterministic and
// the ambiguity is reported on the resolution so operators can see it; it is
// never resolved silently. If none is present the request fails with
// [CoordinateNotFoundError] listing every axis name that was found, which is
// the information needed to extend the table.
//
// Spatial axes follow the same convention (lat/latitude/LATITUDE, and the
// longitude equivalents), falling back to axis order for unlabeled grids.
//
// # Missing Values
//
// Loaders map file-level sentinels (_FillValue, missing_value) to NaN before
// constructing a [GriddedField]. Reduction treats NaN per mode: a cumulative
// sum skips missing steps (a transient gap must not zero out a monsoon
// total), an average is computed over present observations only. A cell
// missing in every step of the window stays NaN in the result.
//
// # Determinism
//
// Aggregate is a pure function of (field, variable, window, mode): identical
// inputs produce bit-identical output arrays, and the source field is never
// mutated. Concurrent aggregations over distinct fields need no locking.
package domain
