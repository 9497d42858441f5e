package domain

// Recognized axis-name spellings, in priority order. These are configuration,
// not heuristics: resolution always walks the table in order and returns the
// first spelling present, so the same field resolves the same way on every
// call. The time-axis ordering follows the spellings IMD producers have
// actually shipped.
var (
	timeAxisSpellings = []string{"time", "TIME", "timestamp", "date"}
	latAxisSpellings  = []string{"lat", "latitude", "LATITUDE", "LAT", "Latitude"}
	lonAxisSpellings  = []string{"lon", "longitude", "LONGITUDE", "LON", "Longitude"}
)

// TimeAxisResolution is the outcome of resolving a field's time axis.
type TimeAxisResolution struct {
	// Axis is the resolved axis name, chosen by priority order.
	Axis string
	// Ambiguous is set when more than one recognized spelling was present.
	// The pick is still deterministic, but callers must surface the
	// inconsistency rather than swallow it.
	Ambiguous bool
	// Matches lists every recognized spelling found, in priority order.
	Matches []string
}

// ResolveTimeAxis determines which of the given axis names denotes time.
// Names are matched case-sensitively against the spelling table. If none
// matches, the error is a CoordinateNotFoundError listing the names that
// were present.
func ResolveTimeAxis(axisNames []string) (TimeAxisResolution, error) {
	present := make(map[string]bool, len(axisNames))
	for _, name := range axisNames {
		present[name] = true
	}

	var matches []string
	for _, spelling := range timeAxisSpellings {
		if present[spelling] {
			matches = append(matches, spelling)
		}
	}
	if len(matches) == 0 {
		return TimeAxisResolution{}, &CoordinateNotFoundError{Available: append([]string(nil), axisNames...)}
	}
	return TimeAxisResolution{
		Axis:      matches[0],
		Ambiguous: len(matches) > 1,
		Matches:   matches,
	}, nil
}

// resolveSpatialAxes identifies the latitude and longitude axes among the
// non-time axes, by name where possible, by order otherwise (first remaining
// axis is taken as latitude, matching IMD variable layout).
func resolveSpatialAxes(axisNames []string, timeAxis string) (lat, lon string) {
	remaining := make([]string, 0, len(axisNames))
	for _, name := range axisNames {
		if name != timeAxis {
			remaining = append(remaining, name)
		}
	}

	lat = firstPresent(latAxisSpellings, remaining)
	lon = firstPresent(lonAxisSpellings, remaining)
	for _, name := range remaining {
		if lat == "" && name != lon {
			lat = name
		} else if lon == "" && name != lat {
			lon = name
		}
	}
	return lat, lon
}

func firstPresent(spellings, names []string) string {
	for _, spelling := range spellings {
		for _, name := range names {
			if name == spelling {
				return spelling
			}
		}
	}
	return ""
}
