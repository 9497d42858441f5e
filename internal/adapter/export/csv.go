// Package export serializes aggregated fields to tabular CSV, one row per
// spatial cell, and parses the format back for verification tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/rainfall-map-service/internal/domain"
)

// Row is one exported spatial cell.
type Row struct {
	Lat   float64
	Lon   float64
	Value float64
}

// WriteCSV writes the field as CSV with a header row of
// latitude,longitude,<variable>. Cells are emitted in latitude-major order,
// so each (lat, lon) pair appears exactly once. Values use the shortest
// representation that re-parses to the same float64; missing cells are NaN.
func WriteCSV(w io.Writer, field *domain.AggregatedField) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"latitude", "longitude", field.Variable}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, lat := range field.Lats {
		for j, lon := range field.Lons {
			rec := []string{
				formatFloat(lat),
				formatFloat(lon),
				formatFloat(field.Value(i, j)),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the format produced by WriteCSV, returning the variable
// name from the header and one row per cell.
func ReadCSV(r io.Reader) (variable string, rows []Row, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	header, err := cr.Read()
	if err != nil {
		return "", nil, fmt.Errorf("read csv header: %w", err)
	}
	if header[0] != "latitude" || header[1] != "longitude" {
		return "", nil, fmt.Errorf("unexpected csv header %v", header)
	}
	variable = header[2]

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("read csv row: %w", err)
		}
		row := Row{}
		if row.Lat, err = strconv.ParseFloat(rec[0], 64); err != nil {
			return "", nil, fmt.Errorf("parse latitude %q: %w", rec[0], err)
		}
		if row.Lon, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return "", nil, fmt.Errorf("parse longitude %q: %w", rec[1], err)
		}
		if row.Value, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return "", nil, fmt.Errorf("parse value %q: %w", rec[2], err)
		}
		rows = append(rows, row)
	}
	return variable, rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
