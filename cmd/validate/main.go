// Command validate inspects a NetCDF rainfall dataset and reports schema
// problems before it is dropped into the service's data directory: axis
// names and time-axis resolution, variable shapes, the time range, and
// missing-value coverage.
//
// Usage:
//
//	go run ./cmd/validate -file data/RF25_ind2023_rfp25.nc [-variable RAINFALL]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/rainfall-map-service/internal/adapter/netcdf"
	"github.com/couchcryptid/rainfall-map-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "path to a NetCDF rainfall dataset")
	variable := flag.String("variable", "RAINFALL", "value variable expected by the service")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*file, *variable))
}

func run(file, variable string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	loader := netcdf.NewLoader(logger)
	field, err := loader.Load(context.Background(), file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL load: %v\n", err)
		return 1
	}

	phases := []*phase{
		checkSchema(field, variable),
		checkTimeAxis(field),
		checkCoverage(field, variable),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func checkSchema(field *domain.GriddedField, variable string) *phase {
	p := &phase{name: "schema"}

	fmt.Printf("axes: %v\n", field.AxisNames())
	fmt.Printf("variables: %v\n", field.VariableNames())

	if _, err := field.Variable(variable); err != nil {
		p.errorf("%v", err)
	}
	return p
}

func checkTimeAxis(field *domain.GriddedField) *phase {
	p := &phase{name: "time axis"}

	res, err := domain.ResolveTimeAxis(field.AxisNames())
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if res.Ambiguous {
		p.errorf("multiple recognized time-axis spellings present: %v (service will pick %q)",
			res.Matches, res.Axis)
	}

	ax, _ := field.Axis(res.Axis)
	fmt.Printf("time axis: %q, %d steps, %s .. %s\n",
		res.Axis, ax.Len(),
		ax.Times[0].Format("2006-01-02"),
		ax.Times[len(ax.Times)-1].Format("2006-01-02"))
	return p
}

func checkCoverage(field *domain.GriddedField, variable string) *phase {
	p := &phase{name: "coverage"}

	data, err := field.Variable(variable)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	missing := 0
	for _, v := range data.Elements {
		if math.IsNaN(v) {
			missing++
		}
	}
	total := len(data.Elements)
	fmt.Printf("coverage: %d/%d cells present (%.1f%% missing)\n",
		total-missing, total, 100*float64(missing)/float64(total))

	if missing == total {
		p.errorf("variable %q is missing everywhere", variable)
	}
	return p
}
