// Package shapefile loads administrative boundary polygons for map overlay.
// Boundaries are presentation data only; aggregation never consumes them.
package shapefile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// wgs84 is the target reference system for rendering.
const wgs84 = "+proj=longlat +datum=WGS84 +no_defs"

// BoundarySet holds boundary polygons in WGS84.
type BoundarySet struct {
	Polygons []geom.Polygonal
}

// Empty reports whether the set has no polygons.
func (b *BoundarySet) Empty() bool { return b == nil || len(b.Polygons) == 0 }

// requiredCompanions are the shapefile components that must all be present.
// A partial set is a hard validation failure; the loader never substitutes a
// neighboring file.
var requiredCompanions = []string{".shp", ".shx", ".dbf"}

// Load reads boundary polygons from the shapefile at path (the .shp file)
// and reprojects them from srcSR (a Proj4 string) to WGS84.
func Load(path, srcSR string, logger *slog.Logger) (*BoundarySet, error) {
	if err := checkCompanions(path); err != nil {
		return nil, err
	}

	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer d.Close()

	transform, err := wgs84Transform(srcSR)
	if err != nil {
		return nil, err
	}

	var polygons []geom.Polygonal
	skipped := 0
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if transform != nil {
			g, err = g.Transform(transform)
			if err != nil {
				return nil, fmt.Errorf("reproject boundary geometry: %w", err)
			}
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			skipped++
			continue
		}
		polygons = append(polygons, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("decode shapefile %s: %w", path, err)
	}
	if skipped > 0 {
		logger.Warn("skipped non-polygonal shapefile rows", "path", path, "count", skipped)
	}
	if len(polygons) == 0 {
		return nil, fmt.Errorf("shapefile %s contains no polygons", path)
	}

	logger.Info("boundary set loaded", "path", path, "polygons", len(polygons))
	return &BoundarySet{Polygons: polygons}, nil
}

// checkCompanions verifies the .shp/.shx/.dbf component set is complete.
func checkCompanions(path string) error {
	base := strings.TrimSuffix(path, ".shp")
	if base == path {
		return fmt.Errorf("boundary file %s: expected a .shp path", path)
	}
	var missing []string
	for _, ext := range requiredCompanions {
		if _, err := os.Stat(base + ext); err != nil {
			missing = append(missing, ext)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete shapefile set for %s: missing %s",
			path, strings.Join(missing, ", "))
	}
	return nil
}

// wgs84Transform returns the srcSR→WGS84 transformer, or nil when the source
// is already WGS84.
func wgs84Transform(srcSR string) (proj.Transformer, error) {
	if srcSR == "" || srcSR == wgs84 {
		return nil, nil
	}
	src, err := proj.Parse(srcSR)
	if err != nil {
		return nil, fmt.Errorf("parse boundary SR %q: %w", srcSR, err)
	}
	dst, err := proj.Parse(wgs84)
	if err != nil {
		return nil, fmt.Errorf("parse WGS84 SR: %w", err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("create boundary transform: %w", err)
	}
	return t, nil
}
