// Package render draws an aggregated rainfall field as a choropleth PNG with
// an optional administrative boundary overlay.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/ctessum/geom"
	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/rainfall-map-service/internal/adapter/shapefile"
	"github.com/couchcryptid/rainfall-map-service/internal/domain"
)

// Blues ramp endpoints, matching the matplotlib "Blues" colormap the map has
// always used.
var (
	rampLow  = color.NRGBA{R: 247, G: 251, B: 255, A: 255}
	rampHigh = color.NRGBA{R: 8, G: 48, B: 107, A: 255}
)

// Options controls the color scale and output size.
type Options struct {
	// ColorMin/ColorMax span the color scale in the variable's units. When
	// ColorMax <= ColorMin the range is derived from the field's finite
	// values.
	ColorMin float64
	ColorMax float64
	// Width is the output width in pixels; height follows the grid aspect.
	Width int
}

// PNG renders the field to a PNG image. Cells missing in the aggregate stay
// background-colored; boundaries, when present, are stroked on top.
func PNG(field *domain.AggregatedField, boundaries *shapefile.BoundarySet, opts Options) ([]byte, error) {
	if len(field.Lats) == 0 || len(field.Lons) == 0 {
		return nil, fmt.Errorf("render: empty spatial axes")
	}
	if opts.Width <= 0 {
		return nil, fmt.Errorf("render: width must be positive")
	}

	vmin, vmax := opts.ColorMin, opts.ColorMax
	if vmax <= vmin {
		vmin, vmax = finiteRange(field)
	}

	lonMin, lonMax := extent(field.Lons)
	latMin, latMax := extent(field.Lats)
	height := int(float64(opts.Width) * (latMax - latMin) / (lonMax - lonMin))
	if height <= 0 {
		height = opts.Width
	}

	dc := gg.NewContext(opts.Width, height)
	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, float64(opts.Width), float64(height))
	dc.Fill()

	toX := func(lon float64) float64 {
		return (lon - lonMin) / (lonMax - lonMin) * float64(opts.Width)
	}
	toY := func(lat float64) float64 {
		// North up: larger latitudes map to smaller y.
		return (latMax - lat) / (latMax - latMin) * float64(height)
	}

	for i, lat := range field.Lats {
		y0 := toY(lat + spacing(field.Lats, i)/2)
		y1 := toY(lat - spacing(field.Lats, i)/2)
		for j, lon := range field.Lons {
			v := field.Value(i, j)
			if math.IsNaN(v) {
				continue
			}
			x0 := toX(lon - spacing(field.Lons, j)/2)
			x1 := toX(lon + spacing(field.Lons, j)/2)
			dc.SetColor(rampColor(v, vmin, vmax))
			dc.DrawRectangle(x0, y0, x1-x0, y1-y0)
			dc.Fill()
		}
	}

	if !boundaries.Empty() {
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		for _, p := range boundaries.Polygons {
			strokePolygonal(dc, p, toX, toY)
		}
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// rampColor interpolates the Blues ramp, clamping to [vmin, vmax].
func rampColor(v, vmin, vmax float64) color.NRGBA {
	t := 0.0
	if vmax > vmin {
		t = (v - vmin) / (vmax - vmin)
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)))
	}
	return color.NRGBA{
		R: lerp(rampLow.R, rampHigh.R),
		G: lerp(rampLow.G, rampHigh.G),
		B: lerp(rampLow.B, rampHigh.B),
		A: 255,
	}
}

// finiteRange derives a color range from the field's present values.
func finiteRange(field *domain.AggregatedField) (float64, float64) {
	finite := make([]float64, 0, len(field.Data.Elements))
	for _, v := range field.Data.Elements {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 1
	}
	vmin, vmax := floats.Min(finite), floats.Max(finite)
	if vmax == vmin {
		vmax = vmin + 1
	}
	return vmin, vmax
}

// spacing returns the grid step at index i from the coordinate center
// points, using the neighbor gap at the edges.
func spacing(points []float64, i int) float64 {
	if len(points) < 2 {
		return 1
	}
	if i == 0 {
		return math.Abs(points[1] - points[0])
	}
	if i == len(points)-1 {
		return math.Abs(points[len(points)-1] - points[len(points)-2])
	}
	return math.Abs(points[i+1]-points[i-1]) / 2
}

func extent(points []float64) (min, max float64) {
	min, max = floats.Min(points), floats.Max(points)
	// Pad by half a step so edge cells are fully inside the canvas.
	pad := spacing(points, 0) / 2
	return min - pad, max + pad
}

func strokePolygonal(dc *gg.Context, p geom.Polygonal, toX, toY func(float64) float64) {
	switch g := p.(type) {
	case geom.Polygon:
		strokePolygon(dc, g, toX, toY)
	case geom.MultiPolygon:
		for _, poly := range g {
			strokePolygon(dc, poly, toX, toY)
		}
	}
}

func strokePolygon(dc *gg.Context, poly geom.Polygon, toX, toY func(float64) float64) {
	for _, ring := range poly {
		if len(ring) == 0 {
			continue
		}
		dc.NewSubPath()
		dc.MoveTo(toX(ring[0].X), toY(ring[0].Y))
		for _, pt := range ring[1:] {
			dc.LineTo(toX(pt.X), toY(pt.Y))
		}
		dc.ClosePath()
	}
}
