// Package rendering draws trained-map grids as PNG heat maps.
package rendering

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/turtacn/EconSOM/pkg/errors"
)

// MapKind names a renderable grid.
type MapKind string

const (
	KindDistance MapKind = "distance"
	KindHit      MapKind = "hit"
)

// DataURIPrefix precedes the base64 payload of an encoded PNG.
const DataURIPrefix = "data:image/png;base64,"

const paletteColors = 9

// ParseMapKind validates a map type coming from a request.
func ParseMapKind(s string) (MapKind, error) {
	switch MapKind(s) {
	case KindDistance, KindHit:
		return MapKind(s), nil
	}
	return "", errors.New(errors.ErrCodeUnsupportedMapType, "invalid map type, use 'distance' or 'hit'").WithDetail(s)
}

// Options controls the canvas.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Palette is "blues" (sequential) or "blackbody".
	Palette string
}

// DefaultOptions returns the settings used for kind.
func DefaultOptions(kind MapKind) Options {
	o := Options{Width: 10 * vg.Centimeter, Height: 10 * vg.Centimeter}
	switch kind {
	case KindHit:
		o.Title = "SOM Hit Map"
		o.Palette = "blues"
	default:
		o.Title = "SOM Distance Map (U-Matrix)"
		o.Palette = "blackbody"
	}
	return o
}

// Render draws grid, indexed [row][col], with the defaults for kind.
func Render(kind MapKind, grid [][]float64) ([]byte, error) {
	if _, err := ParseMapKind(string(kind)); err != nil {
		return nil, err
	}
	return RenderWithOptions(grid, DefaultOptions(kind))
}

// RenderWithOptions draws grid as a PNG heat map.  Row 0 is drawn at the
// top.
func RenderWithOptions(grid [][]float64, opts Options) ([]byte, error) {
	g, err := newGrid(grid)
	if err != nil {
		return nil, err
	}
	pal, err := choosePalette(opts.Palette, g.min, g.max)
	if err != nil {
		return nil, err
	}

	hm := plotter.NewHeatMap(g, pal)
	hm.Min, hm.Max = g.min, g.max
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Add(hm)
	p.X.Min, p.X.Max = -0.5, float64(g.cols)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(g.rows)-0.5

	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 10 * vg.Centimeter
	}
	if h <= 0 {
		h = 10 * vg.Centimeter
	}
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to create canvas")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to encode png")
	}
	return buf.Bytes(), nil
}

// EncodeDataURI wraps png as a data URI.
func EncodeDataURI(png []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// IntGrid converts a hit map for rendering.
func IntGrid(g [][]int) [][]float64 {
	out := make([][]float64, len(g))
	for r := range g {
		out[r] = make([]float64, len(g[r]))
		for c, v := range g[r] {
			out[r][c] = float64(v)
		}
	}
	return out
}

// grid adapts [row][col] data to plotter.GridXYZ.  Rows are flipped so the
// first row lands at the top of the image.
type grid struct {
	data       [][]float64
	rows, cols int
	min, max   float64
}

func newGrid(data [][]float64) (*grid, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, errors.New(errors.ErrCodeRenderFailed, "nothing to render").WithDetail("empty grid")
	}
	g := &grid{data: data, rows: len(data), cols: len(data[0]), min: math.Inf(1), max: math.Inf(-1)}
	for r, row := range data {
		if len(row) != g.cols {
			return nil, errors.New(errors.ErrCodeRenderFailed, "nothing to render").
				WithDetail(fmt.Sprintf("row %d has %d cells, expected %d", r, len(row), g.cols))
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			g.min = math.Min(g.min, v)
			g.max = math.Max(g.max, v)
		}
	}
	if math.IsInf(g.min, 1) {
		g.min, g.max = 0, 0
	}
	return g, nil
}

func (g *grid) Dims() (c, r int)   { return g.cols, g.rows }
func (g *grid) Z(c, r int) float64 { return g.data[g.rows-1-r][c] }
func (g *grid) X(c int) float64    { return float64(c) }
func (g *grid) Y(r int) float64    { return float64(r) }

func choosePalette(name string, min, max float64) (palette.Palette, error) {
	switch name {
	case "", "blues":
		p, err := brewer.GetPalette(brewer.TypeSequential, "Blues", paletteColors)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRenderFailed, "palette unavailable")
		}
		return p, nil
	case "blackbody":
		cm := moreland.ExtendedBlackBody()
		if max <= min {
			max = min + 1
		}
		cm.SetMin(min)
		cm.SetMax(max)
		return palette.Reverse(cm).Palette(paletteColors * 4), nil
	}
	return nil, errors.New(errors.ErrCodeRenderFailed, "unknown palette").WithDetail(name)
}

//Personal.AI order the ending
