// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package heatmap

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// grid adapts a Matrix to plotter.GridXYZ. Row 0 is drawn at the top, the
// clustered-heatmap convention.
type grid struct{ m *matrix.Matrix }

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 {
	nr, _ := g.m.Dims()
	return g.m.At(nr-1-r, c)
}

func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

// Render draws the clustered matrix as a PNG with a diverging
// blue-white-red palette centered on zero.
func Render(m *matrix.Matrix, meta map[string]types.Sample, title, path string) error {
	nr, nc := m.Dims()

	p := plot.New()
	p.Title.Text = title

	// Symmetric color range so zero z-score maps to the palette midpoint.
	var zmax float64
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if v := math.Abs(m.At(i, j)); v > zmax {
				zmax = v
			}
		}
	}
	if zmax == 0 {
		zmax = 1
	}
	// Build the palette over the colormap's default range: the stops are
	// normalized internally, so the colors are identical to a [-zmax, zmax]
	// range, and gonum's Palette panics on the upper bound for arbitrary
	// ranges due to float rounding. hm.Min/Max below pin the data range.
	cm := moreland.SmoothBlueRed()

	hm := plotter.NewHeatMap(grid{m: m}, cm.Palette(255))
	hm.Min = -zmax
	hm.Max = zmax
	p.Add(hm)

	// Column ticks: sample ID with its condition.
	xticks := make([]plot.Tick, nc)
	for j, id := range m.Cols() {
		label := id
		if cond := meta[id].Condition; cond != "" {
			label = fmt.Sprintf("%s (%s)", id, cond)
		}
		xticks[j] = plot.Tick{Value: float64(j), Label: label}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = -0.5

	// Row ticks: gene names, top to bottom.
	yticks := make([]plot.Tick, nr)
	for i, gene := range m.Rows() {
		yticks[i] = plot.Tick{Value: float64(nr - 1 - i), Label: gene}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)

	height := vg.Points(float64(nr)*10 + 120)
	width := vg.Points(float64(nc)*22 + 160)
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
