// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pca

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pdiddy/expression-engine/pkg/types"
)

// conditionColors cycles through condition groups in label order.
var conditionColors = []color.RGBA{
	{R: 0xd6, G: 0x2d, B: 0x20, A: 0xff}, // red
	{R: 0x40, G: 0x75, B: 0xb4, A: 0xff}, // blue
	{R: 0x4d, G: 0xac, B: 0x26, A: 0xff}, // green
	{R: 0x7b, G: 0x32, B: 0x94, A: 0xff}, // purple
}

// ScatterPlot renders PC1 vs PC2 colored by sample condition.
func ScatterPlot(res *Result, meta map[string]types.Sample, title, path string) error {
	if len(res.Scores.Cols()) < 2 {
		return fmt.Errorf("scatter plot needs at least 2 components, have %d", len(res.Scores.Cols()))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("PC1 (%.1f%%)", res.Explained[0]*100)
	p.Y.Label.Text = fmt.Sprintf("PC2 (%.1f%%)", res.Explained[1]*100)
	p.Legend.Top = true

	byCondition := make(map[types.Condition]plotter.XYs)
	for i, id := range res.Scores.Rows() {
		cond := meta[id].Condition
		byCondition[cond] = append(byCondition[cond], plotter.XY{
			X: res.Scores.At(i, 0),
			Y: res.Scores.At(i, 1),
		})
	}

	conditions := make([]types.Condition, 0, len(byCondition))
	for c := range byCondition {
		conditions = append(conditions, c)
	}
	sort.Slice(conditions, func(i, j int) bool { return conditions[i] < conditions[j] })

	for i, cond := range conditions {
		s, err := plotter.NewScatter(byCondition[cond])
		if err != nil {
			return fmt.Errorf("building scatter for %s: %w", cond, err)
		}
		s.GlyphStyle.Color = conditionColors[i%len(conditionColors)]
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		label := string(cond)
		if label == "" {
			label = "unlabeled"
		}
		p.Legend.Add(label, s)
	}

	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
