// Package plot renders evaluation figures as PNG files.
package plot

import (
	"fmt"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// confusionGrid lays a square confusion matrix out with actual classes on
// the Y axis, first class on top, and predicted classes on the X axis.
type confusionGrid struct {
	counts [][]int
}

func (g confusionGrid) Dims() (c, r int) {
	return len(g.counts), len(g.counts)
}

func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.counts[r][c])
}

func (g confusionGrid) X(c int) float64 {
	return float64(c)
}

func (g confusionGrid) Y(r int) float64 {
	return float64(len(g.counts) - 1 - r)
}

// ConfusionMatrix writes a heatmap of counts[actual][predicted] to path.
// The file format follows the extension, normally .png.
func ConfusionMatrix(counts [][]int, classNames []string, title, path string) error {
	if len(counts) == 0 || len(counts) != len(classNames) {
		return eris.Errorf("plot: %d classes but %d names", len(counts), len(classNames))
	}
	for _, row := range counts {
		if len(row) != len(counts) {
			return eris.New("plot: confusion matrix is not square")
		}
	}

	pal, err := brewer.GetPalette(brewer.TypeSequential, "Blues", 9)
	if err != nil {
		return eris.Wrap(err, "plot: palette")
	}

	grid := confusionGrid{counts: counts}
	heat := plotter.NewHeatMap(grid, pal)
	if heat.Max <= heat.Min {
		heat.Max = heat.Min + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Actual"
	p.Add(heat)

	reversed := make([]string, len(classNames))
	for i, name := range classNames {
		reversed[len(classNames)-1-i] = name
	}
	p.NominalX(classNames...)
	p.NominalY(reversed...)

	var cells plotter.XYLabels
	for r, row := range counts {
		for c, v := range row {
			cells.XYs = append(cells.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%d", v))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return eris.Wrap(err, "plot: cell labels")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(labels)

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "plot: save %s", path)
	}
	return nil
}
