package report

import (
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultBins is the histogram resolution used by the score command.
const DefaultBins = 20

// PlotProbabilities writes a histogram of predicted survival probabilities
// with a vertical marker at threshold. The image format follows the
// extension of path (png, svg, pdf...).
func PlotProbabilities(proba []float64, threshold float64, bins int, path string) error {
	if len(proba) == 0 {
		return errors.New("no probabilities to plot")
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	p := plot.New()
	p.Title.Text = "Predicted survival probability"
	p.X.Label.Text = "P(survived)"
	p.Y.Label.Text = "Passengers"
	p.X.Min, p.X.Max = 0, 1

	h, err := plotter.NewHist(plotter.Values(proba), bins)
	if err != nil {
		return err
	}
	h.FillColor = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	p.Add(h)

	_, _, _, ymax := h.DataRange()
	cut, err := plotter.NewLine(plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: ymax}})
	if err != nil {
		return err
	}
	cut.Color = color.RGBA{R: 255, A: 255}
	cut.LineStyle.Width = vg.Points(2)
	p.Add(cut)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
