package residual

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
	histBins    = 30
)

// SaveHistogram writes a histogram of residuals to path. The image format
// follows the file extension (png, svg, pdf...).
func SaveHistogram(residuals []float64, path string) error {
	if len(residuals) == 0 {
		return errors.NewValueError("residual.SaveHistogram", "no residuals")
	}
	p := plot.New()
	p.Title.Text = "Residuals"
	p.X.Label.Text = "actual - predicted"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(plotter.Values(residuals), histBins)
	if err != nil {
		return errors.Wrap(err, "residual: build histogram")
	}
	p.Add(h)
	p.Add(plotter.NewGrid())

	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return errors.Wrapf(err, "residual: save %s", path)
	}
	return nil
}

// SaveScatter writes a predicted-versus-actual scatter plot to path, with the
// identity line for reference.
func SaveScatter(actual, predicted []float64, path string) error {
	if len(actual) != len(predicted) {
		return errors.NewDimensionError("residual.SaveScatter", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return errors.NewValueError("residual.SaveScatter", "no points")
	}
	p := plot.New()
	p.Title.Text = "Predicted vs actual"
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"

	pts := make(plotter.XYs, len(actual))
	lo, hi := actual[0], actual[0]
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		lo = min(lo, actual[i], predicted[i])
		hi = max(hi, actual[i], predicted[i])
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "residual: build scatter")
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "residual: build identity line")
	}
	identity.LineStyle.Width = vg.Points(1)
	identity.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(s, identity, plotter.NewGrid())
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return errors.Wrapf(err, "residual: save %s", path)
	}
	return nil
}
