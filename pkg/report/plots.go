package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// residualHistogramBins is the fixed bin count for the residual histogram.
const residualHistogramBins = 30

var (
	pointColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	trendColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	zeroLineColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	histFillColor = color.RGBA{R: 31, G: 119, B: 180, A: 180}
)

// BoxplotByRegion renders one box per region_level2 label over the confirmed
// column. Rows without a region label are skipped.
func (r *Reporter) BoxplotByRegion(table model.Table) (string, error) {
	groups := make(map[string]plotter.Values)
	labels := make([]string, 0)
	for _, row := range table.Rows {
		if row.RegionLevel2 == nil || row.Confirmed == nil {
			continue
		}
		label := *row.RegionLevel2
		if _, seen := groups[label]; !seen {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], *row.Confirmed)
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("no labeled rows to draw")
	}

	p := plot.New()
	p.Title.Text = "Confirmed cases by region"
	p.Y.Label.Text = model.ColConfirmed

	boxWidth := vg.Points(30)
	for i, label := range labels {
		box, err := plotter.NewBoxPlot(boxWidth, float64(i), groups[label])
		if err != nil {
			return "", fmt.Errorf("failed to build box for %q: %w", label, err)
		}
		p.Add(box)
	}
	p.NominalX(labels...)

	path := r.artifactPath("confirmed_by_region_boxplot.png")
	if err := p.Save(9*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save boxplot: %w", err)
	}
	return path, nil
}

// StringencyScatter renders the raw (stringency_index, confirmed) points
// with a simple least squares trend line fitted on the same points.
func (r *Reporter) StringencyScatter(table model.Table) (string, error) {
	pts := make(plotter.XYs, 0, table.Len())
	xs := make([]float64, 0, table.Len())
	ys := make([]float64, 0, table.Len())
	for _, row := range table.Rows {
		if row.StringencyIndex == nil || row.Confirmed == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: *row.StringencyIndex, Y: *row.Confirmed})
		xs = append(xs, *row.StringencyIndex)
		ys = append(ys, *row.Confirmed)
	}

	trend, err := analysis.SimpleOLS(xs, ys)
	if err != nil {
		return "", fmt.Errorf("failed to fit trend line: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Confirmed cases vs stringency index"
	p.X.Label.Text = model.ColStringencyIndex
	p.Y.Label.Text = model.ColConfirmed
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle = draw.GlyphStyle{
		Color:  pointColor,
		Radius: vg.Points(2),
		Shape:  draw.CircleGlyph{},
	}

	line := plotter.NewFunction(trend.At)
	line.LineStyle.Color = trendColor
	line.LineStyle.Width = vg.Points(1.5)

	p.Add(scatter, line)
	p.Legend.Add("observations", scatter)
	p.Legend.Add(fmt.Sprintf("trend y = %.4g + %.4g x", trend.Alpha, trend.Beta), line)
	p.Legend.Top = true

	path := r.artifactPath("stringency_scatter.png")
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save scatter: %w", err)
	}
	return path, nil
}

// ResidualHistogram renders the distribution of the fit residuals with a
// fixed number of bins.
func (r *Reporter) ResidualHistogram(fit *analysis.FitSummary) (string, error) {
	p := plot.New()
	p.Title.Text = "Residual distribution"
	p.X.Label.Text = "residual"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(plotter.Values(fit.Residuals), residualHistogramBins)
	if err != nil {
		return "", fmt.Errorf("failed to build histogram: %w", err)
	}
	hist.FillColor = histFillColor
	p.Add(hist)

	path := r.artifactPath("residual_histogram.png")
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save histogram: %w", err)
	}
	return path, nil
}

// ResidualsVsFitted renders residuals against fitted values with a
// horizontal reference line at zero.
func (r *Reporter) ResidualsVsFitted(fit *analysis.FitSummary) (string, error) {
	pts := make(plotter.XYs, len(fit.Fitted))
	for i := range fit.Fitted {
		pts[i] = plotter.XY{X: fit.Fitted[i], Y: fit.Residuals[i]}
	}

	p := plot.New()
	p.Title.Text = "Residuals vs fitted values"
	p.X.Label.Text = "fitted"
	p.Y.Label.Text = "residual"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle = draw.GlyphStyle{
		Color:  pointColor,
		Radius: vg.Points(2),
		Shape:  draw.CircleGlyph{},
	}

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.LineStyle.Color = zeroLineColor
	zero.LineStyle.Width = vg.Points(1)
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(scatter, zero)

	path := r.artifactPath("residuals_vs_fitted.png")
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save residual plot: %w", err)
	}
	return path, nil
}
