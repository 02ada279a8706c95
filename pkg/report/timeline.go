package report

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/model"
)

// regionSeries holds the date-ordered confirmed values for one region.
type regionSeries struct {
	label string
	dates []time.Time
	cases []float64
}

// ConfirmedTimeline renders one line per region_level2 label with the raw
// confirmed values connected in date order. Rows without a region label are
// skipped. Regions with fewer than two observations cannot form a line and
// are skipped as well.
func (r *Reporter) ConfirmedTimeline(table model.Table) (string, error) {
	byRegion := make(map[string]*regionSeries)
	order := make([]*regionSeries, 0)
	for _, row := range table.Rows {
		if row.RegionLevel2 == nil || row.Confirmed == nil {
			continue
		}
		label := *row.RegionLevel2
		rs, ok := byRegion[label]
		if !ok {
			rs = &regionSeries{label: label}
			byRegion[label] = rs
			order = append(order, rs)
		}
		rs.dates = append(rs.dates, row.Date)
		rs.cases = append(rs.cases, *row.Confirmed)
	}

	series := make([]chart.Series, 0, len(order))
	for i, rs := range order {
		if len(rs.dates) < 2 {
			r.logger.Debug("Skipping region with too few observations for a line",
				zap.String("region", rs.label),
				zap.Int("observations", len(rs.dates)))
			continue
		}
		rs.sortByDate()
		series = append(series, chart.TimeSeries{
			Name:    rs.label,
			XValues: rs.dates,
			YValues: rs.cases,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(i),
				StrokeWidth: 2,
			},
		})
	}
	if len(series) == 0 {
		return "", fmt.Errorf("no region has enough observations to draw")
	}

	ch := chart.Chart{
		Title:      "Confirmed cases over time by region",
		Width:      1024,
		Height:     512,
		Background: chart.Style{Padding: chart.Box{Top: 16, Left: 16, Right: 16, Bottom: 32}},
		XAxis:      chart.XAxis{Name: model.ColDate},
		YAxis:      chart.YAxis{Name: model.ColConfirmed},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	path := r.artifactPath("confirmed_timeline.png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create timeline file: %w", err)
	}
	defer f.Close()

	if err := ch.Render(chart.PNG, f); err != nil {
		return "", fmt.Errorf("failed to render timeline: %w", err)
	}
	return path, nil
}

// sortByDate orders the series points by date, keeping the incoming order
// for equal dates.
func (rs *regionSeries) sortByDate() {
	idx := make([]int, len(rs.dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rs.dates[idx[a]].Before(rs.dates[idx[b]])
	})

	dates := make([]time.Time, len(idx))
	cases := make([]float64, len(idx))
	for i, j := range idx {
		dates[i] = rs.dates[j]
		cases[i] = rs.cases[j]
	}
	rs.dates = dates
	rs.cases = cases
}
