// pkg/converter/frame.go
package converter

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/epidatalab/covid-eda/pkg/model"
)

// Frame renders a table as a gota dataframe for descriptive profiling. Null
// numeric cells become NaN, the frame's missing marker; null region labels
// become empty strings. The frame is a view for statistics, not a pipeline
// stage, so the lossy null mapping is acceptable here.
func Frame(table model.Table) dataframe.DataFrame {
	n := table.Len()

	regions := make([]string, n)
	dates := make([]string, n)
	confirmed := make([]float64, n)
	deaths := make([]float64, n)
	recovered := make([]float64, n)
	tests := make([]float64, n)
	population := make([]float64, n)
	stringency := make([]float64, n)
	response := make([]float64, n)

	for i, row := range table.Rows {
		regions[i] = row.Region()
		dates[i] = row.Date.Format("2006-01-02")
		confirmed[i] = floatOrNaN(row.Confirmed)
		deaths[i] = floatOrNaN(row.Deaths)
		recovered[i] = floatOrNaN(row.Recovered)
		tests[i] = floatOrNaN(row.Tests)
		population[i] = floatOrNaN(row.Population)
		stringency[i] = floatOrNaN(row.StringencyIndex)
		response[i] = floatOrNaN(row.GovernmentResponseIndex)
	}

	return dataframe.New(
		series.New(regions, series.String, model.ColRegionLevel2),
		series.New(dates, series.String, model.ColDate),
		series.New(confirmed, series.Float, model.ColConfirmed),
		series.New(deaths, series.Float, model.ColDeaths),
		series.New(recovered, series.Float, model.ColRecovered),
		series.New(tests, series.Float, model.ColTests),
		series.New(population, series.Float, model.ColPopulation),
		series.New(stringency, series.Float, model.ColStringencyIndex),
		series.New(response, series.Float, model.ColGovernmentResponseIndex),
	)
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
