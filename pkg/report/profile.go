package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/olekukonko/tablewriter"

	"github.com/epidatalab/covid-eda/pkg/converter"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// columnValues collects the non-null values of one numeric column.
type columnValues struct {
	name   string
	values []float64
}

// BuildDatasetProfile renders distribution statistics for every numeric
// column plus the per-region row counts and a frame-level summary.
func BuildDatasetProfile(table model.Table) string {
	var sb strings.Builder

	regions := table.DistinctRegions()
	sb.WriteString(fmt.Sprintf(`
Dataset Profile
===============
Rows:              %d
Distinct Regions:  %d

Numeric Columns
---------------
`,
		table.Len(),
		len(regions)))

	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader([]string{"Column", "Present", "Mean", "Std Dev", "Min", "Q1", "Median", "Q3", "Max"})
	for _, col := range numericColumns(table) {
		s := stats.Sample{Xs: col.values}
		min, max := s.Bounds()
		tw.Append([]string{
			col.name,
			strconv.Itoa(len(col.values)),
			fmt.Sprintf("%.6g", s.Mean()),
			fmt.Sprintf("%.6g", s.StdDev()),
			fmt.Sprintf("%.6g", min),
			fmt.Sprintf("%.6g", s.Percentile(0.25)),
			fmt.Sprintf("%.6g", s.Percentile(0.5)),
			fmt.Sprintf("%.6g", s.Percentile(0.75)),
			fmt.Sprintf("%.6g", max),
		})
	}
	tw.Render()

	sb.WriteString("\nRows per Region\n---------------\n")
	counts := make(map[string]int)
	for _, row := range table.Rows {
		if row.RegionLevel2 != nil {
			counts[*row.RegionLevel2]++
		}
	}
	for _, label := range regions {
		sb.WriteString(fmt.Sprintf("- %s: %d rows\n", label, counts[label]))
	}

	sb.WriteString("\nFrame Summary\n-------------\n")
	sb.WriteString(converter.Frame(table).Describe().String())

	return sb.String()
}

// WriteDatasetProfile writes the plain-text dataset profile artifact.
func (r *Reporter) WriteDatasetProfile(table model.Table) (string, error) {
	path := r.artifactPath("dataset_profile.txt")
	if err := os.WriteFile(path, []byte(BuildDatasetProfile(table)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write dataset profile: %w", err)
	}
	return path, nil
}

// numericColumns extracts the non-null values of each numeric contract
// column, in contract order.
func numericColumns(table model.Table) []columnValues {
	cols := []columnValues{
		{name: model.ColConfirmed},
		{name: model.ColDeaths},
		{name: model.ColRecovered},
		{name: model.ColTests},
		{name: model.ColPopulation},
		{name: model.ColStringencyIndex},
		{name: model.ColGovernmentResponseIndex},
	}
	for _, row := range table.Rows {
		fields := []*float64{
			row.Confirmed,
			row.Deaths,
			row.Recovered,
			row.Tests,
			row.Population,
			row.StringencyIndex,
			row.GovernmentResponseIndex,
		}
		for i, v := range fields {
			if v != nil {
				cols[i].values = append(cols[i].values, *v)
			}
		}
	}
	return cols
}
