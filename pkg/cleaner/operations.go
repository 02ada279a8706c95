// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"math"
	"sort"

	"github.com/epidatalab/covid-eda/pkg/model"
)

// imputeTests replaces every null tests value with the mean of the non-null
// tests values of the incoming table. Rows that already carry a value keep
// it unchanged. When no row carries a value the mean is NaN and the imputed
// values are NaN as well, matching the column mean of an all-null column.
func imputeTests(table *model.Table) model.CleaningOperation {
	var sum float64
	var present int
	for _, row := range table.Rows {
		if row.Tests != nil {
			sum += *row.Tests
			present++
		}
	}

	mean := math.NaN()
	if present > 0 {
		mean = sum / float64(present)
	}

	imputed := 0
	for i := range table.Rows {
		if table.Rows[i].Tests == nil {
			table.Rows[i].Tests = model.Float64(mean)
			imputed++
		}
	}

	return model.CleaningOperation{
		Step:         "mean_imputation",
		Column:       model.ColTests,
		RowsAffected: imputed,
		Detail:       fmt.Sprintf("replaced %d nulls with column mean %g", imputed, mean),
	}
}

// filterIncomplete retains a row iff confirmed, deaths and recovered are all
// non-null. The outcome columns feed the regression directly, so a missing
// value in any of them makes the row unusable.
func filterIncomplete(table *model.Table) model.CleaningOperation {
	rowsIn := len(table.Rows)
	kept := make([]model.Observation, 0, rowsIn)
	for _, row := range table.Rows {
		if row.Confirmed != nil && row.Deaths != nil && row.Recovered != nil {
			kept = append(kept, row)
		}
	}
	dropped := rowsIn - len(kept)
	table.Rows = kept

	return model.CleaningOperation{
		Step:         "completeness_filter",
		Column:       fmt.Sprintf("%s,%s,%s", model.ColConfirmed, model.ColDeaths, model.ColRecovered),
		RowsAffected: dropped,
		Detail:       fmt.Sprintf("dropped %d of %d rows with null outcome values", dropped, rowsIn),
	}
}

// labelCount pairs a region label with its row count and the index of its
// first appearance, which breaks frequency ties deterministically.
type labelCount struct {
	label string
	count int
	first int
}

// collapseRegions relabels every region_level2 value outside the
// MaxRegionLabels most frequent ones to CollapsedLabel. Frequency is counted
// over the filtered table. Ties rank by first appearance so repeated runs
// over the same input produce identical output. Null labels never rank and
// always collapse.
func collapseRegions(table *model.Table) model.CleaningOperation {
	counts := make(map[string]*labelCount)
	ranked := make([]*labelCount, 0)
	for i, row := range table.Rows {
		if row.RegionLevel2 == nil {
			continue
		}
		label := *row.RegionLevel2
		lc, ok := counts[label]
		if !ok {
			lc = &labelCount{label: label, first: i}
			counts[label] = lc
			ranked = append(ranked, lc)
		}
		lc.count++
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	keep := make(map[string]bool, MaxRegionLabels)
	for i, lc := range ranked {
		if i >= MaxRegionLabels {
			break
		}
		keep[lc.label] = true
	}

	relabeled := 0
	for i := range table.Rows {
		label := table.Rows[i].RegionLevel2
		if label != nil && keep[*label] {
			continue
		}
		table.Rows[i].RegionLevel2 = model.String(CollapsedLabel)
		relabeled++
	}

	return model.CleaningOperation{
		Step:         "label_collapse",
		Column:       model.ColRegionLevel2,
		RowsAffected: relabeled,
		Detail:       fmt.Sprintf("kept %d of %d labels, relabeled %d rows to %q", len(keep), len(ranked), relabeled, CollapsedLabel),
	}
}
