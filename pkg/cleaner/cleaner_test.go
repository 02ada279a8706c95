package cleaner

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/model"
)

func testDate(day int) time.Time {
	return time.Date(2021, 3, day, 0, 0, 0, 0, time.UTC)
}

// completeRow builds an observation that survives every cleaning step.
func completeRow(region string, confirmed float64) model.Observation {
	return model.Observation{
		RegionLevel2:            model.String(region),
		Date:                    testDate(1),
		Confirmed:               model.Float64(confirmed),
		Deaths:                  model.Float64(1),
		Recovered:               model.Float64(2),
		Tests:                   model.Float64(100),
		Population:              model.Float64(500000),
		StringencyIndex:         model.Float64(50),
		GovernmentResponseIndex: model.Float64(40),
	}
}

func newTestCleaner(t *testing.T) *DataCleaner {
	t.Helper()
	c, err := NewDataCleaner(zap.NewNop())
	require.NoError(t, err)
	return c
}

func regionLabels(table model.Table) []string {
	labels := make([]string, table.Len())
	for i, row := range table.Rows {
		labels[i] = row.Region()
	}
	return labels
}

func TestNewDataCleaner(t *testing.T) {
	c, err := NewDataCleaner(zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewDataCleaner(nil)
	assert.EqualError(t, err, "logger cannot be nil")
}

func TestClean_ImputesTestsWithPreFilterMean(t *testing.T) {
	withTests := completeRow("A", 10)
	*withTests.Tests = 100

	missingTests := completeRow("A", 20)
	missingTests.Tests = nil

	// This row is dropped by the completeness filter, but its tests value
	// still contributes to the imputation mean.
	droppedLater := completeRow("B", 0)
	droppedLater.Confirmed = nil
	*droppedLater.Tests = 300

	table := model.NewTable([]model.Observation{withTests, missingTests, droppedLater})

	cleaned, operations, err := newTestCleaner(t).Clean(table)
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.Len())

	// Existing value untouched, null replaced with mean (100+300)/2.
	assert.Equal(t, 100.0, *cleaned.Rows[0].Tests)
	assert.Equal(t, 200.0, *cleaned.Rows[1].Tests)

	require.Len(t, operations, 3)
	assert.Equal(t, "mean_imputation", operations[0].Step)
	assert.Equal(t, model.ColTests, operations[0].Column)
	assert.Equal(t, 1, operations[0].RowsAffected)
}

func TestClean_AllTestsNullImputesNaN(t *testing.T) {
	first := completeRow("A", 10)
	first.Tests = nil
	second := completeRow("A", 20)
	second.Tests = nil

	cleaned, _, err := newTestCleaner(t).Clean(model.NewTable([]model.Observation{first, second}))
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.Len())

	// The mean of an all-null column is NaN, so the imputed values are too.
	require.NotNil(t, cleaned.Rows[0].Tests)
	assert.True(t, math.IsNaN(*cleaned.Rows[0].Tests))
	assert.True(t, math.IsNaN(*cleaned.Rows[1].Tests))
}

func TestClean_DropsRowsWithNullOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Observation)
	}{
		{name: "null confirmed", mutate: func(o *model.Observation) { o.Confirmed = nil }},
		{name: "null deaths", mutate: func(o *model.Observation) { o.Deaths = nil }},
		{name: "null recovered", mutate: func(o *model.Observation) { o.Recovered = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept := completeRow("A", 10)
			dropped := completeRow("B", 20)
			tt.mutate(&dropped)

			cleaned, operations, err := newTestCleaner(t).Clean(model.NewTable([]model.Observation{kept, dropped}))
			require.NoError(t, err)
			require.Equal(t, 1, cleaned.Len())
			assert.Equal(t, "A", cleaned.Rows[0].Region())

			require.Len(t, operations, 3)
			assert.Equal(t, "completeness_filter", operations[1].Step)
			assert.Equal(t, 1, operations[1].RowsAffected)
		})
	}
}

func TestClean_ThreeRowScenario(t *testing.T) {
	rows := []model.Observation{
		{
			RegionLevel2: model.String("A"),
			Date:         testDate(1),
			Confirmed:    model.Float64(10),
			Deaths:       model.Float64(1),
			Recovered:    model.Float64(5),
			Tests:        model.Float64(7),
		},
		{
			RegionLevel2: model.String("A"),
			Date:         testDate(2),
			Confirmed:    model.Float64(20),
			Deaths:       model.Float64(2),
			Recovered:    model.Float64(10),
			Tests:        model.Float64(7),
		},
		{
			RegionLevel2: model.String("B"),
			Date:         testDate(3),
			Confirmed:    nil,
			Deaths:       model.Float64(3),
			Recovered:    model.Float64(15),
			Tests:        model.Float64(7),
		},
	}

	cleaned, _, err := newTestCleaner(t).Clean(model.NewTable(rows))
	require.NoError(t, err)

	require.Equal(t, 2, cleaned.Len())
	assert.Equal(t, []string{"A", "A"}, regionLabels(cleaned))
	assert.Equal(t, 10.0, *cleaned.Rows[0].Confirmed)
	assert.Equal(t, 20.0, *cleaned.Rows[1].Confirmed)
}

func TestClean_CollapsesRareRegions(t *testing.T) {
	var rows []model.Observation
	// Ten frequent labels with three rows each, two rare ones with one row.
	for i := 0; i < MaxRegionLabels; i++ {
		label := fmt.Sprintf("frequent-%02d", i)
		for j := 0; j < 3; j++ {
			rows = append(rows, completeRow(label, float64(i)))
		}
	}
	rows = append(rows, completeRow("rare-1", 1), completeRow("rare-2", 2))

	cleaned, operations, err := newTestCleaner(t).Clean(model.NewTable(rows))
	require.NoError(t, err)

	distinct := cleaned.DistinctRegions()
	assert.LessOrEqual(t, len(distinct), MaxRegionLabels+1)
	assert.Contains(t, distinct, CollapsedLabel)
	assert.NotContains(t, distinct, "rare-1")
	assert.NotContains(t, distinct, "rare-2")

	require.Len(t, operations, 3)
	assert.Equal(t, "label_collapse", operations[2].Step)
	assert.Equal(t, 2, operations[2].RowsAffected)
}

func TestClean_TieBreaksByFirstAppearance(t *testing.T) {
	// Eleven labels, one row each. All counts tie, so the first ten by
	// appearance stay and the eleventh collapses.
	var rows []model.Observation
	for i := 0; i < MaxRegionLabels+1; i++ {
		rows = append(rows, completeRow(fmt.Sprintf("tied-%02d", i), float64(i)))
	}

	cleaned, _, err := newTestCleaner(t).Clean(model.NewTable(rows))
	require.NoError(t, err)

	labels := regionLabels(cleaned)
	for i := 0; i < MaxRegionLabels; i++ {
		assert.Equal(t, fmt.Sprintf("tied-%02d", i), labels[i])
	}
	assert.Equal(t, CollapsedLabel, labels[MaxRegionLabels])
}

func TestClean_NullRegionsAlwaysCollapse(t *testing.T) {
	// Null labels outnumber "A" but never rank; they collapse regardless.
	var rows []model.Observation
	for i := 0; i < 3; i++ {
		row := completeRow("", 1)
		row.RegionLevel2 = nil
		rows = append(rows, row)
	}
	rows = append(rows, completeRow("A", 2))

	cleaned, _, err := newTestCleaner(t).Clean(model.NewTable(rows))
	require.NoError(t, err)

	assert.Equal(t, []string{CollapsedLabel, CollapsedLabel, CollapsedLabel, "A"}, regionLabels(cleaned))
}

func TestClean_Deterministic(t *testing.T) {
	// Tied counts across many labels exercise the ordering that map
	// iteration would otherwise scramble.
	var rows []model.Observation
	for i := 0; i < 20; i++ {
		rows = append(rows, completeRow(fmt.Sprintf("label-%02d", i%13), float64(i)))
	}
	table := model.NewTable(rows)
	c := newTestCleaner(t)

	first, firstOps, err := c.Clean(table)
	require.NoError(t, err)
	second, secondOps, err := c.Clean(table)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstOps, secondOps)
}

func TestClean_ReimputationUsesImputedValues(t *testing.T) {
	withLow := completeRow("A", 10)
	*withLow.Tests = 100
	missing := completeRow("A", 20)
	missing.Tests = nil
	withHigh := completeRow("A", 30)
	*withHigh.Tests = 160

	c := newTestCleaner(t)
	first, _, err := c.Clean(model.NewTable([]model.Observation{withLow, missing, withHigh}))
	require.NoError(t, err)
	require.Equal(t, 3, first.Len())
	assert.Equal(t, 130.0, *first.Rows[1].Tests) // mean(100, 160)

	// Re-cleaning a fully imputed table leaves every tests value alone.
	second, _, err := c.Clean(first)
	require.NoError(t, err)
	assert.Equal(t, 130.0, *second.Rows[1].Tests)
	assert.Equal(t, 160.0, *second.Rows[2].Tests)

	// A null introduced after imputation draws on a mean that now includes
	// the previously imputed value: mean(100, 130), not mean(100, 160).
	reopened := first.Clone()
	reopened.Rows[2].Tests = nil
	third, _, err := c.Clean(reopened)
	require.NoError(t, err)
	assert.Equal(t, 115.0, *third.Rows[2].Tests)
}

func TestClean_AllRowsFiltered(t *testing.T) {
	var rows []model.Observation
	for i := 0; i < 3; i++ {
		row := completeRow("A", float64(i))
		row.Confirmed = nil
		rows = append(rows, row)
	}

	_, operations, err := newTestCleaner(t).Clean(model.NewTable(rows))
	require.Error(t, err)

	var filtered *AllRowsFilteredError
	require.True(t, errors.As(err, &filtered))
	assert.Equal(t, 3, filtered.RowsIn)

	// The operations up to the failure are still reported.
	require.Len(t, operations, 2)
	assert.Equal(t, "mean_imputation", operations[0].Step)
	assert.Equal(t, "completeness_filter", operations[1].Step)
}

func TestClean_DoesNotModifyInput(t *testing.T) {
	missingTests := completeRow("A", 10)
	missingTests.Tests = nil
	dropped := completeRow("rare", 20)
	dropped.Deaths = nil
	table := model.NewTable([]model.Observation{missingTests, completeRow("A", 30), dropped})

	_, _, err := newTestCleaner(t).Clean(table)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Nil(t, table.Rows[0].Tests)
	assert.Nil(t, table.Rows[2].Deaths)
	assert.Equal(t, "rare", table.Rows[2].Region())
}

func TestClean_OperationOrder(t *testing.T) {
	table := model.NewTable([]model.Observation{completeRow("A", 1), completeRow("B", 2)})

	_, operations, err := newTestCleaner(t).Clean(table)
	require.NoError(t, err)

	require.Len(t, operations, 3)
	assert.Equal(t, "mean_imputation", operations[0].Step)
	assert.Equal(t, "completeness_filter", operations[1].Step)
	assert.Equal(t, "label_collapse", operations[2].Step)
	assert.Equal(t, 0, operations[0].RowsAffected)
	assert.Equal(t, 0, operations[1].RowsAffected)
	assert.Equal(t, 0, operations[2].RowsAffected)
}
