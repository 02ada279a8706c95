package report

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// assertPNGWritten checks that the render call produced a non-empty file.
func assertPNGWritten(t *testing.T, path string, err error) {
	t.Helper()
	require.NoError(t, err)
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBoxplotByRegion(t *testing.T) {
	r := newTestReporter(t)

	path, err := r.BoxplotByRegion(reportTable())
	assertPNGWritten(t, path, err)
}

func TestBoxplotByRegion_SkipsUnlabeledRows(t *testing.T) {
	r := newTestReporter(t)

	table := reportTable()
	unlabeled := table.Rows[0]
	unlabeled.RegionLevel2 = nil
	table.Rows = append(table.Rows, unlabeled)

	path, err := r.BoxplotByRegion(table)
	assertPNGWritten(t, path, err)
}

func TestBoxplotByRegion_NoLabeledRows(t *testing.T) {
	r := newTestReporter(t)

	table := model.NewTable([]model.Observation{
		{Date: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), Confirmed: model.Float64(10)},
	})

	_, err := r.BoxplotByRegion(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no labeled rows")
}

func TestStringencyScatter(t *testing.T) {
	r := newTestReporter(t)

	path, err := r.StringencyScatter(reportTable())
	assertPNGWritten(t, path, err)
}

func TestStringencyScatter_ConstantPredictor(t *testing.T) {
	r := newTestReporter(t)

	table := reportTable()
	for i := range table.Rows {
		table.Rows[i].StringencyIndex = model.Float64(55)
	}

	_, err := r.StringencyScatter(table)
	require.Error(t, err)

	var deficient *analysis.RankDeficientError
	assert.True(t, errors.As(err, &deficient))
}

func TestResidualHistogram(t *testing.T) {
	r := newTestReporter(t)

	path, err := r.ResidualHistogram(testFit(40))
	assertPNGWritten(t, path, err)
}

func TestResidualsVsFitted(t *testing.T) {
	r := newTestReporter(t)

	path, err := r.ResidualsVsFitted(testFit(40))
	assertPNGWritten(t, path, err)
}
