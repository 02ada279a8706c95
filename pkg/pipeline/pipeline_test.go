package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/cleaner"
	"github.com/epidatalab/covid-eda/pkg/converter"
	"github.com/epidatalab/covid-eda/pkg/model"
	"github.com/epidatalab/covid-eda/pkg/report"
)

// stubSource feeds a canned payload into the runner.
type stubSource struct {
	records [][]string
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Validate(ctx context.Context) error { return nil }

func (s *stubSource) Close() error { return nil }

func (s *stubSource) Fetch(ctx context.Context, level int) ([][]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// hubRecords builds a payload of two regions over six dates, one row with a
// null tests value and one trailing row that the completeness filter drops.
func hubRecords() [][]string {
	records := [][]string{append([]string{}, model.RequiredColumns...)}
	for i := 0; i < 12; i++ {
		region, population := "A", "2250000"
		if i%2 == 1 {
			region, population = "B", "905000"
		}
		tests := strconv.Itoa(1000 + 40*i)
		if i == 4 {
			tests = ""
		}
		records = append(records, []string{
			region,
			fmt.Sprintf("2021-03-%02d", 1+i/2),
			strconv.Itoa(100 + 17*i + (i*i)%5),
			"3",
			"50",
			tests,
			population,
			fmt.Sprintf("%.1f", 40+1.5*float64(i)),
			strconv.Itoa(35 + (i*3)%7),
		})
	}
	records = append(records, []string{"C", "2021-03-07", "", "3", "50", "1200", "500000", "55.0", "38"})
	return records
}

func columnIndex(name string) int {
	for i, col := range model.RequiredColumns {
		if col == name {
			return i
		}
	}
	return -1
}

// dropColumn removes a column from the header and every record.
func dropColumn(records [][]string, name string) [][]string {
	idx := columnIndex(name)
	out := make([][]string, len(records))
	for i, record := range records {
		row := make([]string, 0, len(record)-1)
		row = append(row, record[:idx]...)
		row = append(row, record[idx+1:]...)
		out[i] = row
	}
	return out
}

// setColumn overwrites a column in every data record.
func setColumn(records [][]string, name, value string) [][]string {
	idx := columnIndex(name)
	for _, record := range records[1:] {
		record[idx] = value
	}
	return records
}

func newTestRunner(t *testing.T, src *stubSource) *Runner {
	t.Helper()
	reporter, err := report.NewReporter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	runner, err := NewRunner(src, reporter, 2, zap.NewNop())
	require.NoError(t, err)
	return runner
}

func TestNewRunner_Guards(t *testing.T) {
	logger := zap.NewNop()
	reporter, err := report.NewReporter(t.TempDir(), logger)
	require.NoError(t, err)

	_, err = NewRunner(nil, reporter, 2, logger)
	assert.EqualError(t, err, "source cannot be nil")

	_, err = NewRunner(&stubSource{}, nil, 2, logger)
	assert.EqualError(t, err, "reporter cannot be nil")

	_, err = NewRunner(&stubSource{}, reporter, 2, nil)
	assert.EqualError(t, err, "logger cannot be nil")
}

func TestRun_HappyPath(t *testing.T) {
	runner := newTestRunner(t, &stubSource{records: hubRecords()})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "stub", result.SourceName)
	assert.Equal(t, 13, result.RowsLoaded)
	assert.Equal(t, 12, result.RowsCleaned)
	require.Len(t, result.Operations, 3)

	require.NotNil(t, result.Fit)
	assert.Equal(t, 12, result.Fit.N)
	assert.Len(t, result.Fit.Residuals, 12)

	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.Passed())

	wantArtifacts := []string{
		"confirmed_by_region_boxplot",
		"confirmed_timeline",
		"stringency_scatter",
		"residual_histogram",
		"residuals_vs_fitted",
		"regression_summary",
		"dataset_profile",
		"analysis_workbook",
	}
	require.Len(t, result.Artifacts, len(wantArtifacts))
	for i, artifact := range result.Artifacts {
		assert.Equal(t, wantArtifacts[i], artifact.Name)
		info, statErr := os.Stat(artifact.Path)
		require.NoError(t, statErr, "artifact %s", artifact.Name)
		assert.Greater(t, info.Size(), int64(0), "artifact %s", artifact.Name)
	}

	// One timing per stage, in run order.
	require.Len(t, runner.Metrics().Timings, 6)
	stages := make([]string, 0, 6)
	for _, timing := range runner.Metrics().Timings {
		stages = append(stages, timing.Stage)
	}
	assert.Equal(t, []string{StageLoad, StageConvert, StageClean, StageAnalyze, StageVerify, StageReport}, stages)
}

func TestRun_SourceUnavailable(t *testing.T) {
	cause := errors.New("hub returned status 503")
	runner := newTestRunner(t, &stubSource{err: cause})

	result, err := runner.Run(context.Background())
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CategorySourceUnavailable, perr.Category)
	assert.Equal(t, StageLoad, perr.Stage)

	// The source error is surfaced unchanged.
	assert.True(t, errors.Is(err, cause))

	assert.False(t, result.Success)
	assert.False(t, result.EndTime.IsZero())
}

func TestRun_MissingColumn(t *testing.T) {
	runner := newTestRunner(t, &stubSource{records: dropColumn(hubRecords(), model.ColTests)})

	result, err := runner.Run(context.Background())
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CategoryMissingColumn, perr.Category)
	assert.Equal(t, StageConvert, perr.Stage)

	var missing *converter.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, model.ColTests, missing.Column)

	assert.False(t, result.Success)
}

func TestRun_AllRowsFiltered(t *testing.T) {
	runner := newTestRunner(t, &stubSource{records: setColumn(hubRecords(), model.ColConfirmed, "")})

	result, err := runner.Run(context.Background())
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CategoryAllRowsFiltered, perr.Category)
	assert.Equal(t, StageClean, perr.Stage)

	var filtered *cleaner.AllRowsFilteredError
	require.True(t, errors.As(err, &filtered))
	assert.Equal(t, 13, filtered.RowsIn)

	// The operations up to the failure are preserved on the result.
	assert.Len(t, result.Operations, 2)
	assert.False(t, result.Success)
}

func TestRun_RankDeficient(t *testing.T) {
	runner := newTestRunner(t, &stubSource{records: setColumn(hubRecords(), model.ColPopulation, "1000000")})

	result, err := runner.Run(context.Background())
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CategoryRankDeficient, perr.Category)
	assert.Equal(t, StageAnalyze, perr.Stage)

	var deficient *analysis.RankDeficientError
	require.True(t, errors.As(err, &deficient))
	assert.Equal(t, 3, deficient.Rank)
	assert.Equal(t, 4, deficient.Columns)

	assert.Equal(t, 12, result.RowsCleaned)
	assert.Nil(t, result.Fit)
	assert.False(t, result.Success)
}
