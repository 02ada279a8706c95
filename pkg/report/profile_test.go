package report

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epidatalab/covid-eda/pkg/model"
)

func TestBuildDatasetProfile(t *testing.T) {
	table := reportTable()
	// A null cell reduces the present count for its column only.
	table.Rows[3].Recovered = nil

	text := BuildDatasetProfile(table)

	assert.Contains(t, text, "Dataset Profile")
	assert.Contains(t, text, "Rows:              12")
	assert.Contains(t, text, "Distinct Regions:  2")

	for _, col := range []string{
		model.ColConfirmed,
		model.ColDeaths,
		model.ColRecovered,
		model.ColTests,
		model.ColPopulation,
		model.ColStringencyIndex,
		model.ColGovernmentResponseIndex,
	} {
		assert.Contains(t, text, col)
	}

	assert.Contains(t, text, "Rows per Region")
	assert.Contains(t, text, "- A: 6 rows")
	assert.Contains(t, text, "- B: 6 rows")
	assert.Contains(t, text, "Frame Summary")
}

func TestWriteDatasetProfile(t *testing.T) {
	r := newTestReporter(t)

	path, err := r.WriteDatasetProfile(reportTable())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Dataset Profile")
}
