package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/model"
	"github.com/epidatalab/covid-eda/pkg/report"
)

// RunResult captures everything a run produced, complete or not.
type RunResult struct {
	RunID        string
	Level        int
	SourceName   string
	RowsLoaded   int
	RowsCleaned  int
	Operations   []model.CleaningOperation
	Fit          *analysis.FitSummary
	Verification *VerificationReport
	Artifacts    []report.Artifact
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Success      bool
}

// NewRunResult initializes a result for a run against the named source.
func NewRunResult(level int, sourceName string) *RunResult {
	return &RunResult{
		RunID:      uuid.New().String(),
		Level:      level,
		SourceName: sourceName,
		StartTime:  time.Now(),
	}
}

// Complete marks the run as finished and calculates its duration.
func (r *RunResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}
