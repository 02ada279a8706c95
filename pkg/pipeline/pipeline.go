package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/cleaner"
	"github.com/epidatalab/covid-eda/pkg/converter"
	"github.com/epidatalab/covid-eda/pkg/report"
	"github.com/epidatalab/covid-eda/pkg/source"
)

// Stage names used in errors, logs and metrics.
const (
	StageLoad    = "load"
	StageConvert = "convert"
	StageClean   = "clean"
	StageAnalyze = "analyze"
	StageVerify  = "verify"
	StageReport  = "report"
)

// Runner orchestrates one exploratory analysis run over a source: load,
// convert, clean, analyze, verify, report. Stages run synchronously in a
// fixed order and the run stops at the first failure.
type Runner struct {
	source    source.Source
	converter *converter.RecordConverter
	cleaner   *cleaner.DataCleaner
	analyzer  *analysis.Analyzer
	reporter  *report.Reporter
	verifier  *Verifier
	metrics   *RunMetrics
	logger    *zap.Logger
	level     int
}

// NewRunner creates a new Runner instance wired to the given source and
// reporter.
func NewRunner(src source.Source, reporter *report.Reporter, level int, logger *zap.Logger) (*Runner, error) {
	if src == nil {
		return nil, errors.New("source cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New("reporter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	dataCleaner, err := cleaner.NewDataCleaner(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cleaner: %w", err)
	}
	analyzer, err := analysis.NewAnalyzer(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	return &Runner{
		source:    src,
		converter: converter.NewRecordConverter(logger),
		cleaner:   dataCleaner,
		analyzer:  analyzer,
		reporter:  reporter,
		verifier:  NewVerifier(logger),
		metrics:   NewRunMetrics(logger),
		logger:    logger,
		level:     level,
	}, nil
}

// Metrics exposes the run metrics for reporting.
func (r *Runner) Metrics() *RunMetrics {
	return r.metrics
}

// Run executes the full pipeline once and returns the result. On failure
// the returned error is always a *Error carrying the taxonomy category,
// and the partially filled result is returned alongside it.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	result := NewRunResult(r.level, r.source.Name())
	r.logger.Info("Starting analysis run",
		zap.String("runId", result.RunID),
		zap.String("source", result.SourceName),
		zap.Int("level", result.Level))

	stageStart := time.Now()
	records, err := r.source.Fetch(ctx, r.level)
	if err != nil {
		return result, r.fail(result, StageLoad, err)
	}
	r.metrics.RecordStage(StageLoad, time.Since(stageStart), len(records))

	stageStart = time.Now()
	table, err := r.converter.Convert(records)
	if err != nil {
		return result, r.fail(result, StageConvert, err)
	}
	result.RowsLoaded = table.Len()
	r.metrics.RecordStage(StageConvert, time.Since(stageStart), table.Len())

	stageStart = time.Now()
	cleaned, operations, err := r.cleaner.Clean(table)
	result.Operations = operations
	if err != nil {
		return result, r.fail(result, StageClean, err)
	}
	result.RowsCleaned = cleaned.Len()
	r.metrics.RecordStage(StageClean, time.Since(stageStart), cleaned.Len())

	stageStart = time.Now()
	fit, err := r.analyzer.Fit(cleaned)
	if err != nil {
		return result, r.fail(result, StageAnalyze, err)
	}
	result.Fit = fit
	r.metrics.RecordStage(StageAnalyze, time.Since(stageStart), fit.N)

	stageStart = time.Now()
	verification := r.verifier.VerifyRun(cleaned, fit)
	result.Verification = verification
	if !verification.Passed() {
		r.logger.Warn("Run verification reported failures",
			zap.String("runId", result.RunID))
	}
	r.metrics.RecordStage(StageVerify, time.Since(stageStart), cleaned.Len())

	stageStart = time.Now()
	artifacts, err := r.reporter.GenerateAll(cleaned, fit, operations)
	result.Artifacts = artifacts
	if err != nil {
		return result, r.fail(result, StageReport, err)
	}
	r.metrics.RecordStage(StageReport, time.Since(stageStart), len(artifacts))

	r.metrics.Complete()
	result.Complete(true)
	r.logger.Info("Analysis run completed",
		zap.String("runId", result.RunID),
		zap.Int("rowsCleaned", result.RowsCleaned),
		zap.Int("artifacts", len(result.Artifacts)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// fail finalizes the result and maps the stage error onto the taxonomy.
func (r *Runner) fail(result *RunResult, stage string, err error) error {
	result.Complete(false)
	r.metrics.Complete()

	perr := Categorize(stage, err)
	r.logger.Error("Analysis run failed",
		zap.String("runId", result.RunID),
		zap.String("stage", stage),
		zap.String("category", perr.Category.String()),
		zap.Error(err))
	return perr
}
