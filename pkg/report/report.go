package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// Artifact identifies one rendered output of a reporting run.
type Artifact struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Duration  time.Duration
}

// Reporter renders the exploratory charts, the regression summary and the
// workbook export for a finished analysis run. Every artifact is written
// under the configured output directory.
type Reporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewReporter creates a new Reporter instance and ensures the output
// directory exists.
func NewReporter(outputDir string, logger *zap.Logger) (*Reporter, error) {
	if outputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Reporter{outputDir: outputDir, logger: logger}, nil
}

// renderStep pairs an artifact name with the call that produces it.
type renderStep struct {
	name   string
	render func() (string, error)
}

// GenerateAll renders every artifact in a fixed order and returns the list
// of produced artifacts. Rendering stops at the first failure, returning
// the artifacts produced so far together with the error.
func (r *Reporter) GenerateAll(table model.Table, fit *analysis.FitSummary, operations []model.CleaningOperation) ([]Artifact, error) {
	if fit == nil {
		return nil, errors.New("fit summary cannot be nil")
	}

	steps := []renderStep{
		{"confirmed_by_region_boxplot", func() (string, error) { return r.BoxplotByRegion(table) }},
		{"confirmed_timeline", func() (string, error) { return r.ConfirmedTimeline(table) }},
		{"stringency_scatter", func() (string, error) { return r.StringencyScatter(table) }},
		{"residual_histogram", func() (string, error) { return r.ResidualHistogram(fit) }},
		{"residuals_vs_fitted", func() (string, error) { return r.ResidualsVsFitted(fit) }},
		{"regression_summary", func() (string, error) { return r.WriteRegressionSummary(fit) }},
		{"dataset_profile", func() (string, error) { return r.WriteDatasetProfile(table) }},
		{"analysis_workbook", func() (string, error) { return r.WriteWorkbook(table, fit, operations) }},
	}

	artifacts := make([]Artifact, 0, len(steps))
	for _, step := range steps {
		start := time.Now()
		path, err := step.render()
		if err != nil {
			return artifacts, fmt.Errorf("failed to render %s: %w", step.name, err)
		}

		artifact := Artifact{
			Name:      step.name,
			Path:      path,
			CreatedAt: time.Now(),
			Duration:  time.Since(start),
		}
		artifacts = append(artifacts, artifact)

		r.logger.Info("Rendered artifact",
			zap.String("artifact", artifact.Name),
			zap.String("path", artifact.Path),
			zap.Duration("duration", artifact.Duration))
	}

	return artifacts, nil
}

// artifactPath builds the full path for a named artifact file.
func (r *Reporter) artifactPath(filename string) string {
	return filepath.Join(r.outputDir, filename)
}
