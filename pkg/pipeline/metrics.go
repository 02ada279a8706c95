package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StageTiming records the duration and output row count of one stage.
type StageTiming struct {
	Stage    string
	Duration time.Duration
	Rows     int
}

// RunMetrics collects per-stage timings for a single run. The run is
// synchronous, one stage after another, so no locking is involved.
type RunMetrics struct {
	logger    *zap.Logger
	StartTime time.Time
	EndTime   time.Time
	Timings   []StageTiming
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		logger:    logger,
		StartTime: time.Now(),
		Timings:   make([]StageTiming, 0, 6),
	}
}

// RecordStage appends a stage timing.
func (m *RunMetrics) RecordStage(stage string, duration time.Duration, rows int) {
	m.Timings = append(m.Timings, StageTiming{Stage: stage, Duration: duration, Rows: rows})

	if m.logger != nil {
		m.logger.Info("Stage completed",
			zap.String("stage", stage),
			zap.Duration("duration", duration),
			zap.Int("rows", rows))
	}
}

// Complete marks the run as finished.
func (m *RunMetrics) Complete() {
	m.EndTime = time.Now()
}

// Duration returns the total runtime so far.
func (m *RunMetrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// GenerateRunReport creates a plain-text report for a finished run.
func (m *RunMetrics) GenerateRunReport(result *RunResult) string {
	report := fmt.Sprintf(`
Analysis Run Report
===================
Run ID:         %s
Source:         %s
Level:          %d
Duration:       %s
Success:        %t

Data Summary
------------
Rows Loaded:    %d
Rows Cleaned:   %d
`,
		result.RunID,
		result.SourceName,
		result.Level,
		formatDuration(result.Duration),
		result.Success,

		result.RowsLoaded,
		result.RowsCleaned,
	)

	if len(result.Operations) > 0 {
		report += "\nCleaning Operations\n-------------------\n"
		for _, op := range result.Operations {
			report += fmt.Sprintf("- %s (%s): %d rows, %s\n", op.Step, op.Column, op.RowsAffected, op.Detail)
		}
	}

	report += "\nStage Timings\n-------------\n"
	for _, timing := range m.Timings {
		report += fmt.Sprintf("- %s: %s, %d rows\n", timing.Stage, formatDuration(timing.Duration), timing.Rows)
	}

	if result.Verification != nil {
		report += "\nVerification\n------------\n"
		for _, check := range result.Verification.Checks {
			status := "PASS"
			if !check.Passed {
				status = "FAIL"
			}
			report += fmt.Sprintf("- %s: %s, %s\n", check.Name, status, check.Details)
		}
	}

	if len(result.Artifacts) > 0 {
		report += "\nArtifacts\n---------\n"
		for _, artifact := range result.Artifacts {
			report += fmt.Sprintf("- %s: %s\n", artifact.Name, artifact.Path)
		}
	}

	return report
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
