package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/cleaner"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// VerificationCheck is the outcome of one post-run invariant check.
type VerificationCheck struct {
	Name    string
	Passed  bool
	Details string
}

// VerificationReport aggregates the post-run checks.
type VerificationReport struct {
	Checks   []VerificationCheck
	Duration time.Duration
}

// Passed reports whether every check passed.
func (vr *VerificationReport) Passed() bool {
	for _, check := range vr.Checks {
		if !check.Passed {
			return false
		}
	}
	return true
}

// Verifier re-checks the cleaning and fit invariants on a finished run. A
// failed check points at an implementation fault, not at the data, so the
// runner reports it loudly instead of failing the run.
type Verifier struct {
	logger *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(logger *zap.Logger) *Verifier {
	return &Verifier{logger: logger}
}

// VerifyRun runs every invariant check against the cleaned table and the
// fit and returns the aggregated report.
func (v *Verifier) VerifyRun(table model.Table, fit *analysis.FitSummary) *VerificationReport {
	start := time.Now()

	invariants := []struct {
		name string
		fn   func() (bool, string)
	}{
		{"tests_imputed", func() (bool, string) { return verifyTestsImputed(table) }},
		{"outcomes_present", func() (bool, string) { return verifyOutcomesPresent(table) }},
		{"region_cardinality", func() (bool, string) { return verifyRegionCardinality(table) }},
		{"residual_alignment", func() (bool, string) { return verifyResidualAlignment(fit) }},
	}

	checks := make([]VerificationCheck, 0, len(invariants))
	for _, inv := range invariants {
		passed, details := inv.fn()
		checks = append(checks, v.check(inv.name, passed, details))
	}

	report := &VerificationReport{
		Checks:   checks,
		Duration: time.Since(start),
	}

	if report.Passed() {
		v.logger.Info("Run verification passed",
			zap.Int("checks", len(checks)),
			zap.Duration("duration", report.Duration))
	}
	return report
}

// check logs a single outcome and returns it as a record.
func (v *Verifier) check(name string, passed bool, details string) VerificationCheck {
	if passed {
		v.logger.Debug("Verification check passed",
			zap.String("check", name),
			zap.String("details", details))
	} else {
		v.logger.Warn("Verification check failed",
			zap.String("check", name),
			zap.String("details", details))
	}
	return VerificationCheck{Name: name, Passed: passed, Details: details}
}

// verifyTestsImputed checks that imputation left no missing tests value.
func verifyTestsImputed(table model.Table) (bool, string) {
	missing := 0
	for _, row := range table.Rows {
		if row.Tests == nil {
			missing++
		}
	}
	if missing > 0 {
		return false, fmt.Sprintf("%d of %d rows still missing tests", missing, table.Len())
	}
	return true, fmt.Sprintf("all %d rows carry a tests value", table.Len())
}

// verifyOutcomesPresent checks that filtering removed every row with a
// missing outcome value.
func verifyOutcomesPresent(table model.Table) (bool, string) {
	incomplete := 0
	for _, row := range table.Rows {
		if row.Confirmed == nil || row.Deaths == nil || row.Recovered == nil {
			incomplete++
		}
	}
	if incomplete > 0 {
		return false, fmt.Sprintf("%d of %d rows have a missing outcome value", incomplete, table.Len())
	}
	return true, fmt.Sprintf("all %d rows have complete outcome values", table.Len())
}

// verifyRegionCardinality checks that collapsing capped the label set.
func verifyRegionCardinality(table model.Table) (bool, string) {
	distinct := len(table.DistinctRegions())
	unlabeled := 0
	for _, row := range table.Rows {
		if row.RegionLevel2 == nil {
			unlabeled++
		}
	}
	limit := cleaner.MaxRegionLabels + 1 // kept labels plus the collapsed one
	if distinct > limit {
		return false, fmt.Sprintf("%d distinct labels exceed the limit of %d", distinct, limit)
	}
	if unlabeled > 0 {
		return false, fmt.Sprintf("%d rows left without a region label", unlabeled)
	}
	return true, fmt.Sprintf("%d distinct labels within the limit of %d", distinct, limit)
}

// verifyResidualAlignment checks that the fit exposes one residual and one
// fitted value per row used.
func verifyResidualAlignment(fit *analysis.FitSummary) (bool, string) {
	if fit == nil {
		return false, "fit summary is missing"
	}
	if len(fit.Residuals) != fit.N || len(fit.Fitted) != fit.N {
		return false, fmt.Sprintf("%d residuals and %d fitted values for %d rows",
			len(fit.Residuals), len(fit.Fitted), fit.N)
	}
	return true, fmt.Sprintf("%d residuals aligned to %d rows", len(fit.Residuals), fit.N)
}
