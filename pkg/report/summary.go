package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/epidatalab/covid-eda/pkg/analysis"
)

// BuildRegressionSummary renders the fitted model as a plain-text report
// with a coefficient table and the goodness-of-fit statistics.
func BuildRegressionSummary(fit *analysis.FitSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`
Regression Summary
==================
Formula:              %s
Observations:         %d
Degrees of Freedom:   %d

Coefficients
------------
`,
		fit.Formula,
		fit.N,
		fit.DF))

	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader([]string{"Term", "Estimate", "Std Error", "t value", "p value"})
	for _, c := range fit.Coefficients {
		tw.Append([]string{
			c.Name,
			fmt.Sprintf("%.6g", c.Estimate),
			fmt.Sprintf("%.6g", c.StdErr),
			fmt.Sprintf("%.4g", c.TValue),
			fmt.Sprintf("%.4g", c.PValue),
		})
	}
	tw.Render()

	sb.WriteString(fmt.Sprintf(`
Goodness of Fit
---------------
Residual Std Error:   %.6g on %d degrees of freedom
R-squared:            %.6g
Adjusted R-squared:   %.6g
F-statistic:          %.6g on %d and %d DF
F p-value:            %.4g
`,
		fit.ResidualStdErr, fit.DF,
		fit.RSquared,
		fit.AdjRSquared,
		fit.FStatistic, len(fit.Coefficients)-1, fit.DF,
		fit.FPValue))

	return sb.String()
}

// WriteRegressionSummary writes the plain-text regression summary artifact.
func (r *Reporter) WriteRegressionSummary(fit *analysis.FitSummary) (string, error) {
	path := r.artifactPath("regression_summary.txt")
	if err := os.WriteFile(path, []byte(BuildRegressionSummary(fit)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write regression summary: %w", err)
	}
	return path, nil
}
