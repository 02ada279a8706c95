package analysis

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/model"
)

// RankDeficientError reports a design matrix without full column rank, for
// example a constant predictor or two perfectly collinear predictors.
type RankDeficientError struct {
	Rank    int
	Columns int
}

func (e *RankDeficientError) Error() string {
	return fmt.Sprintf("design matrix has rank %d, need %d", e.Rank, e.Columns)
}

// AllRowsFilteredError reports that no row had values for every model column.
type AllRowsFilteredError struct {
	RowsIn int
}

func (e *AllRowsFilteredError) Error() string {
	return fmt.Sprintf("no usable rows for the fit, all %d rows have nulls in model columns", e.RowsIn)
}

// Coefficient holds the estimate for a single model term together with its
// inference statistics.
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	TValue   float64
	PValue   float64
}

// FitSummary is the complete result of an ordinary least squares fit.
// Fitted and Residuals are aligned to the rows actually used, in table
// order, after the analysis null filter.
type FitSummary struct {
	Formula        string
	N              int
	Coefficients   []Coefficient
	ResidualStdErr float64
	DF             int
	RSquared       float64
	AdjRSquared    float64
	FStatistic     float64
	FPValue        float64
	Fitted         []float64
	Residuals      []float64
}

// Analyzer fits the confirmed-cases regression model on a cleaned table.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new Analyzer instance
func NewAnalyzer(logger *zap.Logger) (*Analyzer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Analyzer{logger: logger}, nil
}

// Fit estimates confirmed ~ stringency_index + government_response_index +
// population by ordinary least squares. Rows with a null in any of the four
// model columns are excluded from the fit only; the table itself is left as
// cleaned.
func (a *Analyzer) Fit(table model.Table) (*FitSummary, error) {
	start := time.Now()

	y, x := modelData(table)
	if len(y) == 0 {
		return nil, &AllRowsFilteredError{RowsIn: table.Len()}
	}

	summary, err := fitOLS(y, x, modelTerms())
	if err != nil {
		return nil, err
	}
	summary.Formula = modelFormula()

	a.logger.Info("Fitted regression model",
		zap.String("formula", summary.Formula),
		zap.Int("rowsUsed", summary.N),
		zap.Int("rowsExcluded", table.Len()-summary.N),
		zap.Float64("rSquared", summary.RSquared),
		zap.Duration("duration", time.Since(start)))

	return summary, nil
}

// modelData extracts the response vector and the design matrix rows from
// the table, keeping only rows with every model column present. The design
// rows carry the intercept column first, matching modelTerms.
func modelData(table model.Table) ([]float64, [][]float64) {
	y := make([]float64, 0, table.Len())
	x := make([][]float64, 0, table.Len())
	for _, row := range table.Rows {
		if row.Confirmed == nil || row.StringencyIndex == nil ||
			row.GovernmentResponseIndex == nil || row.Population == nil {
			continue
		}
		y = append(y, *row.Confirmed)
		x = append(x, []float64{1, *row.StringencyIndex, *row.GovernmentResponseIndex, *row.Population})
	}
	return y, x
}

func modelTerms() []string {
	return []string{
		"(Intercept)",
		model.ColStringencyIndex,
		model.ColGovernmentResponseIndex,
		model.ColPopulation,
	}
}

func modelFormula() string {
	return fmt.Sprintf("%s ~ %s + %s + %s",
		model.ColConfirmed,
		model.ColStringencyIndex,
		model.ColGovernmentResponseIndex,
		model.ColPopulation)
}
