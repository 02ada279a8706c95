package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// TrendLine is a two-parameter linear fit used for chart overlays.
type TrendLine struct {
	Alpha float64 // intercept
	Beta  float64 // slope
}

// At returns the trend value at x.
func (t TrendLine) At(x float64) float64 {
	return t.Alpha + t.Beta*x
}

// SimpleOLS fits y = alpha + beta*x by least squares over the given points.
// This is a single-predictor fit, separate from the full model in Fit.
func SimpleOLS(xs, ys []float64) (TrendLine, error) {
	if len(xs) == 0 {
		return TrendLine{}, &AllRowsFilteredError{RowsIn: 0}
	}
	if len(xs) != len(ys) {
		return TrendLine{}, fmt.Errorf("mismatched point vectors, %d x values and %d y values", len(xs), len(ys))
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return TrendLine{}, &RankDeficientError{Rank: 1, Columns: 2}
	}
	return TrendLine{Alpha: alpha, Beta: beta}, nil
}
