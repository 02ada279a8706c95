package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// fitOLS solves least squares for the given response and design rows via
// singular value decomposition and derives the usual inference statistics.
// terms names the design columns in order, intercept included. When the fit
// leaves no residual degrees of freedom the coefficient estimates are still
// exact but every variance-based statistic is NaN, matching what reference
// statistical software reports for a saturated model.
func fitOLS(y []float64, rows [][]float64, terms []string) (*FitSummary, error) {
	n := len(y)
	p := len(terms)

	x := mat.NewDense(n, p, nil)
	for i, row := range rows {
		x.SetRow(i, row)
	}

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, errors.New("singular value decomposition did not converge")
	}

	sv := svd.Values(nil)
	rank := numericalRank(sv, n, p)
	if rank < p {
		return nil, &RankDeficientError{Rank: rank, Columns: p}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	beta := solveFromSVD(&u, &v, sv, y, p)

	fitted := make([]float64, n)
	residuals := make([]float64, n)
	var rss float64
	for i := 0; i < n; i++ {
		var f float64
		for j := 0; j < p; j++ {
			f += x.At(i, j) * beta[j]
		}
		fitted[i] = f
		residuals[i] = y[i] - f
		rss += residuals[i] * residuals[i]
	}

	tss := totalSumOfSquares(y)
	df := n - p

	rSquared := math.NaN()
	if tss > 0 {
		rSquared = 1 - rss/tss
	}

	rse := math.NaN()
	adjRSquared := math.NaN()
	fStat := math.NaN()
	fPValue := math.NaN()
	if df >= 1 {
		sigma2 := rss / float64(df)
		rse = math.Sqrt(sigma2)
		if tss > 0 {
			adjRSquared = 1 - (1-rSquared)*float64(n-1)/float64(df)
			fStat = ((tss - rss) / float64(p-1)) / sigma2
			if math.IsInf(fStat, 1) {
				fPValue = 0
			} else {
				fPValue = distuv.F{D1: float64(p - 1), D2: float64(df)}.Survival(fStat)
			}
		}
	}

	coefficients := make([]Coefficient, p)
	for j := 0; j < p; j++ {
		var unscaled float64 // j-th diagonal entry of (XᵀX)⁻¹ via V and the singular values
		for k := 0; k < p; k++ {
			ratio := v.At(j, k) / sv[k]
			unscaled += ratio * ratio
		}
		se := rse * math.Sqrt(unscaled)
		t := beta[j] / se
		pv := math.NaN()
		if df >= 1 {
			dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
			pv = 2 * dist.Survival(math.Abs(t))
		}
		coefficients[j] = Coefficient{
			Name:     terms[j],
			Estimate: beta[j],
			StdErr:   se,
			TValue:   t,
			PValue:   pv,
		}
	}

	return &FitSummary{
		N:              n,
		Coefficients:   coefficients,
		ResidualStdErr: rse,
		DF:             df,
		RSquared:       rSquared,
		AdjRSquared:    adjRSquared,
		FStatistic:     fStat,
		FPValue:        fPValue,
		Fitted:         fitted,
		Residuals:      residuals,
	}, nil
}

// numericalRank counts singular values above the standard relative
// tolerance max(n, p) * eps * largest singular value.
func numericalRank(sv []float64, n, p int) int {
	if len(sv) == 0 || sv[0] == 0 {
		return 0
	}
	eps := math.Nextafter(1, 2) - 1
	tol := float64(max(n, p)) * eps * sv[0]
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}
	return rank
}

// solveFromSVD computes the least squares solution V diag(1/s) Uᵀ y from
// the thin SVD factors. All p singular values are known to be above the
// rank tolerance when this is called.
func solveFromSVD(u, v *mat.Dense, sv []float64, y []float64, p int) []float64 {
	n := len(y)
	scaled := make([]float64, p)
	for k := 0; k < p; k++ {
		var dot float64
		for i := 0; i < n; i++ {
			dot += u.At(i, k) * y[i]
		}
		scaled[k] = dot / sv[k]
	}

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		var s float64
		for k := 0; k < p; k++ {
			s += v.At(j, k) * scaled[k]
		}
		beta[j] = s
	}
	return beta
}

func totalSumOfSquares(y []float64) float64 {
	mean := stat.Mean(y, nil)
	var tss float64
	for _, v := range y {
		d := v - mean
		tss += d * d
	}
	return tss
}
