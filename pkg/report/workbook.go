package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/model"
)

const (
	sheetObservations = "observations"
	sheetCoefficients = "coefficients"
	sheetResiduals    = "residuals"
	sheetCleaningLog  = "cleaning_log"
)

// WriteWorkbook exports the cleaned table, the fitted model and the
// cleaning log as one spreadsheet artifact.
func (r *Reporter) WriteWorkbook(table model.Table, fit *analysis.FitSummary, operations []model.CleaningOperation) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetObservations); err != nil {
		return "", fmt.Errorf("failed to rename observations sheet: %w", err)
	}
	for _, sheet := range []string{sheetCoefficients, sheetResiduals, sheetCleaningLog} {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	if err := writeObservationsSheet(f, table); err != nil {
		return "", err
	}
	if err := writeCoefficientsSheet(f, fit); err != nil {
		return "", err
	}
	if err := writeResidualsSheet(f, fit); err != nil {
		return "", err
	}
	if err := writeCleaningSheet(f, operations); err != nil {
		return "", err
	}

	path := r.artifactPath("covid_eda.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

func writeObservationsSheet(f *excelize.File, table model.Table) error {
	for i, name := range model.RequiredColumns {
		if err := setCell(f, sheetObservations, i+1, 1, name); err != nil {
			return err
		}
	}

	for i, row := range table.Rows {
		values := []interface{}{
			regionCell(row.RegionLevel2),
			row.Date.Format("2006-01-02"),
			numericCell(row.Confirmed),
			numericCell(row.Deaths),
			numericCell(row.Recovered),
			numericCell(row.Tests),
			numericCell(row.Population),
			numericCell(row.StringencyIndex),
			numericCell(row.GovernmentResponseIndex),
		}
		for j, v := range values {
			if v == nil {
				continue
			}
			if err := setCell(f, sheetObservations, j+1, i+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCoefficientsSheet(f *excelize.File, fit *analysis.FitSummary) error {
	headers := []string{"term", "estimate", "std_error", "t_value", "p_value"}
	for i, h := range headers {
		if err := setCell(f, sheetCoefficients, i+1, 1, h); err != nil {
			return err
		}
	}
	for i, c := range fit.Coefficients {
		values := []interface{}{c.Name, statCell(c.Estimate), statCell(c.StdErr), statCell(c.TValue), statCell(c.PValue)}
		for j, v := range values {
			if err := setCell(f, sheetCoefficients, j+1, i+2, v); err != nil {
				return err
			}
		}
	}

	// Fit statistics below the coefficient table, one blank row between.
	statsRow := len(fit.Coefficients) + 3
	pairs := []struct {
		label string
		value interface{}
	}{
		{"observations", fit.N},
		{"degrees_of_freedom", fit.DF},
		{"residual_std_error", statCell(fit.ResidualStdErr)},
		{"r_squared", statCell(fit.RSquared)},
		{"adj_r_squared", statCell(fit.AdjRSquared)},
		{"f_statistic", statCell(fit.FStatistic)},
		{"f_p_value", statCell(fit.FPValue)},
	}
	for i, pair := range pairs {
		if err := setCell(f, sheetCoefficients, 1, statsRow+i, pair.label); err != nil {
			return err
		}
		if err := setCell(f, sheetCoefficients, 2, statsRow+i, pair.value); err != nil {
			return err
		}
	}
	return nil
}

func writeResidualsSheet(f *excelize.File, fit *analysis.FitSummary) error {
	headers := []string{"row", "fitted", "residual"}
	for i, h := range headers {
		if err := setCell(f, sheetResiduals, i+1, 1, h); err != nil {
			return err
		}
	}
	for i := range fit.Fitted {
		if err := setCell(f, sheetResiduals, 1, i+2, i+1); err != nil {
			return err
		}
		if err := setCell(f, sheetResiduals, 2, i+2, statCell(fit.Fitted[i])); err != nil {
			return err
		}
		if err := setCell(f, sheetResiduals, 3, i+2, statCell(fit.Residuals[i])); err != nil {
			return err
		}
	}
	return nil
}

func writeCleaningSheet(f *excelize.File, operations []model.CleaningOperation) error {
	headers := []string{"step", "column", "rows_affected", "detail"}
	for i, h := range headers {
		if err := setCell(f, sheetCleaningLog, i+1, 1, h); err != nil {
			return err
		}
	}
	for i, op := range operations {
		values := []interface{}{op.Step, op.Column, op.RowsAffected, op.Detail}
		for j, v := range values {
			if err := setCell(f, sheetCleaningLog, j+1, i+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// setCell writes one value at 1-based column and row coordinates.
func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to map cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("failed to write cell %s on %s: %w", cell, sheet, err)
	}
	return nil
}

// regionCell returns nil for missing labels so the cell stays empty.
func regionCell(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// numericCell returns nil for missing values so the cell stays empty.
func numericCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return statCell(*v)
}

// statCell stores non-finite values as text since spreadsheet numeric cells
// cannot hold NaN or infinities.
func statCell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%g", v)
	}
	return v
}
