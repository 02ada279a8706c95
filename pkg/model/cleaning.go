// pkg/model/cleaning.go
package model

// CleaningOperation records a single transformation applied while preparing
// a table for analysis. Operations are collected in order so a run can
// report exactly what changed between the raw and the cleaned data.
type CleaningOperation struct {
	Step         string // machine-readable step name, e.g. "mean_imputation"
	Column       string // column(s) the step operated on
	RowsAffected int    // rows the step changed or removed
	Detail       string // human-readable summary of the change
}
