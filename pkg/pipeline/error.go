package pipeline

import (
	"errors"
	"fmt"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/cleaner"
	"github.com/epidatalab/covid-eda/pkg/converter"
)

// ErrorCategory classifies run failures. Every category is fatal, the run
// stops at the first error and reports the cause.
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	// CategorySourceUnavailable covers an unreachable data source and
	// payloads too malformed to convert.
	CategorySourceUnavailable
	// CategoryMissingColumn covers a contract column absent from the
	// loaded table.
	CategoryMissingColumn
	// CategoryRankDeficient covers a regression design matrix without
	// full column rank.
	CategoryRankDeficient
	// CategoryAllRowsFiltered covers cleaning or analysis filtering that
	// leaves no usable rows.
	CategoryAllRowsFiltered
	// CategoryInternal covers failures of the run machinery itself, such
	// as artifact files that cannot be written.
	CategoryInternal
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case CategoryNone:
		return "None"
	case CategorySourceUnavailable:
		return "SourceUnavailable"
	case CategoryMissingColumn:
		return "MissingColumn"
	case CategoryRankDeficient:
		return "RankDeficient"
	case CategoryAllRowsFiltered:
		return "AllRowsFiltered"
	case CategoryInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(ec))
	}
}

// Error is a run failure tagged with the stage that produced it and its
// taxonomy category. The underlying cause stays reachable unchanged through
// Unwrap.
type Error struct {
	Category ErrorCategory
	Stage    string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage failed [%s]: %v", e.Stage, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Categorize maps a stage failure onto the run taxonomy. Typed domain
// errors decide the category directly; anything else falls back on the
// stage, since load and convert failures always trace back to the source.
func Categorize(stage string, err error) *Error {
	category := CategoryInternal

	var missingColumn *converter.MissingColumnError
	var cleanFiltered *cleaner.AllRowsFilteredError
	var fitFiltered *analysis.AllRowsFilteredError
	var rankDeficient *analysis.RankDeficientError

	switch {
	case errors.As(err, &missingColumn):
		category = CategoryMissingColumn
	case errors.As(err, &cleanFiltered), errors.As(err, &fitFiltered):
		category = CategoryAllRowsFiltered
	case errors.As(err, &rankDeficient):
		category = CategoryRankDeficient
	case stage == StageLoad || stage == StageConvert:
		category = CategorySourceUnavailable
	}

	return &Error{Category: category, Stage: stage, Err: err}
}
