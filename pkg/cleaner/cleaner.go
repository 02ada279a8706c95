// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/model"
)

// CollapsedLabel is the replacement label for regions outside the most
// frequent set and for rows that carry no region label at all.
const CollapsedLabel = "other"

// MaxRegionLabels caps how many distinct region_level2 labels survive
// collapsing.
const MaxRegionLabels = 10

// DataCleaner prepares a raw observation table for analysis. The sequence
// is fixed: impute missing test counts with the column mean, drop rows
// missing outcome values, then collapse rare region labels.
type DataCleaner struct {
	logger *zap.Logger
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(logger *zap.Logger) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &DataCleaner{logger: logger}, nil
}

// AllRowsFilteredError reports that the completeness filter removed every
// row, leaving nothing to analyze.
type AllRowsFilteredError struct {
	RowsIn int
}

func (e *AllRowsFilteredError) Error() string {
	return fmt.Sprintf("cleaning removed all %d rows", e.RowsIn)
}

// Clean runs the cleaning sequence on table and returns the cleaned copy
// together with the operations performed. The input table is not modified.
func (c *DataCleaner) Clean(table model.Table) (model.Table, []model.CleaningOperation, error) {
	start := time.Now()
	cleaned := table.Clone()
	operations := make([]model.CleaningOperation, 0, 3)

	imputeOp := imputeTests(&cleaned)
	operations = append(operations, imputeOp)

	filterOp := filterIncomplete(&cleaned)
	operations = append(operations, filterOp)

	if cleaned.Len() == 0 {
		return model.Table{}, operations, &AllRowsFilteredError{RowsIn: table.Len()}
	}

	collapseOp := collapseRegions(&cleaned)
	operations = append(operations, collapseOp)

	c.logger.Info("Cleaned observation table",
		zap.Int("rowsIn", table.Len()),
		zap.Int("rowsOut", cleaned.Len()),
		zap.Int("testsImputed", imputeOp.RowsAffected),
		zap.Int("rowsDropped", filterOp.RowsAffected),
		zap.Int("rowsRelabeled", collapseOp.RowsAffected),
		zap.Duration("duration", time.Since(start)))

	return cleaned, operations, nil
}
