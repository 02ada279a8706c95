// pkg/converter/values.go
package converter

import (
	"fmt"
	"strconv"
	"strings"
)

// isNullToken determines if a cell should be treated as NULL
func (c *RecordConverter) isNullToken(cell string) bool {
	for _, token := range c.config.NullTokens {
		if strings.EqualFold(cell, token) {
			return true
		}
	}
	return false
}

// parseFloatCell parses a numeric cell, returning nil for null tokens.
func (c *RecordConverter) parseFloatCell(cell, col string, rowNum int) (*float64, error) {
	if c.isNullToken(cell) {
		return nil, nil
	}

	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("row %d has invalid numeric value %q in column %s: %w",
			rowNum, cell, col, err)
	}
	return &value, nil
}
