// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/model"
)

// RecordConverter turns raw header+records payloads from a source into typed
// observation tables.
type RecordConverter struct {
	logger *zap.Logger
	config Config
}

// Config provides configuration options for record conversion
type Config struct {
	// Cell values treated as null, matched case-insensitively
	NullTokens []string
	// Expected date layout in the payload
	DateLayout string
	// Whether to trim surrounding whitespace before parsing cells
	TrimCells bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		NullTokens: []string{"", "NA", "NaN", "null"},
		DateLayout: "2006-01-02",
		TrimCells:  true,
	}
}

// NewRecordConverter creates a RecordConverter with default configuration
func NewRecordConverter(logger *zap.Logger) *RecordConverter {
	return NewRecordConverterWithConfig(logger, DefaultConfig())
}

// NewRecordConverterWithConfig creates a RecordConverter with custom configuration
func NewRecordConverterWithConfig(logger *zap.Logger, config Config) *RecordConverter {
	return &RecordConverter{
		logger: logger,
		config: config,
	}
}

// MissingColumnError reports a contract column absent from the payload header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q is missing from the source payload", e.Column)
}

// Convert parses a header+records payload into a typed table. The header may
// carry extra columns in any order; only the contract columns are read. A
// missing contract column fails with MissingColumnError before any row is
// parsed.
func (c *RecordConverter) Convert(records [][]string) (model.Table, error) {
	if len(records) == 0 {
		return model.Table{}, fmt.Errorf("source payload has no header row")
	}

	start := time.Now()

	index, err := c.columnIndex(records[0])
	if err != nil {
		return model.Table{}, err
	}

	rows := make([]model.Observation, 0, len(records)-1)
	for i, record := range records[1:] {
		rowNum := i + 2 // 1-based, after the header
		obs, err := c.convertRow(record, index, rowNum)
		if err != nil {
			return model.Table{}, err
		}
		rows = append(rows, obs)
	}

	c.logger.Info("Payload converted",
		zap.Int("rows", len(rows)),
		zap.Int("payloadColumns", len(records[0])),
		zap.Duration("duration", time.Since(start)))

	return model.NewTable(rows), nil
}

// columnIndex maps each contract column to its position in the header.
func (c *RecordConverter) columnIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if _, dup := positions[normalized]; !dup {
			positions[normalized] = i
		}
	}

	index := make(map[string]int, len(model.RequiredColumns))
	for _, col := range model.RequiredColumns {
		pos, ok := positions[col]
		if !ok {
			return nil, &MissingColumnError{Column: col}
		}
		index[col] = pos
	}
	return index, nil
}

func (c *RecordConverter) convertRow(record []string, index map[string]int, rowNum int) (model.Observation, error) {
	var obs model.Observation

	cell := func(col string) (string, error) {
		pos := index[col]
		if pos >= len(record) {
			return "", fmt.Errorf("row %d is malformed: column %q out of range", rowNum, col)
		}
		if c.config.TrimCells {
			return strings.TrimSpace(record[pos]), nil
		}
		return record[pos], nil
	}

	region, err := cell(model.ColRegionLevel2)
	if err != nil {
		return obs, err
	}
	if !c.isNullToken(region) {
		obs.RegionLevel2 = model.String(region)
	}

	dateCell, err := cell(model.ColDate)
	if err != nil {
		return obs, err
	}
	if c.isNullToken(dateCell) {
		return obs, fmt.Errorf("row %d has a null date", rowNum)
	}
	date, err := time.Parse(c.config.DateLayout, dateCell)
	if err != nil {
		return obs, fmt.Errorf("row %d has invalid date %q: %w", rowNum, dateCell, err)
	}
	obs.Date = date

	numeric := map[string]**float64{
		model.ColConfirmed:               &obs.Confirmed,
		model.ColDeaths:                  &obs.Deaths,
		model.ColRecovered:               &obs.Recovered,
		model.ColTests:                   &obs.Tests,
		model.ColPopulation:              &obs.Population,
		model.ColStringencyIndex:         &obs.StringencyIndex,
		model.ColGovernmentResponseIndex: &obs.GovernmentResponseIndex,
	}
	for _, col := range model.RequiredColumns {
		target, ok := numeric[col]
		if !ok {
			continue
		}
		raw, err := cell(col)
		if err != nil {
			return obs, err
		}
		value, err := c.parseFloatCell(raw, col, rowNum)
		if err != nil {
			return obs, err
		}
		*target = value
	}

	return obs, nil
}
