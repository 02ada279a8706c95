// pkg/model/table.go
package model

// Table is an in-memory collection of observations. Pipeline stages derive
// new tables rather than mutating their input.
type Table struct {
	Rows []Observation
}

// NewTable wraps rows in a Table without copying.
func NewTable(rows []Observation) Table {
	return Table{Rows: rows}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Clone returns a deep copy of the table. Pointer cells are re-allocated so
// the copy shares no memory with the original.
func (t Table) Clone() Table {
	rows := make([]Observation, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = Observation{
			RegionLevel2:            cloneString(row.RegionLevel2),
			Date:                    row.Date,
			Confirmed:               cloneFloat64(row.Confirmed),
			Deaths:                  cloneFloat64(row.Deaths),
			Recovered:               cloneFloat64(row.Recovered),
			Tests:                   cloneFloat64(row.Tests),
			Population:              cloneFloat64(row.Population),
			StringencyIndex:         cloneFloat64(row.StringencyIndex),
			GovernmentResponseIndex: cloneFloat64(row.GovernmentResponseIndex),
		}
	}
	return Table{Rows: rows}
}

// DistinctRegions returns the distinct non-null region labels in first
// appearance order. Row order, not map order, fixes the result.
func (t Table) DistinctRegions() []string {
	seen := make(map[string]bool, 16)
	var labels []string
	for _, row := range t.Rows {
		if row.RegionLevel2 == nil {
			continue
		}
		if !seen[*row.RegionLevel2] {
			seen[*row.RegionLevel2] = true
			labels = append(labels, *row.RegionLevel2)
		}
	}
	return labels
}

func cloneFloat64(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
