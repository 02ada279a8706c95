// pkg/model/observation.go
package model

import "time"

// Column names of the hub export consumed by the pipeline. These names are
// the contract with the external data source, not chosen by this system.
const (
	ColRegionLevel2            = "region_level2"
	ColDate                    = "date"
	ColConfirmed               = "confirmed"
	ColDeaths                  = "deaths"
	ColRecovered               = "recovered"
	ColTests                   = "tests"
	ColPopulation              = "population"
	ColStringencyIndex         = "stringency_index"
	ColGovernmentResponseIndex = "government_response_index"
)

// RequiredColumns lists every contract column, in export order. The converter
// rejects a payload that is missing any of them.
var RequiredColumns = []string{
	ColRegionLevel2,
	ColDate,
	ColConfirmed,
	ColDeaths,
	ColRecovered,
	ColTests,
	ColPopulation,
	ColStringencyIndex,
	ColGovernmentResponseIndex,
}

// Observation is a single (region, date) measurement. Nullable cells are
// pointer fields; a nil pointer is a null cell.
type Observation struct {
	RegionLevel2            *string   // administrative level-2 label
	Date                    time.Time // calendar date of the measurement
	Confirmed               *float64  // cumulative confirmed cases
	Deaths                  *float64  // cumulative deaths
	Recovered               *float64  // cumulative recoveries
	Tests                   *float64  // cumulative tests, imputed by the cleaner
	Population              *float64  // region population
	StringencyIndex         *float64  // policy stringency score in [0,100]
	GovernmentResponseIndex *float64  // overall response score in [0,100]
}

// Region returns the region label, or the empty string for a null label.
func (o Observation) Region() string {
	if o.RegionLevel2 == nil {
		return ""
	}
	return *o.RegionLevel2
}

// Float64 returns a pointer to v. Convenience for building observations.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to s. Convenience for building observations.
func String(s string) *string { return &s }
