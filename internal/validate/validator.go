// Package validate inspects a finished run and flags quality problems.
// Every rule is advisory; a warning never blocks the response.
package validate

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/geoscope/internal/domain"
)

// Validation is the advisory verdict on a run.
type Validation struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// sourceMarkers holds, per data source, the substrings of which at least one
// must appear in the final text for the source to count as cited.
var sourceMarkers = [][]string{
	{"Nominatim", "OpenStreetMap"},
	{"Overpass", "OSM"},
	{"Open-Elevation", "elevation"},
}

// Check applies the advisory rules: the run should have used tools, every
// invocation should have succeeded, and the final text should cite at least
// one of the data sources.
func Check(trace domain.Trace, finalText string) Validation {
	warnings := []string{}

	if len(trace) == 0 {
		warnings = append(warnings, "no tools were used - the answer may not be grounded in real data")
	}

	for _, record := range trace {
		if record.Failed() {
			warnings = append(warnings, fmt.Sprintf("tool %s failed: %s", record.Tool, record.Failure.Reason))
		}
	}

	cited := false
	for _, markers := range sourceMarkers {
		for _, marker := range markers {
			if strings.Contains(finalText, marker) {
				cited = true
				break
			}
		}
	}
	if !cited {
		warnings = append(warnings, "the answer does not clearly cite its data sources")
	}

	return Validation{
		Valid:    len(warnings) == 0,
		Warnings: warnings,
	}
}
