package report

import (
	pkgvalidator "backend-lanewatch/pkg/validator"
)

const (
	msgMissingReportFields = "missing report fields"
	msgInvalidCoordinates  = "invalid lat/lng coordinates"
	msgWarningsNull        = "warnings cannot be null"
	msgNoWarnings          = "no warnings found"
	msgEmptyText           = "text cannot be empty"
)

// coords holds only registered tag functions; it is never mutated after init.
var coords = pkgvalidator.New()

// ValidateReport returns every rule the report breaks, or nil.
// Warnings themselves are checked by ValidateWarning.
func ValidateReport(r Report) []string {
	var problems []string

	if r.StartLat == nil || r.StartLng == nil || r.EndLat == nil || r.EndLng == nil {
		problems = append(problems, msgMissingReportFields)
	} else if !validLat(*r.StartLat) || !validLat(*r.EndLat) || !validLng(*r.StartLng) || !validLng(*r.EndLng) {
		problems = append(problems, msgInvalidCoordinates)
	}

	if r.Warnings == nil {
		problems = append(problems, msgWarningsNull)
	} else if len(r.Warnings) == 0 {
		problems = append(problems, msgNoWarnings)
	}
	return problems
}

// ValidateWarning returns every rule the warning breaks, or nil.
// A missing coordinate counts as invalid.
func ValidateWarning(w Warning) []string {
	var problems []string

	if w.Lat == nil || w.Lng == nil || !validLat(*w.Lat) || !validLng(*w.Lng) {
		problems = append(problems, msgInvalidCoordinates)
	}
	if w.Text == "" {
		problems = append(problems, msgEmptyText)
	}
	return problems
}

func validLat(v float64) bool {
	return coords.Var(v, "lat") == nil
}

func validLng(v float64) bool {
	return coords.Var(v, "lng") == nil
}
