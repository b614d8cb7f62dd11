package survival

import (
	"fmt"

	"scifig/domain/analysis"
)

// Borderline event rates that are reported but not rejected
const (
	HighEventRate = 0.95
	LowEventRate  = 0.05
)

// Validate checks a normalized series. The series is invalid when it has no
// events, no censoring, a negative time, or a single repeated time value.
func Validate(times []float64, events []int) analysis.ValidationReport {
	report := analysis.ValidationReport{
		TotalObservations: len(events),
		Valid:             true,
	}
	for _, e := range events {
		report.Events += e
	}
	report.Censored = report.TotalObservations - report.Events
	if report.TotalObservations > 0 {
		report.EventRate = float64(report.Events) / float64(report.TotalObservations)
	}

	switch rate := report.EventRate; {
	case rate == 0:
		report.Warnings = append(report.Warnings, "WARNING: No events detected - all observations censored")
		report.Valid = false
	case rate == 1:
		report.Warnings = append(report.Warnings, "CRITICAL: 100% event rate - no censored observations (check event variable coding)")
		report.Valid = false
	case rate > HighEventRate:
		report.Warnings = append(report.Warnings, fmt.Sprintf("WARNING: Very high event rate (%.1f%%) - unusual for survival data", rate*100))
	case rate < LowEventRate:
		report.Warnings = append(report.Warnings, fmt.Sprintf("WARNING: Very low event rate (%.1f%%) - check if events are coded correctly", rate*100))
	}

	if len(times) == 0 {
		report.Valid = false
		return report
	}

	lo, hi := times[0], times[0]
	for _, t := range times[1:] {
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	if lo < 0 {
		report.Warnings = append(report.Warnings, "ERROR: Negative time values detected")
		report.Valid = false
	}
	if lo == hi {
		report.Warnings = append(report.Warnings, "ERROR: All time values are identical")
		report.Valid = false
	}

	return report
}
