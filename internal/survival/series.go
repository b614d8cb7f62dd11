package survival

import (
	"fmt"
	"strings"

	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/profiling"
)

// BuildSeries decodes the event column, aligns it with the time column and
// validates the result. groups may be empty for single-group data. An invalid
// series is a DataError carrying the validation warnings.
func (n *Normalizer) BuildSeries(rows []analysis.Row, timeCol, eventCol string, groups profiling.GroupIndex) (*analysis.SurvivalSeries, error) {
	if len(rows) == 0 {
		return nil, errors.DataError("no rows for survival analysis")
	}

	label := make(map[int]string, groups.Total())
	for gi, indices := range groups.Indices {
		for _, ri := range indices {
			label[ri] = groups.Labels[gi]
		}
	}
	grouped := groups.Len() > 0

	var (
		times     []float64
		rawEvents []interface{}
		labels    []string
	)
	for i, row := range rows {
		var g string
		if grouped {
			var ok bool
			if g, ok = label[i]; !ok {
				continue
			}
		}
		t, ok := profiling.ToFloat(row[timeCol])
		if !ok {
			if profiling.IsMissing(row[timeCol]) {
				continue
			}
			return nil, errors.DataError("time variable %q has non-numeric value %v at row %d", timeCol, row[timeCol], i+1)
		}
		times = append(times, t)
		rawEvents = append(rawEvents, row[eventCol])
		if grouped {
			labels = append(labels, g)
		}
	}

	if len(times) == 0 {
		return nil, errors.DataError("no valid survival data found after cleaning")
	}

	events := n.Normalize(eventCol, rawEvents)
	report := Validate(times, events.Values)

	warnings := make([]string, 0, len(events.Warnings)+len(report.Warnings))
	for _, w := range events.Warnings {
		warnings = append(warnings, w.String())
	}
	warnings = append(warnings, report.Warnings...)

	if !report.Valid {
		n.logger.Warn().
			Int("events", report.Events).
			Int("total", report.TotalObservations).
			Strs("warnings", report.Warnings).
			Msg("survival data rejected")
		return nil, errors.DataError("survival data validation failed. Events: %d/%d (%s): %s",
			report.Events, report.TotalObservations, percent(report.EventRate), strings.Join(warnings, "; "))
	}

	return &analysis.SurvivalSeries{
		Time:       times,
		Event:      events.Values,
		Groups:     labels,
		Encoding:   events.Encoding,
		Validation: report,
		Warnings:   warnings,

		EncodingAmbiguous: events.Ambiguous(),
	}, nil
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
