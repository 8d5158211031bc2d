// Package grouping forms cross-technique review cases out of open technique
// alerts for a unit/component.
package grouping

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// WindowPolicy bounds how far apart alert intervals may start and still group
// into one case. The zero value groups nothing.
type WindowPolicy struct {
	// Window is the sliding proximity window between alert starts.
	Window time.Duration
	// CalendarDay groups by UTC calendar day instead of the sliding window.
	CalendarDay bool
}

// SelectGroupable picks the alerts whose active intervals fall inside the
// window policy, anchored on the earliest alert start. Alerts are assumed
// pre-filtered to open/monitoring and not linked to a live case.
func SelectGroupable(alerts []models.TechniqueAlert, policy WindowPolicy) []models.TechniqueAlert {
	if len(alerts) == 0 {
		return nil
	}

	anchor := alerts[0].StartTS
	for _, a := range alerts[1:] {
		if a.StartTS.Before(anchor) {
			anchor = a.StartTS
		}
	}

	selected := make([]models.TechniqueAlert, 0, len(alerts))
	for _, a := range alerts {
		if inWindow(anchor, a.StartTS, policy) {
			selected = append(selected, a)
		}
	}

	return selected
}

func inWindow(anchor, start time.Time, policy WindowPolicy) bool {
	if policy.CalendarDay {
		ay, am, ad := anchor.UTC().Date()
		sy, sm, sd := start.UTC().Date()
		return ay == sy && am == sm && ad == sd
	}
	if policy.Window <= 0 {
		return false
	}
	diff := start.Sub(anchor)
	if diff < 0 {
		diff = -diff
	}
	return diff <= policy.Window
}

// DeriveLabel classifies a case by the techniques of its linked alerts:
// oil_only and telemetry_only for single-technique cases, both for exactly
// the oil/telemetry pair, multi for anything else.
func DeriveLabel(alerts []models.TechniqueAlert) models.CaseLabel {
	techniques := map[string]bool{}
	for _, a := range alerts {
		techniques[a.TechniqueCode] = true
	}

	switch {
	case len(techniques) == 1 && techniques[models.TechniqueOil]:
		return models.LabelOilOnly
	case len(techniques) == 1 && techniques[models.TechniqueTelemetry]:
		return models.LabelTelemetryOnly
	case len(techniques) == 2 && techniques[models.TechniqueOil] && techniques[models.TechniqueTelemetry]:
		return models.LabelBoth
	default:
		return models.LabelMulti
	}
}

// EarliestStart returns the earliest start among the alerts. A case's
// time_start always equals this value.
func EarliestStart(alerts []models.TechniqueAlert) time.Time {
	earliest := alerts[0].StartTS
	for _, a := range alerts[1:] {
		if a.StartTS.Before(earliest) {
			earliest = a.StartTS
		}
	}
	return earliest
}
