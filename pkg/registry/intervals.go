package registry

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Intervals are half-open [valid_from, valid_to); a nil valid_to is open-ended
// and treated as +infinity.

// IntervalsOverlap reports whether two validity intervals intersect.
func IntervalsOverlap(aFrom time.Time, aTo *time.Time, bFrom time.Time, bTo *time.Time) bool {
	if aTo != nil && !aTo.After(bFrom) {
		return false
	}
	if bTo != nil && !bTo.After(aFrom) {
		return false
	}
	return true
}

// FindOverlap returns the first existing limit whose interval intersects the
// candidate's, or nil. All limits must share the same (variable, scope,
// limit type) key; the caller queries by that key.
func FindOverlap(existing []models.VariableLimit, validFrom time.Time, validTo *time.Time) *models.VariableLimit {
	for i := range existing {
		if IntervalsOverlap(existing[i].ValidFrom, existing[i].ValidTo, validFrom, validTo) {
			return &existing[i]
		}
	}
	return nil
}

// ResolveActive selects the limits that govern a variable at the given instant
// and measurement scope. For each limit type independently the most specific
// matching scope wins (component > system > site > unscoped). Two active
// limits of the same type at the same specificity are a configuration defect
// and surface as AmbiguousLimitError.
func ResolveActive(limits []models.VariableLimit, at time.Time, scope models.AssetScope) ([]models.VariableLimit, error) {
	type winner struct {
		limit       models.VariableLimit
		specificity int
		tiedIDs     []string
	}
	winners := map[models.LimitType]*winner{}

	for _, l := range limits {
		if !l.ActiveAt(at) || !l.Scope().Matches(scope) {
			continue
		}
		spec := l.Scope().Specificity()

		w, ok := winners[l.LimitType]
		if !ok || spec > w.specificity {
			winners[l.LimitType] = &winner{limit: l, specificity: spec}
			continue
		}
		if spec == w.specificity {
			w.tiedIDs = append(w.tiedIDs, l.ID)
		}
	}

	resolved := make([]models.VariableLimit, 0, len(winners))
	for limitType, w := range winners {
		if len(w.tiedIDs) > 0 {
			return nil, &models.AmbiguousLimitError{
				VariableID:  w.limit.VariableID,
				LimitType:   limitType,
				At:          at,
				Specificity: w.specificity,
				LimitIDs:    append([]string{w.limit.ID}, w.tiedIDs...),
			}
		}
		resolved = append(resolved, w.limit)
	}

	return resolved, nil
}

// EvaluateBreach runs a value against resolved limits and reports whether any
// limit is reached and the worst breach level. Marginal limits produce an
// alert-level breach, critical limits a critical breach.
func EvaluateBreach(limits []models.VariableLimit, value float64) (bool, models.BreachLevel) {
	reached := false
	level := models.BreachNone

	for _, l := range limits {
		if !l.Breached(value) {
			continue
		}
		reached = true
		candidate := models.BreachAlert
		if l.LimitType.IsCritical() {
			candidate = models.BreachCritical
		}
		if candidate.Rank() > level.Rank() {
			level = candidate
		}
	}

	return reached, level
}
