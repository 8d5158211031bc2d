package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func TestIntervalsOverlap(t *testing.T) {
	t.Run("disjoint intervals do not overlap", func(t *testing.T) {
		assert.False(t, IntervalsOverlap(
			ts("2024-01-01T00:00:00Z"), tsp("2024-02-01T00:00:00Z"),
			ts("2024-03-01T00:00:00Z"), tsp("2024-04-01T00:00:00Z"),
		))
	})

	t.Run("adjacent half-open intervals do not overlap", func(t *testing.T) {
		// [Jan, Feb) followed by [Feb, Mar) share only the boundary instant
		assert.False(t, IntervalsOverlap(
			ts("2024-01-01T00:00:00Z"), tsp("2024-02-01T00:00:00Z"),
			ts("2024-02-01T00:00:00Z"), tsp("2024-03-01T00:00:00Z"),
		))
	})

	t.Run("partial overlap is detected", func(t *testing.T) {
		assert.True(t, IntervalsOverlap(
			ts("2024-01-01T00:00:00Z"), tsp("2024-03-01T00:00:00Z"),
			ts("2024-02-01T00:00:00Z"), tsp("2024-04-01T00:00:00Z"),
		))
	})

	t.Run("containment is detected", func(t *testing.T) {
		assert.True(t, IntervalsOverlap(
			ts("2024-01-01T00:00:00Z"), tsp("2024-12-01T00:00:00Z"),
			ts("2024-03-01T00:00:00Z"), tsp("2024-04-01T00:00:00Z"),
		))
	})

	t.Run("open-ended interval overlaps everything after its start", func(t *testing.T) {
		assert.True(t, IntervalsOverlap(
			ts("2024-01-01T00:00:00Z"), nil,
			ts("2030-01-01T00:00:00Z"), tsp("2030-02-01T00:00:00Z"),
		))
	})

	t.Run("open-ended interval does not reach backwards", func(t *testing.T) {
		assert.False(t, IntervalsOverlap(
			ts("2024-06-01T00:00:00Z"), nil,
			ts("2024-01-01T00:00:00Z"), tsp("2024-06-01T00:00:00Z"),
		))
	})

	t.Run("two open-ended intervals always overlap", func(t *testing.T) {
		assert.True(t, IntervalsOverlap(
			ts("2024-01-01T00:00:00Z"), nil,
			ts("2029-01-01T00:00:00Z"), nil,
		))
	})
}

func TestFindOverlap(t *testing.T) {
	existing := []models.VariableLimit{
		{ID: "lim-1", ValidFrom: ts("2024-01-01T00:00:00Z"), ValidTo: tsp("2024-06-01T00:00:00Z")},
		{ID: "lim-2", ValidFrom: ts("2024-06-01T00:00:00Z"), ValidTo: nil},
	}

	t.Run("returns first conflicting limit", func(t *testing.T) {
		hit := FindOverlap(existing, ts("2024-03-01T00:00:00Z"), tsp("2024-04-01T00:00:00Z"))
		require.NotNil(t, hit)
		assert.Equal(t, "lim-1", hit.ID)
	})

	t.Run("open-ended candidate conflicts with open-ended existing", func(t *testing.T) {
		hit := FindOverlap(existing, ts("2025-01-01T00:00:00Z"), nil)
		require.NotNil(t, hit)
		assert.Equal(t, "lim-2", hit.ID)
	})

	t.Run("candidate fitting before all intervals is clear", func(t *testing.T) {
		hit := FindOverlap(existing, ts("2023-01-01T00:00:00Z"), tsp("2024-01-01T00:00:00Z"))
		assert.Nil(t, hit)
	})

	t.Run("empty history never conflicts", func(t *testing.T) {
		assert.Nil(t, FindOverlap(nil, ts("2024-01-01T00:00:00Z"), nil))
	})
}

func TestResolveActive(t *testing.T) {
	at := ts("2024-05-15T12:00:00Z")
	scope := models.AssetScope{SiteID: "site-1", SystemID: "sys-1", ComponentID: "comp-1"}

	t.Run("most specific scope wins per limit type", func(t *testing.T) {
		limits := []models.VariableLimit{
			{ID: "fleet", VariableID: "var-1", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2024-01-01T00:00:00Z")},
			{ID: "site", VariableID: "var-1", SiteID: "site-1", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2024-01-01T00:00:00Z")},
			{ID: "component", VariableID: "var-1", SiteID: "site-1", ComponentID: "comp-1", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2024-01-01T00:00:00Z")},
		}

		resolved, err := ResolveActive(limits, at, scope)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, "component", resolved[0].ID)
	})

	t.Run("independent winners per limit type", func(t *testing.T) {
		limits := []models.VariableLimit{
			{ID: "marginal-site", SiteID: "site-1", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2024-01-01T00:00:00Z")},
			{ID: "critical-fleet", LimitType: models.LimitUpperCritical, ValidFrom: ts("2024-01-01T00:00:00Z")},
		}

		resolved, err := ResolveActive(limits, at, scope)
		require.NoError(t, err)
		assert.Len(t, resolved, 2)
	})

	t.Run("expired and future limits are skipped", func(t *testing.T) {
		limits := []models.VariableLimit{
			{ID: "expired", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2023-01-01T00:00:00Z"), ValidTo: tsp("2024-01-01T00:00:00Z")},
			{ID: "future", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2025-01-01T00:00:00Z")},
		}

		resolved, err := ResolveActive(limits, at, scope)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})

	t.Run("narrower scope than the measurement does not match", func(t *testing.T) {
		limits := []models.VariableLimit{
			{ID: "other-component", ComponentID: "comp-other", LimitType: models.LimitUpperMarginal, ValidFrom: ts("2024-01-01T00:00:00Z")},
		}

		resolved, err := ResolveActive(limits, at, scope)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})

	t.Run("tied specificity is ambiguous", func(t *testing.T) {
		limits := []models.VariableLimit{
			{ID: "a", VariableID: "var-1", SiteID: "site-1", LimitType: models.LimitUpperCritical, ValidFrom: ts("2024-01-01T00:00:00Z")},
			{ID: "b", VariableID: "var-1", SiteID: "site-1", LimitType: models.LimitUpperCritical, ValidFrom: ts("2024-02-01T00:00:00Z")},
		}

		_, err := ResolveActive(limits, at, scope)
		var ambiguous *models.AmbiguousLimitError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, models.LimitUpperCritical, ambiguous.LimitType)
		assert.ElementsMatch(t, []string{"a", "b"}, ambiguous.LimitIDs)
	})
}

func TestEvaluateBreach(t *testing.T) {
	limits := []models.VariableLimit{
		{LimitType: models.LimitUpperMarginal, Comparison: models.CompareGTE, Threshold: 50},
		{LimitType: models.LimitUpperCritical, Comparison: models.CompareGTE, Threshold: 100},
	}

	t.Run("below all limits", func(t *testing.T) {
		reached, level := EvaluateBreach(limits, 10)
		assert.False(t, reached)
		assert.Equal(t, models.BreachNone, level)
	})

	t.Run("marginal breach maps to alert", func(t *testing.T) {
		reached, level := EvaluateBreach(limits, 60)
		assert.True(t, reached)
		assert.Equal(t, models.BreachAlert, level)
	})

	t.Run("worst level wins when both limits hit", func(t *testing.T) {
		reached, level := EvaluateBreach(limits, 150)
		assert.True(t, reached)
		assert.Equal(t, models.BreachCritical, level)
	})

	t.Run("boundary value breaches gte comparisons", func(t *testing.T) {
		reached, level := EvaluateBreach(limits, 100)
		assert.True(t, reached)
		assert.Equal(t, models.BreachCritical, level)
	})

	t.Run("lower limit breaches below the threshold", func(t *testing.T) {
		lower := []models.VariableLimit{
			{LimitType: models.LimitLowerCritical, Comparison: models.CompareLT, Threshold: 5},
		}
		reached, level := EvaluateBreach(lower, 4.9)
		assert.True(t, reached)
		assert.Equal(t, models.BreachCritical, level)

		reached, level = EvaluateBreach(lower, 5)
		assert.False(t, reached)
		assert.Equal(t, models.BreachNone, level)
	})

	t.Run("no limits means no breach", func(t *testing.T) {
		reached, level := EvaluateBreach(nil, 9999)
		assert.False(t, reached)
		assert.Equal(t, models.BreachNone, level)
	})
}
