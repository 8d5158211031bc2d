package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertState_IsActive(t *testing.T) {
	assert.True(t, AlertOpen.IsActive())
	assert.True(t, AlertMonitoring.IsActive())
	assert.False(t, AlertClosed.IsActive())
}

func TestVariableLimit_ActiveAt(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("open-ended limit is active from valid_from onward", func(t *testing.T) {
		l := VariableLimit{ValidFrom: from}
		assert.False(t, l.ActiveAt(from.Add(-time.Second)))
		assert.True(t, l.ActiveAt(from))
		assert.True(t, l.ActiveAt(from.AddDate(10, 0, 0)))
	})

	t.Run("closed limit excludes valid_to", func(t *testing.T) {
		l := VariableLimit{ValidFrom: from, ValidTo: &to}
		assert.True(t, l.ActiveAt(to.Add(-time.Second)))
		assert.False(t, l.ActiveAt(to))
	})
}

func TestVariableLimit_Breached(t *testing.T) {
	cases := []struct {
		comparison Comparison
		threshold  float64
		value      float64
		breached   bool
	}{
		{CompareGT, 10, 10, false},
		{CompareGT, 10, 10.1, true},
		{CompareGTE, 10, 10, true},
		{CompareLT, 10, 10, false},
		{CompareLT, 10, 9.9, true},
		{CompareLTE, 10, 10, true},
		{"", 10, 100, false},
	}

	for _, c := range cases {
		l := VariableLimit{Comparison: c.comparison, Threshold: c.threshold}
		assert.Equal(t, c.breached, l.Breached(c.value), "%s %v vs %v", c.comparison, c.value, c.threshold)
	}
}

func TestAssetScope_Matches(t *testing.T) {
	at := AssetScope{SiteID: "site-1", SystemID: "sys-1", UnitID: "unit-1", ComponentID: "comp-1"}

	t.Run("unscoped limit matches everything", func(t *testing.T) {
		assert.True(t, AssetScope{}.Matches(at))
	})

	t.Run("set fields must match", func(t *testing.T) {
		assert.True(t, AssetScope{SiteID: "site-1"}.Matches(at))
		assert.True(t, AssetScope{SiteID: "site-1", ComponentID: "comp-1"}.Matches(at))
		assert.False(t, AssetScope{SiteID: "site-2"}.Matches(at))
		assert.False(t, AssetScope{ComponentID: "comp-2"}.Matches(at))
	})
}

func TestAssetScope_Specificity(t *testing.T) {
	assert.Equal(t, 0, AssetScope{}.Specificity())
	assert.Equal(t, 1, AssetScope{SiteID: "s"}.Specificity())
	assert.Equal(t, 2, AssetScope{SiteID: "s", SystemID: "sys"}.Specificity())
	assert.Equal(t, 3, AssetScope{ComponentID: "c"}.Specificity())
}

func TestBreachLevel_Rank(t *testing.T) {
	assert.Greater(t, BreachCritical.Rank(), BreachAlert.Rank())
	assert.Greater(t, BreachAlert.Rank(), BreachNone.Rank())
	assert.Greater(t, BreachUrgent.Rank(), BreachCritical.Rank())
}

func TestRubricDimension_InBounds(t *testing.T) {
	d := RubricDimension{Code: "accuracy", ScaleMin: 1, ScaleMax: 5}
	assert.True(t, d.InBounds(1))
	assert.True(t, d.InBounds(5))
	assert.False(t, d.InBounds(0))
	assert.False(t, d.InBounds(6))
}
