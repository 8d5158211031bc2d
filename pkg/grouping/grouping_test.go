package grouping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func alertAt(id, technique, start string) models.TechniqueAlert {
	ts, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return models.TechniqueAlert{
		ID:            id,
		TechniqueCode: technique,
		UnitID:        "unit-1",
		ComponentID:   "comp-1",
		StartTS:       ts,
	}
}

func alertIDs(alerts []models.TechniqueAlert) []string {
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestSelectGroupable(t *testing.T) {
	sliding := WindowPolicy{Window: 24 * time.Hour}

	t.Run("alerts within the window of the earliest start group together", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T08:00:00Z"),
			alertAt("b", models.TechniqueTelemetry, "2024-05-01T20:00:00Z"),
			alertAt("c", models.TechniqueTelemetry, "2024-05-03T08:00:00Z"),
		}

		selected := SelectGroupable(alerts, sliding)
		assert.ElementsMatch(t, []string{"a", "b"}, alertIDs(selected))
	})

	t.Run("anchor is the earliest start regardless of input order", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("late", models.TechniqueOil, "2024-05-02T10:00:00Z"),
			alertAt("early", models.TechniqueTelemetry, "2024-05-01T09:00:00Z"),
		}

		selected := SelectGroupable(alerts, sliding)
		// 25h apart, outside a 24h window anchored on "early"
		assert.ElementsMatch(t, []string{"early"}, alertIDs(selected))
	})

	t.Run("start exactly on the window edge is included", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T00:00:00Z"),
			alertAt("b", models.TechniqueTelemetry, "2024-05-02T00:00:00Z"),
		}

		selected := SelectGroupable(alerts, sliding)
		assert.Len(t, selected, 2)
	})

	t.Run("calendar day policy groups by UTC date", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T00:30:00Z"),
			alertAt("b", models.TechniqueTelemetry, "2024-05-01T23:30:00Z"),
			alertAt("c", models.TechniqueTelemetry, "2024-05-02T00:30:00Z"),
		}

		selected := SelectGroupable(alerts, WindowPolicy{CalendarDay: true})
		// b is 23h after a but the same day; c is 1h after b but the next day
		assert.ElementsMatch(t, []string{"a", "b"}, alertIDs(selected))
	})

	t.Run("zero policy selects nothing", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T08:00:00Z"),
		}

		assert.Empty(t, SelectGroupable(alerts, WindowPolicy{}))
	})

	t.Run("no alerts yields nil", func(t *testing.T) {
		assert.Nil(t, SelectGroupable(nil, sliding))
	})
}

func TestDeriveLabel(t *testing.T) {
	t.Run("single oil technique", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T08:00:00Z"),
			alertAt("b", models.TechniqueOil, "2024-05-01T09:00:00Z"),
		}
		assert.Equal(t, models.LabelOilOnly, DeriveLabel(alerts))
	})

	t.Run("single telemetry technique", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueTelemetry, "2024-05-01T08:00:00Z"),
		}
		assert.Equal(t, models.LabelTelemetryOnly, DeriveLabel(alerts))
	})

	t.Run("oil and telemetry pair", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T08:00:00Z"),
			alertAt("b", models.TechniqueTelemetry, "2024-05-01T09:00:00Z"),
		}
		assert.Equal(t, models.LabelBoth, DeriveLabel(alerts))
	})

	t.Run("any other technique mix is multi", func(t *testing.T) {
		alerts := []models.TechniqueAlert{
			alertAt("a", models.TechniqueOil, "2024-05-01T08:00:00Z"),
			alertAt("b", models.TechniqueTelemetry, "2024-05-01T09:00:00Z"),
			alertAt("c", "vibration", "2024-05-01T10:00:00Z"),
		}
		assert.Equal(t, models.LabelMulti, DeriveLabel(alerts))

		single := []models.TechniqueAlert{
			alertAt("d", "vibration", "2024-05-01T10:00:00Z"),
		}
		assert.Equal(t, models.LabelMulti, DeriveLabel(single))
	})
}

func TestEarliestStart(t *testing.T) {
	alerts := []models.TechniqueAlert{
		alertAt("a", models.TechniqueOil, "2024-05-02T08:00:00Z"),
		alertAt("b", models.TechniqueTelemetry, "2024-05-01T06:00:00Z"),
		alertAt("c", models.TechniqueTelemetry, "2024-05-03T08:00:00Z"),
	}

	earliest := EarliestStart(alerts)
	expected, err := time.Parse(time.RFC3339, "2024-05-01T06:00:00Z")
	require.NoError(t, err)
	assert.True(t, earliest.Equal(expected))
}
