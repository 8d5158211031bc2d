package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func newInstallation(id, name, normalized, installed string, removed *string) models.ComponentInstallation {
	installedAt, err := time.Parse(time.RFC3339, installed)
	if err != nil {
		panic(err)
	}
	inst := models.ComponentInstallation{
		ID:             id,
		SiteID:         "site-1",
		SystemID:       "sys-1",
		UnitID:         "unit-1",
		ComponentID:    "comp-" + id,
		ComponentName:  name,
		NormalizedName: normalized,
		InstalledAt:    installedAt,
	}
	if removed != nil {
		removedAt, err := time.Parse(time.RFC3339, *removed)
		if err != nil {
			panic(err)
		}
		inst.RemovedAt = &removedAt
	}
	return inst
}

func strPtr(s string) *string { return &s }

func TestMatch(t *testing.T) {
	at, err := time.Parse(time.RFC3339, "2024-05-15T12:00:00Z")
	require.NoError(t, err)

	t.Run("exact name match wins", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("a", "Main Bearing", "main bearing", "2024-01-01T00:00:00Z", nil),
		}

		scope, ok := Match(history, "Main Bearing", at)
		require.True(t, ok)
		assert.Equal(t, "comp-a", scope.ComponentID)
		assert.Equal(t, "site-1", scope.SiteID)
		assert.Equal(t, "sys-1", scope.SystemID)
		assert.Equal(t, "unit-1", scope.UnitID)
	})

	t.Run("normalized fallback matches sloppy source spellings", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("a", "Main Bearing", "main bearing", "2024-01-01T00:00:00Z", nil),
		}

		scope, ok := Match(history, "  MAIN-bearing ", at)
		require.True(t, ok)
		assert.Equal(t, "comp-a", scope.ComponentID)
	})

	t.Run("exact match is preferred over a normalized collision", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("fuzzy", "main bearing", "main bearing", "2024-01-01T00:00:00Z", nil),
			newInstallation("exact", "Main Bearing", "main bearing", "2024-01-01T00:00:00Z", nil),
		}

		scope, ok := Match(history, "Main Bearing", at)
		require.True(t, ok)
		assert.Equal(t, "comp-exact", scope.ComponentID)
	})

	t.Run("removed installation does not match after removal", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("a", "Main Bearing", "main bearing", "2024-01-01T00:00:00Z", strPtr("2024-03-01T00:00:00Z")),
		}

		_, ok := Match(history, "Main Bearing", at)
		assert.False(t, ok)
	})

	t.Run("removal instant itself is excluded", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("old", "Main Bearing", "main bearing", "2024-01-01T00:00:00Z", strPtr("2024-05-15T12:00:00Z")),
			newInstallation("new", "Main Bearing", "main bearing", "2024-05-15T12:00:00Z", nil),
		}

		scope, ok := Match(history, "Main Bearing", at)
		require.True(t, ok)
		assert.Equal(t, "comp-new", scope.ComponentID)
	})

	t.Run("installation after the effective time does not match", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("a", "Main Bearing", "main bearing", "2024-06-01T00:00:00Z", nil),
		}

		_, ok := Match(history, "Main Bearing", at)
		assert.False(t, ok)
	})

	t.Run("unknown component does not match", func(t *testing.T) {
		history := []models.ComponentInstallation{
			newInstallation("a", "Main Bearing", "main bearing", "2024-01-01T00:00:00Z", nil),
		}

		_, ok := Match(history, "Gearbox", at)
		assert.False(t, ok)
	})
}
