package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("accepted layouts", func(t *testing.T) {
		cases := map[string]string{
			"RFC3339 with nanos": "2024-05-01T10:30:00.123456789Z",
			"RFC3339":            "2024-05-01T10:30:00Z",
			"space separated":    "2024-05-01 10:30:00",
			"date only":          "2024-05-01",
		}

		for name, raw := range cases {
			t.Run(name, func(t *testing.T) {
				ts, ok := parseTimestamp(raw)
				require.True(t, ok)
				assert.Equal(t, 2024, ts.Year())
				assert.Equal(t, time.May, ts.Month())
				assert.Equal(t, 1, ts.Day())
			})
		}
	})

	t.Run("result is always UTC", func(t *testing.T) {
		ts, ok := parseTimestamp("2024-05-01T10:30:00+02:00")
		require.True(t, ok)
		assert.Equal(t, time.UTC, ts.Location())
		assert.Equal(t, 8, ts.Hour())
	})

	t.Run("rejected inputs", func(t *testing.T) {
		for _, raw := range []string{"", "yesterday", "01/05/2024", "2024-13-40"} {
			_, ok := parseTimestamp(raw)
			assert.False(t, ok, "input %q", raw)
		}
	})
}

func TestRowError(t *testing.T) {
	err := &rowError{code: "bad_timestamp", reason: "SampleDate is not a recognized timestamp"}
	assert.Equal(t, "SampleDate is not a recognized timestamp", err.Error())
	assert.Equal(t, "bad_timestamp", err.code)
}
