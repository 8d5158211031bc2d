package contenthash

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	t.Run("whitespace runs do not change the hash", func(t *testing.T) {
		base := Text("Iron trending upward over the last three samples.")
		padded := Text("  Iron   trending upward\nover the last\tthree samples.  ")
		assert.Equal(t, base, padded)
	})

	t.Run("different text produces different hashes", func(t *testing.T) {
		assert.NotEqual(t, Text("iron trending upward"), Text("iron trending downward"))
	})

	t.Run("hash is hex encoded sha256", func(t *testing.T) {
		assert.Len(t, Text("anything"), 64)
	})
}

func TestPayload(t *testing.T) {
	t.Run("key order does not change the hash", func(t *testing.T) {
		a := Payload(map[string]any{"unit": "u-1", "component": "bearing", "value": 42.5})
		b := Payload(map[string]any{"value": 42.5, "component": "bearing", "unit": "u-1"})
		assert.Equal(t, a, b)
	})

	t.Run("nested maps are canonicalized too", func(t *testing.T) {
		a := Payload(map[string]any{"scope": map[string]any{"site": "s", "system": "sys"}})
		b := Payload(map[string]any{"scope": map[string]any{"system": "sys", "site": "s"}})
		assert.Equal(t, a, b)
	})

	t.Run("array order is significant", func(t *testing.T) {
		a := Payload(map[string]any{"tags": []any{"oil", "telemetry"}})
		b := Payload(map[string]any{"tags": []any{"telemetry", "oil"}})
		assert.NotEqual(t, a, b)
	})

	t.Run("value changes change the hash", func(t *testing.T) {
		a := Payload(map[string]any{"value": 1.0})
		b := Payload(map[string]any{"value": 2.0})
		assert.NotEqual(t, a, b)
	})
}

func TestFromJSON(t *testing.T) {
	t.Run("equivalent JSON documents hash the same", func(t *testing.T) {
		a, err := FromJSON(json.RawMessage(`{"unit":"u-1","value":3}`))
		require.NoError(t, err)
		b, err := FromJSON(json.RawMessage(`{ "value": 3, "unit": "u-1" }`))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("invalid JSON errors", func(t *testing.T) {
		_, err := FromJSON(json.RawMessage(`not json`))
		assert.Error(t, err)
	})
}

func TestMatches(t *testing.T) {
	h := Text("same comment")
	assert.True(t, Matches(h, Text("same   comment")))
	assert.False(t, Matches(h, Text("different comment")))
}
