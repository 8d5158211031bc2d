package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAssetName(t *testing.T) {
	t.Run("lowercases and collapses separators", func(t *testing.T) {
		assert.Equal(t, "gearbox he 3", NormalizeAssetName("Gearbox_HE-3"))
		assert.Equal(t, "main bearing", NormalizeAssetName("  Main   Bearing  "))
		assert.Equal(t, "pump a 1", NormalizeAssetName("Pump/A.1"))
	})

	t.Run("strips other punctuation", func(t *testing.T) {
		assert.Equal(t, "unit 7", NormalizeAssetName("Unit #7!"))
	})

	t.Run("already normal names are unchanged", func(t *testing.T) {
		assert.Equal(t, "main bearing", NormalizeAssetName("main bearing"))
	})
}

func TestNormalizeVariableName(t *testing.T) {
	t.Run("separators become underscores", func(t *testing.T) {
		assert.Equal(t, "iron_ppm", NormalizeVariableName("Iron PPM"))
		assert.Equal(t, "oil_temp", NormalizeVariableName("oil-temp"))
		assert.Equal(t, "vib_rms", NormalizeVariableName("  Vib__RMS  "))
	})

	t.Run("leading and trailing separators are trimmed", func(t *testing.T) {
		assert.Equal(t, "iron", NormalizeVariableName("_iron_"))
	})
}

func TestNormalizeUnit(t *testing.T) {
	t.Run("alias spellings map to canonical units", func(t *testing.T) {
		assert.Equal(t, "degC", NormalizeUnit("°C"))
		assert.Equal(t, "degF", NormalizeUnit("°F"))
		assert.Equal(t, "%", NormalizeUnit("percent"))
		assert.Equal(t, "%", NormalizeUnit("pct"))
		assert.Equal(t, "ppm", NormalizeUnit("PPM"))
	})

	t.Run("unknown units pass through trimmed", func(t *testing.T) {
		assert.Equal(t, "mm/s", NormalizeUnit(" mm/s "))
		assert.Equal(t, "mg", NormalizeUnit("mg"))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("built-in normalizers are registered", func(t *testing.T) {
		for _, name := range []string{"lowercase", "uppercase", "trim", "nasset", "nvariable", "nunit"} {
			_, ok := Get(name)
			assert.True(t, ok, "normalizer %s", name)
		}
	})

	t.Run("apply with unknown normalizer returns input", func(t *testing.T) {
		assert.Equal(t, "As-Is", Apply("As-Is", "nope"))
	})

	t.Run("chain applies in order", func(t *testing.T) {
		assert.Equal(t, "abc", ApplyChain("  ABC  ", "trim", "lowercase"))
	})

	t.Run("custom normalizers can be registered", func(t *testing.T) {
		Register("reverse_nothing", func(s string) string { return s })
		fn, ok := Get("reverse_nothing")
		assert.True(t, ok)
		assert.Equal(t, "x", fn("x"))
	})
}

func TestCharacterFilters(t *testing.T) {
	assert.Equal(t, "12345", DigitsOnly("1-2.3 45x"))
	assert.Equal(t, "abc123", Alphanumeric("a b-c_1+2(3)"))
	assert.Equal(t, "a b c", CollapseWhitespace("  a \t b \n c "))
	assert.Equal(t, "abc", RemoveWhitespace("a b\tc"))
}
