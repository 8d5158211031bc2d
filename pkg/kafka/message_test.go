package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("valid envelope parses", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"source":"oil","row":{"UnitId":"u-1"}}`)}

		require.NoError(t, msg.ParseEnvelope())
		require.NotNil(t, msg.Envelope)
		assert.Equal(t, SourceOil, msg.Envelope.Source)
		assert.JSONEq(t, `{"UnitId":"u-1"}`, string(msg.Envelope.Row))
	})

	t.Run("missing source is rejected", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"row":{}}`)}
		assert.Error(t, msg.ParseEnvelope())
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{source: oil}`)}
		assert.Error(t, msg.ParseEnvelope())
	})
}

func TestRowDecoding(t *testing.T) {
	t.Run("oil row decodes from an oil envelope", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"source": "oil",
			"row": {"SampleId":"s-1","SampleDate":"2024-05-01","UnitId":"u-1","Component":"Gearbox","ElementName":"Iron","Value":12.5}
		}`)}
		require.NoError(t, msg.ParseEnvelope())

		row, err := msg.OilRow()
		require.NoError(t, err)
		assert.Equal(t, "s-1", row.SampleID)
		assert.Equal(t, "Gearbox", row.Component)
		assert.Equal(t, "Iron", row.ElementName)
		require.NotNil(t, row.Value)
		assert.Equal(t, 12.5, *row.Value)
	})

	t.Run("telemetry row decodes from a telemetry envelope", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"source": "telemetry",
			"row": {"Timestamp":"2024-05-01T10:00:00Z","UnitId":"u-1","Component":"Gearbox","VariableName":"oil_temp","Value":71.2,"Aggregation":"avg"}
		}`)}
		require.NoError(t, msg.ParseEnvelope())

		row, err := msg.TelemetryRow()
		require.NoError(t, err)
		assert.Equal(t, "oil_temp", row.VariableName)
		assert.Equal(t, "avg", row.Aggregation)
	})

	t.Run("comment row decodes from a comment envelope", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"source": "comment",
			"row": {"AICommentId":"c-1","AlertCaseId":"case-1","CommentText":"iron trending up","CommentType":"diagnosis"}
		}`)}
		require.NoError(t, msg.ParseEnvelope())

		row, err := msg.CommentRow()
		require.NoError(t, err)
		assert.Equal(t, "case-1", row.AlertCaseID)
		assert.Equal(t, "diagnosis", row.CommentType)
	})

	t.Run("decoding against the wrong source fails", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"source":"oil","row":{}}`)}
		require.NoError(t, msg.ParseEnvelope())

		_, err := msg.TelemetryRow()
		assert.Error(t, err)
		_, err = msg.CommentRow()
		assert.Error(t, err)
	})

	t.Run("decoding before parsing fails", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"source":"oil","row":{}}`)}
		_, err := msg.OilRow()
		assert.Error(t, err)
	})

	t.Run("row payload that is not the expected shape fails", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"source":"oil","row":["not","an","object"]}`)}
		require.NoError(t, msg.ParseEnvelope())

		_, err := msg.OilRow()
		assert.Error(t, err)
	})
}
