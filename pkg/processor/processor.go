// Package processor routes incoming measurement and comment rows from Kafka
// into the ingestion and evidence pipelines.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/quarantine"
	"github.com/Ramsey-B/sage/pkg/evidence"
	"github.com/Ramsey-B/sage/pkg/ingest"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// RowProcessor dispatches row envelopes by source. Oil and telemetry rows go
// through ingestion; comment rows are registered against their case. Rows with
// an unknown source or a malformed payload are quarantined, never retried.
type RowProcessor struct {
	ingest     *ingest.Service
	evidence   *evidence.Service
	quarantine quarantine.QuarantineRepository
	logger     ectologger.Logger
}

// NewRowProcessor creates a new row processor
func NewRowProcessor(
	ingestService *ingest.Service,
	evidenceService *evidence.Service,
	quarantineRepo quarantine.QuarantineRepository,
	logger ectologger.Logger,
) *RowProcessor {
	return &RowProcessor{
		ingest:     ingestService,
		evidence:   evidenceService,
		quarantine: quarantineRepo,
		logger:     logger,
	}
}

// ProcessMessage handles one parsed row envelope. A returned error means the
// message must be redelivered; quarantined rows return nil because redelivery
// would only quarantine them again.
func (p *RowProcessor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "RowProcessor.ProcessMessage")
	defer span.End()

	if msg.Envelope == nil {
		return fmt.Errorf("message envelope is not parsed")
	}

	switch msg.Envelope.Source {
	case kafka.SourceOil:
		return p.processOilRow(ctx, msg)
	case kafka.SourceTelemetry:
		return p.processTelemetryRow(ctx, msg)
	case kafka.SourceComment:
		return p.processCommentRow(ctx, msg)
	default:
		return p.quarantineEnvelope(ctx, msg, "bad_value", fmt.Sprintf("unknown row source %q", msg.Envelope.Source))
	}
}

func (p *RowProcessor) processOilRow(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "RowProcessor.processOilRow")
	defer span.End()

	row, err := msg.OilRow()
	if err != nil {
		return p.quarantineEnvelope(ctx, msg, "bad_value", err.Error())
	}

	_, _, err = p.ingest.IngestOilRow(ctx, *row)
	return err
}

func (p *RowProcessor) processTelemetryRow(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "RowProcessor.processTelemetryRow")
	defer span.End()

	row, err := msg.TelemetryRow()
	if err != nil {
		return p.quarantineEnvelope(ctx, msg, "bad_value", err.Error())
	}

	_, _, err = p.ingest.IngestTelemetryRow(ctx, *row)
	return err
}

func (p *RowProcessor) processCommentRow(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "RowProcessor.processCommentRow")
	defer span.End()

	row, err := msg.CommentRow()
	if err != nil {
		return p.quarantineEnvelope(ctx, msg, "bad_value", err.Error())
	}

	if row.CommentText == "" || row.CommentType == "" {
		return p.quarantineEnvelope(ctx, msg, "missing_field", "comment row is missing comment_text or comment_type")
	}
	if row.AlertCaseID == "" && row.AlertID == "" {
		return p.quarantineEnvelope(ctx, msg, "missing_field", "comment row has no case or alert reference")
	}

	_, err = p.evidence.RegisterComment(ctx, models.CreateCommentRequest{
		CaseID:      row.AlertCaseID,
		AlertID:     row.AlertID,
		CommentType: row.CommentType,
		CommentText: row.CommentText,
		Language:    row.Language,
	})
	if err != nil {
		// A missing case or alert is a row defect, not an infra failure
		if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound {
			return p.quarantineEnvelope(ctx, msg, "bad_value", err.Error())
		}
		return err
	}

	return nil
}

func (p *RowProcessor) quarantineEnvelope(ctx context.Context, msg *kafka.IncomingMessage, reasonCode, reason string) error {
	raw := msg.Envelope.Row
	if len(raw) == 0 {
		raw = json.RawMessage(msg.Value)
	}

	if _, err := p.quarantine.Add(ctx, msg.Envelope.Source, raw, reasonCode, reason); err != nil {
		return fmt.Errorf("failed to quarantine row: %w", err)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"source":      msg.Envelope.Source,
		"reason_code": reasonCode,
		"topic":       msg.Topic,
		"offset":      msg.Offset,
	}).Warn("quarantined row from message stream")

	return nil
}
