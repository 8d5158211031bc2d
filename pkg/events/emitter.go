// Package events emits review pipeline lifecycle events
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Event types on the review-events topic
const (
	EventTypeCaseCreated         = "case.created"
	EventTypeCommentLinked       = "comment.linked"
	EventTypeAdjudicationDecided = "adjudication.computed"
)

// Emitter publishes review pipeline events. A nil producer disables emission,
// which keeps batch tooling usable without a broker.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitCaseCreated emits a case.created event
func (e *Emitter) EmitCaseCreated(ctx context.Context, c *models.AlertCase) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCaseCreated")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	event := &kafka.ReviewEvent{
		EventType: EventTypeCaseCreated,
		CaseID:    c.ID,
		Data:      data,
	}

	if err := e.producer.PublishReviewEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit case.created event")
		return err
	}

	return nil
}

// EmitCommentLinked emits a comment.linked event when evidence is attached
func (e *Emitter) EmitCommentLinked(ctx context.Context, link *models.CommentEvidence) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCommentLinked")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, err := json.Marshal(link)
	if err != nil {
		return err
	}

	event := &kafka.ReviewEvent{
		EventType: EventTypeCommentLinked,
		CommentID: link.CommentID,
		Data:      data,
	}

	if err := e.producer.PublishReviewEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit comment.linked event")
		return err
	}

	return nil
}

// EmitAdjudicationDecided emits an adjudication.computed event
func (e *Emitter) EmitAdjudicationDecided(ctx context.Context, adjudication *models.ReviewAdjudication) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitAdjudicationDecided")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, err := json.Marshal(adjudication)
	if err != nil {
		return err
	}

	event := &kafka.ReviewEvent{
		EventType: EventTypeAdjudicationDecided,
		CommentID: adjudication.CommentID,
		Data:      data,
	}

	if err := e.producer.PublishReviewEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit adjudication.computed event")
		return err
	}

	return nil
}
