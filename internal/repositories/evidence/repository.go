package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// EvidenceRepository defines the interface for comment evidence storage
type EvidenceRepository interface {
	Insert(ctx context.Context, e models.CommentEvidence) (*models.CommentEvidence, error)
	ListForComment(ctx context.Context, commentID string) ([]models.CommentEvidence, error)
}

// Repository implements EvidenceRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new evidence repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "comment_evidence"

var columns = []string{
	"id", "comment_id", "alert_id", "measurement_id", "relevance",
	"claim_start", "claim_end", "claim_text", "created_at",
}

// Insert persists a validated evidence link. Reference and relevance
// validation happen in the evidence service before this is called.
func (r *Repository) Insert(ctx context.Context, e models.CommentEvidence) (*models.CommentEvidence, error) {
	ctx, span := tracing.StartSpan(ctx, "EvidenceRepository.Insert")
	defer span.End()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		e.ID, e.CommentID, e.AlertID, e.MeasurementID, e.Relevance,
		e.ClaimStart, e.ClaimEnd, e.ClaimText, e.CreatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert evidence")
		return nil, fmt.Errorf("failed to insert evidence: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         e.ID,
		"comment_id": e.CommentID,
	}).Info("linked comment evidence")

	return &e, nil
}

// ListForComment lists a comment's evidence links
func (r *Repository) ListForComment(ctx context.Context, commentID string) ([]models.CommentEvidence, error) {
	ctx, span := tracing.StartSpan(ctx, "EvidenceRepository.ListForComment")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("comment_id", commentID))
	sb.OrderBy("created_at")

	query, args := sb.Build()

	links := []models.CommentEvidence{}
	err := r.db.SelectContext(ctx, &links, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list evidence for comment")
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}

	return links, nil
}
