package comment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// CommentRepository defines the interface for AI comment storage
type CommentRepository interface {
	Create(ctx context.Context, c models.AIComment) (*models.AIComment, error)
	GetByID(ctx context.Context, id string) (*models.AIComment, error)
	GetByContentHash(ctx context.Context, caseID, contentHash string) (*models.AIComment, error)
	ListForCase(ctx context.Context, caseID string, activeOnly bool) ([]models.AIComment, error)
	Deactivate(ctx context.Context, id string) error
}

// Repository implements CommentRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new comment repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "ai_comments"

var columns = []string{
	"id", "case_id", "comment_type", "comment_text", "language", "content_hash", "active", "created_at",
}

// Create persists an AI comment. Content-hash dedup happens in the evidence
// service before this is called.
func (r *Repository) Create(ctx context.Context, c models.AIComment) (*models.AIComment, error) {
	ctx, span := tracing.StartSpan(ctx, "CommentRepository.Create")
	defer span.End()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Active = true
	c.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(c.ID, c.CaseID, c.CommentType, c.CommentText, c.Language, c.ContentHash, c.Active, c.CreatedAt)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create comment")
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":           c.ID,
		"case_id":      c.CaseID,
		"comment_type": c.CommentType,
	}).Info("created ai comment")

	return &c, nil
}

// GetByID gets a comment by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.AIComment, error) {
	ctx, span := tracing.StartSpan(ctx, "CommentRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var c models.AIComment
	err := r.db.GetContext(ctx, &c, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get comment by ID")
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return &c, nil
}

// GetByContentHash finds an existing comment on a case with the same content
// hash. Used to make comment delivery idempotent.
func (r *Repository) GetByContentHash(ctx context.Context, caseID, contentHash string) (*models.AIComment, error) {
	ctx, span := tracing.StartSpan(ctx, "CommentRepository.GetByContentHash")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.Equal("content_hash", contentHash),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()

	var c models.AIComment
	err := r.db.GetContext(ctx, &c, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get comment by content hash")
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return &c, nil
}

// ListForCase lists a case's comments, newest first
func (r *Repository) ListForCase(ctx context.Context, caseID string, activeOnly bool) ([]models.AIComment, error) {
	ctx, span := tracing.StartSpan(ctx, "CommentRepository.ListForCase")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("case_id", caseID))
	if activeOnly {
		sb.Where(sb.Equal("active", true))
	}
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()

	comments := []models.AIComment{}
	err := r.db.SelectContext(ctx, &comments, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list comments for case")
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// Deactivate marks a superseded comment inactive; the row is kept
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "CommentRepository.Deactivate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("active", false))
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to deactivate comment")
		return fmt.Errorf("failed to deactivate comment: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("comment %s not found", id)
	}

	return nil
}
