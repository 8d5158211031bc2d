package review

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

// ReviewRepository defines the interface for review and adjudication storage
type ReviewRepository interface {
	GetReviewer(ctx context.Context, id string) (*models.Reviewer, error)
	CreateReviewer(ctx context.Context, reviewer models.Reviewer) (*models.Reviewer, error)
	ListDimensions(ctx context.Context) ([]models.RubricDimension, error)
	UpsertDimension(ctx context.Context, d models.RubricDimension) (*models.RubricDimension, error)
	InsertReview(ctx context.Context, review models.Review) (*models.Review, error)
	ListForComment(ctx context.Context, commentID string) ([]models.Review, error)
	GetLiveAdjudication(ctx context.Context, commentID string) (*models.ReviewAdjudication, error)
	ReplaceAdjudication(ctx context.Context, adjudication models.ReviewAdjudication) (*models.ReviewAdjudication, error)
	SupersedeAggregate(ctx context.Context, commentID string) error
}

// Repository implements ReviewRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const reviewsTable = "reviews"
const scoresTable = "review_scores"
const adjudicationsTable = "review_adjudications"

// GetReviewer gets a reviewer by ID
func (r *Repository) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.GetReviewer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "email", "created_at")
	sb.From("reviewers")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var reviewer models.Reviewer
	err := r.db.GetContext(ctx, &reviewer, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get reviewer")
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}

	return &reviewer, nil
}

// CreateReviewer registers a reviewer
func (r *Repository) CreateReviewer(ctx context.Context, reviewer models.Reviewer) (*models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.CreateReviewer")
	defer span.End()

	if reviewer.ID == "" {
		reviewer.ID = uuid.New().String()
	}
	reviewer.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("reviewers")
	sb.Cols("id", "name", "email", "created_at")
	sb.Values(reviewer.ID, reviewer.Name, reviewer.Email, reviewer.CreatedAt)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create reviewer")
		return nil, fmt.Errorf("failed to create reviewer: %w", err)
	}

	return &reviewer, nil
}

// ListDimensions lists all rubric dimensions
func (r *Repository) ListDimensions(ctx context.Context) ([]models.RubricDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ListDimensions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "code", "name", "scale_min", "scale_max")
	sb.From("rubric_dimensions")
	sb.OrderBy("code")

	query, args := sb.Build()

	dimensions := []models.RubricDimension{}
	err := r.db.SelectContext(ctx, &dimensions, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list rubric dimensions")
		return nil, fmt.Errorf("failed to list rubric dimensions: %w", err)
	}

	return dimensions, nil
}

// UpsertDimension creates or updates a rubric dimension by code
func (r *Repository) UpsertDimension(ctx context.Context, d models.RubricDimension) (*models.RubricDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.UpsertDimension")
	defer span.End()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	query := `
		INSERT INTO rubric_dimensions (id, code, name, scale_min, scale_max)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code)
		DO UPDATE SET
			name = EXCLUDED.name,
			scale_min = EXCLUDED.scale_min,
			scale_max = EXCLUDED.scale_max
		RETURNING id, code, name, scale_min, scale_max
	`

	var stored models.RubricDimension
	err := r.db.GetContext(ctx, &stored, query, d.ID, d.Code, d.Name, d.ScaleMin, d.ScaleMax)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to upsert rubric dimension")
		return nil, fmt.Errorf("failed to upsert rubric dimension: %w", err)
	}

	return &stored, nil
}

// InsertReview persists a review and all its dimension scores in one
// transaction. If any score write fails the whole review rolls back.
func (r *Repository) InsertReview(ctx context.Context, review models.Review) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.InsertReview")
	defer span.End()

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.CreatedAt = time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(reviewsTable)
	sb.Cols("id", "comment_id", "reviewer_id", "overall_label", "grade", "notes", "created_at")
	sb.Values(review.ID, review.CommentID, review.ReviewerID, review.OverallLabel, review.Grade, review.Notes, review.CreatedAt)

	query, args := sb.Build()

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert review")
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	if len(review.Scores) > 0 {
		scoreSb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		scoreSb.InsertInto(scoresTable)
		scoreSb.Cols("review_id", "dimension_code", "value")
		for i := range review.Scores {
			review.Scores[i].ReviewID = review.ID
			scoreSb.Values(review.ID, review.Scores[i].DimensionCode, review.Scores[i].Value)
		}

		scoreQuery, scoreArgs := scoreSb.Build()

		_, err = tx.ExecContext(ctx, scoreQuery, scoreArgs...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to insert review scores")
			return nil, fmt.Errorf("failed to insert review scores: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit review insert: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          review.ID,
		"comment_id":  review.CommentID,
		"reviewer_id": review.ReviewerID,
		"label":       review.OverallLabel,
	}).Info("recorded review")

	return &review, nil
}

// ListForComment lists all reviews of a comment with their scores
func (r *Repository) ListForComment(ctx context.Context, commentID string) ([]models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ListForComment")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "comment_id", "reviewer_id", "overall_label", "grade", "notes", "created_at")
	sb.From(reviewsTable)
	sb.Where(sb.Equal("comment_id", commentID))
	sb.OrderBy("created_at")

	query, args := sb.Build()

	reviews := []models.Review{}
	err := r.db.SelectContext(ctx, &reviews, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list reviews for comment")
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	for i := range reviews {
		scores := []models.ReviewScore{}
		err := r.db.SelectContext(ctx, &scores,
			"SELECT review_id, dimension_code, value FROM review_scores WHERE review_id = $1 ORDER BY dimension_code",
			reviews[i].ID,
		)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to list review scores")
			return nil, fmt.Errorf("failed to list review scores: %w", err)
		}
		reviews[i].Scores = scores
	}

	return reviews, nil
}

// GetLiveAdjudication gets the non-superseded adjudication for a comment
func (r *Repository) GetLiveAdjudication(ctx context.Context, commentID string) (*models.ReviewAdjudication, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.GetLiveAdjudication")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "comment_id", "decision", "decided_by", "created_at", "superseded_at")
	sb.From(adjudicationsTable)
	sb.Where(
		sb.Equal("comment_id", commentID),
		sb.IsNull("superseded_at"),
	)

	query, args := sb.Build()

	var adjudication models.ReviewAdjudication
	err := r.db.GetContext(ctx, &adjudication, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get live adjudication")
		return nil, fmt.Errorf("failed to get adjudication: %w", err)
	}

	return &adjudication, nil
}

// SupersedeAggregate withdraws a live aggregate-decided adjudication without
// writing a replacement. Human decisions are left alone.
func (r *Repository) SupersedeAggregate(ctx context.Context, commentID string) error {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.SupersedeAggregate")
	defer span.End()

	_, err := r.db.ExecContext(ctx,
		"UPDATE review_adjudications SET superseded_at = $1 WHERE comment_id = $2 AND decided_by = $3 AND superseded_at IS NULL",
		time.Now().UTC(), commentID, "aggregate",
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to supersede aggregate adjudication")
		return fmt.Errorf("failed to supersede aggregate adjudication: %w", err)
	}

	return nil
}

// ReplaceAdjudication supersedes any live adjudication for the comment and
// inserts the new one in the same transaction, keeping at most one live row.
func (r *Repository) ReplaceAdjudication(ctx context.Context, adjudication models.ReviewAdjudication) (*models.ReviewAdjudication, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ReplaceAdjudication")
	defer span.End()

	if adjudication.ID == "" {
		adjudication.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	adjudication.CreatedAt = now

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.ExecContext(ctx,
		"UPDATE review_adjudications SET superseded_at = $1 WHERE comment_id = $2 AND superseded_at IS NULL",
		now, adjudication.CommentID,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to supersede adjudication")
		return nil, fmt.Errorf("failed to supersede adjudication: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(adjudicationsTable)
	sb.Cols("id", "comment_id", "decision", "decided_by", "created_at", "superseded_at")
	sb.Values(adjudication.ID, adjudication.CommentID, adjudication.Decision, adjudication.DecidedBy, adjudication.CreatedAt, nil)

	query, args := sb.Build()

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert adjudication")
		return nil, fmt.Errorf("failed to insert adjudication: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit adjudication: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         adjudication.ID,
		"comment_id": adjudication.CommentID,
		"decision":   adjudication.Decision,
	}).Info("replaced adjudication")

	return &adjudication, nil
}
