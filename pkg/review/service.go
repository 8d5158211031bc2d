package review

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/comment"
	reviewrepo "github.com/Ramsey-B/sage/internal/repositories/review"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
)

// Service implements the review aggregator
type Service struct {
	reviews  reviewrepo.ReviewRepository
	comments comment.CommentRepository
	emitter  *events.Emitter
	validate *validator.Validate
	logger   ectologger.Logger
}

// NewService creates a new review service
func NewService(reviews reviewrepo.ReviewRepository, comments comment.CommentRepository, emitter *events.Emitter, logger ectologger.Logger) *Service {
	return &Service{
		reviews:  reviews,
		comments: comments,
		emitter:  emitter,
		validate: validator.New(),
		logger:   logger,
	}
}

// RecordReview persists one reviewer's evaluation of a comment. Every score is
// checked against its rubric dimension's scale first; a single violation
// rejects the whole review and nothing is persisted. The comment's
// adjudication is recomputed afterwards over the full review set.
func (s *Service) RecordReview(ctx context.Context, req models.RecordReviewRequest) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.RecordReview")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cm, err := s.comments.GetByID(ctx, req.CommentID)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("comment %q not found", req.CommentID))
	}

	reviewer, err := s.reviews.GetReviewer(ctx, req.ReviewerID)
	if err != nil {
		return nil, err
	}
	if reviewer == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reviewer %q not found", req.ReviewerID))
	}

	dimensions, err := s.reviews.ListDimensions(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateScores(req.Scores, dimensions); err != nil {
		return nil, err
	}

	scores := make([]models.ReviewScore, 0, len(req.Scores))
	for _, in := range req.Scores {
		scores = append(scores, models.ReviewScore{DimensionCode: in.DimensionCode, Value: in.Value})
	}

	created, err := s.reviews.InsertReview(ctx, models.Review{
		CommentID:    req.CommentID,
		ReviewerID:   req.ReviewerID,
		OverallLabel: models.OverallLabel(req.OverallLabel),
		Grade:        req.Grade,
		Notes:        req.Notes,
		Scores:       scores,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.ComputeAdjudication(ctx, req.CommentID); err != nil {
		return nil, err
	}

	return created, nil
}

// ComputeAdjudication recomputes the adjudicated outcome for a comment over
// its full current review set. Unanimity writes (or refreshes) the aggregate
// adjudication; disagreement returns nil and withdraws any previous aggregate
// decision, leaving explicit human decisions untouched.
func (s *Service) ComputeAdjudication(ctx context.Context, commentID string) (*models.ReviewAdjudication, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.ComputeAdjudication")
	defer span.End()

	reviews, err := s.reviews.ListForComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	decision, ok := Aggregate(reviews)

	live, err := s.reviews.GetLiveAdjudication(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if !ok {
		if live != nil && live.DecidedBy == DecidedByAggregate {
			if err := s.reviews.SupersedeAggregate(ctx, commentID); err != nil {
				return nil, err
			}
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"comment_id": commentID,
			}).Info("withdrew aggregate adjudication on reviewer disagreement")
		}
		return nil, nil
	}

	// Human decisions are never overridden by the aggregate
	if live != nil && live.DecidedBy != DecidedByAggregate {
		return live, nil
	}
	if live != nil && live.Decision == decision {
		return live, nil
	}

	adjudication, err := s.reviews.ReplaceAdjudication(ctx, models.ReviewAdjudication{
		CommentID: commentID,
		Decision:  decision,
		DecidedBy: DecidedByAggregate,
	})
	if err != nil {
		return nil, err
	}

	s.emitAdjudication(ctx, adjudication)

	return adjudication, nil
}

// Adjudicate records an explicit human decision for a comment, superseding
// any live adjudication. Used when reviewers disagree.
func (s *Service) Adjudicate(ctx context.Context, commentID string, decision models.Decision, reviewerID string) (*models.ReviewAdjudication, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.Adjudicate")
	defer span.End()

	switch decision {
	case models.DecisionPublish, models.DecisionRevise, models.DecisionSuppress:
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown decision %q", decision))
	}

	reviewer, err := s.reviews.GetReviewer(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if reviewer == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reviewer %q not found", reviewerID))
	}

	adjudication, err := s.reviews.ReplaceAdjudication(ctx, models.ReviewAdjudication{
		CommentID: commentID,
		Decision:  decision,
		DecidedBy: reviewerID,
	})
	if err != nil {
		return nil, err
	}

	s.emitAdjudication(ctx, adjudication)

	return adjudication, nil
}

func (s *Service) emitAdjudication(ctx context.Context, adjudication *models.ReviewAdjudication) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitAdjudicationDecided(ctx, adjudication); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to emit adjudication event")
	}
}

// ListReviews lists a comment's reviews with scores
func (s *Service) ListReviews(ctx context.Context, commentID string) ([]models.Review, error) {
	return s.reviews.ListForComment(ctx, commentID)
}

// GetAdjudication returns the live adjudication for a comment, if any
func (s *Service) GetAdjudication(ctx context.Context, commentID string) (*models.ReviewAdjudication, error) {
	return s.reviews.GetLiveAdjudication(ctx, commentID)
}
