// Package evidence registers AI comments against cases and enforces that
// every piece of supporting evidence resolves to a real alert or measurement.
package evidence

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/alertcase"
	"github.com/Ramsey-B/sage/internal/repositories/comment"
	"github.com/Ramsey-B/sage/internal/repositories/evidence"
	"github.com/Ramsey-B/sage/internal/repositories/measurement"
	"github.com/Ramsey-B/sage/internal/repositories/techniquealert"
	"github.com/Ramsey-B/sage/pkg/contenthash"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
)

// MaxRelevance is the inclusive upper bound of the evidence relevance scale
const MaxRelevance = 3

// Service implements comment registration and evidence linking
type Service struct {
	comments     comment.CommentRepository
	evidence     evidence.EvidenceRepository
	cases        alertcase.AlertCaseRepository
	alerts       techniquealert.TechniqueAlertRepository
	measurements measurement.MeasurementRepository
	emitter      *events.Emitter
	validate     *validator.Validate
	logger       ectologger.Logger
}

// NewService creates a new evidence service
func NewService(
	comments comment.CommentRepository,
	ev evidence.EvidenceRepository,
	cases alertcase.AlertCaseRepository,
	alerts techniquealert.TechniqueAlertRepository,
	measurements measurement.MeasurementRepository,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Service {
	return &Service{
		comments:     comments,
		evidence:     ev,
		cases:        cases,
		alerts:       alerts,
		measurements: measurements,
		emitter:      emitter,
		validate:     validator.New(),
		logger:       logger,
	}
}

// RegisterComment attaches a generated comment to a case. An AlertID reference
// is resolved to the alert's live case. Re-delivery of identical text on the
// same case returns the existing comment; new text supersedes previous active
// comments of the same type.
func (s *Service) RegisterComment(ctx context.Context, req models.CreateCommentRequest) (*models.AIComment, error) {
	ctx, span := tracing.StartSpan(ctx, "EvidenceService.RegisterComment")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	caseID := req.CaseID
	if caseID == "" {
		if req.AlertID == "" {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "case_id or alert_id is required")
		}
		c, err := s.cases.GetForAlert(ctx, req.AlertID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("alert %q is not linked to a live case", req.AlertID))
		}
		caseID = c.ID
	} else {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("case %q not found", caseID))
		}
	}

	hash := contenthash.Text(req.CommentText)

	existing, err := s.comments.GetByContentHash(ctx, caseID, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"comment_id": existing.ID,
			"case_id":    caseID,
		}).Info("deduplicated comment delivery")
		return existing, nil
	}

	previous, err := s.comments.ListForCase(ctx, caseID, true)
	if err != nil {
		return nil, err
	}
	for _, p := range previous {
		if p.CommentType != req.CommentType {
			continue
		}
		if err := s.comments.Deactivate(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	return s.comments.Create(ctx, models.AIComment{
		CaseID:      caseID,
		CommentType: req.CommentType,
		CommentText: req.CommentText,
		Language:    req.Language,
		ContentHash: hash,
	})
}

// LinkEvidence validates and persists one evidence link for a comment.
// At least one of alert/measurement must resolve; relevance, if given, must
// lie in [0,3]; a claim span must fit inside the comment text. A comment may
// cite the same alert more than once with different claim spans.
func (s *Service) LinkEvidence(ctx context.Context, req models.LinkEvidenceRequest) (*models.CommentEvidence, error) {
	ctx, span := tracing.StartSpan(ctx, "EvidenceService.LinkEvidence")
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

	if req.AlertID == nil && req.MeasurementID == nil {
		return nil, &models.MissingReferenceError{CommentID: req.CommentID}
	}

	if req.AlertID != nil {
		alert, err := s.alerts.GetByID(ctx, *req.AlertID)
		if err != nil {
			return nil, err
		}
		if alert == nil {
			return nil, &models.MissingReferenceError{CommentID: req.CommentID}
		}
	}
	if req.MeasurementID != nil {
		m, err := s.measurements.GetByID(ctx, *req.MeasurementID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, &models.MissingReferenceError{CommentID: req.CommentID}
		}
	}

	if req.Relevance != nil && (*req.Relevance < 0 || *req.Relevance > MaxRelevance) {
		return nil, &models.InvalidRelevanceError{Relevance: *req.Relevance}
	}

	link := models.CommentEvidence{
		CommentID:     req.CommentID,
		AlertID:       req.AlertID,
		MeasurementID: req.MeasurementID,
		Relevance:     req.Relevance,
	}

	if req.Claim != nil {
		if req.Claim.Start < 0 || req.Claim.End < req.Claim.Start || req.Claim.End > len(cm.CommentText) {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "claim span does not fit the comment text")
		}
		start := req.Claim.Start
		end := req.Claim.End
		link.ClaimStart = &start
		link.ClaimEnd = &end
		if req.Claim.Text != "" {
			text := req.Claim.Text
			link.ClaimText = &text
		}
	}

	created, err := s.evidence.Insert(ctx, link)
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitCommentLinked(ctx, created); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("failed to emit comment linked event")
		}
	}

	return created, nil
}

// ListEvidence lists a comment's evidence links
func (s *Service) ListEvidence(ctx context.Context, commentID string) ([]models.CommentEvidence, error) {
	ctx, span := tracing.StartSpan(ctx, "EvidenceService.ListEvidence")
	defer span.End()

	return s.evidence.ListForComment(ctx, commentID)
}
