package review

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	reviewrepo "github.com/Ramsey-B/sage/internal/repositories/review"
	ctxmiddleware "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/review"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers review and adjudication routes
func Register(g *echo.Group) {
	g.POST("", Record)
	g.GET("", ListForComment)
	g.GET("/adjudication", GetAdjudication)
	g.POST("/adjudication", Adjudicate)
}

// RegisterReviewers registers reviewer management routes
func RegisterReviewers(g *echo.Group) {
	g.POST("", CreateReviewer)
}

// RegisterDimensions registers rubric dimension routes
func RegisterDimensions(g *echo.Group) {
	g.GET("", ListDimensions)
	g.PUT("", UpsertDimension)
}

// AdjudicateRequest is the request body for an explicit human adjudication
type AdjudicateRequest struct {
	CommentID string          `json:"comment_id" validate:"required"`
	Decision  models.Decision `json:"decision" validate:"required"`
}

// Record persists one reviewer's evaluation and recomputes the adjudication
func Record(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.Record")
	defer span.End()

	var req models.RecordReviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ReviewerID == "" {
		req.ReviewerID = ctxmiddleware.GetReviewerID(ctx)
	}

	ctx, svc, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review service")
	}

	result, err := svc.RecordReview(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// ListForComment returns a comment's reviews with their scores
func ListForComment(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.ListForComment")
	defer span.End()

	commentID := c.QueryParam("comment_id")
	if commentID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "comment_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review service")
	}

	items, err := svc.ListReviews(ctx, commentID)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// GetAdjudication returns the live adjudication for a comment. A 204 means
// reviewers disagree and no human has decided yet.
func GetAdjudication(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.GetAdjudication")
	defer span.End()

	commentID := c.QueryParam("comment_id")
	if commentID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "comment_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review service")
	}

	result, err := svc.GetAdjudication(ctx, commentID)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, result)
}

// Adjudicate records an explicit human decision. The deciding reviewer comes
// from the X-Reviewer-ID header.
func Adjudicate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.Adjudicate")
	defer span.End()

	reviewerID := ctxmiddleware.GetReviewerID(ctx)
	if reviewerID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "X-Reviewer-ID header is required")
	}

	var req AdjudicateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review service")
	}

	result, err := svc.Adjudicate(ctx, req.CommentID, req.Decision, reviewerID)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, result)
}

// CreateReviewer registers a reviewer
func CreateReviewer(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.CreateReviewer")
	defer span.End()

	var reviewer models.Reviewer
	if err := c.Bind(&reviewer); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(reviewer); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*reviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.CreateReviewer(ctx, reviewer)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// ListDimensions returns the rubric dimensions
func ListDimensions(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.ListDimensions")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*reviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListDimensions(ctx)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// UpsertDimension creates or updates a rubric dimension by code
func UpsertDimension(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.UpsertDimension")
	defer span.End()

	var d models.RubricDimension
	if err := c.Bind(&d); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(d); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if d.ScaleMax <= d.ScaleMin {
		return httperror.NewHTTPError(http.StatusBadRequest, "scale_max must be greater than scale_min")
	}

	ctx, repo, err := ectoinject.GetContext[*reviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.UpsertDimension(ctx, d)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, result)
}
