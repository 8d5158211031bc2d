package comment

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	commentrepo "github.com/Ramsey-B/sage/internal/repositories/comment"
	"github.com/Ramsey-B/sage/pkg/evidence"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers AI comment and evidence routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", ListForCase)
	g.GET("/:id", Get)
	g.POST("/:id/evidence", LinkEvidence)
	g.GET("/:id/evidence", ListEvidence)
}

// Create registers an AI comment against a case. Identical text on the same
// case is deduplicated; new text supersedes the previous active comment of
// the same type.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "comment_handler.Create")
	defer span.End()

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*evidence.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get evidence service")
	}

	result, err := svc.RegisterComment(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// ListForCase returns a case's comments
func ListForCase(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "comment_handler.ListForCase")
	defer span.End()

	caseID := c.QueryParam("case_id")
	if caseID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "case_id is required")
	}
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active_only"))

	ctx, repo, err := ectoinject.GetContext[*commentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListForCase(ctx, caseID, activeOnly)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// Get returns a comment by id
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "comment_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*commentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "comment not found")
	}

	return c.JSON(http.StatusOK, result)
}

// LinkEvidence attaches an evidence link to a comment
func LinkEvidence(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "comment_handler.LinkEvidence")
	defer span.End()

	var req models.LinkEvidenceRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.CommentID = c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*evidence.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get evidence service")
	}

	result, err := svc.LinkEvidence(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// ListEvidence returns a comment's evidence links
func ListEvidence(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "comment_handler.ListEvidence")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*evidence.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get evidence service")
	}

	items, err := svc.ListEvidence(ctx, c.Param("id"))
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}
