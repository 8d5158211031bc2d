package installation

import (
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	installationrepo "github.com/Ramsey-B/sage/internal/repositories/installation"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/scope"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers component installation routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", ListForUnit)
	g.GET("/resolve", Resolve)
	g.POST("/:id/remove", Remove)
}

// RemoveInstallationRequest is the request body for ending an installation
type RemoveInstallationRequest struct {
	RemovedAt time.Time `json:"removed_at" validate:"required"`
}

// Create records a component installation on a unit
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "installation_handler.Create")
	defer span.End()

	var req models.RegisterInstallationRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*installationrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Register(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// ListForUnit returns a unit's installation history
func ListForUnit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "installation_handler.ListForUnit")
	defer span.End()

	unitID := c.QueryParam("unit_id")
	if unitID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "unit_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*installationrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListForUnit(ctx, unitID)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// Resolve maps a unit/component pair to its asset scope at an instant. Used
// to debug why rows land in quarantine with unresolved_scope.
func Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "installation_handler.Resolve")
	defer span.End()

	unitID := c.QueryParam("unit_id")
	component := c.QueryParam("component")
	if unitID == "" || component == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "unit_id and component are required")
	}

	at := time.Now().UTC()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "at must be RFC3339")
		}
		at = parsed
	}

	ctx, resolver, err := ectoinject.GetContext[*scope.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get scope resolver")
	}

	assetScope, err := resolver.Resolve(ctx, unitID, component, at)
	if err != nil {
		var scopeErr *models.UnresolvedScopeError
		if errors.As(err, &scopeErr) {
			return httperror.NewHTTPError(http.StatusNotFound, scopeErr.Error())
		}
		return err
	}

	return c.JSON(http.StatusOK, assetScope)
}

// Remove ends an installation at the given instant
func Remove(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "installation_handler.Remove")
	defer span.End()

	var req RemoveInstallationRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RemovedAt.IsZero() {
		return httperror.NewHTTPError(http.StatusBadRequest, "removed_at is required")
	}

	ctx, repo, err := ectoinject.GetContext[*installationrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Remove(ctx, c.Param("id"), req.RemovedAt); err != nil {
		return apierror.FromDomain(err)
	}

	return c.NoContent(http.StatusNoContent)
}
