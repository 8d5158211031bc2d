package limit

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/registry"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers variable limit routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
	g.GET("/active", Active)
	g.POST("/:id/close", Close)
}

// CloseLimitRequest is the request body for closing a limit's validity
type CloseLimitRequest struct {
	ValidTo time.Time `json:"valid_to" validate:"required"`
}

// Create adds a limit version after the overlap check
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "limit_handler.Create")
	defer span.End()

	var req models.UpsertLimitRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	result, err := svc.UpsertLimit(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// List returns all limit versions for a variable
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "limit_handler.List")
	defer span.End()

	variableID := c.QueryParam("variable_id")
	if variableID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "variable_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	items, err := svc.ListLimits(ctx, variableID)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// Active resolves the effective limits for a variable at an instant and scope
func Active(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "limit_handler.Active")
	defer span.End()

	variableID := c.QueryParam("variable_id")
	if variableID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "variable_id is required")
	}

	at := time.Now().UTC()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "at must be RFC3339")
		}
		at = parsed
	}

	scope := models.AssetScope{
		SiteID:      c.QueryParam("site_id"),
		SystemID:    c.QueryParam("system_id"),
		ComponentID: c.QueryParam("component_id"),
	}

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	items, err := svc.ActiveLimits(ctx, variableID, at, scope)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// Close ends a limit's open validity interval
func Close(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "limit_handler.Close")
	defer span.End()

	var req CloseLimitRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ValidTo.IsZero() {
		return httperror.NewHTTPError(http.StatusBadRequest, "valid_to is required")
	}

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	if err := svc.CloseLimit(ctx, c.Param("id"), req.ValidTo); err != nil {
		return apierror.FromDomain(err)
	}

	return c.NoContent(http.StatusNoContent)
}
