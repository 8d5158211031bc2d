package alert

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	alertrepo "github.com/Ramsey-B/sage/internal/repositories/techniquealert"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers technique alert routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id/state", UpdateState)
}

// UpdateStateRequest is the request body for an alert state transition
type UpdateStateRequest struct {
	State models.AlertState `json:"state" validate:"required,oneof=open monitoring closed"`
}

// Create records a technique alert
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alert_handler.Create")
	defer span.End()

	var req models.CreateAlertRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*alertrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// Get returns a technique alert by id
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alert_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*alertrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "alert not found")
	}

	return c.JSON(http.StatusOK, result)
}

// UpdateState transitions an alert's lifecycle state
func UpdateState(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alert_handler.UpdateState")
	defer span.End()

	var req UpdateStateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*alertrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.UpdateState(ctx, c.Param("id"), req.State)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "alert not found")
	}

	return c.JSON(http.StatusOK, result)
}
