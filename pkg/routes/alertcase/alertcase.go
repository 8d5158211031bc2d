package alertcase

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	alertcaserepo "github.com/Ramsey-B/sage/internal/repositories/alertcase"
	"github.com/Ramsey-B/sage/pkg/grouping"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers alert case routes
func Register(g *echo.Group) {
	g.POST("", Group)
	g.GET("", List)
	g.GET("/:id", Get)
	g.POST("/:id/alerts", AddAlert)
	g.PUT("/:id/status", UpdateStatus)
}

// AddAlertRequest is the request body for linking one more alert to a case
type AddAlertRequest struct {
	AlertID string `json:"alert_id" validate:"required"`
}

// UpdateStatusRequest is the request body for a case status transition
type UpdateStatusRequest struct {
	Status models.CaseStatus `json:"status" validate:"required,oneof=new in_review resolved dismissed"`
}

// CaseListResponse is a paginated case listing
type CaseListResponse struct {
	Items      []models.AlertCase `json:"items"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// Group collects ungrouped alerts for a unit/component into a new case
func Group(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertcase_handler.Group")
	defer span.End()

	var req models.GroupCaseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*grouping.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get grouping service")
	}

	result, err := svc.GroupCase(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// List returns cases filtered by status
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertcase_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	status := models.CaseStatus(c.QueryParam("status"))

	ctx, repo, err := ectoinject.GetContext[*alertcaserepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, status, page, pageSize)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if page < 1 {
		page = 1
	}

	return c.JSON(http.StatusOK, CaseListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   len(items),
	})
}

// Get returns a case with its linked alerts
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertcase_handler.Get")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*grouping.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get grouping service")
	}

	result, err := svc.GetCase(ctx, c.Param("id"))
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "case not found")
	}

	return c.JSON(http.StatusOK, result)
}

// AddAlert links one more alert to an existing case and rederives its label
func AddAlert(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertcase_handler.AddAlert")
	defer span.End()

	var req AddAlertRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*grouping.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get grouping service")
	}

	result, err := svc.AddAlert(ctx, c.Param("id"), req.AlertID)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, result)
}

// UpdateStatus transitions a case's review status
func UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertcase_handler.UpdateStatus")
	defer span.End()

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*alertcaserepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "case not found")
	}

	return c.JSON(http.StatusOK, result)
}
