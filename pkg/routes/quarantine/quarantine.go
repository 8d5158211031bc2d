package quarantine

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	quarantinerepo "github.com/Ramsey-B/sage/internal/repositories/quarantine"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers quarantine inspection routes
func Register(g *echo.Group) {
	g.GET("", List)
}

// QuarantineListResponse is a paginated quarantine listing
type QuarantineListResponse struct {
	Items      []models.QuarantinedRow `json:"items"`
	TotalCount int                     `json:"total_count"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
}

// List returns quarantined rows filtered by source and reason code
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "quarantine_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*quarantinerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, c.QueryParam("source"), c.QueryParam("reason_code"), page, pageSize)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if page < 1 {
		page = 1
	}

	return c.JSON(http.StatusOK, QuarantineListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   len(items),
	})
}
