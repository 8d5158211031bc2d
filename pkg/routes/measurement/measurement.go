package measurement

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	measurementrepo "github.com/Ramsey-B/sage/internal/repositories/measurement"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers measurement read routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/by-key", GetByKey)
	g.GET("/:id", Get)
}

// Get returns a measurement with its technique detail
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "measurement_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*measurementrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "measurement not found")
	}

	return c.JSON(http.StatusOK, result)
}

// GetByKey returns a measurement by its natural key. Ingest sources use this
// to check whether a row already landed.
func GetByKey(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "measurement_handler.GetByKey")
	defer span.End()

	key := models.NaturalKey{
		TechniqueCode: c.QueryParam("technique_code"),
		VariableID:    c.QueryParam("variable_id"),
		UnitID:        c.QueryParam("unit_id"),
		ComponentID:   c.QueryParam("component_id"),
	}
	if key.TechniqueCode == "" || key.VariableID == "" || key.UnitID == "" || key.ComponentID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "technique_code, variable_id, unit_id and component_id are required")
	}

	ts, err := time.Parse(time.RFC3339, c.QueryParam("ts"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "ts must be RFC3339")
	}
	key.Timestamp = ts

	ctx, repo, err := ectoinject.GetContext[*measurementrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByKey(ctx, key)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "measurement not found")
	}

	return c.JSON(http.StatusOK, result)
}

// List returns measurements for a unit/component over a time range
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "measurement_handler.List")
	defer span.End()

	unitID := c.QueryParam("unit_id")
	componentID := c.QueryParam("component_id")
	if unitID == "" || componentID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "unit_id and component_id are required")
	}

	to := time.Now().UTC()
	from := to.AddDate(0, -1, 0)
	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
		}
		to = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*measurementrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListForComponent(ctx, unitID, componentID, from, to)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}
