package ingest

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/sage/pkg/ingest"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers batch ingestion routes
func Register(g *echo.Group) {
	g.POST("/oil", OilBatch)
	g.POST("/telemetry", TelemetryBatch)
}

// OilBatch ingests a batch of oil analysis rows. Rows are isolated: a bad row
// is quarantined and the rest of the batch proceeds.
func OilBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.OilBatch")
	defer span.End()

	var rows []models.OilRow
	if err := c.Bind(&rows); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(rows) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "batch is empty")
	}

	ctx, svc, err := ectoinject.GetContext[*ingest.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ingest service")
	}

	result, err := svc.IngestOilBatch(ctx, rows)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, result)
}

// TelemetryBatch ingests a batch of telemetry rows
func TelemetryBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.TelemetryBatch")
	defer span.End()

	var rows []models.TelemetryRow
	if err := c.Bind(&rows); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(rows) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "batch is empty")
	}

	ctx, svc, err := ectoinject.GetContext[*ingest.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ingest service")
	}

	result, err := svc.IngestTelemetryBatch(ctx, rows)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, result)
}
