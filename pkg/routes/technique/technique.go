package technique

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/registry"
	"github.com/Ramsey-B/sage/pkg/routes/apierror"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers technique and variable routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:code", Get)
	g.GET("/:code/variables", ListVariables)
	g.POST("/:code/variables", CreateVariable)
	g.GET("/:code/variables/:variableCode", GetVariable)
}

// List returns all registered techniques
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "technique_handler.List")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	items, err := svc.ListTechniques(ctx)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// Create defines a new measurement technique
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "technique_handler.Create")
	defer span.End()

	var req models.DefineTechniqueRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	result, err := svc.DefineTechnique(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// Get returns a single technique by code
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "technique_handler.Get")
	defer span.End()

	code := c.Param("code")

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	result, err := svc.GetTechnique(ctx, code)
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "technique not found")
	}

	return c.JSON(http.StatusOK, result)
}

// ListVariables returns a technique's variables
func ListVariables(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "technique_handler.ListVariables")
	defer span.End()

	code := c.Param("code")

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	items, err := svc.ListVariables(ctx, code)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusOK, items)
}

// CreateVariable defines a variable under a technique
func CreateVariable(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "technique_handler.CreateVariable")
	defer span.End()

	var req models.DefineVariableRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.TechniqueCode = c.Param("code")

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	result, err := svc.DefineVariable(ctx, req)
	if err != nil {
		return apierror.FromDomain(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// GetVariable returns one variable by technique and variable code
func GetVariable(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "technique_handler.GetVariable")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*registry.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry service")
	}

	result, err := svc.GetVariable(ctx, c.Param("code"), c.Param("variableCode"))
	if err != nil {
		return apierror.FromDomain(err)
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "variable not found")
	}

	return c.JSON(http.StatusOK, result)
}
