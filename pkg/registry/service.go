// Package registry owns technique and variable definitions and their scoped,
// time-versioned limits. Everything else in the service queries it; ingest
// enforces the registry-first invariant against it.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/limit"
	"github.com/Ramsey-B/sage/internal/repositories/technique"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/go-playground/validator/v10"
)

// Service implements registry operations over the technique and limit
// repositories
type Service struct {
	techniques technique.TechniqueRepository
	limits     limit.LimitRepository
	validate   *validator.Validate
	logger     ectologger.Logger
}

// NewService creates a new registry service
func NewService(techniques technique.TechniqueRepository, limits limit.LimitRepository, logger ectologger.Logger) *Service {
	return &Service{
		techniques: techniques,
		limits:     limits,
		validate:   validator.New(),
		logger:     logger,
	}
}

// DefineTechnique registers a measurement technique. Technique codes are
// immutable; re-defining an existing code is rejected.
func (s *Service) DefineTechnique(ctx context.Context, req models.DefineTechniqueRequest) (*models.Technique, error) {
	ctx, span := tracing.StartSpan(ctx, "RegistryService.DefineTechnique")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	existing, err := s.techniques.GetTechniqueByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("technique %q already defined", req.Code))
	}

	return s.techniques.CreateTechnique(ctx, req)
}

// DefineVariable registers a typed variable under an existing technique
func (s *Service) DefineVariable(ctx context.Context, req models.DefineVariableRequest) (*models.TechniqueVariable, error) {
	ctx, span := tracing.StartSpan(ctx, "RegistryService.DefineVariable")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tech, err := s.techniques.GetTechniqueByCode(ctx, req.TechniqueCode)
	if err != nil {
		return nil, err
	}
	if tech == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("technique %q not defined", req.TechniqueCode))
	}

	existing, err := s.techniques.GetVariableByCode(ctx, req.TechniqueCode, req.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("variable %q already defined for technique %q", req.Code, req.TechniqueCode))
	}

	return s.techniques.CreateVariable(ctx, req)
}

// GetTechnique resolves a technique by code
func (s *Service) GetTechnique(ctx context.Context, code string) (*models.Technique, error) {
	return s.techniques.GetTechniqueByCode(ctx, code)
}

// ListTechniques returns all registered techniques
func (s *Service) ListTechniques(ctx context.Context) ([]models.Technique, error) {
	return s.techniques.ListTechniques(ctx)
}

// GetVariable resolves a variable by technique and code
func (s *Service) GetVariable(ctx context.Context, techniqueCode, code string) (*models.TechniqueVariable, error) {
	return s.techniques.GetVariableByCode(ctx, techniqueCode, code)
}

// ListVariables returns a technique's variables
func (s *Service) ListVariables(ctx context.Context, techniqueCode string) ([]models.TechniqueVariable, error) {
	return s.techniques.ListVariables(ctx, techniqueCode)
}

// ListLimits returns every limit version for a variable, all scopes included
func (s *Service) ListLimits(ctx context.Context, variableID string) ([]models.VariableLimit, error) {
	return s.limits.ListForVariable(ctx, variableID)
}

// UpsertLimit creates a limit after checking its validity interval against
// every existing limit for the same (variable, scope, limit type). Overlap is
// rejected with OverlapError.
func (s *Service) UpsertLimit(ctx context.Context, req models.UpsertLimitRequest) (*models.VariableLimit, error) {
	ctx, span := tracing.StartSpan(ctx, "RegistryService.UpsertLimit")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ValidTo != nil && !req.ValidTo.After(req.ValidFrom) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "valid_to must be after valid_from")
	}

	variable, err := s.techniques.GetVariableByCode(ctx, req.TechniqueCode, req.VariableCode)
	if err != nil {
		return nil, err
	}
	if variable == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("variable %q not defined for technique %q", req.VariableCode, req.TechniqueCode))
	}

	scope := models.AssetScope{SiteID: req.SiteID, SystemID: req.SystemID, ComponentID: req.ComponentID}
	limitType := models.LimitType(req.LimitType)

	ctxTx, tx, err := s.limits.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	existing, err := s.limits.ListForKey(ctxTx, variable.ID, scope, limitType)
	if err != nil {
		return nil, err
	}

	if conflict := FindOverlap(existing, req.ValidFrom, req.ValidTo); conflict != nil {
		return nil, &models.OverlapError{
			VariableID: variable.ID,
			Scope:      scope,
			LimitType:  limitType,
			ExistingID: conflict.ID,
			ValidFrom:  conflict.ValidFrom,
			ValidTo:    conflict.ValidTo,
		}
	}

	created, err := s.limits.Insert(ctxTx, models.VariableLimit{
		VariableID:  variable.ID,
		SiteID:      req.SiteID,
		SystemID:    req.SystemID,
		ComponentID: req.ComponentID,
		LimitType:   limitType,
		Comparison:  models.Comparison(req.Comparison),
		Threshold:   req.Threshold,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	return created, nil
}

// CloseLimit sets valid_to on an open limit. Limits are never deleted.
func (s *Service) CloseLimit(ctx context.Context, id string, validTo time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "RegistryService.CloseLimit")
	defer span.End()

	return s.limits.Close(ctx, id, validTo)
}

// ActiveLimits resolves the limits governing a variable at an instant and
// measurement scope, preferring the most specific scope per limit type.
func (s *Service) ActiveLimits(ctx context.Context, variableID string, at time.Time, scope models.AssetScope) ([]models.VariableLimit, error) {
	ctx, span := tracing.StartSpan(ctx, "RegistryService.ActiveLimits")
	defer span.End()

	limits, err := s.limits.ListForVariable(ctx, variableID)
	if err != nil {
		return nil, err
	}

	return ResolveActive(limits, at, scope)
}
