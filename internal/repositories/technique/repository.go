package technique

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// TechniqueRepository defines the interface for technique and variable definitions
type TechniqueRepository interface {
	CreateTechnique(ctx context.Context, req models.DefineTechniqueRequest) (*models.Technique, error)
	GetTechniqueByCode(ctx context.Context, code string) (*models.Technique, error)
	ListTechniques(ctx context.Context) ([]models.Technique, error)
	CreateVariable(ctx context.Context, req models.DefineVariableRequest) (*models.TechniqueVariable, error)
	GetVariableByID(ctx context.Context, id string) (*models.TechniqueVariable, error)
	GetVariableByCode(ctx context.Context, techniqueCode, code string) (*models.TechniqueVariable, error)
	ListVariables(ctx context.Context, techniqueCode string) ([]models.TechniqueVariable, error)
}

// Repository implements TechniqueRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new technique repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const techniquesTable = "techniques"
const variablesTable = "technique_variables"

// CreateTechnique registers a new measurement technique
func (r *Repository) CreateTechnique(ctx context.Context, req models.DefineTechniqueRequest) (*models.Technique, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.CreateTechnique")
	defer span.End()

	now := time.Now().UTC()
	id := uuid.New().String()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(techniquesTable)
	sb.Cols("id", "code", "name", "created_at")
	sb.Values(id, req.Code, req.Name, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create technique")
		return nil, fmt.Errorf("failed to create technique: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":   id,
		"code": req.Code,
	}).Info("created technique")

	return r.GetTechniqueByCode(ctx, req.Code)
}

// GetTechniqueByCode gets a technique by its code
func (r *Repository) GetTechniqueByCode(ctx context.Context, code string) (*models.Technique, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.GetTechniqueByCode")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "code", "name", "created_at")
	sb.From(techniquesTable)
	sb.Where(sb.Equal("code", code))

	query, args := sb.Build()

	var t models.Technique
	err := r.db.GetContext(ctx, &t, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get technique by code")
		return nil, fmt.Errorf("failed to get technique: %w", err)
	}

	return &t, nil
}

// ListTechniques lists all registered techniques
func (r *Repository) ListTechniques(ctx context.Context) ([]models.Technique, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.ListTechniques")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "code", "name", "created_at")
	sb.From(techniquesTable)
	sb.OrderBy("code")

	query, args := sb.Build()

	techniques := []models.Technique{}
	err := r.db.SelectContext(ctx, &techniques, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list techniques")
		return nil, fmt.Errorf("failed to list techniques: %w", err)
	}

	return techniques, nil
}

// CreateVariable registers a new variable under a technique
func (r *Repository) CreateVariable(ctx context.Context, req models.DefineVariableRequest) (*models.TechniqueVariable, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.CreateVariable")
	defer span.End()

	now := time.Now().UTC()
	id := uuid.New().String()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(variablesTable)
	sb.Cols("id", "technique_code", "code", "datatype", "unit", "created_at")
	sb.Values(id, req.TechniqueCode, req.Code, req.Datatype, req.Unit, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create technique variable")
		return nil, fmt.Errorf("failed to create technique variable: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":             id,
		"technique_code": req.TechniqueCode,
		"code":           req.Code,
	}).Info("created technique variable")

	return r.GetVariableByID(ctx, id)
}

// GetVariableByID gets a variable by ID
func (r *Repository) GetVariableByID(ctx context.Context, id string) (*models.TechniqueVariable, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.GetVariableByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "technique_code", "code", "datatype", "unit", "created_at")
	sb.From(variablesTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var v models.TechniqueVariable
	err := r.db.GetContext(ctx, &v, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get variable by ID")
		return nil, fmt.Errorf("failed to get variable: %w", err)
	}

	return &v, nil
}

// GetVariableByCode gets a variable by technique code and variable code
func (r *Repository) GetVariableByCode(ctx context.Context, techniqueCode, code string) (*models.TechniqueVariable, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.GetVariableByCode")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "technique_code", "code", "datatype", "unit", "created_at")
	sb.From(variablesTable)
	sb.Where(
		sb.Equal("technique_code", techniqueCode),
		sb.Equal("code", code),
	)

	query, args := sb.Build()

	var v models.TechniqueVariable
	err := r.db.GetContext(ctx, &v, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get variable by code")
		return nil, fmt.Errorf("failed to get variable: %w", err)
	}

	return &v, nil
}

// ListVariables lists all variables for a technique
func (r *Repository) ListVariables(ctx context.Context, techniqueCode string) ([]models.TechniqueVariable, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueRepository.ListVariables")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "technique_code", "code", "datatype", "unit", "created_at")
	sb.From(variablesTable)
	sb.Where(sb.Equal("technique_code", techniqueCode))
	sb.OrderBy("code")

	query, args := sb.Build()

	variables := []models.TechniqueVariable{}
	err := r.db.SelectContext(ctx, &variables, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list variables")
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}

	return variables, nil
}
