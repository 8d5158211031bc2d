package limit

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// LimitRepository defines the interface for variable limit storage
type LimitRepository interface {
	DB() database.DB
	Insert(ctx context.Context, l models.VariableLimit) (*models.VariableLimit, error)
	ListForKey(ctx context.Context, variableID string, scope models.AssetScope, limitType models.LimitType) ([]models.VariableLimit, error)
	ListForVariable(ctx context.Context, variableID string) ([]models.VariableLimit, error)
	Close(ctx context.Context, id string, validTo time.Time) error
}

// Repository implements LimitRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new limit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the database handle so services can scope a transaction around
// multiple repository calls
func (r *Repository) DB() database.DB {
	return r.db
}

const tableName = "variable_limits"

var columns = []string{
	"id", "variable_id", "site_id", "system_id", "component_id",
	"limit_type", "comparison", "threshold", "valid_from", "valid_to", "created_at",
}

// Insert persists a validated limit. Overlap checking happens in the registry
// service inside the same transaction; the repository only writes.
func (r *Repository) Insert(ctx context.Context, l models.VariableLimit) (*models.VariableLimit, error) {
	ctx, span := tracing.StartSpan(ctx, "LimitRepository.Insert")
	defer span.End()

	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		l.ID, l.VariableID, l.SiteID, l.SystemID, l.ComponentID,
		l.LimitType, l.Comparison, l.Threshold, l.ValidFrom, l.ValidTo, l.CreatedAt,
	)

	query, args := sb.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert limit")
		return nil, fmt.Errorf("failed to insert limit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit limit insert: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          l.ID,
		"variable_id": l.VariableID,
		"limit_type":  l.LimitType,
	}).Info("inserted variable limit")

	return &l, nil
}

// ListForKey lists all limits for one (variable, scope, limit type) key,
// including closed ones. Used for overlap checks.
func (r *Repository) ListForKey(ctx context.Context, variableID string, scope models.AssetScope, limitType models.LimitType) ([]models.VariableLimit, error) {
	ctx, span := tracing.StartSpan(ctx, "LimitRepository.ListForKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("variable_id", variableID),
		sb.Equal("site_id", scope.SiteID),
		sb.Equal("system_id", scope.SystemID),
		sb.Equal("component_id", scope.ComponentID),
		sb.Equal("limit_type", limitType),
	)
	sb.OrderBy("valid_from")

	query, args := sb.Build()

	limits := []models.VariableLimit{}
	err := r.db.SelectContext(ctx, &limits, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list limits for key")
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}

	return limits, nil
}

// ListForVariable lists all limits for a variable across scopes and types
func (r *Repository) ListForVariable(ctx context.Context, variableID string) ([]models.VariableLimit, error) {
	ctx, span := tracing.StartSpan(ctx, "LimitRepository.ListForVariable")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("variable_id", variableID))
	sb.OrderBy("limit_type", "valid_from")

	query, args := sb.Build()

	limits := []models.VariableLimit{}
	err := r.db.SelectContext(ctx, &limits, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list limits for variable")
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}

	return limits, nil
}

// Close sets valid_to on an open limit. Limits are never deleted.
func (r *Repository) Close(ctx context.Context, id string, validTo time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "LimitRepository.Close")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("valid_to", validTo))
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("valid_to"),
	)

	query, args := sb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to close limit")
		return fmt.Errorf("failed to close limit: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("limit %s not found or already closed", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       id,
		"valid_to": validTo,
	}).Info("closed variable limit")

	return nil
}
