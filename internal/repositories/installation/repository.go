package installation

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// InstallationRepository defines the interface for component installation history
type InstallationRepository interface {
	Register(ctx context.Context, req models.RegisterInstallationRequest) (*models.ComponentInstallation, error)
	ListForUnit(ctx context.Context, unitID string) ([]models.ComponentInstallation, error)
	Remove(ctx context.Context, id string, removedAt time.Time) error
}

// Repository implements InstallationRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new installation repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "component_installations"

var columns = []string{
	"id", "site_id", "system_id", "unit_id", "component_id",
	"component_name", "normalized_name", "installed_at", "removed_at", "created_at",
}

// Register records a component installation. The normalized name is computed
// here so scope resolution never depends on caller-side normalization.
func (r *Repository) Register(ctx context.Context, req models.RegisterInstallationRequest) (*models.ComponentInstallation, error) {
	ctx, span := tracing.StartSpan(ctx, "InstallationRepository.Register")
	defer span.End()

	now := time.Now().UTC()
	inst := models.ComponentInstallation{
		ID:             uuid.New().String(),
		SiteID:         req.SiteID,
		SystemID:       req.SystemID,
		UnitID:         req.UnitID,
		ComponentID:    req.ComponentID,
		ComponentName:  req.ComponentName,
		NormalizedName: normalizers.NormalizeAssetName(req.ComponentName),
		InstalledAt:    req.InstalledAt,
		RemovedAt:      req.RemovedAt,
		CreatedAt:      now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		inst.ID, inst.SiteID, inst.SystemID, inst.UnitID, inst.ComponentID,
		inst.ComponentName, inst.NormalizedName, inst.InstalledAt, inst.RemovedAt, inst.CreatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to register installation")
		return nil, fmt.Errorf("failed to register installation: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":             inst.ID,
		"unit_id":        inst.UnitID,
		"component_name": inst.ComponentName,
	}).Info("registered component installation")

	return &inst, nil
}

// ListForUnit lists the full installation history for a unit
func (r *Repository) ListForUnit(ctx context.Context, unitID string) ([]models.ComponentInstallation, error) {
	ctx, span := tracing.StartSpan(ctx, "InstallationRepository.ListForUnit")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("unit_id", unitID))
	sb.OrderBy("installed_at")

	query, args := sb.Build()

	installations := []models.ComponentInstallation{}
	err := r.db.SelectContext(ctx, &installations, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list installations for unit")
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}

	return installations, nil
}

// Remove closes an installation interval by setting removed_at
func (r *Repository) Remove(ctx context.Context, id string, removedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "InstallationRepository.Remove")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("removed_at", removedAt))
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("removed_at"),
	)

	query, args := sb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to remove installation")
		return fmt.Errorf("failed to remove installation: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("installation %s not found or already removed", id)
	}

	return nil
}
