package techniquealert

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

// TechniqueAlertRepository defines the interface for technique alert storage
type TechniqueAlertRepository interface {
	Create(ctx context.Context, req models.CreateAlertRequest) (*models.TechniqueAlert, error)
	GetByID(ctx context.Context, id string) (*models.TechniqueAlert, error)
	ListGroupable(ctx context.Context, unitID, componentID string) ([]models.TechniqueAlert, error)
	ListForCase(ctx context.Context, caseID string) ([]models.TechniqueAlert, error)
	UpdateState(ctx context.Context, id string, state models.AlertState) (*models.TechniqueAlert, error)
}

// Repository implements TechniqueAlertRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new technique alert repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "technique_alerts"

var columns = []string{
	"id", "technique_code", "unit_id", "component_id", "start_ts", "end_ts",
	"severity", "state", "created_at", "updated_at",
}

// Create records a new technique alert in the open state
func (r *Repository) Create(ctx context.Context, req models.CreateAlertRequest) (*models.TechniqueAlert, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueAlertRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	alert := models.TechniqueAlert{
		ID:            uuid.New().String(),
		TechniqueCode: req.TechniqueCode,
		UnitID:        req.UnitID,
		ComponentID:   req.ComponentID,
		StartTS:       req.StartTS,
		EndTS:         req.EndTS,
		Severity:      req.Severity,
		State:         models.AlertOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		alert.ID, alert.TechniqueCode, alert.UnitID, alert.ComponentID, alert.StartTS, alert.EndTS,
		alert.Severity, alert.State, alert.CreatedAt, alert.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create technique alert")
		return nil, fmt.Errorf("failed to create technique alert: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":             alert.ID,
		"technique_code": alert.TechniqueCode,
		"unit_id":        alert.UnitID,
		"component_id":   alert.ComponentID,
	}).Info("created technique alert")

	return &alert, nil
}

// GetByID gets an alert by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.TechniqueAlert, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueAlertRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var alert models.TechniqueAlert
	err := r.db.GetContext(ctx, &alert, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get alert by ID")
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return &alert, nil
}

// ListGroupable lists open/monitoring alerts for a unit/component that are not
// linked to any non-dismissed case.
func (r *Repository) ListGroupable(ctx context.Context, unitID, componentID string) ([]models.TechniqueAlert, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueAlertRepository.ListGroupable")
	defer span.End()

	query := `
		SELECT a.id, a.technique_code, a.unit_id, a.component_id, a.start_ts, a.end_ts,
			a.severity, a.state, a.created_at, a.updated_at
		FROM technique_alerts a
		WHERE a.unit_id = $1
			AND a.component_id = $2
			AND a.state IN ('open', 'monitoring')
			AND NOT EXISTS (
				SELECT 1
				FROM alert_case_links l
				JOIN alert_cases c ON c.id = l.case_id
				WHERE l.alert_id = a.id AND c.status != 'dismissed'
			)
		ORDER BY a.start_ts
	`

	alerts := []models.TechniqueAlert{}
	err := r.db.SelectContext(ctx, &alerts, query, unitID, componentID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list groupable alerts")
		return nil, fmt.Errorf("failed to list groupable alerts: %w", err)
	}

	return alerts, nil
}

// ListForCase lists the alerts linked to a case
func (r *Repository) ListForCase(ctx context.Context, caseID string) ([]models.TechniqueAlert, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueAlertRepository.ListForCase")
	defer span.End()

	query := `
		SELECT a.id, a.technique_code, a.unit_id, a.component_id, a.start_ts, a.end_ts,
			a.severity, a.state, a.created_at, a.updated_at
		FROM technique_alerts a
		JOIN alert_case_links l ON l.alert_id = a.id
		WHERE l.case_id = $1
		ORDER BY a.start_ts
	`

	alerts := []models.TechniqueAlert{}
	err := r.db.SelectContext(ctx, &alerts, query, caseID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list alerts for case")
		return nil, fmt.Errorf("failed to list alerts for case: %w", err)
	}

	return alerts, nil
}

// UpdateState transitions an alert's lifecycle state
func (r *Repository) UpdateState(ctx context.Context, id string, state models.AlertState) (*models.TechniqueAlert, error) {
	ctx, span := tracing.StartSpan(ctx, "TechniqueAlertRepository.UpdateState")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("state", state),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update alert state")
		return nil, fmt.Errorf("failed to update alert state: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("alert %s not found", id)
	}

	return r.GetByID(ctx, id)
}
