package alertcase

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

// AlertCaseRepository defines the interface for alert case storage
type AlertCaseRepository interface {
	CreateWithLinks(ctx context.Context, c models.AlertCase, alertIDs []string) (*models.AlertCase, error)
	GetByID(ctx context.Context, id string) (*models.AlertCase, error)
	GetForAlert(ctx context.Context, alertID string) (*models.AlertCase, error)
	LinkAlert(ctx context.Context, c *models.AlertCase, alert models.TechniqueAlert, label models.CaseLabel) (*models.AlertCase, error)
	List(ctx context.Context, status models.CaseStatus, page, pageSize int) ([]models.AlertCase, int, error)
	UpdateStatus(ctx context.Context, id string, status models.CaseStatus) (*models.AlertCase, error)
}

// Repository implements AlertCaseRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alert case repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "alert_cases"
const linksTable = "alert_case_links"

var columns = []string{
	"id", "unit_id", "component_id", "time_start", "label", "status", "created_at", "updated_at",
}

// CreateWithLinks persists a case and its alert links in one transaction.
// The case row and its links either all land or none do; a case with zero
// links never exists.
func (r *Repository) CreateWithLinks(ctx context.Context, c models.AlertCase, alertIDs []string) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "AlertCaseRepository.CreateWithLinks")
	defer span.End()

	if len(alertIDs) == 0 {
		return nil, fmt.Errorf("refusing to create case without alert links")
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(c.ID, c.UnitID, c.ComponentID, c.TimeStart, c.Label, c.Status, c.CreatedAt, c.UpdatedAt)

	query, args := sb.Build()

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create alert case")
		return nil, fmt.Errorf("failed to create alert case: %w", err)
	}

	// Guarded insert: an alert already linked to a non-dismissed case is not
	// re-grouped, and a concurrent grouper racing on the same alert makes the
	// whole creation roll back rather than double-grouping.
	linkQuery := `
		INSERT INTO alert_case_links (case_id, alert_id, created_at)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1
			FROM alert_case_links l
			JOIN alert_cases c ON c.id = l.case_id
			WHERE l.alert_id = $2 AND c.status != 'dismissed' AND c.id != $1
		)
	`
	for _, alertID := range alertIDs {
		res, err := tx.ExecContext(ctx, linkQuery, c.ID, alertID, now)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to link alert to case")
			return nil, fmt.Errorf("failed to link alert to case: %w", err)
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return nil, fmt.Errorf("alert %s is already linked to a live case", alertID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit case creation: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":           c.ID,
		"unit_id":      c.UnitID,
		"component_id": c.ComponentID,
		"label":        c.Label,
		"alert_count":  len(alertIDs),
	}).Info("created alert case")

	return &c, nil
}

// LinkAlert adds one alert to an existing case, pulling time_start back if the
// new alert starts earlier and updating the derived label. Link and case
// update share one transaction so the time_start invariant holds on every
// link addition.
func (r *Repository) LinkAlert(ctx context.Context, c *models.AlertCase, alert models.TechniqueAlert, label models.CaseLabel) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "AlertCaseRepository.LinkAlert")
	defer span.End()

	now := time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	linkQuery := `
		INSERT INTO alert_case_links (case_id, alert_id, created_at)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1
			FROM alert_case_links l
			JOIN alert_cases c ON c.id = l.case_id
			WHERE l.alert_id = $2 AND c.status != 'dismissed' AND c.id != $1
		)
	`
	res, err := tx.ExecContext(ctx, linkQuery, c.ID, alert.ID, now)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to link alert to case")
		return nil, fmt.Errorf("failed to link alert to case: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("alert %s is already linked to a live case", alert.ID)
	}

	timeStart := c.TimeStart
	if alert.StartTS.Before(timeStart) {
		timeStart = alert.StartTS
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("time_start", timeStart),
		sb.Assign("label", label),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", c.ID))

	query, args := sb.Build()

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update case after link")
		return nil, fmt.Errorf("failed to update case after link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit alert link: %w", err)
	}

	updated := *c
	updated.TimeStart = timeStart
	updated.Label = label
	updated.UpdatedAt = now
	return &updated, nil
}

// GetByID gets a case by ID, without its alerts
func (r *Repository) GetByID(ctx context.Context, id string) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "AlertCaseRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var c models.AlertCase
	err := r.db.GetContext(ctx, &c, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get case by ID")
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	return &c, nil
}

// GetForAlert finds the non-dismissed case an alert is linked to, if any
func (r *Repository) GetForAlert(ctx context.Context, alertID string) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "AlertCaseRepository.GetForAlert")
	defer span.End()

	query := `
		SELECT c.id, c.unit_id, c.component_id, c.time_start, c.label, c.status, c.created_at, c.updated_at
		FROM alert_cases c
		JOIN alert_case_links l ON l.case_id = c.id
		WHERE l.alert_id = $1 AND c.status != 'dismissed'
		ORDER BY c.created_at DESC
		LIMIT 1
	`

	var c models.AlertCase
	err := r.db.GetContext(ctx, &c, query, alertID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get case for alert")
		return nil, fmt.Errorf("failed to get case for alert: %w", err)
	}

	return &c, nil
}

// List lists cases, optionally filtered by status, newest first
func (r *Repository) List(ctx context.Context, status models.CaseStatus, page, pageSize int) ([]models.AlertCase, int, error) {
	ctx, span := tracing.StartSpan(ctx, "AlertCaseRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	if status != "" {
		countSb.Where(countSb.Equal("status", status))
	}

	countQuery, countArgs := countSb.Build()

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count cases")
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()

	cases := []models.AlertCase{}
	err := r.db.SelectContext(ctx, &cases, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list cases")
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}

	return cases, total, nil
}

// UpdateStatus transitions a case's workflow status
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.CaseStatus) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "AlertCaseRepository.UpdateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update case status")
		return nil, fmt.Errorf("failed to update case status: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("case %s not found", id)
	}

	return r.GetByID(ctx, id)
}
