package measurement

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

// MeasurementRepository defines the interface for measurement storage
type MeasurementRepository interface {
	Upsert(ctx context.Context, m models.Measurement) (*UpsertResult, error)
	GetByID(ctx context.Context, id string) (*models.Measurement, error)
	GetByKey(ctx context.Context, key models.NaturalKey) (*models.Measurement, error)
	ListForComponent(ctx context.Context, unitID, componentID string, from, to time.Time) ([]models.Measurement, error)
}

// UpsertResult reports the stored measurement and whether the row was new
type UpsertResult struct {
	Measurement *models.Measurement
	Inserted    bool
}

// Repository implements MeasurementRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new measurement repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const (
	tableName            = "measurements"
	oilDetailTable       = "oil_measurement_details"
	telemetryDetailTable = "telemetry_measurement_details"
)

var columns = []string{
	"id", "technique_code", "variable_id", "unit_id", "component_id", "ts",
	"value", "is_limit_reached", "breach_level", "created_at", "updated_at",
}

// Upsert writes a measurement keyed on its natural key
// (technique, variable, unit, component, timestamp). Re-ingesting the same row
// updates value and breach fields in place instead of creating a duplicate.
// The specialization row is written in the same transaction.
func (r *Repository) Upsert(ctx context.Context, m models.Measurement) (*UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MeasurementRepository.Upsert")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":         "Upsert",
		"technique_code": m.TechniqueCode,
		"variable_id":    m.VariableID,
		"unit_id":        m.UnitID,
		"component_id":   m.ComponentID,
	})

	now := time.Now().UTC()
	id := uuid.New().String()

	query := `
		WITH upsert AS (
			INSERT INTO measurements (
				id, technique_code, variable_id, unit_id, component_id, ts,
				value, is_limit_reached, breach_level, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (technique_code, variable_id, unit_id, component_id, ts)
			DO UPDATE SET
				value = EXCLUDED.value,
				is_limit_reached = EXCLUDED.is_limit_reached,
				breach_level = EXCLUDED.breach_level,
				updated_at = EXCLUDED.updated_at
			RETURNING
				id, technique_code, variable_id, unit_id, component_id, ts,
				value, is_limit_reached, breach_level, created_at, updated_at,
				(xmax = 0) AS inserted
		)
		SELECT * FROM upsert
	`

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var result struct {
		models.Measurement
		Inserted bool `db:"inserted"`
	}

	err = tx.GetContext(ctx, &result, query,
		id, m.TechniqueCode, m.VariableID, m.UnitID, m.ComponentID, m.Timestamp,
		m.Value, m.IsLimitReached, m.BreachLevel, now, now,
	)
	if err != nil {
		log.WithError(err).Error("failed to upsert measurement")
		return nil, fmt.Errorf("failed to upsert measurement: %w", err)
	}

	stored := result.Measurement

	switch {
	case m.Oil != nil:
		ib := database.NewInsertBuilder()
		ib.InsertInto(oilDetailTable)
		ib.Cols("measurement_id", "sample_id", "sample_date", "oil_meter")
		ib.Values(stored.ID, m.Oil.SampleID, m.Oil.SampleDate, m.Oil.OilMeter)
		ub := ib.OnConflict("measurement_id")
		ub.Set(
			ub.Assign("sample_id", database.Excluded("sample_id")),
			ub.Assign("sample_date", database.Excluded("sample_date")),
			ub.Assign("oil_meter", database.Excluded("oil_meter")),
		)

		query, args := ib.Build()
		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			log.WithError(err).Error("failed to upsert oil detail")
			return nil, fmt.Errorf("failed to upsert oil detail: %w", err)
		}
		detail := *m.Oil
		detail.MeasurementID = stored.ID
		stored.Oil = &detail
	case m.Telemetry != nil:
		ib := database.NewInsertBuilder()
		ib.InsertInto(telemetryDetailTable)
		ib.Cols("measurement_id", "component_meter", "aggregation", "sampling_rate_hz")
		ib.Values(stored.ID, m.Telemetry.ComponentMeter, m.Telemetry.Aggregation, m.Telemetry.SamplingRateHz)
		ub := ib.OnConflict("measurement_id")
		ub.Set(
			ub.Assign("component_meter", database.Excluded("component_meter")),
			ub.Assign("aggregation", database.Excluded("aggregation")),
			ub.Assign("sampling_rate_hz", database.Excluded("sampling_rate_hz")),
		)

		query, args := ib.Build()
		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			log.WithError(err).Error("failed to upsert telemetry detail")
			return nil, fmt.Errorf("failed to upsert telemetry detail: %w", err)
		}
		detail := *m.Telemetry
		detail.MeasurementID = stored.ID
		stored.Telemetry = &detail
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit measurement upsert: %w", err)
	}

	log.WithFields(map[string]any{
		"id":       stored.ID,
		"inserted": result.Inserted,
	}).Info("upserted measurement")

	return &UpsertResult{Measurement: &stored, Inserted: result.Inserted}, nil
}

// GetByID gets a measurement by ID, including its specialization
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	ctx, span := tracing.StartSpan(ctx, "MeasurementRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var m models.Measurement
	err := r.db.GetContext(ctx, &m, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get measurement by ID")
		return nil, fmt.Errorf("failed to get measurement: %w", err)
	}

	if err := r.loadDetail(ctx, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// GetByKey gets a measurement by its natural key
func (r *Repository) GetByKey(ctx context.Context, key models.NaturalKey) (*models.Measurement, error) {
	ctx, span := tracing.StartSpan(ctx, "MeasurementRepository.GetByKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("technique_code", key.TechniqueCode),
		sb.Equal("variable_id", key.VariableID),
		sb.Equal("unit_id", key.UnitID),
		sb.Equal("component_id", key.ComponentID),
		sb.Equal("ts", key.Timestamp),
	)

	query, args := sb.Build()

	var m models.Measurement
	err := r.db.GetContext(ctx, &m, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get measurement by key")
		return nil, fmt.Errorf("failed to get measurement: %w", err)
	}

	if err := r.loadDetail(ctx, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// ListForComponent lists measurements for a unit/component within a time range
func (r *Repository) ListForComponent(ctx context.Context, unitID, componentID string, from, to time.Time) ([]models.Measurement, error) {
	ctx, span := tracing.StartSpan(ctx, "MeasurementRepository.ListForComponent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("unit_id", unitID),
		sb.Equal("component_id", componentID),
		sb.GreaterEqualThan("ts", from),
		sb.LessThan("ts", to),
	)
	sb.OrderBy("ts")

	query, args := sb.Build()

	measurements := []models.Measurement{}
	err := r.db.SelectContext(ctx, &measurements, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list measurements")
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}

	return measurements, nil
}

func (r *Repository) loadDetail(ctx context.Context, m *models.Measurement) error {
	switch m.TechniqueCode {
	case models.TechniqueOil:
		var d models.OilDetail
		err := r.db.GetContext(ctx, &d,
			"SELECT measurement_id, sample_id, sample_date, oil_meter FROM oil_measurement_details WHERE measurement_id = $1", m.ID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to load oil detail: %w", err)
		}
		m.Oil = &d
	case models.TechniqueTelemetry:
		var d models.TelemetryDetail
		err := r.db.GetContext(ctx, &d,
			"SELECT measurement_id, component_meter, aggregation, sampling_rate_hz FROM telemetry_measurement_details WHERE measurement_id = $1", m.ID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to load telemetry detail: %w", err)
		}
		m.Telemetry = &d
	}
	return nil
}
