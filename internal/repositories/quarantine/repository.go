package quarantine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// QuarantineRepository defines the interface for the ingest quarantine
type QuarantineRepository interface {
	Add(ctx context.Context, source string, raw json.RawMessage, reasonCode, reason string) (*models.QuarantinedRow, error)
	List(ctx context.Context, source, reasonCode string, page, pageSize int) ([]models.QuarantinedRow, int, error)
}

// Repository implements QuarantineRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new quarantine repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "ingest_quarantine"

var columns = []string{"id", "source", "raw", "reason_code", "reason", "created_at"}

// quarantineRow is the storage shape; raw rides through the JSONB wrapper
type quarantineRow struct {
	ID         string                          `db:"id"`
	Source     string                          `db:"source"`
	Raw        database.JSONB[json.RawMessage] `db:"raw"`
	ReasonCode string                          `db:"reason_code"`
	Reason     string                          `db:"reason"`
	CreatedAt  time.Time                       `db:"created_at"`
}

func (q quarantineRow) toModel() models.QuarantinedRow {
	return models.QuarantinedRow{
		ID:         q.ID,
		Source:     q.Source,
		Raw:        q.Raw.GetValue(),
		ReasonCode: q.ReasonCode,
		Reason:     q.Reason,
		CreatedAt:  q.CreatedAt,
	}
}

// Add appends a failed row to the quarantine. Quarantined rows are never
// mutated or deleted; reprocessing re-submits them through ingest.
func (r *Repository) Add(ctx context.Context, source string, raw json.RawMessage, reasonCode, reason string) (*models.QuarantinedRow, error) {
	ctx, span := tracing.StartSpan(ctx, "QuarantineRepository.Add")
	defer span.End()

	row := models.QuarantinedRow{
		ID:         uuid.New().String(),
		Source:     source,
		Raw:        raw,
		ReasonCode: reasonCode,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(row.ID, row.Source, database.JSONB[json.RawMessage]{Data: row.Raw}, row.ReasonCode, row.Reason, row.CreatedAt)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to quarantine row")
		return nil, fmt.Errorf("failed to quarantine row: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          row.ID,
		"source":      row.Source,
		"reason_code": row.ReasonCode,
	}).Warn("quarantined ingest row")

	return &row, nil
}

// List pages through quarantined rows, optionally filtered by source and
// reason code, newest first
func (r *Repository) List(ctx context.Context, source, reasonCode string, page, pageSize int) ([]models.QuarantinedRow, int, error) {
	ctx, span := tracing.StartSpan(ctx, "QuarantineRepository.List")
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
	if source != "" {
		countSb.Where(countSb.Equal("source", source))
	}
	if reasonCode != "" {
		countSb.Where(countSb.Equal("reason_code", reasonCode))
	}

	countQuery, countArgs := countSb.Build()

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count quarantined rows")
		return nil, 0, fmt.Errorf("failed to count quarantined rows: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	if source != "" {
		sb.Where(sb.Equal("source", source))
	}
	if reasonCode != "" {
		sb.Where(sb.Equal("reason_code", reasonCode))
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()

	rows := []quarantineRow{}
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list quarantined rows")
		return nil, 0, fmt.Errorf("failed to list quarantined rows: %w", err)
	}

	result := make([]models.QuarantinedRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}

	return result, total, nil
}
