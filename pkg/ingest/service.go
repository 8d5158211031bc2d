// Package ingest converts loosely-typed oil and telemetry rows into the
// unified measurement model. Rows that fail validation are quarantined with a
// reason code; one bad row never fails the batch.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/measurement"
	"github.com/Ramsey-B/sage/internal/repositories/quarantine"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/registry"
	"github.com/Ramsey-B/sage/pkg/scope"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Service normalizes raw measurement rows
type Service struct {
	registry     *registry.Service
	scopes       *scope.Resolver
	measurements measurement.MeasurementRepository
	quarantine   quarantine.QuarantineRepository
	maxBatch     int
	logger       ectologger.Logger
}

// NewService creates a new ingest service. maxBatch caps the rows accepted in
// one batch call; zero disables the cap.
func NewService(
	reg *registry.Service,
	scopes *scope.Resolver,
	measurements measurement.MeasurementRepository,
	quar quarantine.QuarantineRepository,
	maxBatch int,
	logger ectologger.Logger,
) *Service {
	return &Service{
		registry:     reg,
		scopes:       scopes,
		measurements: measurements,
		quarantine:   quar,
		maxBatch:     maxBatch,
		logger:       logger,
	}
}

func (s *Service) checkBatchSize(count int) error {
	if s.maxBatch > 0 && count > s.maxBatch {
		return httperror.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d rows exceeds the maximum of %d", count, s.maxBatch))
	}
	return nil
}

// rowError carries a quarantine reason through the ingest pipeline
type rowError struct {
	code   string
	reason string
}

func (e *rowError) Error() string {
	return e.reason
}

// IngestOilRow normalizes one oil analysis row. Validation failures quarantine
// the row and return the quarantine record instead of a measurement.
func (s *Service) IngestOilRow(ctx context.Context, row models.OilRow) (*models.Measurement, *models.QuarantinedRow, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestService.IngestOilRow")
	defer span.End()

	m, err := s.normalizeOil(ctx, row)
	if err != nil {
		return s.quarantineRow(ctx, "oil", row, err)
	}

	result, err := s.measurements.Upsert(ctx, *m)
	if err != nil {
		return nil, nil, err
	}

	return result.Measurement, nil, nil
}

// IngestTelemetryRow normalizes one telemetry row
func (s *Service) IngestTelemetryRow(ctx context.Context, row models.TelemetryRow) (*models.Measurement, *models.QuarantinedRow, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestService.IngestTelemetryRow")
	defer span.End()

	m, err := s.normalizeTelemetry(ctx, row)
	if err != nil {
		return s.quarantineRow(ctx, "telemetry", row, err)
	}

	result, err := s.measurements.Upsert(ctx, *m)
	if err != nil {
		return nil, nil, err
	}

	return result.Measurement, nil, nil
}

// IngestOilBatch ingests oil rows with row-level isolation: quarantined rows
// never block the rest of the batch. Only infrastructure failures abort.
func (s *Service) IngestOilBatch(ctx context.Context, rows []models.OilRow) (*models.BatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestService.IngestOilBatch")
	defer span.End()

	if err := s.checkBatchSize(len(rows)); err != nil {
		return nil, err
	}

	result := &models.BatchResult{Outcomes: make([]models.RowOutcome, 0, len(rows))}
	for i, row := range rows {
		m, quarantined, err := s.IngestOilRow(ctx, row)
		if err != nil {
			return nil, err
		}
		result.Outcomes = append(result.Outcomes, outcome(i, m, quarantined))
		if quarantined != nil {
			result.Quarantined++
		} else {
			result.Ingested++
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"rows":        len(rows),
		"ingested":    result.Ingested,
		"quarantined": result.Quarantined,
	}).Info("ingested oil batch")

	return result, nil
}

// IngestTelemetryBatch ingests telemetry rows with row-level isolation
func (s *Service) IngestTelemetryBatch(ctx context.Context, rows []models.TelemetryRow) (*models.BatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestService.IngestTelemetryBatch")
	defer span.End()

	if err := s.checkBatchSize(len(rows)); err != nil {
		return nil, err
	}

	result := &models.BatchResult{Outcomes: make([]models.RowOutcome, 0, len(rows))}
	for i, row := range rows {
		m, quarantined, err := s.IngestTelemetryRow(ctx, row)
		if err != nil {
			return nil, err
		}
		result.Outcomes = append(result.Outcomes, outcome(i, m, quarantined))
		if quarantined != nil {
			result.Quarantined++
		} else {
			result.Ingested++
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"rows":        len(rows),
		"ingested":    result.Ingested,
		"quarantined": result.Quarantined,
	}).Info("ingested telemetry batch")

	return result, nil
}

// Timestamp layouts accepted from source rows, tried in order
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s *Service) normalizeOil(ctx context.Context, row models.OilRow) (*models.Measurement, error) {
	if row.UnitID == "" || row.Component == "" || row.ElementName == "" {
		return nil, &rowError{code: models.ReasonMissingField, reason: "UnitId, Component and ElementName are required"}
	}
	if row.SampleDate == "" {
		return nil, &rowError{code: models.ReasonMissingField, reason: "SampleDate is required"}
	}
	sampleDate, ok := parseTimestamp(row.SampleDate)
	if !ok {
		return nil, &rowError{code: models.ReasonBadTimestamp, reason: "SampleDate is not a recognized timestamp"}
	}
	if row.Value == nil {
		return nil, &rowError{code: models.ReasonMissingField, reason: "Value is required"}
	}
	if math.IsNaN(*row.Value) || math.IsInf(*row.Value, 0) {
		return nil, &rowError{code: models.ReasonBadValue, reason: "Value is not a finite number"}
	}

	variable, assetScope, err := s.resolveRow(ctx, models.TechniqueOil, row.ElementName, row.UnitID, row.Component, sampleDate)
	if err != nil {
		return nil, err
	}

	m := &models.Measurement{
		TechniqueCode: models.TechniqueOil,
		VariableID:    variable.ID,
		UnitID:        assetScope.UnitID,
		ComponentID:   assetScope.ComponentID,
		Timestamp:     sampleDate,
		Value:         *row.Value,
		Oil: &models.OilDetail{
			SampleID:   row.SampleID,
			SampleDate: sampleDate,
			OilMeter:   row.OilMeter,
		},
	}

	s.applyBreach(ctx, m, assetScope, row.IsLimitReached, row.BreachLevel)
	return m, nil
}

func (s *Service) normalizeTelemetry(ctx context.Context, row models.TelemetryRow) (*models.Measurement, error) {
	if row.UnitID == "" || row.Component == "" || row.VariableName == "" {
		return nil, &rowError{code: models.ReasonMissingField, reason: "UnitId, Component and VariableName are required"}
	}
	if row.Timestamp == "" {
		return nil, &rowError{code: models.ReasonMissingField, reason: "Timestamp is required"}
	}
	ts, ok := parseTimestamp(row.Timestamp)
	if !ok {
		return nil, &rowError{code: models.ReasonBadTimestamp, reason: "Timestamp is not a recognized timestamp"}
	}
	if row.Value == nil {
		return nil, &rowError{code: models.ReasonMissingField, reason: "Value is required"}
	}
	if math.IsNaN(*row.Value) || math.IsInf(*row.Value, 0) {
		return nil, &rowError{code: models.ReasonBadValue, reason: "Value is not a finite number"}
	}

	variable, assetScope, err := s.resolveRow(ctx, models.TechniqueTelemetry, row.VariableName, row.UnitID, row.Component, ts)
	if err != nil {
		return nil, err
	}

	m := &models.Measurement{
		TechniqueCode: models.TechniqueTelemetry,
		VariableID:    variable.ID,
		UnitID:        assetScope.UnitID,
		ComponentID:   assetScope.ComponentID,
		Timestamp:     ts,
		Value:         *row.Value,
		Telemetry: &models.TelemetryDetail{
			ComponentMeter: row.ComponentMeter,
			Aggregation:    row.Aggregation,
			SamplingRateHz: row.SamplingRateHz,
		},
	}

	// Telemetry sources never supply a breach level, but a row that carries
	// its own limit band can still vouch for is_limit_reached.
	sourceReached := row.IsLimitReached
	if sourceReached == nil && (row.UpperLimitValue != nil || row.LowerLimitValue != nil) {
		reached := (row.UpperLimitValue != nil && *row.Value > *row.UpperLimitValue) ||
			(row.LowerLimitValue != nil && *row.Value < *row.LowerLimitValue)
		sourceReached = &reached
	}

	s.applyBreach(ctx, m, assetScope, sourceReached, nil)
	return m, nil
}

// resolveRow enforces the registry-first invariant and resolves the asset
// scope. Both failure modes are quarantine-recoverable.
func (s *Service) resolveRow(ctx context.Context, techniqueCode, variableCode, unitID, component string, at time.Time) (*models.TechniqueVariable, models.AssetScope, error) {
	variable, err := s.registry.GetVariable(ctx, techniqueCode, variableCode)
	if err != nil {
		return nil, models.AssetScope{}, err
	}
	if variable == nil {
		varErr := &models.UnknownVariableError{TechniqueCode: techniqueCode, VariableCode: variableCode}
		return nil, models.AssetScope{}, &rowError{code: models.ReasonUnknownVariable, reason: varErr.Error()}
	}

	assetScope, err := s.scopes.Resolve(ctx, unitID, component, at)
	if err != nil {
		var scopeErr *models.UnresolvedScopeError
		if errors.As(err, &scopeErr) {
			return nil, models.AssetScope{}, &rowError{code: models.ReasonUnresolvedScope, reason: scopeErr.Error()}
		}
		return nil, models.AssetScope{}, err
	}

	return variable, assetScope, nil
}

// applyBreach computes is_limit_reached and breach_level from the resolved
// limit set. Source-supplied values take precedence; a disagreement with the
// computed values is logged for data-quality tracking but never fails the row.
func (s *Service) applyBreach(ctx context.Context, m *models.Measurement, assetScope models.AssetScope, sourceReached *bool, sourceLevel *string) {
	computedReached := false
	computedLevel := models.BreachNone

	limits, err := s.registry.ActiveLimits(ctx, m.VariableID, m.Timestamp, assetScope)
	if err != nil {
		// An ambiguous limit configuration must not quarantine the row; the
		// measurement lands without a computed breach and the defect is logged.
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"variable_id": m.VariableID,
			"unit_id":     m.UnitID,
		}).Error("failed to resolve limits for breach computation")
	} else {
		computedReached, computedLevel = registry.EvaluateBreach(limits, m.Value)
	}

	m.IsLimitReached = computedReached
	m.BreachLevel = computedLevel

	if sourceReached != nil {
		if *sourceReached != computedReached {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"variable_id": m.VariableID,
				"unit_id":     m.UnitID,
				"source":      *sourceReached,
				"computed":    computedReached,
			}).Warn("source is_limit_reached disagrees with computed value")
		}
		m.IsLimitReached = *sourceReached
	}

	if sourceLevel != nil {
		level := models.BreachLevel(*sourceLevel)
		if !level.Valid() {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"variable_id": m.VariableID,
				"source":      *sourceLevel,
			}).Warn("ignoring unknown source breach_level")
			return
		}
		if level != computedLevel {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"variable_id": m.VariableID,
				"unit_id":     m.UnitID,
				"source":      level,
				"computed":    computedLevel,
			}).Warn("source breach_level disagrees with computed value")
		}
		m.BreachLevel = level
	}
}

func (s *Service) quarantineRow(ctx context.Context, source string, row any, err error) (*models.Measurement, *models.QuarantinedRow, error) {
	var re *rowError
	if !errors.As(err, &re) {
		return nil, nil, err
	}

	raw, marshalErr := json.Marshal(row)
	if marshalErr != nil {
		return nil, nil, marshalErr
	}

	quarantined, qErr := s.quarantine.Add(ctx, source, raw, re.code, re.reason)
	if qErr != nil {
		return nil, nil, qErr
	}

	return nil, quarantined, nil
}

func outcome(index int, m *models.Measurement, quarantined *models.QuarantinedRow) models.RowOutcome {
	o := models.RowOutcome{Index: index}
	if quarantined != nil {
		o.Quarantined = true
		o.ReasonCode = quarantined.ReasonCode
		o.Reason = quarantined.Reason
		return o
	}
	if m != nil {
		o.MeasurementID = m.ID
	}
	return o
}
