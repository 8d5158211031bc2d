package ingest

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/internal/repositories/measurement"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/registry"
	"github.com/Ramsey-B/sage/pkg/scope"
)

type fakeTechniqueRepo struct {
	variables map[string]models.TechniqueVariable // technique/code
}

func (f *fakeTechniqueRepo) CreateTechnique(ctx context.Context, req models.DefineTechniqueRequest) (*models.Technique, error) {
	return nil, nil
}

func (f *fakeTechniqueRepo) GetTechniqueByCode(ctx context.Context, code string) (*models.Technique, error) {
	return nil, nil
}

func (f *fakeTechniqueRepo) ListTechniques(ctx context.Context) ([]models.Technique, error) {
	return nil, nil
}

func (f *fakeTechniqueRepo) CreateVariable(ctx context.Context, req models.DefineVariableRequest) (*models.TechniqueVariable, error) {
	return nil, nil
}

func (f *fakeTechniqueRepo) GetVariableByID(ctx context.Context, id string) (*models.TechniqueVariable, error) {
	return nil, nil
}

func (f *fakeTechniqueRepo) GetVariableByCode(ctx context.Context, techniqueCode, code string) (*models.TechniqueVariable, error) {
	v, ok := f.variables[techniqueCode+"/"+code]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeTechniqueRepo) ListVariables(ctx context.Context, techniqueCode string) ([]models.TechniqueVariable, error) {
	return nil, nil
}

type fakeLimitRepo struct {
	limits []models.VariableLimit
}

func (f *fakeLimitRepo) DB() database.DB { return nil }

func (f *fakeLimitRepo) Insert(ctx context.Context, l models.VariableLimit) (*models.VariableLimit, error) {
	f.limits = append(f.limits, l)
	return &l, nil
}

func (f *fakeLimitRepo) ListForKey(ctx context.Context, variableID string, s models.AssetScope, limitType models.LimitType) ([]models.VariableLimit, error) {
	return nil, nil
}

func (f *fakeLimitRepo) ListForVariable(ctx context.Context, variableID string) ([]models.VariableLimit, error) {
	out := []models.VariableLimit{}
	for _, l := range f.limits {
		if l.VariableID == variableID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLimitRepo) Close(ctx context.Context, id string, validTo time.Time) error {
	return nil
}

type fakeInstallationRepo struct {
	installations []models.ComponentInstallation
}

func (f *fakeInstallationRepo) Register(ctx context.Context, req models.RegisterInstallationRequest) (*models.ComponentInstallation, error) {
	return nil, nil
}

func (f *fakeInstallationRepo) ListForUnit(ctx context.Context, unitID string) ([]models.ComponentInstallation, error) {
	out := []models.ComponentInstallation{}
	for _, inst := range f.installations {
		if inst.UnitID == unitID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeInstallationRepo) Remove(ctx context.Context, id string, removedAt time.Time) error {
	return nil
}

type fakeMeasurementRepo struct {
	byKey map[models.NaturalKey]models.Measurement
}

func newFakeMeasurementRepo() *fakeMeasurementRepo {
	return &fakeMeasurementRepo{byKey: map[models.NaturalKey]models.Measurement{}}
}

func (f *fakeMeasurementRepo) Upsert(ctx context.Context, m models.Measurement) (*measurement.UpsertResult, error) {
	key := m.Key()
	_, existed := f.byKey[key]
	if m.ID == "" {
		m.ID = "m-" + key.VariableID
	}
	f.byKey[key] = m
	stored := m
	return &measurement.UpsertResult{Measurement: &stored, Inserted: !existed}, nil
}

func (f *fakeMeasurementRepo) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	for _, m := range f.byKey {
		if m.ID == id {
			stored := m
			return &stored, nil
		}
	}
	return nil, nil
}

func (f *fakeMeasurementRepo) GetByKey(ctx context.Context, key models.NaturalKey) (*models.Measurement, error) {
	m, ok := f.byKey[key]
	if !ok {
		return nil, nil
	}
	stored := m
	return &stored, nil
}

func (f *fakeMeasurementRepo) ListForComponent(ctx context.Context, unitID, componentID string, from, to time.Time) ([]models.Measurement, error) {
	return nil, nil
}

type fakeQuarantineRepo struct {
	rows []models.QuarantinedRow
}

func (f *fakeQuarantineRepo) Add(ctx context.Context, source string, raw json.RawMessage, reasonCode, reason string) (*models.QuarantinedRow, error) {
	row := models.QuarantinedRow{
		ID:         "q-1",
		Source:     source,
		Raw:        raw,
		ReasonCode: reasonCode,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	f.rows = append(f.rows, row)
	return &row, nil
}

func (f *fakeQuarantineRepo) List(ctx context.Context, source, reasonCode string, page, pageSize int) ([]models.QuarantinedRow, int, error) {
	return f.rows, len(f.rows), nil
}

type pipeline struct {
	svc          *Service
	measurements *fakeMeasurementRepo
	quarantine   *fakeQuarantineRepo
	limits       *fakeLimitRepo
}

func newPipeline() *pipeline {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	techniques := &fakeTechniqueRepo{variables: map[string]models.TechniqueVariable{
		"oil/Iron":          {ID: "var-iron", TechniqueCode: "oil", Code: "Iron"},
		"telemetry/oil_temp": {ID: "var-temp", TechniqueCode: "telemetry", Code: "oil_temp"},
	}}
	limits := &fakeLimitRepo{}
	installations := &fakeInstallationRepo{installations: []models.ComponentInstallation{
		{
			ID: "inst-1", SiteID: "site-1", SystemID: "sys-1", UnitID: "unit-1",
			ComponentID: "comp-gearbox", ComponentName: "Gearbox",
			NormalizedName: "gearbox",
			InstalledAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}}
	measurements := newFakeMeasurementRepo()
	quar := &fakeQuarantineRepo{}

	reg := registry.NewService(techniques, limits, logger)
	scopes := scope.NewResolver(installations, logger)

	return &pipeline{
		svc:          NewService(reg, scopes, measurements, quar, 0, logger),
		measurements: measurements,
		quarantine:   quar,
		limits:       limits,
	}
}

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func oilRow() models.OilRow {
	return models.OilRow{
		SampleID:    "s-1",
		SampleDate:  "2024-05-01T10:00:00Z",
		UnitID:      "unit-1",
		Component:   "Gearbox",
		ElementName: "Iron",
		Value:       floatPtr(12.5),
	}
}

func TestIngestOilRow_QuarantineReasons(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*models.OilRow)
		reason string
	}{
		{"missing component", func(r *models.OilRow) { r.Component = "" }, models.ReasonMissingField},
		{"missing sample date", func(r *models.OilRow) { r.SampleDate = "" }, models.ReasonMissingField},
		{"missing value", func(r *models.OilRow) { r.Value = nil }, models.ReasonMissingField},
		{"unparseable sample date", func(r *models.OilRow) { r.SampleDate = "last tuesday" }, models.ReasonBadTimestamp},
		{"NaN value", func(r *models.OilRow) { r.Value = floatPtr(math.NaN()) }, models.ReasonBadValue},
		{"unknown element", func(r *models.OilRow) { r.ElementName = "Unobtainium" }, models.ReasonUnknownVariable},
		{"unknown component", func(r *models.OilRow) { r.Component = "Flux Capacitor" }, models.ReasonUnresolvedScope},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline()
			row := oilRow()
			tc.mutate(&row)

			m, quarantined, err := p.svc.IngestOilRow(ctx, row)
			require.NoError(t, err, "row defects quarantine, they do not error")
			assert.Nil(t, m)
			require.NotNil(t, quarantined)
			assert.Equal(t, tc.reason, quarantined.ReasonCode)
			assert.Equal(t, "oil", quarantined.Source)
			require.Len(t, p.quarantine.rows, 1)
			assert.Empty(t, p.measurements.byKey)
		})
	}
}

func TestIngestOilRow_Idempotence(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	m1, quarantined, err := p.svc.IngestOilRow(ctx, oilRow())
	require.NoError(t, err)
	require.Nil(t, quarantined)
	require.NotNil(t, m1)
	assert.Equal(t, "var-iron", m1.VariableID)
	assert.Equal(t, "comp-gearbox", m1.ComponentID)

	// Redelivery of the same natural key lands on the same record
	m2, quarantined, err := p.svc.IngestOilRow(ctx, oilRow())
	require.NoError(t, err)
	require.Nil(t, quarantined)
	require.NotNil(t, m2)
	assert.Len(t, p.measurements.byKey, 1)
	assert.Equal(t, m1.Key(), m2.Key())

	stored, err := p.measurements.GetByKey(ctx, m1.Key())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 12.5, stored.Value)
}

func TestIngestOilRow_BreachComputation(t *testing.T) {
	ctx := context.Background()

	t.Run("computed from active limits", func(t *testing.T) {
		p := newPipeline()
		p.limits.limits = []models.VariableLimit{
			{ID: "l-1", VariableID: "var-iron", LimitType: models.LimitUpperMarginal,
				Comparison: models.CompareGTE, Threshold: 10,
				ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}

		m, _, err := p.svc.IngestOilRow(ctx, oilRow())
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, m.IsLimitReached)
		assert.Equal(t, models.BreachAlert, m.BreachLevel)
	})

	t.Run("source values take precedence over computed", func(t *testing.T) {
		p := newPipeline()
		p.limits.limits = []models.VariableLimit{
			{ID: "l-1", VariableID: "var-iron", LimitType: models.LimitUpperMarginal,
				Comparison: models.CompareGTE, Threshold: 10,
				ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}

		row := oilRow()
		row.IsLimitReached = boolPtr(false)

		m, _, err := p.svc.IngestOilRow(ctx, row)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.False(t, m.IsLimitReached, "source disagreement is logged, source wins")
	})

	t.Run("no limits means no breach", func(t *testing.T) {
		p := newPipeline()

		m, _, err := p.svc.IngestOilRow(ctx, oilRow())
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.False(t, m.IsLimitReached)
		assert.Equal(t, models.BreachNone, m.BreachLevel)
	})
}

func TestIngestTelemetryRow(t *testing.T) {
	ctx := context.Background()

	telemetryRow := func() models.TelemetryRow {
		return models.TelemetryRow{
			Timestamp:    "2024-05-01T10:00:00Z",
			UnitID:       "unit-1",
			Component:    "Gearbox",
			VariableName: "oil_temp",
			Value:        floatPtr(71.2),
		}
	}

	t.Run("valid row lands with telemetry detail", func(t *testing.T) {
		p := newPipeline()

		m, quarantined, err := p.svc.IngestTelemetryRow(ctx, telemetryRow())
		require.NoError(t, err)
		require.Nil(t, quarantined)
		require.NotNil(t, m)
		assert.Equal(t, "var-temp", m.VariableID)
		require.NotNil(t, m.Telemetry)
		assert.Nil(t, m.Oil)
	})

	t.Run("missing variable name quarantines", func(t *testing.T) {
		p := newPipeline()
		row := telemetryRow()
		row.VariableName = ""

		m, quarantined, err := p.svc.IngestTelemetryRow(ctx, row)
		require.NoError(t, err)
		assert.Nil(t, m)
		require.NotNil(t, quarantined)
		assert.Equal(t, models.ReasonMissingField, quarantined.ReasonCode)
		assert.Equal(t, "telemetry", quarantined.Source)
	})

	t.Run("row-supplied limit band vouches for is_limit_reached", func(t *testing.T) {
		p := newPipeline()
		row := telemetryRow()
		row.UpperLimitValue = floatPtr(70)

		m, _, err := p.svc.IngestTelemetryRow(ctx, row)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, m.IsLimitReached)
	})
}

func TestIngestBatch_RowLevelIsolation(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	bad := oilRow()
	bad.SampleDate = "not a date"

	other := oilRow()
	other.SampleDate = "2024-05-02T10:00:00Z"

	result, err := p.svc.IngestOilBatch(ctx, []models.OilRow{oilRow(), bad, other})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Ingested)
	assert.Equal(t, 1, result.Quarantined)
	require.Len(t, result.Outcomes, 3)
	assert.False(t, result.Outcomes[0].Quarantined)
	assert.True(t, result.Outcomes[1].Quarantined)
	assert.Equal(t, models.ReasonBadTimestamp, result.Outcomes[1].ReasonCode)
	assert.False(t, result.Outcomes[2].Quarantined)
	assert.Len(t, p.measurements.byKey, 2)
}

func TestIngestBatch_SizeCap(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()
	p.svc.maxBatch = 2

	_, err := p.svc.IngestOilBatch(ctx, []models.OilRow{oilRow(), oilRow(), oilRow()})
	assert.Error(t, err)
}
