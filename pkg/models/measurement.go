package models

import "time"

// BreachLevel is the severity bucket of a limit violation.
type BreachLevel string

const (
	BreachNone     BreachLevel = "none"
	BreachAlert    BreachLevel = "alert"
	BreachCritical BreachLevel = "critical"
	BreachUrgent   BreachLevel = "urgent"
)

// breachRank orders breach levels for cross-checking source-supplied values
// against computed ones.
var breachRank = map[BreachLevel]int{
	BreachNone:     0,
	BreachAlert:    1,
	BreachCritical: 2,
	BreachUrgent:   3,
}

// Rank returns the ordering position of the breach level; unknown levels rank
// below none.
func (b BreachLevel) Rank() int {
	if r, ok := breachRank[b]; ok {
		return r
	}
	return -1
}

// Valid reports whether the string is a known breach level.
func (b BreachLevel) Valid() bool {
	_, ok := breachRank[b]
	return ok
}

// Measurement is the unified measurement supertype. Exactly one specialization
// (Oil or Telemetry) is present, selected by TechniqueCode.
type Measurement struct {
	ID             string      `json:"id" db:"id"`
	TechniqueCode  string      `json:"technique_code" db:"technique_code"`
	VariableID     string      `json:"variable_id" db:"variable_id"`
	UnitID         string      `json:"unit_id" db:"unit_id"`
	ComponentID    string      `json:"component_id" db:"component_id"`
	Timestamp      time.Time   `json:"timestamp" db:"ts"`
	Value          float64     `json:"value" db:"value"`
	IsLimitReached bool        `json:"is_limit_reached" db:"is_limit_reached"`
	BreachLevel    BreachLevel `json:"breach_level" db:"breach_level"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`

	Oil       *OilDetail       `json:"oil,omitempty" db:"-"`
	Telemetry *TelemetryDetail `json:"telemetry,omitempty" db:"-"`
}

// NaturalKey identifies a measurement for idempotent upserts.
type NaturalKey struct {
	TechniqueCode string
	VariableID    string
	UnitID        string
	ComponentID   string
	Timestamp     time.Time
}

// Key returns the measurement's natural key.
func (m Measurement) Key() NaturalKey {
	return NaturalKey{
		TechniqueCode: m.TechniqueCode,
		VariableID:    m.VariableID,
		UnitID:        m.UnitID,
		ComponentID:   m.ComponentID,
		Timestamp:     m.Timestamp,
	}
}

// OilDetail is the oil-analysis specialization of a measurement.
type OilDetail struct {
	MeasurementID string     `json:"measurement_id" db:"measurement_id"`
	SampleID      string     `json:"sample_id" db:"sample_id"`
	SampleDate    time.Time  `json:"sample_date" db:"sample_date"`
	OilMeter      *string    `json:"oil_meter,omitempty" db:"oil_meter"`
}

// TelemetryDetail is the telemetry specialization of a measurement.
type TelemetryDetail struct {
	MeasurementID  string  `json:"measurement_id" db:"measurement_id"`
	ComponentMeter *string `json:"component_meter,omitempty" db:"component_meter"`
	Aggregation    string  `json:"aggregation,omitempty" db:"aggregation"`
	SamplingRateHz float64 `json:"sampling_rate_hz,omitempty" db:"sampling_rate_hz"`
}
