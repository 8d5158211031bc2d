package models

// Raw ingest rows arrive loosely typed (columnar exports, Kafka messages).
// Field names mirror the source columns; everything is optional at the type
// level and validated by the ingestion normalizer.

// OilRow is a raw oil-analysis measurement row.
type OilRow struct {
	SampleID       string  `json:"SampleId,omitempty"`
	SampleDate     string  `json:"SampleDate"`
	UnitID         string  `json:"UnitId"`
	Component      string  `json:"Component"`
	ElementName    string  `json:"ElementName"`
	Value          *float64 `json:"Value"`
	OilMeter       *string `json:"OilMeter,omitempty"`
	IsLimitReached *bool   `json:"IsLimitReached,omitempty"`
	BreachLevel    *string `json:"BreachLevel,omitempty"`
}

// TelemetryRow is a raw telemetry measurement row.
type TelemetryRow struct {
	Timestamp       string   `json:"Timestamp"`
	UnitID          string   `json:"UnitId"`
	Component       string   `json:"Component"`
	VariableName    string   `json:"VariableName"`
	Value           *float64 `json:"Value"`
	ComponentMeter  *string  `json:"ComponentMeter,omitempty"`
	UpperLimitValue *float64 `json:"UpperLimitValue,omitempty"`
	LowerLimitValue *float64 `json:"LowerLimitValue,omitempty"`
	IsLimitReached  *bool    `json:"IsLimitReached,omitempty"`
	Aggregation     string   `json:"Aggregation,omitempty"`
	SamplingRateHz  float64  `json:"SamplingRateHz,omitempty"`
}

// CommentRow is a raw AI comment row. AlertCaseID or AlertID must be present;
// an AlertID is resolved to its case.
type CommentRow struct {
	AICommentID string `json:"AICommentId"`
	AlertCaseID string `json:"AlertCaseId,omitempty"`
	AlertID     string `json:"AlertId,omitempty"`
	CommentText string `json:"CommentText"`
	CommentType string `json:"CommentType"`
	Language    string `json:"language,omitempty"`
}
