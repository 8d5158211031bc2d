package models

import (
	"encoding/json"
	"time"
)

// Quarantine reason codes. Stable strings; dashboards filter on them.
const (
	ReasonMissingField    = "missing_field"
	ReasonBadValue        = "bad_value"
	ReasonBadTimestamp    = "bad_timestamp"
	ReasonUnknownVariable = "unknown_variable"
	ReasonUnresolvedScope = "unresolved_scope"
)

// QuarantinedRow is an append-only record of an ingest row that failed
// validation, kept for inspection rather than discarded.
type QuarantinedRow struct {
	ID         string          `json:"id" db:"id"`
	Source     string          `json:"source" db:"source"` // "oil" | "telemetry" | "comment"
	Raw        json.RawMessage `json:"raw" db:"raw"`
	ReasonCode string          `json:"reason_code" db:"reason_code"`
	Reason     string          `json:"reason" db:"reason"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// RowOutcome reports what happened to one row of a batch.
type RowOutcome struct {
	Index         int    `json:"index"`
	MeasurementID string `json:"measurement_id,omitempty"`
	Quarantined   bool   `json:"quarantined"`
	ReasonCode    string `json:"reason_code,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// BatchResult summarizes a batch ingest with row-level isolation: failed rows
// are quarantined, the rest are ingested.
type BatchResult struct {
	Ingested    int          `json:"ingested"`
	Quarantined int          `json:"quarantined"`
	Outcomes    []RowOutcome `json:"outcomes"`
}
