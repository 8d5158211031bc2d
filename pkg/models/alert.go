package models

import "time"

// AlertState is the lifecycle state of a technique alert.
type AlertState string

const (
	AlertOpen       AlertState = "open"
	AlertMonitoring AlertState = "monitoring"
	AlertClosed     AlertState = "closed"
)

// IsActive reports whether the alert is still eligible for case grouping.
func (s AlertState) IsActive() bool {
	return s == AlertOpen || s == AlertMonitoring
}

// TechniqueAlert is a detected abnormality in one technique on one
// unit/component over a start/end interval.
type TechniqueAlert struct {
	ID            string     `json:"id" db:"id"`
	TechniqueCode string     `json:"technique_code" db:"technique_code"`
	UnitID        string     `json:"unit_id" db:"unit_id"`
	ComponentID   string     `json:"component_id" db:"component_id"`
	StartTS       time.Time  `json:"start_ts" db:"start_ts"`
	EndTS         *time.Time `json:"end_ts,omitempty" db:"end_ts"`
	Severity      string     `json:"severity" db:"severity"`
	State         AlertState `json:"state" db:"state"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateAlertRequest is the request body for recording a technique alert.
type CreateAlertRequest struct {
	TechniqueCode string     `json:"technique_code" validate:"required"`
	UnitID        string     `json:"unit_id" validate:"required"`
	ComponentID   string     `json:"component_id" validate:"required"`
	StartTS       time.Time  `json:"start_ts" validate:"required"`
	EndTS         *time.Time `json:"end_ts,omitempty"`
	Severity      string     `json:"severity,omitempty"`
}
