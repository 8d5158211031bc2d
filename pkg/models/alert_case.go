package models

import "time"

// CaseLabel describes which techniques contributed alerts to a case.
type CaseLabel string

const (
	LabelOilOnly       CaseLabel = "oil_only"
	LabelTelemetryOnly CaseLabel = "telemetry_only"
	LabelBoth          CaseLabel = "both"
	LabelMulti         CaseLabel = "multi"
)

// CaseStatus is the review workflow status of a case.
type CaseStatus string

const (
	CaseNew       CaseStatus = "new"
	CaseInReview  CaseStatus = "in_review"
	CaseResolved  CaseStatus = "resolved"
	CaseDismissed CaseStatus = "dismissed"
)

// AlertCase is a cross-technique grouping of technique alerts for one
// unit/component. TimeStart always equals the earliest StartTS among its
// linked alerts; a case never exists with zero linked alerts.
type AlertCase struct {
	ID          string     `json:"id" db:"id"`
	UnitID      string     `json:"unit_id" db:"unit_id"`
	ComponentID string     `json:"component_id" db:"component_id"`
	TimeStart   time.Time  `json:"time_start" db:"time_start"`
	Label       CaseLabel  `json:"label" db:"label"`
	Status      CaseStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	Alerts []TechniqueAlert `json:"alerts,omitempty" db:"-"`
}

// GroupCaseRequest is the request body for grouping alerts into a case.
type GroupCaseRequest struct {
	UnitID      string `json:"unit_id" validate:"required"`
	ComponentID string `json:"component_id" validate:"required"`
	// WindowHours overrides the configured proximity window when > 0.
	WindowHours int `json:"window_hours,omitempty"`
	// CalendarDay groups by calendar day instead of a sliding window.
	CalendarDay bool `json:"calendar_day,omitempty"`
}
