package models

import "time"

// LimitType combines direction and severity of a threshold rule.
type LimitType string

const (
	LimitUpperMarginal LimitType = "upper_marginal"
	LimitUpperCritical LimitType = "upper_critical"
	LimitLowerMarginal LimitType = "lower_marginal"
	LimitLowerCritical LimitType = "lower_critical"
)

// IsCritical reports whether a breach of this limit type is a critical breach.
func (t LimitType) IsCritical() bool {
	return t == LimitUpperCritical || t == LimitLowerCritical
}

// Comparison is the operator applied between a measured value and the threshold.
type Comparison string

const (
	CompareGT  Comparison = "gt"
	CompareGTE Comparison = "gte"
	CompareLT  Comparison = "lt"
	CompareLTE Comparison = "lte"
)

// AssetScope identifies where in the asset hierarchy a limit applies or a
// measurement was taken. Empty fields widen the scope; a fully empty scope is
// an unscoped (fleet-wide) rule.
type AssetScope struct {
	SiteID      string `json:"site_id,omitempty" db:"site_id"`
	SystemID    string `json:"system_id,omitempty" db:"system_id"`
	UnitID      string `json:"unit_id,omitempty" db:"unit_id"`
	ComponentID string `json:"component_id,omitempty" db:"component_id"`
}

// Specificity ranks the scope for limit resolution: component > system > site >
// unscoped. Higher wins.
func (s AssetScope) Specificity() int {
	switch {
	case s.ComponentID != "":
		return 3
	case s.SystemID != "":
		return 2
	case s.SiteID != "":
		return 1
	default:
		return 0
	}
}

// Matches reports whether a limit declared at this scope applies to a
// measurement taken at the given scope. A limit field that is set must match;
// an unset field matches anything narrower.
func (s AssetScope) Matches(at AssetScope) bool {
	if s.SiteID != "" && s.SiteID != at.SiteID {
		return false
	}
	if s.SystemID != "" && s.SystemID != at.SystemID {
		return false
	}
	if s.ComponentID != "" && s.ComponentID != at.ComponentID {
		return false
	}
	return true
}

// VariableLimit is a threshold rule with a half-open validity interval
// [ValidFrom, ValidTo). A nil ValidTo means open-ended. Limits are never
// deleted, only closed by setting ValidTo.
type VariableLimit struct {
	ID          string     `json:"id" db:"id"`
	VariableID  string     `json:"variable_id" db:"variable_id"`
	SiteID      string     `json:"site_id,omitempty" db:"site_id"`
	SystemID    string     `json:"system_id,omitempty" db:"system_id"`
	ComponentID string     `json:"component_id,omitempty" db:"component_id"`
	LimitType   LimitType  `json:"limit_type" db:"limit_type"`
	Comparison  Comparison `json:"comparison" db:"comparison"`
	Threshold   float64    `json:"threshold" db:"threshold"`
	ValidFrom   time.Time  `json:"valid_from" db:"valid_from"`
	ValidTo     *time.Time `json:"valid_to,omitempty" db:"valid_to"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Scope returns the asset scope the limit is declared at.
func (l VariableLimit) Scope() AssetScope {
	return AssetScope{SiteID: l.SiteID, SystemID: l.SystemID, ComponentID: l.ComponentID}
}

// ActiveAt reports whether the limit's validity interval covers the instant.
func (l VariableLimit) ActiveAt(at time.Time) bool {
	if at.Before(l.ValidFrom) {
		return false
	}
	return l.ValidTo == nil || at.Before(*l.ValidTo)
}

// Breached evaluates the comparison against a measured value.
func (l VariableLimit) Breached(value float64) bool {
	switch l.Comparison {
	case CompareGT:
		return value > l.Threshold
	case CompareGTE:
		return value >= l.Threshold
	case CompareLT:
		return value < l.Threshold
	case CompareLTE:
		return value <= l.Threshold
	default:
		return false
	}
}

// UpsertLimitRequest is the request body for creating or closing a limit.
type UpsertLimitRequest struct {
	TechniqueCode string     `json:"technique_code" validate:"required"`
	VariableCode  string     `json:"variable_code" validate:"required"`
	SiteID        string     `json:"site_id,omitempty"`
	SystemID      string     `json:"system_id,omitempty"`
	ComponentID   string     `json:"component_id,omitempty"`
	LimitType     string     `json:"limit_type" validate:"required,oneof=upper_marginal upper_critical lower_marginal lower_critical"`
	Comparison    string     `json:"comparison" validate:"required,oneof=gt gte lt lte"`
	Threshold     float64    `json:"threshold"`
	ValidFrom     time.Time  `json:"valid_from" validate:"required"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
}
