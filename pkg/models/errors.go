package models

import (
	"fmt"
	"time"
)

// Domain error kinds. Configuration-level errors (OverlapError,
// AmbiguousLimitError) are fatal to the mutating call; row-level errors
// (UnresolvedScopeError, UnknownVariableError) are recoverable via quarantine;
// the rest reject the single write that raised them.

// OverlapError is returned when a new limit's validity interval intersects an
// existing interval for the same (variable, scope, limit type).
type OverlapError struct {
	VariableID string
	Scope      AssetScope
	LimitType  LimitType
	ExistingID string
	ValidFrom  time.Time
	ValidTo    *time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("limit interval overlaps existing limit %s for variable %s (%s)", e.ExistingID, e.VariableID, e.LimitType)
}

// AmbiguousLimitError is returned when two limits at the same scope
// specificity are both active at the lookup instant. This is a configuration
// defect and must be surfaced, never silently resolved.
type AmbiguousLimitError struct {
	VariableID  string
	LimitType   LimitType
	At          time.Time
	Specificity int
	LimitIDs    []string
}

func (e *AmbiguousLimitError) Error() string {
	return fmt.Sprintf("ambiguous limits for variable %s (%s) at %s: %v", e.VariableID, e.LimitType, e.At.Format(time.RFC3339), e.LimitIDs)
}

// UnresolvedScopeError is returned when a unit/component pair cannot be mapped
// to the asset hierarchy. It carries the raw strings so callers can quarantine
// the row.
type UnresolvedScopeError struct {
	UnitID    string
	Component string
	At        time.Time
}

func (e *UnresolvedScopeError) Error() string {
	return fmt.Sprintf("unresolved scope: unit %q component %q", e.UnitID, e.Component)
}

// UnknownVariableError is returned when an ingest row references a variable
// code that has not been defined (registry-first invariant).
type UnknownVariableError struct {
	TechniqueCode string
	VariableCode  string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q for technique %q", e.VariableCode, e.TechniqueCode)
}

// EmptyCaseError is returned when grouping would produce a case with zero
// linked alerts. The case is never persisted.
type EmptyCaseError struct {
	UnitID      string
	ComponentID string
}

func (e *EmptyCaseError) Error() string {
	return fmt.Sprintf("no groupable alerts for unit %q component %q", e.UnitID, e.ComponentID)
}

// MissingReferenceError is returned when an evidence link provides neither a
// resolvable alert reference nor a resolvable measurement reference.
type MissingReferenceError struct {
	CommentID string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("evidence for comment %q must reference an alert or a measurement", e.CommentID)
}

// InvalidRelevanceError is returned when an evidence relevance score falls
// outside [0,3].
type InvalidRelevanceError struct {
	Relevance int
}

func (e *InvalidRelevanceError) Error() string {
	return fmt.Sprintf("relevance %d out of range [0,3]", e.Relevance)
}

// ScoreOutOfBoundsError rejects a whole review when any score violates its
// rubric dimension's scale.
type ScoreOutOfBoundsError struct {
	DimensionCode string
	Value         int
	ScaleMin      int
	ScaleMax      int
}

func (e *ScoreOutOfBoundsError) Error() string {
	return fmt.Sprintf("score %d for dimension %q out of bounds [%d,%d]", e.Value, e.DimensionCode, e.ScaleMin, e.ScaleMax)
}
