package models

import "time"

// ComponentInstallation records that a named component was installed in a unit
// over a half-open interval [InstalledAt, RemovedAt). A nil RemovedAt means
// the component is still installed. Scope resolution matches ingest rows
// against this history at the row's effective time.
type ComponentInstallation struct {
	ID             string     `json:"id" db:"id"`
	SiteID         string     `json:"site_id,omitempty" db:"site_id"`
	SystemID       string     `json:"system_id,omitempty" db:"system_id"`
	UnitID         string     `json:"unit_id" db:"unit_id"`
	ComponentID    string     `json:"component_id" db:"component_id"`
	ComponentName  string     `json:"component_name" db:"component_name"`
	NormalizedName string     `json:"normalized_name" db:"normalized_name"`
	InstalledAt    time.Time  `json:"installed_at" db:"installed_at"`
	RemovedAt      *time.Time `json:"removed_at,omitempty" db:"removed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// InstalledAtTime reports whether the installation was in place at the instant.
func (i ComponentInstallation) InstalledAtTime(at time.Time) bool {
	if at.Before(i.InstalledAt) {
		return false
	}
	return i.RemovedAt == nil || at.Before(*i.RemovedAt)
}

// RegisterInstallationRequest is the request body for recording a component
// installation.
type RegisterInstallationRequest struct {
	SiteID        string     `json:"site_id,omitempty"`
	SystemID      string     `json:"system_id,omitempty"`
	UnitID        string     `json:"unit_id" validate:"required"`
	ComponentID   string     `json:"component_id" validate:"required"`
	ComponentName string     `json:"component_name" validate:"required"`
	InstalledAt   time.Time  `json:"installed_at" validate:"required"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
}
