package models

import "time"

// VariableDatatype is the declared datatype of a technique variable.
type VariableDatatype string

const (
	DatatypeNumeric     VariableDatatype = "numeric"
	DatatypeInteger     VariableDatatype = "integer"
	DatatypeCategorical VariableDatatype = "categorical"
)

// Well-known technique codes. The pair drives case labeling and measurement
// specialization; other techniques are allowed and simply label as "multi".
const (
	TechniqueOil       = "oil"
	TechniqueTelemetry = "telemetry"
)

// Technique is a measurement discipline (e.g. oil analysis, telemetry).
// Immutable once any variable references it.
type Technique struct {
	ID        string    `json:"id" db:"id"`
	Code      string    `json:"code" db:"code" validate:"required,alphanum"`
	Name      string    `json:"name" db:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TechniqueVariable is a named, typed signal within a technique. It must exist
// before any limit or measurement references it.
type TechniqueVariable struct {
	ID            string           `json:"id" db:"id"`
	TechniqueCode string           `json:"technique_code" db:"technique_code"`
	Code          string           `json:"code" db:"code" validate:"required"`
	Datatype      VariableDatatype `json:"datatype" db:"datatype" validate:"required,oneof=numeric integer categorical"`
	Unit          string           `json:"unit,omitempty" db:"unit"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// DefineTechniqueRequest is the request body for defining a technique.
type DefineTechniqueRequest struct {
	Code string `json:"code" validate:"required,alphanum"`
	Name string `json:"name" validate:"required"`
}

// DefineVariableRequest is the request body for defining a technique variable.
type DefineVariableRequest struct {
	TechniqueCode string `json:"technique_code" validate:"required"`
	Code          string `json:"code" validate:"required"`
	Datatype      string `json:"datatype" validate:"required,oneof=numeric integer categorical"`
	Unit          string `json:"unit,omitempty"`
}
