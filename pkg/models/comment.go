package models

import "time"

// AIComment is a generated natural-language comment attached to exactly one
// alert case. ContentHash deduplicates identical generations; superseded
// comments keep their rows with Active=false.
type AIComment struct {
	ID          string    `json:"id" db:"id"`
	CaseID      string    `json:"case_id" db:"case_id"`
	CommentType string    `json:"comment_type" db:"comment_type"`
	CommentText string    `json:"comment_text" db:"comment_text"`
	Language    string    `json:"language,omitempty" db:"language"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CreateCommentRequest is the request body for registering an AI comment.
// Either CaseID or AlertID must be set; an AlertID is resolved to the case the
// alert is linked to.
type CreateCommentRequest struct {
	CaseID      string `json:"case_id,omitempty"`
	AlertID     string `json:"alert_id,omitempty"`
	CommentType string `json:"comment_type" validate:"required"`
	CommentText string `json:"comment_text" validate:"required"`
	Language    string `json:"language,omitempty"`
}

// ClaimSpan locates the claim text inside a comment that a piece of evidence
// supports.
type ClaimSpan struct {
	Start int    `json:"start" db:"claim_start"`
	End   int    `json:"end" db:"claim_end"`
	Text  string `json:"text,omitempty" db:"claim_text"`
}

// CommentEvidence links a comment to the alert and/or measurement backing it.
// At least one of AlertID/MeasurementID is always set.
type CommentEvidence struct {
	ID            string     `json:"id" db:"id"`
	CommentID     string     `json:"comment_id" db:"comment_id"`
	AlertID       *string    `json:"alert_id,omitempty" db:"alert_id"`
	MeasurementID *string    `json:"measurement_id,omitempty" db:"measurement_id"`
	Relevance     *int       `json:"relevance,omitempty" db:"relevance"`
	ClaimStart    *int       `json:"claim_start,omitempty" db:"claim_start"`
	ClaimEnd      *int       `json:"claim_end,omitempty" db:"claim_end"`
	ClaimText     *string    `json:"claim_text,omitempty" db:"claim_text"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// LinkEvidenceRequest is the request body for attaching evidence to a comment.
type LinkEvidenceRequest struct {
	CommentID     string     `json:"comment_id" validate:"required"`
	AlertID       *string    `json:"alert_id,omitempty"`
	MeasurementID *string    `json:"measurement_id,omitempty"`
	Relevance     *int       `json:"relevance,omitempty"`
	Claim         *ClaimSpan `json:"claim,omitempty"`
}
