package models

import "time"

// OverallLabel is a reviewer's overall verdict on a comment.
type OverallLabel string

const (
	LabelAccept    OverallLabel = "accept"
	LabelNeedsEdit OverallLabel = "needs_edit"
	LabelReject    OverallLabel = "reject"
)

// Decision is the adjudicated outcome for a comment.
type Decision string

const (
	DecisionPublish  Decision = "publish"
	DecisionRevise   Decision = "revise"
	DecisionSuppress Decision = "suppress"
)

// DecisionForLabel maps a unanimous overall label to its decision.
func DecisionForLabel(label OverallLabel) (Decision, bool) {
	switch label {
	case LabelAccept:
		return DecisionPublish, true
	case LabelNeedsEdit:
		return DecisionRevise, true
	case LabelReject:
		return DecisionSuppress, true
	default:
		return "", false
	}
}

// Reviewer is a domain expert who grades AI comments.
type Reviewer struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RubricDimension is a scored quality axis with a declared inclusive scale.
type RubricDimension struct {
	ID       string `json:"id" db:"id"`
	Code     string `json:"code" db:"code" validate:"required"`
	Name     string `json:"name" db:"name"`
	ScaleMin int    `json:"scale_min" db:"scale_min"`
	ScaleMax int    `json:"scale_max" db:"scale_max"`
}

// InBounds reports whether a score value satisfies the dimension's scale.
func (d RubricDimension) InBounds(value int) bool {
	return value >= d.ScaleMin && value <= d.ScaleMax
}

// Review is one reviewer's rubric-scored evaluation of one comment. Grade is
// the legacy 1-7 overall grade kept alongside the label for compatibility with
// the original evaluations export.
type Review struct {
	ID           string       `json:"id" db:"id"`
	CommentID    string       `json:"comment_id" db:"comment_id"`
	ReviewerID   string       `json:"reviewer_id" db:"reviewer_id"`
	OverallLabel OverallLabel `json:"overall_label" db:"overall_label"`
	Grade        *int         `json:"grade,omitempty" db:"grade"`
	Notes        *string      `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`

	Scores []ReviewScore `json:"scores,omitempty" db:"-"`
}

// ReviewScore is one dimension's numeric score inside a review.
type ReviewScore struct {
	ReviewID      string `json:"review_id" db:"review_id"`
	DimensionCode string `json:"dimension_code" db:"dimension_code"`
	Value         int    `json:"value" db:"value"`
}

// ReviewAdjudication is the resolved outcome for a comment. At most one live
// (non-superseded) adjudication exists per comment.
type ReviewAdjudication struct {
	ID           string     `json:"id" db:"id"`
	CommentID    string     `json:"comment_id" db:"comment_id"`
	Decision     Decision   `json:"decision" db:"decision"`
	DecidedBy    string     `json:"decided_by" db:"decided_by"` // "aggregate" or a reviewer id
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty" db:"superseded_at"`
}

// RecordReviewRequest is the request body for recording a review.
type RecordReviewRequest struct {
	CommentID    string              `json:"comment_id" validate:"required"`
	ReviewerID   string              `json:"reviewer_id" validate:"required"`
	OverallLabel string              `json:"overall_label" validate:"required,oneof=accept needs_edit reject"`
	Grade        *int                `json:"grade,omitempty" validate:"omitempty,min=1,max=7"`
	Notes        *string             `json:"notes,omitempty"`
	Scores       []ReviewScoreInput  `json:"scores,omitempty" validate:"dive"`
}

// ReviewScoreInput is one dimension score in a review submission.
type ReviewScoreInput struct {
	DimensionCode string `json:"dimension_code" validate:"required"`
	Value         int    `json:"value"`
}
