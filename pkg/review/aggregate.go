// Package review records rubric-scored reviews of AI comments and aggregates
// multi-rater verdicts into one adjudicated outcome.
package review

import (
	"fmt"

	"github.com/Ramsey-B/sage/pkg/models"
)

// DecidedByAggregate marks adjudications produced by label agreement rather
// than an explicit human decision
const DecidedByAggregate = "aggregate"

// Aggregate computes the adjudication over a full review set. Unanimous
// overall labels map to a decision; any disagreement yields no decision.
// Disagreement is never auto-resolved. Idempotent over the same set.
func Aggregate(reviews []models.Review) (models.Decision, bool) {
	if len(reviews) == 0 {
		return "", false
	}

	label := reviews[0].OverallLabel
	for _, r := range reviews[1:] {
		if r.OverallLabel != label {
			return "", false
		}
	}

	return models.DecisionForLabel(label)
}

// ValidateScores checks every score against its rubric dimension's declared
// scale. The first violation rejects the whole review.
func ValidateScores(scores []models.ReviewScoreInput, dimensions []models.RubricDimension) error {
	byCode := make(map[string]models.RubricDimension, len(dimensions))
	for _, d := range dimensions {
		byCode[d.Code] = d
	}

	for _, score := range scores {
		d, ok := byCode[score.DimensionCode]
		if !ok {
			return fmt.Errorf("unknown rubric dimension %q", score.DimensionCode)
		}
		if !d.InBounds(score.Value) {
			return &models.ScoreOutOfBoundsError{
				DimensionCode: d.Code,
				Value:         score.Value,
				ScaleMin:      d.ScaleMin,
				ScaleMax:      d.ScaleMax,
			}
		}
	}

	return nil
}
