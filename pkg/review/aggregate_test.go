package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func reviewWith(reviewer string, label models.OverallLabel) models.Review {
	return models.Review{
		ID:           "review-" + reviewer,
		CommentID:    "comment-1",
		ReviewerID:   reviewer,
		OverallLabel: label,
	}
}

func TestAggregate(t *testing.T) {
	t.Run("no reviews means no decision", func(t *testing.T) {
		decision, ok := Aggregate(nil)
		assert.False(t, ok)
		assert.Empty(t, decision)
	})

	t.Run("unanimous accept publishes", func(t *testing.T) {
		reviews := []models.Review{
			reviewWith("r1", models.LabelAccept),
			reviewWith("r2", models.LabelAccept),
			reviewWith("r3", models.LabelAccept),
		}

		decision, ok := Aggregate(reviews)
		require.True(t, ok)
		assert.Equal(t, models.DecisionPublish, decision)
	})

	t.Run("unanimous needs_edit revises", func(t *testing.T) {
		reviews := []models.Review{
			reviewWith("r1", models.LabelNeedsEdit),
			reviewWith("r2", models.LabelNeedsEdit),
		}

		decision, ok := Aggregate(reviews)
		require.True(t, ok)
		assert.Equal(t, models.DecisionRevise, decision)
	})

	t.Run("unanimous reject suppresses", func(t *testing.T) {
		reviews := []models.Review{
			reviewWith("r1", models.LabelReject),
		}

		decision, ok := Aggregate(reviews)
		require.True(t, ok)
		assert.Equal(t, models.DecisionSuppress, decision)
	})

	t.Run("any disagreement yields no decision", func(t *testing.T) {
		reviews := []models.Review{
			reviewWith("r1", models.LabelAccept),
			reviewWith("r2", models.LabelAccept),
			reviewWith("r3", models.LabelReject),
		}

		decision, ok := Aggregate(reviews)
		assert.False(t, ok)
		assert.Empty(t, decision)
	})

	t.Run("same input always aggregates the same way", func(t *testing.T) {
		reviews := []models.Review{
			reviewWith("r1", models.LabelAccept),
			reviewWith("r2", models.LabelNeedsEdit),
		}

		first, firstOK := Aggregate(reviews)
		second, secondOK := Aggregate(reviews)
		assert.Equal(t, first, second)
		assert.Equal(t, firstOK, secondOK)
	})
}

func TestValidateScores(t *testing.T) {
	dimensions := []models.RubricDimension{
		{Code: "accuracy", ScaleMin: 1, ScaleMax: 5},
		{Code: "clarity", ScaleMin: 0, ScaleMax: 3},
	}

	t.Run("scores inside the declared scales pass", func(t *testing.T) {
		scores := []models.ReviewScoreInput{
			{DimensionCode: "accuracy", Value: 5},
			{DimensionCode: "clarity", Value: 0},
		}
		assert.NoError(t, ValidateScores(scores, dimensions))
	})

	t.Run("score above the scale is rejected", func(t *testing.T) {
		scores := []models.ReviewScoreInput{
			{DimensionCode: "accuracy", Value: 6},
		}

		err := ValidateScores(scores, dimensions)
		var oob *models.ScoreOutOfBoundsError
		require.ErrorAs(t, err, &oob)
		assert.Equal(t, "accuracy", oob.DimensionCode)
		assert.Equal(t, 6, oob.Value)
		assert.Equal(t, 1, oob.ScaleMin)
		assert.Equal(t, 5, oob.ScaleMax)
	})

	t.Run("score below the scale is rejected", func(t *testing.T) {
		scores := []models.ReviewScoreInput{
			{DimensionCode: "accuracy", Value: 0},
		}

		err := ValidateScores(scores, dimensions)
		var oob *models.ScoreOutOfBoundsError
		assert.ErrorAs(t, err, &oob)
	})

	t.Run("unknown dimension is rejected", func(t *testing.T) {
		scores := []models.ReviewScoreInput{
			{DimensionCode: "completeness", Value: 2},
		}

		err := ValidateScores(scores, dimensions)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "completeness")
	})

	t.Run("empty score set passes", func(t *testing.T) {
		assert.NoError(t, ValidateScores(nil, dimensions))
	})
}

func TestDecisionForLabel(t *testing.T) {
	t.Run("each label maps to its decision", func(t *testing.T) {
		cases := map[models.OverallLabel]models.Decision{
			models.LabelAccept:    models.DecisionPublish,
			models.LabelNeedsEdit: models.DecisionRevise,
			models.LabelReject:    models.DecisionSuppress,
		}

		for label, want := range cases {
			decision, ok := models.DecisionForLabel(label)
			require.True(t, ok, "label %s", label)
			assert.Equal(t, want, decision)
		}
	})

	t.Run("unrecognized label has no decision", func(t *testing.T) {
		_, ok := models.DecisionForLabel("maybe")
		assert.False(t, ok)
	})
}
