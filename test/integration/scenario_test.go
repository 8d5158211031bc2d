package integration

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/contenthash"
	"github.com/Ramsey-B/sage/pkg/grouping"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/registry"
	"github.com/Ramsey-B/sage/pkg/review"
	"github.com/Ramsey-B/sage/pkg/scope"
)

var validate = validator.New()

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(s string) *time.Time {
	t := mustTime(s)
	return &t
}

// A measurement row arrives, its component resolves against the installation
// history, and the value is evaluated against the limits active at that time.
func TestScenario_MeasurementThroughLimits(t *testing.T) {
	at := mustTime("2024-05-10T14:00:00Z")

	history := []models.ComponentInstallation{
		{
			ID: "inst-1", SiteID: "site-1", SystemID: "sys-1", UnitID: "unit-1",
			ComponentID: "comp-gearbox", ComponentName: "Gearbox HE-3",
			NormalizedName: "gearbox he 3",
			InstalledAt:    mustTime("2024-01-01T00:00:00Z"),
		},
	}

	assetScope, ok := scope.Match(history, "gearbox_HE 3", at)
	require.True(t, ok, "normalized name should resolve the source spelling")
	assert.Equal(t, "comp-gearbox", assetScope.ComponentID)

	limits := []models.VariableLimit{
		{
			ID: "marginal", VariableID: "iron",
			LimitType: models.LimitUpperMarginal, Comparison: models.CompareGTE, Threshold: 40,
			ValidFrom: mustTime("2024-01-01T00:00:00Z"),
		},
		{
			ID: "critical-component", VariableID: "iron", SiteID: "site-1", ComponentID: "comp-gearbox",
			LimitType: models.LimitUpperCritical, Comparison: models.CompareGTE, Threshold: 80,
			ValidFrom: mustTime("2024-01-01T00:00:00Z"),
		},
	}

	active, err := registry.ResolveActive(limits, at, assetScope)
	require.NoError(t, err)
	require.Len(t, active, 2)

	reached, level := registry.EvaluateBreach(active, 85)
	assert.True(t, reached)
	assert.Equal(t, models.BreachCritical, level)

	reached, level = registry.EvaluateBreach(active, 50)
	assert.True(t, reached)
	assert.Equal(t, models.BreachAlert, level)
}

// Limits on the same key must not overlap in time; a new limit slots in only
// after the previous one is closed.
func TestScenario_LimitLifecycle(t *testing.T) {
	existing := []models.VariableLimit{
		{ID: "v1", VariableID: "iron", LimitType: models.LimitUpperCritical,
			ValidFrom: mustTime("2024-01-01T00:00:00Z"), ValidTo: nil},
	}

	conflict := registry.FindOverlap(existing, mustTime("2024-06-01T00:00:00Z"), nil)
	require.NotNil(t, conflict, "an open-ended limit blocks any later limit")

	// Close the old limit, then the replacement fits
	existing[0].ValidTo = timePtr("2024-06-01T00:00:00Z")
	conflict = registry.FindOverlap(existing, mustTime("2024-06-01T00:00:00Z"), nil)
	assert.Nil(t, conflict)
}

// Oil and telemetry alerts close in time form one cross-technique case.
func TestScenario_CrossTechniqueCase(t *testing.T) {
	alerts := []models.TechniqueAlert{
		{ID: "oil-alert", TechniqueCode: models.TechniqueOil, UnitID: "unit-1",
			ComponentID: "comp-gearbox", StartTS: mustTime("2024-05-10T06:00:00Z"), State: models.AlertOpen},
		{ID: "telemetry-alert", TechniqueCode: models.TechniqueTelemetry, UnitID: "unit-1",
			ComponentID: "comp-gearbox", StartTS: mustTime("2024-05-10T18:00:00Z"), State: models.AlertOpen},
		{ID: "stale-alert", TechniqueCode: models.TechniqueOil, UnitID: "unit-1",
			ComponentID: "comp-gearbox", StartTS: mustTime("2024-05-20T06:00:00Z"), State: models.AlertOpen},
	}

	selected := grouping.SelectGroupable(alerts, grouping.WindowPolicy{Window: 24 * time.Hour})
	require.Len(t, selected, 2)

	assert.Equal(t, models.LabelBoth, grouping.DeriveLabel(selected))
	assert.True(t, grouping.EarliestStart(selected).Equal(mustTime("2024-05-10T06:00:00Z")))
}

// A re-delivered AI comment with cosmetic whitespace differences hashes to the
// same content hash and deduplicates against the stored comment.
func TestScenario_CommentRedelivery(t *testing.T) {
	first := contenthash.Text("Iron levels trending upward; recommend resample in 2 weeks.")
	redelivered := contenthash.Text("Iron levels  trending upward;\nrecommend resample in 2 weeks.")
	assert.True(t, contenthash.Matches(first, redelivered))

	edited := contenthash.Text("Iron levels trending upward; recommend resample in 1 week.")
	assert.False(t, contenthash.Matches(first, edited))
}

// Three reviewers grade a comment; unanimity adjudicates, any split does not.
func TestScenario_MultiRaterAdjudication(t *testing.T) {
	dimensions := []models.RubricDimension{
		{Code: "accuracy", ScaleMin: 1, ScaleMax: 5},
		{Code: "actionability", ScaleMin: 1, ScaleMax: 5},
	}

	submission := models.RecordReviewRequest{
		CommentID:    "comment-1",
		ReviewerID:   "reviewer-1",
		OverallLabel: "accept",
		Scores: []models.ReviewScoreInput{
			{DimensionCode: "accuracy", Value: 4},
			{DimensionCode: "actionability", Value: 5},
		},
	}
	require.NoError(t, validate.Struct(submission))
	require.NoError(t, review.ValidateScores(submission.Scores, dimensions))

	unanimous := []models.Review{
		{ReviewerID: "r1", OverallLabel: models.LabelAccept},
		{ReviewerID: "r2", OverallLabel: models.LabelAccept},
		{ReviewerID: "r3", OverallLabel: models.LabelAccept},
	}
	decision, ok := review.Aggregate(unanimous)
	require.True(t, ok)
	assert.Equal(t, models.DecisionPublish, decision)

	split := append(unanimous[:2:2], models.Review{ReviewerID: "r3", OverallLabel: models.LabelReject})
	_, ok = review.Aggregate(split)
	assert.False(t, ok, "disagreement is never auto-resolved")
}

func TestRequestValidation(t *testing.T) {
	t.Run("review label outside the vocabulary is rejected", func(t *testing.T) {
		req := models.RecordReviewRequest{
			CommentID:    "comment-1",
			ReviewerID:   "reviewer-1",
			OverallLabel: "maybe",
		}
		assert.Error(t, validate.Struct(req))
	})

	t.Run("grade outside 1-7 is rejected", func(t *testing.T) {
		grade := 9
		req := models.RecordReviewRequest{
			CommentID:    "comment-1",
			ReviewerID:   "reviewer-1",
			OverallLabel: "accept",
			Grade:        &grade,
		}
		assert.Error(t, validate.Struct(req))
	})

	t.Run("limit with a zero threshold is a valid request", func(t *testing.T) {
		// Lower limits legitimately sit at zero
		req := models.UpsertLimitRequest{
			TechniqueCode: "oil",
			VariableCode:  "iron",
			LimitType:     "lower_marginal",
			Comparison:    "lt",
			Threshold:     0,
			ValidFrom:     mustTime("2024-01-01T00:00:00Z"),
		}
		assert.NoError(t, validate.Struct(req))
	})

	t.Run("comment without text is rejected", func(t *testing.T) {
		req := models.CreateCommentRequest{CaseID: "case-1", CommentType: "diagnosis"}
		assert.Error(t, validate.Struct(req))
	})

	t.Run("evidence link requires a comment id", func(t *testing.T) {
		alertID := "alert-1"
		req := models.LinkEvidenceRequest{AlertID: &alertID}
		assert.Error(t, validate.Struct(req))
	})

	t.Run("well-formed evidence link passes", func(t *testing.T) {
		measurementID := "m-1"
		relevance := 2
		req := models.LinkEvidenceRequest{
			CommentID:     "comment-1",
			MeasurementID: &measurementID,
			Relevance:     &relevance,
			Claim:         &models.ClaimSpan{Start: 0, End: 24},
		}
		assert.NoError(t, validate.Struct(req))
	})
}
