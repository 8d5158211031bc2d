package evidence

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/internal/repositories/measurement"
	"github.com/Ramsey-B/sage/pkg/contenthash"
	"github.com/Ramsey-B/sage/pkg/models"
)

type fakeCommentRepo struct {
	byID     map[string]models.AIComment
	byHash   map[string]models.AIComment // caseID/hash
	created  []models.AIComment
	inactive []string
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{byID: map[string]models.AIComment{}, byHash: map[string]models.AIComment{}}
}

func (f *fakeCommentRepo) Create(ctx context.Context, c models.AIComment) (*models.AIComment, error) {
	c.ID = "comment-new"
	c.Active = true
	c.CreatedAt = time.Now().UTC()
	f.created = append(f.created, c)
	f.byID[c.ID] = c
	f.byHash[c.CaseID+"/"+c.ContentHash] = c
	return &c, nil
}

func (f *fakeCommentRepo) GetByID(ctx context.Context, id string) (*models.AIComment, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCommentRepo) GetByContentHash(ctx context.Context, caseID, contentHash string) (*models.AIComment, error) {
	c, ok := f.byHash[caseID+"/"+contentHash]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCommentRepo) ListForCase(ctx context.Context, caseID string, activeOnly bool) ([]models.AIComment, error) {
	out := []models.AIComment{}
	for _, c := range f.byID {
		if c.CaseID == caseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentRepo) Deactivate(ctx context.Context, id string) error {
	f.inactive = append(f.inactive, id)
	return nil
}

type fakeEvidenceRepo struct {
	links []models.CommentEvidence
}

func (f *fakeEvidenceRepo) Insert(ctx context.Context, e models.CommentEvidence) (*models.CommentEvidence, error) {
	e.ID = "link-1"
	e.CreatedAt = time.Now().UTC()
	f.links = append(f.links, e)
	return &e, nil
}

func (f *fakeEvidenceRepo) ListForComment(ctx context.Context, commentID string) ([]models.CommentEvidence, error) {
	return f.links, nil
}

type fakeCaseRepo struct {
	byID    map[string]models.AlertCase
	byAlert map[string]models.AlertCase
}

func (f *fakeCaseRepo) CreateWithLinks(ctx context.Context, c models.AlertCase, alertIDs []string) (*models.AlertCase, error) {
	return nil, nil
}

func (f *fakeCaseRepo) GetByID(ctx context.Context, id string) (*models.AlertCase, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCaseRepo) GetForAlert(ctx context.Context, alertID string) (*models.AlertCase, error) {
	c, ok := f.byAlert[alertID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCaseRepo) LinkAlert(ctx context.Context, c *models.AlertCase, alert models.TechniqueAlert, label models.CaseLabel) (*models.AlertCase, error) {
	return nil, nil
}

func (f *fakeCaseRepo) List(ctx context.Context, status models.CaseStatus, page, pageSize int) ([]models.AlertCase, int, error) {
	return nil, 0, nil
}

func (f *fakeCaseRepo) UpdateStatus(ctx context.Context, id string, status models.CaseStatus) (*models.AlertCase, error) {
	return nil, nil
}

type fakeAlertRepo struct {
	byID map[string]models.TechniqueAlert
}

func (f *fakeAlertRepo) Create(ctx context.Context, req models.CreateAlertRequest) (*models.TechniqueAlert, error) {
	return nil, nil
}

func (f *fakeAlertRepo) GetByID(ctx context.Context, id string) (*models.TechniqueAlert, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeAlertRepo) ListGroupable(ctx context.Context, unitID, componentID string) ([]models.TechniqueAlert, error) {
	return nil, nil
}

func (f *fakeAlertRepo) ListForCase(ctx context.Context, caseID string) ([]models.TechniqueAlert, error) {
	return nil, nil
}

func (f *fakeAlertRepo) UpdateState(ctx context.Context, id string, state models.AlertState) (*models.TechniqueAlert, error) {
	return nil, nil
}

type fakeMeasurementReader struct {
	byID map[string]models.Measurement
}

func (f *fakeMeasurementReader) Upsert(ctx context.Context, m models.Measurement) (*measurement.UpsertResult, error) {
	return nil, nil
}

func (f *fakeMeasurementReader) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeMeasurementReader) GetByKey(ctx context.Context, key models.NaturalKey) (*models.Measurement, error) {
	return nil, nil
}

func (f *fakeMeasurementReader) ListForComponent(ctx context.Context, unitID, componentID string, from, to time.Time) ([]models.Measurement, error) {
	return nil, nil
}

type harness struct {
	svc      *Service
	comments *fakeCommentRepo
	evidence *fakeEvidenceRepo
}

func newHarness() *harness {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	comments := newFakeCommentRepo()
	comments.byID["comment-1"] = models.AIComment{
		ID: "comment-1", CaseID: "case-1", CommentType: "diagnosis",
		CommentText: "iron trending upward", Active: true,
	}

	ev := &fakeEvidenceRepo{}
	cases := &fakeCaseRepo{
		byID:    map[string]models.AlertCase{"case-1": {ID: "case-1", Status: models.CaseNew}},
		byAlert: map[string]models.AlertCase{"alert-1": {ID: "case-1", Status: models.CaseNew}},
	}
	alerts := &fakeAlertRepo{byID: map[string]models.TechniqueAlert{
		"alert-1": {ID: "alert-1", TechniqueCode: models.TechniqueOil},
	}}
	measurements := &fakeMeasurementReader{byID: map[string]models.Measurement{
		"m-1": {ID: "m-1", TechniqueCode: models.TechniqueOil},
	}}

	return &harness{
		svc:      NewService(comments, ev, cases, alerts, measurements, nil, logger),
		comments: comments,
		evidence: ev,
	}
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }

func TestLinkEvidence(t *testing.T) {
	ctx := context.Background()

	t.Run("no reference at all is rejected", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{CommentID: "comment-1"})
		var missing *models.MissingReferenceError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "comment-1", missing.CommentID)
		assert.Empty(t, h.evidence.links)
	})

	t.Run("dangling alert reference is rejected", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{
			CommentID: "comment-1",
			AlertID:   strPtr("alert-gone"),
		})
		var missing *models.MissingReferenceError
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("dangling measurement reference is rejected", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{
			CommentID:     "comment-1",
			MeasurementID: strPtr("m-gone"),
		})
		var missing *models.MissingReferenceError
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("relevance outside the scale is rejected", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{
			CommentID: "comment-1",
			AlertID:   strPtr("alert-1"),
			Relevance: intPtr(4),
		})
		var invalid *models.InvalidRelevanceError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 4, invalid.Relevance)
	})

	t.Run("claim span must fit the comment text", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{
			CommentID: "comment-1",
			AlertID:   strPtr("alert-1"),
			Claim:     &models.ClaimSpan{Start: 0, End: 9999},
		})
		require.Error(t, err)
		assert.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("valid link persists with span and relevance", func(t *testing.T) {
		h := newHarness()

		link, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{
			CommentID: "comment-1",
			AlertID:   strPtr("alert-1"),
			Relevance: intPtr(2),
			Claim:     &models.ClaimSpan{Start: 0, End: 4},
		})
		require.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, "comment-1", link.CommentID)
		require.NotNil(t, link.ClaimEnd)
		assert.Equal(t, 4, *link.ClaimEnd)
		assert.Len(t, h.evidence.links, 1)
	})

	t.Run("the same alert may be cited twice", func(t *testing.T) {
		h := newHarness()

		for i := 0; i < 2; i++ {
			_, err := h.svc.LinkEvidence(ctx, models.LinkEvidenceRequest{
				CommentID: "comment-1",
				AlertID:   strPtr("alert-1"),
			})
			require.NoError(t, err)
		}
		assert.Len(t, h.evidence.links, 2)
	})
}

func TestRegisterComment(t *testing.T) {
	ctx := context.Background()

	t.Run("alert reference resolves to the live case", func(t *testing.T) {
		h := newHarness()

		created, err := h.svc.RegisterComment(ctx, models.CreateCommentRequest{
			AlertID:     "alert-1",
			CommentType: "prognosis",
			CommentText: "bearing wear progressing",
		})
		require.NoError(t, err)
		assert.Equal(t, "case-1", created.CaseID)
	})

	t.Run("identical redelivery returns the existing comment", func(t *testing.T) {
		h := newHarness()
		text := "iron trending upward over three samples"
		h.comments.byHash["case-1/"+contenthash.Text(text)] = models.AIComment{
			ID: "comment-existing", CaseID: "case-1",
		}

		created, err := h.svc.RegisterComment(ctx, models.CreateCommentRequest{
			CaseID:      "case-1",
			CommentType: "diagnosis",
			CommentText: "  iron trending   upward over three samples ",
		})
		require.NoError(t, err)
		assert.Equal(t, "comment-existing", created.ID)
		assert.Empty(t, h.comments.created)
	})

	t.Run("new text supersedes prior active comments of the same type", func(t *testing.T) {
		h := newHarness()

		created, err := h.svc.RegisterComment(ctx, models.CreateCommentRequest{
			CaseID:      "case-1",
			CommentType: "diagnosis",
			CommentText: "revised assessment",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Contains(t, h.comments.inactive, "comment-1")
	})

	t.Run("unknown case is a 404", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.RegisterComment(ctx, models.CreateCommentRequest{
			CaseID:      "case-gone",
			CommentType: "diagnosis",
			CommentText: "text",
		})
		require.Error(t, err)
		assert.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}
