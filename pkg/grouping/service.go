package grouping

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/alertcase"
	"github.com/Ramsey-B/sage/internal/repositories/techniquealert"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Service groups technique alerts into alert cases
type Service struct {
	alerts        techniquealert.TechniqueAlertRepository
	cases         alertcase.AlertCaseRepository
	emitter       *events.Emitter
	defaultPolicy WindowPolicy
	logger        ectologger.Logger
}

// NewService creates a new grouping service
func NewService(alerts techniquealert.TechniqueAlertRepository, cases alertcase.AlertCaseRepository, emitter *events.Emitter, defaultPolicy WindowPolicy, logger ectologger.Logger) *Service {
	return &Service{
		alerts:        alerts,
		cases:         cases,
		emitter:       emitter,
		defaultPolicy: defaultPolicy,
		logger:        logger,
	}
}

// GroupCase groups the groupable alerts for a unit/component into one new
// case. Returns EmptyCaseError when no alert qualifies; an orphan case is
// never persisted.
func (s *Service) GroupCase(ctx context.Context, req models.GroupCaseRequest) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupingService.GroupCase")
	defer span.End()

	policy := s.defaultPolicy
	if req.WindowHours > 0 {
		policy = WindowPolicy{Window: time.Duration(req.WindowHours) * time.Hour}
	}
	if req.CalendarDay {
		policy = WindowPolicy{CalendarDay: true}
	}

	candidates, err := s.alerts.ListGroupable(ctx, req.UnitID, req.ComponentID)
	if err != nil {
		return nil, err
	}

	selected := SelectGroupable(candidates, policy)
	if len(selected) == 0 {
		return nil, &models.EmptyCaseError{UnitID: req.UnitID, ComponentID: req.ComponentID}
	}

	alertIDs := make([]string, 0, len(selected))
	for _, a := range selected {
		alertIDs = append(alertIDs, a.ID)
	}

	created, err := s.cases.CreateWithLinks(ctx, models.AlertCase{
		UnitID:      req.UnitID,
		ComponentID: req.ComponentID,
		TimeStart:   EarliestStart(selected),
		Label:       DeriveLabel(selected),
		Status:      models.CaseNew,
	}, alertIDs)
	if err != nil {
		return nil, err
	}

	created.Alerts = selected

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":      created.ID,
		"unit_id":      req.UnitID,
		"component_id": req.ComponentID,
		"label":        created.Label,
		"alert_count":  len(selected),
	}).Info("grouped alert case")

	if s.emitter != nil {
		if err := s.emitter.EmitCaseCreated(ctx, created); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("failed to emit case created event")
		}
	}

	return created, nil
}

// GetCase loads a case with its linked alerts
func (s *Service) GetCase(ctx context.Context, id string) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupingService.GetCase")
	defer span.End()

	c, err := s.cases.GetByID(ctx, id)
	if err != nil || c == nil {
		return c, err
	}

	alerts, err := s.alerts.ListForCase(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Alerts = alerts

	return c, nil
}

// AddAlert links another alert to an existing case, re-deriving the label and
// re-checking the time_start invariant.
func (s *Service) AddAlert(ctx context.Context, caseID, alertID string) (*models.AlertCase, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupingService.AddAlert")
	defer span.End()

	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fmt.Errorf("alert %s not found", alertID)
	}

	label := DeriveLabel(append(c.Alerts, *alert))

	updated, err := s.cases.LinkAlert(ctx, c, *alert, label)
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, updated.ID)
}
