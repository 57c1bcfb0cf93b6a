package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/cache"
	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/export"
	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/notification"
	"github.com/imsulglobal/community-portal/internal/repository"
)

type positionRepository interface {
	Create(ctx context.Context, p *model.Position) error
	ListOpen(ctx context.Context) ([]model.Position, error)
	ListAll(ctx context.Context, status model.PositionStatus) ([]model.Position, error)
	Featured(ctx context.Context, limit int) ([]model.Position, error)
	GetByID(ctx context.Context, id string) (*model.Position, error)
	Update(ctx context.Context, p *model.Position) error
	Delete(ctx context.Context, id string) error
	Apply(ctx context.Context, positionID string, req model.ApplyRequest) (*model.Application, *model.Position, error)
	ListApplications(ctx context.Context, positionID string, status capacity.ApplicationStatus) ([]model.Application, error)
	TransitionApplication(ctx context.Context, applicationID string, to capacity.ApplicationStatus) (*model.Application, *model.Position, capacity.MailKind, error)
	DeleteApplication(ctx context.Context, applicationID string) error
	Close(ctx context.Context, id string) (*model.Position, error)
	Reopen(ctx context.Context, id string) (*model.Position, error)
}

// VolunteerService orchestrates volunteer position and application
// operations. It mirrors WorkshopService.
type VolunteerService struct {
	repo     positionRepository
	notify   notifier
	cache    *cache.Cache
	validate *validator.Validate
	log      *zap.Logger
}

// NewVolunteerService constructs a VolunteerService.
func NewVolunteerService(repo positionRepository, notify notifier, c *cache.Cache, validate *validator.Validate, log *zap.Logger) *VolunteerService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VolunteerService{repo: repo, notify: notify, cache: c, validate: validate, log: log}
}

func (s *VolunteerService) invalidateListings(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKeyPositions, cacheKeyHome)
	}
}

// Create validates and persists a new position.
func (s *VolunteerService) Create(ctx context.Context, req model.CreatePositionRequest) (*model.Position, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	p := &model.Position{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Requirements:  req.Requirements,
		Kind:          model.PositionKind(req.Kind),
		Location:      req.Location,
		WeeklyHours:   req.WeeklyHours,
		MinCommitment: req.MinCommitment,
		CapacityTotal: req.CapacityTotal,
		CapacityUsed:  0,
		Status:        model.PositionOpen,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return p, nil
}

// ListPublic returns open positions, served from cache when possible.
func (s *VolunteerService) ListPublic(ctx context.Context) ([]model.Position, error) {
	var cached []model.Position
	if s.cache != nil && s.cache.GetJSON(ctx, cacheKeyPositions, &cached) {
		return cached, nil
	}
	positions, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, cacheKeyPositions, positions)
	}
	return positions, nil
}

// ListAdmin returns all positions, optionally filtered by status.
func (s *VolunteerService) ListAdmin(ctx context.Context, status string) ([]model.Position, error) {
	return s.repo.ListAll(ctx, model.PositionStatus(status))
}

// Get returns a single position by ID.
func (s *VolunteerService) Get(ctx context.Context, id string) (*model.Position, error) {
	if id == "" {
		return nil, repository.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Update validates and applies detail edits to a position.
func (s *VolunteerService) Update(ctx context.Context, id string, req model.UpdatePositionRequest) (*model.Position, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(req.Title)
	p.Description = req.Description
	p.Requirements = req.Requirements
	p.Kind = model.PositionKind(req.Kind)
	p.Location = req.Location
	p.WeeklyHours = req.WeeklyHours
	p.MinCommitment = req.MinCommitment
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return p, nil
}

// Delete removes a position and, via cascade, its applications.
func (s *VolunteerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateListings(ctx)
	return nil
}

// Apply handles a public volunteer application, queuing the acknowledgment
// mail after the slot reservation commits.
func (s *VolunteerService) Apply(ctx context.Context, positionID string, req model.ApplyRequest) (*model.Application, *model.Position, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, err
	}
	if positionID == "" {
		return nil, nil, repository.ErrNotFound
	}

	a, p, err := s.repo.Apply(ctx, positionID, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) ||
			errors.Is(err, repository.ErrOfferingNotOpen) ||
			errors.Is(err, repository.ErrDuplicateApplicant) ||
			errors.Is(err, capacity.ErrExhausted) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("apply to position: %w", err)
	}

	s.invalidateListings(ctx)
	if s.notify != nil {
		s.notify.Enqueue(notification.Intent{
			Recipient: a.Email,
			Name:      a.Name,
			Kind:      capacity.MailReceived,
			Offering:  p.Title,
		})
	}
	return a, p, nil
}

// ListApplications returns a position's applications for staff.
func (s *VolunteerService) ListApplications(ctx context.Context, positionID, status string) ([]model.Application, error) {
	if _, err := s.repo.GetByID(ctx, positionID); err != nil {
		return nil, err
	}
	st := capacity.ApplicationStatus(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.repo.ListApplications(ctx, positionID, st)
}

// Transition applies a staff status change to one application.
func (s *VolunteerService) Transition(ctx context.Context, applicationID, status string) (*model.Application, *model.Position, error) {
	to := capacity.ApplicationStatus(status)
	if !to.Valid() {
		return nil, nil, capacity.ErrInvalidTransition
	}
	a, p, mail, err := s.repo.TransitionApplication(ctx, applicationID, to)
	if err != nil {
		return nil, nil, err
	}
	s.invalidateListings(ctx)
	if mail != capacity.MailNone && s.notify != nil {
		s.notify.Enqueue(notification.Intent{
			Recipient: a.Email,
			Name:      a.Name,
			Kind:      mail,
			Offering:  p.Title,
		})
	}
	return a, p, nil
}

// BulkTransition applies the same status change to several applications,
// each through the transition table individually.
func (s *VolunteerService) BulkTransition(ctx context.Context, req model.BulkTransitionRequest) []model.BulkTransitionResult {
	results := make([]model.BulkTransitionResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		_, _, err := s.Transition(ctx, id, req.Status)
		res := model.BulkTransitionResult{ID: id, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// DeleteApplication removes a record, releasing its slot when occupied.
func (s *VolunteerService) DeleteApplication(ctx context.Context, applicationID string) error {
	if err := s.repo.DeleteApplication(ctx, applicationID); err != nil {
		return err
	}
	s.invalidateListings(ctx)
	return nil
}

// Close force-closes a position.
func (s *VolunteerService) Close(ctx context.Context, id string) (*model.Position, error) {
	p, err := s.repo.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return p, nil
}

// Reopen resets a closed position to empty and open.
func (s *VolunteerService) Reopen(ctx context.Context, id string) (*model.Position, error) {
	p, err := s.repo.Reopen(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return p, nil
}

// Featured returns the latest open positions for the home page.
func (s *VolunteerService) Featured(ctx context.Context, limit int) ([]model.Position, error) {
	return s.repo.Featured(ctx, limit)
}

// ExportApplications renders a position's application list as CSV or PDF.
func (s *VolunteerService) ExportApplications(ctx context.Context, positionID, format string) ([]byte, string, error) {
	p, err := s.repo.GetByID(ctx, positionID)
	if err != nil {
		return nil, "", err
	}
	applications, err := s.repo.ListApplications(ctx, positionID, "")
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Applications - %s", p.Title),
		Headers: []string{"Name", "Email", "Phone", "Profession", "Status", "Submitted"},
	}
	for _, a := range applications {
		data.Rows = append(data.Rows, []string{
			a.Name, a.Email, a.Phone, a.Profession, string(a.Status),
			a.SubmittedAt.Format(time.RFC3339),
		})
	}
	return renderDataset(data, format)
}
