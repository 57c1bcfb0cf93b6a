// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. Services classify
// repository errors, keep the public listing cache fresh, and queue
// notification intents after state changes commit.
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

// Cache keys for public listings.
const (
	cacheKeyWorkshops = "public:workshops"
	cacheKeyPositions = "public:positions"
	cacheKeyArticles  = "public:articles"
	cacheKeyHome      = "public:home"
)

const dateLayout = "2006-01-02"

// notifier is the slice of the dispatcher the services need.
type notifier interface {
	Enqueue(notification.Intent)
}

type workshopRepository interface {
	Create(ctx context.Context, w *model.Workshop) error
	ListAvailable(ctx context.Context) ([]model.Workshop, error)
	ListAll(ctx context.Context, status model.WorkshopStatus) ([]model.Workshop, error)
	Featured(ctx context.Context, limit int) ([]model.Workshop, error)
	GetByID(ctx context.Context, id string) (*model.Workshop, error)
	Update(ctx context.Context, w *model.Workshop) error
	Delete(ctx context.Context, id string) error
	Enroll(ctx context.Context, workshopID string, req model.EnrollRequest) (*model.Enrollment, *model.Workshop, error)
	ListEnrollments(ctx context.Context, workshopID string, status capacity.ApplicationStatus) ([]model.Enrollment, error)
	TransitionEnrollment(ctx context.Context, enrollmentID string, to capacity.ApplicationStatus) (*model.Enrollment, *model.Workshop, capacity.MailKind, error)
	DeleteEnrollment(ctx context.Context, enrollmentID string) error
	Close(ctx context.Context, id string) (*model.Workshop, error)
	Reopen(ctx context.Context, id string) (*model.Workshop, error)
}

// WorkshopService orchestrates workshop and enrollment operations.
type WorkshopService struct {
	repo     workshopRepository
	notify   notifier
	cache    *cache.Cache
	validate *validator.Validate
	log      *zap.Logger
}

// NewWorkshopService constructs a WorkshopService.
func NewWorkshopService(repo workshopRepository, notify notifier, c *cache.Cache, validate *validator.Validate, log *zap.Logger) *WorkshopService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkshopService{repo: repo, notify: notify, cache: c, validate: validate, log: log}
}

func (s *WorkshopService) invalidateListings(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKeyWorkshops, cacheKeyHome)
	}
}

// Create validates and persists a new workshop.
func (s *WorkshopService) Create(ctx context.Context, req model.CreateWorkshopRequest) (*model.Workshop, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	startsOn, err := time.Parse(dateLayout, req.StartsOn)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_on: %w", err)
	}
	endsOn, err := time.Parse(dateLayout, req.EndsOn)
	if err != nil {
		return nil, fmt.Errorf("invalid ends_on: %w", err)
	}
	if endsOn.Before(startsOn) {
		return nil, fmt.Errorf("ends_on must not be before starts_on")
	}

	status := model.WorkshopAvailable
	if req.ComingSoon {
		status = model.WorkshopComingSoon
	}
	w := &model.Workshop{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Level:         model.WorkshopLevel(req.Level),
		StartsOn:      startsOn,
		EndsOn:        endsOn,
		TotalHours:    req.TotalHours,
		SessionCount:  req.SessionCount,
		Price:         req.Price,
		Free:          req.Free,
		CapacityTotal: req.CapacityTotal,
		CapacityUsed:  0,
		Status:        status,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return w, nil
}

// ListPublic returns workshops open for enrollment, served from cache when
// possible.
func (s *WorkshopService) ListPublic(ctx context.Context) ([]model.Workshop, error) {
	var cached []model.Workshop
	if s.cache != nil && s.cache.GetJSON(ctx, cacheKeyWorkshops, &cached) {
		return cached, nil
	}
	workshops, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, cacheKeyWorkshops, workshops)
	}
	return workshops, nil
}

// ListAdmin returns all workshops, optionally filtered by status.
func (s *WorkshopService) ListAdmin(ctx context.Context, status string) ([]model.Workshop, error) {
	return s.repo.ListAll(ctx, model.WorkshopStatus(status))
}

// Get returns a single workshop by ID.
func (s *WorkshopService) Get(ctx context.Context, id string) (*model.Workshop, error) {
	if id == "" {
		return nil, repository.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Update validates and applies detail edits to a workshop.
func (s *WorkshopService) Update(ctx context.Context, id string, req model.UpdateWorkshopRequest) (*model.Workshop, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	startsOn, err := time.Parse(dateLayout, req.StartsOn)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_on: %w", err)
	}
	endsOn, err := time.Parse(dateLayout, req.EndsOn)
	if err != nil {
		return nil, fmt.Errorf("invalid ends_on: %w", err)
	}
	if endsOn.Before(startsOn) {
		return nil, fmt.Errorf("ends_on must not be before starts_on")
	}

	w.Title = strings.TrimSpace(req.Title)
	w.Description = req.Description
	w.Level = model.WorkshopLevel(req.Level)
	w.StartsOn = startsOn
	w.EndsOn = endsOn
	w.TotalHours = req.TotalHours
	w.SessionCount = req.SessionCount
	w.Price = req.Price
	w.Free = req.Free
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return w, nil
}

// Delete removes a workshop and, via cascade, its enrollments.
func (s *WorkshopService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateListings(ctx)
	return nil
}

// Enroll handles a public enrollment submission. The repository guarantees
// atomicity of the seat reservation; this layer normalizes input, classifies
// errors, and queues the confirmation mail after the commit.
func (s *WorkshopService) Enroll(ctx context.Context, workshopID string, req model.EnrollRequest) (*model.Enrollment, *model.Workshop, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, err
	}
	if workshopID == "" {
		return nil, nil, repository.ErrNotFound
	}

	e, w, err := s.repo.Enroll(ctx, workshopID, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) ||
			errors.Is(err, repository.ErrOfferingNotOpen) ||
			errors.Is(err, repository.ErrDuplicateApplicant) ||
			errors.Is(err, capacity.ErrExhausted) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("enroll in workshop: %w", err)
	}

	s.invalidateListings(ctx)
	if s.notify != nil {
		s.notify.Enqueue(notification.Intent{
			Recipient: e.Email,
			Name:      e.Name,
			Kind:      capacity.MailReceived,
			Offering:  w.Title,
			Details: map[string]string{
				"Starts":   w.StartsOn.Format("02/01/2006"),
				"Ends":     w.EndsOn.Format("02/01/2006"),
				"Hours":    fmt.Sprintf("%dh", w.TotalHours),
				"Sessions": fmt.Sprintf("%d", w.SessionCount),
			},
		})
	}
	return e, w, nil
}

// ListEnrollments returns a workshop's enrollments for staff.
func (s *WorkshopService) ListEnrollments(ctx context.Context, workshopID, status string) ([]model.Enrollment, error) {
	if _, err := s.repo.GetByID(ctx, workshopID); err != nil {
		return nil, err
	}
	st := capacity.ApplicationStatus(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.repo.ListEnrollments(ctx, workshopID, st)
}

// Transition applies a staff status change to one enrollment and queues the
// matching mail, if the transition defines one.
func (s *WorkshopService) Transition(ctx context.Context, enrollmentID, status string) (*model.Enrollment, *model.Workshop, error) {
	to := capacity.ApplicationStatus(status)
	if !to.Valid() {
		return nil, nil, capacity.ErrInvalidTransition
	}
	e, w, mail, err := s.repo.TransitionEnrollment(ctx, enrollmentID, to)
	if err != nil {
		return nil, nil, err
	}
	s.invalidateListings(ctx)
	if mail != capacity.MailNone && s.notify != nil {
		s.notify.Enqueue(notification.Intent{
			Recipient: e.Email,
			Name:      e.Name,
			Kind:      mail,
			Offering:  w.Title,
		})
	}
	return e, w, nil
}

// BulkTransition applies the same status change to several enrollments, one
// record at a time so each goes through the transition table and capacity
// rules. A failed record never blocks the rest.
func (s *WorkshopService) BulkTransition(ctx context.Context, req model.BulkTransitionRequest) []model.BulkTransitionResult {
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

// DeleteEnrollment removes a record, releasing its seat when occupied.
func (s *WorkshopService) DeleteEnrollment(ctx context.Context, enrollmentID string) error {
	if err := s.repo.DeleteEnrollment(ctx, enrollmentID); err != nil {
		return err
	}
	s.invalidateListings(ctx)
	return nil
}

// Close force-closes a workshop.
func (s *WorkshopService) Close(ctx context.Context, id string) (*model.Workshop, error) {
	w, err := s.repo.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return w, nil
}

// Reopen resets a closed workshop to empty and available.
func (s *WorkshopService) Reopen(ctx context.Context, id string) (*model.Workshop, error) {
	w, err := s.repo.Reopen(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return w, nil
}

// Featured returns the next available workshops for the home page.
func (s *WorkshopService) Featured(ctx context.Context, limit int) ([]model.Workshop, error) {
	return s.repo.Featured(ctx, limit)
}

// ExportEnrollments renders a workshop's enrollment list as CSV or PDF.
func (s *WorkshopService) ExportEnrollments(ctx context.Context, workshopID, format string) ([]byte, string, error) {
	w, err := s.repo.GetByID(ctx, workshopID)
	if err != nil {
		return nil, "", err
	}
	enrollments, err := s.repo.ListEnrollments(ctx, workshopID, "")
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Enrollments - %s", w.Title),
		Headers: []string{"Name", "Email", "Phone", "Experience", "Status", "Submitted"},
	}
	for _, e := range enrollments {
		data.Rows = append(data.Rows, []string{
			e.Name, e.Email, e.Phone, string(e.Experience), string(e.Status),
			e.SubmittedAt.Format(time.RFC3339),
		})
	}
	return renderDataset(data, format)
}

// renderDataset dispatches on export format, returning content and MIME type.
func renderDataset(data export.Dataset, format string) ([]byte, string, error) {
	switch format {
	case "", "csv":
		out, err := export.CSV(data)
		return out, "text/csv", err
	case "pdf":
		out, err := export.PDF(data)
		return out, "application/pdf", err
	}
	return nil, "", fmt.Errorf("unknown export format %q", format)
}
