package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/notification"
	"github.com/imsulglobal/community-portal/internal/repository"
)

// fakeNotifier records queued intents so tests can assert on mail side
// effects without a dispatcher.
type fakeNotifier struct {
	mu      sync.Mutex
	intents []notification.Intent
}

func (n *fakeNotifier) Enqueue(i notification.Intent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, i)
}

func (n *fakeNotifier) sent() []notification.Intent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Intent(nil), n.intents...)
}

// fakeWorkshopRepo is an in-memory workshopRepository. A single mutex stands
// in for the row locks the real repository takes, which is exactly the
// serialization the capacity rules assume.
type fakeWorkshopRepo struct {
	mu          sync.Mutex
	workshops   map[string]*model.Workshop
	enrollments map[string]*model.Enrollment
}

func newFakeWorkshopRepo() *fakeWorkshopRepo {
	return &fakeWorkshopRepo{
		workshops:   make(map[string]*model.Workshop),
		enrollments: make(map[string]*model.Enrollment),
	}
}

func (r *fakeWorkshopRepo) add(w *model.Workshop) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	r.workshops[w.ID] = w
}

func (r *fakeWorkshopRepo) Create(_ context.Context, w *model.Workshop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uuid.New().String()
	r.workshops[w.ID] = w
	return nil
}

func (r *fakeWorkshopRepo) ListAvailable(context.Context) ([]model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Workshop
	for _, w := range r.workshops {
		if w.Status == model.WorkshopAvailable {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakeWorkshopRepo) ListAll(context.Context, model.WorkshopStatus) ([]model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Workshop
	for _, w := range r.workshops {
		out = append(out, *w)
	}
	return out, nil
}

func (r *fakeWorkshopRepo) Featured(_ context.Context, limit int) ([]model.Workshop, error) {
	out, _ := r.ListAvailable(context.Background())
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeWorkshopRepo) GetByID(_ context.Context, id string) (*model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWorkshopRepo) Update(_ context.Context, w *model.Workshop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workshops[w.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *w
	r.workshops[w.ID] = &cp
	return nil
}

func (r *fakeWorkshopRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workshops[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.workshops, id)
	return nil
}

func (r *fakeWorkshopRepo) Enroll(_ context.Context, workshopID string, req model.EnrollRequest) (*model.Enrollment, *model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workshops[workshopID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	if w.Status != model.WorkshopAvailable {
		return nil, nil, repository.ErrOfferingNotOpen
	}
	for _, e := range r.enrollments {
		if e.WorkshopID == workshopID && e.Email == req.Email {
			return nil, nil, repository.ErrDuplicateApplicant
		}
	}
	snap := w.Snapshot()
	if err := snap.Reserve(); err != nil {
		return nil, nil, err
	}
	w.ApplySnapshot(snap)

	e := &model.Enrollment{
		ID:          uuid.New().String(),
		WorkshopID:  workshopID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Experience:  model.Experience(req.Experience),
		Status:      capacity.StatusPending,
		SubmittedAt: time.Now(),
	}
	r.enrollments[e.ID] = e
	wc, ec := *w, *e
	return &ec, &wc, nil
}

func (r *fakeWorkshopRepo) ListEnrollments(_ context.Context, workshopID string, status capacity.ApplicationStatus) ([]model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Enrollment
	for _, e := range r.enrollments {
		if e.WorkshopID == workshopID && (status == "" || e.Status == status) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeWorkshopRepo) TransitionEnrollment(_ context.Context, enrollmentID string, to capacity.ApplicationStatus) (*model.Enrollment, *model.Workshop, capacity.MailKind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return nil, nil, capacity.MailNone, repository.ErrNotFound
	}
	w := r.workshops[e.WorkshopID]

	ch, err := capacity.Transition(e.Status, to)
	if err != nil {
		return nil, nil, capacity.MailNone, err
	}
	snap := w.Snapshot()
	if err := capacity.Apply(&snap, ch.Effect); err != nil {
		return nil, nil, capacity.MailNone, err
	}
	w.ApplySnapshot(snap)
	e.Status = to
	wc, ec := *w, *e
	return &ec, &wc, ch.Mail, nil
}

func (r *fakeWorkshopRepo) DeleteEnrollment(_ context.Context, enrollmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return repository.ErrNotFound
	}
	w := r.workshops[e.WorkshopID]
	snap := w.Snapshot()
	if err := capacity.Apply(&snap, capacity.DeleteEffect(e.Status)); err != nil {
		return err
	}
	w.ApplySnapshot(snap)
	delete(r.enrollments, enrollmentID)
	return nil
}

func (r *fakeWorkshopRepo) Close(_ context.Context, id string) (*model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	snap := w.Snapshot()
	snap.ForceClose()
	w.ApplySnapshot(snap)
	cp := *w
	return &cp, nil
}

func (r *fakeWorkshopRepo) Reopen(_ context.Context, id string) (*model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	snap := w.Snapshot()
	if err := snap.ForceReopen(); err != nil {
		return nil, err
	}
	w.ApplySnapshot(snap)
	cp := *w
	return &cp, nil
}

func testWorkshop(capTotal int) *model.Workshop {
	return &model.Workshop{
		ID:            uuid.New().String(),
		Title:         "Digital Literacy",
		Description:   "Introductory course",
		Level:         model.LevelBeginner,
		StartsOn:      time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:        time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		TotalHours:    20,
		SessionCount:  8,
		Free:          true,
		CapacityTotal: capTotal,
		Status:        model.WorkshopAvailable,
	}
}

func enrollReq(email string) model.EnrollRequest {
	return model.EnrollRequest{
		Name:       "Maria Silva",
		Email:      email,
		Phone:      "+5551999990000",
		Experience: "none",
	}
}

func TestEnroll(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(2)
	repo.add(w)
	notify := &fakeNotifier{}
	svc := NewWorkshopService(repo, notify, nil, nil, nil)

	e, got, err := svc.Enroll(context.Background(), w.ID, enrollReq("Maria@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", e.Email, "email is normalized before storage")
	assert.Equal(t, capacity.StatusPending, e.Status)
	assert.Equal(t, 1, got.CapacityUsed)

	sent := notify.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, capacity.MailReceived, sent[0].Kind)
	assert.Equal(t, "maria@example.com", sent[0].Recipient)
	assert.Equal(t, w.Title, sent[0].Offering)
}

func TestEnrollDuplicate(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(5)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	_, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.ErrorIs(t, err, repository.ErrDuplicateApplicant)
}

func TestEnrollRejectedCannotResubmit(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(5)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	e, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Transition(context.Background(), e.ID, "rejected")
	require.NoError(t, err)

	// The record stays on file, so the address stays burned.
	_, _, err = svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.ErrorIs(t, err, repository.ErrDuplicateApplicant)
}

func TestEnrollNotOpen(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(5)
	w.Status = model.WorkshopComingSoon
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	_, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.ErrorIs(t, err, repository.ErrOfferingNotOpen)
}

func TestEnrollExhausted(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(1)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	_, got, err := svc.Enroll(context.Background(), w.ID, enrollReq("first@example.com"))
	require.NoError(t, err)
	assert.Equal(t, model.WorkshopSoldOut, got.Status)

	_, _, err = svc.Enroll(context.Background(), w.ID, enrollReq("second@example.com"))
	require.ErrorIs(t, err, capacity.ErrExhausted)
}

func TestEnrollValidation(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(5)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	req := enrollReq("not-an-email")
	_, _, err := svc.Enroll(context.Background(), w.ID, req)
	require.Error(t, err)

	req = enrollReq("ok@example.com")
	req.Experience = "expert"
	_, _, err = svc.Enroll(context.Background(), w.ID, req)
	require.Error(t, err)
}

// TestEnrollConcurrent hammers one small workshop from many goroutines and
// checks that exactly CapacityTotal submissions win.
func TestEnrollConcurrent(t *testing.T) {
	const seats = 5
	const attempts = 50

	repo := newFakeWorkshopRepo()
	w := testWorkshop(seats)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.Enroll(context.Background(), w.ID, enrollReq(fmt.Sprintf("person%d@example.com", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var won, exhausted int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, capacity.ErrExhausted):
			exhausted++
		}
	}
	assert.Equal(t, seats, won)
	assert.Equal(t, attempts-seats, exhausted)

	final, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, seats, final.CapacityUsed)
	assert.Equal(t, model.WorkshopSoldOut, final.Status)
}

func TestTransitionMails(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(2)
	repo.add(w)
	notify := &fakeNotifier{}
	svc := NewWorkshopService(repo, notify, nil, nil, nil)

	e, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	got, ws, err := svc.Transition(context.Background(), e.ID, "accepted")
	require.NoError(t, err)
	assert.Equal(t, capacity.StatusAccepted, got.Status)
	assert.Equal(t, 1, ws.CapacityUsed, "accepting keeps the seat")

	sent := notify.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, capacity.MailAccepted, sent[1].Kind)
}

func TestTransitionReleasesSeat(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(1)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	e, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	_, ws, err := svc.Transition(context.Background(), e.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, 0, ws.CapacityUsed)
	assert.Equal(t, model.WorkshopAvailable, ws.Status, "rejecting the only applicant reopens the workshop")
}

func TestTransitionInvalidStatus(t *testing.T) {
	svc := NewWorkshopService(newFakeWorkshopRepo(), &fakeNotifier{}, nil, nil, nil)
	_, _, err := svc.Transition(context.Background(), "whatever", "approved")
	require.ErrorIs(t, err, capacity.ErrInvalidTransition)
}

func TestBulkTransition(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(5)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	e1, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("a@example.com"))
	require.NoError(t, err)
	e2, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("b@example.com"))
	require.NoError(t, err)

	results := svc.BulkTransition(context.Background(), model.BulkTransitionRequest{
		IDs:    []string{e1.ID, e2.ID, "missing"},
		Status: "accepted",
	})
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.True(t, results[1].OK)
	assert.False(t, results[2].OK, "a missing record fails without blocking the rest")
	assert.NotEmpty(t, results[2].Error)
}

func TestDeleteEnrollmentReleasesSeat(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(1)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	e, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEnrollment(context.Background(), e.ID))

	// The seat and the address are both free again.
	_, _, err = svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)
}

func TestCloseAndReopen(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(10)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	_, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkshopEnded, closed.Status)
	assert.Equal(t, 0, closed.Remaining())

	_, _, err = svc.Enroll(context.Background(), w.ID, enrollReq("late@example.com"))
	require.ErrorIs(t, err, repository.ErrOfferingNotOpen)

	reopened, err := svc.Reopen(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkshopAvailable, reopened.Status)
	assert.Equal(t, 0, reopened.CapacityUsed)

	// Reopening an open workshop is refused.
	_, err = svc.Reopen(context.Background(), w.ID)
	require.ErrorIs(t, err, capacity.ErrNotClosed)
}

func TestCreateWorkshop(t *testing.T) {
	repo := newFakeWorkshopRepo()
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	req := model.CreateWorkshopRequest{
		Title:         "  Sewing Basics  ",
		Description:   "Hands-on introduction",
		Level:         "beginner",
		StartsOn:      "2026-10-01",
		EndsOn:        "2026-11-01",
		TotalHours:    20,
		SessionCount:  8,
		Free:          true,
		CapacityTotal: 15,
	}
	w, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Sewing Basics", w.Title)
	assert.Equal(t, model.WorkshopAvailable, w.Status)
	assert.Equal(t, 0, w.CapacityUsed)

	req.ComingSoon = true
	req.Title = "Announced Later"
	w, err = svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.WorkshopComingSoon, w.Status)

	req.EndsOn = "2026-09-01"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err, "ends_on before starts_on is rejected")
}

func TestExportEnrollmentsCSV(t *testing.T) {
	repo := newFakeWorkshopRepo()
	w := testWorkshop(5)
	repo.add(w)
	svc := NewWorkshopService(repo, &fakeNotifier{}, nil, nil, nil)

	_, _, err := svc.Enroll(context.Background(), w.ID, enrollReq("maria@example.com"))
	require.NoError(t, err)

	out, contentType, err := svc.ExportEnrollments(context.Background(), w.ID, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(out), "maria@example.com")
	assert.Contains(t, string(out), "Name,Email,Phone")

	_, _, err = svc.ExportEnrollments(context.Background(), w.ID, "xlsx")
	require.Error(t, err)
}
