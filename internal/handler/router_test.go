package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/config"
	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/repository"
	"github.com/imsulglobal/community-portal/internal/service"
)

// memWorkshopRepo backs the router test with an in-memory store. A single
// mutex stands in for the row locks the SQL repository takes, which gives the
// same serialization the real transactions provide.
type memWorkshopRepo struct {
	mu          sync.Mutex
	workshops   map[string]*model.Workshop
	enrollments map[string]*model.Enrollment
}

func newMemWorkshopRepo(w *model.Workshop) *memWorkshopRepo {
	return &memWorkshopRepo{
		workshops:   map[string]*model.Workshop{w.ID: w},
		enrollments: make(map[string]*model.Enrollment),
	}
}

func (r *memWorkshopRepo) Create(_ context.Context, w *model.Workshop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uuid.New().String()
	r.workshops[w.ID] = w
	return nil
}

func (r *memWorkshopRepo) ListAvailable(context.Context) ([]model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Workshop{}
	for _, w := range r.workshops {
		if w.Status == model.WorkshopAvailable {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *memWorkshopRepo) ListAll(context.Context, model.WorkshopStatus) ([]model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Workshop{}
	for _, w := range r.workshops {
		out = append(out, *w)
	}
	return out, nil
}

func (r *memWorkshopRepo) Featured(ctx context.Context, limit int) ([]model.Workshop, error) {
	out, _ := r.ListAvailable(ctx)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memWorkshopRepo) GetByID(_ context.Context, id string) (*model.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *memWorkshopRepo) Update(_ context.Context, w *model.Workshop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.workshops[w.ID] = &cp
	return nil
}

func (r *memWorkshopRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workshops, id)
	return nil
}

func (r *memWorkshopRepo) Enroll(_ context.Context, workshopID string, req model.EnrollRequest) (*model.Enrollment, *model.Workshop, error) {
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
		ID:         uuid.New().String(),
		WorkshopID: workshopID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Experience: model.Experience(req.Experience),
		Status:     capacity.StatusPending,
	}
	r.enrollments[e.ID] = e
	wc, ec := *w, *e
	return &ec, &wc, nil
}

func (r *memWorkshopRepo) ListEnrollments(_ context.Context, workshopID string, status capacity.ApplicationStatus) ([]model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Enrollment{}
	for _, e := range r.enrollments {
		if e.WorkshopID == workshopID && (status == "" || e.Status == status) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memWorkshopRepo) TransitionEnrollment(_ context.Context, enrollmentID string, to capacity.ApplicationStatus) (*model.Enrollment, *model.Workshop, capacity.MailKind, error) {
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

func (r *memWorkshopRepo) DeleteEnrollment(_ context.Context, enrollmentID string) error {
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

func (r *memWorkshopRepo) Close(_ context.Context, id string) (*model.Workshop, error) {
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

func (r *memWorkshopRepo) Reopen(_ context.Context, id string) (*model.Workshop, error) {
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

func testRouter(t *testing.T, repo *memWorkshopRepo) (http.Handler, string) {
	t.Helper()
	auth := staffAuth(t)

	router := NewRouter(&config.Config{}, Handlers{
		Workshops:  NewWorkshopHandler(service.NewWorkshopService(repo, nil, nil, nil, nil)),
		Volunteers: NewVolunteerHandler(nil),
		Articles:   NewArticleHandler(nil),
		Newsletter: NewNewsletterHandler(nil),
		Home:       NewHomeHandler(nil),
		Auth:       NewAuthHandler(auth),
		AuthSvc:    auth,
	}, zap.NewNop())

	token, err := auth.Login("staff@sulglobal.org", "secret")
	require.NoError(t, err)
	return router, token
}

func enrollBody(email string) string {
	return fmt.Sprintf(`{"name":"Maria Silva","email":%q,"phone":"+5551999990000","experience":"none"}`, email)
}

func TestRouterEnrollFlow(t *testing.T) {
	workshop := &model.Workshop{
		ID:            uuid.New().String(),
		Title:         "Digital Literacy",
		Level:         model.LevelBeginner,
		CapacityTotal: 1,
		Status:        model.WorkshopAvailable,
	}
	router, token := testRouter(t, newMemWorkshopRepo(workshop))

	do := func(method, path, body, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/workshops", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// First enrollment takes the only seat.
	rec = do(http.MethodPost, "/workshops/"+workshop.ID+"/enroll", enrollBody("maria@example.com"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Enrollment model.Enrollment `json:"enrollment"`
		Workshop   model.Workshop   `json:"workshop"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.WorkshopSoldOut, created.Workshop.Status)

	// Same email again is a conflict, as is any enrollment while sold out.
	rec = do(http.MethodPost, "/workshops/"+workshop.ID+"/enroll", enrollBody("maria@example.com"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(http.MethodPost, "/workshops/"+workshop.ID+"/enroll", enrollBody("other@example.com"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodPost, "/workshops/"+uuid.New().String()+"/enroll", enrollBody("x@example.com"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Admin surface is locked without a token.
	rec = do(http.MethodGet, "/admin/workshops", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(http.MethodGet, "/admin/workshops", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Staff accepts the enrollment; repeating the decision is a no-op.
	rec = do(http.MethodPatch, "/admin/enrollments/"+created.Enrollment.ID+"/status", `{"status":"accepted"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(http.MethodPatch, "/admin/enrollments/"+created.Enrollment.ID+"/status", `{"status":"accepted"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "status unchanged")

	// accepted back to pending is not a legal move.
	rec = do(http.MethodPatch, "/admin/enrollments/"+created.Enrollment.ID+"/status", `{"status":"pending"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Rejecting frees the seat and the workshop reopens to the public.
	rec = do(http.MethodPatch, "/admin/enrollments/"+created.Enrollment.ID+"/status", `{"status":"rejected"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(http.MethodPost, "/workshops/"+workshop.ID+"/enroll", enrollBody("other@example.com"), "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Export rejects unknown formats and defaults to CSV.
	rec = do(http.MethodGet, "/admin/workshops/"+workshop.ID+"/enrollments/export?format=xlsx", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(http.MethodGet, "/admin/workshops/"+workshop.ID+"/enrollments/export", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rec = do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
