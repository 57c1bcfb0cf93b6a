package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/model"
)

const workshopColumns = `id, title, description, level, starts_on, ends_on,
	 total_hours, session_count, price, free,
	 capacity_total, capacity_used, status, created_at, updated_at`

const enrollmentColumns = `id, workshop_id, name, email, phone, age,
	 experience, motivation, status, submitted_at`

// WorkshopRepository handles persistence for workshops and their
// enrollments. All capacity mutations lock the workshop row first and go
// through the capacity package.
type WorkshopRepository struct {
	db DB
}

// NewWorkshopRepository constructs a WorkshopRepository.
func NewWorkshopRepository(db DB) *WorkshopRepository {
	return &WorkshopRepository{db: db}
}

// Create inserts a new workshop.
func (r *WorkshopRepository) Create(ctx context.Context, w *model.Workshop) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO workshops (id, title, description, level, starts_on, ends_on,
		  total_hours, session_count, price, free,
		  capacity_total, capacity_used, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		w.ID, w.Title, w.Description, w.Level, w.StartsOn, w.EndsOn,
		w.TotalHours, w.SessionCount, w.Price, w.Free,
		w.CapacityTotal, w.CapacityUsed, w.Status, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workshop: %w", err)
	}
	return nil
}

func scanWorkshop(row pgx.Row, w *model.Workshop) error {
	return row.Scan(
		&w.ID, &w.Title, &w.Description, &w.Level, &w.StartsOn, &w.EndsOn,
		&w.TotalHours, &w.SessionCount, &w.Price, &w.Free,
		&w.CapacityTotal, &w.CapacityUsed, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
}

func (r *WorkshopRepository) list(ctx context.Context, query string, args ...any) ([]model.Workshop, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer rows.Close()

	var workshops []model.Workshop
	for rows.Next() {
		var w model.Workshop
		if err := scanWorkshop(rows, &w); err != nil {
			return nil, fmt.Errorf("scan workshop: %w", err)
		}
		workshops = append(workshops, w)
	}
	return workshops, rows.Err()
}

// ListAvailable returns workshops open for enrollment, soonest first.
func (r *WorkshopRepository) ListAvailable(ctx context.Context) ([]model.Workshop, error) {
	return r.list(ctx,
		`SELECT `+workshopColumns+` FROM workshops
		 WHERE status = $1 ORDER BY starts_on ASC`,
		model.WorkshopAvailable,
	)
}

// ListAll returns every workshop, optionally filtered by status, newest
// first. Used by the staff views.
func (r *WorkshopRepository) ListAll(ctx context.Context, status model.WorkshopStatus) ([]model.Workshop, error) {
	if status != "" {
		return r.list(ctx,
			`SELECT `+workshopColumns+` FROM workshops
			 WHERE status = $1 ORDER BY created_at DESC`,
			status,
		)
	}
	return r.list(ctx,
		`SELECT ` + workshopColumns + ` FROM workshops ORDER BY created_at DESC`,
	)
}

// Featured returns the next few available workshops for the home page.
func (r *WorkshopRepository) Featured(ctx context.Context, limit int) ([]model.Workshop, error) {
	return r.list(ctx,
		`SELECT `+workshopColumns+` FROM workshops
		 WHERE status = $1 ORDER BY starts_on ASC LIMIT $2`,
		model.WorkshopAvailable, limit,
	)
}

// GetByID returns a single workshop or ErrNotFound.
func (r *WorkshopRepository) GetByID(ctx context.Context, id string) (*model.Workshop, error) {
	var w model.Workshop
	err := scanWorkshop(r.db.QueryRow(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id,
	), &w)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get workshop: %w", err)
	}
	return &w, nil
}

// Update edits workshop details. Capacity counters and status are owned by
// the ledger paths and deliberately absent here.
func (r *WorkshopRepository) Update(ctx context.Context, w *model.Workshop) error {
	w.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE workshops SET title = $2, description = $3, level = $4,
		  starts_on = $5, ends_on = $6, total_hours = $7, session_count = $8,
		  price = $9, free = $10, updated_at = $11
		 WHERE id = $1`,
		w.ID, w.Title, w.Description, w.Level, w.StartsOn, w.EndsOn,
		w.TotalHours, w.SessionCount, w.Price, w.Free, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workshop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a workshop. Enrollments go with it via ON DELETE CASCADE.
func (r *WorkshopRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workshops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workshop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// lockWorkshop loads a workshop inside tx holding an exclusive row lock.
// Any concurrent transaction touching the same workshop's capacity blocks
// here until this one commits or rolls back.
func lockWorkshop(ctx context.Context, tx pgx.Tx, id string) (*model.Workshop, error) {
	var w model.Workshop
	err := scanWorkshop(tx.QueryRow(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = $1 FOR UPDATE`, id,
	), &w)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock workshop row: %w", err)
	}
	return &w, nil
}

func storeWorkshopCapacity(ctx context.Context, tx pgx.Tx, w *model.Workshop) error {
	_, err := tx.Exec(ctx,
		`UPDATE workshops SET capacity_used = $2, status = $3, updated_at = $4 WHERE id = $1`,
		w.ID, w.CapacityUsed, w.Status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store workshop capacity: %w", err)
	}
	return nil
}

// Enroll performs a concurrency-safe enrollment: lock the workshop row,
// reject if the workshop is not open or the email already applied (any
// status), reserve a seat through the ledger, insert the enrollment, commit.
// On any failure nothing is persisted.
func (r *WorkshopRepository) Enroll(ctx context.Context, workshopID string, req model.EnrollRequest) (*model.Enrollment, *model.Workshop, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var w *model.Workshop
	if w, err = lockWorkshop(ctx, tx, workshopID); err != nil {
		return nil, nil, err
	}
	if w.Status != model.WorkshopAvailable {
		err = ErrOfferingNotOpen
		return nil, nil, err
	}

	var dup int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE workshop_id = $1 AND email = $2`,
		workshopID, req.Email,
	).Scan(&dup)
	if err != nil {
		return nil, nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dup > 0 {
		err = ErrDuplicateApplicant
		return nil, nil, err
	}

	snap := w.Snapshot()
	if err = snap.Reserve(); err != nil {
		return nil, nil, err
	}
	w.ApplySnapshot(snap)
	if err = storeWorkshopCapacity(ctx, tx, w); err != nil {
		return nil, nil, err
	}

	e := &model.Enrollment{
		ID:          uuid.New().String(),
		WorkshopID:  workshopID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Age:         req.Age,
		Experience:  model.Experience(req.Experience),
		Motivation:  req.Motivation,
		Status:      capacity.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO enrollments (id, workshop_id, name, email, phone, age,
		  experience, motivation, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.WorkshopID, e.Name, e.Email, e.Phone, e.Age,
		e.Experience, e.Motivation, e.Status, e.SubmittedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return e, w, nil
}

func scanEnrollment(row pgx.Row, e *model.Enrollment) error {
	return row.Scan(
		&e.ID, &e.WorkshopID, &e.Name, &e.Email, &e.Phone, &e.Age,
		&e.Experience, &e.Motivation, &e.Status, &e.SubmittedAt,
	)
}

// ListEnrollments returns enrollments for a workshop, optionally filtered by
// status, oldest first.
func (r *WorkshopRepository) ListEnrollments(ctx context.Context, workshopID string, status capacity.ApplicationStatus) ([]model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE workshop_id = $1`
	args := []any{workshopID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY submitted_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := scanEnrollment(rows, &e); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func lockEnrollment(ctx context.Context, tx pgx.Tx, id string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := scanEnrollment(tx.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id,
	), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock enrollment row: %w", err)
	}
	return &e, nil
}

// TransitionEnrollment applies a status change through the transition table:
// validate the change, run its capacity effect against the locked workshop
// row, persist both records atomically. The returned mail kind is dispatched
// by the caller after commit.
func (r *WorkshopRepository) TransitionEnrollment(ctx context.Context, enrollmentID string, to capacity.ApplicationStatus) (*model.Enrollment, *model.Workshop, capacity.MailKind, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, capacity.MailNone, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var e *model.Enrollment
	if e, err = lockEnrollment(ctx, tx, enrollmentID); err != nil {
		return nil, nil, capacity.MailNone, err
	}
	var w *model.Workshop
	if w, err = lockWorkshop(ctx, tx, e.WorkshopID); err != nil {
		return nil, nil, capacity.MailNone, err
	}

	var change capacity.Change
	if change, err = capacity.Transition(e.Status, to); err != nil {
		return nil, nil, capacity.MailNone, err
	}

	snap := w.Snapshot()
	if err = capacity.Apply(&snap, change.Effect); err != nil {
		return nil, nil, capacity.MailNone, err
	}
	w.ApplySnapshot(snap)
	if err = storeWorkshopCapacity(ctx, tx, w); err != nil {
		return nil, nil, capacity.MailNone, err
	}

	e.Status = to
	_, err = tx.Exec(ctx,
		`UPDATE enrollments SET status = $2 WHERE id = $1`, e.ID, e.Status,
	)
	if err != nil {
		return nil, nil, capacity.MailNone, fmt.Errorf("update enrollment status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, capacity.MailNone, fmt.Errorf("commit transaction: %w", err)
	}
	return e, w, change.Mail, nil
}

// DeleteEnrollment removes an enrollment, releasing its seat when the record
// was still occupying one.
func (r *WorkshopRepository) DeleteEnrollment(ctx context.Context, enrollmentID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var e *model.Enrollment
	if e, err = lockEnrollment(ctx, tx, enrollmentID); err != nil {
		return err
	}
	var w *model.Workshop
	if w, err = lockWorkshop(ctx, tx, e.WorkshopID); err != nil {
		return err
	}

	if eff := capacity.DeleteEffect(e.Status); eff != capacity.EffectNone {
		snap := w.Snapshot()
		_ = capacity.Apply(&snap, eff)
		w.ApplySnapshot(snap)
		if err = storeWorkshopCapacity(ctx, tx, w); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, e.ID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close force-closes a workshop regardless of current counts.
func (r *WorkshopRepository) Close(ctx context.Context, id string) (*model.Workshop, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var w *model.Workshop
	if w, err = lockWorkshop(ctx, tx, id); err != nil {
		return nil, err
	}
	snap := w.Snapshot()
	snap.ForceClose()
	w.ApplySnapshot(snap)
	if err = storeWorkshopCapacity(ctx, tx, w); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return w, nil
}

// Reopen resets a closed workshop to empty and available. It reports
// capacity.ErrNotClosed when the workshop was not closed.
func (r *WorkshopRepository) Reopen(ctx context.Context, id string) (*model.Workshop, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var w *model.Workshop
	if w, err = lockWorkshop(ctx, tx, id); err != nil {
		return nil, err
	}
	snap := w.Snapshot()
	if err = snap.ForceReopen(); err != nil {
		return nil, err
	}
	w.ApplySnapshot(snap)
	if err = storeWorkshopCapacity(ctx, tx, w); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return w, nil
}
