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

const positionColumns = `id, title, description, requirements, kind, location,
	 weekly_hours, min_commitment,
	 capacity_total, capacity_used, status, created_at, updated_at`

const applicationColumns = `id, position_id, name, email, phone, age,
	 profession, experience, motivation, availability, status, submitted_at`

// PositionRepository handles persistence for volunteer positions and their
// applications. It mirrors WorkshopRepository: capacity mutations lock the
// position row and go through the capacity package.
type PositionRepository struct {
	db DB
}

// NewPositionRepository constructs a PositionRepository.
func NewPositionRepository(db DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new volunteer position.
func (r *PositionRepository) Create(ctx context.Context, p *model.Position) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO volunteer_positions (id, title, description, requirements,
		  kind, location, weekly_hours, min_commitment,
		  capacity_total, capacity_used, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.Title, p.Description, p.Requirements,
		p.Kind, p.Location, p.WeeklyHours, p.MinCommitment,
		p.CapacityTotal, p.CapacityUsed, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

func scanPosition(row pgx.Row, p *model.Position) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Requirements, &p.Kind, &p.Location,
		&p.WeeklyHours, &p.MinCommitment,
		&p.CapacityTotal, &p.CapacityUsed, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *PositionRepository) list(ctx context.Context, query string, args ...any) ([]model.Position, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		if err := scanPosition(rows, &p); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ListOpen returns positions accepting applications, newest first.
func (r *PositionRepository) ListOpen(ctx context.Context) ([]model.Position, error) {
	return r.list(ctx,
		`SELECT `+positionColumns+` FROM volunteer_positions
		 WHERE status = $1 ORDER BY created_at DESC`,
		model.PositionOpen,
	)
}

// ListAll returns every position, optionally filtered by status, newest
// first.
func (r *PositionRepository) ListAll(ctx context.Context, status model.PositionStatus) ([]model.Position, error) {
	if status != "" {
		return r.list(ctx,
			`SELECT `+positionColumns+` FROM volunteer_positions
			 WHERE status = $1 ORDER BY created_at DESC`,
			status,
		)
	}
	return r.list(ctx,
		`SELECT ` + positionColumns + ` FROM volunteer_positions ORDER BY created_at DESC`,
	)
}

// Featured returns the most recent open positions for the home page.
func (r *PositionRepository) Featured(ctx context.Context, limit int) ([]model.Position, error) {
	return r.list(ctx,
		`SELECT `+positionColumns+` FROM volunteer_positions
		 WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
		model.PositionOpen, limit,
	)
}

// GetByID returns a single position or ErrNotFound.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*model.Position, error) {
	var p model.Position
	err := scanPosition(r.db.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM volunteer_positions WHERE id = $1`, id,
	), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}

// Update edits position details; capacity counters and status stay with the
// ledger paths.
func (r *PositionRepository) Update(ctx context.Context, p *model.Position) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE volunteer_positions SET title = $2, description = $3,
		  requirements = $4, kind = $5, location = $6, weekly_hours = $7,
		  min_commitment = $8, updated_at = $9
		 WHERE id = $1`,
		p.ID, p.Title, p.Description, p.Requirements, p.Kind, p.Location,
		p.WeeklyHours, p.MinCommitment, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a position; applications cascade with it.
func (r *PositionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM volunteer_positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func lockPosition(ctx context.Context, tx pgx.Tx, id string) (*model.Position, error) {
	var p model.Position
	err := scanPosition(tx.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM volunteer_positions WHERE id = $1 FOR UPDATE`, id,
	), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock position row: %w", err)
	}
	return &p, nil
}

func storePositionCapacity(ctx context.Context, tx pgx.Tx, p *model.Position) error {
	_, err := tx.Exec(ctx,
		`UPDATE volunteer_positions SET capacity_used = $2, status = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.CapacityUsed, p.Status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store position capacity: %w", err)
	}
	return nil
}

// Apply performs a concurrency-safe volunteer application: lock the position
// row, reject when closed/paused or when the email already applied, reserve
// a slot, insert the application, commit.
func (r *PositionRepository) Apply(ctx context.Context, positionID string, req model.ApplyRequest) (*model.Application, *model.Position, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var p *model.Position
	if p, err = lockPosition(ctx, tx, positionID); err != nil {
		return nil, nil, err
	}
	if p.Status != model.PositionOpen {
		err = ErrOfferingNotOpen
		return nil, nil, err
	}

	var dup int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM volunteer_applications WHERE position_id = $1 AND email = $2`,
		positionID, req.Email,
	).Scan(&dup)
	if err != nil {
		return nil, nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dup > 0 {
		err = ErrDuplicateApplicant
		return nil, nil, err
	}

	snap := p.Snapshot()
	if err = snap.Reserve(); err != nil {
		return nil, nil, err
	}
	p.ApplySnapshot(snap)
	if err = storePositionCapacity(ctx, tx, p); err != nil {
		return nil, nil, err
	}

	a := &model.Application{
		ID:           uuid.New().String(),
		PositionID:   positionID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Age:          req.Age,
		Profession:   req.Profession,
		Experience:   req.Experience,
		Motivation:   req.Motivation,
		Availability: req.Availability,
		Status:       capacity.StatusPending,
		SubmittedAt:  time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO volunteer_applications (id, position_id, name, email, phone,
		  age, profession, experience, motivation, availability, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.PositionID, a.Name, a.Email, a.Phone,
		a.Age, a.Profession, a.Experience, a.Motivation, a.Availability, a.Status, a.SubmittedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert application: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return a, p, nil
}

func scanApplication(row pgx.Row, a *model.Application) error {
	return row.Scan(
		&a.ID, &a.PositionID, &a.Name, &a.Email, &a.Phone, &a.Age,
		&a.Profession, &a.Experience, &a.Motivation, &a.Availability,
		&a.Status, &a.SubmittedAt,
	)
}

// ListApplications returns applications for a position, optionally filtered
// by status, oldest first.
func (r *PositionRepository) ListApplications(ctx context.Context, positionID string, status capacity.ApplicationStatus) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM volunteer_applications WHERE position_id = $1`
	args := []any{positionID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY submitted_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var applications []model.Application
	for rows.Next() {
		var a model.Application
		if err := scanApplication(rows, &a); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		applications = append(applications, a)
	}
	return applications, rows.Err()
}

func lockApplication(ctx context.Context, tx pgx.Tx, id string) (*model.Application, error) {
	var a model.Application
	err := scanApplication(tx.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications WHERE id = $1 FOR UPDATE`, id,
	), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock application row: %w", err)
	}
	return &a, nil
}

// TransitionApplication applies a status change through the transition
// table, atomically with the capacity effect on the locked position row.
func (r *PositionRepository) TransitionApplication(ctx context.Context, applicationID string, to capacity.ApplicationStatus) (*model.Application, *model.Position, capacity.MailKind, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, capacity.MailNone, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var a *model.Application
	if a, err = lockApplication(ctx, tx, applicationID); err != nil {
		return nil, nil, capacity.MailNone, err
	}
	var p *model.Position
	if p, err = lockPosition(ctx, tx, a.PositionID); err != nil {
		return nil, nil, capacity.MailNone, err
	}

	var change capacity.Change
	if change, err = capacity.Transition(a.Status, to); err != nil {
		return nil, nil, capacity.MailNone, err
	}

	snap := p.Snapshot()
	if err = capacity.Apply(&snap, change.Effect); err != nil {
		return nil, nil, capacity.MailNone, err
	}
	p.ApplySnapshot(snap)
	if err = storePositionCapacity(ctx, tx, p); err != nil {
		return nil, nil, capacity.MailNone, err
	}

	a.Status = to
	_, err = tx.Exec(ctx,
		`UPDATE volunteer_applications SET status = $2 WHERE id = $1`, a.ID, a.Status,
	)
	if err != nil {
		return nil, nil, capacity.MailNone, fmt.Errorf("update application status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, capacity.MailNone, fmt.Errorf("commit transaction: %w", err)
	}
	return a, p, change.Mail, nil
}

// DeleteApplication removes an application, releasing its slot when the
// record was still occupying one.
func (r *PositionRepository) DeleteApplication(ctx context.Context, applicationID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var a *model.Application
	if a, err = lockApplication(ctx, tx, applicationID); err != nil {
		return err
	}
	var p *model.Position
	if p, err = lockPosition(ctx, tx, a.PositionID); err != nil {
		return err
	}

	if eff := capacity.DeleteEffect(a.Status); eff != capacity.EffectNone {
		snap := p.Snapshot()
		_ = capacity.Apply(&snap, eff)
		p.ApplySnapshot(snap)
		if err = storePositionCapacity(ctx, tx, p); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `DELETE FROM volunteer_applications WHERE id = $1`, a.ID)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close force-closes a position regardless of current counts.
func (r *PositionRepository) Close(ctx context.Context, id string) (*model.Position, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var p *model.Position
	if p, err = lockPosition(ctx, tx, id); err != nil {
		return nil, err
	}
	snap := p.Snapshot()
	snap.ForceClose()
	p.ApplySnapshot(snap)
	if err = storePositionCapacity(ctx, tx, p); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}

// Reopen resets a closed position to empty and open; reports
// capacity.ErrNotClosed otherwise.
func (r *PositionRepository) Reopen(ctx context.Context, id string) (*model.Position, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var p *model.Position
	if p, err = lockPosition(ctx, tx, id); err != nil {
		return nil, err
	}
	snap := p.Snapshot()
	if err = snap.ForceReopen(); err != nil {
		return nil, err
	}
	p.ApplySnapshot(snap)
	if err = storePositionCapacity(ctx, tx, p); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}
