package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/imsulglobal/community-portal/internal/model"
)

// ErrAlreadySubscribed is returned when an active subscription already
// exists for the email.
var ErrAlreadySubscribed = errors.New("email already subscribed")

// NewsletterRepository handles persistence for newsletter subscribers.
type NewsletterRepository struct {
	db DB
}

// NewNewsletterRepository constructs a NewsletterRepository.
func NewNewsletterRepository(db DB) *NewsletterRepository {
	return &NewsletterRepository{db: db}
}

// Subscribe records an email, get-or-create style: a new email inserts a
// row, an inactive one is reactivated, an active one reports
// ErrAlreadySubscribed without changing anything.
func (r *NewsletterRepository) Subscribe(ctx context.Context, email string) (*model.Subscriber, error) {
	var s model.Subscriber
	err := r.db.QueryRow(ctx,
		`SELECT id, email, active, subscribed_at FROM newsletter_subscribers WHERE email = $1`,
		email,
	).Scan(&s.ID, &s.Email, &s.Active, &s.SubscribedAt)
	switch {
	case err == nil:
		if s.Active {
			return &s, ErrAlreadySubscribed
		}
		if _, err := r.db.Exec(ctx,
			`UPDATE newsletter_subscribers SET active = TRUE WHERE id = $1`, s.ID,
		); err != nil {
			return nil, fmt.Errorf("reactivate subscriber: %w", err)
		}
		s.Active = true
		return &s, nil
	case errors.Is(err, pgx.ErrNoRows):
		s = model.Subscriber{
			ID:           uuid.New().String(),
			Email:        email,
			Active:       true,
			SubscribedAt: time.Now().UTC(),
		}
		if _, err := r.db.Exec(ctx,
			`INSERT INTO newsletter_subscribers (id, email, active, subscribed_at)
			 VALUES ($1, $2, $3, $4)`,
			s.ID, s.Email, s.Active, s.SubscribedAt,
		); err != nil {
			return nil, fmt.Errorf("insert subscriber: %w", err)
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
}

// Unsubscribe deactivates an email. The row is kept so a later resubscribe
// restores it; unknown emails report ErrNotFound.
func (r *NewsletterRepository) Unsubscribe(ctx context.Context, email string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE newsletter_subscribers SET active = FALSE WHERE email = $1`, email,
	)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns subscribers for the staff view, newest first. When activeOnly
// is set, deactivated rows are skipped.
func (r *NewsletterRepository) List(ctx context.Context, activeOnly bool) ([]model.Subscriber, error) {
	query := `SELECT id, email, active, subscribed_at FROM newsletter_subscribers`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY subscribed_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []model.Subscriber
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Active, &s.SubscribedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}
