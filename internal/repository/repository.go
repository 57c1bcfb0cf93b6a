// Package repository implements all database queries for the community
// portal. It uses pgx directly (no ORM). Every write that touches an
// offering's capacity counters runs inside a transaction that first locks
// the offering row with SELECT ... FOR UPDATE, so concurrent submissions
// and staff actions against the same offering are serialized and the
// counters have a single writer.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrOfferingNotOpen is returned when submitting to an offering that is not
// accepting applications.
var ErrOfferingNotOpen = errors.New("offering is not open")

// ErrDuplicateApplicant is returned when an email already has an application
// for the offering, in any status. Rejected applicants cannot resubmit
// through the public form; only staff can flip their status back.
var ErrDuplicateApplicant = errors.New("email already applied to this offering")

// DB is the pgx surface the repositories need. *pgxpool.Pool satisfies it,
// as does the pgxmock pool used in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
