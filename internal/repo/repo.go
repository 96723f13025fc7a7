// Package repo contains all database access logic for the travel planner.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
//
// Begin on a pgx.Tx opens a savepoint, so repo methods that need their own
// transaction nest cleanly inside a caller's transaction.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to
// be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Repos groups the repositories bound to a single transaction.
type Repos struct {
	Users UserRepo
	Plans PlanRepo
}

// Transactor runs fn with repositories that share one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repos) error) error
}

// Store is the Postgres Transactor. It also hands out non-transactional repos.
type Store struct {
	db db
}

// NewStore constructs a Store backed by the provided db connection.
func NewStore(db db) *Store {
	return &Store{db: db}
}

// Users returns a UserRepo that runs each call in its own implicit transaction.
func (s *Store) Users() UserRepo { return NewUserRepo(s.db) }

// Plans returns a PlanRepo that runs each call in its own implicit transaction.
func (s *Store) Plans() PlanRepo { return NewPlanRepo(s.db) }

// InTx implements Transactor.
func (s *Store) InTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(Repos{Users: NewUserRepo(tx), Plans: NewPlanRepo(tx)})
	})
}

// isUniqueViolation reports whether err is a Postgres unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
