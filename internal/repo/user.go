package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/travel-planner/backend/internal/domain"
)

// UserRepo defines the persistence operations for Users.
type UserRepo interface {
	// FindByEmail returns the user with the given email.
	// Returns domain.ErrNotFound if no such user exists.
	FindByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByID returns the user with the given primary key.
	// Returns domain.ErrNotFound if no such user exists.
	GetByID(ctx context.Context, id int64) (domain.User, error)

	// Create inserts a new user and returns it with the DB-generated id.
	// Returns domain.ErrConflict if the email or username is already taken.
	Create(ctx context.Context, user domain.User) (domain.User, error)

	// FindOrCreate inserts a user keyed by email, or returns the existing row
	// if the email is already present. Returns domain.ErrConflict if the
	// username belongs to a different user.
	FindOrCreate(ctx context.Context, email, username string) (domain.User, error)

	// DeleteWithPlans removes a user and every plan they own in one
	// transaction. Returns domain.ErrNotFound if the user does not exist.
	DeleteWithPlans(ctx context.Context, id int64) error
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

// FindByEmail looks a user up by the unique email column.
func (r *pgUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `
		SELECT id, username, email, created_at
		FROM users
		WHERE email = @email`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.FindByEmail: %w", err)
	}
	return result, nil
}

// GetByID looks a user up by primary key.
func (r *pgUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const q = `
		SELECT id, username, email, created_at
		FROM users
		WHERE id = @id`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return result, nil
}

// Create inserts a user row. The insert runs in its own (nested) transaction
// so a unique violation leaves an enclosing transaction usable.
func (r *pgUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (username, email)
		VALUES (@username, @email)
		RETURNING id, username, email, created_at`

	args := pgx.NamedArgs{"username": user.Username, "email": user.Email}

	var result domain.User
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		result, err = scanUser(tx.QueryRow(ctx, q, args))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", domain.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return result, nil
}

// FindOrCreate inserts a user or returns the existing row on email conflict.
// The no-op DO UPDATE makes RETURNING yield the existing row; DO NOTHING
// would return no rows. A username held by another email is ErrConflict.
func (r *pgUserRepo) FindOrCreate(ctx context.Context, email, username string) (domain.User, error) {
	const q = `
		INSERT INTO users (username, email)
		VALUES (@username, @email)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, username, email, created_at`

	args := pgx.NamedArgs{"username": username, "email": email}

	var result domain.User
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		result, err = scanUser(tx.QueryRow(ctx, q, args))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, fmt.Errorf("repo.UserRepo.FindOrCreate: %w", domain.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("repo.UserRepo.FindOrCreate: %w", err)
	}
	return result, nil
}

// DeleteWithPlans deletes the user's plans and then the user, atomically.
func (r *pgUserRepo) DeleteWithPlans(ctx context.Context, id int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM travel_plans WHERE user_id = @id`, pgx.NamedArgs{"id": id}); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = @id`, pgx.NamedArgs{"id": id})
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.DeleteWithPlans: %w", err)
	}
	return nil
}

// scanUser maps a single database row into a domain.User.
func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}
