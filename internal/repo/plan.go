package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travel-planner/backend/internal/domain"
)

// PlanRepo defines the persistence operations for TravelPlans.
// Plans are immutable once created, so there is no Update or Delete here;
// plans only disappear together with their owner (UserRepo.DeleteWithPlans).
type PlanRepo interface {
	// Create inserts a new plan and returns the persisted record (with
	// DB-generated id and created_at populated).
	Create(ctx context.Context, plan domain.TravelPlan) (domain.TravelPlan, error)

	// ListByUserID returns every plan owned by userID, newest first.
	ListByUserID(ctx context.Context, userID int64) ([]domain.TravelPlan, error)

	// GetByID returns a plan by id, scoped to its owner.
	// Returns domain.ErrNotFound if the plan does not exist or belongs to
	// another user.
	GetByID(ctx context.Context, userID, id int64) (domain.TravelPlan, error)
}

// pgPlanRepo is the Postgres implementation of PlanRepo.
type pgPlanRepo struct {
	db db
}

// NewPlanRepo constructs a PlanRepo backed by the provided db connection.
func NewPlanRepo(db db) PlanRepo {
	return &pgPlanRepo{db: db}
}

const planColumns = `id, user_id, title, destination, start_date, end_date, budget, preferences, plan_details, created_at`

// Create inserts a plan row and returns the full persisted record.
func (r *pgPlanRepo) Create(ctx context.Context, plan domain.TravelPlan) (domain.TravelPlan, error) {
	const q = `
		INSERT INTO travel_plans (user_id, title, destination, start_date, end_date, budget, preferences, plan_details)
		VALUES (@user_id, @title, @destination, @start_date, @end_date, @budget, @preferences, @plan_details)
		RETURNING ` + planColumns

	args := pgx.NamedArgs{
		"user_id":      plan.UserID,
		"title":        plan.Title,
		"destination":  plan.Destination,
		"start_date":   plan.StartDate, // nil becomes NULL
		"end_date":     plan.EndDate,
		"budget":       plan.Budget,
		"preferences":  plan.Preferences,
		"plan_details": plan.PlanDetails,
	}

	result, err := scanPlan(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("repo.PlanRepo.Create: %w", err)
	}
	return result, nil
}

// ListByUserID returns the user's plans ordered by created_at descending.
func (r *pgPlanRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.TravelPlan, error) {
	const q = `
		SELECT ` + planColumns + `
		FROM travel_plans
		WHERE user_id = @user_id
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.PlanRepo.ListByUserID: %w", err)
	}
	defer rows.Close()

	plans := []domain.TravelPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PlanRepo.ListByUserID: scan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PlanRepo.ListByUserID: rows: %w", err)
	}
	return plans, nil
}

// GetByID retrieves one plan by primary key and owner.
func (r *pgPlanRepo) GetByID(ctx context.Context, userID, id int64) (domain.TravelPlan, error) {
	const q = `
		SELECT ` + planColumns + `
		FROM travel_plans
		WHERE id = @id AND user_id = @user_id`

	result, err := scanPlan(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID}))
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("repo.PlanRepo.GetByID: %w", err)
	}
	return result, nil
}

// scanPlan maps a single database row into a domain.TravelPlan.
// It handles the nullable date and budget conversions.
func scanPlan(s scanner) (domain.TravelPlan, error) {
	var (
		p         domain.TravelPlan
		startDate pgtype.Date
		endDate   pgtype.Date
		budget    pgtype.Float8
	)

	err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Destination, &startDate, &endDate,
		&budget, &p.Preferences, &p.PlanDetails, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TravelPlan{}, domain.ErrNotFound
		}
		return domain.TravelPlan{}, err
	}

	if startDate.Valid {
		sd := startDate.Time
		p.StartDate = &sd
	}
	if endDate.Valid {
		ed := endDate.Time
		p.EndDate = &ed
	}
	if budget.Valid {
		b := budget.Float64
		p.Budget = &b
	}
	return p, nil
}
