// Package service contains the business logic for the travel planner.
// Services validate inputs, enforce business rules, and orchestrate repo and
// LLM calls. No SQL lives here; services depend on repo interfaces.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pkordes/travel-planner/backend/internal/domain"
	"github.com/pkordes/travel-planner/backend/internal/prompt"
	"github.com/pkordes/travel-planner/backend/internal/repo"
)

// Completer is the LLM adapter the plan service depends on.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Store is the persistence surface the services need. *repo.Store satisfies it.
type Store interface {
	repo.Transactor
	Users() repo.UserRepo
	Plans() repo.PlanRepo
}

// PlanService generates, stores and lists travel plans for a caller
// identified by a verified email.
type PlanService struct {
	store Store
	llm   Completer
}

// NewPlanService constructs a PlanService.
func NewPlanService(store Store, llm Completer) *PlanService {
	return &PlanService{store: store, llm: llm}
}

// Generate asks the LLM for an itinerary and persists it for the caller.
//
// The caller's user row is looked up first but only created, together with
// the plan, after the LLM call succeeds. A failed generation therefore writes
// nothing. LLM failures are returned as domain.ErrGenerationFailed with the
// upstream error still in the chain.
func (s *PlanService) Generate(ctx context.Context, email string, req domain.PlanRequest) (domain.TravelPlan, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.TravelPlan{}, fmt.Errorf("%w: caller email is required", domain.ErrValidation)
	}
	if err := validateRequest(req); err != nil {
		return domain.TravelPlan{}, err
	}

	owner, err := s.store.Users().FindByEmail(ctx, email)
	known := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.TravelPlan{}, fmt.Errorf("service.PlanService.Generate: %w", err)
	}

	details, err := s.llm.Complete(ctx, prompt.SystemInstruction, prompt.Build(req))
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("service.PlanService.Generate: %w: %w", domain.ErrGenerationFailed, err)
	}
	if !json.Valid([]byte(details)) {
		return domain.TravelPlan{}, fmt.Errorf("service.PlanService.Generate: %w: model response is not valid JSON", domain.ErrGenerationFailed)
	}

	plan := domain.TravelPlan{
		Title:       domain.PlanTitle(req.Destination),
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Preferences: req.Preferences,
		PlanDetails: details,
	}

	var saved domain.TravelPlan
	err = s.store.InTx(ctx, func(r repo.Repos) error {
		if !known {
			u, err := findOrCreateUser(ctx, r.Users, email)
			if err != nil {
				return err
			}
			owner = u
		}
		plan.UserID = owner.ID
		p, err := r.Plans.Create(ctx, plan)
		if err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("service.PlanService.Generate: %w", err)
	}
	return saved, nil
}

// List returns every plan owned by the caller.
// An email with no user record yields an empty slice, not an error.
// Always returns a non-nil slice so callers can safely range over it.
func (s *PlanService) List(ctx context.Context, email string) ([]domain.TravelPlan, error) {
	owner, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.TravelPlan{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service.PlanService.List: %w", err)
	}

	plans, err := s.store.Plans().ListByUserID(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("service.PlanService.List: %w", err)
	}
	if plans == nil {
		return []domain.TravelPlan{}, nil
	}
	return plans, nil
}

// Get returns one of the caller's plans.
// Returns domain.ErrNotFound if the caller or the plan is unknown, or the
// plan belongs to someone else.
func (s *PlanService) Get(ctx context.Context, email string, id int64) (domain.TravelPlan, error) {
	owner, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("service.PlanService.Get: %w", err)
	}
	plan, err := s.store.Plans().GetByID(ctx, owner.ID, id)
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("service.PlanService.Get: %w", err)
	}
	return plan, nil
}

// findOrCreateUser resolves the caller's row, creating it with the email as
// the placeholder username. A conflict means another writer got there first
// (or holds the username), so the lookup is retried once.
func findOrCreateUser(ctx context.Context, users repo.UserRepo, email string) (domain.User, error) {
	u, err := users.FindOrCreate(ctx, email, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return domain.User{}, err
	}
	u, lookupErr := users.FindByEmail(ctx, email)
	if lookupErr != nil {
		return domain.User{}, err
	}
	return u, nil
}

// validateRequest enforces the business rules on a plan request.
//   - Destination must be non-empty (whitespace-only is rejected).
//   - Budget, if set, must not be negative.
//   - EndDate, if both dates are set, must not be before StartDate.
func validateRequest(req domain.PlanRequest) error {
	if strings.TrimSpace(req.Destination) == "" {
		return fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}
	if req.Budget != nil && *req.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", domain.ErrValidation)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return fmt.Errorf("%w: endDate must not be before startDate", domain.ErrValidation)
	}
	return nil
}
