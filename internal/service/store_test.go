package service_test

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pkordes/travel-planner/backend/internal/domain"
	"github.com/pkordes/travel-planner/backend/internal/repo"
	"github.com/pkordes/travel-planner/backend/internal/service"
)

// memStore is an in-memory test double for service.Store.
// InTx snapshots state and restores it when fn fails, mimicking a rollback.
type memStore struct {
	mu         sync.Mutex
	users      map[string]domain.User // keyed by email
	plans      []domain.TravelPlan
	nextUserID int64
	nextPlanID int64

	// racer, when set, is inserted by the next FindOrCreate call, which then
	// reports domain.ErrConflict as if a concurrent writer won the race.
	racer *domain.User
	// planErr, when set, is returned by PlanRepo.Create.
	planErr error
	// lookupErr, when set, is returned by UserRepo.FindByEmail.
	lookupErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]domain.User{}}
}

// compile-time check: memStore must satisfy service.Store.
var _ service.Store = (*memStore)(nil)

func (s *memStore) Users() repo.UserRepo { return memUsers{s} }
func (s *memStore) Plans() repo.PlanRepo { return memPlans{s} }

func (s *memStore) InTx(_ context.Context, fn func(repo.Repos) error) error {
	s.mu.Lock()
	users := maps.Clone(s.users)
	plans := slices.Clone(s.plans)
	uid, pid := s.nextUserID, s.nextPlanID
	s.mu.Unlock()

	if err := fn(repo.Repos{Users: memUsers{s}, Plans: memPlans{s}}); err != nil {
		s.mu.Lock()
		s.users, s.plans, s.nextUserID, s.nextPlanID = users, plans, uid, pid
		s.mu.Unlock()
		return err
	}
	return nil
}

// seedUser inserts a user directly and returns it.
func (s *memStore) seedUser(email string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(email, email)
}

func (s *memStore) insertUserLocked(email, username string) domain.User {
	s.nextUserID++
	u := domain.User{ID: s.nextUserID, Email: email, Username: username, CreatedAt: time.Now()}
	s.users[email] = u
	return u
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) planCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plans)
}

type memUsers struct{ s *memStore }

func (m memUsers) FindByEmail(_ context.Context, email string) (domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.lookupErr != nil {
		return domain.User{}, m.s.lookupErr
	}
	u, ok := m.s.users[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m memUsers) GetByID(_ context.Context, id int64) (domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m memUsers) Create(_ context.Context, user domain.User) (domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.User{}, domain.ErrConflict
		}
	}
	return m.s.insertUserLocked(user.Email, user.Username), nil
}

func (m memUsers) FindOrCreate(_ context.Context, email, username string) (domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r := m.s.racer; r != nil {
		m.s.racer = nil
		m.s.insertUserLocked(r.Email, r.Username)
		return domain.User{}, domain.ErrConflict
	}
	if u, ok := m.s.users[email]; ok {
		return u, nil
	}
	return m.s.insertUserLocked(email, username), nil
}

func (m memUsers) DeleteWithPlans(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for email, u := range m.s.users {
		if u.ID == id {
			delete(m.s.users, email)
			m.s.plans = slices.DeleteFunc(m.s.plans, func(p domain.TravelPlan) bool { return p.UserID == id })
			return nil
		}
	}
	return domain.ErrNotFound
}

type memPlans struct{ s *memStore }

func (m memPlans) Create(_ context.Context, plan domain.TravelPlan) (domain.TravelPlan, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.planErr != nil {
		return domain.TravelPlan{}, m.s.planErr
	}
	m.s.nextPlanID++
	plan.ID = m.s.nextPlanID
	plan.CreatedAt = time.Now()
	m.s.plans = append(m.s.plans, plan)
	return plan, nil
}

func (m memPlans) ListByUserID(_ context.Context, userID int64) ([]domain.TravelPlan, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.TravelPlan
	for _, p := range m.s.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memPlans) GetByID(_ context.Context, userID, id int64) (domain.TravelPlan, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.plans {
		if p.ID == id && p.UserID == userID {
			return p, nil
		}
	}
	return domain.TravelPlan{}, domain.ErrNotFound
}
