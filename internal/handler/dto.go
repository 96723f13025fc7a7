package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-planner/backend/internal/domain"
)

// GeneratePlanRequest is the body of POST /api/plans/generate.
// Unknown fields (including any client-supplied owner) are ignored.
type GeneratePlanRequest struct {
	Destination string              `json:"destination"`
	StartDate   *openapi_types.Date `json:"startDate,omitempty"`
	EndDate     *openapi_types.Date `json:"endDate,omitempty"`
	Budget      *float64            `json:"budget,omitempty"`
	Preferences *string             `json:"preferences,omitempty"`
}

// TravelPlan is the wire form of domain.TravelPlan.
type TravelPlan struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"userId"`
	Title       string              `json:"title"`
	Destination string              `json:"destination"`
	StartDate   *openapi_types.Date `json:"startDate,omitempty"`
	EndDate     *openapi_types.Date `json:"endDate,omitempty"`
	Budget      *float64            `json:"budget,omitempty"`
	Preferences string              `json:"preferences,omitempty"`
	PlanDetails string              `json:"planDetails"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// User is the wire form of domain.User.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func requestToPlanRequest(body GeneratePlanRequest) domain.PlanRequest {
	req := domain.PlanRequest{
		Destination: body.Destination,
		StartDate:   fromDate(body.StartDate),
		EndDate:     fromDate(body.EndDate),
		Budget:      body.Budget,
	}
	if body.Preferences != nil {
		req.Preferences = *body.Preferences
	}
	return req
}

func planToResponse(p domain.TravelPlan) TravelPlan {
	return TravelPlan{
		ID:          p.ID,
		UserID:      p.UserID,
		Title:       p.Title,
		Destination: p.Destination,
		StartDate:   toDate(p.StartDate),
		EndDate:     toDate(p.EndDate),
		Budget:      p.Budget,
		Preferences: p.Preferences,
		PlanDetails: p.PlanDetails,
		CreatedAt:   p.CreatedAt,
	}
}

func plansToResponse(plans []domain.TravelPlan) []TravelPlan {
	out := make([]TravelPlan, len(plans))
	for i, p := range plans {
		out[i] = planToResponse(p)
	}
	return out
}

func userToResponse(u domain.User) User {
	return User{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}
