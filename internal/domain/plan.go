// Package domain contains the core data types for the travel planner.
// This package has zero external dependencies and is imported by every other
// internal package (repo, service, handler).
package domain

import "time"

// PlanRequest carries the caller's travel parameters into plan generation.
// It is never persisted on its own; its fields are copied onto the TravelPlan.
type PlanRequest struct {
	Destination string
	StartDate   *time.Time // nil when the caller has no fixed dates
	EndDate     *time.Time
	Budget      *float64 // nil when no budget was given
	Preferences string
}

// TravelPlan is a generated itinerary owned by exactly one User.
// PlanDetails holds the LLM's raw response and is stored byte-for-byte.
type TravelPlan struct {
	ID          int64
	UserID      int64
	Title       string
	Destination string
	StartDate   *time.Time
	EndDate     *time.Time
	Budget      *float64
	Preferences string
	PlanDetails string
	CreatedAt   time.Time
}

// PlanTitle derives the title stored with every plan for destination.
func PlanTitle(destination string) string {
	return "Travel Plan for " + destination
}
