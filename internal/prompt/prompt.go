// Package prompt turns a plan request into the instruction text sent to the LLM.
// Everything here is pure: no I/O, no clock, no randomness.
package prompt

import (
	"strconv"
	"strings"

	"github.com/pkordes/travel-planner/backend/internal/domain"
)

// SystemInstruction is the fixed system-role message for plan generation.
const SystemInstruction = "You are a helpful travel planning assistant. " +
	"For each activity, you must provide its location coordinates. " +
	"Always return the plan in a valid, complete JSON format."

const dateLayout = "2006-01-02"

// formatInstructions is appended to every prompt.
const formatInstructions = "Return the itinerary as JSON. For every activity that has a physical location, " +
	"include a location object with lng (longitude) and lat (latitude) fields.\n" +
	`Example: {"days": [{"day": 1, "activities": [{"time": "9:00", "description": "Walk along the Bund", "location": {"lng": 121.4913, "lat": 31.2392}}]}]}` + "\n" +
	"Make sure the JSON is valid and complete, and do not add any explanatory text outside the JSON."

// Build returns the user-role prompt for req.
//
// The destination line is always present. The date range appears only when
// both dates are set, the budget only when set, and preferences only when
// non-blank.
func Build(req domain.PlanRequest) string {
	var b strings.Builder
	b.WriteString("Please plan a trip for me.\n")
	b.WriteString("Destination: ")
	b.WriteString(req.Destination)
	b.WriteString("\n")

	if req.StartDate != nil && req.EndDate != nil {
		b.WriteString("Dates: from ")
		b.WriteString(req.StartDate.Format(dateLayout))
		b.WriteString(" to ")
		b.WriteString(req.EndDate.Format(dateLayout))
		b.WriteString("\n")
	}
	if req.Budget != nil {
		b.WriteString("Budget: ")
		b.WriteString(strconv.FormatFloat(*req.Budget, 'f', -1, 64))
		b.WriteString(" CNY\n")
	}
	if strings.TrimSpace(req.Preferences) != "" {
		b.WriteString("Preferences: ")
		b.WriteString(req.Preferences)
		b.WriteString("\n")
	}

	b.WriteString(formatInstructions)
	return b.String()
}
