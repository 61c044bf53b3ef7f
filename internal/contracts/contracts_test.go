package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/models"
)

func TestEnforceAcceptsValidPlanningOutput(t *testing.T) {
	out := PlanningOutput{
		Source:                  "New Delhi, India",
		Destination:             "Mumbai, India",
		StartDate:               "2026-03-10",
		EndDate:                 "2026-03-13",
		TripDuration:            3,
		NumTravelers:            2,
		Interests:               []string{"food"},
		Budget:                  budget.Units(1500),
		GroupCategory:           models.GroupFamily,
		Currency:                "USD",
		AllocatedFlightBudget:   budget.Units(600),
		AllocatedHotelBudget:    budget.Units(630),
		AllocatedActivityBudget: budget.Units(270),
	}
	require.NoError(t, Enforce(SchemaPlanningOutput, out))

	out.TripDuration = 0
	err := Enforce(SchemaPlanningOutput, out)
	var violation *ViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, SchemaPlanningOutput, violation.Schema)
}

func TestEnforceFlightOutput(t *testing.T) {
	out := FlightResearchOutput{
		Source:                 "DEL",
		Destination:            "BOM",
		StartDate:              "2026-03-10",
		EndDate:                "2026-03-13",
		NumTravelers:           2,
		UpdatedRemainingBudget: budget.Units(1500),
	}
	assert.NoError(t, Enforce(SchemaFlightResearchOutput, out), "no selection is still a valid output")

	out.Flight = &FlightOffer{Airline: "IndiGo", FlightNumber: "6E 333", Price: 0}
	assert.Error(t, Enforce(SchemaFlightResearchOutput, out), "zero price is not a valid offer")

	out.Flight.Price = budget.Units(400)
	assert.NoError(t, Enforce(SchemaFlightResearchOutput, out))
}

func TestEnforceRejectsNullActivities(t *testing.T) {
	out := ActivityPlanningOutput{
		Destination:   "Mumbai",
		Interests:     []string{},
		GroupCategory: models.GroupFamily,
		HotelAnchor:   HotelAnchor{Name: "Taj", Address: "Colaba"},
	}
	assert.Error(t, Enforce(SchemaActivityPlanningOutput, out))
	out.Activities = []ActivityItem{}
	assert.NoError(t, Enforce(SchemaActivityPlanningOutput, out))
}

func TestDocumentUnknownSchema(t *testing.T) {
	_, err := Document("nope")
	assert.Error(t, err)
	doc, err := Document(SchemaHotelResearchOutput)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "updated_remaining_budget")
}

func TestStageResult(t *testing.T) {
	ok := Succeeded(StageFlightResearch, 42)
	assert.True(t, ok.OK())
	failed := Failed[int](StageHotelResearch, Failure{Component: models.ComponentHotel, Reason: "none"})
	assert.False(t, failed.OK())
	assert.Equal(t, "none", failed.Failure.Reason)
}
