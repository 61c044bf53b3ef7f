// Package contracts defines the typed input and output of every pipeline
// stage. The same shapes are exchanged with the external planning engine, so
// field names and optionality are part of the wire contract.
package contracts

import (
	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/models"
)

// PlanningOutput is the normalized plan produced by the planning stage.
type PlanningOutput struct {
	Source                  string               `json:"source"`
	Destination             string               `json:"destination"`
	StartDate               string               `json:"start_date"`
	EndDate                 string               `json:"end_date"`
	TripDuration            int                  `json:"trip_duration"`
	NumTravelers            int                  `json:"num_travelers"`
	Interests               []string             `json:"interests"`
	Budget                  budget.Amount        `json:"budget"`
	GroupCategory           models.GroupCategory `json:"group_category"`
	Currency                string               `json:"currency"`
	AllocatedFlightBudget   budget.Amount        `json:"allocated_flight_budget"`
	AllocatedHotelBudget    budget.Amount        `json:"allocated_hotel_budget"`
	AllocatedActivityBudget budget.Amount        `json:"allocated_activity_budget"`
}

type FlightOffer struct {
	Airline             string        `json:"airline"`
	FlightNumber        string        `json:"flight_number"`
	DepartureTime       string        `json:"departure_time"`
	ArrivalTime         string        `json:"arrival_time"`
	ReturnDepartureTime string        `json:"return_departure_time,omitempty"`
	ReturnArrivalTime   string        `json:"return_arrival_time,omitempty"`
	Stops               int           `json:"stops"`
	Price               budget.Amount `json:"price"`
	BookingURL          string        `json:"booking_url,omitempty"`
	DiscountInfo        string        `json:"discount_info,omitempty"`
}

type FlightResearchInput struct {
	Source                string        `json:"source"`
	Destination           string        `json:"destination"`
	StartDate             string        `json:"start_date"`
	EndDate               string        `json:"end_date"`
	NumTravelers          int           `json:"num_travelers"`
	Currency              string        `json:"currency"`
	TotalBudget           budget.Amount `json:"total_budget"`
	AllocatedFlightBudget budget.Amount `json:"allocated_flight_budget"`
}

// FlightResearchOutput carries the selected flight. A nil Flight means no
// candidate qualified.
type FlightResearchOutput struct {
	Source                 string        `json:"source"`
	Destination            string        `json:"destination"`
	StartDate              string        `json:"start_date"`
	EndDate                string        `json:"end_date"`
	NumTravelers           int           `json:"num_travelers"`
	Flight                 *FlightOffer  `json:"flight,omitempty"`
	UpdatedRemainingBudget budget.Amount `json:"updated_remaining_budget"`
}

type HotelOffer struct {
	Name                 string        `json:"name"`
	Address              string        `json:"address"`
	CheckIn              string        `json:"check_in"`
	CheckOut             string        `json:"check_out"`
	NightlyRate          budget.Amount `json:"nightly_rate"`
	TotalCost            budget.Amount `json:"total_cost"`
	Rating               *float64      `json:"rating,omitempty"`
	ReviewsCount         *int          `json:"reviews_count,omitempty"`
	DistanceToInterestKm *float64      `json:"distance_to_interest_km,omitempty"`
	Latitude             *float64      `json:"latitude,omitempty"`
	Longitude            *float64      `json:"longitude,omitempty"`
	Amenities            []string      `json:"amenities,omitempty"`
	CancellationPolicy   string        `json:"cancellation_policy,omitempty"`
	BookingURL           string        `json:"booking_url,omitempty"`
	DiscountInfo         string        `json:"discount_info,omitempty"`
}

type HotelResearchInput struct {
	Destination             string               `json:"destination"`
	StartDate               string               `json:"start_date"`
	EndDate                 string               `json:"end_date"`
	Interests               []string             `json:"interests"`
	NumTravelers            int                  `json:"num_travelers"`
	GroupCategory           models.GroupCategory `json:"group_category"`
	Currency                string               `json:"currency"`
	PreviousRemainingBudget budget.Amount        `json:"previous_remaining_budget"`
	AllocatedHotelBudget    budget.Amount        `json:"allocated_hotel_budget"`
}

type HotelResearchOutput struct {
	Destination             string               `json:"destination"`
	StartDate               string               `json:"start_date"`
	EndDate                 string               `json:"end_date"`
	Interests               []string             `json:"interests"`
	NumTravelers            int                  `json:"num_travelers"`
	GroupCategory           models.GroupCategory `json:"group_category"`
	Hotel                   *HotelOffer          `json:"hotel,omitempty"`
	PreviousRemainingBudget budget.Amount        `json:"previous_remaining_budget"`
	UpdatedRemainingBudget  budget.Amount        `json:"updated_remaining_budget"`
}

// HotelAnchor is the point activities are planned around.
type HotelAnchor struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type ActivityItem struct {
	Name                       string            `json:"name"`
	Description                string            `json:"description"`
	Category                   string            `json:"category,omitempty"`
	Cost                       budget.Amount     `json:"cost"`
	Location                   string            `json:"location"`
	Latitude                   *float64          `json:"latitude,omitempty"`
	Longitude                  *float64          `json:"longitude,omitempty"`
	ScheduledTime              *models.LocalTime `json:"scheduled_time,omitempty"`
	EstimatedTravelTimeMinutes *int              `json:"estimated_travel_time_minutes,omitempty"`
	BookingURL                 string            `json:"booking_url,omitempty"`
	DiscountInfo               string            `json:"discount_info,omitempty"`
}

type ActivityPlanningInput struct {
	Destination             string               `json:"destination"`
	StartDate               string               `json:"start_date"`
	EndDate                 string               `json:"end_date"`
	Interests               []string             `json:"interests"`
	NumTravelers            int                  `json:"num_travelers"`
	GroupCategory           models.GroupCategory `json:"group_category"`
	Currency                string               `json:"currency"`
	HotelAnchor             HotelAnchor          `json:"hotel_anchor"`
	PreviousRemainingBudget budget.Amount        `json:"previous_remaining_budget"`
	AllocatedActivityBudget budget.Amount        `json:"allocated_activity_budget"`
}

type ActivityPlanningOutput struct {
	Destination             string               `json:"destination"`
	Interests               []string             `json:"interests"`
	GroupCategory           models.GroupCategory `json:"group_category"`
	HotelAnchor             HotelAnchor          `json:"hotel_anchor"`
	Activities              []ActivityItem       `json:"activities"`
	PreviousRemainingBudget budget.Amount        `json:"previous_remaining_budget"`
	FinalRemainingBudget    budget.Amount        `json:"final_remaining_budget"`
}

// TotalCost sums the planned activity costs.
func (o ActivityPlanningOutput) TotalCost() budget.Amount {
	var total budget.Amount
	for _, a := range o.Activities {
		total += a.Cost
	}
	return total
}
