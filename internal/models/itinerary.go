package models

import (
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
)

// Component names used in assembly failures.
const (
	ComponentFlights    = "flights"
	ComponentHotel      = "hotel"
	ComponentActivities = "activities"
)

type FlightSummary struct {
	Airline             string        `json:"airline"`
	FlightNumber        string        `json:"flight_number"`
	DepartureTime       string        `json:"departure_time"`
	ArrivalTime         string        `json:"arrival_time"`
	ReturnDepartureTime string        `json:"return_departure_time,omitempty"`
	ReturnArrivalTime   string        `json:"return_arrival_time,omitempty"`
	TotalPrice          budget.Amount `json:"total_price"`
	BookingURL          string        `json:"booking_url,omitempty"`
	DiscountInfo        string        `json:"discount_info,omitempty"`
}

type HotelSummary struct {
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	CheckIn      string        `json:"check_in"`
	CheckOut     string        `json:"check_out"`
	Rating       *float64      `json:"rating,omitempty"`
	NightlyRate  budget.Amount `json:"nightly_rate"`
	TotalCost    budget.Amount `json:"total_cost"`
	BookingURL   string        `json:"booking_url,omitempty"`
	DiscountInfo string        `json:"discount_info,omitempty"`
}

type ActivitySummary struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Category      string        `json:"category,omitempty"`
	Cost          budget.Amount `json:"cost"`
	Location      string        `json:"location"`
	ScheduledTime *LocalTime    `json:"scheduled_time,omitempty"`
	BookingURL    string        `json:"booking_url,omitempty"`
	DiscountInfo  string        `json:"discount_info,omitempty"`
}

// DayPlan groups the activities scheduled on one calendar date.
type DayPlan struct {
	Day        string            `json:"day"`
	Activities []ActivitySummary `json:"activities"`
	Notes      string            `json:"notes,omitempty"`
}

// AssemblyFailure names a component that could not be resolved.
type AssemblyFailure struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
	ToolError string `json:"tool_error,omitempty"`
}

// FinalItineraryOutput is the assembled plan. Failures and the itinerary
// fields (Flights, Hotel, ItineraryByDay, TotalCost, RemainingBudget) are
// mutually exclusive.
type FinalItineraryOutput struct {
	Destination   string        `json:"destination"`
	StartDate     string        `json:"start_date"`
	EndDate       string        `json:"end_date"`
	TripDuration  int           `json:"trip_duration"`
	NumTravelers  int           `json:"num_travelers"`
	GroupCategory GroupCategory `json:"group_category"`
	Interests     []string      `json:"interests"`
	Currency      string        `json:"currency"`

	Failures []AssemblyFailure `json:"failures,omitempty"`

	Flights         *FlightSummary `json:"flights,omitempty"`
	Hotel           *HotelSummary  `json:"hotel,omitempty"`
	ItineraryByDay  []DayPlan      `json:"itinerary_by_day,omitempty"`
	TotalCost       *budget.Amount `json:"total_cost,omitempty"`
	RemainingBudget *budget.Amount `json:"remaining_budget,omitempty"`

	Trace map[string]string `json:"trace,omitempty"`
}

// Degraded reports whether assembly produced a failures-only plan.
func (o FinalItineraryOutput) Degraded() bool {
	return len(o.Failures) > 0
}

// LocalTime is a wall-clock timestamp without a zone, encoded as
// 2006-01-02T15:04:05. RFC 3339 input is accepted and kept as wall time.
type LocalTime struct {
	time.Time
}

const localTimeLayout = "2006-01-02T15:04:05"

func NewLocalTime(t time.Time) *LocalTime {
	return &LocalTime{Time: t}
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(localTimeLayout) + `"`), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &ValidationError{Field: "scheduled_time", Message: "must be a timestamp string"}
	}
	s = s[1 : len(s)-1]
	parsed, err := time.Parse(localTimeLayout, s)
	if err != nil {
		withZone, zerr := time.Parse(time.RFC3339, s)
		if zerr != nil {
			return &ValidationError{Field: "scheduled_time", Message: "must be an ISO-8601 timestamp"}
		}
		parsed = time.Date(withZone.Year(), withZone.Month(), withZone.Day(),
			withZone.Hour(), withZone.Minute(), withZone.Second(), 0, time.UTC)
	}
	t.Time = parsed
	return nil
}

// Day returns the calendar date as YYYY-MM-DD.
func (t LocalTime) Day() string {
	return t.Format(DateLayout)
}
