package pipeline

import (
	"fmt"
	"sort"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
	"github.com/ILLUVRSE/trip-planner/internal/models"
)

func (o *Orchestrator) assemble(st *State) (models.FinalItineraryOutput, error) {
	p := st.Planning
	out := models.FinalItineraryOutput{
		Destination:   p.Destination,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		TripDuration:  p.TripDuration,
		NumTravelers:  p.NumTravelers,
		GroupCategory: p.GroupCategory,
		Interests:     nonNil(p.Interests),
		Currency:      p.Currency,
		Trace:         st.Trace,
	}

	for _, f := range []*contracts.Failure{st.Flight.Failure, st.Hotel.Failure, st.Activities.Failure} {
		if f == nil {
			continue
		}
		out.Failures = append(out.Failures, models.AssemblyFailure{
			Component: f.Component,
			Reason:    f.Reason,
			ToolError: f.ProviderError,
		})
	}
	if len(out.Failures) > 0 {
		return out, nil
	}

	flight := st.Flight.Value.Flight
	hotel := st.Hotel.Value.Hotel
	acts := st.Activities.Value
	if flight == nil || hotel == nil || len(acts.Activities) == 0 {
		return models.FinalItineraryOutput{}, fmt.Errorf("successful stages are missing their selections")
	}

	total := budget.Sum(flight.Price, hotel.TotalCost, acts.TotalCost())
	remaining := acts.FinalRemainingBudget
	if want := p.Budget - total; remaining != want {
		return models.FinalItineraryOutput{}, fmt.Errorf("remaining budget %s does not match budget %s minus cost %s", remaining, p.Budget, total)
	}
	if st.Ledger.Net() != remaining {
		return models.FinalItineraryOutput{}, fmt.Errorf("ledger net %s does not match remaining budget %s", st.Ledger.Net(), remaining)
	}

	out.Flights = &models.FlightSummary{
		Airline:             flight.Airline,
		FlightNumber:        flight.FlightNumber,
		DepartureTime:       flight.DepartureTime,
		ArrivalTime:         flight.ArrivalTime,
		ReturnDepartureTime: flight.ReturnDepartureTime,
		ReturnArrivalTime:   flight.ReturnArrivalTime,
		TotalPrice:          flight.Price,
		BookingURL:          flight.BookingURL,
		DiscountInfo:        flight.DiscountInfo,
	}
	out.Hotel = &models.HotelSummary{
		Name:         hotel.Name,
		Address:      hotel.Address,
		CheckIn:      hotel.CheckIn,
		CheckOut:     hotel.CheckOut,
		Rating:       hotel.Rating,
		NightlyRate:  hotel.NightlyRate,
		TotalCost:    hotel.TotalCost,
		BookingURL:   hotel.BookingURL,
		DiscountInfo: hotel.DiscountInfo,
	}
	out.ItineraryByDay = byDay(acts.Activities)
	out.TotalCost = &total
	out.RemainingBudget = &remaining
	return out, nil
}

// byDay buckets activities by scheduled date: days in calendar order,
// activities in time order within a day.
func byDay(items []contracts.ActivityItem) []models.DayPlan {
	sorted := append([]contracts.ActivityItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScheduledTime.Before(sorted[j].ScheduledTime.Time)
	})
	var days []models.DayPlan
	for _, a := range sorted {
		day := a.ScheduledTime.Day()
		if len(days) == 0 || days[len(days)-1].Day != day {
			days = append(days, models.DayPlan{Day: day})
		}
		last := &days[len(days)-1]
		last.Activities = append(last.Activities, models.ActivitySummary{
			Name:          a.Name,
			Description:   a.Description,
			Category:      a.Category,
			Cost:          a.Cost,
			Location:      a.Location,
			ScheduledTime: a.ScheduledTime,
			BookingURL:    a.BookingURL,
			DiscountInfo:  a.DiscountInfo,
		})
	}
	return days
}
