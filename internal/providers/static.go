package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

// StaticCatalog is a deterministic backend used when no provider keys are
// configured and in tests. Prices scale with traveler count and nights.
type StaticCatalog struct {
	FlightFarePerTraveler   []budget.Amount
	HotelNightlyRates       []budget.Amount
	ActivityCostPerTraveler budget.Amount
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		FlightFarePerTraveler:   []budget.Amount{budget.Units(95), budget.Units(140), budget.Units(210)},
		HotelNightlyRates:       []budget.Amount{budget.Units(80), budget.Units(120), budget.Units(190)},
		ActivityCostPerTraveler: budget.Units(30),
	}
}

var staticCarriers = []string{"IndiGo", "Air India", "Vistara"}

func (c *StaticCatalog) SearchFlights(ctx context.Context, q FlightQuery) ([]contracts.FlightOffer, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	travelers := int64(max(q.NumTravelers, 1))
	offers := make([]contracts.FlightOffer, 0, len(c.FlightFarePerTraveler))
	for i, fare := range c.FlightFarePerTraveler {
		carrier := staticCarriers[i%len(staticCarriers)]
		offers = append(offers, contracts.FlightOffer{
			Airline:             carrier,
			FlightNumber:        fmt.Sprintf("%s %d", carrierCode(carrier), 300+i*111),
			DepartureTime:       q.StartDate + "T06:30:00",
			ArrivalTime:         q.StartDate + "T08:45:00",
			ReturnDepartureTime: q.EndDate + "T19:15:00",
			ReturnArrivalTime:   q.EndDate + "T21:30:00",
			Stops:               i % 2,
			Price:               fare * budget.Amount(travelers),
		})
	}
	return offers, nil
}

func (c *StaticCatalog) SearchHotels(ctx context.Context, q HotelQuery) ([]contracts.HotelOffer, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	nights := stayNights(q.StartDate, q.EndDate)
	rooms := int64((max(q.NumTravelers, 1) + 1) / 2)
	names := []string{"Harbour View Inn", "Gateway Residency", "Marine Drive Grand"}
	ratings := []float64{3.8, 4.3, 4.7}
	lat, lon := 18.9220, 72.8347
	offers := make([]contracts.HotelOffer, 0, len(c.HotelNightlyRates))
	for i, nightly := range c.HotelNightlyRates {
		rate := nightly * budget.Amount(rooms)
		rating := ratings[i%len(ratings)]
		hlat, hlon := lat+float64(i)*0.01, lon+float64(i)*0.01
		offers = append(offers, contracts.HotelOffer{
			Name:        names[i%len(names)],
			Address:     fmt.Sprintf("%s, %s", names[i%len(names)], q.Destination),
			CheckIn:     q.StartDate + "T14:00:00",
			CheckOut:    q.EndDate + "T11:00:00",
			NightlyRate: rate,
			TotalCost:   rate * budget.Amount(nights),
			Rating:      &rating,
			Latitude:    &hlat,
			Longitude:   &hlon,
			Amenities:   []string{"wifi", "breakfast"},
		})
	}
	return offers, nil
}

func (c *StaticCatalog) SearchActivities(ctx context.Context, q ActivityQuery) ([]contracts.ActivityItem, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	tags := q.Interests
	if len(tags) == 0 {
		tags = []string{"sightseeing"}
	}
	cost := c.ActivityCostPerTraveler * budget.Amount(max(q.NumTravelers, 1))
	var items []contracts.ActivityItem
	for _, tag := range tags {
		for n := 1; n <= 2; n++ {
			items = append(items, contracts.ActivityItem{
				Name:        fmt.Sprintf("%s experience %d", titleCase(tag), n),
				Description: fmt.Sprintf("Guided %s outing near %s", tag, q.Anchor.Name),
				Category:    tag,
				Cost:        cost,
				Location:    q.Destination,
			})
		}
	}
	return items, nil
}

func stayNights(start, end string) int64 {
	s, err1 := time.Parse("2006-01-02", start)
	e, err2 := time.Parse("2006-01-02", end)
	if err1 != nil || err2 != nil || !e.After(s) {
		return 1
	}
	return int64(e.Sub(s).Hours() / 24)
}

func carrierCode(name string) string {
	switch name {
	case "IndiGo":
		return "6E"
	case "Air India":
		return "AI"
	default:
		return "UK"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
