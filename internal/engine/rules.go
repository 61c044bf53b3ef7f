package engine

import (
	"context"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

// Rules is the deterministic engine.
//
// Flights: the fewest stops, then the lowest price, among offers within the
// flight sub-ledger. Hotels: the best rated offer within the hotel
// sub-ledger; failing that the cheapest one within the remaining ledger.
// Ties keep provider order.
type Rules struct{}

func NewRules() *Rules { return &Rules{} }

func (Rules) SelectFlight(ctx context.Context, in contracts.FlightResearchInput, candidates []contracts.FlightOffer) (contracts.FlightResearchOutput, error) {
	if err := ctx.Err(); err != nil {
		return contracts.FlightResearchOutput{}, err
	}
	var best *contracts.FlightOffer
	for i := range candidates {
		c := &candidates[i]
		if !c.Price.IsPositive() || c.Price > in.AllocatedFlightBudget {
			continue
		}
		if best == nil || c.Stops < best.Stops || (c.Stops == best.Stops && c.Price < best.Price) {
			best = c
		}
	}
	return FlightOutput(in, best), nil
}

func (Rules) SelectHotel(ctx context.Context, in contracts.HotelResearchInput, candidates []contracts.HotelOffer) (contracts.HotelResearchOutput, error) {
	if err := ctx.Err(); err != nil {
		return contracts.HotelResearchOutput{}, err
	}
	var rated *contracts.HotelOffer
	for i := range candidates {
		c := &candidates[i]
		if !c.TotalCost.IsPositive() || c.TotalCost > in.AllocatedHotelBudget || c.TotalCost > in.PreviousRemainingBudget {
			continue
		}
		if rated == nil || rating(c) > rating(rated) {
			rated = c
		}
	}
	if rated != nil {
		return HotelOutput(in, rated), nil
	}
	return HotelOutput(in, cheapestHotel(candidates, in.PreviousRemainingBudget)), nil
}

func cheapestHotel(candidates []contracts.HotelOffer, limit budget.Amount) *contracts.HotelOffer {
	var best *contracts.HotelOffer
	for i := range candidates {
		c := &candidates[i]
		if !c.TotalCost.IsPositive() || c.TotalCost > limit {
			continue
		}
		if best == nil || c.TotalCost < best.TotalCost {
			best = c
		}
	}
	return best
}

func rating(h *contracts.HotelOffer) float64 {
	if h.Rating == nil {
		return 0
	}
	return *h.Rating
}
