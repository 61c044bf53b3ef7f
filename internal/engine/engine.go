// Package engine chooses one flight and one hotel out of the candidates the
// providers returned. The pipeline checks every selection it gets back, so a
// backend can be replaced without trusting it.
package engine

import (
	"context"

	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

// Engine selects among candidates for a research stage. A nil Flight or
// Hotel in the output means nothing qualified.
type Engine interface {
	SelectFlight(ctx context.Context, in contracts.FlightResearchInput, candidates []contracts.FlightOffer) (contracts.FlightResearchOutput, error)
	SelectHotel(ctx context.Context, in contracts.HotelResearchInput, candidates []contracts.HotelOffer) (contracts.HotelResearchOutput, error)
}

// FlightOutput builds the output contract for a chosen offer (or none).
func FlightOutput(in contracts.FlightResearchInput, chosen *contracts.FlightOffer) contracts.FlightResearchOutput {
	out := contracts.FlightResearchOutput{
		Source:                 in.Source,
		Destination:            in.Destination,
		StartDate:              in.StartDate,
		EndDate:                in.EndDate,
		NumTravelers:           in.NumTravelers,
		UpdatedRemainingBudget: in.TotalBudget,
	}
	if chosen != nil {
		f := *chosen
		out.Flight = &f
		out.UpdatedRemainingBudget = in.TotalBudget - f.Price
	}
	return out
}

// HotelOutput builds the output contract for a chosen offer (or none).
func HotelOutput(in contracts.HotelResearchInput, chosen *contracts.HotelOffer) contracts.HotelResearchOutput {
	interests := in.Interests
	if interests == nil {
		interests = []string{}
	}
	out := contracts.HotelResearchOutput{
		Destination:             in.Destination,
		StartDate:               in.StartDate,
		EndDate:                 in.EndDate,
		Interests:               interests,
		NumTravelers:            in.NumTravelers,
		GroupCategory:           in.GroupCategory,
		PreviousRemainingBudget: in.PreviousRemainingBudget,
		UpdatedRemainingBudget:  in.PreviousRemainingBudget,
	}
	if chosen != nil {
		h := *chosen
		out.Hotel = &h
		out.UpdatedRemainingBudget = in.PreviousRemainingBudget - h.TotalCost
	}
	return out
}
