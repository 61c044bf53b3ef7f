package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
)

const (
	reasonNoFlights      = "no qualifying flights within budget"
	reasonNoHotels       = "no qualifying hotels within budget"
	reasonNoActivities   = "no activities fit within the remaining budget"
	reasonFlightSearch   = "flight search failed"
	reasonHotelSearch    = "hotel search failed"
	reasonActivitySearch = "activity search failed"
)

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func violation(schema contracts.Schema, format string, args ...any) error {
	return &contracts.ViolationError{Schema: schema, Err: fmt.Errorf(format, args...)}
}

// providerFailure turns a provider error into a stage Failure unless the
// backend escalated it or the run itself was cancelled.
func providerFailure(ctx context.Context, component, reason string, err error) (*contracts.Failure, error) {
	if providers.IsFault(err) {
		return nil, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("%s search interrupted: %w", component, cerr)
	}
	f := contracts.Failure{Component: component, Reason: reason, ProviderError: err.Error()}
	if errors.Is(err, providers.ErrNoResults) {
		f.Reason = reason + ": no results"
	}
	return &f, nil
}

func (o *Orchestrator) plan(st *State) error {
	req := st.Request
	start, end, err := req.Dates()
	if err != nil {
		return err
	}
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return &models.ValidationError{Field: "end_date", Message: "must be after start_date"}
	}
	if !req.Budget.IsPositive() {
		return &models.ValidationError{Field: "budget", Message: "must be greater than zero"}
	}
	if req.NumTravelers <= 0 {
		return &models.ValidationError{Field: "num_travelers", Message: "must be greater than zero"}
	}

	alloc := o.split.Allocate(req.Budget)
	out := contracts.PlanningOutput{
		Source:                  req.Source,
		Destination:             req.Destination,
		StartDate:               req.StartDate,
		EndDate:                 req.EndDate,
		TripDuration:            days,
		NumTravelers:            req.NumTravelers,
		Interests:               nonNil(req.Interests),
		Budget:                  req.Budget,
		GroupCategory:           req.GroupCategory,
		Currency:                req.Currency,
		AllocatedFlightBudget:   alloc.Flight,
		AllocatedHotelBudget:    alloc.Hotel,
		AllocatedActivityBudget: alloc.Activity,
	}
	if err := contracts.Enforce(contracts.SchemaPlanningOutput, out); err != nil {
		return err
	}
	if alloc.Total() != req.Budget {
		return violation(contracts.SchemaPlanningOutput, "allocation %s does not add up to budget %s", alloc.Total(), req.Budget)
	}
	st.Planning = out
	st.Allocation = alloc
	st.Ledger = budget.NewLedger(req.Budget)
	st.history = []budget.Amount{req.Budget}
	return nil
}

func (o *Orchestrator) researchFlights(ctx context.Context, st *State) error {
	p := st.Planning
	in := contracts.FlightResearchInput{
		Source:                p.Source,
		Destination:           p.Destination,
		StartDate:             p.StartDate,
		EndDate:               p.EndDate,
		NumTravelers:          p.NumTravelers,
		Currency:              p.Currency,
		TotalBudget:           st.Ledger.Remaining(),
		AllocatedFlightBudget: st.Allocation.Flight,
	}
	if err := contracts.Enforce(contracts.SchemaFlightResearchInput, in); err != nil {
		return err
	}

	offers, err := o.providers.Flights.SearchFlights(ctx, providers.FlightQuery{
		Source:       in.Source,
		Destination:  in.Destination,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		NumTravelers: in.NumTravelers,
		Currency:     in.Currency,
		MaxPrice:     in.AllocatedFlightBudget,
	})
	if err != nil {
		failure, ferr := providerFailure(ctx, models.ComponentFlights, reasonFlightSearch, err)
		if ferr != nil {
			return ferr
		}
		o.logger.Printf("job %s: flight search failed: %v", st.JobID, err)
		st.Flight = contracts.Failed[contracts.FlightResearchOutput](contracts.StageFlightResearch, *failure)
		return st.advance(st.Ledger)
	}
	if len(offers) == 0 {
		st.Flight = contracts.Failed[contracts.FlightResearchOutput](contracts.StageFlightResearch,
			contracts.Failure{Component: models.ComponentFlights, Reason: reasonNoFlights})
		return st.advance(st.Ledger)
	}

	out, err := o.engine.SelectFlight(ctx, in, offers)
	if err != nil {
		return fmt.Errorf("select flight: %w", err)
	}
	if err := checkFlightSelection(in, offers, out); err != nil {
		return err
	}
	if out.Flight == nil {
		st.Flight = contracts.Failed[contracts.FlightResearchOutput](contracts.StageFlightResearch,
			contracts.Failure{Component: models.ComponentFlights, Reason: reasonNoFlights})
		return st.advance(st.Ledger)
	}

	next, err := st.Ledger.Spend(out.Flight.Price)
	if err != nil {
		return err
	}
	if err := st.advance(next); err != nil {
		return err
	}
	st.Flight = contracts.Succeeded(contracts.StageFlightResearch, out)
	o.archive(ctx, st, contracts.StageFlightResearch, "flight_research_task", out)
	return nil
}

func checkFlightSelection(in contracts.FlightResearchInput, offers []contracts.FlightOffer, out contracts.FlightResearchOutput) error {
	const schema = contracts.SchemaFlightResearchOutput
	if err := contracts.Enforce(schema, out); err != nil {
		return err
	}
	if out.Source != in.Source || out.Destination != in.Destination || out.StartDate != in.StartDate ||
		out.EndDate != in.EndDate || out.NumTravelers != in.NumTravelers {
		return violation(schema, "output does not carry the input trip")
	}
	if out.Flight == nil {
		if out.UpdatedRemainingBudget != in.TotalBudget {
			return violation(schema, "remaining budget changed without a flight")
		}
		return nil
	}
	found := false
	for _, offer := range offers {
		if offer == *out.Flight {
			found = true
			break
		}
	}
	if !found {
		return violation(schema, "selected flight %q is not among the candidates", out.Flight.FlightNumber)
	}
	if out.Flight.Price > in.AllocatedFlightBudget {
		return violation(schema, "flight price %s exceeds flight budget %s", out.Flight.Price, in.AllocatedFlightBudget)
	}
	if want := in.TotalBudget - out.Flight.Price; out.UpdatedRemainingBudget != want {
		return violation(schema, "updated remaining budget %s, want %s", out.UpdatedRemainingBudget, want)
	}
	return nil
}

func (o *Orchestrator) researchHotels(ctx context.Context, st *State) error {
	p := st.Planning
	in := contracts.HotelResearchInput{
		Destination:             p.Destination,
		StartDate:               p.StartDate,
		EndDate:                 p.EndDate,
		Interests:               p.Interests,
		NumTravelers:            p.NumTravelers,
		GroupCategory:           p.GroupCategory,
		Currency:                p.Currency,
		PreviousRemainingBudget: st.Ledger.Remaining(),
		AllocatedHotelBudget:    st.Allocation.Hotel,
	}
	if err := contracts.Enforce(contracts.SchemaHotelResearchInput, in); err != nil {
		return err
	}

	offers, err := o.providers.Hotels.SearchHotels(ctx, providers.HotelQuery{
		Destination:   in.Destination,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		NumTravelers:  in.NumTravelers,
		GroupCategory: string(in.GroupCategory),
		Interests:     in.Interests,
		Currency:      in.Currency,
		MaxTotal:      in.PreviousRemainingBudget,
	})
	if err != nil {
		failure, ferr := providerFailure(ctx, models.ComponentHotel, reasonHotelSearch, err)
		if ferr != nil {
			return ferr
		}
		o.logger.Printf("job %s: hotel search failed: %v", st.JobID, err)
		st.Hotel = contracts.Failed[contracts.HotelResearchOutput](contracts.StageHotelResearch, *failure)
		return st.advance(st.Ledger)
	}
	if len(offers) == 0 {
		st.Hotel = contracts.Failed[contracts.HotelResearchOutput](contracts.StageHotelResearch,
			contracts.Failure{Component: models.ComponentHotel, Reason: reasonNoHotels})
		return st.advance(st.Ledger)
	}

	out, err := o.engine.SelectHotel(ctx, in, offers)
	if err != nil {
		return fmt.Errorf("select hotel: %w", err)
	}
	if err := checkHotelSelection(in, offers, out); err != nil {
		return err
	}
	if out.Hotel == nil {
		st.Hotel = contracts.Failed[contracts.HotelResearchOutput](contracts.StageHotelResearch,
			contracts.Failure{Component: models.ComponentHotel, Reason: reasonNoHotels})
		return st.advance(st.Ledger)
	}

	next, err := st.Ledger.Spend(out.Hotel.TotalCost)
	if err != nil {
		return err
	}
	if err := st.advance(next); err != nil {
		return err
	}
	st.Hotel = contracts.Succeeded(contracts.StageHotelResearch, out)
	o.archive(ctx, st, contracts.StageHotelResearch, "hotel_research_task", out)
	return nil
}

func sameHotel(a, b contracts.HotelOffer) bool {
	return a.Name == b.Name && a.Address == b.Address && a.CheckIn == b.CheckIn &&
		a.CheckOut == b.CheckOut && a.TotalCost == b.TotalCost && a.NightlyRate == b.NightlyRate
}

func checkHotelSelection(in contracts.HotelResearchInput, offers []contracts.HotelOffer, out contracts.HotelResearchOutput) error {
	const schema = contracts.SchemaHotelResearchOutput
	if err := contracts.Enforce(schema, out); err != nil {
		return err
	}
	if out.Destination != in.Destination || out.StartDate != in.StartDate || out.EndDate != in.EndDate ||
		out.NumTravelers != in.NumTravelers || out.GroupCategory != in.GroupCategory {
		return violation(schema, "output does not carry the input trip")
	}
	if out.PreviousRemainingBudget != in.PreviousRemainingBudget {
		return violation(schema, "previous remaining budget %s, want %s", out.PreviousRemainingBudget, in.PreviousRemainingBudget)
	}
	if out.Hotel == nil {
		if out.UpdatedRemainingBudget != in.PreviousRemainingBudget {
			return violation(schema, "remaining budget changed without a hotel")
		}
		return nil
	}
	found := false
	for _, offer := range offers {
		if sameHotel(offer, *out.Hotel) {
			found = true
			break
		}
	}
	if !found {
		return violation(schema, "selected hotel %q is not among the candidates", out.Hotel.Name)
	}
	if out.Hotel.TotalCost > in.PreviousRemainingBudget {
		return violation(schema, "hotel cost %s exceeds remaining budget %s", out.Hotel.TotalCost, in.PreviousRemainingBudget)
	}
	if want := in.PreviousRemainingBudget - out.Hotel.TotalCost; out.UpdatedRemainingBudget != want {
		return violation(schema, "updated remaining budget %s, want %s", out.UpdatedRemainingBudget, want)
	}
	return nil
}

func (o *Orchestrator) anchor(st *State) contracts.HotelAnchor {
	if st.Hotel.OK() && st.Hotel.Value.Hotel != nil {
		h := st.Hotel.Value.Hotel
		return contracts.HotelAnchor{Name: h.Name, Address: h.Address, Latitude: h.Latitude, Longitude: h.Longitude}
	}
	return contracts.HotelAnchor{Name: st.Planning.Destination, Address: st.Planning.Destination}
}

func (o *Orchestrator) planActivities(ctx context.Context, st *State) error {
	p := st.Planning
	in := contracts.ActivityPlanningInput{
		Destination:             p.Destination,
		StartDate:               p.StartDate,
		EndDate:                 p.EndDate,
		Interests:               p.Interests,
		NumTravelers:            p.NumTravelers,
		GroupCategory:           p.GroupCategory,
		Currency:                p.Currency,
		HotelAnchor:             o.anchor(st),
		PreviousRemainingBudget: st.Ledger.Remaining(),
		AllocatedActivityBudget: st.Allocation.Activity,
	}
	if err := contracts.Enforce(contracts.SchemaActivityPlanningInput, in); err != nil {
		return err
	}

	candidates, err := o.providers.Activities.SearchActivities(ctx, providers.ActivityQuery{
		Destination:   in.Destination,
		Interests:     in.Interests,
		NumTravelers:  in.NumTravelers,
		GroupCategory: string(in.GroupCategory),
		Anchor:        in.HotelAnchor,
		Currency:      in.Currency,
		Budget:        in.PreviousRemainingBudget,
	})
	if err != nil {
		failure, ferr := providerFailure(ctx, models.ComponentActivities, reasonActivitySearch, err)
		if ferr != nil {
			return ferr
		}
		o.logger.Printf("job %s: activity search failed: %v", st.JobID, err)
		st.Activities = contracts.Failed[contracts.ActivityPlanningOutput](contracts.StageActivityPlanning, *failure)
		return st.advance(st.Ledger)
	}

	selected := selectActivities(candidates, in.PreviousRemainingBudget)
	if len(selected) == 0 {
		st.Activities = contracts.Failed[contracts.ActivityPlanningOutput](contracts.StageActivityPlanning,
			contracts.Failure{Component: models.ComponentActivities, Reason: reasonNoActivities})
		return st.advance(st.Ledger)
	}
	start, _, err := st.Request.Dates()
	if err != nil {
		return err
	}
	schedule(selected, start, p.TripDuration, in.HotelAnchor)

	out := contracts.ActivityPlanningOutput{
		Destination:             in.Destination,
		Interests:               nonNil(in.Interests),
		GroupCategory:           in.GroupCategory,
		HotelAnchor:             in.HotelAnchor,
		Activities:              selected,
		PreviousRemainingBudget: in.PreviousRemainingBudget,
	}
	out.FinalRemainingBudget = in.PreviousRemainingBudget - out.TotalCost()
	if err := contracts.Enforce(contracts.SchemaActivityPlanningOutput, out); err != nil {
		return err
	}

	next, err := st.Ledger.Spend(out.TotalCost())
	if err != nil {
		return err
	}
	if next.Remaining() != out.FinalRemainingBudget {
		return violation(contracts.SchemaActivityPlanningOutput, "final remaining budget %s, ledger has %s", out.FinalRemainingBudget, next.Remaining())
	}
	if err := st.advance(next); err != nil {
		return err
	}
	st.Activities = contracts.Succeeded(contracts.StageActivityPlanning, out)
	o.archive(ctx, st, contracts.StageActivityPlanning, "activity_planning_task", out)
	return nil
}

// selectActivities is greedy first-fit in provider order. It stops at the
// first candidate that would bring the running total to or past remaining.
func selectActivities(candidates []contracts.ActivityItem, remaining budget.Amount) []contracts.ActivityItem {
	var (
		selected []contracts.ActivityItem
		spent    budget.Amount
	)
	for _, c := range candidates {
		if c.Cost.IsNegative() || c.Name == "" {
			continue
		}
		if spent+c.Cost >= remaining {
			break
		}
		spent += c.Cost
		selected = append(selected, c)
	}
	return selected
}
