// Package providers defines one search interface per domain (flights,
// hotels, activities) and the backends that implement them.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

type FlightQuery struct {
	Source       string
	Destination  string
	StartDate    string
	EndDate      string
	NumTravelers int
	Currency     string
	MaxPrice     budget.Amount
}

type HotelQuery struct {
	Destination   string
	StartDate     string
	EndDate       string
	NumTravelers  int
	GroupCategory string
	Interests     []string
	Currency      string
	MaxTotal      budget.Amount
}

type ActivityQuery struct {
	Destination   string
	Interests     []string
	NumTravelers  int
	GroupCategory string
	Anchor        contracts.HotelAnchor
	Currency      string
	Budget        budget.Amount
}

// FlightSearcher returns candidate offers in provider order. Max* fields in
// queries are hints; callers still filter by budget.
type FlightSearcher interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]contracts.FlightOffer, error)
}

type HotelSearcher interface {
	SearchHotels(ctx context.Context, q HotelQuery) ([]contracts.HotelOffer, error)
}

type ActivitySearcher interface {
	SearchActivities(ctx context.Context, q ActivityQuery) ([]contracts.ActivityItem, error)
}

// Set bundles one backend per domain.
type Set struct {
	Flights    FlightSearcher
	Hotels     HotelSearcher
	Activities ActivitySearcher
}

func (s Set) Validate() error {
	if s.Flights == nil || s.Hotels == nil || s.Activities == nil {
		return fmt.Errorf("flight, hotel and activity searchers are all required")
	}
	return nil
}

// ErrNoResults is returned when a provider answered but found nothing.
var ErrNoResults = errors.New("no results")

// ProviderError is a provider call that failed after the backend's own
// retries. Stages turn it into a Failure carrying the message.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Fault is an error a backend escalates past the stage, e.g. rejected
// credentials. The job attempt fails.
type Fault struct {
	Provider string
	Err      error
}

func (e *Fault) Error() string {
	return fmt.Sprintf("%s fault: %v", e.Provider, e.Err)
}

func (e *Fault) Unwrap() error { return e.Err }

// IsFault reports whether err must escalate to the orchestrator.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
