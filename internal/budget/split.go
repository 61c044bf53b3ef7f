package budget

import "fmt"

// Split is the percentage policy used to carve the total budget into the
// flight, hotel and activity sub-ledgers.
type Split struct {
	FlightPct   int `json:"flightPct"`
	HotelPct    int `json:"hotelPct"`
	ActivityPct int `json:"activityPct"`
}

// DefaultSplit matches the 40/42/18 allocation the planner has always used.
var DefaultSplit = Split{FlightPct: 40, HotelPct: 42, ActivityPct: 18}

func (s Split) Validate() error {
	if s.FlightPct < 0 || s.HotelPct < 0 || s.ActivityPct < 0 {
		return fmt.Errorf("budget split percentages must be non-negative (got %d/%d/%d)", s.FlightPct, s.HotelPct, s.ActivityPct)
	}
	if sum := s.FlightPct + s.HotelPct + s.ActivityPct; sum != 100 {
		return fmt.Errorf("budget split must sum to 100 (got %d)", sum)
	}
	return nil
}

// Allocation is the result of applying a Split to a total.
type Allocation struct {
	Flight   Amount `json:"flight"`
	Hotel    Amount `json:"hotel"`
	Activity Amount `json:"activity"`
}

func (a Allocation) Total() Amount {
	return a.Flight + a.Hotel + a.Activity
}

// Allocate applies the split. Rounding remainders land on the activity
// sub-ledger so the three parts always add up to total.
func (s Split) Allocate(total Amount) Allocation {
	flight := percent(total, s.FlightPct)
	hotel := percent(total, s.HotelPct)
	return Allocation{
		Flight:   flight,
		Hotel:    hotel,
		Activity: total - flight - hotel,
	}
}

// percent is total*pct/100 rounded down, split so the product cannot
// overflow for any non-negative total.
func percent(total Amount, pct int) Amount {
	p := Amount(pct)
	return total/100*p + total%100*p/100
}
