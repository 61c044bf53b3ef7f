package budget

import (
	"errors"
	"fmt"
)

var ErrNegativeCost = errors.New("cost must not be negative")

// Ledger is the running remaining budget handed from stage to stage. It is a
// value: Spend returns a new Ledger and never mutates the receiver.
//
// Remaining never goes below zero. Spending past zero is recorded as a
// deficit so Net can still report the overspend.
type Ledger struct {
	total     Amount
	remaining Amount
	deficit   Amount
}

func NewLedger(total Amount) Ledger {
	return Ledger{total: total, remaining: total}
}

func (l Ledger) Total() Amount     { return l.total }
func (l Ledger) Remaining() Amount { return l.remaining }
func (l Ledger) Deficit() Amount   { return l.deficit }

// Net is remaining minus deficit; negative means the plan overspends.
func (l Ledger) Net() Amount { return l.remaining - l.deficit }

// Spent is everything charged against the ledger so far.
func (l Ledger) Spent() Amount { return l.total - l.Net() }

// Spend charges cost against the ledger.
func (l Ledger) Spend(cost Amount) (Ledger, error) {
	if cost < 0 {
		return l, fmt.Errorf("%w: %s", ErrNegativeCost, cost)
	}
	next := l
	if cost <= l.remaining {
		next.remaining = l.remaining - cost
		return next, nil
	}
	next.deficit = l.deficit + (cost - l.remaining)
	next.remaining = 0
	return next, nil
}
