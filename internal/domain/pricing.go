package domain

import "time"

// Pricing is the resolved pricing strategy of a collection. Exactly one of
// the two implementations is attached to any collection; reading code can
// switch on the concrete type instead of probing two optional records.
type Pricing interface {
	// Method returns the strategy tag
	Method() PricingMethod
	// PriceAt returns the asking price in mutez at the given instant
	PriceAt(t time.Time) int64
}

// FixedPricing is a constant mint price
type FixedPricing struct {
	// Price is the mint price in mutez
	Price int64
	// OpensAt is when minting opens, nil for immediately
	OpensAt *time.Time
}

func (p FixedPricing) Method() PricingMethod { return PricingMethodFixed }

func (p FixedPricing) PriceAt(time.Time) int64 { return p.Price }

// DutchAuctionPricing is a decaying price that steps down through Levels,
// one step per DecrementDuration starting at OpensAt, and rests at the final
// level
type DutchAuctionPricing struct {
	// Levels are the successive prices in mutez, highest first
	Levels []int64
	// DecrementDuration is the time spent on each level
	DecrementDuration time.Duration
	// OpensAt is when the auction opens
	OpensAt time.Time
}

func (p DutchAuctionPricing) Method() PricingMethod { return PricingMethodDutchAuction }

func (p DutchAuctionPricing) PriceAt(t time.Time) int64 {
	if len(p.Levels) == 0 {
		return 0
	}
	if !t.After(p.OpensAt) || p.DecrementDuration <= 0 {
		return p.Levels[0]
	}
	step := int(t.Sub(p.OpensAt) / p.DecrementDuration)
	if step >= len(p.Levels) {
		step = len(p.Levels) - 1
	}
	return p.Levels[step]
}

// OpeningPrice returns the price a dutch auction starts at. This is also the
// value range filters compare against before the auction opens.
func (p DutchAuctionPricing) OpeningPrice() int64 {
	if len(p.Levels) == 0 {
		return 0
	}
	return p.Levels[0]
}
