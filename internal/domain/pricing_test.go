package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedPricingPriceAt(t *testing.T) {
	p := FixedPricing{Price: 1_500_000}
	assert.Equal(t, PricingMethodFixed, p.Method())
	assert.Equal(t, int64(1_500_000), p.PriceAt(time.Now()))
	assert.Equal(t, int64(1_500_000), p.PriceAt(time.Time{}))
}

func TestDutchAuctionPricingPriceAt(t *testing.T) {
	opens := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := DutchAuctionPricing{
		Levels:            []int64{1_000_000, 500_000, 250_000, 100_000},
		DecrementDuration: 5 * time.Minute,
		OpensAt:           opens,
	}

	tests := []struct {
		name     string
		at       time.Time
		expected int64
	}{
		{"before opening", opens.Add(-time.Hour), 1_000_000},
		{"at opening", opens, 1_000_000},
		{"during first level", opens.Add(3 * time.Minute), 1_000_000},
		{"second level", opens.Add(5 * time.Minute), 500_000},
		{"third level", opens.Add(12 * time.Minute), 250_000},
		{"rests at final level", opens.Add(24 * time.Hour), 100_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.PriceAt(tt.at))
		})
	}

	assert.Equal(t, PricingMethodDutchAuction, p.Method())
	assert.Equal(t, int64(1_000_000), p.OpeningPrice())
}
