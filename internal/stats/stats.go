// Package stats derives a collection's market snapshot from its raw market
// activity. Everything here is a pure function of its inputs so snapshots
// can be recomputed at any time and the arithmetic is testable without a
// database.
package stats

import (
	"sort"
	"time"
)

// Sale is one settled secondary sale
type Sale struct {
	// Price is the settled price in mutez
	Price int64
	// At is when the sale settled
	At time.Time
}

// Inputs is the raw market activity a snapshot derives from
type Inputs struct {
	// AskPrices are the prices of the currently active listings
	AskPrices []int64
	// MintPrices are the amounts paid across primary mints
	MintPrices []int64
	// Sales are the settled secondary sales, any order
	Sales []Sale
	// Now anchors the trailing 24h window
	Now time.Time
}

// Snapshot is the derived market state of one collection. A nil field means
// no qualifying activity exists, which is distinct from a zero amount.
type Snapshot struct {
	Floor               *int64
	Median              *int64
	TotalListing        int64
	HighestSold         *int64
	LowestSold          *int64
	PrimaryTotal        *int64
	SecondaryVolumeTz   *int64
	SecondaryVolumeNb   *int64
	SecondaryVolumeTz24 *int64
	SecondaryVolumeNb24 *int64
}

// Compute derives the snapshot
func Compute(in Inputs) Snapshot {
	var snap Snapshot

	snap.TotalListing = int64(len(in.AskPrices))
	if len(in.AskPrices) > 0 {
		asks := make([]int64, len(in.AskPrices))
		copy(asks, in.AskPrices)
		sort.Slice(asks, func(i, j int) bool { return asks[i] < asks[j] })

		snap.Floor = ptr(asks[0])
		snap.Median = ptr(median(asks))
	}

	if len(in.MintPrices) > 0 {
		var total int64
		for _, p := range in.MintPrices {
			total += p
		}
		snap.PrimaryTotal = ptr(total)
	}

	if len(in.Sales) > 0 {
		var volume, volume24, count24 int64
		highest, lowest := in.Sales[0].Price, in.Sales[0].Price
		cutoff := in.Now.Add(-24 * time.Hour)

		for _, sale := range in.Sales {
			volume += sale.Price
			if sale.Price > highest {
				highest = sale.Price
			}
			if sale.Price < lowest {
				lowest = sale.Price
			}
			if sale.At.After(cutoff) {
				volume24 += sale.Price
				count24++
			}
		}

		snap.HighestSold = ptr(highest)
		snap.LowestSold = ptr(lowest)
		snap.SecondaryVolumeTz = ptr(volume)
		snap.SecondaryVolumeNb = ptr(int64(len(in.Sales)))
		if count24 > 0 {
			snap.SecondaryVolumeTz24 = ptr(volume24)
			snap.SecondaryVolumeNb24 = ptr(count24)
		}
	}

	return snap
}

// median of a sorted slice; an even count averages the two middle values
func median(sorted []int64) int64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func ptr(v int64) *int64 {
	return &v
}
