package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_EmptyInputs(t *testing.T) {
	snap := Compute(Inputs{Now: time.Now()})

	assert.Nil(t, snap.Floor)
	assert.Nil(t, snap.Median)
	assert.Equal(t, int64(0), snap.TotalListing)
	assert.Nil(t, snap.HighestSold)
	assert.Nil(t, snap.LowestSold)
	assert.Nil(t, snap.PrimaryTotal)
	assert.Nil(t, snap.SecondaryVolumeTz)
	assert.Nil(t, snap.SecondaryVolumeNb)
	assert.Nil(t, snap.SecondaryVolumeTz24)
	assert.Nil(t, snap.SecondaryVolumeNb24)
}

func TestCompute_Listings(t *testing.T) {
	tests := []struct {
		name         string
		asks         []int64
		expectFloor  int64
		expectMedian int64
	}{
		{
			name:         "single listing",
			asks:         []int64{100},
			expectFloor:  100,
			expectMedian: 100,
		},
		{
			name:         "odd count takes middle",
			asks:         []int64{300, 100, 200},
			expectFloor:  100,
			expectMedian: 200,
		},
		{
			name:         "even count averages middle pair",
			asks:         []int64{400, 100, 300, 200},
			expectFloor:  100,
			expectMedian: 250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Compute(Inputs{AskPrices: tt.asks, Now: time.Now()})

			require.NotNil(t, snap.Floor)
			require.NotNil(t, snap.Median)
			assert.Equal(t, tt.expectFloor, *snap.Floor)
			assert.Equal(t, tt.expectMedian, *snap.Median)
			assert.Equal(t, int64(len(tt.asks)), snap.TotalListing)
		})
	}
}

func TestCompute_PrimaryTotal(t *testing.T) {
	snap := Compute(Inputs{MintPrices: []int64{10, 20}, Now: time.Now()})

	require.NotNil(t, snap.PrimaryTotal)
	assert.Equal(t, int64(30), *snap.PrimaryTotal)
}

func TestCompute_SecondarySales(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := Compute(Inputs{
		Sales: []Sale{
			{Price: 15, At: now.Add(-48 * time.Hour)},
			{Price: 25, At: now.Add(-1 * time.Hour)},
		},
		Now: now,
	})

	require.NotNil(t, snap.SecondaryVolumeTz)
	require.NotNil(t, snap.SecondaryVolumeNb)
	assert.Equal(t, int64(40), *snap.SecondaryVolumeTz)
	assert.Equal(t, int64(2), *snap.SecondaryVolumeNb)

	require.NotNil(t, snap.LowestSold)
	require.NotNil(t, snap.HighestSold)
	assert.Equal(t, int64(15), *snap.LowestSold)
	assert.Equal(t, int64(25), *snap.HighestSold)

	// Only the recent sale falls inside the trailing window
	require.NotNil(t, snap.SecondaryVolumeTz24)
	require.NotNil(t, snap.SecondaryVolumeNb24)
	assert.Equal(t, int64(25), *snap.SecondaryVolumeTz24)
	assert.Equal(t, int64(1), *snap.SecondaryVolumeNb24)
}

func TestCompute_NoSalesInsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := Compute(Inputs{
		Sales: []Sale{{Price: 50, At: now.Add(-72 * time.Hour)}},
		Now:   now,
	})

	require.NotNil(t, snap.SecondaryVolumeTz)
	assert.Equal(t, int64(50), *snap.SecondaryVolumeTz)
	assert.Nil(t, snap.SecondaryVolumeTz24)
	assert.Nil(t, snap.SecondaryVolumeNb24)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	asks := []int64{300, 100, 200}
	Compute(Inputs{AskPrices: asks, Now: time.Now()})

	assert.Equal(t, []int64{300, 100, 200}, asks)
}
