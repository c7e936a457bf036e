package service

import (
	"testing"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPrice = PriceCalculator{
	MorningCutoff: domain.ClockTime{Hour: 7},
	GridInterval:  15 * time.Minute,
	MaxStaleness:  2 * time.Hour,
}

// priceSeries builds hourly slots around now with the given ct/kWh values,
// current first.
func priceSeries(now time.Time, ctPerKWh ...float64) *domain.PriceState {
	state := &domain.PriceState{AsOf: now}
	start := now.Truncate(time.Hour)
	for i, p := range ctPerKWh {
		state.Slots = append(state.Slots, domain.PriceSlot{
			Start:    start.Add(time.Duration(i) * time.Hour),
			End:      start.Add(time.Duration(i+1) * time.Hour),
			CtPerKWh: p,
		})
	}
	return state
}

func soc(v int) *int { return &v }

func TestPriceBelowMedianFullPower(t *testing.T) {
	now := time.Date(2024, 11, 12, 13, 0, 0, 0, time.Local)
	// current 8.2 vs median 9.0
	prices := priceSeries(now, 8.2, 9.0, 10.5)

	kw, override := testPrice.Compute(PriceInput{Prices: prices, Now: now, CurrentSoC: soc(90)}, testBounds)
	assert.False(t, override)
	assert.Equal(t, 11.0, kw)
}

func TestPriceAboveMedianMinPower(t *testing.T) {
	now := time.Date(2024, 11, 12, 13, 0, 0, 0, time.Local)
	prices := priceSeries(now, 12.4, 9.0, 10.5)

	kw, override := testPrice.Compute(PriceInput{Prices: prices, Now: now, CurrentSoC: soc(90)}, testBounds)
	assert.False(t, override)
	assert.Equal(t, 3.7, kw)
}

func TestPriceEqualMedianFullPower(t *testing.T) {
	now := time.Date(2024, 11, 12, 13, 0, 0, 0, time.Local)
	prices := priceSeries(now, 9.0, 9.0, 9.0)

	kw, _ := testPrice.Compute(PriceInput{Prices: prices, Now: now, CurrentSoC: soc(90)}, testBounds)
	assert.Equal(t, 11.0, kw)
}

func TestPriceMissingDataFailsSoftToMin(t *testing.T) {
	now := time.Date(2024, 11, 12, 13, 0, 0, 0, time.Local)

	kw, _ := testPrice.Compute(PriceInput{Prices: nil, Now: now, CurrentSoC: soc(90)}, testBounds)
	assert.Equal(t, 3.7, kw, "absent prices must never guess a favorable price")

	kw, _ = testPrice.Compute(PriceInput{Prices: &domain.PriceState{AsOf: now}, Now: now, CurrentSoC: soc(90)}, testBounds)
	assert.Equal(t, 3.7, kw, "empty series fails soft")
}

func TestPriceStaleDataFailsSoftToMin(t *testing.T) {
	now := time.Date(2024, 11, 12, 13, 0, 0, 0, time.Local)
	prices := priceSeries(now, 5.0, 9.0, 10.5)
	prices.AsOf = now.Add(-3 * time.Hour)

	kw, _ := testPrice.Compute(PriceInput{Prices: prices, Now: now, CurrentSoC: soc(90)}, testBounds)
	assert.Equal(t, 3.7, kw)
}

func TestPriceCutoffOverrideBeatsCheapMinute(t *testing.T) {
	require := require.New(t)
	// 05:00, two hours to the 07:00 cutoff, 40% SoC with a 60 kWh battery:
	// finishing needs far more than min power, so price must be ignored
	now := time.Date(2024, 11, 12, 5, 0, 0, 0, time.Local)
	prices := priceSeries(now, 20.0, 9.0, 8.0)

	in := PriceInput{
		Prices: prices,
		Boost: domain.BoostConfig{
			TargetSoC:        80,
			BatteryKWh:       60,
			ChargeEfficiency: 0.92,
		},
		CurrentSoC: soc(40),
		Now:        now,
	}
	kw, override := testPrice.Compute(in, testBounds)
	require.True(override, "completion guarantee must override the price comparison")
	require.Equal(11.0, kw)
}

func TestPriceOverrideIsBoostIndependent(t *testing.T) {
	// the guarantee stays armed with boost disabled and unconfigured
	now := time.Date(2024, 11, 12, 5, 0, 0, 0, time.Local)
	prices := priceSeries(now, 20.0, 9.0, 8.0)

	kw, override := testPrice.Compute(PriceInput{Prices: prices, CurrentSoC: soc(20), Now: now}, testBounds)
	assert.True(t, override)
	assert.Equal(t, 11.0, kw)
}

func TestPriceNoOverrideWhenTargetReachable(t *testing.T) {
	// 98% SoC at 05:00: the remaining energy fits into min power easily,
	// so the expensive slot falls back to min
	now := time.Date(2024, 11, 12, 5, 0, 0, 0, time.Local)
	prices := priceSeries(now, 20.0, 9.0, 8.0)

	in := PriceInput{
		Prices:     prices,
		Boost:      domain.BoostConfig{TargetSoC: 100, BatteryKWh: 60, ChargeEfficiency: 0.92},
		CurrentSoC: soc(98),
		Now:        now,
	}
	kw, override := testPrice.Compute(in, testBounds)
	assert.False(t, override)
	assert.Equal(t, 3.7, kw)
}

func TestPriceNoOverrideAfterCutoff(t *testing.T) {
	now := time.Date(2024, 11, 12, 9, 0, 0, 0, time.Local)
	prices := priceSeries(now, 20.0, 9.0, 8.0)

	kw, override := testPrice.Compute(PriceInput{Prices: prices, CurrentSoC: soc(10), Now: now}, testBounds)
	assert.False(t, override, "override window closes at the morning cutoff")
	assert.Equal(t, 3.7, kw)
}

func TestPriceNoOverrideWithoutSoC(t *testing.T) {
	now := time.Date(2024, 11, 12, 5, 0, 0, 0, time.Local)
	prices := priceSeries(now, 20.0, 9.0, 8.0)

	kw, override := testPrice.Compute(PriceInput{Prices: prices, Now: now}, testBounds)
	assert.False(t, override)
	assert.Equal(t, 3.7, kw)
}

func TestPriceGridSlot(t *testing.T) {
	now := time.Date(2024, 11, 12, 13, 7, 42, 0, time.UTC)
	slot := testPrice.GridSlot(now)
	assert.Equal(t, time.Date(2024, 11, 12, 13, 0, 0, 0, time.UTC), slot)

	assert.Equal(t, slot, testPrice.GridSlot(now.Add(7*time.Minute)), "same quarter hour, same slot")
	assert.NotEqual(t, slot, testPrice.GridSlot(now.Add(8*time.Minute)), "next quarter hour is a new slot")
}

func TestPriceResultAlwaysMinOrMax(t *testing.T) {
	require := require.New(t)
	now := time.Date(2024, 11, 12, 13, 0, 0, 0, time.Local)

	for _, cur := range []float64{0.1, 5, 9, 9.0001, 15, 42} {
		prices := priceSeries(now, cur, 9.0, 9.0, 9.0)
		kw, override := testPrice.Compute(PriceInput{Prices: prices, Now: now, CurrentSoC: soc(95)}, testBounds)
		require.False(override)
		require.Contains([]float64{testBounds.MinKW, testBounds.MaxKW}, kw)
	}
}
