package service

import (
	"testing"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *DefaultPowerPolicy {
	return &DefaultPowerPolicy{
		Bounds:      testBounds,
		BaseLimitKW: 11.0,
		Eco:         testEco,
		Price:       testPrice,
	}
}

func pointIn(mode domain.PowerMode) domain.TickInput {
	return domain.TickInput{
		State: domain.ChargePointState{ID: "cp1", Mode: mode},
		Eco:   domain.EcoConfig{SunnyKW: 11.0, CloudyKW: 3.7},
		Now:   time.Date(2024, 11, 12, 13, 2, 0, 0, time.Local),
	}
}

func TestPolicyOffIsZero(t *testing.T) {
	r := testPolicy().Evaluate(pointIn(domain.ModeOff))
	assert.Zero(t, r.TargetKW, "off bypasses the bounds entirely")
}

func TestPolicyMaxIsBaseLimit(t *testing.T) {
	r := testPolicy().Evaluate(pointIn(domain.ModeMax))
	assert.Equal(t, 11.0, r.TargetKW)
}

func TestPolicyManualIsSticky(t *testing.T) {
	require := require.New(t)
	in := pointIn(domain.ModeManual)
	in.State.ManualKW = 9.3
	// wildly different signals must not matter
	in.Weather = weatherWithRadiation(650)
	in.Prices = priceSeries(in.Now, 1.0, 9.0)

	for tick := 0; tick < 5; tick++ {
		r := testPolicy().Evaluate(in)
		require.Equal(9.3, r.TargetKW, "manual target holds until a mode command")
		in.Now = in.Now.Add(time.Minute)
	}
}

func TestPolicyManualClamped(t *testing.T) {
	in := pointIn(domain.ModeManual)
	in.State.ManualKW = 22.0
	assert.Equal(t, 11.0, testPolicy().Evaluate(in).TargetKW)

	in.State.ManualKW = 1.0
	assert.Equal(t, 3.7, testPolicy().Evaluate(in).TargetKW)
}

func TestPolicyEcoFollowsRadiation(t *testing.T) {
	in := pointIn(domain.ModeEco)
	in.Weather = weatherWithRadiation(425)

	r := testPolicy().Evaluate(in)
	assert.InDelta(t, 7.35, r.TargetKW, 0.001)
}

func TestPolicyEcoWithBoostRaise(t *testing.T) {
	require := require.New(t)
	in := pointIn(domain.ModeEco)
	in.Now = time.Date(2024, 11, 12, 3, 0, 0, 0, time.Local)
	in.Weather = weatherWithRadiation(0) // night: eco floor
	in.Boost = boostCfg(domain.ClockTime{Hour: 7})
	in.State.CurrentSoC = soc(40)

	r := testPolicy().Evaluate(in)
	// boost lifts the 3.7 kW eco floor to the 6.52 kW deadline requirement
	require.InDelta(6.52, r.TargetKW, 0.01)
}

func TestPolicyEcoBoostFallsBackAfterTargetMet(t *testing.T) {
	in := pointIn(domain.ModeEco)
	in.Now = time.Date(2024, 11, 12, 8, 0, 0, 0, time.Local)
	in.Weather = weatherWithRadiation(425)
	in.Boost = boostCfg(domain.ClockTime{Hour: 7})
	in.State.CurrentSoC = soc(85)

	r := testPolicy().Evaluate(in)
	assert.InDelta(t, 7.35, r.TargetKW, 0.001, "eco+boost falls back to plain eco after cutoff")
}

func TestPolicyScheduleDropsToZeroAfterCutoffWhenMet(t *testing.T) {
	in := pointIn(domain.ModeSchedule)
	in.Now = time.Date(2024, 11, 12, 8, 0, 0, 0, time.Local)
	in.Weather = weatherWithRadiation(425)
	in.Boost = boostCfg(domain.ClockTime{Hour: 7})
	in.State.CurrentSoC = soc(85)

	r := testPolicy().Evaluate(in)
	assert.Zero(t, r.TargetKW, "schedule drops to 0, not to the pre-boost eco value")
}

func TestPolicyScheduleKeepsChargingBeforeCutoff(t *testing.T) {
	require := require.New(t)
	in := pointIn(domain.ModeSchedule)
	in.Now = time.Date(2024, 11, 12, 3, 0, 0, 0, time.Local)
	in.Weather = weatherWithRadiation(0)
	in.Boost = boostCfg(domain.ClockTime{Hour: 7})
	in.Boost.Enabled = false // schedule forces boost context regardless
	in.State.CurrentSoC = soc(40)

	r := testPolicy().Evaluate(in)
	require.InDelta(6.52, r.TargetKW, 0.01)
}

func TestPolicyPriceThrottledToGridSlot(t *testing.T) {
	require := require.New(t)
	policy := testPolicy()

	in := pointIn(domain.ModePrice)
	in.State.CurrentSoC = soc(95)
	in.Prices = priceSeries(in.Now, 8.2, 9.0, 10.5)

	first := policy.Evaluate(in)
	require.Equal(11.0, first.TargetKW)

	// prices flip inside the same quarter hour: decision must hold
	in.Prices = priceSeries(in.Now, 99.0, 9.0, 10.5)
	in.PrevPriceSlot = first.PriceSlot
	in.PrevPriceTargetKW = first.TargetKW
	in.Now = in.Now.Add(5 * time.Second)

	second := policy.Evaluate(in)
	require.Equal(11.0, second.TargetKW, "price re-evaluates only at grid boundaries")

	// next slot picks up the new price
	in.PrevPriceSlot = second.PriceSlot
	in.PrevPriceTargetKW = second.TargetKW
	in.Now = in.Now.Truncate(15 * time.Minute).Add(15 * time.Minute)

	third := policy.Evaluate(in)
	require.Equal(3.7, third.TargetKW)
}

func TestPolicyPriceRecomputesAfterModeRoundTrip(t *testing.T) {
	require := require.New(t)
	policy := testPolicy()

	in := pointIn(domain.ModePrice)
	in.State.CurrentSoC = soc(100)
	in.Prices = priceSeries(in.Now, 8.2, 9.0, 10.5)

	first := policy.Evaluate(in)
	require.Equal(11.0, first.TargetKW)

	// operator drops to a manual limit inside the same quarter hour
	in.State.Mode = domain.ModeManual
	in.State.ManualKW = 9.3
	in.PrevPriceSlot = first.PriceSlot
	in.PrevPriceTargetKW = first.TargetKW
	in.Now = in.Now.Add(5 * time.Second)

	manual := policy.Evaluate(in)
	require.Equal(9.3, manual.TargetKW)
	require.True(manual.PriceSlot.IsZero(), "a non-price evaluation must drop the slot carry")

	// back to price before the slot rolls over: the manual value must not
	// leak through as a price decision
	in.State.Mode = domain.ModePrice
	in.PrevPriceSlot = manual.PriceSlot
	in.PrevPriceTargetKW = manual.TargetKW
	in.Now = in.Now.Add(5 * time.Second)

	back := policy.Evaluate(in)
	require.Equal(11.0, back.TargetKW)
	require.Contains([]float64{testBounds.MinKW, testBounds.MaxKW}, back.TargetKW)
}

func TestPolicyAllNonOffResultsWithinBounds(t *testing.T) {
	require := require.New(t)
	policy := testPolicy()

	modes := []domain.PowerMode{domain.ModeEco, domain.ModePrice, domain.ModeMax, domain.ModeManual, domain.ModeSchedule}
	for _, mode := range modes {
		in := pointIn(mode)
		in.State.ManualKW = 50
		in.State.CurrentSoC = soc(30)
		in.Boost = boostCfg(domain.ClockTime{Hour: 7})
		r := policy.Evaluate(in)
		if r.TargetKW == 0 {
			continue
		}
		require.GreaterOrEqual(r.TargetKW, testBounds.MinKW, "mode %s", mode)
		require.LessOrEqual(r.TargetKW, testBounds.MaxKW, "mode %s", mode)
	}
}

func TestPolicySessionForecast(t *testing.T) {
	require := require.New(t)
	in := pointIn(domain.ModeEco)
	in.Now = time.Date(2024, 11, 12, 3, 0, 0, 0, time.Local)
	in.Weather = weatherWithRadiation(0)
	in.Boost = boostCfg(domain.ClockTime{Hour: 7})
	in.State.CurrentSoC = soc(40)
	in.State.TxActive = true

	r := testPolicy().Evaluate(in)
	require.NotNil(r.SessionEstEndAt)
	require.True(r.SessionEstEndAt.After(in.Now))

	// without an active session there is no forecast
	in.State.TxActive = false
	r = testPolicy().Evaluate(in)
	require.Nil(r.SessionEstEndAt)
}
