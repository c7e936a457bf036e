package service

import (
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

// Fallback energy-need parameters for the pre-cutoff guarantee when a point
// has no boost/schedule configuration.
const (
	defaultBatteryKWh = 60.0
	defaultEfficiency = 0.92
	defaultTargetSoC  = 100
)

// PriceCalculator implements the cost-minimizing policy: full power when the
// current price is at or below the rolling median, minimum power otherwise.
// A pre-cutoff completion guarantee overrides the price comparison.
type PriceCalculator struct {
	MorningCutoff domain.ClockTime
	GridInterval  time.Duration
	MaxStaleness  time.Duration
}

// PriceInput bundles the snapshot a price decision is made from. The boost
// config only contributes the energy-need parameters; the cutoff guarantee
// is armed regardless of Boost.Enabled.
type PriceInput struct {
	Prices     *domain.PriceState
	Boost      domain.BoostConfig
	CurrentSoC *int
	Now        time.Time
}

// GridSlot is the wall-clock boundary the decision belongs to. Callers
// re-evaluate only when the slot changes so the setpoint does not thrash
// between grid boundaries.
func (c PriceCalculator) GridSlot(now time.Time) time.Time {
	return now.Truncate(c.GridInterval)
}

// Compute returns the price-mode target and whether the pre-cutoff override
// fired. Stale or missing price data fails soft to the minimum power; a
// favorable price is never guessed.
func (c PriceCalculator) Compute(in PriceInput, bounds domain.PowerBounds) (float64, bool) {
	if kw, ok := c.cutoffOverride(in, bounds); ok {
		return kw, true
	}

	if in.Prices == nil || in.Now.Sub(in.Prices.AsOf) > c.MaxStaleness {
		return bounds.MinKW, false
	}
	current, okCur := in.Prices.CurrentAt(in.Now)
	median, okMed := in.Prices.MedianAt(in.Now)
	if !okCur || !okMed {
		return bounds.MinKW, false
	}
	if current <= median {
		return bounds.MaxKW, false
	}
	return bounds.MinKW, false
}

// cutoffOverride checks whether charging at less than full power would risk
// missing the morning completion deadline.
func (c PriceCalculator) cutoffOverride(in PriceInput, bounds domain.PowerBounds) (float64, bool) {
	if in.CurrentSoC == nil {
		return 0, false
	}
	cutoff := c.MorningCutoff.NextAfter(in.Now)
	if cutoff.Day() != in.Now.Day() {
		// next occurrence is tomorrow: the pre-cutoff window has passed
		return 0, false
	}
	hoursRemaining := cutoff.Sub(in.Now).Hours()
	if hoursRemaining <= 0 {
		return 0, false
	}

	battery := in.Boost.BatteryKWh
	if battery <= 0 {
		battery = defaultBatteryKWh
	}
	efficiency := in.Boost.ChargeEfficiency
	if efficiency <= 0 {
		efficiency = defaultEfficiency
	}
	targetSoC := in.Boost.TargetSoC
	if targetSoC <= 0 {
		targetSoC = defaultTargetSoC
	}

	needed := EnergyNeededKWh(targetSoC, *in.CurrentSoC, battery, efficiency)
	if needed <= 0 {
		return 0, false
	}
	if needed/hoursRemaining > bounds.MinKW {
		return bounds.MaxKW, true
	}
	return 0, false
}
