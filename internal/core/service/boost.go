package service

import (
	"math"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

// EnergyNeededKWh is the battery energy still to be delivered to move from
// currentSoC to targetSoC, corrected for charge losses. Efficiency must have
// been validated at the configuration boundary; it is never zero here.
func EnergyNeededKWh(targetSoC, currentSoC int, batteryKWh, efficiency float64) float64 {
	need := math.Max(0, float64(targetSoC-currentSoC)) / 100 * batteryKWh / efficiency
	return need
}

// ComputeBoost returns the boost-adjusted target. Boost only ever raises the
// base target, never lowers it. With no known SoC the calculator is inert.
func ComputeBoost(cfg domain.BoostConfig, currentSoC *int, now time.Time, baseTargetKW float64, bounds domain.PowerBounds) float64 {
	if !cfg.Enabled || currentSoC == nil {
		return baseTargetKW
	}
	cutoff := cfg.CutoffLocal.NextAfter(now)
	hoursRemaining := math.Max(0, cutoff.Sub(now).Hours())
	if hoursRemaining == 0 {
		// expired for this cycle, fall through to the base policy
		return baseTargetKW
	}
	needed := EnergyNeededKWh(cfg.TargetSoC, *currentSoC, cfg.BatteryKWh, cfg.ChargeEfficiency)
	if needed <= 0 {
		return baseTargetKW
	}
	requiredKW := needed / hoursRemaining
	return bounds.Clamp(math.Max(baseTargetKW, requiredKW))
}
