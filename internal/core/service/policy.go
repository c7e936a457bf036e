package service

import (
	"math"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"

	"go.uber.org/zap"
)

// DefaultPowerPolicy is the per-tick mode state machine. It selects the
// calculator the current mode asks for, applies override precedence and
// clamps every non-off result to the global bounds.
type DefaultPowerPolicy struct {
	Bounds      domain.PowerBounds
	BaseLimitKW float64
	Eco         EcoCalculator
	Price       PriceCalculator
	Logger      *zap.Logger
}

func (p *DefaultPowerPolicy) Evaluate(in domain.TickInput) domain.TickResult {
	// only a price evaluation refreshes the grid-slot carry; any other mode
	// zeroes it so that re-entering price recomputes instead of republishing
	// a target the previous mode decided
	var result domain.TickResult

	switch in.State.Mode {
	case domain.ModeOff:
		result.TargetKW = 0
	case domain.ModeManual:
		result.TargetKW = p.Bounds.Clamp(in.State.ManualKW)
	case domain.ModeMax:
		result.TargetKW = p.Bounds.Clamp(p.BaseLimitKW)
	case domain.ModePrice:
		result = p.evaluatePrice(in)
	case domain.ModeEco:
		target := p.Eco.Compute(in.Weather, in.Eco, p.Bounds, p.BaseLimitKW)
		if in.Boost.Enabled {
			target = ComputeBoost(in.Boost, in.State.CurrentSoC, in.Now, target, p.Bounds)
		}
		result.TargetKW = p.Bounds.Clamp(target)
	case domain.ModeSchedule:
		result.TargetKW = p.evaluateSchedule(in)
	default:
		// unknown mode is treated as off; a wrong number can over-draw a breaker
		if p.Logger != nil {
			p.Logger.Warn("policy: unknown mode, forcing off", zap.String("mode", string(in.State.Mode)))
		}
		result.TargetKW = 0
	}

	result.SessionEstEndAt = estimateSessionEnd(in, result.TargetKW)
	return result
}

// evaluatePrice re-evaluates only when the 15-minute wall-clock slot changed;
// inside a slot the previous decision is carried over.
func (p *DefaultPowerPolicy) evaluatePrice(in domain.TickInput) domain.TickResult {
	slot := p.Price.GridSlot(in.Now)
	if slot.Equal(in.PrevPriceSlot) && in.PrevPriceTargetKW > 0 {
		return domain.TickResult{
			TargetKW:      p.Bounds.Clamp(in.PrevPriceTargetKW),
			PriceSlot:     slot,
			PriceOverride: in.PrevPriceOverride,
		}
	}
	kw, override := p.Price.Compute(PriceInput{
		Prices:     in.Prices,
		Boost:      in.Boost,
		CurrentSoC: in.State.CurrentSoC,
		Now:        in.Now,
	}, p.Bounds)
	return domain.TickResult{
		TargetKW:      p.Bounds.Clamp(kw),
		PriceSlot:     slot,
		PriceOverride: override,
	}
}

// evaluateSchedule is eco with mandatory boost context. Once the SoC target
// is met and the cutoff has passed, the target drops to 0 instead of falling
// back to the eco value.
func (p *DefaultPowerPolicy) evaluateSchedule(in domain.TickInput) float64 {
	if in.State.CurrentSoC != nil && *in.State.CurrentSoC >= in.Boost.TargetSoC && cutoffPassedToday(in.Boost.CutoffLocal, in.Now) {
		return 0
	}
	eco := p.Eco.Compute(in.Weather, in.Eco, p.Bounds, p.BaseLimitKW)
	boost := in.Boost
	boost.Enabled = true
	return p.Bounds.Clamp(ComputeBoost(boost, in.State.CurrentSoC, in.Now, eco, p.Bounds))
}

// cutoffPassedToday reports whether today's occurrence of the cutoff is
// already behind now. The cycle resets at local midnight.
func cutoffPassedToday(cutoff domain.ClockTime, now time.Time) bool {
	next := cutoff.NextAfter(now)
	ny, nm, nd := now.Date()
	cy, cm, cd := next.Date()
	return ny != cy || nm != cm || nd != cd
}

// estimateSessionEnd forecasts when the active session reaches its SoC
// target at the decided power.
func estimateSessionEnd(in domain.TickInput, targetKW float64) *time.Time {
	if !in.State.TxActive || in.State.CurrentSoC == nil || targetKW <= 0 {
		return nil
	}
	targetSoC := 100
	if in.Boost.Enabled && (in.State.Mode == domain.ModeEco || in.State.Mode == domain.ModeSchedule) {
		targetSoC = in.Boost.TargetSoC
	}
	needSoC := math.Max(0, float64(targetSoC-*in.State.CurrentSoC))
	if needSoC == 0 {
		return nil
	}
	battery := in.Boost.BatteryKWh
	if battery <= 0 {
		battery = defaultBatteryKWh
	}
	efficiency := math.Max(0.5, math.Min(1.0, in.Boost.ChargeEfficiency))
	if in.Boost.ChargeEfficiency == 0 {
		efficiency = defaultEfficiency
	}
	hours := (needSoC / 100 * battery) / (targetKW * efficiency)
	end := in.Now.Add(time.Duration(hours * float64(time.Hour)))
	return &end
}

// ensure interface compliance
var _ port.PowerPolicy = (*DefaultPowerPolicy)(nil)
