package domain

import "time"

// TickInput is the read-only snapshot one charge point is evaluated from.
// Weather and Prices may be nil when the signal cache has nothing fresh.
type TickInput struct {
	State   ChargePointState
	Boost   BoostConfig
	Eco     EcoConfig
	Weather *WeatherSample
	Prices  *PriceState

	// Price-mode grid throttle carry-over from the previous evaluation.
	PrevPriceSlot     time.Time
	PrevPriceTargetKW float64
	PrevPriceOverride bool

	Now time.Time
}

// TickResult is what one evaluation decides.
type TickResult struct {
	TargetKW        float64
	PriceSlot       time.Time
	PriceOverride   bool
	SessionEstEndAt *time.Time
}
