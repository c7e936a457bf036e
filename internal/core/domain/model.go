package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownPoint is returned for requests addressing a point id the
// engine does not manage.
var ErrUnknownPoint = errors.New("unknown charge point")

// PowerMode selects the policy that computes a charge point's target power.
type PowerMode string

const (
	ModeEco      PowerMode = "eco"
	ModePrice    PowerMode = "price"
	ModeMax      PowerMode = "max"
	ModeOff      PowerMode = "off"
	ModeManual   PowerMode = "manual"
	ModeSchedule PowerMode = "schedule"
)

func ParsePowerMode(s string) (PowerMode, error) {
	switch PowerMode(s) {
	case ModeEco, ModePrice, ModeMax, ModeOff, ModeManual, ModeSchedule:
		return PowerMode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// PowerBounds is the process-wide allowed charging power range.
// The explicit off value 0 bypasses the bounds.
type PowerBounds struct {
	MinKW float64
	MaxKW float64
}

func (b PowerBounds) Clamp(kw float64) float64 {
	if kw == 0 {
		return 0
	}
	if kw < b.MinKW {
		return b.MinKW
	}
	if kw > b.MaxKW {
		return b.MaxKW
	}
	return kw
}

func (b PowerBounds) Validate() error {
	if b.MinKW <= 0 {
		return errors.New("min_kw must be > 0")
	}
	if b.MinKW >= b.MaxKW {
		return errors.New("min_kw must be < max_kw")
	}
	return nil
}

// EcoConfig holds the two PV-proportional anchor powers. No ordering is
// enforced between them: sunny may legally be <= cloudy.
type EcoConfig struct {
	SunnyKW  float64 `json:"sunny_kw"`
	CloudyKW float64 `json:"cloudy_kw"`
}

func (c EcoConfig) Validate(bounds PowerBounds) error {
	if c.SunnyKW < bounds.MinKW || c.SunnyKW > bounds.MaxKW {
		return fmt.Errorf("sunny_kw %.2f outside bounds [%.2f, %.2f]", c.SunnyKW, bounds.MinKW, bounds.MaxKW)
	}
	if c.CloudyKW < bounds.MinKW || c.CloudyKW > bounds.MaxKW {
		return fmt.Errorf("cloudy_kw %.2f outside bounds [%.2f, %.2f]", c.CloudyKW, bounds.MinKW, bounds.MaxKW)
	}
	return nil
}

// ChargePointStatus mirrors the device-level session status.
type ChargePointStatus string

const (
	StatusAvailable    ChargePointStatus = "available"
	StatusPreparing    ChargePointStatus = "preparing"
	StatusCharging     ChargePointStatus = "charging"
	StatusFaulted      ChargePointStatus = "faulted"
	StatusDisconnected ChargePointStatus = "disconnected"
)

// ChargePointState is the per-device state cell. One actor owns each
// instance; everybody else sees copies.
type ChargePointState struct {
	ID              string            `json:"id"`
	Mode            PowerMode         `json:"mode"`
	TargetKW        float64           `json:"target_kw"`
	CurrentKW       float64           `json:"current_kw"`
	CurrentSoC      *int              `json:"current_soc,omitempty"`
	Status          ChargePointStatus `json:"status"`
	ErrorCode       string            `json:"error_code,omitempty"`
	LastHeartbeat   time.Time         `json:"last_heartbeat"`
	ManualKW        float64           `json:"manual_kw,omitempty"`
	PhaseCount      int               `json:"phase_count"`
	VoltagePerPhase float64           `json:"voltage_per_phase"`
	EnergyKWhTotal  float64           `json:"energy_kwh_total"`
	SessionKWh      float64           `json:"session_kwh"`
	TxActive        bool              `json:"tx_active"`
	SessionStartAt  *time.Time        `json:"session_start_at,omitempty"`
	SessionEstEndAt *time.Time        `json:"session_est_end_at,omitempty"`
	LastError       string            `json:"last_error,omitempty"`
}

// BoostConfig is the per-point deadline configuration. It is consulted by
// eco (optional raise) and schedule (mandatory) modes but persists
// independently of the current mode.
type BoostConfig struct {
	Enabled          bool      `json:"enabled"`
	CutoffLocal      ClockTime `json:"cutoff_local"`
	TargetSoC        int       `json:"target_soc"`
	BatteryKWh       float64   `json:"battery_kwh"`
	ChargeEfficiency float64   `json:"charge_efficiency"`
}

func (c BoostConfig) Validate() error {
	if c.TargetSoC < 10 || c.TargetSoC > 100 {
		return fmt.Errorf("target_soc %d outside [10, 100]", c.TargetSoC)
	}
	if c.BatteryKWh <= 0 {
		return errors.New("battery_kwh must be > 0")
	}
	if c.ChargeEfficiency < 0.5 || c.ChargeEfficiency > 1.0 {
		return fmt.Errorf("charge_efficiency %.2f outside [0.5, 1.0]", c.ChargeEfficiency)
	}
	return nil
}

// WeatherSample is the latest weather observation from the external feed.
// ShortwaveRadiationWM2 may be absent; consumers treat that as the cloudy
// extreme.
type WeatherSample struct {
	AsOf                  time.Time `json:"as_of"`
	TemperatureC          float64   `json:"temperature_c"`
	CloudCoverPct         float64   `json:"cloud_cover_pct"`
	ShortwaveRadiationWM2 *float64  `json:"shortwave_radiation_wm2,omitempty"`
	WindSpeedMS           float64   `json:"wind_speed_ms"`
	PrecipMM              float64   `json:"precip_mm"`
}

// PriceSlot is one market price interval in ct/kWh.
type PriceSlot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	CtPerKWh float64   `json:"ct_per_kwh"`
}

// PriceState is the ordered slot series from the external price feed.
type PriceState struct {
	AsOf  time.Time   `json:"as_of"`
	Slots []PriceSlot `json:"slots"`
}

// CurrentAt returns the slot price covering now, if any.
func (p PriceState) CurrentAt(now time.Time) (float64, bool) {
	for _, s := range p.Slots {
		if !now.Before(s.Start) && now.Before(s.End) {
			return s.CtPerKWh, true
		}
	}
	return 0, false
}

// MedianAt returns the median over the slots starting within the next 24h
// of now (falling back to all slots when fewer are known).
func (p PriceState) MedianAt(now time.Time) (float64, bool) {
	horizon := now.Add(24 * time.Hour)
	var vals []float64
	for _, s := range p.Slots {
		if s.End.After(now) && s.Start.Before(horizon) {
			vals = append(vals, s.CtPerKWh)
		}
	}
	if len(vals) == 0 {
		for _, s := range p.Slots {
			vals = append(vals, s.CtPerKWh)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return median(vals), true
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// EnergySample is one delivered-energy increment reported by a device.
// The ID makes aggregation idempotent.
type EnergySample struct {
	ID      string    `json:"id"`
	PointID string    `json:"point_id"`
	At      time.Time `json:"at"`
	KWh     float64   `json:"kwh"`
}
