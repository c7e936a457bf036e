package mqtt

// TelemetryPayload is the JSON document the device gateway publishes on
// `<base>/telemetry/<pointId>`. Pointer fields may be omitted when the
// charger did not report them.
type TelemetryPayload struct {
	Status         string   `json:"status"`
	ErrorCode      *string  `json:"error_code,omitempty"`
	PowerKW        *float64 `json:"power_kw,omitempty"`
	SoC            *int     `json:"soc,omitempty"`
	EnergyKWhTotal *float64 `json:"energy_kwh_total,omitempty"`
}

// TargetPayload is published retained on `<base>/point/<id>/target` for the
// gateway to apply at the charger.
type TargetPayload struct {
	TargetKW float64 `json:"target_kw"`
	Amps     float64 `json:"amps"`
}
