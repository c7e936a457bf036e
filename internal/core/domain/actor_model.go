package domain

import "time"

const (
	ACTOR_ID_MASTER  = "master"
	ACTOR_ID_FLEET   = "fleet"
	ACTOR_ID_SIGNALS = "signals"
	ACTOR_ID_STATS   = "stats"
	ACTOR_ID_MQTT    = "mqtt"
)

// Signal cache messages

type UpdateWeatherSample struct {
	Sample WeatherSample
}

type UpdatePriceState struct {
	State PriceState
}

type GetSignalSnapshotRequest struct {
	ActorRequestMixIn
}

// GetSignalSnapshotResponse carries nil pointers for signals that are stale
// or were never received. Calculators degrade on nil.
type GetSignalSnapshotResponse struct {
	ActorResponseMixIn
	Weather *WeatherSample
	Prices  *PriceState
}

// Fleet / charge point messages

type ListPointsRequest struct {
	ActorRequestMixIn
}

type ListPointsResponse struct {
	ActorResponseMixIn
	Points []ChargePointState
}

type GetPointRequest struct {
	ActorRequestMixIn
	PointID string
}

type GetPointResponse struct {
	ActorResponseMixIn
	Point *ChargePointState
}

type SetModeRequest struct {
	ActorRequestMixIn
	PointID string
	Mode    PowerMode
}

type SetModeResponse struct {
	ActorResponseMixIn
	Point *ChargePointState
}

// SetManualLimitRequest is the implicit mode transition: applying a manual
// limit always moves the point to manual mode.
type SetManualLimitRequest struct {
	ActorRequestMixIn
	PointID string
	KW      float64
}

type SetManualLimitResponse struct {
	ActorResponseMixIn
	Point *ChargePointState
}

type GetBoostConfigRequest struct {
	ActorRequestMixIn
	PointID string
}

type GetBoostConfigResponse struct {
	ActorResponseMixIn
	Config BoostConfig
}

type SetBoostConfigRequest struct {
	ActorRequestMixIn
	PointID string
	Config  BoostConfig
}

type SetBoostConfigResponse struct {
	ActorResponseMixIn
	Config BoostConfig
}

type SetSoCRequest struct {
	ActorRequestMixIn
	PointID string
	SoC     int
}

type SetSoCResponse struct {
	ActorResponseMixIn
	Point *ChargePointState
}

type GetEcoConfigRequest struct {
	ActorRequestMixIn
}

type GetEcoConfigResponse struct {
	ActorResponseMixIn
	Config EcoConfig
}

type SetEcoConfigRequest struct {
	ActorRequestMixIn
	Config EcoConfig
}

type SetEcoConfigResponse struct {
	ActorResponseMixIn
	Config EcoConfig
}

// EcoConfigChanged is broadcast to point actors after an eco config write.
type EcoConfigChanged struct {
	Config EcoConfig
}

// TelemetryUpdate is pushed by the device gateway adapter. Zero-valued
// fields are not applied; pointers distinguish absent from zero.
type TelemetryUpdate struct {
	PointID        string
	Status         ChargePointStatus
	ErrorCode      *string
	CurrentKW      *float64
	SoC            *int
	EnergyKWhTotal *float64
	Heartbeat      time.Time
}

// MQTT mirror messages

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

// DispatchTarget asks the device gateway to apply a power limit at the
// physical charger. Sent by a point actor only when its target changed.
type DispatchTargetRequest struct {
	ActorRequestMixIn
	PointID  string
	TargetKW float64
	Amps     float64
}

type DispatchTargetResponse struct {
	ActorResponseMixIn
	Error error
}

// Stats messages

type EnergyDelivered struct {
	Sample EnergySample
}

type GetStatsRequest struct {
	ActorRequestMixIn
}

type GetStatsResponse struct {
	ActorResponseMixIn
	Total    WindowTotals
	PerPoint map[string]WindowTotals
}

// WindowTotals are the rolling energy sums exposed on /api/stats.
type WindowTotals struct {
	Last7dKWh  float64 `json:"7d"`
	Last30dKWh float64 `json:"30d"`
}

// Health check

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
