package events

import (
	"fmt"
	"strings"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_WEATHER_TEMPERATURE  = "weather_temperature"
	SENSOR_ID_WEATHER_CLOUD_COVER  = "weather_cloud_cover"
	SENSOR_ID_WEATHER_RADIATION    = "weather_radiation"
	SENSOR_ID_WEATHER_WIND_SPEED   = "weather_wind_speed"
	SENSOR_ID_WEATHER_PRECIP       = "weather_precipitation"
	SENSOR_ID_PRICE_CURRENT        = "price_current"
	SENSOR_ID_PRICE_MEDIAN         = "price_median_24h"
	SENSOR_ID_FLEET_ENERGY_7D      = "fleet_energy_7d"
	SENSOR_ID_FLEET_ENERGY_30D     = "fleet_energy_30d"
	POINT_FIELD_MODE               = "mode"
	POINT_FIELD_TARGET_KW          = "target_kw"
	POINT_FIELD_CURRENT_KW         = "current_kw"
	POINT_FIELD_SOC                = "soc"
	POINT_FIELD_STATUS             = "status"
	POINT_FIELD_SESSION_ACTIVE     = "session_active"
	POINT_FIELD_SESSION_KWH        = "session_kwh"
	POINT_FIELD_SESSION_EST_END_AT = "session_est_end_at"
)

// PointSensorId namespaces a per-point field into the flat sensor id space
// the MQTT mirror publishes under.
func PointSensorId(pointId string, field string) string {
	return fmt.Sprintf("point_%s_%s", pointId, field)
}

var pointFields = []string{
	POINT_FIELD_SESSION_EST_END_AT,
	POINT_FIELD_SESSION_ACTIVE,
	POINT_FIELD_SESSION_KWH,
	POINT_FIELD_TARGET_KW,
	POINT_FIELD_CURRENT_KW,
	POINT_FIELD_STATUS,
	POINT_FIELD_MODE,
	POINT_FIELD_SOC,
}

// ParsePointSensorId splits a namespaced sensor id back into point id and
// field. Point ids may contain underscores, so fields match by suffix,
// longest first.
func ParsePointSensorId(sensorId string) (pointId string, field string, ok bool) {
	rest, found := strings.CutPrefix(sensorId, "point_")
	if !found {
		return "", "", false
	}
	for _, f := range pointFields {
		if id, found := strings.CutSuffix(rest, "_"+f); found && id != "" {
			return id, f, true
		}
	}
	return "", "", false
}
