package events

import (
	"time"

	. "github.com/chargesteer/chargesteer/internal/core/domain"
)

func WeatherToUpdateEvents(s *WeatherSample) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WEATHER_TEMPERATURE,
		},
		Value:    s.TemperatureC,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WEATHER_CLOUD_COVER,
		},
		Value:    s.CloudCoverPct,
		Decimals: 0,
	})
	// absent radiation mirrors as 0, the cloudy extreme
	var radiation float64 = 0
	if s.ShortwaveRadiationWM2 != nil {
		radiation = *s.ShortwaveRadiationWM2
	}
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WEATHER_RADIATION,
		},
		Value:    radiation,
		Decimals: 0,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WEATHER_WIND_SPEED,
		},
		Value:    s.WindSpeedMS,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WEATHER_PRECIP,
		},
		Value:    s.PrecipMM,
		Decimals: 1,
	})

	return events
}

func PriceStateToUpdateEvents(p *PriceState, now time.Time) []any {
	var events []any

	if current, ok := p.CurrentAt(now); ok {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_PRICE_CURRENT,
			},
			Value:    current,
			Decimals: 2,
		})
	}
	if median, ok := p.MedianAt(now); ok {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_PRICE_MEDIAN,
			},
			Value:    median,
			Decimals: 2,
		})
	}

	return events
}

func ChargePointToUpdateEvents(p *ChargePointState) []any {
	var events []any

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: PointSensorId(p.ID, POINT_FIELD_MODE),
		},
		Value: string(p.Mode),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: PointSensorId(p.ID, POINT_FIELD_TARGET_KW),
		},
		Value:    p.TargetKW,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: PointSensorId(p.ID, POINT_FIELD_CURRENT_KW),
		},
		Value:    p.CurrentKW,
		Decimals: 2,
	})
	if p.CurrentSoC != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: PointSensorId(p.ID, POINT_FIELD_SOC),
			},
			Value:    float64(*p.CurrentSoC),
			Decimals: 0,
		})
	}
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: PointSensorId(p.ID, POINT_FIELD_STATUS),
		},
		Value: string(p.Status),
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: PointSensorId(p.ID, POINT_FIELD_SESSION_ACTIVE),
		},
		Value: p.TxActive,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: PointSensorId(p.ID, POINT_FIELD_SESSION_KWH),
		},
		Value:    p.SessionKWh,
		Decimals: 3,
	})
	if p.SessionEstEndAt != nil {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: PointSensorId(p.ID, POINT_FIELD_SESSION_EST_END_AT),
			},
			Value: p.SessionEstEndAt.Format(time.RFC3339),
		})
	}

	return events
}

func FleetTotalsToUpdateEvents(totals WindowTotals) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_FLEET_ENERGY_7D,
		},
		Value:    totals.Last7dKWh,
		Decimals: 3,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_FLEET_ENERGY_30D,
		},
		Value:    totals.Last30dKWh,
		Decimals: 3,
	})

	return events
}

func BridgeStateToUpdateEvent(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
