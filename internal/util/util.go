package util

import (
	"github.com/chargesteer/chargesteer/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Power: config.PowerConfig{
			MinKW:       3.7,
			MaxKW:       11.0,
			BaseLimitKW: 11.0,
		},
		EcoDefaults: config.EcoDefaultsConfig{
			SunnyKW:      11.0,
			CloudyKW:     3.7,
			RadCloudyWM2: 200,
			RadSunnyWM2:  650,
		},
		Price: config.PriceConfig{
			MorningCutoff:       "07:00",
			GridIntervalMinutes: 15,
			MaxStalenessMinutes: 120,
		},
		Engine: config.EngineConfig{
			TickIntervalMillis: 5000,
		},
		WeatherFeed: config.WeatherFeedConfig{
			MaxStalenessMinutes: 30,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "chargesteer",
		},
		Points: []config.PointConfig{
			{ID: "cp-01", PhaseCount: 3, VoltagePerPhase: 230},
			{ID: "cp-02", PhaseCount: 1, VoltagePerPhase: 230},
		},
		Port: 8080,
	}
}
