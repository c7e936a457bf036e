package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Power: PowerConfig{MinKW: 3.7, MaxKW: 11.0, BaseLimitKW: 11.0},
		EcoDefaults: EcoDefaultsConfig{
			SunnyKW:      11.0,
			CloudyKW:     3.7,
			RadCloudyWM2: 200,
			RadSunnyWM2:  650,
		},
		Price:  PriceConfig{MorningCutoff: "07:00", GridIntervalMinutes: 15, MaxStalenessMinutes: 120},
		Engine: EngineConfig{TickIntervalMillis: 5000},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Power.MinKW = 12.0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEcoOutsideBounds(t *testing.T) {
	cfg := validConfig()
	cfg.EcoDefaults.CloudyKW = 1.0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedRadiationThresholds(t *testing.T) {
	cfg := validConfig()
	cfg.EcoDefaults.RadCloudyWM2 = 700
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadCutoff(t *testing.T) {
	cfg := validConfig()
	cfg.Price.MorningCutoff = "25:99"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsFastTick(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.TickIntervalMillis = 100
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicatePointIds(t *testing.T) {
	cfg := validConfig()
	cfg.Points = []PointConfig{
		{ID: "cp-01", PhaseCount: 3, VoltagePerPhase: 230},
		{ID: "cp-01", PhaseCount: 1, VoltagePerPhase: 230},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPhaseCount(t *testing.T) {
	cfg := validConfig()
	cfg.Points = []PointConfig{{ID: "cp-01", PhaseCount: 2, VoltagePerPhase: 230}}
	assert.Error(t, cfg.Validate())
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("ChargeSteer")
	assert.NoError(t, err)
	assert.Equal(t, "chargesteer", topic)

	_, err = CheckMQTTTopic("bad/topic")
	assert.Error(t, err)
}
