package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/chargesteer/chargesteer/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level

	Power       PowerConfig       `mapstructure:"power"`
	EcoDefaults EcoDefaultsConfig `mapstructure:"eco"`
	Price       PriceConfig       `mapstructure:"price"`
	Engine      EngineConfig      `mapstructure:"engine"`
	WeatherFeed WeatherFeedConfig `mapstructure:"weather_feed"`
	PriceFeed   PriceFeedConfig   `mapstructure:"price_feed"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Store       StoreConfig       `mapstructure:"store"`
	Points      []PointConfig     `mapstructure:"points"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

// PowerConfig holds the global power bounds. Every computed target except
// the explicit off value must stay within them.
type PowerConfig struct {
	MinKW       float64 `mapstructure:"min_kw"`
	MaxKW       float64 `mapstructure:"max_kw"`
	BaseLimitKW float64 `mapstructure:"base_limit_kw"`
}

func (c PowerConfig) Bounds() domain.PowerBounds {
	return domain.PowerBounds{MinKW: c.MinKW, MaxKW: c.MaxKW}
}

// EcoDefaultsConfig seeds the operator-mutable eco config and fixes the
// radiation mapping domain.
type EcoDefaultsConfig struct {
	SunnyKW      float64 `mapstructure:"sunny_kw"`
	CloudyKW     float64 `mapstructure:"cloudy_kw"`
	RadCloudyWM2 float64 `mapstructure:"rad_cloudy_wm2"`
	RadSunnyWM2  float64 `mapstructure:"rad_sunny_wm2"`
}

type PriceConfig struct {
	MorningCutoff       string `mapstructure:"morning_cutoff"`
	GridIntervalMinutes uint   `mapstructure:"grid_interval_minutes"`
	MaxStalenessMinutes uint   `mapstructure:"max_staleness_minutes"`
}

type EngineConfig struct {
	TickIntervalMillis uint32 `mapstructure:"tick_interval_millis"`
}

type WeatherFeedConfig struct {
	URL                 string  `mapstructure:"url"`
	Latitude            float64 `mapstructure:"latitude"`
	Longitude           float64 `mapstructure:"longitude"`
	PollCron            string  `mapstructure:"poll_cron"`
	MaxStalenessMinutes uint    `mapstructure:"max_staleness_minutes"`
}

// PointConfig declares a charge point the engine manages. Electrical
// parameters are static; everything mutable lives in the store.
type PointConfig struct {
	ID              string  `mapstructure:"id"`
	PhaseCount      int     `mapstructure:"phase_count"`
	VoltagePerPhase float64 `mapstructure:"voltage_per_phase"`
}

type PriceFeedConfig struct {
	URL      string `mapstructure:"url"`
	PollCron string `mapstructure:"poll_cron"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Validate checks the cross-field constraints that must hold before the
// engine starts. A failed check keeps the process from booting; runtime
// config writes are validated separately at the write boundary.
func (cfg *Config) Validate() error {
	if err := cfg.Power.Bounds().Validate(); err != nil {
		return err
	}
	if cfg.Power.BaseLimitKW < cfg.Power.MinKW || cfg.Power.BaseLimitKW > cfg.Power.MaxKW {
		return fmt.Errorf("config param power.base_limit_kw must be within [%.2f, %.2f]", cfg.Power.MinKW, cfg.Power.MaxKW)
	}
	eco := domain.EcoConfig{SunnyKW: cfg.EcoDefaults.SunnyKW, CloudyKW: cfg.EcoDefaults.CloudyKW}
	if err := eco.Validate(cfg.Power.Bounds()); err != nil {
		return err
	}
	if cfg.EcoDefaults.RadCloudyWM2 >= cfg.EcoDefaults.RadSunnyWM2 {
		return errors.New("config param eco.rad_cloudy_wm2 must be < eco.rad_sunny_wm2")
	}
	if _, err := domain.ParseClockTime(cfg.Price.MorningCutoff); err != nil {
		return fmt.Errorf("config param price.morning_cutoff: %w", err)
	}
	if cfg.Price.GridIntervalMinutes == 0 {
		return errors.New("config param price.grid_interval_minutes should be > 0")
	}
	if cfg.Engine.TickIntervalMillis < 1000 {
		return errors.New("config param engine.tick_interval_millis should be >= 1000")
	}
	seen := map[string]bool{}
	for _, p := range cfg.Points {
		if p.ID == "" {
			return errors.New("config param points[].id must not be empty")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate point id %q", p.ID)
		}
		seen[p.ID] = true
		if p.PhaseCount != 1 && p.PhaseCount != 3 {
			return fmt.Errorf("config param points[%s].phase_count must be 1 or 3", p.ID)
		}
		if p.VoltagePerPhase <= 0 {
			return fmt.Errorf("config param points[%s].voltage_per_phase must be > 0", p.ID)
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
