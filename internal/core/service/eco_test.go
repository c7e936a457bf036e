package service

import (
	"testing"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testBounds = domain.PowerBounds{MinKW: 3.7, MaxKW: 11.0}
	testEco    = EcoCalculator{RadCloudyWM2: 200, RadSunnyWM2: 650}
)

func weatherWithRadiation(rad float64) *domain.WeatherSample {
	return &domain.WeatherSample{
		AsOf:                  time.Now(),
		ShortwaveRadiationWM2: &rad,
	}
}

func TestEcoMidpointInterpolation(t *testing.T) {
	cfg := domain.EcoConfig{SunnyKW: 11.0, CloudyKW: 3.7}

	// midpoint of [200, 650] must land halfway between cloudy and sunny
	kw := testEco.Compute(weatherWithRadiation(425), cfg, testBounds, 11.0)
	assert.InDelta(t, 7.35, kw, 0.001)
}

func TestEcoClampsRadiationToConfiguredRange(t *testing.T) {
	cfg := domain.EcoConfig{SunnyKW: 11.0, CloudyKW: 3.7}

	// below the cloudy threshold: constant cloudy power, no extrapolation
	assert.InDelta(t, 3.7, testEco.Compute(weatherWithRadiation(0), cfg, testBounds, 11.0), 0.001)
	assert.InDelta(t, 3.7, testEco.Compute(weatherWithRadiation(199.9), cfg, testBounds, 11.0), 0.001)
	// above the sunny threshold: constant sunny power
	assert.InDelta(t, 11.0, testEco.Compute(weatherWithRadiation(650), cfg, testBounds, 11.0), 0.001)
	assert.InDelta(t, 11.0, testEco.Compute(weatherWithRadiation(1200), cfg, testBounds, 11.0), 0.001)
}

func TestEcoMissingWeatherIsCloudyExtreme(t *testing.T) {
	cfg := domain.EcoConfig{SunnyKW: 11.0, CloudyKW: 4.2}

	assert.InDelta(t, 4.2, testEco.Compute(nil, cfg, testBounds, 11.0), 0.001)
	assert.InDelta(t, 4.2, testEco.Compute(&domain.WeatherSample{AsOf: time.Now()}, cfg, testBounds, 11.0), 0.001)
}

func TestEcoMonotonicAndBounded(t *testing.T) {
	require := require.New(t)
	cfg := domain.EcoConfig{SunnyKW: 9.5, CloudyKW: 4.0}

	prev := 0.0
	for rad := 0.0; rad <= 1000; rad += 10 {
		kw := testEco.Compute(weatherWithRadiation(rad), cfg, testBounds, 11.0)
		require.GreaterOrEqual(kw, prev, "eco must be monotonically non-decreasing in radiation")
		require.GreaterOrEqual(kw, 4.0)
		require.LessOrEqual(kw, 9.5)
		prev = kw
	}
}

func TestEcoSunnyMayBeBelowCloudy(t *testing.T) {
	// no ordering is enforced between the anchors
	cfg := domain.EcoConfig{SunnyKW: 4.0, CloudyKW: 9.0}

	assert.InDelta(t, 9.0, testEco.Compute(weatherWithRadiation(100), cfg, testBounds, 11.0), 0.001)
	assert.InDelta(t, 4.0, testEco.Compute(weatherWithRadiation(700), cfg, testBounds, 11.0), 0.001)
	assert.InDelta(t, 6.5, testEco.Compute(weatherWithRadiation(425), cfg, testBounds, 11.0), 0.001)
}

func TestEcoCappedAtBaseLimit(t *testing.T) {
	cfg := domain.EcoConfig{SunnyKW: 11.0, CloudyKW: 3.7}

	kw := testEco.Compute(weatherWithRadiation(650), cfg, testBounds, 7.0)
	assert.InDelta(t, 7.0, kw, 0.001)
}

func TestEcoIsPure(t *testing.T) {
	cfg := domain.EcoConfig{SunnyKW: 11.0, CloudyKW: 3.7}
	w := weatherWithRadiation(433)

	first := testEco.Compute(w, cfg, testBounds, 11.0)
	second := testEco.Compute(w, cfg, testBounds, 11.0)
	assert.Equal(t, first, second)
}
