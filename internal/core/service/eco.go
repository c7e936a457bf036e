package service

import (
	"math"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

// EcoCalculator maps solar irradiance to a PV-proportional power value by
// linear interpolation between the cloudy and sunny anchor powers. Pure and
// deterministic: same inputs, same output.
type EcoCalculator struct {
	RadCloudyWM2 float64
	RadSunnyWM2  float64
}

// Compute returns the eco target in kW. A nil weather sample or absent
// radiation is treated as the cloudy extreme. Radiation is clamped to the
// configured range before interpolating, so there is no extrapolation. The
// result is clamped to bounds, then capped at baseLimitKW.
func (c EcoCalculator) Compute(weather *domain.WeatherSample, eco domain.EcoConfig, bounds domain.PowerBounds, baseLimitKW float64) float64 {
	rad := c.RadCloudyWM2
	if weather != nil && weather.ShortwaveRadiationWM2 != nil {
		rad = *weather.ShortwaveRadiationWM2
	}
	if rad < c.RadCloudyWM2 {
		rad = c.RadCloudyWM2
	}
	if rad > c.RadSunnyWM2 {
		rad = c.RadSunnyWM2
	}

	span := c.RadSunnyWM2 - c.RadCloudyWM2
	frac := 0.0
	if span > 0 {
		frac = (rad - c.RadCloudyWM2) / span
	}
	kw := eco.CloudyKW + frac*(eco.SunnyKW-eco.CloudyKW)

	kw = bounds.Clamp(kw)
	return math.Min(kw, baseLimitKW)
}
