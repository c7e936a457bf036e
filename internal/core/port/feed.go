package port

import (
	"context"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

// WeatherFeed fetches the current local weather from an external provider.
type WeatherFeed interface {
	Fetch(ctx context.Context) (*domain.WeatherSample, error)
}

// PriceFeed fetches the day-ahead market price curve.
type PriceFeed interface {
	Fetch(ctx context.Context) (*domain.PriceState, error)
}
