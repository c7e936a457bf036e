package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
)

// OpenMeteoFeed fetches current weather from an Open-Meteo compatible
// endpoint. Only the fields the eco calculator consumes are requested.
type OpenMeteoFeed struct {
	url       string
	latitude  float64
	longitude float64
	client    *http.Client
}

type openMeteoResponse struct {
	Current struct {
		Time               string   `json:"time"`
		Temperature2M      float64  `json:"temperature_2m"`
		CloudCover         float64  `json:"cloud_cover"`
		ShortwaveRadiation *float64 `json:"shortwave_radiation"`
		WindSpeed10M       float64  `json:"wind_speed_10m"`
		Precipitation      float64  `json:"precipitation"`
	} `json:"current"`
}

func NewOpenMeteoFeed(cfg config.WeatherFeedConfig) *OpenMeteoFeed {
	return &OpenMeteoFeed{
		url:       cfg.URL,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

var _ port.WeatherFeed = (*OpenMeteoFeed)(nil)

func (f *OpenMeteoFeed) Fetch(ctx context.Context) (*domain.WeatherSample, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", f.latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", f.longitude))
	q.Set("current", "temperature_2m,cloud_cover,shortwave_radiation,wind_speed_10m,precipitation")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather feed returned status %d", resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	return &domain.WeatherSample{
		AsOf:                  time.Now(),
		TemperatureC:          body.Current.Temperature2M,
		CloudCoverPct:         body.Current.CloudCover,
		ShortwaveRadiationWM2: body.Current.ShortwaveRadiation,
		WindSpeedMS:           body.Current.WindSpeed10M,
		PrecipMM:              body.Current.Precipitation,
	}, nil
}
