package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chargesteer/chargesteer/internal/config"
)

func TestOpenMeteoFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.5200", r.URL.Query().Get("latitude"))
		assert.Equal(t, "13.4050", r.URL.Query().Get("longitude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"time":"2026-08-31T12:00","temperature_2m":21.4,"cloud_cover":35,"shortwave_radiation":412.5,"wind_speed_10m":3.2,"precipitation":0}}`))
	}))
	defer srv.Close()

	feed := NewOpenMeteoFeed(config.WeatherFeedConfig{
		URL:       srv.URL,
		Latitude:  52.52,
		Longitude: 13.405,
	})
	sample, err := feed.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 21.4, sample.TemperatureC)
	assert.Equal(t, 35.0, sample.CloudCoverPct)
	if assert.NotNil(t, sample.ShortwaveRadiationWM2) {
		assert.Equal(t, 412.5, *sample.ShortwaveRadiationWM2)
	}
}

func TestOpenMeteoFeedMissingRadiation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"time":"2026-08-31T12:00","temperature_2m":18.0,"cloud_cover":90,"wind_speed_10m":5.1,"precipitation":1.2}}`))
	}))
	defer srv.Close()

	feed := NewOpenMeteoFeed(config.WeatherFeedConfig{URL: srv.URL})
	sample, err := feed.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, sample.ShortwaveRadiationWM2)
}

func TestOpenMeteoFeedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	feed := NewOpenMeteoFeed(config.WeatherFeedConfig{URL: srv.URL})
	_, err := feed.Fetch(context.Background())
	assert.Error(t, err)
}

func TestAwattarFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"start_timestamp":1788516000000,"end_timestamp":1788519600000,"marketprice":92.4,"unit":"Eur/MWh"},
			{"start_timestamp":1788519600000,"end_timestamp":1788523200000,"marketprice":-5.0,"unit":"Eur/MWh"}
		]}`))
	}))
	defer srv.Close()

	feed := NewAwattarFeed(config.PriceFeedConfig{URL: srv.URL})
	state, err := feed.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Len(t, state.Slots, 2)
	// EUR/MWh to ct/kWh is a plain divide by ten, negative prices included.
	assert.Equal(t, 9.24, state.Slots[0].CtPerKWh)
	assert.Equal(t, -0.5, state.Slots[1].CtPerKWh)
	assert.True(t, state.Slots[0].Start.Equal(time.UnixMilli(1788516000000)))
}

func TestAwattarFeedBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	feed := NewAwattarFeed(config.PriceFeedConfig{URL: srv.URL})
	_, err := feed.Fetch(context.Background())
	assert.Error(t, err)
}
