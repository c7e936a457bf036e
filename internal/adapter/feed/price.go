package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
)

// AwattarFeed fetches day-ahead market prices from an aWATTar compatible
// marketdata endpoint. Prices arrive in EUR/MWh and are converted to
// ct/kWh before they reach the decision path.
type AwattarFeed struct {
	url    string
	client *http.Client
}

type awattarResponse struct {
	Data []awattarSlot `json:"data"`
}

type awattarSlot struct {
	StartTimestamp int64   `json:"start_timestamp"`
	EndTimestamp   int64   `json:"end_timestamp"`
	Marketprice    float64 `json:"marketprice"`
	Unit           string  `json:"unit"`
}

func NewAwattarFeed(cfg config.PriceFeedConfig) *AwattarFeed {
	return &AwattarFeed{
		url:    cfg.URL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ port.PriceFeed = (*AwattarFeed)(nil)

func (f *AwattarFeed) Fetch(ctx context.Context) (*domain.PriceState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	var body awattarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	slots := make([]domain.PriceSlot, 0, len(body.Data))
	for _, s := range body.Data {
		slots = append(slots, domain.PriceSlot{
			Start:    time.UnixMilli(s.StartTimestamp),
			End:      time.UnixMilli(s.EndTimestamp),
			CtPerKWh: s.Marketprice / 10,
		})
	}

	return &domain.PriceState{
		AsOf:  time.Now(),
		Slots: slots,
	}, nil
}
