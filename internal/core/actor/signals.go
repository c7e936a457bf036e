package actor

import (
	"fmt"
	"time"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/events"
	. "github.com/chargesteer/chargesteer/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// SignalsActor caches the latest weather and price feed results. Snapshots
// hand out nil for a signal that is stale or never arrived, so calculators
// can degrade instead of trusting old data.
type SignalsActor struct {
	behavior actor.Behavior

	config      *config.Config
	eventStream *eventstream.EventStream
	weather     *domain.WeatherSample
	prices      *domain.PriceState

	logger *zap.Logger
}

func NewSignalsActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *SignalsActor {
	act := &SignalsActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		eventStream: eventStream,
		logger:      ActorLogger(domain.ACTOR_ID_SIGNALS, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *SignalsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SignalsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("signals@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SIGNALS,
			Healthy: true,
			State:   "idle",
		})
	case domain.UpdateWeatherSample:
		state.logger.Debug("signals@default UpdateWeatherSample", zap.Time("as_of", msg.Sample.AsOf))
		sample := msg.Sample
		state.weather = &sample
		for _, ev := range events.WeatherToUpdateEvents(&sample) {
			state.eventStream.Publish(ev)
		}
	case domain.UpdatePriceState:
		state.logger.Debug("signals@default UpdatePriceState",
			zap.Time("as_of", msg.State.AsOf), zap.Int("slots", len(msg.State.Slots)))
		prices := msg.State
		state.prices = &prices
		for _, ev := range events.PriceStateToUpdateEvents(&prices, time.Now()) {
			state.eventStream.Publish(ev)
		}
	case domain.GetSignalSnapshotRequest:
		state.logger.Debug("signals@default GetSignalSnapshotRequest")
		ForRequest(msg).Respond(ctx, state.snapshot(time.Now()))
	default:
		state.logger.Debug("signals@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SignalsActor) snapshot(now time.Time) domain.GetSignalSnapshotResponse {
	resp := domain.GetSignalSnapshotResponse{}
	weatherMax := time.Duration(state.config.WeatherFeed.MaxStalenessMinutes) * time.Minute
	if state.weather != nil && (weatherMax == 0 || now.Sub(state.weather.AsOf) <= weatherMax) {
		resp.Weather = state.weather
	}
	priceMax := time.Duration(state.config.Price.MaxStalenessMinutes) * time.Minute
	if state.prices != nil && (priceMax == 0 || now.Sub(state.prices.AsOf) <= priceMax) {
		resp.Prices = state.prices
	}
	return resp
}
