package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/events"
	"github.com/chargesteer/chargesteer/internal/core/port"
	"github.com/chargesteer/chargesteer/internal/core/service"
	. "github.com/chargesteer/chargesteer/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const statsPruneInterval = 6 * time.Hour

// StatsActor owns the rolling delivered-energy windows. Samples arrive from
// the point actors, survive restarts through the store and are served on
// GetStatsRequest.
type StatsActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	agg         *service.StatsAggregator
	store       port.Store
	eventStream *eventstream.EventStream

	logger *zap.Logger
}

type statsPruneTick struct {
}

type storedSamplesLoaded struct {
	samples []domain.EnergySample
	err     error
}

func NewStatsActor(store port.Store, eventStream *eventstream.EventStream, logger *zap.Logger) *StatsActor {
	act := &StatsActor{
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		agg:         service.NewStatsAggregator(),
		store:       store,
		eventStream: eventStream,
		logger:      ActorLogger(domain.ACTOR_ID_STATS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *StatsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *StatsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("stats@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(statsPruneInterval, ctx.Self(), statsPruneTick{})

		if state.store == nil {
			state.behavior.Become(state.DefaultReceive)
			state.stash.UnstashAll(ctx)
			return
		}
		self := ctx.Self()
		NewBackgroundTask(ctx, func() (*storedSamplesLoaded, error) {
			samples, err := state.store.ListEnergySamples(context.Background(), time.Now().Add(-30*24*time.Hour))
			return &storedSamplesLoaded{samples: samples, err: err}, nil
		}).WithTimeout(10 * time.Second).OnError(func(err error) {
			ctx.Send(self, storedSamplesLoaded{err: err})
		}).PipeTo(self)
	case storedSamplesLoaded:
		if msg.err != nil {
			state.logger.Warn("stats@starting could not load stored samples", zap.Error(msg.err))
		}
		for _, s := range msg.samples {
			state.agg.Add(s)
		}
		state.logger.Debug("stats@starting loaded", zap.Int("samples", len(msg.samples)))
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("stats@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *StatsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("stats@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_STATS,
			Healthy: true,
			State:   "idle",
		})
	case domain.EnergyDelivered:
		if !state.agg.Add(msg.Sample) {
			state.logger.Debug("stats@default duplicate sample", zap.String("id", msg.Sample.ID))
			return
		}
		state.logger.Debug("stats@default EnergyDelivered",
			zap.String("point", msg.Sample.PointID), zap.Float64("kwh", msg.Sample.KWh))
		if state.store != nil {
			sample := msg.Sample
			NewBackgroundTaskErr(ctx, func() error {
				return state.store.AppendEnergySample(context.Background(), sample)
			}).WithTimeout(5 * time.Second).OnError(func(err error) {
				state.logger.Error("stats: could not persist sample", zap.Error(err))
			}).Run()
		}
		total, _ := state.agg.Totals(time.Now())
		for _, ev := range events.FleetTotalsToUpdateEvents(total) {
			state.eventStream.Publish(ev)
		}
	case domain.GetStatsRequest:
		state.logger.Debug("stats@default GetStatsRequest")
		total, perPoint := state.agg.Totals(time.Now())
		ForRequest(msg).Respond(ctx, domain.GetStatsResponse{
			Total:    total,
			PerPoint: perPoint,
		})
	case statsPruneTick:
		state.agg.Prune(time.Now())
		state.scheduler.RequestOnce(statsPruneInterval, ctx.Self(), statsPruneTick{})
	default:
		state.logger.Debug("stats@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
