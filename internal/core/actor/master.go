package actor

import (
	"fmt"
	"time"

	adactor "github.com/chargesteer/chargesteer/internal/adapter/actor"
	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
	. "github.com/chargesteer/chargesteer/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

// MasterActor is the supervision root. It spawns the mqtt, signals, stats
// and fleet children and routes everything arriving from the outside world
// (REST, MQTT commands, feed pollers) to the owning child.
type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	store              port.Store
	mqttActor          *actor.PID
	signalsActor       *actor.PID
	statsActor         *actor.PID
	fleetActor         *actor.PID
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	mqttActorHealthy    bool
	signalsActorHealthy bool
	statsActorHealthy   bool
	fleetActorHealthy   bool
	checksReceived      int
	respondTo           *actor.PID
}

func NewMasterActor(config config.Config, mqttActorProvider MQTTActorProvider, store port.Store, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:       &eventstream.EventStream{},
		store:             store,
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Signals child
		signalsActorPID, err := state.startSignalsActor(ctx)
		if err != nil {
			panic(err)
		}
		state.signalsActor = signalsActorPID

		// start Stats child
		statsActorPID, err := state.startStatsActor(ctx)
		if err != nil {
			panic(err)
		}
		state.statsActor = statsActorPID

		// start Fleet child
		fleetActorPID, err := state.startFleetActor(ctx)
		if err != nil {
			panic(err)
		}
		state.fleetActor = fleetActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		for _, child := range []*actor.PID{state.mqttActor, state.signalsActor, state.statsActor, state.fleetActor} {
			pid := child
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      pid.Id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// operator command over MQTT, route to fleet as a plain request
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			req, err := ParsedPointCommandToRequest(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default invalid point command", zap.Error(err))
				return
			}
			ctx.Send(state.fleetActor, req)
		}
	case domain.TelemetryUpdate:
		ctx.Send(state.fleetActor, msg)
	case domain.UpdateWeatherSample:
		ctx.Send(state.signalsActor, msg)
	case domain.UpdatePriceState:
		ctx.Send(state.signalsActor, msg)
	case domain.GetSignalSnapshotRequest:
		ctx.RequestWithCustomSender(state.signalsActor, msg, ctx.Sender())
	case domain.GetStatsRequest:
		ctx.RequestWithCustomSender(state.statsActor, msg, ctx.Sender())
	case domain.EnergyDelivered:
		ctx.Send(state.statsActor, msg)
	case domain.ListPointsRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.GetPointRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.SetModeRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.SetManualLimitRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.SetSoCRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.GetBoostConfigRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.SetBoostConfigRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.GetEcoConfigRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case domain.SetEcoConfigRequest:
		ctx.RequestWithCustomSender(state.fleetActor, msg, ctx.Sender())
	case *actor.Terminated:
		// if the mqtt child gives up on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("master@default mqtt terminated")
			panic(fmt.Errorf("mqtt terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			case domain.ACTOR_ID_SIGNALS:
				state.currentHealthCheck.signalsActorHealthy = true
			case domain.ACTOR_ID_STATS:
				state.currentHealthCheck.statsActorHealthy = true
			case domain.ACTOR_ID_FLEET:
				state.currentHealthCheck.fleetActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterActor) startSignalsActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Sugar().Errorf("handling failure for signals child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	signalsProps := actor.PropsFromProducer(func() actor.Actor {
		return NewSignalsActor(&state.config, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(signalsProps, domain.ACTOR_ID_SIGNALS)
}

func (state *MasterActor) startStatsActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Sugar().Errorf("handling failure for stats child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	statsProps := actor.PropsFromProducer(func() actor.Actor {
		return NewStatsActor(state.store, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(statsProps, domain.ACTOR_ID_STATS)
}

func (state *MasterActor) startFleetActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Sugar().Errorf("handling failure for fleet child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewAllForOneStrategy(1, 10*time.Second, decider)

	fleetProps := actor.PropsFromProducer(func() actor.Actor {
		return NewFleetActor(&state.config, state.signalsActor, state.mqttActor, state.statsActor,
			state.store, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(fleetProps, domain.ACTOR_ID_FLEET)
}

func (state *healthCheckResult) reset() {
	state.mqttActorHealthy = false
	state.signalsActorHealthy = false
	state.statsActorHealthy = false
	state.fleetActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 4
}

func (state *healthCheckResult) allHealthy() bool {
	return state.mqttActorHealthy && state.signalsActorHealthy && state.statsActorHealthy && state.fleetActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
