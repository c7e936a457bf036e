package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
	. "github.com/chargesteer/chargesteer/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// FleetActor spawns one PointActor per configured charge point and routes
// per-point requests to the owner. It also owns the process-wide eco config.
type FleetActor struct {
	behavior actor.Behavior
	stash    *Stash

	config       *config.Config
	signalsActor *actor.PID
	mqttActor    *actor.PID
	statsActor   *actor.PID
	store        port.Store
	eventStream  *eventstream.EventStream

	points map[string]*actor.PID
	eco    domain.EcoConfig

	currentList pointListResult

	logger *zap.Logger
}

type fleetLoaded struct {
	records []port.PointRecord
	eco     *domain.EcoConfig
	err     error
}

type pointListResult struct {
	points    []domain.ChargePointState
	expected  int
	received  int
	respondTo *actor.PID
}

func NewFleetActor(cfg *config.Config, signalsActor, mqttActor, statsActor *actor.PID, store port.Store,
	eventStream *eventstream.EventStream, logger *zap.Logger) *FleetActor {
	act := &FleetActor{
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		config:       cfg,
		signalsActor: signalsActor,
		mqttActor:    mqttActor,
		statsActor:   statsActor,
		store:        store,
		eventStream:  eventStream,
		points:       make(map[string]*actor.PID),
		eco: domain.EcoConfig{
			SunnyKW:  cfg.EcoDefaults.SunnyKW,
			CloudyKW: cfg.EcoDefaults.CloudyKW,
		},
		logger: ActorLogger(domain.ACTOR_ID_FLEET, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *FleetActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *FleetActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("fleet@starting started")
		if state.store == nil {
			ctx.Send(ctx.Self(), fleetLoaded{})
			return
		}
		self := ctx.Self()
		NewBackgroundTask(ctx, func() (*fleetLoaded, error) {
			records, err := state.store.LoadPoints(context.Background())
			if err != nil {
				return &fleetLoaded{err: err}, nil
			}
			eco, err := state.store.LoadEcoConfig(context.Background())
			return &fleetLoaded{records: records, eco: eco, err: err}, nil
		}).WithTimeout(10 * time.Second).OnError(func(err error) {
			ctx.Send(self, fleetLoaded{err: err})
		}).PipeTo(self)
	case fleetLoaded:
		if msg.err != nil {
			state.logger.Warn("fleet@starting could not load stored records", zap.Error(msg.err))
		}
		if msg.eco != nil {
			state.eco = *msg.eco
		}
		recordsById := make(map[string]port.PointRecord, len(msg.records))
		for _, rec := range msg.records {
			recordsById[rec.ID] = rec
		}
		for _, pointCfg := range state.config.Points {
			pid, err := state.startPointActor(ctx, pointCfg, recordsById[pointCfg.ID])
			if err != nil {
				panic(err)
			}
			state.points[pointCfg.ID] = pid
		}
		state.logger.Info("fleet@starting spawned points", zap.Int("count", len(state.points)))
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("fleet@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *FleetActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("fleet@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_FLEET,
			Healthy: true,
			State:   "idle",
		})
	case domain.ListPointsRequest:
		state.logger.Debug("fleet@default ListPointsRequest")
		if len(state.points) == 0 {
			ForRequest(msg).Respond(ctx, domain.ListPointsResponse{Points: []domain.ChargePointState{}})
			return
		}
		state.currentList = pointListResult{
			expected:  len(state.points),
			respondTo: ForRequest(msg).ReplyTo(ctx),
		}
		for _, pid := range state.points {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.GetPointRequest{}, 1*time.Second), func(err error) any {
				return domain.GetPointResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				}
			})
		}
		ctx.SetReceiveTimeout(2 * time.Second)
		state.behavior.BecomeStacked(state.CollectPointsReceive)
	case domain.GetPointRequest:
		state.forward(ctx, msg.PointID, msg)
	case domain.SetModeRequest:
		state.forward(ctx, msg.PointID, msg)
	case domain.SetManualLimitRequest:
		state.forward(ctx, msg.PointID, msg)
	case domain.SetSoCRequest:
		state.forward(ctx, msg.PointID, msg)
	case domain.GetBoostConfigRequest:
		state.forward(ctx, msg.PointID, msg)
	case domain.SetBoostConfigRequest:
		state.forward(ctx, msg.PointID, msg)
	case domain.TelemetryUpdate:
		if pid, ok := state.points[msg.PointID]; ok {
			ctx.Send(pid, msg)
		} else {
			state.logger.Warn("fleet@default telemetry for unknown point", zap.String("point", msg.PointID))
		}
	case domain.GetEcoConfigRequest:
		ForRequest(msg).Respond(ctx, domain.GetEcoConfigResponse{Config: state.eco})
	case domain.SetEcoConfigRequest:
		state.logger.Info("fleet@default SetEcoConfigRequest",
			zap.Float64("sunny_kw", msg.Config.SunnyKW), zap.Float64("cloudy_kw", msg.Config.CloudyKW))
		state.eco = msg.Config
		state.persistEco(ctx)
		for _, pid := range state.points {
			ctx.Send(pid, domain.EcoConfigChanged{Config: state.eco})
		}
		ForRequest(msg).Respond(ctx, domain.SetEcoConfigResponse{Config: state.eco})
	default:
		state.logger.Debug("fleet@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *FleetActor) CollectPointsReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetPointResponse:
		state.currentList.received++
		if !msg.HasResponseError() && msg.Point != nil {
			state.currentList.points = append(state.currentList.points, *msg.Point)
		}
		if state.currentList.received >= state.currentList.expected {
			state.respondList(ctx)
		}
	case *actor.ReceiveTimeout:
		// respond with whatever arrived; a stuck point must not block the list
		state.respondList(ctx)
	default:
		state.logger.Debug("fleet@collect stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *FleetActor) respondList(ctx actor.Context) {
	ctx.SetReceiveTimeout(0)
	if state.currentList.respondTo != nil {
		ctx.Send(state.currentList.respondTo, domain.ListPointsResponse{
			Points: state.currentList.points,
		})
	}
	state.currentList = pointListResult{}
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

// forward hands a per-point request to its owner, original sender preserved.
func (state *FleetActor) forward(ctx actor.Context, pointId string, msg any) {
	pid, ok := state.points[pointId]
	if !ok {
		state.respondUnknown(ctx, msg)
		return
	}
	ctx.RequestWithCustomSender(pid, msg, ctx.Sender())
}

func (state *FleetActor) respondUnknown(ctx actor.Context, msg any) {
	errResp := domain.ActorResponseMixIn{ResponseError: domain.ErrUnknownPoint}
	switch req := msg.(type) {
	case domain.GetPointRequest:
		ForRequest(req).Respond(ctx, domain.GetPointResponse{ActorResponseMixIn: errResp})
	case domain.SetModeRequest:
		ForRequest(req).Respond(ctx, domain.SetModeResponse{ActorResponseMixIn: errResp})
	case domain.SetManualLimitRequest:
		ForRequest(req).Respond(ctx, domain.SetManualLimitResponse{ActorResponseMixIn: errResp})
	case domain.SetSoCRequest:
		ForRequest(req).Respond(ctx, domain.SetSoCResponse{ActorResponseMixIn: errResp})
	case domain.GetBoostConfigRequest:
		ForRequest(req).Respond(ctx, domain.GetBoostConfigResponse{ActorResponseMixIn: errResp})
	case domain.SetBoostConfigRequest:
		ForRequest(req).Respond(ctx, domain.SetBoostConfigResponse{ActorResponseMixIn: errResp})
	}
}

func (state *FleetActor) persistEco(ctx actor.Context) {
	if state.store == nil {
		return
	}
	eco := state.eco
	NewBackgroundTaskErr(ctx, func() error {
		return state.store.SaveEcoConfig(context.Background(), eco)
	}).WithTimeout(5 * time.Second).OnError(func(err error) {
		state.logger.Error("fleet: could not persist eco config", zap.Error(err))
	}).Run()
}

func (state *FleetActor) startPointActor(ctx actor.Context, pointCfg config.PointConfig, rec port.PointRecord) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Sugar().Errorf("handling failure for point %s. reason: %v", pointCfg.ID, reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(5, 30*time.Second, decider)

	pointProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPointActor(state.config, pointCfg, rec, state.eco,
			state.signalsActor, state.mqttActor, state.statsActor,
			state.store, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(pointProps, pointCfg.ID)
}
