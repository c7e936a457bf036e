package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/events"
	"github.com/chargesteer/chargesteer/internal/core/port"
	"github.com/chargesteer/chargesteer/internal/core/service"
	. "github.com/chargesteer/chargesteer/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PointActor is the single writer for one charge point. Every evaluation,
// operator command and telemetry report for the point funnels through its
// mailbox, so no lock guards the state.
type PointActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	signalsActor *actor.PID
	mqttActor    *actor.PID
	statsActor   *actor.PID
	store        port.Store
	eventStream  *eventstream.EventStream
	policy       port.PowerPolicy

	point domain.ChargePointState
	boost domain.BoostConfig
	eco   domain.EcoConfig

	prevPriceSlot     time.Time
	prevPriceTargetKW float64
	prevPriceOverride bool
	lastDispatchedKW  float64
	dispatchedOnce    bool

	logger *zap.Logger
}

type pointTick struct {
}

// NewPointActor builds the actor for one configured point. The record holds
// whatever the store remembered; the fleet passes zero values for a point
// seen for the first time.
func NewPointActor(cfg *config.Config, pointCfg config.PointConfig, rec port.PointRecord, eco domain.EcoConfig,
	signalsActor, mqttActor, statsActor *actor.PID, store port.Store,
	eventStream *eventstream.EventStream, logger *zap.Logger) *PointActor {

	mode := rec.Mode
	if mode == "" {
		mode = domain.ModeOff
	}
	boost := rec.Boost
	if boost.BatteryKWh == 0 {
		boost = defaultBoostConfig(cfg)
	}

	act := &PointActor{
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		config:       cfg,
		signalsActor: signalsActor,
		mqttActor:    mqttActor,
		statsActor:   statsActor,
		store:        store,
		eventStream:  eventStream,
		policy: &service.DefaultPowerPolicy{
			Bounds:      cfg.Power.Bounds(),
			BaseLimitKW: cfg.Power.BaseLimitKW,
			Eco: service.EcoCalculator{
				RadCloudyWM2: cfg.EcoDefaults.RadCloudyWM2,
				RadSunnyWM2:  cfg.EcoDefaults.RadSunnyWM2,
			},
			Price:  priceCalculatorFromConfig(cfg),
			Logger: logger,
		},
		point: domain.ChargePointState{
			ID:              pointCfg.ID,
			Mode:            mode,
			ManualKW:        rec.ManualKW,
			Status:          domain.StatusDisconnected,
			PhaseCount:      pointCfg.PhaseCount,
			VoltagePerPhase: pointCfg.VoltagePerPhase,
		},
		boost:  boost,
		eco:    eco,
		logger: ActorLogger(fmt.Sprintf("point/%s", pointCfg.ID), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func defaultBoostConfig(cfg *config.Config) domain.BoostConfig {
	cutoff, err := domain.ParseClockTime(cfg.Price.MorningCutoff)
	if err != nil {
		cutoff = domain.ClockTime{Hour: 7}
	}
	return domain.BoostConfig{
		Enabled:          false,
		CutoffLocal:      cutoff,
		TargetSoC:        100,
		BatteryKWh:       60.0,
		ChargeEfficiency: 0.92,
	}
}

func priceCalculatorFromConfig(cfg *config.Config) service.PriceCalculator {
	cutoff, err := domain.ParseClockTime(cfg.Price.MorningCutoff)
	if err != nil {
		cutoff = domain.ClockTime{Hour: 7}
	}
	return service.PriceCalculator{
		MorningCutoff: cutoff,
		GridInterval:  time.Duration(cfg.Price.GridIntervalMinutes) * time.Minute,
		MaxStaleness:  time.Duration(cfg.Price.MaxStalenessMinutes) * time.Minute,
	}
}

func (state *PointActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PointActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("point@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.tickInterval(), ctx.Self(), pointTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("point@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PointActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("point@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.point.ID,
			Healthy: true,
			State:   "idle",
		})
	case pointTick:
		state.logger.Debug("point@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.signalsActor, domain.GetSignalSnapshotRequest{}, 1*time.Second), func(err error) any {
			return domain.GetSignalSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.scheduler.RequestOnce(state.tickInterval(), ctx.Self(), pointTick{})
		state.behavior.BecomeStacked(state.AwaitSnapshotReceive)
	case domain.GetSignalSnapshotResponse:
		if msg.HasResponseError() {
			// evaluate anyway: calculators degrade on missing signals
			state.logger.Warn("point@default snapshot error", zap.Error(msg.GetResponseError()))
		}
		state.evaluate(ctx, msg.Weather, msg.Prices, time.Now())
	case domain.GetPointRequest:
		point := state.point
		ForRequest(msg).Respond(ctx, domain.GetPointResponse{Point: &point})
	case domain.SetModeRequest:
		state.logger.Info("point@default SetModeRequest", zap.String("mode", string(msg.Mode)))
		state.point.Mode = msg.Mode
		state.persistRecord(ctx)
		state.publishPointState()
		point := state.point
		ForRequest(msg).Respond(ctx, domain.SetModeResponse{Point: &point})
		ctx.Send(ctx.Self(), pointTick{})
	case domain.SetManualLimitRequest:
		// applying a limit implies manual mode
		state.logger.Info("point@default SetManualLimitRequest", zap.Float64("kw", msg.KW))
		state.point.Mode = domain.ModeManual
		state.point.ManualKW = msg.KW
		state.persistRecord(ctx)
		state.publishPointState()
		point := state.point
		ForRequest(msg).Respond(ctx, domain.SetManualLimitResponse{Point: &point})
		ctx.Send(ctx.Self(), pointTick{})
	case domain.SetSoCRequest:
		state.logger.Debug("point@default SetSoCRequest", zap.Int("soc", msg.SoC))
		soc := msg.SoC
		state.point.CurrentSoC = &soc
		point := state.point
		ForRequest(msg).Respond(ctx, domain.SetSoCResponse{Point: &point})
		ctx.Send(ctx.Self(), pointTick{})
	case domain.GetBoostConfigRequest:
		ForRequest(msg).Respond(ctx, domain.GetBoostConfigResponse{Config: state.boost})
	case domain.SetBoostConfigRequest:
		state.logger.Info("point@default SetBoostConfigRequest",
			zap.Bool("enabled", msg.Config.Enabled), zap.Int("target_soc", msg.Config.TargetSoC))
		state.boost = msg.Config
		state.persistRecord(ctx)
		ForRequest(msg).Respond(ctx, domain.SetBoostConfigResponse{Config: state.boost})
		ctx.Send(ctx.Self(), pointTick{})
	case domain.EcoConfigChanged:
		state.eco = msg.Config
	case domain.TelemetryUpdate:
		state.applyTelemetry(ctx, msg)
	case domain.DispatchTargetResponse:
		if msg.HasResponseError() {
			state.logger.Error("point@default dispatch failed", zap.Error(msg.GetResponseError()))
			state.point.LastError = msg.GetResponseError().Error()
			// retry on the next tick
			state.dispatchedOnce = false
		}
	default:
		state.logger.Debug("point@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PointActor) AwaitSnapshotReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetSignalSnapshotResponse:
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("point@awaitSnapshot stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PointActor) tickInterval() time.Duration {
	return time.Duration(state.config.Engine.TickIntervalMillis) * time.Millisecond
}

// evaluate runs the policy over the current snapshot and dispatches the
// target when it moved.
func (state *PointActor) evaluate(ctx actor.Context, weather *domain.WeatherSample, prices *domain.PriceState, now time.Time) {
	result := state.policy.Evaluate(domain.TickInput{
		State:             state.point,
		Boost:             state.boost,
		Eco:               state.eco,
		Weather:           weather,
		Prices:            prices,
		PrevPriceSlot:     state.prevPriceSlot,
		PrevPriceTargetKW: state.prevPriceTargetKW,
		PrevPriceOverride: state.prevPriceOverride,
		Now:               now,
	})

	state.prevPriceSlot = result.PriceSlot
	state.prevPriceTargetKW = result.TargetKW
	state.prevPriceOverride = result.PriceOverride
	state.point.SessionEstEndAt = result.SessionEstEndAt

	if state.point.TargetKW != result.TargetKW {
		state.logger.Info("point: target changed",
			zap.Float64("from_kw", state.point.TargetKW), zap.Float64("to_kw", result.TargetKW))
	}
	state.point.TargetKW = result.TargetKW

	if !state.dispatchedOnce || state.lastDispatchedKW != result.TargetKW {
		state.dispatch(ctx, result.TargetKW)
	}
	state.publishPointState()
}

func (state *PointActor) dispatch(ctx actor.Context, targetKW float64) {
	state.lastDispatchedKW = targetKW
	state.dispatchedOnce = true
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.DispatchTargetRequest{
		PointID:  state.point.ID,
		TargetKW: targetKW,
		Amps:     domain.AmpsFromKW(targetKW, state.point.VoltagePerPhase, state.point.PhaseCount),
	}, 5*time.Second), func(err error) any {
		return domain.DispatchTargetResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Error:              err,
		}
	})
}

func (state *PointActor) applyTelemetry(ctx actor.Context, msg domain.TelemetryUpdate) {
	state.logger.Debug("point@default telemetry", zap.String("status", string(msg.Status)))

	prevEnergy := state.point.EnergyKWhTotal

	if msg.Status != "" {
		state.point.Status = msg.Status
	}
	if msg.ErrorCode != nil {
		state.point.ErrorCode = *msg.ErrorCode
	}
	if msg.CurrentKW != nil {
		state.point.CurrentKW = *msg.CurrentKW
	}
	if msg.SoC != nil {
		soc := *msg.SoC
		state.point.CurrentSoC = &soc
	}
	if !msg.Heartbeat.IsZero() {
		state.point.LastHeartbeat = msg.Heartbeat
	}
	if state.point.Status == domain.StatusFaulted {
		state.point.LastError = state.point.ErrorCode
	}

	// session bookkeeping
	if state.point.Status == domain.StatusCharging && !state.point.TxActive {
		now := time.Now()
		state.point.TxActive = true
		state.point.SessionStartAt = &now
		state.point.SessionKWh = 0
	} else if state.point.Status != domain.StatusCharging && state.point.TxActive {
		state.point.TxActive = false
		state.point.SessionStartAt = nil
		state.point.SessionEstEndAt = nil
	}

	if msg.EnergyKWhTotal != nil {
		state.point.EnergyKWhTotal = *msg.EnergyKWhTotal
		delta := state.point.EnergyKWhTotal - prevEnergy
		// a counter reset at the charger yields a negative delta; skip it
		if prevEnergy > 0 && delta > 0 {
			if state.point.TxActive {
				state.point.SessionKWh += delta
			}
			ctx.Send(state.statsActor, domain.EnergyDelivered{
				Sample: domain.EnergySample{
					ID:      uuid.NewString(),
					PointID: state.point.ID,
					At:      time.Now(),
					KWh:     delta,
				},
			})
		}
	}

	state.publishPointState()
}

func (state *PointActor) persistRecord(ctx actor.Context) {
	if state.store == nil {
		return
	}
	rec := port.PointRecord{
		ID:       state.point.ID,
		Mode:     state.point.Mode,
		ManualKW: state.point.ManualKW,
		Boost:    state.boost,
	}
	NewBackgroundTaskErr(ctx, func() error {
		return state.store.SavePoint(context.Background(), rec)
	}).WithTimeout(5 * time.Second).OnError(func(err error) {
		state.logger.Error("point: could not persist record", zap.Error(err))
	}).Run()
}

func (state *PointActor) publishPointState() {
	point := state.point
	for _, ev := range events.ChargePointToUpdateEvents(&point) {
		state.eventStream.Publish(ev)
	}
}
