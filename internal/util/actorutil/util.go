package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

// PipeToSelfWithRecover forwards the future's result to the actor itself,
// mapping an error into a message so the receive loop never sees a bare
// failure.
func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedPointCommandToRequest maps an operator command arriving over MQTT
// onto the same request messages the REST layer uses.
func ParsedPointCommandToRequest(cmd mqtt.ParsedPointCommand) (domain.ActorRequest, error) {
	switch cmd.Field {
	case mqtt.POINT_COMMAND_MODE:
		mode, err := domain.ParsePowerMode(cmd.Payload)
		if err != nil {
			return nil, err
		}
		return domain.SetModeRequest{PointID: cmd.PointID, Mode: mode}, nil
	case mqtt.POINT_COMMAND_LIMIT:
		kw, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetManualLimitRequest{PointID: cmd.PointID, KW: kw}, nil
	case mqtt.POINT_COMMAND_SOC:
		soc, err := strconv.ParseUint(cmd.Payload, 10, 8)
		if err != nil {
			return nil, err
		}
		if soc > 100 {
			return nil, fmt.Errorf("soc out of range: %d", soc)
		}
		return domain.SetSoCRequest{PointID: cmd.PointID, SoC: int(soc)}, nil
	}
	return nil, fmt.Errorf("unknown point command: %s", cmd.Field)
}
