package actor

import (
	"testing"
	"time"

	adactor "github.com/chargesteer/chargesteer/internal/adapter/actor"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
	"github.com/chargesteer/chargesteer/internal/util"
	"github.com/chargesteer/chargesteer/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnTestPoint(t *testing.T) (*actor.ActorSystem, *actor.RootContext, *actor.PID, *actor.PID) {
	t.Helper()

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root
	es := &eventstream.EventStream{}

	signalsPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSignalsActor(&cfg, es, logger)
	}))
	mqttPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTestMQTTActor(&cfg, es, logger)
	}))
	statsPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewStatsActor(nil, es, logger)
	}))
	pointPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPointActor(&cfg, cfg.Points[0], port.PointRecord{},
			domain.EcoConfig{SunnyKW: cfg.EcoDefaults.SunnyKW, CloudyKW: cfg.EcoDefaults.CloudyKW},
			signalsPID, mqttPID, statsPID, nil, es, logger)
	}))

	time.Sleep(500 * time.Millisecond)

	return as, context, pointPID, statsPID
}

func getPoint(t *testing.T, context *actor.RootContext, pid *actor.PID) domain.ChargePointState {
	t.Helper()
	res, err := context.RequestFuture(pid, domain.GetPointRequest{PointID: "cp-01"}, 2*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	resp, ok := res.(domain.GetPointResponse)
	assert.True(t, ok)
	return *resp.Point
}

func TestPointDefaultsToOff(t *testing.T) {

	as, context, pointPID, _ := spawnTestPoint(t)
	defer as.Shutdown()

	point := getPoint(t, context, pointPID)
	assert.Equal(t, domain.ModeOff, point.Mode)
	assert.Equal(t, 0.0, point.TargetKW)
	assert.Equal(t, domain.StatusDisconnected, point.Status)
}

func TestPointTelemetrySession(t *testing.T) {

	as, context, pointPID, statsPID := spawnTestPoint(t)
	defer as.Shutdown()

	kw := 7.2
	total := 100.0
	context.Send(pointPID, domain.TelemetryUpdate{
		PointID:        "cp-01",
		Status:         domain.StatusCharging,
		CurrentKW:      &kw,
		EnergyKWhTotal: &total,
		Heartbeat:      time.Now(),
	})

	time.Sleep(200 * time.Millisecond)

	point := getPoint(t, context, pointPID)
	assert.True(t, point.TxActive)
	assert.NotNil(t, point.SessionStartAt)
	assert.Equal(t, 7.2, point.CurrentKW)

	// counter advance emits an energy sample
	total2 := 101.5
	context.Send(pointPID, domain.TelemetryUpdate{
		PointID:        "cp-01",
		Status:         domain.StatusCharging,
		EnergyKWhTotal: &total2,
		Heartbeat:      time.Now(),
	})

	time.Sleep(200 * time.Millisecond)

	point = getPoint(t, context, pointPID)
	assert.InDelta(t, 1.5, point.SessionKWh, 1e-9)

	res, err := context.RequestFuture(statsPID, domain.GetStatsRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	statsResp, ok := res.(domain.GetStatsResponse)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, statsResp.Total.Last7dKWh, 1e-9)

	// session ends when charging stops
	context.Send(pointPID, domain.TelemetryUpdate{
		PointID:   "cp-01",
		Status:    domain.StatusAvailable,
		Heartbeat: time.Now(),
	})

	time.Sleep(200 * time.Millisecond)

	point = getPoint(t, context, pointPID)
	assert.False(t, point.TxActive)
	assert.Nil(t, point.SessionStartAt)
}

func TestPointFaultRecordsError(t *testing.T) {

	as, context, pointPID, _ := spawnTestPoint(t)
	defer as.Shutdown()

	code := "OverCurrentFailure"
	context.Send(pointPID, domain.TelemetryUpdate{
		PointID:   "cp-01",
		Status:    domain.StatusFaulted,
		ErrorCode: &code,
		Heartbeat: time.Now(),
	})

	time.Sleep(200 * time.Millisecond)

	point := getPoint(t, context, pointPID)
	assert.Equal(t, domain.StatusFaulted, point.Status)
	assert.Equal(t, code, point.LastError)
}

func TestPointSetSoC(t *testing.T) {

	as, context, pointPID, _ := spawnTestPoint(t)
	defer as.Shutdown()

	res, err := context.RequestFuture(pointPID, domain.SetSoCRequest{PointID: "cp-01", SoC: 55}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := res.(domain.SetSoCResponse)
	assert.True(t, ok)
	assert.NotNil(t, resp.Point.CurrentSoC)
	assert.Equal(t, 55, *resp.Point.CurrentSoC)
}
