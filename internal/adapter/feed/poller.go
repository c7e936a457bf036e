package feed

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
)

const fetchTimeout = 30 * time.Second

// Poller runs the external feeds on cron schedules and forwards fresh
// samples to the signal cache through the master actor.
type Poller struct {
	config      *config.Config
	weatherFeed port.WeatherFeed
	priceFeed   port.PriceFeed
	system      *actor.ActorSystem
	master      *actor.PID
	scheduler   quartz.Scheduler
	logger      *zap.Logger
}

func NewPoller(cfg *config.Config, weatherFeed port.WeatherFeed, priceFeed port.PriceFeed,
	system *actor.ActorSystem, master *actor.PID, logger *zap.Logger) *Poller {
	return &Poller{
		config:      cfg,
		weatherFeed: weatherFeed,
		priceFeed:   priceFeed,
		system:      system,
		master:      master,
		scheduler:   quartz.NewStdScheduler(),
		logger:      logger.Named("feed"),
	}
}

// Start schedules both feeds and performs an immediate first fetch so the
// engine does not wait a full cron period for its initial signals.
func (p *Poller) Start(ctx context.Context) error {
	weatherTrigger, err := quartz.NewCronTrigger(p.config.WeatherFeed.PollCron)
	if err != nil {
		return err
	}
	priceTrigger, err := quartz.NewCronTrigger(p.config.PriceFeed.PollCron)
	if err != nil {
		return err
	}

	p.scheduler.Start(ctx)

	weatherJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
		p.pollWeather(ctx)
		return true, nil
	})
	if err := p.scheduler.ScheduleJob(
		quartz.NewJobDetail(weatherJob, quartz.NewJobKey("weather_poll")), weatherTrigger); err != nil {
		return err
	}

	priceJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
		p.pollPrices(ctx)
		return true, nil
	})
	if err := p.scheduler.ScheduleJob(
		quartz.NewJobDetail(priceJob, quartz.NewJobKey("price_poll")), priceTrigger); err != nil {
		return err
	}

	go p.pollWeather(ctx)
	go p.pollPrices(ctx)
	return nil
}

func (p *Poller) Stop() {
	p.scheduler.Stop()
}

func (p *Poller) pollWeather(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	sample, err := p.weatherFeed.Fetch(fctx)
	if err != nil {
		p.logger.Warn("weather fetch failed", zap.Error(err))
		return
	}
	p.system.Root.Send(p.master, domain.UpdateWeatherSample{Sample: *sample})
}

func (p *Poller) pollPrices(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	state, err := p.priceFeed.Fetch(fctx)
	if err != nil {
		p.logger.Warn("price fetch failed", zap.Error(err))
		return
	}
	p.system.Root.Send(p.master, domain.UpdatePriceState{State: *state})
}
