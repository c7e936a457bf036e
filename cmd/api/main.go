package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/chargesteer/chargesteer/internal/adapter/actor"
	"github.com/chargesteer/chargesteer/internal/adapter/feed"
	"github.com/chargesteer/chargesteer/internal/adapter/store"
	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/core/actor"
	"github.com/chargesteer/chargesteer/internal/server"
	"github.com/chargesteer/chargesteer/internal/util/actorutil"
	"github.com/chargesteer/chargesteer/internal/util/logbuf"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, poller *feed.Poller, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	poller.Stop()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	slog.Info("chargesteer", "version", versioninfo.Short())

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger, teeing into the ring served at /api/logs
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logBuffer := logbuf.NewBuffer(500)
	logger := zap.Must(zapCfg.Build(zap.Hooks(logBuffer.ZapHook())))

	// persistent store
	db, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("store open failed", zap.Error(err))
		return
	}
	defer db.Close()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, mqttActorProvider(cfg, logger), db, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	// external feeds
	poller := feed.NewPoller(cfg,
		feed.NewOpenMeteoFeed(cfg.WeatherFeed),
		feed.NewAwattarFeed(cfg.PriceFeed),
		as, pid, logger)
	if err := poller.Start(context.Background()); err != nil {
		logger.Error("feed poller start failed", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, logBuffer)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, poller, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => CHARGESTEER_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("CHARGESTEER_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("chargesteer")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// electrical defaults for points declared with id only
	for i := range cfg.Points {
		if cfg.Points[i].PhaseCount == 0 {
			cfg.Points[i].PhaseCount = 3
		}
		if cfg.Points[i].VoltagePerPhase == 0 {
			cfg.Points[i].VoltagePerPhase = 230
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.base_topic", "chargesteer")
	viper.SetDefault("power.min_kw", 1.4)
	viper.SetDefault("power.max_kw", 22.0)
	viper.SetDefault("power.base_limit_kw", 11.0)
	viper.SetDefault("eco.sunny_kw", 11.0)
	viper.SetDefault("eco.cloudy_kw", 4.0)
	viper.SetDefault("eco.rad_cloudy_wm2", 200.0)
	viper.SetDefault("eco.rad_sunny_wm2", 650.0)
	viper.SetDefault("price.morning_cutoff", "07:00")
	viper.SetDefault("price.grid_interval_minutes", 15)
	viper.SetDefault("price.max_staleness_minutes", 120)
	viper.SetDefault("engine.tick_interval_millis", 5000)
	viper.SetDefault("weather_feed.url", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("weather_feed.poll_cron", "0 */15 * * * *")
	viper.SetDefault("weather_feed.max_staleness_minutes", 30)
	viper.SetDefault("price_feed.url", "https://api.awattar.de/v1/marketdata")
	viper.SetDefault("price_feed.poll_cron", "0 5 * * * *")
	viper.SetDefault("store.path", "chargesteer.db")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
