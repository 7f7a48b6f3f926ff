// Command hapticd runs the haptic command queue, the pattern executor and
// their HTTP API as one process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/hapticqueue/pkg/clientip"
	"github.com/dmitrymomot/hapticqueue/pkg/config"
	"github.com/dmitrymomot/hapticqueue/pkg/device"
	"github.com/dmitrymomot/hapticqueue/pkg/feed"
	"github.com/dmitrymomot/hapticqueue/pkg/httpapi"
	"github.com/dmitrymomot/hapticqueue/pkg/httpserver"
	"github.com/dmitrymomot/hapticqueue/pkg/logger"
	"github.com/dmitrymomot/hapticqueue/pkg/metrics"
	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
	"github.com/dmitrymomot/hapticqueue/pkg/redis"
	"github.com/dmitrymomot/hapticqueue/pkg/requestid"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Service  string `env:"APP_NAME" envDefault:"hapticd"`
	LogLevel string `env:"LOG_LEVEL"`

	// Proxy headers trusted for the client address; empty keeps the defaults.
	TrustedHeaders []string `env:"HTTP_TRUSTED_HEADERS" envSeparator:","`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, app.Service),
		logger.WithLevelName(app.LogLevel),
		logger.WithContextExtractors(requestid.LogExtractor(), clientip.LogExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, app, log); err != nil {
		log.Error("hapticd stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("hapticd stopped")
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	var (
		qcfg   queue.Config
		pcfg   pattern.Config
		dcfg   device.Config
		fcfg   feed.Config
		rcfg   redis.Config
		hcfg   httpserver.Config
		cfgErr error
	)
	for _, load := range []func() error{
		func() error { return config.Load(&qcfg) },
		func() error { return config.Load(&pcfg) },
		func() error { return config.Load(&dcfg) },
		func() error { return config.Load(&fcfg) },
		func() error { return config.Load(&rcfg) },
		func() error { return config.Load(&hcfg) },
	} {
		cfgErr = errors.Join(cfgErr, load())
	}
	if cfgErr != nil {
		return cfgErr
	}

	sender, err := newSender(dcfg, log)
	if err != nil {
		return err
	}

	q, err := queue.NewFromConfig(sender, qcfg, queue.WithLogger(log))
	if err != nil {
		return err
	}

	library, err := pcfg.Library()
	if err != nil {
		return err
	}
	executor, err := pattern.NewExecutor(q, append(pcfg.Options(), pattern.WithExecutorLogger(log))...)
	if err != nil {
		return err
	}
	log.Info("pattern library ready", slog.Any("patterns", library.Names()))

	collector := metrics.New()
	unwatchQueue, err := collector.WatchQueue(q)
	if err != nil {
		return err
	}
	defer unwatchQueue()
	unwatchExec, err := collector.WatchExecutor(executor)
	if err != nil {
		return err
	}
	defer unwatchExec()

	hub := feed.NewHub(fcfg, feed.WithHubLogger(log))
	sinks := []feed.Sink{hub}

	apiOpts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithMetricsHandler(collector.Handler()),
		httpapi.WithFeedHandler(hub),
	}
	if len(app.TrustedHeaders) > 0 {
		apiOpts = append(apiOpts, httpapi.WithTrustedHeaders(app.TrustedHeaders...))
	}

	g, ctx := errgroup.WithContext(ctx)

	var relay *feed.RedisRelay
	if fcfg.RedisEnabled {
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		relay, err = feed.NewRedisRelay(client, fcfg.RedisChannel, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, relay)
		apiOpts = append(apiOpts, httpapi.WithHealthCheck("redis", redis.Healthcheck(client)))
		log.Info("feed relay enabled", slog.String("channel", fcfg.RedisChannel), slog.String("origin", relay.Origin()))
	}

	stopForward := feed.Forward(q, executor, log, sinks...)
	defer stopForward()

	api, err := httpapi.New(q, executor, library, apiOpts...)
	if err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(api.Handler(), hcfg, httpserver.WithLogger(log))

	g.Go(q.Run(ctx))
	g.Go(executor.Run(ctx))
	g.Go(hub.Run(ctx))
	if relay != nil {
		g.Go(relay.Run(ctx, hub))
	}
	g.Go(srv.Run(ctx))

	log.Info("hapticd started",
		slog.String("addr", hcfg.Addr),
		slog.Bool("dry_run", dcfg.DryRun),
	)
	return g.Wait()
}

func newSender(cfg device.Config, log *slog.Logger) (device.Sender, error) {
	if cfg.DryRun {
		log.Warn("device dry run enabled, commands are only logged")
		return device.NewDryRun(log.With(logger.Component("device"))), nil
	}
	client, err := device.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
