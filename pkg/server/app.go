package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"heliowatch/internal/usecase"
	pkgch "heliowatch/pkg/clickhouse"
	"heliowatch/pkg/config"
	xhttp "heliowatch/pkg/http"
	pkgkafka "heliowatch/pkg/kafka"
	applogger "heliowatch/pkg/logger"
)

// App owns the process lifecycle: telemetry collector, risk sampler,
// optional Kafka sink consumer, and the HTTP API.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.ReadingCollector
	sampler     *usecase.RiskSampler
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New assembles the app from its wired dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.ReadingCollector,
	sampler *usecase.RiskSampler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		collector:   collector,
		sampler:     sampler,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
		httpHandler: httpHandler,
	}
}

// Run starts everything and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Path != "" {
		serverOpts = append(serverOpts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, serverOpts...)

	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Error("collector start", applogger.Error(err))
		}
	}()
	a.logger.Info("collector started",
		applogger.String("relay", a.cfg.Groundlink.WebSocketURL))

	a.sampler.Start(ctx)
	a.logger.Info("risk sampler started",
		applogger.Duration("interval", a.cfg.SamplerInterval()))

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer start", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	a.sampler.Stop()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.logger.Warn("collector stop", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop", applogger.Error(err))
		}
	}

	// processor owns the publisher and storage handles
	if proc := a.collector.Processor(); proc != nil {
		proc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
