package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	"heliowatch/internal/domain/repository"
	domsvc "heliowatch/internal/domain/service"
	"heliowatch/internal/handler/api"
	mid "heliowatch/internal/middleware"
	internalrepo "heliowatch/internal/repository"
	rescache "heliowatch/internal/service/cache"
	"heliowatch/internal/service/groundlink"
	"heliowatch/internal/service/registry"
	analysissvc "heliowatch/internal/services/analysis"
	"heliowatch/internal/usecase"
	pkgcache "heliowatch/pkg/cache"
	pkgch "heliowatch/pkg/clickhouse"
	"heliowatch/pkg/config"
	xhttp "heliowatch/pkg/http"
	pkgkafka "heliowatch/pkg/kafka"
	applogger "heliowatch/pkg/logger"
	"heliowatch/pkg/metrics"
	"heliowatch/pkg/server"

	"github.com/jonboulle/clockwork"
)

// ProvideLogger creates the structured app logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// readings schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.ReadingSchema(readingsTable(cfg))...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func readingsTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + ".readings"
}

// ProvideReadingStorage creates the ClickHouse reading store.
func ProvideReadingStorage(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.Storage {
	store := internalrepo.NewClickHouseReadingStore(chClient.DB(), readingsTable(cfg))
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates the Kafka producer from YAML settings.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReadingPublisher creates the Kafka publisher repository.
func ProvideReadingPublisher(producer *pkgkafka.Producer, cfg *config.Config, detCfg cme.DetectorConfig) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.RiskTopic, detCfg)
}

// ProvideKafkaConsumer creates the sink-side consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaReadingsHandler binds the sink handler to the readings topic.
func ProvideKafkaReadingsHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.KafkaReadingsHandler {
	return usecase.NewKafkaReadingsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideGroundlinkStream creates the ground-station WebSocket stream
// subscribed to all instruments.
func ProvideGroundlinkStream(cfg *config.Config) repository.TelemetryStream {
	return groundlink.New(
		cfg.Groundlink.APIKey,
		cfg.Groundlink.WebSocketURL,
		models.Instruments(),
		cfg.Groundlink.ReconnectDelay,
		cfg.Groundlink.PingInterval,
	)
}

// ProvideDetectorConfig builds the detector thresholds from config.
func ProvideDetectorConfig(cfg *config.Config) cme.DetectorConfig {
	dc := cme.DefaultDetectorConfig()
	if cfg.Detector.Threshold > 0 {
		dc.Threshold = cfg.Detector.Threshold
	}
	if cfg.Detector.EventThreshold > 0 {
		dc.EventThreshold = cfg.Detector.EventThreshold
	}
	for name, th := range cfg.Detector.Overrides {
		if dc.Overrides == nil {
			dc.Overrides = make(map[models.Instrument]float64)
		}
		dc.Overrides[models.Instrument(name)] = th
	}
	return dc
}

// ProvideSnapshot creates the latest-reading store.
func ProvideSnapshot() *usecase.LatestSnapshot {
	return usecase.NewLatestSnapshot()
}

// ProvideEventTracker creates the detection event tracker.
func ProvideEventTracker() *usecase.EventTracker {
	return usecase.NewEventTracker()
}

// ProvideReadingProcessor creates the backend router.
func ProvideReadingProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ReadingProcessor {
	return usecase.NewReadingProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideReadingCollector creates the collector with its pipeline.
func ProvideReadingCollector(
	stream repository.TelemetryStream,
	processor *usecase.ReadingProcessor,
	m repository.Metrics,
	snapshot *usecase.LatestSnapshot,
) *usecase.ReadingCollector {
	pipe := mid.NewTelemetryPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewReadingCollector(stream, processor, m, pipe, snapshot)
}

// ProvideRiskSampler creates the tick-driven risk sampler on the real clock.
func ProvideRiskSampler(
	snapshot *usecase.LatestSnapshot,
	tracker *usecase.EventTracker,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
	detCfg cme.DetectorConfig,
	cfg *config.Config,
) *usecase.RiskSampler {
	return usecase.NewRiskSampler(snapshot, tracker, pub, m, l,
		clockwork.NewRealClock(), cfg.SamplerInterval(), detCfg)
}

// ProvideModelRegistry builds the config-backed registry.
func ProvideModelRegistry(cfg *config.Config) domsvc.ModelRegistry {
	entries := make(map[models.Instrument]domsvc.RegistryEntry, len(cfg.Models.Registry))
	for name, e := range cfg.Models.Registry {
		entries[models.Instrument(name)] = domsvc.RegistryEntry{
			ClassificationRef: domsvc.ModelRef(e.Classification),
			DetectionRef:      domsvc.ModelRef(e.Detection),
			TimeSeriesRef:     domsvc.ModelRef(e.TimeSeries),
		}
	}
	return registry.New(entries)
}

// ProvideForecaster creates the inference HTTP client.
func ProvideForecaster(cfg *config.Config) domsvc.Forecaster {
	return analysissvc.NewHTTPForecaster(cfg)
}

// ProvideResultCache picks the cache backend: Redis when enabled in
// config, in-process memory otherwise.
func ProvideResultCache(cfg *config.Config, l *applogger.Logger) *rescache.ResultCache {
	if cfg.Models.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddress(splitHostPort(cfg.Models.Redis.Addr)),
			pkgcache.WithRedisPassword(cfg.Models.Redis.Password),
			pkgcache.WithRedisDB(cfg.Models.Redis.DB),
		)
		if err == nil {
			return rescache.NewResultCache(rc)
		}
		l.Warn("redis cache unavailable, falling back to memory", applogger.Error(err))
	}
	return rescache.NewResultCache(pkgcache.NewMemoryCache())
}

// ProvideAnalysisUseCase wires the on-demand analysis path.
func ProvideAnalysisUseCase(
	snapshot *usecase.LatestSnapshot,
	tracker *usecase.EventTracker,
	reg domsvc.ModelRegistry,
	forecaster domsvc.Forecaster,
	cache *rescache.ResultCache,
	l *applogger.Logger,
	detCfg cme.DetectorConfig,
	cfg *config.Config,
) *usecase.InstrumentAnalysisUseCase {
	return usecase.NewInstrumentAnalysisUseCase(snapshot, tracker, reg, forecaster, cache, l, detCfg,
		usecase.AnalysisTTLs{
			Classification: cfg.Models.CacheTTL.Classification,
			Detection:      cfg.Models.CacheTTL.Detection,
			Forecast:       cfg.Models.CacheTTL.Forecast,
		})
}

// ProvideStatusUseCase creates the instrument listing use case.
func ProvideStatusUseCase(snapshot *usecase.LatestSnapshot, tracker *usecase.EventTracker) *usecase.InstrumentStatusUseCase {
	return usecase.NewInstrumentStatusUseCase(snapshot, tracker)
}

// ProvideReadingsQuery creates the history query use case.
func ProvideReadingsQuery(store repository.Storage) *usecase.ReadingsQueryUseCase {
	return usecase.NewReadingsQueryUseCase(store)
}

// ProvideDashboardHandler wires the HTTP handler.
func ProvideDashboardHandler(
	l *applogger.Logger,
	sampler *usecase.RiskSampler,
	snapshot *usecase.LatestSnapshot,
	statuses *usecase.InstrumentStatusUseCase,
	analysis *usecase.InstrumentAnalysisUseCase,
	readings *usecase.ReadingsQueryUseCase,
	store repository.Storage,
	collector *usecase.ReadingCollector,
	cfg *config.Config,
) xhttp.Handler {
	steps, step := cfg.ForecastDefaults()
	h := api.NewDashboardHandler(l, sampler, snapshot, statuses, analysis, readings, steps, step)
	h.SetHealth(store, collector.IsConnected)
	return h
}

// ProvideApp assembles the application server. The consumer only runs
// in kafka backend mode, where this process is also the sink.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.ReadingCollector,
	sampler *usecase.RiskSampler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaReadingsHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	var sinkConsumer *pkgkafka.Consumer
	var sinkHandler pkgkafka.MessageHandler
	if cfg.Backend.Type == "kafka" {
		consumer.WithHook(pkgkafka.NoopHook{})
		sinkConsumer = consumer
		sinkHandler = kh
	}
	return server.New(cfg, l, collector, sampler, sinkConsumer, sinkHandler, chClient, handler)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
