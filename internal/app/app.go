// Package app assembles the dashboard service from its configuration.  The
// optional backends (Redis, MinIO, Kafka, Gemini) are wired only when
// enabled; one that cannot be reached at startup is logged and left out.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sigtopo/coop-driouch/internal/application/dashboard"
	"github.com/sigtopo/coop-driouch/internal/application/dataset"
	"github.com/sigtopo/coop-driouch/internal/application/insight"
	"github.com/sigtopo/coop-driouch/internal/config"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/ai/gemini"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/database/redis"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/datasource"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/messaging/kafka"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/prometheus"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/storage/minio"
	httpserver "github.com/sigtopo/coop-driouch/internal/interfaces/http"
	"github.com/sigtopo/coop-driouch/internal/interfaces/http/handlers"
	"github.com/sigtopo/coop-driouch/internal/interfaces/http/middleware"
)

// Version is reported by the liveness probe.  Set via ldflags.
var Version = "dev"

// App is the fully wired service.
type App struct {
	cfg       *config.Config
	logger    logging.Logger
	replicaID string

	Store     *feature.Store
	Metrics   *prometheus.AppMetrics
	Refresher *dataset.Refresher
	Sessions  *dashboard.Manager
	Insight   *insight.Service
	Server    *httpserver.Server

	collector prometheus.MetricsCollector
	limiter   *middleware.TokenBucketLimiter
	consumer  *kafka.Consumer
	checkers  []handlers.HealthChecker
	closers   []func() error
}

// NewSource builds the GeoJSON downloader from cfg.Source.
func NewSource(cfg *config.Config, logger logging.Logger) (*datasource.Client, error) {
	return datasource.NewClient(datasource.URLs{
		Features: cfg.Source.FeaturesURL,
		Province: cfg.Source.ProvinceURL,
		Communes: cfg.Source.CommunesURL,
	}, logger,
		datasource.WithTimeout(cfg.Source.Timeout),
		datasource.WithUserAgent(cfg.Source.UserAgent))
}

// NewInsight builds the summary service.  Without an API key the service
// answers with the unavailable message.
func NewInsight(ctx context.Context, cfg *config.Config, logger logging.Logger, observe func(string, time.Duration)) *insight.Service {
	opts := insight.Options{
		SampleSize: cfg.Insight.SampleSize,
		Timeout:    cfg.Insight.Timeout,
		Observe:    observe,
	}
	if cfg.Insight.APIKey == "" {
		logger.Info("insight disabled: no API key configured")
		return insight.NewService(nil, opts, logger)
	}
	s, err := gemini.New(ctx, cfg.Insight.APIKey, cfg.Insight.Model, logger)
	if err != nil {
		logger.Warn("insight disabled: Gemini client unavailable", logging.Err(err))
		return insight.NewService(nil, opts, logger)
	}
	return insight.NewService(s, opts, logger)
}

func newReplicaID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "coopmap"
	}
	return host + "-" + uuid.NewString()[:8]
}

// New wires every component.  Nothing is started.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, replicaID: newReplicaID()}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		Subsystem:            cfg.Metrics.Subsystem,
		EnableProcessMetrics: cfg.Metrics.Enabled,
		EnableGoMetrics:      cfg.Metrics.Enabled,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.collector = collector
	a.Metrics = prometheus.NewAppMetrics(collector)

	a.Store = feature.NewStore(feature.WithStaleHook(func(r feature.Resource) {
		a.Metrics.IncStale(string(r))
	}))
	a.checkers = append(a.checkers, handlers.DatasetChecker{Store: a.Store})

	source, err := NewSource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("datasource: %w", err)
	}

	opts := []dataset.Option{dataset.WithMetrics(a.Metrics)}
	opts = append(opts, a.wireRedis(ctx)...)
	opts = append(opts, a.wireMinIO(ctx)...)
	opts = append(opts, a.wireKafkaProducer()...)

	a.Refresher = dataset.New(a.Store, source, dataset.Config{
		Interval:  cfg.Source.RefreshInterval,
		Timeout:   cfg.Source.Timeout,
		ReplicaID: a.replicaID,
	}, logger, opts...)
	a.wireKafkaConsumer()

	a.Insight = NewInsight(ctx, cfg, logger, a.Metrics.ObserveInsight)
	options := &filter.OptionCache{}
	a.Sessions = dashboard.NewManager(a.Store, dashboard.Config{
		TTL:               cfg.Session.TTL,
		MaxSessions:       cfg.Session.MaxSessions,
		JanitorInterval:   cfg.Session.JanitorInterval,
		CompactBreakpoint: cfg.Layout.CompactBreakpoint,
	}, logger,
		dashboard.WithInsight(a.Insight),
		dashboard.WithOptionCache(options),
		dashboard.WithMetrics(a.Metrics))

	a.Server = httpserver.NewServer(cfg.Server, a.Router(), logger)
	return a, nil
}

func (a *App) wireRedis(ctx context.Context) []dataset.Option {
	rc := a.cfg.Redis
	if !rc.Enabled {
		return nil
	}
	client, err := redis.NewClient(ctx, redis.Options{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}, a.logger)
	if err != nil {
		a.logger.Warn("redis unavailable, running without snapshot cache and leases", logging.Err(err))
		return nil
	}
	a.closers = append(a.closers, client.Close)
	a.checkers = append(a.checkers, redisHealth{client: client})

	cache := redis.NewSnapshotCache(client, a.logger, redis.WithPrefix(rc.KeyPrefix), redis.WithTTL(rc.SnapshotTTL))
	leaser := redis.NewLeaser(client, rc.KeyPrefix, a.logger)
	return []dataset.Option{
		dataset.WithCache(snapshotCacheAdapter{cache: cache}),
		dataset.WithLeaser(leaserAdapter{leaser: leaser}),
	}
}

func (a *App) wireMinIO(ctx context.Context) []dataset.Option {
	mc := a.cfg.MinIO
	if !mc.Enabled {
		return nil
	}
	client, err := minio.NewClient(ctx, minio.Config{
		Endpoint:  mc.Endpoint,
		AccessKey: mc.AccessKey,
		SecretKey: mc.SecretKey,
		Bucket:    mc.Bucket,
		Region:    mc.Region,
		UseSSL:    mc.UseSSL,
	}, a.logger)
	if err != nil {
		a.logger.Warn("minio unavailable, snapshots will not be archived", logging.Err(err))
		return nil
	}
	a.checkers = append(a.checkers, minioHealth{client: client})
	return []dataset.Option{dataset.WithArchiver(minio.NewArchive(client, mc.Retain, a.logger))}
}

func (a *App) wireKafkaProducer() []dataset.Option {
	kc := a.cfg.Kafka
	if !kc.Enabled {
		return nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      kc.Brokers,
		RequiredAcks: kc.RequiredAcks,
		MaxAttempts:  kc.MaxAttempts,
		BatchTimeout: kc.BatchTimeout,
	}, a.logger)
	if err != nil {
		a.logger.Warn("kafka producer disabled", logging.Err(err))
		return nil
	}
	a.closers = append(a.closers, producer.Close)
	return []dataset.Option{dataset.WithPublisher(eventPublisher{
		producer: producer,
		topic:    kc.Topic,
		source:   a.replicaID,
	})}
}

// wireKafkaConsumer gives every replica its own group so each one sees
// every announcement.
func (a *App) wireKafkaConsumer() {
	kc := a.cfg.Kafka
	if !kc.Enabled || !kc.Consume {
		return
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: kc.Brokers,
		GroupID: kc.GroupPrefix + "-" + a.replicaID,
		Topic:   kc.Topic,
	}, peerHandler(a.Refresher, a.logger.Named("peer")), a.logger)
	if err != nil {
		a.logger.Warn("kafka consumer disabled", logging.Err(err))
		return
	}
	a.consumer = consumer
}

// Router builds the HTTP handler tree.
func (a *App) Router() http.Handler {
	sc := a.cfg.Server
	gin.SetMode(sc.Mode)

	cors := middleware.DefaultCORSConfig()
	if len(sc.CORSOrigins) > 0 {
		cors.AllowedOrigins = sc.CORSOrigins
	}
	rl := middleware.DefaultRateLimitConfig()
	if sc.RateLimitRPS > 0 {
		rl.RequestsPerSecond = sc.RateLimitRPS
		rl.BurstSize = sc.RateLimitBurst
		a.limiter = middleware.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval)
	}

	rcfg := httpserver.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(Version, a.checkers...),
		DatasetHandler: handlers.NewDatasetHandler(a.Store, a.Refresher, a.Sessions),
		SessionHandler: handlers.NewSessionHandler(a.Sessions),
		CORS:           cors,
		Logging:        middleware.DefaultLoggingConfig(),
		RateLimit:      rl,
		Recorder:       a.Metrics,
		Logger:         a.logger,
		MetricsPath:    a.cfg.Metrics.Path,
	}
	if a.limiter != nil {
		rcfg.RateLimiter = a.limiter
	}
	if a.cfg.Metrics.Enabled {
		rcfg.MetricsHandler = a.collector.Handler()
	}
	return httpserver.NewRouter(rcfg)
}

// Run restores cached snapshots, starts the background loops and serves
// HTTP until ctx ends.  Shutdown drains in reverse start order.
func (a *App) Run(ctx context.Context) error {
	if n := a.Refresher.WarmStart(ctx); n > 0 {
		a.logger.Info("served from snapshot cache until first fetch", logging.Int("resources", n))
	}
	if err := a.Refresher.Start(ctx); err != nil {
		return err
	}
	a.Sessions.Start(ctx)
	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			a.logger.Warn("kafka consumer failed to start", logging.Err(err))
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Server.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		if runErr != nil {
			a.logger.Error("HTTP server failed", logging.Err(runErr))
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Stop(stopCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Refresher.Stop() }()
	go func() { defer wg.Done(); a.Sessions.Stop() }()
	wg.Wait()

	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("kafka consumer close failed", logging.Err(err))
		}
	}
	if err := a.Close(); err != nil {
		a.logger.Warn("backend close failed", logging.Err(err))
	}
}

// Close releases backend connections.  It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
