package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	domrepo "ChartCrime/internal/domain/repository"
	"ChartCrime/internal/handler/api"
	internalrepo "ChartCrime/internal/repository"
	"ChartCrime/internal/service/fred"
	"ChartCrime/internal/services/analytics"
	"ChartCrime/internal/services/curation"
	"ChartCrime/internal/usecase"
	"ChartCrime/pkg/cache"
	pkgch "ChartCrime/pkg/clickhouse"
	"ChartCrime/pkg/config"
	xhttp "ChartCrime/pkg/http"
	pkgkafka "ChartCrime/pkg/kafka"
	applogger "ChartCrime/pkg/logger"
	"ChartCrime/pkg/metrics"
	"ChartCrime/pkg/server"
)

const connectTimeout = 10 * time.Second

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With("env", cfg.Environment), nil
}

// ProvideRegistry creates a private registry with the runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.NewWithRegistry(reg)
}

func ProvideFredClient(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *fred.Client {
	return fred.New(cfg.Fred.APIKey,
		fred.WithBaseURL(cfg.Fred.BaseURL),
		fred.WithMinInterval(cfg.Fred.MinRequestInterval),
		fred.WithMaxRetries(cfg.Fred.MaxRetries),
		fred.WithMaxBackoff(cfg.Fred.MaxBackoff),
		fred.WithTimeout(cfg.Fred.Timeout),
		fred.WithBreaker(cfg.Fred.BreakerFailures, cfg.Fred.BreakerCooldown),
		fred.WithMetrics(m),
		fred.WithLogger(l),
	)
}

// ProvideCache selects the category membership cache backend.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	var svc cache.Service
	switch cfg.Cache.Backend {
	case "none":
		svc = cache.Nop{}
	case "memory":
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Cache.Backend == "layered" {
			svc = cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(cfg.Cache.MaxSize),
				cache.WithLayeredMemoryTTL(cfg.Cache.TTL),
			)
		}
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	l.Info("cache ready", applogger.String("backend", cfg.Cache.Backend))
	cleanup := func() {
		if err := svc.Close(); err != nil {
			l.Error("cache close failed", applogger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// ProvideSeriesSource fronts the API client with the category membership cache.
func ProvideSeriesSource(client *fred.Client, c cache.Service, cfg *config.Config, l *applogger.Logger) domrepo.SeriesSource {
	if cfg.Cache.Backend == "none" {
		return client
	}
	return internalrepo.NewCachedSeriesSource(client, c, cfg.Cache.TTL, l)
}

func ProvideFileStore(cfg *config.Config) *internalrepo.FileStore {
	return internalrepo.NewFileStore(cfg.Storage.Dir, internalrepo.FileNames{
		Catalog:  cfg.Storage.CatalogFile,
		Results:  cfg.Storage.ResultsFile,
		Rotation: cfg.Storage.RotationFile,
		Detail:   cfg.Storage.DetailFile,
	})
}

// ProvideExclusionFilter uses the configured lists, falling back to the
// built-in ones per list.
func ProvideExclusionFilter(cfg *config.Config) *analytics.ExclusionFilter {
	ids := cfg.Exclusion.IDs
	if len(ids) == 0 {
		ids = analytics.DefaultExcludedIDs()
	}
	keywords := cfg.Exclusion.Keywords
	if len(keywords) == 0 {
		keywords = analytics.DefaultExcludedKeywords()
	}
	return analytics.NewExclusionFilter(ids, keywords)
}

func ProvideCorrelator(
	source domrepo.SeriesSource,
	filter *analytics.ExclusionFilter,
	cfg *config.Config,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Correlator {
	return usecase.NewCorrelator(source, filter, usecase.CorrelateOptions{
		BenchmarkID:       cfg.Analysis.BenchmarkID,
		WindowDays:        cfg.Analysis.WindowDays,
		ExcludeCategoryID: cfg.Analysis.ExcludeCategoryID,
		MinOverlapRatio:   cfg.Analysis.MinOverlapRatio,
		MinSamples:        cfg.Analysis.MinSamples,
	}, m, l)
}

func ProvideCurationUseCase(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *usecase.CurationUseCase {
	policy := curation.DefaultPolicy(curation.Thresholds{
		MinAligned:   cfg.Curation.MinAligned,
		FunnyMinAbsR: cfg.Curation.FunnyMinAbsR,
		FinMinAbsR:   cfg.Curation.FinMinAbsR,
		OtherMinAbsR: cfg.Curation.OtherMinAbsR,
		BofACap:      cfg.Curation.BofACap,
		VolCap:       cfg.Curation.VolCap,
	})
	return usecase.NewCurationUseCase(curation.NewCurator(policy), m, l)
}

// ProvideArchive connects the ClickHouse run archive. It returns nil when
// the archive is disabled.
func ProvideArchive(cfg *config.Config, l *applogger.Logger) (domrepo.ResultArchive, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opts := []pkgch.ClientOption{
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	}

	// the target database may not exist yet, so bootstrap through default
	boot, err := pkgch.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	err = boot.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database})
	_ = boot.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse database: %w", err)
	}

	client, err := pkgch.NewClient(ctx, append(opts, pkgch.WithDatabase(cfg.ClickHouse.Database))...)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	archive := internalrepo.NewClickHouseArchive(client, l)
	if err := archive.Init(ctx); err != nil {
		_ = archive.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse archive ready", applogger.String("database", client.Database()))

	cleanup := func() {
		if err := archive.Close(); err != nil {
			l.Error("clickhouse close failed", applogger.Error(err))
		}
	}
	return archive, cleanup, nil
}

func ProvideHub(l *applogger.Logger) *api.Hub {
	return api.NewHub(l)
}

// ProvidePublisher fans rotations out to websocket clients and, when
// enabled, to Kafka. Closing it also disconnects the hub.
func ProvidePublisher(cfg *config.Config, hub *api.Hub, reg *prometheus.Registry, l *applogger.Logger) (domrepo.RotationPublisher, func(), error) {
	sinks := []domrepo.RotationPublisher{hub}
	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithTopic(cfg.Kafka.Topic),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithHashByKey(true),
			pkgkafka.WithRegisterer(reg),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaRotationPublisher(producer))
		l.Info("kafka publisher ready",
			applogger.Strings("brokers", cfg.Kafka.Brokers),
			applogger.String("topic", producer.Topic()),
		)
	}

	pub := internalrepo.NewMultiPublisher(sinks...)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Error("publisher close failed", applogger.Error(err))
		}
	}
	return pub, cleanup, nil
}

func ProvidePipeline(
	store *internalrepo.FileStore,
	correlator *usecase.Correlator,
	curation *usecase.CurationUseCase,
	archive domrepo.ResultArchive,
	pub domrepo.RotationPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	opts := []usecase.PipelineOption{usecase.WithPublisher(pub)}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	return usecase.NewPipeline(store, store, correlator, curation, m, l, opts...)
}

func ProvideDiscoverer(client *fred.Client, store *internalrepo.FileStore, cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *usecase.Discoverer {
	return usecase.NewDiscoverer(client, store, usecase.DiscoverOptions{
		RecentWindowDays: cfg.Discovery.RecentWindowDays,
		RootCategoryID:   cfg.Discovery.RootCategoryID,
		SkipCategoryIDs:  cfg.Discovery.SkipCategoryIDs,
	}, m, l)
}

func ProvideHandler(store *internalrepo.FileStore, hub *api.Hub, l *applogger.Logger) xhttp.Handler {
	return api.NewRotationHandler(store, hub, l)
}

func ProvideServerOptions(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) []xhttp.ServerOption {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(path, reg),
		xhttp.WithLogger(l),
	}
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	discoverer *usecase.Discoverer,
	pipeline *usecase.Pipeline,
	handler xhttp.Handler,
	httpOpts []xhttp.ServerOption,
	client *fred.Client,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, discoverer, pipeline, handler, httpOpts, client, l)
}
