package dapp

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/you-humble/tasksim/core/libs/logger"
	mio "github.com/you-humble/tasksim/core/libs/minio"
	natsq "github.com/you-humble/tasksim/core/libs/nats"
	rediscli "github.com/you-humble/tasksim/core/libs/redis"
	"github.com/you-humble/tasksim/core/sim/artifact"
	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/handler"
	"github.com/you-humble/tasksim/core/sim/plan"
	"github.com/you-humble/tasksim/core/sim/runner"
	filestore "github.com/you-humble/tasksim/core/store/file"
	jobstore "github.com/you-humble/tasksim/core/store/job"
	"github.com/you-humble/tasksim/distributor/internal/distributor"
	"github.com/you-humble/tasksim/distributor/internal/infra/config"
	"github.com/you-humble/tasksim/distributor/internal/infra/metrics"
)

const cfgPath = "./distributor/configs/local.yaml"

const replicationRetries = 3

type Distributor interface {
	Run(ctx context.Context) error
	Stop(ctx context.Context)
	StartCleanup(ctx context.Context)
}

type fileStore interface {
	distributor.FileStore
	Close(ctx context.Context) error
}

type dependencyInjector struct {
	cfg    *config.Config
	logger *slog.Logger

	redis    *redis.Client
	jobStore distributor.JobStore

	fileStore fileStore

	natsConn *nats.Conn
	js       nats.JetStreamContext

	simHandler *handler.Handler

	registry   *prometheus.Registry
	jobMetrics *metrics.Jobs

	distributor Distributor
}

func newDI() *dependencyInjector {
	return &dependencyInjector{}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		path := cfgPath
		if p := os.Getenv("TASKSIM_CONFIG"); p != "" {
			path = p
		}
		di.cfg = config.MustLoad(path)
	}

	return di.cfg
}

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		di.logger = logger.New(os.Stdout, di.Config().LogLevel)
		slog.SetDefault(di.logger)
	}

	return di.logger
}

func (di *dependencyInjector) RedisClient(ctx context.Context) *redis.Client {
	if di.redis == nil {
		cfg := di.Config().Redis
		client, err := rediscli.NewClient(ctx, rediscli.Config{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			log.Fatalf("Redis: %+v", err)
		}

		di.redis = client
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
	}
	return di.redis
}

func (di *dependencyInjector) JobStore(ctx context.Context) distributor.JobStore {
	if di.jobStore == nil {
		di.jobStore = jobstore.NewRedisJobStore(di.RedisClient(ctx))
	}
	return di.jobStore
}

func (di *dependencyInjector) FileStore(ctx context.Context) distributor.FileStore {
	if di.fileStore == nil {
		cfg := di.Config()

		local, err := filestore.NewLocalStore(cfg.BaseDir)
		if err != nil {
			log.Fatalf("FileStore local: %+v", err)
		}
		di.Logger().Info("initialized local file store", slog.String("base_dir", cfg.BaseDir))

		if !cfg.MinIO.Enabled {
			di.fileStore = filestore.NewAsyncStore(ctx, local, nil, 0, 0, 0)
			di.Logger().Info("MinIO disabled, artifacts are kept locally only")
			return di.fileStore
		}

		remote, err := filestore.NewMinIOStore(ctx, mio.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Bucket:          cfg.MinIO.Bucket,
			BasePath:        "artifacts",
		})
		if err != nil {
			log.Fatalf("FileStore minio: %+v", err)
		}
		di.Logger().Info(
			"initialized MinIO file store",
			slog.String("endpoint", cfg.MinIO.Endpoint),
			slog.String("bucket", cfg.MinIO.Bucket),
		)

		di.fileStore = filestore.NewAsyncStore(ctx, local, remote, cfg.QueueCapacity, cfg.PoolSize, replicationRetries)
		di.Logger().Info(
			"using async file store (local + MinIO)",
			slog.Int("queue_size", cfg.QueueCapacity),
			slog.Int("worker_num", cfg.PoolSize),
			slog.Int("max_retries", replicationRetries),
		)
	}

	return di.fileStore
}

func (di *dependencyInjector) NATSConn(ctx context.Context) *nats.Conn {
	if di.natsConn == nil {
		cfg := di.Config()
		nc, err := natsq.NewConnect(cfg.NATS.URL, natsq.Config{
			Name:          cfg.NATS.Name,
			MaxReconnects: cfg.NATS.MaxReconnects,
		})
		if err != nil {
			log.Fatalf("NATS connect: %+v", err)
		}
		di.natsConn = nc
		di.Logger().Info("connected to nats", slog.String("url", cfg.NATS.URL))
	}
	return di.natsConn
}

func (di *dependencyInjector) JetStream(ctx context.Context) nats.JetStreamContext {
	if di.js == nil {
		cfg := di.Config()
		js, err := natsq.NewJetStream(
			di.NATSConn(ctx),
			natsq.JobsStreamConfig(cfg.NATS.Subject, 2*cfg.JobTTL),
		)
		if err != nil {
			log.Fatalf("DI JetStream: %+v", err)
		}

		di.js = js
	}
	return di.js
}

func (di *dependencyInjector) SimHandler() *handler.Handler {
	if di.simHandler == nil {
		c := clock.System()
		di.simHandler = handler.New(
			di.Logger().With(slog.String("component", "handler")),
			runner.NewFactory(plan.New(), artifact.NewGenerator(c), c, clock.Sleeper()),
		)
	}
	return di.simHandler
}

func (di *dependencyInjector) Registry() *prometheus.Registry {
	if di.registry == nil {
		di.registry = prometheus.NewRegistry()
		di.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return di.registry
}

func (di *dependencyInjector) JobMetrics() *metrics.Jobs {
	if di.jobMetrics == nil {
		di.jobMetrics = metrics.MustNewJobs(di.Registry())
	}
	return di.jobMetrics
}

func (di *dependencyInjector) Distributor(ctx context.Context) Distributor {
	if di.distributor == nil {
		cfg := di.Config()
		di.distributor = distributor.New(
			distributor.Options{
				Subject:         cfg.NATS.Subject,
				PoolSize:        cfg.PoolSize,
				JobTTL:          cfg.JobTTL,
				JobTimeout:      cfg.JobTimeout,
				CleanupInterval: cfg.JobCleanupInterval,
			},
			di.JetStream(ctx),
			di.JobStore(ctx),
			di.FileStore(ctx),
			di.SimHandler(),
			di.JobMetrics(),
		)
	}
	return di.distributor
}

func (di *dependencyInjector) Close(ctx context.Context) {
	if di.fileStore != nil {
		if err := di.fileStore.Close(ctx); err != nil {
			slog.Warn("close file store", slog.String("error", err.Error()))
		}
	}
	if di.natsConn != nil {
		di.natsConn.Close()
	}
	if di.redis != nil {
		if err := di.redis.Close(); err != nil {
			slog.Warn("close redis", slog.String("error", err.Error()))
		}
	}
}
