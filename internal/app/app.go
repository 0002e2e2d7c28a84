package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	domjobs "github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	httpx "github.com/veldtops/fieldsuite-backend/internal/http"
	"github.com/veldtops/fieldsuite-backend/internal/jobs/worker"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
	"github.com/veldtops/fieldsuite-backend/internal/realtime/bus"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Server   *httpx.Server
	Hub      *realtime.SSEHub

	metrics      *observability.Metrics
	eventBus     bus.Bus
	jobWorker    *worker.Worker
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	gdb := pg.DB()
	if err := db.AutoMigrateAll(gdb); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	metrics := observability.Init(log)
	hub := realtime.NewSSEHub(log)

	var eventBus bus.Bus
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			log.Warn("redis event bus disabled, events stay in-process", "reason", err)
		} else {
			eventBus = b
		}
	}

	clientset := wireClients(log)
	reposet := wireRepos(gdb, log)

	serviceset, err := wireServices(gdb, log, cfg, reposet, clientset, hub, eventBus)
	if err != nil {
		log.Sync()
		return nil, err
	}

	// The permission catalog is global and idempotent to seed.
	if err := serviceset.RBAC.SeedCatalog(dbctx.Context{Ctx: context.Background()}); err != nil {
		log.Sync()
		return nil, fmt.Errorf("seed permission catalog: %w", err)
	}

	jobWorker, err := wireWorker(gdb, log, reposet, serviceset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, hub)
	server := wireServer(log, serviceset, handlerset, metrics)

	return &App{
		Log:       log,
		DB:        gdb,
		Cfg:       cfg,
		Repos:     reposet,
		Clients:   clientset,
		Services:  serviceset,
		Server:    server,
		Hub:       hub,
		metrics:   metrics,
		eventBus:  eventBus,
		jobWorker: jobWorker,
	}, nil
}

// Start launches the background machinery: OTel, the bus forwarder, metric
// collectors, the job worker pool, and the recurring job seeds.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "fieldsuite-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
	})

	if a.eventBus != nil {
		if err := a.eventBus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			a.Log.Warn("event bus forwarder failed to start", "error", err)
		}
	}

	if a.metrics != nil {
		a.metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
		a.metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
	}

	if a.Cfg.WorkerEnabled {
		a.jobWorker.Start(ctx)
		a.seedRecurringJobs(ctx)
	}
}

// seedRecurringJobs queues the first sla_scan and mailbox_refresh runs.
// The pipelines re-queue themselves afterwards; EnqueueUnique makes restart
// races harmless.
func (a *App) seedRecurringJobs(ctx context.Context) {
	dbc := dbctx.Context{Ctx: ctx}
	for _, jobType := range []string{domjobs.TypeSLAScan, domjobs.TypeMailboxRefresh} {
		if _, _, err := a.Services.Job.EnqueueUnique(dbc, services.EnqueueRequest{JobType: jobType}); err != nil {
			a.Log.Warn("failed to seed recurring job", "job_type", jobType, "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(shutdownCtx)
		cancel()
	}
	if a.eventBus != nil {
		_ = a.eventBus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
