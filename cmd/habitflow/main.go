package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	analytics "github.com/davicafu/habitflow/internal/analytics/infra/clickhouse"
	billingApp "github.com/davicafu/habitflow/internal/billing/application"
	billingDomain "github.com/davicafu/habitflow/internal/billing/domain"
	billingEvents "github.com/davicafu/habitflow/internal/billing/infra/inbound/events"
	billingHttp "github.com/davicafu/habitflow/internal/billing/infra/inbound/http"
	billingRepo "github.com/davicafu/habitflow/internal/billing/infra/outbound/db/sqldb"
	"github.com/davicafu/habitflow/internal/config"
	"github.com/davicafu/habitflow/internal/notification"
	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	infraEvents "github.com/davicafu/habitflow/internal/shared/infra/events"
	sharedHttp "github.com/davicafu/habitflow/internal/shared/infra/http"
	sharedCache "github.com/davicafu/habitflow/internal/shared/infra/platform/cache"
	platformDB "github.com/davicafu/habitflow/internal/shared/infra/platform/db"
	"github.com/davicafu/habitflow/internal/shared/infra/platform/db/postgres"
	"github.com/davicafu/habitflow/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/habitflow/internal/shared/infra/relayer"
	"github.com/davicafu/habitflow/internal/shared/infra/uow"
	sharedUtils "github.com/davicafu/habitflow/internal/shared/infra/utils"
	userApp "github.com/davicafu/habitflow/internal/user/application"
	userDomain "github.com/davicafu/habitflow/internal/user/domain"
	userEvents "github.com/davicafu/habitflow/internal/user/infra/inbound/events"
	userHttp "github.com/davicafu/habitflow/internal/user/infra/inbound/http"
	userRepo "github.com/davicafu/habitflow/internal/user/infra/outbound/db/sqldb"
	"github.com/davicafu/habitflow/pkg/logger"
)

// outboxStore es lo que el proceso necesita del outbox: escribir dentro del
// commit y leer/marcar/borrar desde los jobs.
type outboxStore interface {
	sharedDomain.OutboxRepository
	uow.OutboxWriter
}

// schemaInitializer lo cumplen los repositorios de negocio.
type schemaInitializer interface {
	InitSchema(ctx context.Context) error
}

// ---------------- Main ----------------
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	logger.MustInit(cfg.LogLevel)
	log := logger.Logger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("habitflow stopped with error", zap.Error(err))
	}
	log.Info("👋 Apagado completo")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// ---------------- DB ----------------
	dialect, err := platformDB.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}
	dsn := cfg.SQLitePath
	if dialect == platformDB.Postgres {
		dsn = cfg.PostgresDSN
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dialect, err)
	}
	defer db.Close()
	if dialect == platformDB.SQLite {
		// SQLite admite un único escritor.
		db.SetMaxOpenConns(1)
	}

	if err := sharedUtils.Retry(ctx, 5, 500*time.Millisecond, nil, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		return fmt.Errorf("ping %s: %w", dialect, err)
	}
	log.Info("✅ Base de datos conectada", zap.String("driver", string(dialect)))

	var outbox outboxStore
	switch dialect {
	case platformDB.Postgres:
		err = postgres.InitSchema(ctx, db)
		outbox = postgres.NewOutboxRepoPostgres(db)
	default:
		err = sqlite.InitSchema(ctx, db)
		outbox = sqlite.NewOutboxRepoSQLite(db)
	}
	if err != nil {
		return err
	}

	users := userRepo.NewUserRepo(db, dialect)
	invoices := billingRepo.NewInvoiceRepo(db, dialect)
	for _, repo := range []schemaInitializer{users, invoices} {
		if err := repo.InitSchema(ctx); err != nil {
			return err
		}
	}

	// ------------- Unit of work ------------
	sessions := uow.NewFactory(db, outbox, log,
		uow.NewAuditInterceptor(),
		uow.NewOutboxCaptureInterceptor(log),
	)
	sessions.RegisterPersister(userDomain.EntityName, users)
	sessions.RegisterPersister(billingDomain.EntityName, invoices)

	// ---------------- Cache ----------------
	var cache sharedCache.Cache
	var ledger notification.Ledger
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache y ledger en memoria", zap.Error(err))
		mem := sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer mem.Stop()
		cache = mem
		ledger = notification.NewMemoryLedger()
	} else {
		log.Info("✅ Redis conectado, cache habilitado")
		cache = sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
		// El ledger tiene que sobrevivir a la retención del outbox.
		ledger = notification.NewRedisLedger(rdb, 2*cfg.Cleanup.Retention)
	}

	// --------------- Servicios -------------
	userService := userApp.NewUserService(users, sessions, cache, log).WithCacheTTL(cfg.CacheTTL)
	invoiceService := billingApp.NewInvoiceService(invoices, sessions, log)

	// ---------------- Events ---------------
	registry, closeRegistry, err := buildRegistry(ctx, cfg, cache, ledger, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	dispatcher := relayer.NewDispatcher(outbox, registry, log,
		relayer.WithPollInterval(cfg.Outbox.PollInterval),
		relayer.WithBatchSize(cfg.Outbox.BatchSize),
		relayer.WithWorkers(cfg.Outbox.Workers),
		relayer.WithHandlerTimeout(cfg.Outbox.HandlerTimeout),
	)
	cleanup := relayer.NewCleanupJob(outbox, log,
		relayer.WithSchedule(cfg.Cleanup.Schedule),
		relayer.WithCleanupBatchSize(cfg.Cleanup.BatchSize),
		relayer.WithCleanupPause(cfg.Cleanup.Pause),
		relayer.WithRetention(cfg.Cleanup.Retention),
	)

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	userHttp.RegisterUserRoutes(router, userHttp.NewUserHandler(userService, log))
	billingHttp.RegisterInvoiceRoutes(router, billingHttp.NewInvoiceHandler(invoiceService, log))
	sharedHttp.RegisterOpsRoutes(router, sharedHttp.NewOpsHandler(outbox, db, log))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return cleanup.Start(gctx)
	})
	g.Go(func() error {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("🛑 Deteniendo servidor HTTP...")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildRegistry da de alta el conjunto cerrado de eventos, los consumidores
// y los observers opcionales (Kafka, ClickHouse).
func buildRegistry(
	ctx context.Context,
	cfg *config.Config,
	cache sharedCache.Cache,
	ledger notification.Ledger,
	log *zap.Logger,
) (*sharedEvents.Registry, func(), error) {
	registry := sharedEvents.NewRegistry()
	userDomain.RegisterEvents(registry)
	billingDomain.RegisterEvents(registry)

	notifier := notification.NewNotifier(notification.NewLogSender(log), ledger, log)
	if err := userEvents.NewUserConsumer(notifier, cache, log).Register(registry); err != nil {
		return nil, nil, err
	}
	if err := billingEvents.NewInvoiceConsumer(notifier, log).Register(registry); err != nil {
		return nil, nil, err
	}
	if err := registry.Observe(relayer.DeliveryLogger(log)); err != nil {
		return nil, nil, err
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.UseKafka {
		log.Info("🚀 Reenviando eventos a Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
		writer := infraEvents.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, func() { _ = writer.Close() })
		if err := infraEvents.NewForwarder(infraEvents.NewKafkaPublisher(writer, log)).Register(registry); err != nil {
			closeAll()
			return nil, nil, err
		}
	}

	if cfg.ClickHouseAddr != "" {
		chDB, err := analytics.Open(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			// La analítica no es crítica: seguimos sin event log.
			log.Warn("⚠️ ClickHouse no disponible, event log deshabilitado", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = chDB.Close() })
			eventLog := analytics.NewEventLog(chDB, log)
			if err := eventLog.InitSchema(ctx); err != nil {
				closeAll()
				return nil, nil, err
			}
			if err := eventLog.Register(registry); err != nil {
				closeAll()
				return nil, nil, err
			}
			log.Info("✅ Event log en ClickHouse habilitado")
		}
	}

	log.Info("✅ Registro de eventos listo", zap.Strings("types", registry.Types()))
	return registry, closeAll, nil
}
