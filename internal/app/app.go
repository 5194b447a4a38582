package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/fantasy-contest/external/fpl"
	"github.com/riskibarqy/fantasy-contest/external/ledger"
	"github.com/riskibarqy/fantasy-contest/internal/config"
	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/lock"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fantasy-contest/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/fantasy-contest/internal/platform/cache"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

// App holds the services shared by the api and worker processes.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	PeriodStatus *usecase.PeriodStatusService
	Ranks        *usecase.RankService
	Sync         *usecase.ContestSyncService
	Activation   *usecase.ActivationService
	Finalization *usecase.FinalizationService

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	contestRepo, entryRepo, err := a.openStorage(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		contestRepo = cache.NewContestRepository(contestRepo, store)
		entryRepo = cache.NewEntryRepository(entryRepo, store)
	}

	locker, err := a.openLocker(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	creditor, err := a.newCreditor()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	provider := fpl.NewClient(fpl.ClientConfig{
		BaseURL:        cfg.FPLBaseURL,
		UserAgent:      cfg.FPLUserAgent,
		Timeout:        cfg.FPLTimeout,
		MaxRetries:     cfg.FPLMaxRetries,
		RetryBackoff:   cfg.FPLRetryBackoff,
		Logger:         logger.Named("fpl"),
		CircuitBreaker: cfg.FPLCircuit,
	})

	a.PeriodStatus = usecase.NewPeriodStatusService(provider, logger)
	resolver := usecase.NewScoreResolver(provider, usecase.ScoreResolverConfig{
		MaxRetries:   cfg.SyncEntryRetries,
		RetryBackoff: cfg.SyncRetryBackoff,
	}, logger)
	a.Ranks = usecase.NewRankService(contestRepo, entryRepo, logger)
	a.Sync = usecase.NewContestSyncService(
		contestRepo,
		entryRepo,
		provider,
		a.PeriodStatus,
		resolver,
		a.Ranks,
		usecase.ContestSyncConfig{
			EntryConcurrency: cfg.SyncEntryConcurrency,
			PacingDelay:      cfg.SyncBatchPacing,
		},
		logger,
	)
	a.Activation = usecase.NewActivationService(contestRepo, a.PeriodStatus, a.Sync, usecase.ActivationConfig{
		ContestConcurrency: cfg.SyncContestConcurrency,
	}, logger)
	a.Finalization = usecase.NewFinalizationService(
		contestRepo,
		entryRepo,
		a.PeriodStatus,
		a.Sync,
		locker,
		creditor,
		usecase.FinalizationConfig{LockTTL: cfg.LockTTL},
		logger,
	)

	return a, nil
}

// NewHTTPServer builds the api server over the app's services.
func (a *App) NewHTTPServer() (*http.Server, error) {
	if a.cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	routerCfg := httpapi.RouterConfig{
		InternalJobToken:    a.cfg.InternalJobToken,
		CaptureRequestBody:  a.cfg.UptraceEnabled && a.cfg.UptraceCaptureRequestBody,
		RequestBodyMaxBytes: a.cfg.UptraceRequestBodyMaxBytes,
	}
	if a.cfg.MetricsEnabled {
		routerCfg.MetricsHandler = promhttp.Handler()
	}

	handler := httpapi.NewHandler(a.Activation, a.Finalization, a.Ranks, a.PeriodStatus, a.logger)
	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, a.logger, routerCfg),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}, nil
}

// Close releases storage and lock connections in reverse open order.
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

func (a *App) openStorage(ctx context.Context) (contest.Repository, entry.Repository, error) {
	switch a.cfg.StorageDriver {
	case config.StorageDriverMemory:
		var store *memory.ContestStore
		if a.cfg.SeedEnabled {
			store = memory.NewContestStore(memory.SeedContests(), memory.SeedEntries())
		} else {
			store = memory.NewContestStore(nil, nil)
		}
		a.logger.Info("storage ready", "driver", config.StorageDriverMemory, "seeded", a.cfg.SeedEnabled)
		return store, store, nil
	case config.StorageDriverPostgres:
		db, err := a.openPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		if a.cfg.SeedEnabled {
			if err := postgres.BootstrapSeed(ctx, db); err != nil {
				return nil, nil, fmt.Errorf("bootstrap seed: %w", err)
			}
		}
		a.logger.Info("storage ready", "driver", config.StorageDriverPostgres, "db_name", dbNameFromURL(a.cfg.DBURL))
		return postgres.NewContestRepository(db), postgres.NewEntryRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", a.cfg.StorageDriver)
	}
}

func (a *App) openPostgres(ctx context.Context) (*sqlx.DB, error) {
	dsn := PostgresDSN(a.cfg.DBURL, a.cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (a *App) openLocker(ctx context.Context) (usecase.ContestLocker, error) {
	if a.cfg.LockDriver != config.LockDriverRedis {
		return lock.NewMemoryLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closers = append(a.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.logger.Info("lock driver ready", "driver", config.LockDriverRedis, "addr", a.cfg.RedisAddr)
	return lock.NewRedisLocker(client), nil
}

// newCreditor returns a nil interface when the ledger is disabled so payouts are persisted only.
func (a *App) newCreditor() (usecase.PayoutCreditor, error) {
	if !a.cfg.LedgerEnabled {
		return nil, nil
	}

	client, err := ledger.NewClient(ledger.ClientConfig{
		BaseURL:        a.cfg.LedgerBaseURL,
		Token:          a.cfg.LedgerToken,
		Timeout:        a.cfg.LedgerTimeout,
		Retries:        a.cfg.LedgerRetries,
		RetryBackoff:   a.cfg.SyncRetryBackoff,
		CircuitBreaker: a.cfg.LedgerCircuit,
	}, a.logger.Named("ledger"))
	if err != nil {
		return nil, fmt.Errorf("create ledger client: %w", err)
	}
	return client, nil
}
