// Package server wires configuration, storage, services and the network
// endpoints of QuestKeeper together and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/questkeeper/internal/cryptox"
	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/server/auth"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/dmitrijs2005/questkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/questkeeper/internal/server/observability"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/questkeeper/internal/server/rest"
	"github.com/dmitrijs2005/questkeeper/internal/server/seed"
	"github.com/dmitrijs2005/questkeeper/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/dmitrijs2005/questkeeper/internal/server/grpc"
)

const (
	dbConnectAttempts = 5
	dbConnectBase     = 500 * time.Millisecond
	healthInterval    = 10 * time.Second
)

// openDB is a seam for tests.
var openDB = dbx.Open

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	previews    *services.PreviewStore
	accounts    *services.AccountService
	progress    *services.ProgressService
	catalog     *services.CatalogService
	registry    *prometheus.Registry
	metrics     *observability.Metrics
}

// NewApp connects to the database and builds the services. The caller owns
// the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	issuer, err := auth.NewIssuer(c.SecretKey, c.JWTAlgorithm, c.TokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token issuer init error: %w", err)
	}

	notifier, err := mailer.NewSMTPNotifier(c.Mail)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN, dbConnectAttempts, dbConnectBase)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	previews := services.NewPreviewStore(c.S3)
	accounts := services.NewAccountService(db, rm, cryptox.NewBcryptHasher(c.BcryptCost), issuer, notifier, c)

	registry := observability.NewRegistry()

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		previews:    previews,
		accounts:    accounts,
		progress:    services.NewProgressService(db, rm, accounts),
		catalog:     services.NewCatalogService(db, rm, previews),
		registry:    registry,
		metrics:     observability.NewMetrics(registry),
	}, nil
}

func (app *App) Close() error {
	return app.db.Close()
}

// Migrate applies the pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	app.logger.Info(ctx, "Running migrations...")
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	return nil
}

// Seed imports the quest catalog from the YAML file at path.
func (app *App) Seed(ctx context.Context, path string) (seed.Result, error) {
	f, err := seed.Load(path)
	if err != nil {
		return seed.Result{}, err
	}
	return seed.NewSeeder(app.db, app.repomanager, app.previews, app.logger).Apply(ctx, f)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) dbReady(ctx context.Context) bool {
	return app.db.PingContext(ctx) == nil
}

// Run migrates the schema and serves the HTTP API, the gRPC health service
// and the metrics endpoint until ctx is cancelled or a signal arrives.
// If one endpoint fails the others are stopped too and its error is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.Migrate(ctx); err != nil {
		return err
	}

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				logging.LogError(ctx, app.logger, name+" server failed", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s server: %w", name, err)
				}
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	api := rest.NewServer(app.config.EndpointAddrHTTP, app.logger.With("module", "rest"),
		app.accounts, app.progress, app.catalog, app.metrics, app.config.AuthRateLimit)
	start("http", api.Run)

	if app.config.EndpointAddrGRPC != "" {
		hs := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger, app.db.PingContext, healthInterval)
		start("grpc", hs.Run)
	}

	if app.config.EndpointAddrMetrics != "" {
		ms := observability.NewServer(app.config.EndpointAddrMetrics, app.registry, app.dbReady, app.logger.With("module", "observability"))
		start("metrics", ms.Run)
	}

	wg.Wait()
	app.logger.Info(ctx, "App stopped")

	return firstErr
}
