package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/attachment"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/kvstore"
	"github.com/frahmantamala/expense-approval/internal/finance"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/request/document"
	requestMemory "github.com/frahmantamala/expense-approval/internal/request/memory"
	requestPostgres "github.com/frahmantamala/expense-approval/internal/request/postgres"
	"github.com/frahmantamala/expense-approval/internal/user"
	userMemory "github.com/frahmantamala/expense-approval/internal/user/memory"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/format"
	"github.com/frahmantamala/expense-approval/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// App holds the wired services shared by the server and the CLI commands.
type App struct {
	Config *internal.Config
	Logger *slog.Logger

	DB   *sqlx.DB
	Gorm *gorm.DB

	UserRepo    user.Repository
	RequestRepo request.Repository
	Bus         *events.EventBus
	Files       *attachment.Store
	Formatter   *format.Formatter

	Users     *user.Service
	Auth      *auth.Service
	Requests  *request.Service
	Approvals *approval.Service

	// Dispatcher is nil when no finance webhook is configured.
	Dispatcher *finance.Dispatcher
	Exporter   *finance.Exporter
}

type appOptions struct {
	withDispatcher bool
}

func newApp(ctx context.Context, cfg *internal.Config, opts appOptions) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger.LoggerWrapper(),
		Bus:       events.NewEventBus(logger.LoggerWrapper()),
		Formatter: format.New(cfg.Locale.Language, cfg.Locale.DefaultCurrency),
	}

	if err := app.openStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}

	files, err := attachment.NewStore(ctx, cfg.Attachments.BlobURL, cfg.Attachments.MaxSizeBytes(), cfg.Attachments.AllowedTypes, app.Logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open attachment store: %w", err)
	}
	app.Files = files

	app.Users = user.NewService(app.UserRepo, app.Logger)
	app.Auth = auth.NewService(app.Users, auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration), app.Logger)
	app.Requests = request.NewService(app.RequestRepo, app.Files, app.Bus, app.Logger)
	app.Approvals = approval.NewService(app.RequestRepo, app.Bus, app.Logger)
	app.Exporter = finance.NewExporter(app.Requests, app.Formatter, app.Logger)

	if opts.withDispatcher && cfg.Finance.WebhookURL != "" {
		client := finance.NewWebhookClient(cfg.Finance.WebhookURL, cfg.Finance.APIKey, cfg.Finance.Timeout, cfg.Finance.MaxRetries, app.Logger)
		app.Dispatcher = finance.NewDispatcher(finance.Config{
			MaxWorkers:   cfg.Finance.MaxWorkers,
			JobQueueSize: cfg.Finance.JobQueueSize,
		}, app.Requests, client, app.Logger)
		app.Dispatcher.RegisterEventHandlers(app.Bus)
		app.Dispatcher.Start()
	}

	return app, nil
}

func (a *App) openStorage(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case internal.StorageDriverPostgres, internal.StorageDriverSQLite:
		db, err := initDB(cfg.Storage.Driver, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db

		gdb, err := initGorm(cfg.Storage.Driver, db)
		if err != nil {
			return fmt.Errorf("failed to initialize gorm: %w", err)
		}
		a.Gorm = gdb

		a.UserRepo = userPostgres.NewUserRepository(db)
		a.RequestRepo = requestPostgres.NewRequestRepository(gdb)

	case internal.StorageDriverDocument:
		store, err := kvstore.New(ctx, cfg.Storage.DocumentURL)
		if err != nil {
			return fmt.Errorf("failed to open document store: %w", err)
		}
		a.RequestRepo = document.NewRequestRepository(store, document.DefaultKey)
		if a.UserRepo, err = demoUsers(cfg.Security.BCryptCost); err != nil {
			return err
		}

	case internal.StorageDriverMemory:
		a.RequestRepo = requestMemory.NewRequestRepository()
		var err error
		if a.UserRepo, err = demoUsers(cfg.Security.BCryptCost); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	a.Logger.Info("storage ready", "driver", cfg.Storage.Driver)
	return nil
}

func demoUsers(cost int) (user.Repository, error) {
	accounts, err := user.DemoAccounts(cost)
	if err != nil {
		return nil, fmt.Errorf("failed to build demo accounts: %w", err)
	}
	return userMemory.NewUserRepository(accounts...), nil
}

// Close waits for event handlers, stops the dispatcher and closes the
// database.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Wait()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Shutdown()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("database close error", "error", err)
		}
	}
}

func sqlDriverName(storageDriver string, cfg internal.DatabaseConfig) string {
	if storageDriver == internal.StorageDriverSQLite {
		return "sqlite3"
	}
	if cfg.Driver != "" {
		return cfg.Driver
	}
	return "pgx"
}

// initDB opens the sqlx connection used by the user repository, the health
// check and the gorm request repository.
func initDB(storageDriver string, cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	driver := sqlDriverName(storageDriver, cfg)

	db, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := internal.WithTimeout(context.Background(), 0)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(storageDriver string, db *sqlx.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if storageDriver == internal.StorageDriverSQLite {
		dialector = sqlite.Dialector{Conn: db.DB}
	} else {
		dialector = postgres.New(postgres.Config{Conn: db.DB})
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
}
