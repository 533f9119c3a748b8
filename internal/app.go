// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	router "payflow/internal/api"
	"payflow/internal/api/handler"
	"payflow/internal/config"
	"payflow/internal/job"
	"payflow/internal/repository"
	"payflow/internal/repository/postgres"
	"payflow/internal/service"
	"payflow/internal/util"
	"payflow/pkg/db"
	"payflow/pkg/mq"
	"payflow/pkg/redislock"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Broker mq.Producer

	// Repositories
	AccountRepository  repository.AccountRepository
	EntryRepository    repository.EntryRepository
	TransferRepository repository.TransferRepository
	OutboxRepository   repository.OutboxRepository

	// Services
	LedgerService service.LedgerService

	// Background jobs
	OutboxSender       *job.OutboxSender
	TransferReconciler *job.TransferReconciler

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context, configPath string) error {
	// 1. Initialize Logger first so initialization failures are loggable
	util.InitLogger()
	app.Logger = util.GetLogger()

	// 2. Load Configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Connect to Redis (per-account operation locks)
	app.Redis = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := app.Redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.Logger.Info("Redis connection established.")

	// 5. Connect to Kafka (ledger event publishing)
	producer, err := mq.NewKafkaProducer(cfg.Kafka.Brokers)
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	app.Broker = producer
	app.Logger.Info("Kafka producer created.")

	// 6. Initialize Repositories
	app.AccountRepository = postgres.NewAccountRepository(app.DB)
	app.EntryRepository = postgres.NewEntryRepository(app.DB)
	app.TransferRepository = postgres.NewTransferRepository(app.DB)
	app.OutboxRepository = postgres.NewOutboxRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 7. Initialize Services
	lockFor := func(accountID int64) service.Locker {
		return redislock.ForAccount(app.Redis, accountID, uuid.NewString())
	}
	app.LedgerService = service.NewLedgerService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.AccountRepository,
		app.EntryRepository,
		app.TransferRepository,
		app.OutboxRepository,
		cfg.Ledger,
		cfg.Kafka.LedgerTopic,
		lockFor,
		app.Logger,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.Logger.Info("Services initialized.")

	// 8. Initialize background jobs
	app.OutboxSender = job.NewOutboxSender(app.DB, app.OutboxRepository, app.Broker, cfg.Ledger.OutboxMaxRetries, app.Logger)
	app.TransferReconciler = job.NewTransferReconciler(app.DB, app.TransferRepository, app.EntryRepository,
		time.Duration(cfg.Ledger.ReviewAfterSeconds)*time.Second, app.Logger)
	app.Logger.Info("Background jobs initialized.")

	// 9. Initialize HTTP Handlers and Router
	ledgerHandler := handler.NewLedgerHandler(app.LedgerService, app.Logger)
	app.HTTPHandler = router.NewRouter(ledgerHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Broker != nil {
		if err := app.Broker.Close(); err != nil {
			app.Logger.Error("Failed to close Kafka producer", "error", err)
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close Redis connection", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
