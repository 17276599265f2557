package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"shutterbook/internal/app/engine"
	"shutterbook/internal/app/middleware"
	appoutbox "shutterbook/internal/app/outbox"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/uow"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/infra/broker/kafka"
	rediscache "shutterbook/internal/infra/cache/redis"
	"shutterbook/internal/infra/config"
	mongodb "shutterbook/internal/infra/db/mongo"
	"shutterbook/internal/infra/db/sqldb"
	ginserver "shutterbook/internal/infra/http/gin"
	"shutterbook/internal/infra/invoicing"
	"shutterbook/internal/infra/obs"
	infraoutbox "shutterbook/internal/infra/outbox"
	"shutterbook/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = defaultFixturesPath()
	}
	if err := loadFixtures(ctx, app.directory, fixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", fixturesPath)
	}

	worker := &infraoutbox.Worker{
		Queue:       app.queue,
		Producer:    app.producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.Store,
		"commands", len(app.engine.CommandKeys()), "queries", len(app.engine.QueryKeys()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// seeder is implemented by both directory backends.
type seeder interface {
	policies.ClientDirectory
	policies.ResourceDirectory
	policies.PackageCatalog
	AddClient(ctx context.Context, id, name string) error
	AddResource(ctx context.Context, id, name string) error
	AddPackage(ctx context.Context, id, name string, price *money.Money) error
}

type application struct {
	engine    *engine.Engine
	handlers  ginserver.Handlers
	directory seeder
	queue     infraoutbox.Queue
	producer  infraoutbox.Producer
	checks    map[string]obs.Check
	closers   []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}

	store, directory, err := app.openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.directory = directory

	var (
		audit policies.AuditRecorder = memory.NewActivityLog()
		idem  middleware.IdempotencyStore
	)
	memOutbox := memory.NewOutbox()
	var box appoutbox.Outbox = memOutbox
	app.queue = memOutbox

	if cfg.MongoURI != "" {
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		app.checks["mongo"] = client.Ping
		activity, err := mongodb.NewActivityStore(ctx, client.DB)
		if err != nil {
			return nil, err
		}
		audit = activity
		mongoOutbox, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			return nil, err
		}
		box, app.queue = mongoOutbox, mongoOutbox
		idemStore, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return nil, err
		}
		idem = idemStore
		logger.Info("mongo wired", "database", cfg.MongoDB)
	}

	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, rediscache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		app.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		idem = rediscache.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		logger.Info("redis idempotency store wired", "addr", cfg.RedisAddr)
	}
	if idem == nil {
		idem = memory.NewIdempotencyStore()
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokers, ClientID: "shutterbook"})
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		app.producer = producer
	} else {
		app.producer = kafka.LogProducer{Logger: logger}
	}

	var authorizer middleware.Authorizer
	if cfg.AdminToken != "" {
		authorizer = middleware.AdminAuthorizer
	} else {
		logger.Warn("ADMIN_TOKEN not set; administrative operations are open")
	}

	app.engine = engine.New(engine.Deps{
		Store:           store,
		Clients:         directory,
		Resources:       directory,
		Packages:        directory,
		Financial:       invoicing.Generator{},
		Audit:           audit,
		Outbox:          box,
		Encoder:         appoutbox.JSONEventEncoder{},
		Idempotency:     idem,
		Authorizer:      authorizer,
		Logger:          logger,
		DefaultCurrency: cfg.DefaultCurrency,
		InvoiceDueDays:  cfg.InvoiceDueDays,
	})
	app.handlers = ginserver.NewHandlers(app.engine.Commands, app.engine.Queries, cfg.AdminToken, logger)
	return app, nil
}

func (a *application) openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (uow.UoWFactory, seeder, error) {
	var (
		store *sqldb.Store
		err   error
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Info("using in-memory store")
		return memory.NewStore(), memory.NewDirectory(), nil
	case config.StorePostgres:
		store, err = sqldb.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.StoreSQLite:
		store, err = sqldb.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStore, cfg.Store)
	}
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, err
	}
	a.checks["database"] = store.Ping
	logger.Info("relational store ready", "dialect", store.Dialect().Name)
	return store, sqldb.NewDirectory(store), nil
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

type fixtures struct {
	Clients       []namedFixture   `json:"clients"`
	Photographers []namedFixture   `json:"photographers"`
	Packages      []packageFixture `json:"packages"`
}

type namedFixture struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type packageFixture struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price *struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"price"`
}

func loadFixtures(ctx context.Context, dir seeder, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fx fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, c := range fx.Clients {
		if err := dir.AddClient(ctx, c.ID, c.Name); err != nil {
			logger.Error("cannot store fixture client", "client_id", c.ID, "error", err)
		}
	}
	for _, p := range fx.Photographers {
		if err := dir.AddResource(ctx, p.ID, p.Name); err != nil {
			logger.Error("cannot store fixture photographer", "resource_id", p.ID, "error", err)
		}
	}
	for _, p := range fx.Packages {
		var price *money.Money
		if p.Price != nil {
			m, err := money.New(p.Price.Amount, p.Price.Currency)
			if err != nil {
				logger.Error("fixture package price invalid", "package_id", p.ID, "error", err)
				continue
			}
			price = &m
		}
		if err := dir.AddPackage(ctx, p.ID, p.Name, price); err != nil {
			logger.Error("cannot store fixture package", "package_id", p.ID, "error", err)
		}
	}
	logger.Info("fixtures imported", "clients", len(fx.Clients), "photographers", len(fx.Photographers), "packages", len(fx.Packages))
	return nil
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "fixtures.json"),
		filepath.Join("config", "fixtures.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
