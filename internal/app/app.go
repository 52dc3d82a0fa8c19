// Package app initializes and runs the todo service.
// It configures logging, storage, identification, metrics and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"github.com/patric-chuzhbe/todoapi/internal/config"
	"github.com/patric-chuzhbe/todoapi/internal/db/jsondb"
	"github.com/patric-chuzhbe/todoapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/todoapi/internal/db/mongodb"
	"github.com/patric-chuzhbe/todoapi/internal/db/postgresdb"
	"github.com/patric-chuzhbe/todoapi/internal/grpcserver"
	"github.com/patric-chuzhbe/todoapi/internal/identity"
	"github.com/patric-chuzhbe/todoapi/internal/ipchecker"
	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/metrics"
	"github.com/patric-chuzhbe/todoapi/internal/models"
	"github.com/patric-chuzhbe/todoapi/internal/router"
	"github.com/patric-chuzhbe/todoapi/internal/service"
)

const shutdownTimeout = 10 * time.Second

type userKeeper interface {
	CreateUser(ctx context.Context, name string) (string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type todoKeeper interface {
	CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error)

	GetTodosByUserID(
		ctx context.Context,
		userID string,
		todoID string,
		page models.PageRequest,
	) (*models.TodoPage, error)

	UpdateTodoItem(ctx context.Context, userID, todoID string, update models.TodoUpdate) error

	RemoveTodoItem(ctx context.Context, userID, todoID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	todoKeeper
	pinger
	Close() error
}

// App encapsulates the configuration, HTTP handler, storage backend and the
// health reporting needed to run the todo service.
type App struct {
	cfg          *config.Config
	db           storage
	metrics      *metrics.Metrics
	healthServer *health.Server
	httpHandler  http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the router and middleware
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	trustedSubnet, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.metrics = metrics.New()
	app.healthServer = health.NewServer()

	app.httpHandler = router.New(
		service.NewUserService(app.db),
		service.NewTodoService(app.db),
		app.db,
		identity.New(app.db),
		router.WithMetrics(app.metrics),
		router.WithIPChecker(trustedSubnet),
	)

	return app, nil
}

// Run starts the HTTP server, the storage health watcher and, when an address
// is configured, the gRPC health server. It blocks until a termination signal
// arrives or a server fails, then shuts everything down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrCh := make(chan error, 2)

	stopGRPC := func() {}
	if a.cfg.GRPCAddr != "" {
		grpcServer, lis, err := grpcserver.NewGRPCServer(a.cfg.GRPCAddr, a.healthServer)
		if err != nil {
			if closeErr := a.db.Close(); closeErr != nil {
				logger.Log.Debugln("Error calling the `a.db.Close()`", zap.Error(closeErr))
			}
			return fmt.Errorf("in internal/app/app.go/Run(): error while `grpcserver.NewGRPCServer()` calling: %w", err)
		}
		logger.Log.Infoln("gRPC server running", "GRPCAddr", a.cfg.GRPCAddr)
		go func() {
			serverErrCh <- grpcServer.Serve(lis)
		}()
		stopGRPC = grpcServer.GracefulStop
	}

	watcher := grpcserver.NewHealthWatcher(
		a.db,
		a.healthServer,
		a.cfg.HealthCheckInterval,
		grpcserver.WithStatusCallback(a.metrics.SetStorageUp),
	)
	watcher.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `watcher.ListenErrors()`:", zap.Error(err))
	})
	watcherCtx, stopWatcher := context.WithCancel(context.Background())
	defer stopWatcher()
	watcher.Run(watcherCtx)

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		stopWatcher()
		stopGRPC()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		stopGRPC()
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Debugln("Error calling the `a.db.Close()`", zap.Error(closeErr))
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() error {
	return logger.Sync()
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DatabaseHost != "" {
		return models.StorageTypeMongo
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeMongo:
		return mongodb.New(
			cfg.MongoURI(),
			cfg.DatabaseName,
			cfg.DBConnectionTimeout,
		), nil

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
