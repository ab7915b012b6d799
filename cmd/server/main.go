package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/config"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/database"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore/badgerstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore/pgstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/follow"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/logging"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/moodlist"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/routes"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/services"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/users"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	logging.Setup(level)

	// Database (credentials, system logs, and documents on the postgres backend)
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.StdoutHandler(level),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.Logging.Retention, cleanupDone)

	// Document store
	backend, err := openBackend(cfg)
	if err != nil {
		slog.Error("document store failed to open", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	store := docstore.New(backend, slog.Default())
	slog.Info("document store ready", "backend", cfg.Store.Backend)

	// Domain services
	graph := follow.NewGraph(store, slog.Default())
	directory := users.NewDirectory(store, graph, slog.Default())
	factory := moodlist.NewFactory(moodlist.Config{
		Store:        store,
		Graph:        graph,
		Logger:       slog.Default(),
		NearbyRadius: cfg.Mood.NearbyRadius,
		RecentWindow: cfg.Mood.RecentWindow,
	})
	authService := services.NewAuthService(database.DB, cfg, directory)
	contentFilter := services.NewContentFilter()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, contentFilter)
	healthHandler := handlers.NewHealthHandler(database.Ping, store.Ping)
	moodHandler := handlers.NewMoodHandler(factory, contentFilter)
	followHandler := handlers.NewFollowHandler(graph)
	userHandler := handlers.NewUserHandler(directory, contentFilter)

	// Sentry error tracking
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Sentry.Environment,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Metrics())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, authHandler, healthHandler, moodHandler, followHandler, userHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := store.Close(); err != nil {
		slog.Error("document store close error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func openBackend(cfg *config.Config) (docstore.Backend, error) {
	if cfg.Store.Backend == config.BackendBadger {
		b, err := badgerstore.Open(cfg.Store.BadgerPath)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return pgstore.New(database.DB), nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
