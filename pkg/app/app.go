package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/CHris23132/Movienta-app/internal/api"
	"github.com/CHris23132/Movienta-app/internal/config"
	"github.com/CHris23132/Movienta-app/internal/services/accounts"
	"github.com/CHris23132/Movienta-app/internal/services/auth"
	"github.com/CHris23132/Movienta-app/internal/services/billing"
	"github.com/CHris23132/Movienta-app/internal/services/calls"
	"github.com/CHris23132/Movienta-app/internal/services/chat"
	"github.com/CHris23132/Movienta-app/internal/services/database"
	"github.com/CHris23132/Movienta-app/internal/services/ledger"
	"github.com/CHris23132/Movienta-app/internal/services/middleware"
	"github.com/CHris23132/Movienta-app/internal/services/pages"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// App is one assembled server instance.
type App struct {
	config *config.Config
	app    *fiber.App
	redis  *redis.Client
	db     *database.DB
}

type services struct {
	accounts *accounts.Service
	ledger   *ledger.Service
	pages    *pages.Service
	calls    *calls.Service
	billing  *billing.Service
	chat     *chat.Service
	auth     *auth.Service
}

// New creates an App from explicit configuration. The cfg parameter is
// required and must not be nil.
func New(cfg *config.Config) *App {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}
	return &App{config: cfg}
}

// Run starts the server and blocks until shutdown.
func (a *App) Run() error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(a.config)

	port := a.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	a.app = createFiberApp(a.config)

	// === Infrastructure Setup ===
	db, err := database.New(*a.config.Database)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	a.db = db
	defer func() {
		if err := a.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}()

	a.redis, err = createRedisClient(a.config)
	if err != nil {
		return err
	}
	if a.redis != nil {
		defer func() {
			if err := a.redis.Close(); err != nil {
				fiberlog.Errorf("Failed to close Redis client: %v", err)
			}
		}()
	}

	// === Services Initialization ===
	svcs, err := a.initializeServices()
	if err != nil {
		return err
	}

	// === Middleware Setup ===
	setupMiddleware(a.app, a.config)

	// === Routes Setup ===
	if err := a.setupRoutes(svcs); err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	a.app.Get("/", welcomeHandler())

	fmt.Printf("Movienta server starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", a.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := a.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	fiberlog.Info("Server shutting down gracefully...")
	if err := a.app.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	fiberlog.Info("Server shutdown completed successfully")

	return nil
}

func (a *App) initializeServices() (*services, error) {
	svcs := &services{}

	svcs.ledger = ledger.NewService(a.db.DB)
	if err := svcs.ledger.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger tables: %w", err)
	}

	svcs.accounts = accounts.NewService(a.db.DB)

	cacheTTL := time.Duration(0)
	if a.config.Cache != nil && a.config.Cache.TTLSeconds > 0 {
		cacheTTL = time.Duration(a.config.Cache.TTLSeconds) * time.Second
	}
	svcs.pages = pages.NewService(a.db.DB, a.redis, cacheTTL)
	if err := svcs.pages.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate page tables: %w", err)
	}

	svcs.calls = calls.NewService(a.db.DB)
	if err := svcs.calls.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate call tables: %w", err)
	}

	if a.config.Auth != nil {
		authSvc, err := auth.NewService(*a.config.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize auth: %w", err)
		}
		svcs.auth = authSvc
	}

	if a.config.Billing != nil {
		svcs.billing = billing.NewService(*a.config.Billing, billing.NewStripeBackend(), svcs.ledger, svcs.accounts)
	}

	if a.config.Chat != nil {
		client := chat.NewOpenAIClient(*a.config.Chat)
		svcs.chat = chat.NewService(*a.config.Chat, client, svcs.pages, svcs.calls, svcs.ledger)
	}

	return svcs, nil
}

func (a *App) setupRoutes(svcs *services) error {
	healthHandler := api.NewHealthHandler(a.db, a.redis)
	a.app.Get("/health", healthHandler.HealthCheck)

	pagesHandler := api.NewPagesHandler(svcs.pages, svcs.calls)
	callsHandler := api.NewCallsHandler(svcs.pages, svcs.calls)

	// Public widget surface.
	v1 := a.app.Group("/v1")
	v1.Get("/pages/:slug", pagesHandler.GetPageBySlug)
	v1.Post("/calls", callsHandler.StartCall)

	if svcs.chat != nil {
		chatHandler := api.NewChatHandler(svcs.chat)
		v1.Post("/chat", chatHandler.HandleMessage)
	}

	var billingHandler *api.BillingHandler
	if svcs.billing != nil {
		billingHandler = api.NewBillingHandler(svcs.billing)
		a.app.Post("/webhooks/stripe", billingHandler.HandleWebhook)
	}

	if svcs.auth != nil {
		authHandler := api.NewAuthHandler(svcs.auth, svcs.accounts, a.config.Auth.BootstrapKey)
		a.app.Post("/auth/token", authHandler.IssueToken)

		// Everything under /admin requires a Bearer token. The middleware
		// must be registered before the admin routes.
		authMiddleware := middleware.NewAuthMiddleware(svcs.auth)
		admin := a.app.Group("/admin", authMiddleware.RequireAuth())

		adminPages := admin.Group("/pages")
		adminPages.Post("/", pagesHandler.CreatePage)
		adminPages.Get("/", pagesHandler.ListPages)
		adminPages.Patch("/:id", pagesHandler.UpdatePage)
		adminPages.Get("/:id/calls", pagesHandler.ListPageCalls)

		creditsHandler := api.NewCreditsHandler(svcs.ledger, svcs.accounts)
		adminCredits := admin.Group("/credits")
		adminCredits.Get("/summary", creditsHandler.GetSummary)
		adminCredits.Get("/ledger", creditsHandler.GetLedger)

		if billingHandler != nil {
			checkout := admin.Group("/checkout")
			checkout.Post("/topup", billingHandler.CreateTopupCheckout)
			checkout.Post("/monthly", billingHandler.CreateMonthlyCheckout)
		}
	}

	return nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "Movienta v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       1 * time.Minute,
		WriteTimeout:      1 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		CaseSensitive:     true,
		ServerHeader:      "Movienta",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(requestid.New())

	app.Use(limiter.New(limiter.Config{
		Max:               300,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	allowedOrigins := cfg.Server.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, User-Agent",
		AllowMethods:  "GET, POST, PATCH, DELETE, OPTIONS",
		MaxAge:        86400,
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
	}))
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info", "":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Cache == nil || cfg.Cache.RedisURL == "" {
		fiberlog.Info("Redis not configured - page cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		fiberlog.Warnf("Redis connection failed, page cache disabled: %v", err)
		if closeErr := client.Close(); closeErr != nil {
			fiberlog.Errorf("Failed to close Redis client: %v", closeErr)
		}
		return nil, nil
	}

	fiberlog.Info("Redis connection established successfully")
	return client, nil
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Movienta API",
			"status":  "ok",
		})
	}
}
