package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq" // PostgreSQL driver

	"tundra/internal/auth"
	"tundra/internal/config"
	"tundra/internal/constants"
	"tundra/internal/database"
	"tundra/internal/diag"
	"tundra/internal/logger"
	"tundra/internal/token"
	"tundra/internal/user"
	"tundra/pkg/health"
	"tundra/pkg/metrics"
	"tundra/pkg/middleware"
	"tundra/pkg/ratelimit"
	"tundra/pkg/retry"
)

type App struct {
	config *config.Config
	logger logger.Logger
	db     *database.Manager
	server *http.Server
	router *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.initServer()
	return nil
}

// initDatabase gates startup on the first successful connection, retrying at
// the same fixed interval the in-flight reconnect loop uses.
func (a *App) initDatabase(ctx context.Context) error {
	a.db = database.NewManager(a.config.Database.Postgres, a.logger)

	policy := retry.ConstantPolicy(
		a.config.Database.Postgres.MaxReconnectAttempts,
		a.config.Database.Postgres.ReconnectInterval,
	)
	if err := retry.Constant(ctx, policy, func() error {
		if err := a.db.Open(ctx); err != nil {
			a.logger.Warnw("Database connection attempt failed, retrying", "error", err)
			return err
		}
		return nil
	}); err != nil {
		return err
	}

	if a.config.Database.RunMigrations {
		if err := a.db.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.logger.InfowCtx(ctx, "Database migrations applied")
	}

	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityScan(a.logger))
	router.Use(middleware.ResponseTime(a.logger))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigin:  a.config.CORS.AllowOrigin,
		AllowMethods: a.config.CORS.AllowMethods,
		AllowHeaders: a.config.CORS.AllowHeaders,
	}))
	router.Use(middleware.BodyLimit(a.config.Server.BodyLimitBytes))
	router.Use(middleware.ErrorHandler(a.logger, a.config.IsProduction(), nil))
	router.Use(middleware.Recovery(a.logger))

	tokens, err := token.NewService(a.config.Auth.JWTSecret, a.config.Auth.JWTExpiresIn, a.logger)
	if err != nil {
		return err
	}

	authService := auth.NewService(auth.NewRepository(a.db), tokens, a.logger)
	authHandler := auth.NewHandler(authService, a.logger)

	var loginMiddleware []gin.HandlerFunc
	if a.config.Auth.RateLimit.Enabled {
		rlConfig := ratelimit.Config{
			RPS:             a.config.Auth.RateLimit.RPS,
			Burst:           a.config.Auth.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.Auth.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.Auth.RateLimit.MaxAge) * time.Second,
		}
		loginMiddleware = append(loginMiddleware, ratelimit.Middleware(rlConfig))
		a.logger.Infow("Rate limiting enabled for login", "rps", rlConfig.RPS, "burst", rlConfig.Burst)
	}

	authHandler.RegisterRoutes(router, middleware.RequireAuth(tokens, a.logger), loginMiddleware...)

	userService := user.NewService(user.NewRepository(a.db), a.logger)
	user.NewHandler(userService, a.logger).RegisterRoutes(router)

	diag.NewHandler(a.config, a.db, a.logger).RegisterRoutes(router)

	metrics.Register()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewDatabaseChecker(a.db))

	// /health and /metrics are operational surfaces, outside the envelope
	// contract: real status codes for load balancers and scrapers.
	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(middleware.NotFound(a.logger))
	router.NoMethod(middleware.MethodNotAllowed(a.logger))

	a.router = router
	return nil
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database shutdown error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
