package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"rssnews/internal/common/pagination"
	pgRepo "rssnews/internal/infra/adapter/persistence/postgres"
	"rssnews/internal/infra/db"
	"rssnews/pkg/config"
	"rssnews/pkg/ratelimit"
	"rssnews/pkg/security/csp"

	"rssnews/internal/usecase/embed"
	"rssnews/internal/usecase/retrieve"

	artUC "rssnews/internal/usecase/article"
	feedUC "rssnews/internal/usecase/feed"

	hhttp "rssnews/internal/handler/http"
	harticle "rssnews/internal/handler/http/article"
	hauth "rssnews/internal/handler/http/auth"
	hfeed "rssnews/internal/handler/http/feed"
	"rssnews/internal/handler/http/middleware"
	hretrieve "rssnews/internal/handler/http/retrieve"
	"rssnews/internal/handler/http/requestid"
	"rssnews/internal/observability/tracing"

	_ "rssnews/docs" // swagger docs
)

// @title           rssnews retrieval API
// @version         1.0
// @description     Hybrid retrieval and agentic RAG API over an RSS/Atom ingestion pipeline.
// @description     Exposes the retrieval RPC a conversational frontend calls into, plus
// @description     operator endpoints for inspecting ingested feeds and articles.

// @contact.name   API Support
// @contact.url    https://github.com/yujitsuchiya/rssnews

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Shared-secret bearer token. Every protected request must carry
// @description "Authorization: Bearer <API_SHARED_SECRET>".

func main() {
	logger := initLogger()
	validateSharedSecret(logger)
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	serverComponents := setupServer(logger, database, version)

	runServer(logger, serverComponents, version)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// validateSharedSecret fails fast if the trusted-caller shared secret
// isn't configured, rather than let the server run with every protected
// endpoint effectively unauthenticated.
func validateSharedSecret(logger *slog.Logger) {
	if err := hauth.ValidateSharedSecretConfig(); err != nil {
		logger.Error("shared secret validation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler              http.Handler
	IPStore              *ratelimit.InMemoryRateLimitStore
	IPWindow             time.Duration
	IPCircuitBreaker     *ratelimit.CircuitBreaker
	IPDegradationManager *middleware.DegradationManager
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, version string) *ServerComponents {
	feedSvc := feedUC.Service{Repo: pgRepo.NewFeedRepo(database)}
	artSvc := artUC.Service{Repo: pgRepo.NewArticleRepo(database)}

	retriever := buildRetriever(database, logger)

	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}

	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (secure mode, proxy headers ignored)")
	}

	var ipRateLimiter *middleware.IPRateLimiter
	var ipStore *ratelimit.InMemoryRateLimitStore
	var ipCircuitBreaker *ratelimit.CircuitBreaker
	var ipDegradationManager *middleware.DegradationManager

	if rateLimitConfig.Enabled {
		ipStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})

		algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
		metrics := ratelimit.NewPrometheusMetrics()

		ipCircuitBreaker = ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})

		ipDegradationManager = middleware.NewDegradationManager(middleware.DegradationConfig{
			AutoAdjust:  true,
			Clock:       &ratelimit.SystemClock{},
			Metrics:     metrics,
			LimiterType: "ip",
		})

		ipRateLimiter = middleware.NewIPRateLimiter(
			middleware.IPRateLimiterConfig{
				Limit:   rateLimitConfig.DefaultIPLimit,
				Window:  rateLimitConfig.DefaultIPWindow,
				Enabled: true,
			},
			ipExtractor,
			ipStore,
			algorithm,
			metrics,
			ipCircuitBreaker,
		)

		logger.Info("rate limiting initialized",
			slog.Bool("enabled", true),
			slog.Int("ip_limit", rateLimitConfig.DefaultIPLimit),
			slog.Duration("ip_window", rateLimitConfig.DefaultIPWindow),
			slog.Int("max_keys", rateLimitConfig.MaxActiveKeys),
		)
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	rootMux := setupRoutes(database, version, feedSvc, artSvc, retriever, ipExtractor, ipRateLimiter, ipStore, ipCircuitBreaker, ipDegradationManager, rateLimitConfig.Enabled, logger)
	handler := applyMiddleware(logger, rootMux, ipRateLimiter)

	return &ServerComponents{
		Handler:              handler,
		IPStore:              ipStore,
		IPWindow:             rateLimitConfig.DefaultIPWindow,
		IPCircuitBreaker:     ipCircuitBreaker,
		IPDegradationManager: ipDegradationManager,
	}
}

// buildRetriever wires the hybrid retriever against Postgres, an OpenAI
// query embedder, and an in-process result cache.
func buildRetriever(database *sql.DB, logger *slog.Logger) *retrieve.Retriever {
	var embedder retrieve.Embedder
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		embedder = embed.NewOpenAIProvider(apiKey)
	} else {
		logger.Warn("OPENAI_API_KEY not set, retrieval falls back to FTS-only")
	}

	rankConfig := retrieve.LoadRankConfigFromEnv()
	return &retrieve.Retriever{
		Chunks:     pgRepo.NewChunkRepo(database),
		Embeddings: pgRepo.NewEmbeddingRepo(database),
		FTS:        pgRepo.NewFTSRepo(database),
		Feeds:      pgRepo.NewFeedRepo(database),
		Embedder:   embedder,
		Cache:      retrieve.NewCache(rankConfig.CacheTTL),
		Config:     rankConfig,
	}
}

// setupRoutes registers all HTTP routes (public and protected).
func setupRoutes(
	database *sql.DB,
	version string,
	feedSvc feedUC.Service,
	artSvc artUC.Service,
	retriever *retrieve.Retriever,
	ipExtractor middleware.IPExtractor,
	ipRateLimiter *middleware.IPRateLimiter,
	ipStore *ratelimit.InMemoryRateLimitStore,
	ipCircuitBreaker *ratelimit.CircuitBreaker,
	ipDegradationManager *middleware.DegradationManager,
	rateLimiterEnabled bool,
	logger *slog.Logger,
) *http.ServeMux {
	searchRateLimiter := middleware.NewRateLimiter(100, 1*time.Minute, ipExtractor)

	publicMux := http.NewServeMux()
	healthHandler := &hhttp.HealthHandler{
		DB:                 database,
		Version:            version,
		Service:            "rssnews",
		RetrievalCache:     retriever.Cache,
		IPCircuitBreaker:   ipCircuitBreaker,
		RateLimiterEnabled: rateLimiterEnabled,
	}
	if ipStore != nil {
		healthHandler.IPRateLimiterStore = ipStore
	}
	if ipDegradationManager != nil {
		healthHandler.IPDegradationManager = ipDegradationManager
	}
	publicMux.Handle("/health", healthHandler)
	publicMux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	publicMux.Handle("/live", &hhttp.LiveHandler{})
	publicMux.Handle("/metrics", hhttp.MetricsHandler())
	publicMux.Handle("/swagger/", httpSwagger.WrapHandler)

	paginationCfg := pagination.LoadFromEnv()

	privateMux := http.NewServeMux()
	hfeed.Register(privateMux, feedSvc)
	harticle.Register(privateMux, artSvc, paginationCfg, logger, searchRateLimiter)
	privateMux.Handle("POST /retrieve", &hretrieve.Handler{Retriever: retriever})

	protected := hauth.Authz(privateMux)

	rootMux := http.NewServeMux()
	rootMux.Handle("/health", publicMux)
	rootMux.Handle("/ready", publicMux)
	rootMux.Handle("/live", publicMux)
	rootMux.Handle("/metrics", publicMux)
	rootMux.Handle("/swagger/", publicMux)
	rootMux.Handle("/", protected)

	return rootMux
}

// applyMiddleware wraps the handler with middleware chain.
// Middleware order: CORS → Request ID → IP Rate Limit → Recovery → Logging → Body Limit → CSP → Metrics → Tracing
func applyMiddleware(logger *slog.Logger, handler http.Handler, ipRateLimiter *middleware.IPRateLimiter) http.Handler {
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}
	corsConfig.Logger = &middleware.SlogAdapter{Logger: logger}

	logger.Info("CORS enabled",
		slog.Int("allowed_origins_count", len(corsConfig.Validator.GetAllowedOrigins())),
		slog.Any("allowed_origins", corsConfig.Validator.GetAllowedOrigins()),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Any("allowed_headers", corsConfig.AllowedHeaders),
		slog.Int("max_age", corsConfig.MaxAge))

	cspConfig, err := config.LoadCSPConfig()
	if err != nil {
		logger.Error("failed to load CSP configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var cspMiddleware func(http.Handler) http.Handler
	if cspConfig.Enabled {
		cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
			Enabled:       true,
			DefaultPolicy: csp.StrictPolicy(),
			PathPolicies: map[string]*csp.CSPBuilder{
				"/swagger/": csp.SwaggerUIPolicy(),
			},
			ReportOnly: cspConfig.ReportOnly,
		})
		cspMiddleware = cspMW.Middleware()
		logger.Info("CSP enabled", slog.Bool("report_only", cspConfig.ReportOnly))
	} else {
		cspMiddleware = func(next http.Handler) http.Handler { return next }
		logger.Warn("CSP is disabled")
	}

	middlewareChain := handler

	middlewareChain = tracing.Middleware(middlewareChain)
	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = cspMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(1 << 20)(middlewareChain) // 1MB limit
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)

	if ipRateLimiter != nil {
		middlewareChain = ipRateLimiter.Middleware()(middlewareChain)
	}

	middlewareChain = requestid.Middleware(middlewareChain)
	middlewareChain = middleware.CORS(*corsConfig)(middlewareChain)

	return middlewareChain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupCfg := hhttp.LoadCleanupConfigFromEnv()

	if components.IPCircuitBreaker != nil && components.IPDegradationManager != nil {
		go watchCircuitBreaker(ctx, components.IPCircuitBreaker, components.IPDegradationManager)
		logger.Info("IP degradation manager watching circuit breaker state")
	}

	if components.IPStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.IPStore, cleanupCfg.Interval, components.IPWindow, "ip")
		logger.Info("IP rate limit cleanup started",
			slog.Duration("interval", cleanupCfg.Interval),
			slog.Duration("window", components.IPWindow))
	}

	go reportSLOPeriodically(ctx, hhttp.SLOTracker())
	logger.Info("SLO gauge reporting started")

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", ":8080"),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()
	logger.Debug("background cleanup goroutines cancelled")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

// reportSLOPeriodically publishes the rolling SLO gauges (internal/observability/slo)
// from the request outcomes hhttp.MetricsMiddleware has recorded. Scraped
// at /metrics alongside the raw request counters.
func reportSLOPeriodically(ctx context.Context, tracker *hhttp.SLOTracker) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.Report()
		}
	}
}

// watchCircuitBreaker polls the IP rate limiter's circuit breaker and feeds
// its open/closed transitions into the degradation manager, which relaxes
// rate limits while the breaker is open and restores them once it recovers.
// CircuitBreaker exposes no state-change hook, so polling is the simplest
// way to bridge the two without changing its public API.
func watchCircuitBreaker(ctx context.Context, cb *ratelimit.CircuitBreaker, dm *middleware.DegradationManager) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	wasOpen := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			isOpen := cb.IsOpen()
			if isOpen == wasOpen {
				continue
			}
			wasOpen = isOpen
			if isOpen {
				dm.OnCircuitOpen()
			} else {
				dm.OnCircuitClose()
			}
		}
	}
}
