package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	pgRepo "rssnews/internal/infra/adapter/persistence/postgres"
	"rssnews/internal/infra/db"
	"rssnews/internal/infra/fetcher"
	"rssnews/internal/infra/notifier"
	"rssnews/internal/infra/scraper"
	"rssnews/internal/infra/summarizer"
	workerPkg "rssnews/internal/infra/worker"
	"rssnews/internal/repository"
	"rssnews/internal/usecase/chunk"
	"rssnews/internal/usecase/embed"
	"rssnews/internal/usecase/ftsindex"
	"rssnews/internal/usecase/ingest"
	"rssnews/internal/usecase/notify"
)

// serviceMode selects which continuous service this process runs; a single
// binary is built and the container/deployment just sets SERVICE_MODE.
type serviceMode string

const (
	modePoll            serviceMode = "poll"
	modeWork            serviceMode = "work"
	modeWorkContinuous  serviceMode = "work-continuous"
	modeChunking        serviceMode = "chunking"
	modeChunkContinuous serviceMode = "chunk-continuous"
	modeEmbedding       serviceMode = "embedding"
	modeOpenAIMigration serviceMode = "openai-migration"
	modeFTS             serviceMode = "fts"
	modeFTSContinuous   serviceMode = "fts-continuous"
	modeBot             serviceMode = "bot"
)

// notifyMaxConcurrent bounds concurrent webhook dispatches from the
// ingest-stage best-effort notification hook (poll/work run on their own
// batch cadence, not a notification-sized one).
const notifyMaxConcurrent = 10

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	mode := serviceMode(os.Getenv("SERVICE_MODE"))

	switch mode {
	case modePoll:
		runPollOnce(logger, database)
	case modeWork:
		runWorkOnce(logger, database)
	case modeWorkContinuous:
		runWorkContinuous(logger, database)
	case modeChunking:
		runChunkingOnce(logger, database)
	case modeChunkContinuous:
		runChunkContinuous(logger, database)
	case modeEmbedding:
		runEmbeddingOnce(logger, database)
	case modeOpenAIMigration:
		runOpenAIMigration(logger, database)
	case modeFTS:
		runFTSOnce(logger, database)
	case modeFTSContinuous:
		runFTSContinuous(logger, database)
	case modeBot:
		runBot(logger, database)
	default:
		logger.Error("unknown or missing SERVICE_MODE",
			slog.String("service_mode", string(mode)),
			slog.String("expected", "poll|work|work-continuous|chunking|chunk-continuous|embedding|openai-migration|fts|fts-continuous|bot"))
		os.Exit(1)
	}
}

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

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// --- poll / work (ingest) ---

func runPollOnce(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("FEED", 50, time.Minute, 9091)
	poller := &ingest.Poller{
		Feeds:       pgRepo.NewFeedRepo(database),
		RawArticles: pgRepo.NewRawArticleRepo(database),
		BatchRuns:   pgRepo.NewBatchRunRepo(database),
		Fetcher:     scraper.NewRSSFetcher(createHTTPClient()),
		WorkerID:    workerPkg.WorkerID(),
	}

	result, err := poller.PollOnce(context.Background(), cfg.BatchSize)
	if err != nil {
		logger.Error("poll failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("poll completed",
		slog.Int("feeds_polled", result.FeedsPolled),
		slog.Int("feeds_not_modified", result.FeedsNotModified),
		slog.Int("items_seen", result.ItemsSeen),
		slog.Int("items_stored", result.ItemsStored),
		slog.Int("items_skipped", result.ItemsSkipped),
		slog.Int("errors", result.Errors))
}

func runWorkOnce(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("FEED", 50, time.Minute, 9091)
	notifyService, notifyCleanup := setupNotifyService(logger, notifyMaxConcurrent)
	defer notifyCleanup()

	w := buildIngestWorker(database)
	result, err := w.ProcessBatch(context.Background(), cfg.BatchSize)
	if err != nil {
		logger.Error("work failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("work completed",
		slog.Int("claimed", result.Claimed),
		slog.Int("stored", result.Stored),
		slog.Int("hard_duplicates", result.HardDuplicates),
		slog.Int("soft_duplicates", result.SoftDuplicates),
		slog.Int("errored", result.Errored),
		slog.Int("skipped", result.Skipped))
	notifyNewArticles(context.Background(), logger, notifyService, pgRepo.NewArticleRepo(database), result.Stored)
}

func runWorkContinuous(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("FEED", 50, time.Minute, 9092)
	notifyService, notifyCleanup := setupNotifyService(logger, notifyMaxConcurrent)
	defer notifyCleanup()

	w := buildIngestWorker(database)
	runContinuous(logger, cfg, "work", func(ctx context.Context) (int, error) {
		result, err := w.ProcessBatch(ctx, cfg.BatchSize)
		if err != nil {
			return 0, err
		}
		notifyNewArticles(ctx, logger, notifyService, pgRepo.NewArticleRepo(database), result.Stored)
		return result.Stored, nil
	})
}

func buildIngestWorker(database *sql.DB) *ingest.Worker {
	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		contentCfg = fetcher.DefaultConfig()
		contentCfg.Enabled = false
	}
	var contentFetcher ingest.ContentFetcher
	if contentCfg.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentCfg)
	}
	return &ingest.Worker{
		RawArticles: pgRepo.NewRawArticleRepo(database),
		Articles:    pgRepo.NewArticleRepo(database),
		BatchRuns:   pgRepo.NewBatchRunRepo(database),
		Fetcher:     contentFetcher,
		WorkerID:    workerPkg.WorkerID(),
	}
}

// --- chunking ---

func runChunkingOnce(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("CHUNK", 50, time.Minute, 9093)
	chunker := buildChunker(logger, database)
	result, err := chunker.ProcessBatch(context.Background(), cfg.BatchSize)
	if err != nil {
		logger.Error("chunking failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("chunking completed",
		slog.Int("articles_processed", result.ArticlesProcessed),
		slog.Int("chunks_written", result.ChunksWritten),
		slog.Int("errored", result.Errored),
		slog.Int("used_fallback", result.UsedFallback))
}

func runChunkContinuous(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("CHUNK", 50, time.Minute, 9094)
	chunker := buildChunker(logger, database)
	runContinuous(logger, cfg, "chunking", func(ctx context.Context) (int, error) {
		result, err := chunker.ProcessBatch(ctx, cfg.BatchSize)
		if err != nil {
			return 0, err
		}
		return result.ChunksWritten, nil
	})
}

func buildChunker(logger *slog.Logger, database *sql.DB) *chunk.Chunker {
	fallback := chunk.NewParagraphSplitter(chunk.MaxChunkTokens)

	var splitter chunk.Splitter = fallback
	if completer := createCompleter(logger); completer != nil {
		splitter = chunk.NewLLMSplitter(completer, chunk.MaxChunkTokens)
	}

	return &chunk.Chunker{
		Articles:       pgRepo.NewArticleRepo(database),
		Chunks:         pgRepo.NewChunkRepo(database),
		BatchRuns:      pgRepo.NewBatchRunRepo(database),
		Splitter:       splitter,
		Fallback:       fallback,
		WorkerID:       workerPkg.WorkerID(),
		MaxChunkTokens: chunk.MaxChunkTokens,
		OverlapTokens:  chunk.OverlapTokens,
	}
}

// --- embedding ---

func runEmbeddingOnce(logger *slog.Logger, database *sql.DB) {
	embedder, err := buildEmbedder(logger, database)
	if err != nil {
		logger.Error("embedding provider unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	result, err := embedder.ProcessBatch(context.Background())
	if err != nil {
		logger.Error("embedding failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("embedding completed",
		slog.Int("considered", result.Considered),
		slog.Int("embedded", result.Embedded),
		slog.Int("permanently_failed", result.PermanentlyFailed),
		slog.Int("skipped", result.Skipped))
}

func runOpenAIMigration(logger *slog.Logger, database *sql.DB) {
	embedder, err := buildEmbedder(logger, database)
	if err != nil {
		logger.Error("embedding provider unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	reset, err := embedder.Migrate(context.Background())
	if err != nil {
		logger.Error("openai migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("openai migration completed, chunks reset for re-embedding", slog.Int64("reset", reset))
}

func buildEmbedder(logger *slog.Logger, database *sql.DB) (*embed.Embedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the embedding provider")
	}
	cfg := workerPkg.LoadBatchConfig("EMBED", embed.DefaultBatchSize, time.Minute, 9095)
	logger.Info("embedding provider configured", slog.String("model", "text-embedding-3-large"))
	return &embed.Embedder{
		Chunks:       pgRepo.NewChunkRepo(database),
		Embeddings:   pgRepo.NewEmbeddingRepo(database),
		BatchRuns:    pgRepo.NewBatchRunRepo(database),
		Provider:     embed.NewOpenAIProvider(apiKey),
		WorkerID:     workerPkg.WorkerID(),
		ProviderName: "openai",
		ModelName:    "text-embedding-3-large",
		BatchSize:    cfg.BatchSize,
	}, nil
}

// --- fts ---

func runFTSOnce(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("FTS", ftsindex.DefaultBatchSize, time.Minute, 9096)
	indexer := &ftsindex.Indexer{
		Chunks:    pgRepo.NewChunkRepo(database),
		FTS:       pgRepo.NewFTSRepo(database),
		BatchRuns: pgRepo.NewBatchRunRepo(database),
		WorkerID:  workerPkg.WorkerID(),
		BatchSize: cfg.BatchSize,
	}
	result, err := indexer.ProcessBatch(context.Background())
	if err != nil {
		logger.Error("fts indexing failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("fts indexing completed",
		slog.Int("considered", result.Considered),
		slog.Int("indexed", result.Indexed),
		slog.Int("errored", result.Errored))
}

func runFTSContinuous(logger *slog.Logger, database *sql.DB) {
	cfg := workerPkg.LoadBatchConfig("FTS", ftsindex.DefaultBatchSize, time.Minute, 9097)
	indexer := &ftsindex.Indexer{
		Chunks:    pgRepo.NewChunkRepo(database),
		FTS:       pgRepo.NewFTSRepo(database),
		BatchRuns: pgRepo.NewBatchRunRepo(database),
		WorkerID:  workerPkg.WorkerID(),
		BatchSize: cfg.BatchSize,
	}
	runContinuous(logger, cfg, "fts", func(ctx context.Context) (int, error) {
		result, err := indexer.ProcessBatch(ctx)
		if err != nil {
			return 0, err
		}
		return result.Indexed, nil
	})
}

// --- shared continuous-loop driver ---

// runContinuous calls work on a timer, sleeping cfg.Interval between
// calls that made zero progress and retrying immediately (no backoff)
// when there's more work queued up, until SIGINT/SIGTERM.
func runContinuous(logger *slog.Logger, cfg workerPkg.BatchConfig, name string, work func(ctx context.Context) (processed int, err error)) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	healthServer.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(name+" continuous service started", slog.Duration("interval", cfg.Interval), slog.Int("batch_size", cfg.BatchSize))

	for {
		select {
		case <-quit:
			logger.Info(name + " continuous service shutting down")
			cancel()
			return
		default:
		}

		processed, err := work(ctx)
		if err != nil {
			logger.Error(name+" batch failed", slog.Any("error", err))
			time.Sleep(cfg.Interval)
			continue
		}
		if processed == 0 {
			select {
			case <-quit:
				logger.Info(name + " continuous service shutting down")
				cancel()
				return
			case <-time.After(cfg.Interval):
			}
		}
	}
}

// --- notify helpers (poll/work stages fire a best-effort notification) ---

func setupNotifyService(logger *slog.Logger, maxConcurrent int) (notify.Service, func()) {
	var channels []notify.Channel
	if discordConfig := loadDiscordConfig(logger); discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
	}
	if slackConfig := loadSlackConfig(logger); slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
	}
	svc := notify.NewService(channels, maxConcurrent)
	return svc, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			logger.Error("notify service shutdown failed", slog.Any("error", err))
		}
	}
}

// notifyNewArticles fires a best-effort notification for articles stored
// in the last run. It re-reads them by publish window rather than
// threading the freshly created rows through ProcessBatch, since Worker
// doesn't return the articles themselves.
func notifyNewArticles(ctx context.Context, logger *slog.Logger, svc notify.Service, articles repository.ArticleRepository, stored int) {
	if stored == 0 {
		return
	}
	since := time.Now().Add(-10 * time.Minute)
	recent, err := articles.SearchWithFilters(ctx, nil, repository.ArticleSearchFilters{From: &since})
	if err != nil {
		logger.Warn("failed to look up recently stored articles for notification", slog.Any("error", err))
		return
	}
	for _, article := range recent {
		if err := svc.NotifyNewArticle(ctx, article); err != nil {
			logger.Warn("failed to dispatch notification", slog.Int64("article_id", article.ID), slog.Any("error", err))
		}
	}
}

// --- bot (scheduled digest) ---

func runBot(logger *slog.Logger, database *sql.DB) {
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load bot configuration", slog.Any("error", err))
		os.Exit(1)
	}

	notifyService, notifyCleanup := setupNotifyService(logger, workerConfig.NotifyMaxConcurrent)
	defer notifyCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	loc, err := time.LoadLocation(workerConfig.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", workerConfig.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	articles := pgRepo.NewArticleRepo(database)
	var lastRun time.Time

	_, err = c.AddFunc(workerConfig.CronSchedule, func() {
		runDigest(logger, notifyService, articles, workerConfig.CrawlTimeout, &lastRun)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("bot started", slog.String("schedule", workerConfig.CronSchedule), slog.String("timezone", workerConfig.Timezone))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("bot shutting down")
	c.Stop()
}

func runDigest(logger *slog.Logger, svc notify.Service, articles repository.ArticleRepository, timeout time.Duration, lastRun *time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	since := *lastRun
	if since.IsZero() {
		since = time.Now().Add(-24 * time.Hour)
	}
	now := time.Now()

	recent, err := articles.SearchWithFilters(ctx, nil, repository.ArticleSearchFilters{From: &since, To: &now})
	if err != nil {
		logger.Error("digest lookup failed", slog.Any("error", err))
		return
	}

	for _, article := range recent {
		if err := svc.NotifyNewArticle(ctx, article); err != nil {
			logger.Warn("digest notification failed", slog.Int64("article_id", article.ID), slog.Any("error", err))
		}
	}
	logger.Info("digest run completed", slog.Int("articles", len(recent)))
	*lastRun = now
}

// --- shared infra helpers ---

func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// createCompleter builds the LLM backend for the chunker's LLM-assisted
// splitter, chosen via SUMMARIZER_TYPE (same switch the summarizer use
// case uses). Returns nil if no API key is configured, in which case the
// chunker runs on the deterministic paragraph splitter alone.
func createCompleter(logger *slog.Logger) summarizer.Completer {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "claude"
	}

	switch summarizerType {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Warn("ANTHROPIC_API_KEY not set, chunking falls back to paragraph splitting")
			return nil
		}
		return summarizer.NewClaude(apiKey)
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Warn("OPENAI_API_KEY not set, chunking falls back to paragraph splitting")
			return nil
		}
		cfg, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Warn("failed to load OpenAI configuration, chunking falls back to paragraph splitting", slog.Any("error", err))
			return nil
		}
		return summarizer.NewOpenAI(apiKey, cfg)
	default:
		logger.Warn("invalid SUMMARIZER_TYPE, chunking falls back to paragraph splitting", slog.String("type", summarizerType))
		return nil
	}
}

// loadDiscordConfig loads Discord configuration from environment variables.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("Discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Host != "discord.com" {
		logger.Warn("Invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// loadSlackConfig loads Slack configuration from environment variables.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}
