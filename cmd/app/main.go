// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sql-advisor/internal/config"
	"sql-advisor/internal/domain/ports/adapter"
	aiAdapters "sql-advisor/internal/infra/adapters/ai"
	sqlAnalyzer "sql-advisor/internal/infra/analyzer"
	"sql-advisor/internal/infra/db/customer"
	"sql-advisor/internal/infra/logging"
	"sql-advisor/internal/infra/metrics"
	red "sql-advisor/internal/infra/redis"
	"sql-advisor/internal/infra/web"
	"sql-advisor/internal/infra/worker"
	"sql-advisor/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI fallback, verbose SQL logging)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Customer database ----
	pool, err := customer.NewPgxPool(ctx, cfg.CustomerDB.URL, cfg.CustomerDB.MaxConns)
	if err != nil {
		log.Fatalf("customer db: %v", err)
	}
	defer pool.Close()
	executor := customer.NewExecutor(pool, cfg.CustomerDB.QueryRowLimit, logger)

	// ---- Redis (optional, rate limiting only) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; request rate limiting disabled")
	}

	// ---- AI Adapter (Metis -> Gemini -> OpenAI -> dev noop) ----
	var ai adapter.AIServiceAdapter
	var provider string
	switch {
	case cfg.AI.MetisKey != "":
		ai, err = aiAdapters.NewMetisOpenAIAdapter(cfg.AI.MetisKey, cfg.AI.DefaultModel, cfg.AI.MetisBaseURL)
		if err != nil {
			log.Fatalf("metis adapter: %v", err)
		}
		provider = "metis"
		logger.Info().Str("base", cfg.AI.MetisBaseURL).Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Metis (OpenAI compatible)")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, 0)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		provider = "gemini"
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		provider = "openai"
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAIAdapter()
		provider = "noop"
		logger.Warn().Msg("AI adapter: noop (dev mode)")
	default:
		log.Fatalf("no AI provider configured: set ai.metis_key, ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- Stage collaborators ----
	schema := sqlAnalyzer.NewSchemaInspector(executor, logger)
	plan := sqlAnalyzer.NewExplainRunner(executor, logger)
	suggester := sqlAnalyzer.NewSuggester(ai, executor, provider, cfg.AI.DefaultModel, cfg.AI.MaxToolRounds, logger)

	// ---- Use cases ----
	group := worker.NewGroup(logger)
	analysisUC := usecase.NewAnalysisUseCase(ctx, cfg.Analysis.MaxSessions, cfg.Analysis.TeardownGrace,
		schema, plan, suggester, group, logger)
	optimizeUC := usecase.NewOptimizeUseCase(suggester, logger, cfg.Runtime.Dev)

	// ---- HTTP server ----
	srv := web.NewServer(analysisUC, optimizeUC, limiter,
		cfg.Analysis.RateLimit, cfg.Analysis.RateWindow, cfg.Server.CORSAllowAll, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	cancel()     // cancels every running pipeline
	group.Wait() // drain pipeline goroutines
}
