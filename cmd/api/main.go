package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"care-match/internal/config"
	apihttp "care-match/internal/http"
	"care-match/internal/logger"
	"care-match/internal/model"
	"care-match/internal/service"
	"care-match/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer logger.Sync()

	repos, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}
	defer repos.Close()

	ruleCfg := service.DefaultRuleScorerConfig()
	ruleCfg.Interaction = cfg.RuleInteractionEnabled
	ruleScorer := service.NewRuleScorer(ruleCfg)
	provider := model.NewFileProvider(cfg.ModelPath, cfg.ModelRetryInterval, logger)
	learnedScorer := service.NewLearnedScorer(provider, cfg.LearnedInteractionEnabled, logger)
	scorer, err := service.NewScorer(cfg.ScorerStrategy, ruleScorer, learnedScorer, logger)
	if err != nil {
		logger.Fatal("scorer init", zap.Error(err))
	}
	if cfg.ScorerStrategy == config.ScorerLearned {
		// Carga anticipada para detectar artefactos rotos al arrancar; el fallback cubre el resto.
		if _, err := provider.Get(ctx); err != nil {
			logger.Warn("model preload failed, serving rule-based scores", zap.Error(err))
		}
	}

	var cache service.RecommendationCache = service.NewMemoryRecommendationCache(cfg.RecommendationCacheTTL)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process cache", zap.Error(err))
		} else if rc := service.NewRedisRecommendationCache(redisClient, cfg.RecommendationCacheTTL); rc != nil {
			cache = rc
		}
		cancel()
	}

	rankingSvc := service.NewRankingService(repos.Profiles, scorer, cache, service.RankingConfig{
		DefaultLimit: cfg.RankingDefaultLimit,
		MaxLimit:     cfg.RankingMaxLimit,
		MaxPool:      cfg.RankingMaxPool,
		Workers:      cfg.RankingWorkers,
		Timeout:      cfg.RankingTimeout,
	}, logger)
	matchSvc := service.NewMatchService(repos.Profiles, repos.Matches, scorer, rankingSvc, logger)
	evalSvc := service.NewEvaluationService(repos.Matches, logger)
	questionnaireSvc := service.NewQuestionnaireService(repos.Profiles, rankingSvc, logger)

	matchHandler := apihttp.NewMatchHandler(logger, rankingSvc, matchSvc)
	evalHandler := apihttp.NewEvaluationHandler(logger, evalSvc)
	profileHandler := apihttp.NewProfileHandler(logger, questionnaireSvc)
	router := apihttp.NewRouter(logger, matchHandler, evalHandler, profileHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("storage", cfg.StorageDriver),
		zap.String("scorer", scorer.Version()),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
