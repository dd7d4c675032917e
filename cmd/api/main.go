package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/cloudinary"
	"campusattend/internal/config"
	"campusattend/internal/httpapi"
	"campusattend/internal/httpmiddleware"
	"campusattend/internal/insight"
	"campusattend/internal/llm"
	"campusattend/internal/logging"
	"campusattend/internal/store"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	logger := logging.New(cfg.Env)
	slog.SetDefault(logger)

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := cfg.Validate(); err != nil {
		if cfg.Production() {
			logger.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
		logger.Warn("configuration incomplete", "error", err)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	ctx := context.Background()

	mongo, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.MongoTimeout)
	if mongo == nil {
		return err
	}
	if err != nil {
		logger.Warn("mongodb not reachable", "error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(closeCtx)
	}()

	repo := attendance.NewRepository(mongo.DB)
	if err == nil {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("index creation failed", "error", err)
		}
	}

	if cfg.AdminUsername != "" {
		if err := auth.EnsureAdmin(ctx, repo, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			logger.Warn("admin seed failed", "error", err)
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		logger.Warn("AI backend unavailable", "provider", cfg.AIProvider, "error", err)
	} else {
		defer closeBackend()
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := backend.Ping(pingCtx); err != nil {
			logger.Warn("AI backend did not answer", "provider", backend.Provider(), "model", backend.Model(), "error", err)
		} else {
			logger.Info("AI backend ready", "provider", backend.Provider(), "model", backend.Model())
		}
		cancel()
	}

	opts := httpapi.Options{
		Config:  cfg,
		Logger:  logger,
		Store:   repo,
		Mongo:   mongo,
		Limiter: httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
	}
	if backend != nil {
		opts.Insights = insight.NewService(llm.Instrument(backend))
		opts.AIProvider = backend.Provider() + "/" + backend.Model()
	}
	// Cloudinary client (left unset when not configured)
	if cfg.CloudinaryConfigured() {
		opts.Photos = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		logger.Info("cloudinary not configured, student photos are stored inline")
	}
	// A nil *store.Redis must not reach the Checker interface.
	if redisClient != nil {
		opts.Redis = redisClient
		opts.AILimiter = httpmiddleware.NewRedisWindow(redisClient.Client, "ratelimit:ai", cfg.AIRateLimitPerMin)
	} else {
		opts.AILimiter = httpmiddleware.NewSimpleTokenBucket(cfg.AIRateLimitPerMin, cfg.AIRateLimitPerMin)
	}

	r := httpapi.NewRouter(opts)

	// Local models can take minutes, so writes outlive the slowest backend.
	writeTimeout := 15 * time.Second
	if t := max(cfg.OllamaTimeout, cfg.GeminiTimeout) + 10*time.Second; t > writeTimeout {
		writeTimeout = t
	}
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", "error", err)
	}

	logger.Info("server exited")
	return nil
}

// newBackend builds the generation backend selected by AI_PROVIDER.
func newBackend(ctx context.Context, cfg config.App) (llm.Backend, func(), error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, nil, errors.New("GEMINI_API_KEY is not set")
		}
		g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	case config.ProviderOllama:
		return llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}
