// Command api serves the pattern compiler over HTTP
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chicogong/pattern-planner/pkg/api"
	"github.com/chicogong/pattern-planner/pkg/auth"
	"github.com/chicogong/pattern-planner/pkg/compiler"
	"github.com/chicogong/pattern-planner/pkg/config"
	"github.com/chicogong/pattern-planner/pkg/exporter"
	"github.com/chicogong/pattern-planner/pkg/logging"
	"github.com/chicogong/pattern-planner/pkg/storage"
	"github.com/chicogong/pattern-planner/pkg/store"
)

// tokenLifetime is the validity of issued bearer tokens
const tokenLifetime = 24 * time.Hour

func main() {
	addr := flag.String("addr", "", "Listen address; overrides PLANNER_ADDR.")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	if err := serve(cfg, logger); err != nil {
		logger.Error("Server failed.", "error", err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaults, err := config.LoadPlannerFile(cfg.PlannerFile)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	router, err := newStorageRouter(ctx, cfg.Artifact, logger)
	if err != nil {
		s.Close()
		return err
	}

	c := compiler.New(
		compiler.WithFetcher(router),
		compiler.WithDefaultConstraints(defaults.Constraints),
		compiler.WithCodegenConfig(defaults.Codegen),
	)

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithExporter(exporter.New(router)),
		api.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
	}
	if cfg.Artifact.Bucket != "" {
		opts = append(opts, api.WithDefaultOutputs("s3://"+cfg.Artifact.Bucket+"/jobs"))
	}
	server := api.NewServer(s, c, opts...)
	defer server.Close()

	authn, err := newAuth(cfg, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Routes(authn),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server.", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown.", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Background jobs did not stop in time.", "error", err)
	}

	logger.Info("Server stopped.")
	return nil
}

// openStore keeps jobs in Postgres when DATABASE_URL is set
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("Using in-memory job store.")
		return store.NewMemoryStore(), nil
	}

	s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Using Postgres job store.")
	return s, nil
}

// newStorageRouter serves file and http(s) URIs, and s3 URIs from MinIO
// when an endpoint is configured or from AWS otherwise
func newStorageRouter(ctx context.Context, cfg config.ArtifactConfig, logger *slog.Logger) (*storage.Router, error) {
	router := storage.NewRouter()
	router.Register(storage.NewLocalStorage(), "file")
	router.Register(storage.NewHTTPStorage(), "http", "https")

	if cfg.Endpoint != "" {
		ms, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		router.Register(ms, "s3")
		logger.Info("Serving s3 URIs from MinIO.", "endpoint", cfg.Endpoint)
		return router, nil
	}

	s3, err := storage.NewS3Storage(ctx, cfg.Region)
	if err != nil {
		// file and http artifacts keep working without AWS credentials
		logger.Warn("S3 storage disabled.", "error", err)
		return router, nil
	}
	router.Register(s3, "s3")
	return router, nil
}

// newAuth builds the authentication middleware. With neither a JWT secret
// nor API keys configured the API is open.
func newAuth(cfg *config.Config, logger *slog.Logger) (*auth.Middleware, error) {
	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, tokenLifetime)
	}

	var keys *auth.APIKeyManager
	if len(cfg.APIKeys) > 0 {
		keys = auth.NewAPIKeyManager()
		if err := keys.LoadKeys(cfg.APIKeys); err != nil {
			return nil, fmt.Errorf("API_KEYS: %w", err)
		}
	}

	if jwtManager == nil && keys == nil {
		logger.Warn("Authentication disabled; set JWT_SECRET or API_KEYS to enable it.")
		return nil, nil
	}
	return auth.NewMiddleware(jwtManager, keys, false), nil
}
