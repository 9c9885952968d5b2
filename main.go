package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediaworker/config"
	"mediaworker/credentials"
	"mediaworker/encoder"
	"mediaworker/failures"
	"mediaworker/job"
	"mediaworker/logger"
	"mediaworker/operations"
	"mediaworker/resolver"
	"mediaworker/routes"
	"mediaworker/success"
	taskqueue "mediaworker/taskQueue"
	"mediaworker/tracker"
	writerbackends "mediaworker/writerBackends"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.LogFile, true); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Info("Starting media worker initialization")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatalf("Failed to create data directory %s: %v", cfg.DataDir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize credentials store
	logger.Debug("Initializing credentials database")
	if err := credentials.OpenDB(cfg.GetCredentialsDBPath()); err != nil {
		logger.Fatalf("Failed to initialize credentials store: %v", err)
	}
	defer credentials.CloseDB()

	// Initialize failure store
	logger.Debug("Initializing failures database")
	if err := failures.Init(cfg.GetFailuresDBPath()); err != nil {
		logger.Fatalf("Failed to initialize failure store: %v", err)
	}
	defer failures.Close()

	// Initialize success store
	logger.Debug("Initializing success database")
	if err := success.Init(cfg.GetSuccessDBPath()); err != nil {
		logger.Fatalf("Failed to initialize success store: %v", err)
	}
	defer success.Close()

	jobs, err := taskqueue.OpenJobStore(cfg.GetJobQueueDBPath())
	if err != nil {
		logger.Fatalf("Failed to open job store: %v", err)
	}
	defer jobs.Close()
	logger.Info("Databases initialized successfully")

	backend, accessInfo, err := credentials.MergeAccessInfo(cfg.StorageBackend, cfg.AccessInfo(), cfg.StorageCredentialsKey)
	if err != nil {
		logger.Fatalf("Failed to load storage credentials: %v", err)
	}
	store, err := writerbackends.Open(ctx, backend, accessInfo)
	if err != nil {
		logger.Fatalf("Failed to open %s storage backend: %v", backend, err)
	}
	defer store.Close()
	logger.Infof("Using %s storage backend", backend)

	engine := encoder.NewExecutor(cfg.FFmpegPath)
	if err := engine.Check(); err != nil {
		logger.Fatalf("Transform engine unavailable: %v", err)
	}

	if cfg.StagingEnabled {
		if err := os.MkdirAll(cfg.StagingDir, 0755); err != nil {
			logger.Fatalf("Failed to create staging directory %s: %v", cfg.StagingDir, err)
		}
	}

	worker := &operations.WorkerContext{
		Store: store,
		Resolver: resolver.New(resolver.Config{
			Bucket: cfg.OutputBucket,
			Prefix: cfg.OutputPrefix,
			URLTTL: cfg.OutputURLTTL,
		}, store),
		Engine:       engine,
		StagingDir:   cfg.StagingDir,
		AllowStaging: cfg.StagingEnabled,
	}

	progress, err := tracker.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatalf("Failed to connect progress tracker: %v", err)
	}
	defer progress.Close()

	dispatcher := job.NewDispatcher(job.Options{
		Store:       jobs,
		Worker:      worker,
		Tracker:     progress,
		Timeout:     cfg.JobTimeout,
		MaxAttempts: cfg.JobMaxAttempts,
		Backoff:     5 * time.Second,
		Concurrency: 1,
	})

	// Requeue jobs interrupted by a previous shutdown
	if n, err := dispatcher.Recover(); err != nil {
		logger.Errorf("Failed to recover pending jobs: %v", err)
	} else if n > 0 {
		logger.Infof("Recovered %d pending job(s)", n)
	}

	logger.Info("Starting cleanup routine (runs every 24 hours)")
	go cleanupRoutine(ctx)

	logger.Infof("Starting job processing for %v", operations.Supported())
	processed := make(chan struct{})
	go func() {
		defer close(processed)
		dispatcher.Run(ctx)
	}()

	if cfg.JWTSecret == "" {
		logger.Warn("WORKER_JWT_SECRET is not set, job submission over HTTP is disabled")
	}
	handlers := &routes.Handlers{
		Dispatcher: dispatcher,
		JWTSecret:  []byte(cfg.JWTSecret),
	}
	if files, ok := store.(*writerbackends.DirectServeStore); ok {
		handlers.Files = files
	}
	mux := http.NewServeMux()
	handlers.Register(mux)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Media worker listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown failed: %v", err)
	}
	<-processed
	logger.Info("Media worker stopped")
}

// cleanupRoutine periodically cleans up old success and failure records
func cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			logger.Info("Running scheduled cleanup of old records")
			maxAge := 30 * 24 * time.Hour

			if err := success.CleanupOldRecords(maxAge); err != nil {
				logger.Errorf("Failed to cleanup old success records: %v", err)
			}
			if err := failures.CleanupOldRecords(maxAge); err != nil {
				logger.Errorf("Failed to cleanup old failure records: %v", err)
			}
			logger.Info("Scheduled cleanup completed")
		}
	}
}
