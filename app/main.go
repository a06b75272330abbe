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

	"github.com/lysyi3m/story-comb/app/api"
	"github.com/lysyi3m/story-comb/app/cfg"
	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/feed"
	"github.com/lysyi3m/story-comb/app/metrics"
	"github.com/lysyi3m/story-comb/app/pipeline"
	"github.com/lysyi3m/story-comb/app/seed"
	"github.com/lysyi3m/story-comb/app/status"
	"github.com/lysyi3m/story-comb/app/tasks"
	"github.com/lysyi3m/story-comb/app/updates"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Story Comb", "version", cfg.GetVersion(), "timezone", appCfg.Timezone)

	if err := run(appCfg); err != nil {
		slog.Error("Story Comb stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Story Comb shutdown complete")
}

func run(appCfg *cfg.Cfg) error {
	ctx := context.Background()

	db, err := database.Connect(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	storyRepo := database.NewStoryRepository(db)
	jobRepo := database.NewJobRepository(db)

	var (
		statusStore status.Store
		locker      status.Locker
	)

	if appCfg.RedisAddr != "" {
		redisClient, err := status.NewRedisClient(ctx, appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		statusStore = status.NewRedisStore(redisClient, appCfg.StatusTTL)
		locker = status.NewRedisLocker(redisClient)
	} else {
		slog.Info("REDIS_ADDR not set, keeping processing status in memory")
		statusStore = status.NewMemoryStore(appCfg.StatusTTL)
		locker = status.NewMemoryLocker()
	}

	metrics.MustRegister()

	httpClient := &http.Client{}
	reader := feed.NewReader(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.FetchTimeout)
	if appCfg.ExtractImages {
		reader.WithLeadImages(feed.NewContentExtractor())
	}

	orchestrator := pipeline.NewOrchestrator(storyRepo, statusStore, locker, reader,
		feed.NewSelector(), feed.NewSynthesizer(), appCfg.LockTTL)

	scheduler := tasks.NewScheduler(jobRepo, orchestrator, tasks.OptionsFromCfg(appCfg))
	service := updates.NewService(storyRepo, statusStore, scheduler, reader)

	seeded, err := seed.NewLoader(appCfg.StoriesDir, storyRepo).Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to load story seeds: %w", err)
	}
	slog.Info("Story seeds loaded", "dir", appCfg.StoriesDir, "count", len(seeded))

	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	if _, err := service.Rearm(ctx); err != nil {
		return fmt.Errorf("failed to re-arm recurring refreshes: %w", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(api.NewHandler(service), appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	// Scheduler and database are closed via defer
	return runErr
}
