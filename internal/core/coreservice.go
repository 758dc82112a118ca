package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/database"
	"github.com/jo-hoe/layerbatch/internal/progress"
)

// ErrProgressTrackingDisabled is returned when progress is requested
// but no redis address is configured.
var ErrProgressTrackingDisabled = errors.New("progress tracking is not configured")

// CoreService executes batch runs against the configured actions and
// persists their results.
type CoreService struct {
	config *ServiceConfig
	store  database.RunStore
	redis  *redis.Client
}

// NewCoreService creates a core service from the given configuration.
// It panics when the database cannot be initialized.
func NewCoreService(config *ServiceConfig) *CoreService {
	store, err := getRunStore(config)
	if err != nil {
		slog.Error("failed to initialize database service", "error", err)
		panic(err)
	}

	service := &CoreService{
		config: config,
		store:  store,
	}
	if config.Redis.Address != "" {
		service.redis = redis.NewClient(&redis.Options{Addr: config.Redis.Address})
		slog.Info("progress tracking enabled", "address", config.Redis.Address)
	}
	return service
}

func getRunStore(config *ServiceConfig) (database.RunStore, error) {
	store, err := database.NewRunStore(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return store, nil
}

// Config returns the loaded service configuration.
func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

// Store returns the run store.
func (service *CoreService) Store() database.RunStore {
	return service.store
}

// Close releases the database and redis connections.
func (service *CoreService) Close() error {
	if service.redis != nil {
		if err := service.redis.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	return service.store.Close()
}

// RunRequest describes a run to start.
type RunRequest struct {
	// SourcePath is the image file or directory to process.
	SourcePath string
	// SourceName is the display name recorded for the run. Empty falls
	// back to SourcePath.
	SourceName string
	// CleanupDir is removed once the run finishes. Callers use it to
	// hand over uploaded sources living in a temporary directory.
	CleanupDir string
	// Pipeline overrides parts of the configured actions for this run.
	Pipeline *Pipeline
}

// StartRun records a run for the given source and executes the
// configured actions in the background. The returned run is in its
// initial state; its progress can be followed with RunProgress.
func (service *CoreService) StartRun(request RunRequest) (*database.Run, error) {
	runID, options, err := service.prepareRun(request)
	if err != nil {
		return nil, err
	}

	go func() {
		defer removeCleanupDir(request.CleanupDir)
		if err := service.executeRun(context.Background(), runID, options); err != nil {
			slog.Error("run failed", "run_id", runID, "error", err)
		}
	}()

	return service.store.GetRun(runID)
}

// RunProgress returns the live progress of a run from redis.
func (service *CoreService) RunProgress(ctx context.Context, runID string) (progress.State, error) {
	if service.redis == nil {
		return progress.State{}, ErrProgressTrackingDisabled
	}
	return progress.Fetch(ctx, service.redis, runID)
}

// DeleteRun removes a run and its recorded progress.
func (service *CoreService) DeleteRun(ctx context.Context, runID string) error {
	if service.redis != nil {
		if err := progress.Clear(ctx, service.redis, runID); err != nil {
			slog.Warn("failed to clear run progress", "run_id", runID, "error", err)
		}
	}
	return service.store.DeleteRun(runID)
}

func (service *CoreService) prepareRun(request RunRequest) (string, batch.Options, error) {
	config := service.config.WithPipeline(request.Pipeline)
	options, err := BatchOptions(config, request.SourcePath)
	if err != nil {
		return "", batch.Options{}, err
	}

	sourceName := request.SourceName
	if sourceName == "" {
		sourceName = request.SourcePath
	}
	runID, err := service.store.CreateRun(sourceName)
	if err != nil {
		return "", batch.Options{}, fmt.Errorf("failed to create run: %w", err)
	}
	return runID, options, nil
}

func (service *CoreService) executeRun(ctx context.Context, runID string, options batch.Options) error {
	var tracker *progress.RedisTracker
	if service.redis != nil {
		tracker = progress.NewRedisTracker(service.redis, runID)
		options.Progress = tracker
	}

	if err := service.store.SetStatus(runID, database.StatusRunning, ""); err != nil {
		slog.Error("failed to update run status", "run_id", runID, "error", err)
	}

	batcher, err := batch.NewBatcher(options)
	if err != nil {
		service.finishRun(runID, tracker, err)
		return err
	}

	runErr := batcher.Run(ctx)
	service.recordResults(runID, batcher)
	service.finishRun(runID, tracker, runErr)
	return runErr
}

func (service *CoreService) recordResults(runID string, batcher *batch.Batcher) {
	items := len(batcher.MatchingItems())
	exported := len(batcher.ExportedFiles())
	skipped := countItemMessages(batcher.SkippedActions())
	failed := countItemMessages(batcher.FailedActions())

	if err := service.store.SetCounts(runID, items, exported, skipped, failed); err != nil {
		slog.Error("failed to record run counts", "run_id", runID, "error", err)
	}
	if err := service.store.AddExportedFiles(runID, batcher.ExportedFiles()); err != nil {
		slog.Error("failed to record exported files", "run_id", runID, "error", err)
	}
}

func (service *CoreService) finishRun(runID string, tracker *progress.RedisTracker, runErr error) {
	status := database.StatusCompleted
	message := ""
	switch {
	case errors.Is(runErr, batch.ErrCancelled):
		status = database.StatusCancelled
		message = runErr.Error()
	case runErr != nil:
		status = database.StatusFailed
		message = runErr.Error()
	}

	if err := service.store.SetStatus(runID, status, message); err != nil {
		slog.Error("failed to update run status", "run_id", runID, "error", err)
	}
	if tracker != nil {
		if err := tracker.SetStatus(status); err != nil {
			slog.Warn("failed to publish run status", "run_id", runID, "error", err)
		}
	}
}

func countItemMessages(messages map[string][]batch.ItemMessage) int {
	count := 0
	for _, items := range messages {
		count += len(items)
	}
	return count
}

func removeCleanupDir(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove uploaded source", "directory", dir, "error", err)
	}
}
