package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auditlake/audit-archiver/internal/archiver"
	"github.com/auditlake/audit-archiver/internal/config"
	"github.com/auditlake/audit-archiver/internal/logging"
	"github.com/auditlake/audit-archiver/internal/metrics"
	"github.com/auditlake/audit-archiver/internal/partition"
	"github.com/auditlake/audit-archiver/internal/queue"
	"github.com/auditlake/audit-archiver/internal/storage"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})
	log := logging.Component("main")
	log.Info("audit archiver starting", "version", Version, "git_sha", GitSHA, "stage", cfg.Stage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metrics.Init("audit_archiver")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	store, err := storage.NewObjectStore(ctx, storage.Config{
		Backend:  cfg.Storage.Backend,
		Bucket:   cfg.Storage.Bucket,
		Endpoint: cfg.Storage.S3Endpoint,
		Region:   cfg.Storage.S3Region,
		LocalDir: cfg.Storage.LocalDir,
	})
	if err != nil {
		log.Error("failed to create storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Queue.URL == "" {
		log.Error("configuration invalid", "error", "QUEUE_URL is required")
		os.Exit(1)
	}

	client, err := queue.NewClient(ctx, queue.ClientConfig{
		QueueURL:    cfg.Queue.URL,
		WaitSeconds: cfg.Queue.WaitSeconds,
		MaxMessages: cfg.Queue.MaxMessages,
	})
	if err != nil {
		log.Error("failed to create queue client", "error", err)
		os.Exit(1)
	}

	writer := storage.NewGroupWriter(
		store,
		cfg.Storage.BasePath,
		cfg.Storage.Compression == "gzip",
		cfg.Retry.For(config.CallSiteStoragePut),
		cfg.Stage,
	)
	acker := queue.NewAcknowledger(client, cfg.Retry.For(config.CallSiteQueueDelete), cfg.Stage)

	arch := archiver.New(partition.NewDeriver(), writer, acker, cfg.Stage)

	if err := run(ctx, log, client, arch, cfg.Queue.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer loop failed", "error", err)
		os.Exit(1)
	}

	log.Info("audit archiver stopped cleanly")
}

// run polls the queue until ctx is cancelled, handing each delivered batch
// to the archiver.
func run(ctx context.Context, log *slog.Logger, client *queue.Client, arch *archiver.Archiver, pollInterval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := client.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("receive failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if len(batch) == 0 {
			continue
		}

		invocationCtx := logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())
		summary := arch.ProcessBatch(invocationCtx, batch)
		resp := summary.Response()
		log.Info("invocation complete",
			"status", resp.StatusCode,
			"total", resp.Body.TotalRecords,
			"succeeded", resp.Body.SuccessfulRecords,
			"failed", resp.Body.FailedRecords,
			"groups", resp.Body.GroupsProcessed,
		)

		if pollInterval > 0 {
			select {
			case <-time.After(pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
