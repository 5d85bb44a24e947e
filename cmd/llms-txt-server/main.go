// Command llms-txt-server runs the HTTP API described in spec.md section
// 6.1: a fiber app fronting a single process-wide job.Manager that drives
// generation jobs through internal/orchestrator.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/build"
	"github.com/llmstxt/llms-txt-gen/internal/config"
	"github.com/llmstxt/llms-txt-gen/internal/httpapi"
	"github.com/llmstxt/llms-txt-gen/internal/job"
	"github.com/llmstxt/llms-txt-gen/internal/logging"
	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/orchestrator"
	"github.com/llmstxt/llms-txt-gen/internal/store"
)

const defaultMaxConcurrentJobs = 4

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "llms-txt-server:", err)
		os.Exit(1)
	}
}

func run() error {
	defaults, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.NewProductionLogger(os.Getenv("LOG_LEVEL"))

	var artifactStore store.Store
	switch defaults.StorageBackend() {
	case "object_store":
		artifactStore = store.NewObjectStore(defaults.ObjectStoreBucket(), metadata.NoopSink{})
	default:
		artifactStore = store.NewMemoryStore()
	}

	orch := orchestrator.NewOrchestrator(defaults, log, build.FullVersion())
	manager := job.NewManager(artifactStore, orch, log, metadata.NoopSink{}, defaultMaxConcurrentJobs, defaults.JobTTL())
	orch.Manager = manager

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go manager.Start(ctx)
	go manager.StartRetentionSweep(ctx, time.Hour)

	server := httpapi.NewServer(manager, log)

	addr := net.JoinHostPort("0.0.0.0", port())
	log.Infow("starting llms-txt-server", "addr", addr, "version", build.FullVersion())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.App.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Infow("shutting down llms-txt-server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.App.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}
	return nil
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}
