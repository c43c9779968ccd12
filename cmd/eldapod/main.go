// Command eldapod runs the capability directory search core as an HTTP
// daemon: it loads a startup snapshot from the upstream store, starts the
// change tailer, and serves the core's HTTP surface until terminated.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	eldapo "github.com/khalidsaidi/eldapo"
	"github.com/khalidsaidi/eldapo/config"
	"github.com/khalidsaidi/eldapo/httpapi"
	"github.com/khalidsaidi/eldapo/store/dynamostore"
	"github.com/khalidsaidi/eldapo/tailer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("eldapod exited with error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := eldapo.NewJSONLogger(slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg)
	upstream := dynamostore.NewStore(client, "entries-latest", "entries-changelog")

	dir := eldapo.New(
		eldapo.WithFilterCacheSize(cfg.FilterCacheSize),
		eldapo.WithLogger(logger),
	)

	t := tailer.New(upstream, dir.LoadSnapshot, dir.ApplyChange, dir.SetLastSeq,
		tailer.WithPollInterval(cfg.PollInterval),
		tailer.WithBatchSize(cfg.PollBatch),
		tailer.WithLogger(logger),
	)

	logger.Info("loading startup snapshot")
	if err := t.LoadSnapshot(ctx); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	logger.Info("startup snapshot loaded", "last_seq", dir.LastSeq())

	go t.Run(ctx)

	server := httpapi.New(dir, cfg.PollInterval.Milliseconds(), cfg.TrustedHeaders)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: server}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutdown signal received")
		cancel()
		_ = httpServer.Close()
	}()

	logger.Info("eldapod listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
