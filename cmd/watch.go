package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/infra"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll every subscribed stream and invoke its handlers until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx)
		},
	}
}

func runWatch(ctx context.Context) error {
	v := validator.New()
	infra.InitMetricsRegistry()

	svc, err := infra.InitServiceDefinition(logger)
	if err != nil {
		return err
	}
	backend, err := infra.InitProvider(logger, v)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	resolver, err := infra.InitResolver(logger, v, svc)
	if err != nil {
		return err
	}
	sink, err := infra.InitFailureSink(logger, v)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	w, err := infra.InitWatcher(logger, v, backend, resolver, svc, sink)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	stopHTTP := infra.StartHTTP(logger, &wg, w)
	stopPprof := infra.StartPprof(logger, &wg)

	runErr := w.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stopHTTP(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", "err", err)
	}
	if err := stopPprof(shutdownCtx); err != nil {
		logger.Warn("pprof server shutdown failed", "err", err)
	}
	wg.Wait()

	if errors.Is(runErr, context.Canceled) {
		logger.Info("Shutdown complete")
		return nil
	}
	return runErr
}
