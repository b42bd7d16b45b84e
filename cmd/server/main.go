package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wirechat/wirechat/internal/server"
	"github.com/wirechat/wirechat/pkg/log"
)

const (
	httpShutdownTimeout = 10 * time.Second
	hubShutdownTimeout  = 5 * time.Second
)

func main() {
	cfg := server.NewConfigFromEnv()
	server.SetConfig(cfg)

	logger, err := log.New(log.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log configuration: %v\n", err)
		os.Exit(1)
	}
	log.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	server.StartHub()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		if err := server.ShutdownServer(httpServer, httpShutdownTimeout); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		return server.GetHub().Shutdown(hubShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("relay exited", zap.Error(err))
	}
	log.Info("relay stopped")
}
