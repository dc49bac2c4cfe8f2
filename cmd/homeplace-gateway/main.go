package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/homeplace/internal/app"
	"github.com/nfrund/homeplace/internal/config"
	"github.com/nfrund/homeplace/internal/gateway"
	"github.com/nfrund/homeplace/internal/logging"
	"github.com/nfrund/homeplace/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	logging.New()

	cfg, err := config.New()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Gateway stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	defer func() {
		if err := a.Shutdown(); err != nil {
			slog.Error("Shutdown finished with errors", "error", err)
		}
	}()

	bridge, err := app.Invoke[*gateway.Bridge](a)
	if err != nil {
		return err
	}
	srv, err := app.Invoke[*server.Server](a)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bridge.Run(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		return srv.Start(gctx)
	})

	slog.Info("Gateway running", "addr", cfg.GetServerAddr(), "history_db", cfg.GetHistoryDB())
	return g.Wait()
}
