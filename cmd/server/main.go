// Command server runs the thin HTTP adapter: job submission, inspection,
// queue stats, and the job-event WebSocket stream.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chronocoders/indexnode/internal/app"
	"github.com/chronocoders/indexnode/internal/common"
)

func main() {
	configPath := os.Getenv("INDEXNODE_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	common.PrintBanner(a.Config, a.Logger)

	go a.Hub.Run()

	srv := a.NewServer()
	a.Server = srv

	go func() {
		if err := srv.Start(); err != nil {
			a.Logger.Error().Err(err).Msg("thin HTTP adapter stopped")
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", a.Config.Server.Host, a.Config.Server.Port)).
		Msg("server ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Logger.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("server shutdown failed")
	}

	a.Logger.Info().Msg("server stopped")
}
