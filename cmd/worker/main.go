// Command worker runs the dispatch loop against the durable or distributed
// queue (per WorkerConfig.QueueBackend), driving the HttpCrawl and
// BlockchainIndex pipelines.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

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

	w := a.NewWorker()
	w.Start()

	a.Logger.Info().
		Str("worker_id", a.Config.Worker.WorkerID).
		Str("queue_backend", a.Config.Worker.QueueBackend).
		Msg("worker ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Logger.Info().Msg("shutdown signal received")
	w.Stop()
	a.Logger.Info().Msg("worker stopped")
}
