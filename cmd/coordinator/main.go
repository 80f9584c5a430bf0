// Command coordinator exposes the Coordinator's worker-liveness and
// queue-depth snapshot over HTTP for operators. It never
// makes scheduling decisions; it only reports what it reads from Redis.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chronocoders/indexnode/internal/app"
	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/server"
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

	mux := http.NewServeMux()
	mux.HandleFunc("/api/workers", func(w http.ResponseWriter, r *http.Request) {
		if !server.RequireMethod(w, r, http.MethodGet) {
			return
		}
		workers, err := a.Coordinator.GetActiveWorkers(r.Context())
		if err != nil {
			server.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		server.WriteJSON(w, http.StatusOK, workers)
	})
	mux.HandleFunc("/api/queue/stats", func(w http.ResponseWriter, r *http.Request) {
		if !server.RequireMethod(w, r, http.MethodGet) {
			return
		}
		stats, err := a.Coordinator.GetQueueStats(r.Context())
		if err != nil {
			server.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		server.WriteJSON(w, http.StatusOK, stats)
	})

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		a.Logger.Info().Str("addr", addr).Msg("coordinator admin endpoint ready")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error().Err(err).Msg("coordinator admin endpoint stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Logger.Info().Msg("shutdown signal received")
	httpServer.Close()
	a.Logger.Info().Msg("coordinator stopped")
}
