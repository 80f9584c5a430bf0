// Package app wires the durable/distributed queues, coordinator, leaf
// clients, and the worker/server runtimes into a single startup sequence
// shared by cmd/server, cmd/worker, and cmd/coordinator.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chronocoders/indexnode/internal/clients/cas"
	"github.com/chronocoders/indexnode/internal/clients/chainrpc"
	"github.com/chronocoders/indexnode/internal/clients/credit"
	"github.com/chronocoders/indexnode/internal/clients/httpcrawl"
	"github.com/chronocoders/indexnode/internal/clients/llm"
	"github.com/chronocoders/indexnode/internal/clients/marketplace"
	"github.com/chronocoders/indexnode/internal/clients/timestamp"
	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/coordinator"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/merkle"
	"github.com/chronocoders/indexnode/internal/server"
	"github.com/chronocoders/indexnode/internal/storage/cache"
	"github.com/chronocoders/indexnode/internal/storage/sql"
	"github.com/chronocoders/indexnode/internal/worker"
	"github.com/chronocoders/indexnode/internal/worker/cachequeue"
	"github.com/chronocoders/indexnode/internal/worker/sqlqueue"
)

// App holds every store, client, and runtime the platform's three
// binaries (server, worker, coordinator) are assembled from.
type App struct {
	Config *common.Config
	Logger *common.Logger

	SQLQueue   *sql.Queue
	CacheQueue *cache.Queue

	Coordinator *coordinator.Coordinator

	CAS         *cas.Client
	LLM         *llm.Client
	Crawler     *httpcrawl.Client
	Chain       *chainrpc.Client
	eth         *ethclient.Client
	Credit      *credit.Client
	Marketplace *marketplace.Client
	Timestamp   *timestamp.Client
	Merkle      *merkle.Helper

	Hub    *server.JobWSHub
	Server *server.Server

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable, so relative
// config/log paths resolve the same way regardless of the caller's cwd.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks an explicit path, then INDEXNODE_CONFIG, then a
// file alongside the binary, then a development fallback.
func resolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if v := os.Getenv("INDEXNODE_CONFIG"); v != "" {
		return v
	}
	binDir := getBinaryDir()
	candidate := filepath.Join(binDir, "indexnode.toml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "config/indexnode.toml"
}

// NewApp loads configuration, opens the durable and distributed queues,
// dials the chain RPC client, and builds every leaf client. configPath may be empty, in which case resolveConfigPath applies
// the default resolution order.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	ctx := context.Background()

	sqlQueue, err := sql.Open(ctx, config.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open durable queue: %w", err)
	}

	cacheQueue, err := cache.Open(ctx, config.Cache, logger)
	if err != nil {
		sqlQueue.Close()
		return nil, fmt.Errorf("failed to open distributed queue: %w", err)
	}

	coord := coordinator.New(cacheQueue.Client(), cacheQueue, logger)

	casClient := cas.NewClient(config.Clients.CAS.APIURL, config.Clients.CAS.PinataJWT,
		cas.WithLogger(logger),
		cas.WithTimeout(config.Clients.CAS.GetTimeout()),
	)

	llmClient := llm.NewClient(config.Clients.LLM.APIURL, config.Clients.LLM.APIKey, config.Clients.LLM.Model,
		llm.WithLogger(logger),
		llm.WithTimeout(config.Clients.LLM.GetTimeout()),
		llm.WithMaxTokens(config.Clients.LLM.MaxTokens),
	)

	crawler := httpcrawl.NewClient(
		httpcrawl.WithLogger(logger),
		httpcrawl.WithTimeout(config.Clients.HTTPCrawler.GetTimeout()),
		httpcrawl.WithUserAgent(config.Clients.HTTPCrawler.UserAgent),
		httpcrawl.WithMaxRedirects(config.Clients.HTTPCrawler.MaxRedirects),
	)

	var chainClient *chainrpc.Client
	var ethClient *ethclient.Client
	if config.Chain.RPCURL != "" {
		chainClient, err = chainrpc.Dial(ctx, config.Chain.RPCURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("chain RPC client unavailable, blockchain-index jobs will fail at dispatch")
		} else {
			ethClient, err = ethclient.DialContext(ctx, config.Chain.RPCURL)
			if err != nil {
				logger.Warn().Err(err).Msg("ethclient dial failed, credit/marketplace/timestamp clients unavailable")
			}
		}
	}

	var creditClient *credit.Client
	var marketplaceClient *marketplace.Client
	var timestampClient *timestamp.Client
	if ethClient != nil && config.Chain.CreditPrivateKey != "" {
		if creditClient, err = credit.NewClient(ethClient, config.Chain.CreditContractAddress, config.Chain.CreditPrivateKey, config.Chain.ChainID, logger); err != nil {
			logger.Warn().Err(err).Msg("credit ledger client unavailable, admission checks fail open")
		}
		if marketplaceClient, err = marketplace.NewClient(ethClient, config.Chain.MarketplaceAddress, config.Chain.CreditPrivateKey, config.Chain.ChainID, logger); err != nil {
			logger.Warn().Err(err).Msg("marketplace client unavailable")
		}
		if timestampClient, err = timestamp.NewClient(ethClient, config.Chain.TimestampRegistryAddr, config.Chain.CreditPrivateKey, config.Chain.ChainID, logger); err != nil {
			logger.Warn().Err(err).Msg("timestamp registry client unavailable")
		}
	}

	hub := server.NewJobWSHub(logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		SQLQueue:    sqlQueue,
		CacheQueue:  cacheQueue,
		Coordinator: coord,
		CAS:         casClient,
		LLM:         llmClient,
		Crawler:     crawler,
		Chain:       chainClient,
		eth:         ethClient,
		Credit:      creditClient,
		Marketplace: marketplaceClient,
		Timestamp:   timestampClient,
		Merkle:      merkle.New(),
		Hub:         hub,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("app initialized")

	return a, nil
}

// NewWorker builds the worker runtime for this app's QueueBackend, wiring
// the hub as the worker's EventSink so job transitions reach any connected
// server's WebSocket clients.
func (a *App) NewWorker() *worker.Worker {
	var source interfaces.JobSource
	switch a.Config.Worker.QueueBackend {
	case "cache":
		source = cachequeue.New(a.CacheQueue, a.Config.Worker.WorkerID, a.Config.Worker.GetPollInterval())
	default:
		source = sqlqueue.New(a.SQLQueue, a.Config.Worker.GetPollInterval())
	}

	return worker.New(worker.Deps{
		Source:      source,
		Index:       a.SQLQueue,
		Credit:      a.Credit,
		Crawler:     a.Crawler,
		Chain:       a.Chain,
		CAS:         a.CAS,
		LLM:         a.LLM,
		Merkle:      a.Merkle,
		Coordinator: a.Coordinator,
		Events:      a.Hub,
	}, a.Config.Worker, a.Logger)
}

// NewServer builds the thin HTTP adapter bound to this app's queues,
// coordinator, and credit ledger.
func (a *App) NewServer() *server.Server {
	return server.NewServer(server.Deps{
		Queue:       a.SQLQueue,
		Coordinator: a.Coordinator,
		Credit:      a.Credit,
		Index:       a.SQLQueue,
		Hub:         a.Hub,
	}, a.Config, a.Logger)
}

// Close releases every open connection the App holds.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Chain != nil {
		a.Chain.Close()
	}
	if a.eth != nil {
		a.eth.Close()
	}
	if a.CacheQueue != nil {
		a.CacheQueue.Close()
	}
	if a.SQLQueue != nil {
		a.SQLQueue.Close()
	}
}
