// Package worker runs the dispatch loop: dequeue a
// job through a backend-agnostic interfaces.JobSource, run it through the
// HttpCrawl or BlockchainIndex pipeline, and report completion or failure
// back through the same source.
// Panic recovery, dequeue-execute-complete shaping, and a heavy-job
// semaphore are generalized from a prior market-data job runner's two
// pipelines, plus a heartbeat loop registering with
// the coordinator, which a single-process job runner would have no need of.
package worker

import (
	"context"
	"fmt"
	"math/big"
	"runtime/debug"
	"sync"
	"time"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

// Worker drives one JobSource through the HttpCrawl/BlockchainIndex
// pipelines with a fixed-size pool of concurrent dispatch goroutines.
type Worker struct {
	source      interfaces.JobSource
	index       interfaces.IndexStore
	credit      interfaces.CreditLedger
	crawler     interfaces.HTTPCrawler
	chain       interfaces.ChainRPCClient
	cas         interfaces.CASClient
	llm         interfaces.LLMExtractor
	merkle      interfaces.Merkle
	coordinator interfaces.Coordinator
	events      EventSink
	config      common.WorkerConfig
	logger      *common.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// EventSink receives a JobEvent on every dispatch-loop transition. The thin
// HTTP adapter's WebSocket hub implements this to fan job status out to
// connected clients; nil skips broadcasting entirely.
type EventSink interface {
	Publish(event models.JobEvent)
}

// Deps bundles the leaf clients and stores a Worker dispatches jobs
// against. llm and coordinator may be nil: AI extraction is then skipped
// per-job rather than failing, and heartbeats are simply not sent.
type Deps struct {
	Source      interfaces.JobSource
	Index       interfaces.IndexStore
	Credit      interfaces.CreditLedger
	Crawler     interfaces.HTTPCrawler
	Chain       interfaces.ChainRPCClient
	CAS         interfaces.CASClient
	LLM         interfaces.LLMExtractor
	Merkle      interfaces.Merkle
	Coordinator interfaces.Coordinator
	Events      EventSink
}

// New builds a Worker from its dependencies and config.
func New(deps Deps, config common.WorkerConfig, logger *common.Logger) *Worker {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Worker{
		source:      deps.Source,
		index:       deps.Index,
		credit:      deps.Credit,
		crawler:     deps.Crawler,
		chain:       deps.Chain,
		cas:         deps.CAS,
		llm:         deps.LLM,
		merkle:      deps.Merkle,
		coordinator: deps.Coordinator,
		events:      deps.Events,
		config:      config,
		logger:      logger,
	}
}

// safeGo launches a goroutine with panic recovery and logging, matching
// jobmanager.JobManager.safeGo.
func (w *Worker) safeGo(name string, fn func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("recovered from panic in worker goroutine")
			}
		}()
		fn()
	}()
}

// Start launches the heartbeat loop (if a coordinator is configured) and the
// dispatch pool. Safe to call once; call Stop before calling Start again.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	if w.coordinator != nil && w.config.WorkerID != "" {
		w.safeGo("heartbeat", func() { w.heartbeatLoop(ctx) })
	}

	concurrency := w.config.GetMaxConcurrentJobs()
	for i := 0; i < concurrency; i++ {
		name := fmt.Sprintf("dispatch-%d", i)
		w.safeGo(name, func() { w.dispatchLoop(ctx) })
	}

	w.logger.Info().
		Str("worker_id", w.config.WorkerID).
		Int("concurrency", concurrency).
		Msg("worker started")
}

// Stop cancels all loops and waits for them to return.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.wg.Wait()
	w.logger.Info().Str("worker_id", w.config.WorkerID).Msg("worker stopped")
}

// heartbeatLoop registers once, then refreshes the liveness key on every
// tick, the worker-side half of the coordinator contract.
func (w *Worker) heartbeatLoop(ctx context.Context) {
	if err := w.coordinator.RegisterWorker(ctx, w.config.WorkerID); err != nil {
		w.logger.Warn().Str("worker_id", w.config.WorkerID).Err(err).Msg("register_worker failed")
	}

	interval := w.config.GetHeartbeatInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.coordinator.Heartbeat(ctx, w.config.WorkerID); err != nil {
				w.logger.Warn().Str("worker_id", w.config.WorkerID).Err(err).Msg("heartbeat failed")
			}
		}
	}
}

// dispatchLoop implements the job state machine: Idle -> Dequeuing ->
// {got a job, none, error} -> Dispatching -> {ok, err} -> Idle.
func (w *Worker) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn().Err(err).Msg("dequeue error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if item == nil {
			continue // queue empty; Next already slept out the poll interval
		}

		w.publish(models.JobEventStarted, item)

		start := time.Now()
		execErr := w.dispatch(ctx, item)
		duration := time.Since(start)

		if execErr != nil {
			w.logger.Warn().
				Str("job_id", item.ID).
				Str("job_type", string(item.JobType)).
				Dur("duration", duration).
				Err(execErr).
				Msg("job failed")
			if err := w.source.Fail(ctx, item, execErr); err != nil {
				w.logger.Warn().Str("job_id", item.ID).Err(err).Msg("fail transition failed")
			}
			w.publish(models.JobEventFailed, item)
			continue
		}

		w.logger.Debug().
			Str("job_id", item.ID).
			Str("job_type", string(item.JobType)).
			Dur("duration", duration).
			Msg("job completed")
		if err := w.source.Complete(ctx, item); err != nil {
			w.logger.Warn().Str("job_id", item.ID).Err(err).Msg("complete transition failed")
		}
		w.publish(models.JobEventCompleted, item)
	}
}

// publish fans a work item's transition out to the configured EventSink,
// synthesizing a display Job from the WorkItem since a distributed job has
// no *models.Job of its own.
func (w *Worker) publish(eventType models.JobEventType, item *interfaces.WorkItem) {
	if w.events == nil {
		return
	}
	job := item.DurableJob
	if job == nil {
		job = &models.Job{
			ID:                 item.ID,
			UserID:             item.UserID,
			JobType:            item.JobType,
			Config:             item.Config,
			EnableAIExtraction: item.EnableAIExtraction,
			ExtractionSchema:   item.ExtractionSchema,
		}
	}
	w.events.Publish(models.JobEvent{
		Type:      eventType,
		Job:       job,
		Timestamp: time.Now().UTC(),
	})
}

// dispatch routes a work item to its pipeline by job type, matching
// jobmanager.executeJob's switch-dispatch shape.
func (w *Worker) dispatch(ctx context.Context, item *interfaces.WorkItem) error {
	switch item.JobType {
	case models.JobTypeHttpCrawl:
		return w.runHttpCrawl(ctx, item)
	case models.JobTypeBlockchainIndex:
		return w.runBlockchainIndex(ctx, item)
	default:
		return common.NewError(common.KindInputInvalid, "worker", fmt.Sprintf("unknown job type: %s", item.JobType))
	}
}

// debitCredits spends cost from the user's on-chain balance and logs rather
// than fails the job on error, per the resolved open question:
// credit debit is fire-and-forget and never blocks pipeline completion.
func (w *Worker) debitCredits(ctx context.Context, userID string, cost *big.Int, reason string) {
	if w.credit == nil || w.index == nil || userID == "" {
		return
	}
	account, err := w.index.GetCreditAccount(ctx, userID)
	if err != nil || account.OnChainAddress == "" {
		w.logger.Warn().Str("user_id", userID).Msg("no on-chain address on file, skipping debit")
		return
	}
	if _, err := w.credit.SpendCredits(ctx, account.OnChainAddress, cost, reason); err != nil {
		w.logger.Warn().Str("user_id", userID).Str("reason", reason).Err(err).Msg("credit debit failed")
	}
}
