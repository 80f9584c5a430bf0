package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

// fakeQueue is a minimal in-memory interfaces.DurableQueue.
type fakeQueue struct {
	jobs       map[string]*models.Job
	nextID     int
	enqueueErr error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[string]*models.Job)}
}

func (f *fakeQueue) Enqueue(ctx context.Context, job *models.Job) (string, error) {
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	job.ID = id
	f.jobs[id] = job
	return id, nil
}

func (f *fakeQueue) Dequeue(ctx context.Context) (*models.Job, error) { return nil, nil }

func (f *fakeQueue) UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) error {
	return nil
}

func (f *fakeQueue) SetResultSummary(ctx context.Context, id string, summary json.RawMessage) error {
	return nil
}

func (f *fakeQueue) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, common.NewError(common.KindNotFound, "queue", "job not found")
	}
	return job, nil
}

func (f *fakeQueue) ListJobs(ctx context.Context, userID string, limit, offset int) ([]*models.Job, error) {
	var out []*models.Job
	for _, job := range f.jobs {
		if userID == "" || job.UserID == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

// fakeCoordinator is a minimal in-memory interfaces.Coordinator.
type fakeCoordinator struct {
	stats   interfaces.QueueStats
	statErr error
}

func (f *fakeCoordinator) RegisterWorker(ctx context.Context, workerID string) error { return nil }
func (f *fakeCoordinator) Heartbeat(ctx context.Context, workerID string) error      { return nil }
func (f *fakeCoordinator) GetActiveWorkers(ctx context.Context) ([]string, error)    { return nil, nil }

func (f *fakeCoordinator) GetQueueStats(ctx context.Context) (interfaces.QueueStats, error) {
	if f.statErr != nil {
		return interfaces.QueueStats{}, f.statErr
	}
	return f.stats, nil
}

// fakeCredit is a minimal in-memory interfaces.CreditLedger.
type fakeCredit struct {
	balances map[string]*big.Int
	err      error
}

func (f *fakeCredit) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	bal, ok := f.balances[addr]
	if !ok {
		return big.NewInt(0), nil
	}
	return bal, nil
}

func (f *fakeCredit) PurchaseCredits(ctx context.Context, addr string, amount *big.Int) (string, error) {
	return "", nil
}

func (f *fakeCredit) SpendCredits(ctx context.Context, addr string, amount *big.Int, reason string) (string, error) {
	return "", nil
}

// fakeIndex is a minimal in-memory interfaces.IndexStore, only the credit
// account lookups this package touches.
type fakeIndex struct {
	accounts map[string]*models.CreditAccount
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{accounts: make(map[string]*models.CreditAccount)}
}

func (f *fakeIndex) InsertCrawlResults(ctx context.Context, jobID string, results []models.CrawlResult) error {
	return nil
}
func (f *fakeIndex) InsertBlockchainEvent(ctx context.Context, event *models.BlockchainEvent) error {
	return nil
}
func (f *fakeIndex) UpsertCASObject(ctx context.Context, obj *models.CASObject, blockchainEventID string) error {
	return nil
}
func (f *fakeIndex) InsertAIExtraction(ctx context.Context, ext *models.AIExtraction) error {
	return nil
}
func (f *fakeIndex) InsertTimestampCommit(ctx context.Context, commit *models.TimestampCommit) error {
	return nil
}
func (f *fakeIndex) GetCreditAccount(ctx context.Context, userID string) (*models.CreditAccount, error) {
	acct, ok := f.accounts[userID]
	if !ok {
		return nil, nil
	}
	return acct, nil
}
func (f *fakeIndex) UpsertCreditAccount(ctx context.Context, account *models.CreditAccount) error {
	f.accounts[account.UserID] = account
	return nil
}
