package worker

import (
	"context"
	"encoding/json"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

func TestDispatch_UnknownJobTypeIsInputInvalid(t *testing.T) {
	w := newTestWorker(t, &fakeSource{}, newFakeIndex(), nil, nil, nil, nil)
	item := &interfaces.WorkItem{ID: "job-x", JobType: "unknown"}

	err := w.dispatch(context.Background(), item)
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestDebitCredits_FailedSpendNeverFailsTheJob(t *testing.T) {
	idx := newFakeIndex()
	idx.accounts["user-1"] = &models.CreditAccount{UserID: "user-1", OnChainAddress: "0xabc"}
	w := newTestWorker(t, &fakeSource{}, idx, nil, nil, nil, nil)
	w.credit = &erroringCredit{}

	// debitCredits logs and returns; it has no error return to assert on,
	// so the absence of a panic/block is the behavior under test.
	w.debitCredits(context.Background(), "user-1", models.CrawlJobCost, "test")
}

// nextOnceSource returns a single item once, then blocks until ctx is
// cancelled, matching JobSource.Next's documented contract closely enough
// to drive one iteration of the dispatch loop deterministically.
type nextOnceSource struct {
	item    *interfaces.WorkItem
	served  int32
	summary atomic.Value
}

func (s *nextOnceSource) Next(ctx context.Context) (*interfaces.WorkItem, error) {
	if atomic.CompareAndSwapInt32(&s.served, 0, 1) {
		return s.item, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *nextOnceSource) Complete(ctx context.Context, item *interfaces.WorkItem) error {
	s.summary.Store("completed")
	return nil
}

func (s *nextOnceSource) Fail(ctx context.Context, item *interfaces.WorkItem, err error) error {
	s.summary.Store("failed")
	return nil
}

func (s *nextOnceSource) WriteResultSummary(ctx context.Context, item *interfaces.WorkItem, summary json.RawMessage) error {
	return nil
}

func TestStartStop_DrivesOneJobThroughToCompletion(t *testing.T) {
	cfg, _ := json.Marshal(models.HttpCrawlConfig{URL: "https://example.com", MaxPages: 1})
	src := &nextOnceSource{item: &interfaces.WorkItem{ID: "job-1", JobType: models.JobTypeHttpCrawl, Config: cfg}}
	crawler := &fakeCrawler{result: &models.CrawlResult{URL: "https://example.com", StatusCode: 200, ContentHash: "h1"}}

	w := New(Deps{Source: src, Index: newFakeIndex(), Crawler: crawler, Merkle: fakeMerkle{}},
		common.WorkerConfig{MaxConcurrentJobs: 1}, common.NewSilentLogger())

	w.Start()
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := src.summary.Load().(string); ok && v == "completed" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected job to reach Complete within the deadline")
}

type erroringCredit struct{}

func (erroringCredit) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	return nil, common.NewError(common.KindTransientExternal, "credit_test", "unavailable")
}
func (erroringCredit) PurchaseCredits(ctx context.Context, addr string, amount *big.Int) (string, error) {
	return "", nil
}
func (erroringCredit) SpendCredits(ctx context.Context, addr string, amount *big.Int, reason string) (string, error) {
	return "", common.NewError(common.KindTransientExternal, "credit_test", "spend failed")
}
