package worker

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

// fakeSource is a minimal interfaces.JobSource recording the terminal call
// it received, enough to assert pipeline outcomes without a real queue.
type fakeSource struct {
	completed     []string
	failed        []string
	failedErr     error
	lastSummary   json.RawMessage
	summaryErr    error
}

func (f *fakeSource) Next(ctx context.Context) (*interfaces.WorkItem, error) { return nil, nil }

func (f *fakeSource) Complete(ctx context.Context, item *interfaces.WorkItem) error {
	f.completed = append(f.completed, item.ID)
	return nil
}

func (f *fakeSource) Fail(ctx context.Context, item *interfaces.WorkItem, err error) error {
	f.failed = append(f.failed, item.ID)
	f.failedErr = err
	return nil
}

func (f *fakeSource) WriteResultSummary(ctx context.Context, item *interfaces.WorkItem, summary json.RawMessage) error {
	f.lastSummary = summary
	return f.summaryErr
}

// fakeIndex is an in-memory interfaces.IndexStore.
type fakeIndex struct {
	crawlResults     map[string][]models.CrawlResult
	blockchainEvents []*models.BlockchainEvent
	casObjects       []*models.CASObject
	extractions      []*models.AIExtraction
	accounts         map[string]*models.CreditAccount
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		crawlResults: make(map[string][]models.CrawlResult),
		accounts:     make(map[string]*models.CreditAccount),
	}
}

func (f *fakeIndex) InsertCrawlResults(ctx context.Context, jobID string, results []models.CrawlResult) error {
	f.crawlResults[jobID] = append(f.crawlResults[jobID], results...)
	return nil
}

func (f *fakeIndex) InsertBlockchainEvent(ctx context.Context, event *models.BlockchainEvent) error {
	if event.ID == "" {
		event.ID = "event-id"
	}
	f.blockchainEvents = append(f.blockchainEvents, event)
	return nil
}

func (f *fakeIndex) UpsertCASObject(ctx context.Context, obj *models.CASObject, blockchainEventID string) error {
	f.casObjects = append(f.casObjects, obj)
	return nil
}

func (f *fakeIndex) InsertAIExtraction(ctx context.Context, ext *models.AIExtraction) error {
	f.extractions = append(f.extractions, ext)
	return nil
}

func (f *fakeIndex) InsertTimestampCommit(ctx context.Context, commit *models.TimestampCommit) error {
	return nil
}

func (f *fakeIndex) GetCreditAccount(ctx context.Context, userID string) (*models.CreditAccount, error) {
	account, ok := f.accounts[userID]
	if !ok {
		return nil, errNotFound
	}
	return account, nil
}

func (f *fakeIndex) UpsertCreditAccount(ctx context.Context, account *models.CreditAccount) error {
	f.accounts[account.UserID] = account
	return nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "not found" }

// fakeCrawler is a scripted interfaces.HTTPCrawler.
type fakeCrawler struct {
	result *models.CrawlResult
	links  []string
	err    error
}

func (f *fakeCrawler) Crawl(ctx context.Context, url string, maxPages int) (*models.CrawlResult, []string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.result, f.links, nil
}

// fakeChain is a scripted interfaces.ChainRPCClient.
type fakeChain struct {
	blockNumber uint64
	logs        []interfaces.RawLog
	err         error
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return f.blockNumber, nil
}

func (f *fakeChain) GetLogs(ctx context.Context, contractAddress, eventSignature string, fromBlock, toBlock uint64) ([]interfaces.RawLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.logs, nil
}

// fakeCAS is a scripted interfaces.CASClient.
type fakeCAS struct {
	addCalls  int
	pinCalls  int
	cidPrefix string
}

func (f *fakeCAS) Add(ctx context.Context, data []byte) (string, error) {
	f.addCalls++
	return "cid-fake", nil
}
func (f *fakeCAS) Cat(ctx context.Context, cid string) ([]byte, error) { return nil, nil }
func (f *fakeCAS) Pin(ctx context.Context, cid string) error           { f.pinCalls++; return nil }
func (f *fakeCAS) Unpin(ctx context.Context, cid string) error         { return nil }

// fakeLLM is a scripted interfaces.LLMExtractor.
type fakeLLM struct {
	extracted json.RawMessage
}

func (f *fakeLLM) Extract(ctx context.Context, eventData []byte, schema []byte) ([]byte, error) {
	return f.extracted, nil
}
func (f *fakeLLM) Summarize(ctx context.Context, content string, maxWords int) (string, error) {
	return "", nil
}
func (f *fakeLLM) Classify(ctx context.Context, content string, categories []string) (string, error) {
	return "", nil
}

// fakeMerkle is a deterministic interfaces.Merkle stand-in.
type fakeMerkle struct{}

func (fakeMerkle) HashContent(data []byte) string { return "hash-" + big.NewInt(int64(len(data))).String() }
func (fakeMerkle) BuildRoot(leaves []string) string { return "" }
func (fakeMerkle) GenerateProof(leaves []string, index int) ([]interfaces.ProofStep, error) {
	return nil, nil
}
func (fakeMerkle) VerifyProof(leaf string, proof []interfaces.ProofStep, root string) bool {
	return false
}

// fakeCredit is a scripted interfaces.CreditLedger.
type fakeCredit struct {
	spendCalls int
}

func (f *fakeCredit) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (f *fakeCredit) PurchaseCredits(ctx context.Context, addr string, amount *big.Int) (string, error) {
	return "", nil
}
func (f *fakeCredit) SpendCredits(ctx context.Context, addr string, amount *big.Int, reason string) (string, error) {
	f.spendCalls++
	return "0xtx", nil
}
