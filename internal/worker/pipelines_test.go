package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

func newTestWorker(t *testing.T, source interfaces.JobSource, index interfaces.IndexStore, crawler interfaces.HTTPCrawler, chain interfaces.ChainRPCClient, cas interfaces.CASClient, llm interfaces.LLMExtractor) *Worker {
	t.Helper()
	return New(Deps{
		Source:  source,
		Index:   index,
		Crawler: crawler,
		Chain:   chain,
		CAS:     cas,
		LLM:     llm,
		Merkle:  fakeMerkle{},
	}, common.WorkerConfig{MaxConcurrentJobs: 1}, common.NewSilentLogger())
}

func TestRunHttpCrawl_HappyPathWritesOneResultAndSummary(t *testing.T) {
	src := &fakeSource{}
	idx := newFakeIndex()
	crawler := &fakeCrawler{
		result: &models.CrawlResult{URL: "https://example.com", StatusCode: 200, ContentHash: "h1"},
		links:  []string{"https://example.com/a", "https://example.com/b", "https://example.com/c", "https://example.com/d", "https://example.com/e"},
	}
	w := newTestWorker(t, src, idx, crawler, nil, nil, nil)

	cfg, _ := json.Marshal(models.HttpCrawlConfig{URL: "https://example.com", MaxPages: 5})
	item := &interfaces.WorkItem{ID: "job-1", Config: cfg}

	require.NoError(t, w.runHttpCrawl(context.Background(), item))

	rows := idx.crawlResults["job-1"]
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Links, 5)

	var summary models.CrawlResultSummary
	require.NoError(t, json.Unmarshal(src.lastSummary, &summary))
	assert.Equal(t, 5, summary.TotalLinks)
}

func TestRunHttpCrawl_MaxPagesZeroStillCompletesWithZeroLinks(t *testing.T) {
	src := &fakeSource{}
	idx := newFakeIndex()
	crawler := &fakeCrawler{
		result: &models.CrawlResult{URL: "https://example.com", StatusCode: 200, ContentHash: "h1"},
		links:  nil,
	}
	w := newTestWorker(t, src, idx, crawler, nil, nil, nil)

	cfg, _ := json.Marshal(models.HttpCrawlConfig{URL: "https://example.com", MaxPages: 0})
	item := &interfaces.WorkItem{ID: "job-2", Config: cfg}

	require.NoError(t, w.runHttpCrawl(context.Background(), item))

	rows := idx.crawlResults["job-2"]
	require.Len(t, rows, 1)

	var summary models.CrawlResultSummary
	require.NoError(t, json.Unmarshal(src.lastSummary, &summary))
	assert.Equal(t, 0, summary.TotalLinks)
}

func TestRunHttpCrawl_InvalidConfigIsInputInvalid(t *testing.T) {
	w := newTestWorker(t, &fakeSource{}, newFakeIndex(), &fakeCrawler{}, nil, nil, nil)
	item := &interfaces.WorkItem{ID: "job-3", Config: json.RawMessage(`{"url":""}`)}

	err := w.runHttpCrawl(context.Background(), item)
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestRunBlockchainIndex_TwoEventsNoAIExtraction(t *testing.T) {
	src := &fakeSource{}
	idx := newFakeIndex()
	chain := &fakeChain{
		blockNumber: 200,
		logs: []interfaces.RawLog{
			{BlockNumber: 100, TransactionHash: "0x1", EventName: "Transfer", EventData: []byte(`{"a":1}`)},
			{BlockNumber: 101, TransactionHash: "0x2", EventName: "Transfer", EventData: []byte(`{"a":2}`)},
		},
	}
	cas := &fakeCAS{}
	w := newTestWorker(t, src, idx, nil, chain, cas, nil)

	cfg, _ := json.Marshal(models.BlockchainIndexConfig{
		Chain: "ethereum", ContractAddress: "0xabc", Events: []string{"Transfer(address,address,uint256)"}, FromBlock: 1,
	})
	item := &interfaces.WorkItem{ID: "job-4", Config: cfg}

	require.NoError(t, w.runBlockchainIndex(context.Background(), item))

	assert.Len(t, idx.blockchainEvents, 2)
	assert.Len(t, idx.casObjects, 2)
	assert.Empty(t, idx.extractions)
	assert.Equal(t, 2, cas.addCalls)
	assert.Equal(t, 2, cas.pinCalls)
}

func TestRunBlockchainIndex_WithAIExtractionInsertsExtractions(t *testing.T) {
	src := &fakeSource{}
	idx := newFakeIndex()
	chain := &fakeChain{
		blockNumber: 200,
		logs: []interfaces.RawLog{
			{BlockNumber: 100, TransactionHash: "0x1", EventName: "Transfer", EventData: []byte(`{"a":1}`)},
		},
	}
	cas := &fakeCAS{}
	llm := &fakeLLM{extracted: json.RawMessage(`{"category":"transfer"}`)}
	w := newTestWorker(t, src, idx, nil, chain, cas, llm)

	cfg, _ := json.Marshal(models.BlockchainIndexConfig{
		Chain: "ethereum", ContractAddress: "0xabc", Events: []string{"Transfer(address,address,uint256)"}, FromBlock: 1,
	})
	item := &interfaces.WorkItem{
		ID: "job-5", Config: cfg,
		EnableAIExtraction: true, ExtractionSchema: json.RawMessage(`{"type":"object"}`),
	}

	require.NoError(t, w.runBlockchainIndex(context.Background(), item))
	assert.Len(t, idx.extractions, 1)
}

func TestRunBlockchainIndex_EmptyEventsFails(t *testing.T) {
	w := newTestWorker(t, &fakeSource{}, newFakeIndex(), nil, &fakeChain{}, nil, nil)
	cfg, _ := json.Marshal(models.BlockchainIndexConfig{Chain: "ethereum", ContractAddress: "0xabc", Events: nil, FromBlock: 1})
	item := &interfaces.WorkItem{ID: "job-6", Config: cfg}

	err := w.runBlockchainIndex(context.Background(), item)
	require.Error(t, err)
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestRunBlockchainIndex_NilToBlockResolvesFromChainHead(t *testing.T) {
	src := &fakeSource{}
	idx := newFakeIndex()
	chain := &fakeChain{blockNumber: 555}
	w := newTestWorker(t, src, idx, nil, chain, &fakeCAS{}, nil)

	cfg, _ := json.Marshal(models.BlockchainIndexConfig{
		Chain: "ethereum", ContractAddress: "0xabc", Events: []string{"Transfer(address,address,uint256)"}, FromBlock: 1, ToBlock: nil,
	})
	item := &interfaces.WorkItem{ID: "job-7", Config: cfg}

	require.NoError(t, w.runBlockchainIndex(context.Background(), item))

	var summary blockchainIndexSummary
	require.NoError(t, json.Unmarshal(src.lastSummary, &summary))
	assert.EqualValues(t, 555, summary.ToBlock)
}
