package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

// blockchainIndexSummary is the ResultSummary payload for a completed
// BlockchainIndex job.
type blockchainIndexSummary struct {
	EventsIndexed int       `json:"events_indexed"`
	ToBlock       uint64    `json:"to_block"`
	CompletedAt   time.Time `json:"completed_at"`
}

// runBlockchainIndex implements the BlockchainIndex pipeline:
// resolve the block range, fetch logs for the first configured event, pin
// each log's canonical payload into CAS, index it, and optionally extract
// structured data with the LLM.
func (w *Worker) runBlockchainIndex(ctx context.Context, item *interfaces.WorkItem) error {
	var cfg models.BlockchainIndexConfig
	if err := json.Unmarshal(item.Config, &cfg); err != nil {
		return common.WrapError(common.KindInputInvalid, "worker", "invalid blockchain_index config", err)
	}
	if len(cfg.Events) == 0 {
		return common.NewError(common.KindInputInvalid, "worker", "No events specified")
	}
	if w.chain == nil {
		return common.NewError(common.KindFatal, "worker", "no ChainRPCClient configured")
	}

	toBlock := cfg.ToBlock
	if toBlock == nil {
		head, err := w.chain.BlockNumber(ctx)
		if err != nil {
			return err
		}
		toBlock = &head
	}

	w.debitCredits(ctx, item.UserID, models.EventIndexCost, "blockchain_index:"+item.ID)

	// Per the resolved open question, only events[0] is fetched;
	// additional configured event names are accepted but not queried.
	logs, err := w.chain.GetLogs(ctx, cfg.ContractAddress, cfg.Events[0], cfg.FromBlock, *toBlock)
	if err != nil {
		return err
	}

	for _, lg := range logs {
		if err := w.indexOneLog(ctx, item, cfg, lg); err != nil {
			return err
		}
	}

	summary, err := json.Marshal(blockchainIndexSummary{
		EventsIndexed: len(logs),
		ToBlock:       *toBlock,
		CompletedAt:   time.Now().UTC(),
	})
	if err != nil {
		return common.WrapError(common.KindFatal, "worker", "marshal blockchain summary failed", err)
	}
	return w.source.WriteResultSummary(ctx, item, summary)
}

// indexOneLog content-addresses one log's event data, pins it in CAS,
// records the blockchain_events/ipfs_content rows, and runs AI extraction
// when the job requested it.
func (w *Worker) indexOneLog(ctx context.Context, item *interfaces.WorkItem, cfg models.BlockchainIndexConfig, lg interfaces.RawLog) error {
	contentHash := w.hashContent(lg.EventData)

	event := &models.BlockchainEvent{
		JobID:           item.ID,
		Chain:           cfg.Chain,
		ContractAddress: cfg.ContractAddress,
		EventName:       lg.EventName,
		BlockNumber:     lg.BlockNumber,
		TransactionHash: lg.TransactionHash,
		EventIndex:      lg.LogIndex,
		EventData:       json.RawMessage(lg.EventData),
		ContentHash:     contentHash,
	}

	if w.cas != nil {
		cid, err := w.cas.Add(ctx, lg.EventData)
		if err != nil {
			return err
		}
		if err := w.cas.Pin(ctx, cid); err != nil {
			return err
		}
		event.IPFSCid = cid
	}

	if w.index != nil {
		if err := w.index.InsertBlockchainEvent(ctx, event); err != nil {
			return err
		}
		if event.IPFSCid != "" {
			obj := &models.CASObject{
				Cid:         event.IPFSCid,
				ContentHash: contentHash,
				SizeBytes:   int64(len(lg.EventData)),
				Pinned:      true,
			}
			if err := w.index.UpsertCASObject(ctx, obj, event.ID); err != nil {
				return err
			}
		}
	}

	if item.EnableAIExtraction && len(item.ExtractionSchema) > 0 {
		if err := w.extractEvent(ctx, event, item.ExtractionSchema); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) hashContent(data []byte) string {
	if w.merkle != nil {
		return w.merkle.HashContent(data)
	}
	return ""
}

// extractEvent runs the configured LLM extraction over one event's data and
// persists the structured result.
func (w *Worker) extractEvent(ctx context.Context, event *models.BlockchainEvent, schema json.RawMessage) error {
	if w.llm == nil {
		w.logger.Warn().Str("event_id", event.ID).Msg("ai extraction requested but no LLMExtractor configured")
		return nil
	}
	extracted, err := w.llm.Extract(ctx, event.EventData, schema)
	if err != nil {
		return err
	}
	if w.index == nil {
		return nil
	}
	return w.index.InsertAIExtraction(ctx, &models.AIExtraction{
		BlockchainEventID: event.ID,
		ExtractionType:    "structured",
		SchemaDefinition:  schema,
		ExtractedData:     extracted,
	})
}
