package sql

import (
	"database/sql"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

const (
	insertCrawlResultSQL = `
INSERT INTO crawl_results (id, job_id, url, status_code, content_hash, links, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertBlockchainEventSQL = `
INSERT INTO blockchain_events (id, job_id, chain, contract_address, event_name, block_number,
                                transaction_hash, event_index, event_data, content_hash, ipfs_cid)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (chain, transaction_hash, event_index) DO NOTHING`

	upsertCASObjectSQL = `
INSERT INTO ipfs_content (cid, content_hash, size_bytes, pinned, blockchain_event_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (cid) DO NOTHING`

	insertAIExtractionSQL = `
INSERT INTO ai_extractions (id, blockchain_event_id, extraction_type, schema_definition, extracted_data)
VALUES ($1, $2, $3, $4, $5)`

	insertTimestampCommitSQL = `
INSERT INTO timestamp_commits (content_hash, transaction_hash, block_number, committed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (content_hash) DO UPDATE SET
	transaction_hash = EXCLUDED.transaction_hash,
	block_number = EXCLUDED.block_number,
	committed_at = EXCLUDED.committed_at`

	getCreditAccountSQL = `
SELECT user_id, credit_balance, total_spent, on_chain_address FROM user_credits WHERE user_id = $1`

	upsertCreditAccountSQL = `
INSERT INTO user_credits (user_id, credit_balance, total_spent, on_chain_address)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET
	credit_balance = EXCLUDED.credit_balance,
	total_spent = EXCLUDED.total_spent,
	on_chain_address = EXCLUDED.on_chain_address`
)

// InsertCrawlResults batch-inserts the HttpCrawl pipeline's per-URL rows,
// matching the crawl_results table.
func (q *Queue) InsertCrawlResults(ctx context.Context, jobID string, results []models.CrawlResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "begin tx failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, r := range results {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		links, err := json.Marshal(r.Links)
		if err != nil {
			return common.WrapError(common.KindInputInvalid, "sql_index", "marshal links failed", err)
		}
		if _, err := tx.ExecContext(ctx, insertCrawlResultSQL, id, jobID, r.URL, r.StatusCode, r.ContentHash, links, now); err != nil {
			return common.WrapError(common.KindTransientExternal, "sql_index", "insert crawl_result failed", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "commit failed", err)
	}
	return nil
}

// InsertBlockchainEvent inserts one row, silently doing nothing on a
// (chain, transaction_hash, event_index) conflict — replaying a job with
// an identical filter must not double-insert.
func (q *Queue) InsertBlockchainEvent(ctx context.Context, event *models.BlockchainEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := q.db.ExecContext(ctx, insertBlockchainEventSQL,
		event.ID, event.JobID, event.Chain, event.ContractAddress, event.EventName, event.BlockNumber,
		event.TransactionHash, event.EventIndex, []byte(event.EventData), event.ContentHash, nullIfEmpty(event.IPFSCid))
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "insert blockchain_event failed", err)
	}
	return nil
}

// UpsertCASObject mirrors a CAS write into the non-authoritative SQL index,
// an "upsert on conflict-do-nothing" against the ipfs_content table.
func (q *Queue) UpsertCASObject(ctx context.Context, obj *models.CASObject, blockchainEventID string) error {
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, upsertCASObjectSQL,
		obj.Cid, obj.ContentHash, obj.SizeBytes, obj.Pinned, nullIfEmpty(blockchainEventID), obj.CreatedAt)
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "upsert ipfs_content failed", err)
	}
	return nil
}

// InsertAIExtraction records one LLM extractor result against its parent event.
func (q *Queue) InsertAIExtraction(ctx context.Context, ext *models.AIExtraction) error {
	if ext.ID == "" {
		ext.ID = uuid.NewString()
	}
	_, err := q.db.ExecContext(ctx, insertAIExtractionSQL,
		ext.ID, ext.BlockchainEventID, ext.ExtractionType, rawOrNull(ext.SchemaDefinition), []byte(ext.ExtractedData))
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "insert ai_extraction failed", err)
	}
	return nil
}

// InsertTimestampCommit appends (or refreshes) the on-chain registration log
// entry for a content hash.
func (q *Queue) InsertTimestampCommit(ctx context.Context, commit *models.TimestampCommit) error {
	if commit.CommittedAt.IsZero() {
		commit.CommittedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, insertTimestampCommitSQL,
		commit.ContentHash, commit.TransactionHash, commit.BlockNumber, commit.CommittedAt)
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "insert timestamp_commit failed", err)
	}
	return nil
}

// GetCreditAccount reads the optimistic local mirror of a user's on-chain
// balance.
func (q *Queue) GetCreditAccount(ctx context.Context, userID string) (*models.CreditAccount, error) {
	row := q.db.QueryRowContext(ctx, getCreditAccountSQL, userID)
	var account models.CreditAccount
	var balance, spent string
	var addr sql.NullString
	err := row.Scan(&account.UserID, &balance, &spent, &addr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewError(common.KindNotFound, "sql_index", "credit account not found")
	}
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_index", "get_credit_account failed", err)
	}
	account.CreditBalance = parseBigOrZero(balance)
	account.TotalSpent = parseBigOrZero(spent)
	account.OnChainAddress = addr.String
	return &account, nil
}

// UpsertCreditAccount refreshes the local mirror after a successful spend or
// purchase; callers must treat it as a best-effort hint, never authoritative.
func (q *Queue) UpsertCreditAccount(ctx context.Context, account *models.CreditAccount) error {
	balance := bigOrZero(account.CreditBalance)
	spent := bigOrZero(account.TotalSpent)
	_, err := q.db.ExecContext(ctx, upsertCreditAccountSQL,
		account.UserID, balance.String(), spent.String(), nullIfEmpty(account.OnChainAddress))
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_index", "upsert_credit_account failed", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func parseBigOrZero(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return n
}

func bigOrZero(n *big.Int) *big.Int {
	if n == nil {
		return big.NewInt(0)
	}
	return n
}

var _ interfaces.IndexStore = (*Queue)(nil)
