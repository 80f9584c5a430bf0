package sql

import "context"

// schemaSQL creates the durable-queue table and the index tables the
// worker pipelines write to. Migrate runs it; the tests call Migrate and
// no cmd/ entrypoint does. There is no external migration tool wired in,
// so a single
// idempotent DDL string is used, following the same inline-DDL
// style in storage/surrealdb/jobqueue.go.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	status               TEXT NOT NULL,
	priority             INT NOT NULL DEFAULT 0,
	job_type             TEXT NOT NULL,
	config               JSONB,
	created_at           TIMESTAMPTZ NOT NULL,
	scheduled_at         TIMESTAMPTZ,
	started_at           TIMESTAMPTZ,
	completed_at         TIMESTAMPTZ,
	retry_count          INT NOT NULL DEFAULT 0,
	max_retries          INT NOT NULL DEFAULT 3,
	error                TEXT NOT NULL DEFAULT '',
	result_summary       JSONB,
	enable_ai_extraction BOOLEAN NOT NULL DEFAULT FALSE,
	extraction_schema    JSONB
);

CREATE INDEX IF NOT EXISTS jobs_dequeue_idx ON jobs (status, priority DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS jobs_user_idx ON jobs (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS crawl_results (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL,
	url          TEXT NOT NULL,
	status_code  INT NOT NULL,
	content_hash TEXT NOT NULL,
	links        JSONB,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS crawl_results_job_idx ON crawl_results (job_id);

CREATE TABLE IF NOT EXISTS blockchain_events (
	id               TEXT PRIMARY KEY,
	job_id           TEXT NOT NULL,
	chain            TEXT NOT NULL,
	contract_address TEXT NOT NULL,
	event_name       TEXT NOT NULL,
	block_number     BIGINT NOT NULL,
	transaction_hash TEXT NOT NULL,
	event_index      INT NOT NULL,
	event_data       JSONB NOT NULL,
	content_hash     TEXT NOT NULL,
	ipfs_cid         TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS blockchain_events_unique_idx
	ON blockchain_events (chain, transaction_hash, event_index);

CREATE TABLE IF NOT EXISTS ipfs_content (
	cid                 TEXT PRIMARY KEY,
	content_hash        TEXT NOT NULL,
	size_bytes          BIGINT NOT NULL,
	pinned              BOOLEAN NOT NULL DEFAULT FALSE,
	blockchain_event_id TEXT,
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_extractions (
	id                  TEXT PRIMARY KEY,
	blockchain_event_id TEXT NOT NULL,
	extraction_type     TEXT NOT NULL,
	schema_definition   JSONB,
	extracted_data      JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS ai_extractions_event_idx ON ai_extractions (blockchain_event_id);

CREATE TABLE IF NOT EXISTS timestamp_commits (
	content_hash     TEXT PRIMARY KEY,
	transaction_hash TEXT NOT NULL,
	block_number     BIGINT NOT NULL,
	committed_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_credits (
	user_id          TEXT PRIMARY KEY,
	credit_balance   NUMERIC NOT NULL DEFAULT 0,
	total_spent      NUMERIC NOT NULL DEFAULT 0,
	on_chain_address TEXT
);
`

// Migrate applies the schema. Safe to call repeatedly.
func (q *Queue) Migrate(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, schemaSQL)
	return err
}
