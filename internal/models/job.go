// Package models holds the core data types shared across the queue, worker,
// coordinator, and thin HTTP adapter.
package models

import (
	"encoding/json"
	"time"
)

// Job is a unit of work owned exclusively by the durable SQL queue.
type Job struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Status      JobStatus       `json:"status"`
	Priority    int             `json:"priority"` // 0-100, higher = sooner
	JobType     JobType         `json:"job_type"`
	Config      json.RawMessage `json:"config"` // opaque job_type-specific parameters
	CreatedAt   time.Time       `json:"created_at"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	Error       string          `json:"error,omitempty"`
	ResultSummary json.RawMessage `json:"result_summary,omitempty"`

	EnableAIExtraction bool            `json:"enable_ai_extraction"`
	ExtractionSchema   json.RawMessage `json:"extraction_schema,omitempty"`
}

// JobStatus is the Job lifecycle state. Transitions are monotonic:
// Pending -> Queued -> Processing -> {Completed, Failed}. No transition
// leaves a terminal state.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status allows no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobType tags which pipeline a Job's Config should be dispatched to.
type JobType string

const (
	JobTypeHttpCrawl      JobType = "http_crawl"
	JobTypeBlockchainIndex JobType = "blockchain_index"
)

// HttpCrawlConfig is the Config payload for a JobTypeHttpCrawl job.
type HttpCrawlConfig struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

// BlockchainIndexConfig is the Config payload for a JobTypeBlockchainIndex job.
type BlockchainIndexConfig struct {
	Chain           string   `json:"chain"`
	ContractAddress string   `json:"contract_address"`
	Events          []string `json:"events"`
	FromBlock       uint64   `json:"from_block"`
	ToBlock         *uint64  `json:"to_block,omitempty"`
}

// CrawlResultSummary is the ResultSummary payload written by the HttpCrawl pipeline.
type CrawlResultSummary struct {
	TotalLinks  int       `json:"total_links"`
	CompletedAt time.Time `json:"completed_at"`
}
