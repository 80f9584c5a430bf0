package models

import (
	"encoding/json"
	"time"
)

// DistributedJob is the cache-queue form of a job. It shares the Job id
// space but is owned exclusively by the cache store while queued or
// processing, and is deleted on completion. UserID/EnableAIExtraction/
// ExtractionSchema mirror the same fields on Job so the worker dispatch
// loop can drive either queue backend through the identical HttpCrawl/
// BlockchainIndex pipelines without a backend-specific code path.
type DistributedJob struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	JobType            JobType         `json:"job_type"`
	Payload            json.RawMessage `json:"payload"`
	Priority           int             `json:"priority"`
	MaxRetries         int             `json:"max_retries"`
	RetryCount         int             `json:"retry_count"`
	CreatedAt          time.Time       `json:"created_at"`
	EnableAIExtraction bool            `json:"enable_ai_extraction"`
	ExtractionSchema   json.RawMessage `json:"extraction_schema,omitempty"`
}
