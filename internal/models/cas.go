package models

import "time"

// CASObject is keyed by cid (content-addressed identifier). Immutable once
// written; the SQL row (`ipfs_content`) is a non-authoritative index over
// the CAS, which remains the source of truth for the bytes themselves.
type CASObject struct {
	Cid         string    `json:"cid"`
	ContentHash string    `json:"content_hash"` // SHA-256 over the raw bytes, hex
	SizeBytes   int64     `json:"size_bytes"`
	Pinned      bool      `json:"pinned"`
	CreatedAt   time.Time `json:"created_at"`
}

// TimestampCommit is keyed by content_hash; append-only log of successful
// on-chain registrations against the timestamp-registry contract.
type TimestampCommit struct {
	ContentHash     string    `json:"content_hash"`
	TransactionHash string    `json:"transaction_hash"`
	BlockNumber     uint64    `json:"block_number"`
	CommittedAt     time.Time `json:"committed_at"`
}
