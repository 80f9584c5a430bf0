package interfaces

import (
	"context"

	"github.com/chronocoders/indexnode/internal/models"
)

// IndexStore persists the pipeline-written rows beyond the
// job queue itself: crawl results, blockchain events, the CAS index mirror,
// AI extractions, timestamp commits, and the credit-balance mirror.
type IndexStore interface {
	InsertCrawlResults(ctx context.Context, jobID string, results []models.CrawlResult) error
	InsertBlockchainEvent(ctx context.Context, event *models.BlockchainEvent) error
	UpsertCASObject(ctx context.Context, obj *models.CASObject, blockchainEventID string) error
	InsertAIExtraction(ctx context.Context, ext *models.AIExtraction) error
	InsertTimestampCommit(ctx context.Context, commit *models.TimestampCommit) error
	GetCreditAccount(ctx context.Context, userID string) (*models.CreditAccount, error)
	UpsertCreditAccount(ctx context.Context, account *models.CreditAccount) error
}
