package interfaces

import (
	"context"
	"math/big"

	"github.com/chronocoders/indexnode/internal/models"
)

// CASClient puts/gets/pins blobs addressed by content hash.
type CASClient interface {
	Add(ctx context.Context, data []byte) (cid string, err error)
	Cat(ctx context.Context, cid string) ([]byte, error)
	Pin(ctx context.Context, cid string) error
	Unpin(ctx context.Context, cid string) error
}

// ChainRPCClient fetches event logs and the current block height.
type ChainRPCClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, contractAddress string, eventSignature string, fromBlock, toBlock uint64) ([]RawLog, error)
}

// RawLog is a decoded chain log ready to become a models.BlockchainEvent.
type RawLog struct {
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint
	EventName       string
	EventData       []byte // JSON-encoded decoded event fields
}

// CreditLedger reads and debits on-chain credit balances.
type CreditLedger interface {
	GetBalance(ctx context.Context, addr string) (*big.Int, error)
	PurchaseCredits(ctx context.Context, addr string, amount *big.Int) (txHash string, err error)
	SpendCredits(ctx context.Context, addr string, amount *big.Int, reason string) (txHash string, err error)
}

// MarketplaceClient creates/purchases dataset listings.
type MarketplaceClient interface {
	CreateListing(ctx context.Context, cid, metadataURI string, price *big.Int) (txHash string, err error)
	PurchaseDataset(ctx context.Context, listingID string) (txHash string, err error)
	GetListingDetails(ctx context.Context, listingID string) (*ListingDetails, error)
	SellerReputation(ctx context.Context, addr string) (uint64, error)
}

// ListingDetails is the marketplace contract's read-side listing view.
type ListingDetails struct {
	ListingID   string
	Cid         string
	MetadataURI string
	Price       *big.Int
	Seller      string
}

// TimestampRegistry commits content hashes on-chain and verifies them.
type TimestampRegistry interface {
	CommitHash(ctx context.Context, contentHash [32]byte) (txHash string, blockNumber uint64, err error)
	VerifyHash(ctx context.Context, contentHash [32]byte) (blockNumber uint64, err error)
}

// HTTPCrawler fetches one URL and extracts its http(s) outbound links.
type HTTPCrawler interface {
	Crawl(ctx context.Context, url string, maxPages int) (*models.CrawlResult, []string, error)
}

// LLMExtractor performs prompted structured extraction / summary / classification.
type LLMExtractor interface {
	Extract(ctx context.Context, eventData []byte, schema []byte) (json []byte, err error)
	Summarize(ctx context.Context, content string, maxWords int) (string, error)
	Classify(ctx context.Context, content string, categories []string) (string, error)
}

// Merkle hashes content and builds/verifies Merkle proofs.
type Merkle interface {
	HashContent(data []byte) string // hex-encoded SHA-256
	BuildRoot(leaves []string) string
	GenerateProof(leaves []string, index int) ([]ProofStep, error)
	VerifyProof(leaf string, proof []ProofStep, root string) bool
}

// ProofStep is one sibling hash plus its position. VerifyProof uses only
// Hash, since it hashes each pair in sorted order; IsRight is not read there.
type ProofStep struct {
	Hash    string
	IsRight bool
}
