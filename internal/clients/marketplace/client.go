// Package marketplace implements interfaces.MarketplaceClient against the
// dataset marketplace contract, grounded on the same
// bind.BoundContract idiom as internal/clients/credit/client.go.
package marketplace

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
)

// Client implements interfaces.MarketplaceClient.
type Client struct {
	contract   *bind.BoundContract
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int
	logger     *common.Logger
}

// NewClient builds a marketplace client bound to contractAddress.
func NewClient(eth *ethclient.Client, contractAddress, privateKeyHex string, chainID int64, logger *common.Logger) (*Client, error) {
	if !ethcommon.IsHexAddress(contractAddress) {
		return nil, common.NewError(common.KindInputInvalid, "marketplace", "invalid contract address")
	}
	parsedABI, err := abi.JSON(strings.NewReader(marketplaceContractABI))
	if err != nil {
		return nil, common.WrapError(common.KindFatal, "marketplace", "parse abi failed", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, common.WrapError(common.KindInputInvalid, "marketplace", "invalid private key", err)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	address := ethcommon.HexToAddress(contractAddress)
	return &Client{
		contract:   bind.NewBoundContract(address, parsedABI, eth, eth, eth),
		privateKey: key,
		chainID:    big.NewInt(chainID),
		logger:     logger,
	}, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, common.WrapError(common.KindFatal, "marketplace", "build transactor failed", err)
	}
	opts.Context = ctx
	return opts, nil
}

// CreateListing calls createListing(cid, metadataUri, price) and returns the
// transaction hash once the transaction is sent. It does not wait for the
// transaction to mine and does not read back the new listing's id.
func (c *Client) CreateListing(ctx context.Context, cid, metadataURI string, price *big.Int) (string, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return "", err
	}
	tx, err := c.contract.Transact(opts, "createListing", cid, metadataURI, price)
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "marketplace", "createListing tx failed", err)
	}
	c.logger.Info().Str("tx_hash", tx.Hash().Hex()).Str("cid", cid).Msg("listing created")
	return tx.Hash().Hex(), nil
}

// PurchaseDataset calls purchaseDataset(id).
func (c *Client) PurchaseDataset(ctx context.Context, listingID string) (string, error) {
	id, ok := new(big.Int).SetString(listingID, 10)
	if !ok {
		return "", common.NewError(common.KindInputInvalid, "marketplace", "invalid listing id")
	}
	opts, err := c.transactor(ctx)
	if err != nil {
		return "", err
	}
	tx, err := c.contract.Transact(opts, "purchaseDataset", id)
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "marketplace", "purchaseDataset tx failed", err)
	}
	return tx.Hash().Hex(), nil
}

// GetListingDetails calls getListingDetails(id).
func (c *Client) GetListingDetails(ctx context.Context, listingID string) (*interfaces.ListingDetails, error) {
	id, ok := new(big.Int).SetString(listingID, 10)
	if !ok {
		return nil, common.NewError(common.KindInputInvalid, "marketplace", "invalid listing id")
	}
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getListingDetails", id); err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "marketplace", "getListingDetails call failed", err)
	}
	if len(out) != 4 {
		return nil, common.NewError(common.KindFatal, "marketplace", "unexpected getListingDetails return arity")
	}
	cid, _ := out[0].(string)
	metadataURI, _ := out[1].(string)
	price, _ := out[2].(*big.Int)
	seller, _ := out[3].(ethcommon.Address)

	return &interfaces.ListingDetails{
		ListingID:   listingID,
		Cid:         cid,
		MetadataURI: metadataURI,
		Price:       price,
		Seller:      seller.Hex(),
	}, nil
}

// SellerReputation calls sellerReputation(addr).
func (c *Client) SellerReputation(ctx context.Context, addr string) (uint64, error) {
	if !ethcommon.IsHexAddress(addr) {
		return 0, common.NewError(common.KindInputInvalid, "marketplace", "invalid address")
	}
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "sellerReputation", ethcommon.HexToAddress(addr)); err != nil {
		return 0, common.WrapError(common.KindTransientExternal, "marketplace", "sellerReputation call failed", err)
	}
	reputation, ok := out[0].(*big.Int)
	if !ok {
		return 0, common.NewError(common.KindFatal, "marketplace", "unexpected sellerReputation return type")
	}
	return reputation.Uint64(), nil
}

var _ interfaces.MarketplaceClient = (*Client)(nil)
