// Package timestamp implements interfaces.TimestampRegistry against the
// on-chain hash-commitment contract, grounded on the
// same bind.BoundContract idiom as internal/clients/credit/client.go.
package timestamp

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

// Client implements interfaces.TimestampRegistry.
type Client struct {
	eth        *ethclient.Client
	contract   *bind.BoundContract
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int
	logger     *common.Logger
}

// NewClient builds a timestamp registry client bound to contractAddress.
func NewClient(eth *ethclient.Client, contractAddress, privateKeyHex string, chainID int64, logger *common.Logger) (*Client, error) {
	if !ethcommon.IsHexAddress(contractAddress) {
		return nil, common.NewError(common.KindInputInvalid, "timestamp", "invalid contract address")
	}
	parsedABI, err := abi.JSON(strings.NewReader(timestampContractABI))
	if err != nil {
		return nil, common.WrapError(common.KindFatal, "timestamp", "parse abi failed", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, common.WrapError(common.KindInputInvalid, "timestamp", "invalid private key", err)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	address := ethcommon.HexToAddress(contractAddress)
	return &Client{
		eth:        eth,
		contract:   bind.NewBoundContract(address, parsedABI, eth, eth, eth),
		privateKey: key,
		chainID:    big.NewInt(chainID),
		logger:     logger,
	}, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, common.WrapError(common.KindFatal, "timestamp", "build transactor failed", err)
	}
	opts.Context = ctx
	return opts, nil
}

// CommitHash calls commitHash(contentHash) and waits for the transaction to
// mine so the caller gets back the block it landed in.
func (c *Client) CommitHash(ctx context.Context, contentHash [32]byte) (string, uint64, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return "", 0, err
	}
	tx, err := c.contract.Transact(opts, "commitHash", contentHash)
	if err != nil {
		return "", 0, common.WrapError(common.KindTransientExternal, "timestamp", "commitHash tx failed", err)
	}
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return tx.Hash().Hex(), 0, common.WrapError(common.KindTransientExternal, "timestamp", "commitHash wait mined failed", err)
	}
	c.logger.Info().Str("tx_hash", tx.Hash().Hex()).Int("block", int(receipt.BlockNumber.Int64())).Msg("hash committed")
	return tx.Hash().Hex(), receipt.BlockNumber.Uint64(), nil
}

// VerifyHash calls verifyHash(contentHash); a zero return means the hash
// was never committed.
func (c *Client) VerifyHash(ctx context.Context, contentHash [32]byte) (uint64, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "verifyHash", contentHash); err != nil {
		return 0, common.WrapError(common.KindTransientExternal, "timestamp", "verifyHash call failed", err)
	}
	blockNumber, ok := out[0].(*big.Int)
	if !ok {
		return 0, common.NewError(common.KindFatal, "timestamp", "unexpected verifyHash return type")
	}
	return blockNumber.Uint64(), nil
}

var _ interfaces.TimestampRegistry = (*Client)(nil)
