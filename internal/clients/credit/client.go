// Package credit implements interfaces.CreditLedger against the on-chain
// credit contract (creditBalance/purchaseCredits/
// spendCredits). Grounded on go-ethereum's own accounts/abi/bind package,
// the idiomatic way the ecosystem calls/transacts against an ABI when no
// generated Go binding exists for the contract (mirrors the bind.
// BoundContract usage go-ethereum's own abigen-generated code follows).
package credit

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

// Client implements interfaces.CreditLedger.
type Client struct {
	eth        *ethclient.Client
	contract   *bind.BoundContract
	address    ethcommon.Address
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int
	logger     *common.Logger
}

// NewClient builds a credit ledger client bound to contractAddress, signing
// transactions with privateKeyHex (a hex-encoded secp256k1 key, no 0x prefix
// required).
func NewClient(eth *ethclient.Client, contractAddress, privateKeyHex string, chainID int64, logger *common.Logger) (*Client, error) {
	if !ethcommon.IsHexAddress(contractAddress) {
		return nil, common.NewError(common.KindInputInvalid, "credit", "invalid contract address")
	}
	parsedABI, err := abi.JSON(strings.NewReader(creditContractABI))
	if err != nil {
		return nil, common.WrapError(common.KindFatal, "credit", "parse abi failed", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, common.WrapError(common.KindInputInvalid, "credit", "invalid private key", err)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	address := ethcommon.HexToAddress(contractAddress)
	return &Client{
		eth:        eth,
		contract:   bind.NewBoundContract(address, parsedABI, eth, eth, eth),
		address:    address,
		privateKey: key,
		chainID:    big.NewInt(chainID),
		logger:     logger,
	}, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, common.WrapError(common.KindFatal, "credit", "build transactor failed", err)
	}
	opts.Context = ctx
	return opts, nil
}

// GetBalance reads creditBalance(addr).
func (c *Client) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	if !ethcommon.IsHexAddress(addr) {
		return nil, common.NewError(common.KindInputInvalid, "credit", "invalid address")
	}
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "creditBalance", ethcommon.HexToAddress(addr)); err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "credit", "creditBalance call failed", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, common.NewError(common.KindFatal, "credit", "unexpected creditBalance return type")
	}
	return balance, nil
}

// PurchaseCredits calls purchaseCredits(amount) and blocks until the
// transaction is mined before returning its hash.
func (c *Client) PurchaseCredits(ctx context.Context, addr string, amount *big.Int) (string, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return "", err
	}
	tx, err := c.contract.Transact(opts, "purchaseCredits", amount)
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "credit", "purchaseCredits tx failed", err)
	}
	if _, err := bind.WaitMined(ctx, c.eth, tx); err != nil {
		return tx.Hash().Hex(), common.WrapError(common.KindTransientExternal, "credit", "purchaseCredits wait mined failed", err)
	}
	c.logger.Info().Str("tx_hash", tx.Hash().Hex()).Str("addr", addr).Msg("credits purchased")
	return tx.Hash().Hex(), nil
}

// SpendCredits calls spendCredits(addr, amount, reason) and blocks until the
// transaction is mined before returning its hash. Per the resolved open
// question, callers (the worker's fire-and-forget debit) still treat a
// failed or errored call as logged, not retried, and never block job
// completion on it — but the call itself only reports success once the
// debit has actually landed on chain.
func (c *Client) SpendCredits(ctx context.Context, addr string, amount *big.Int, reason string) (string, error) {
	if !ethcommon.IsHexAddress(addr) {
		return "", common.NewError(common.KindInputInvalid, "credit", "invalid address")
	}
	opts, err := c.transactor(ctx)
	if err != nil {
		return "", err
	}
	tx, err := c.contract.Transact(opts, "spendCredits", ethcommon.HexToAddress(addr), amount, reason)
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "credit", "spendCredits tx failed", err)
	}
	if _, err := bind.WaitMined(ctx, c.eth, tx); err != nil {
		return tx.Hash().Hex(), common.WrapError(common.KindTransientExternal, "credit", "spendCredits wait mined failed", err)
	}
	c.logger.Info().Str("tx_hash", tx.Hash().Hex()).Str("addr", addr).Str("reason", reason).Msg("credits spent")
	return tx.Hash().Hex(), nil
}

var _ interfaces.CreditLedger = (*Client)(nil)
