// Package chainrpc implements interfaces.ChainRPCClient against an
// EVM-compatible chain (ethclient.Dial, ethclient.BlockNumber/FilterLogs
// usage, Keccak256 topic hashing).
package chainrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
)

// Client implements interfaces.ChainRPCClient.
type Client struct {
	eth    *ethclient.Client
	logger *common.Logger
}

// Dial connects to an EVM JSON-RPC (or WebSocket JSON-RPC) endpoint.
func Dial(ctx context.Context, rpcURL string, logger *common.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "chainrpc", "dial failed", err)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Client{eth: eth, logger: logger}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, common.WrapError(common.KindTransientExternal, "chainrpc", "block_number failed", err)
	}
	return n, nil
}

type decodedLog struct {
	Topics []string `json:"topics"`
	Data   string   `json:"data"`
}

// GetLogs fetches logs emitted by contractAddress matching eventSignature
// (e.g. "Transfer(address,address,uint256)") within [fromBlock, toBlock].
// Every non-removed log whose topic0 matches eventSignature is returned; a
// call filters on that single event signature only.
func (c *Client) GetLogs(ctx context.Context, contractAddress string, eventSignature string, fromBlock, toBlock uint64) ([]interfaces.RawLog, error) {
	if !ethcommon.IsHexAddress(contractAddress) {
		return nil, common.NewError(common.KindInputInvalid, "chainrpc", fmt.Sprintf("invalid contract address %q", contractAddress))
	}
	address := ethcommon.HexToAddress(contractAddress)
	topic0 := crypto.Keccak256Hash([]byte(eventSignature))

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []ethcommon.Address{address},
		Topics:    [][]ethcommon.Hash{{topic0}},
	}

	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "chainrpc", "get_logs failed", err)
	}

	result := make([]interfaces.RawLog, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		topics := make([]string, len(lg.Topics))
		for i, t := range lg.Topics {
			topics[i] = t.Hex()
		}
		payload, err := json.Marshal(decodedLog{Topics: topics, Data: ethcommon.Bytes2Hex(lg.Data)})
		if err != nil {
			return nil, common.WrapError(common.KindFatal, "chainrpc", "marshal log failed", err)
		}

		result = append(result, interfaces.RawLog{
			BlockNumber:     lg.BlockNumber,
			TransactionHash: lg.TxHash.Hex(),
			LogIndex:        uint(lg.Index),
			EventName:       eventSignature,
			EventData:       payload,
		})
	}

	c.logger.Debug().Str("contract", contractAddress).Uint64("from", fromBlock).Uint64("to", toBlock).Int("count", len(result)).Msg("chain logs fetched")
	return result, nil
}

var _ interfaces.ChainRPCClient = (*Client)(nil)
