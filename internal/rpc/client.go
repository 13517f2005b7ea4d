// Package rpc is a thin adapter over standard Ethereum JSON-RPC, the
// leaf dependency of the pipeline: eth_blockNumber, eth_getLogs,
// eth_getTransactionByHash, eth_getBlockByNumber, and eth_call for the
// handful of ERC-20/pair view functions the indexer needs. It wraps
// go-ethereum's ethclient with a rate limiter, the same role the
// teacher's flow/client.go gives its own multi-node client.
package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// Client wraps a single JSON-RPC endpoint. It is safe for concurrent use
// by the long-running tasks that share it, per the shared-resource model.
type Client struct {
	eth     *ethclient.Client
	limiter *rate.Limiter
}

// New dials rawURL and returns a rate-limited client. rps <= 0 disables
// limiting.
func New(ctx context.Context, rawURL string, rps float64) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rawURL, err)
	}
	c := &Client{eth: ethclient.NewClient(rc)}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// BlockNumber returns the chain head, i.e. eth_blockNumber.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.BlockNumber(ctx)
}

// FilterLogs performs eth_getLogs for the given query.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.FilterLogs(ctx, q)
}

// TransactionByHash performs eth_getTransactionByHash.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if err := c.wait(ctx); err != nil {
		return nil, false, err
	}
	return c.eth.TransactionByHash(ctx, hash)
}

// TransactionSender recovers the 'from' address of a transaction given
// the block it was mined in (needed for the Mint backfill's from_account).
func (c *Client) TransactionSender(ctx context.Context, tx *types.Transaction, blockHash common.Hash, index uint) (common.Address, error) {
	if err := c.wait(ctx); err != nil {
		return common.Address{}, err
	}
	return c.eth.TransactionSender(ctx, tx, blockHash, index)
}

// TransactionReceipt performs eth_getTransactionReceipt, the source of a
// transaction's mined block number/hash and index (neither is carried by
// the transaction body itself).
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.TransactionReceipt(ctx, hash)
}

// BlockByNumber performs eth_getBlockByNumber.
func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.BlockByNumber(ctx, number)
}

var (
	typeString  abi.Type
	typeUint8   abi.Type
	typeUint256 abi.Type
	typeUint112 abi.Type
)

func init() {
	typeString, _ = abi.NewType("string", "", nil)
	typeUint8, _ = abi.NewType("uint8", "", nil)
	typeUint256, _ = abi.NewType("uint256", "", nil)
	typeUint112, _ = abi.NewType("uint112", "", nil)
}

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func (c *Client) callView(ctx context.Context, target common.Address, sig string, out abi.Arguments) ([]interface{}, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	msg := ethereum.CallMsg{To: &target, Data: selector(sig)}
	raw, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s on %s: %w", sig, target.Hex(), err)
	}
	return out.Unpack(raw)
}

// Symbol calls the ERC-20 symbol() view function.
func (c *Client) Symbol(ctx context.Context, token common.Address) (string, error) {
	values, err := c.callView(ctx, token, "symbol()", abi.Arguments{{Type: typeString}})
	if err != nil {
		return "", err
	}
	s, _ := values[0].(string)
	return s, nil
}

// Decimals calls the ERC-20 decimals() view function.
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	values, err := c.callView(ctx, token, "decimals()", abi.Arguments{{Type: typeUint8}})
	if err != nil {
		return 0, err
	}
	d, _ := values[0].(uint8)
	return d, nil
}

// PriceCumulativeLast calls price0CumulativeLast()/price1CumulativeLast()
// and getReserves() (only its third return, blockTimestampLast) on a pair.
func (c *Client) PriceCumulativeLast(ctx context.Context, pair common.Address) (price0, price1 *big.Int, blockTimestampLast uint32, err error) {
	v0, err := c.callView(ctx, pair, "price0CumulativeLast()", abi.Arguments{{Type: typeUint256}})
	if err != nil {
		return nil, nil, 0, err
	}
	v1, err := c.callView(ctx, pair, "price1CumulativeLast()", abi.Arguments{{Type: typeUint256}})
	if err != nil {
		return nil, nil, 0, err
	}
	typeUint32, _ := abi.NewType("uint32", "", nil)
	reserves, err := c.callView(ctx, pair, "getReserves()", abi.Arguments{
		{Type: typeUint112}, {Type: typeUint112}, {Type: typeUint32},
	})
	if err != nil {
		return nil, nil, 0, err
	}
	p0, _ := v0[0].(*big.Int)
	p1, _ := v1[0].(*big.Int)
	ts, _ := reserves[2].(uint32)
	return p0, p1, ts, nil
}
