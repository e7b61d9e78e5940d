package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Options tunes RPC retries.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	opts      Options

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		opts:      opts,
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := withRetry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, func(ctx context.Context) error {
		var err error
		id, err = c.ethClient.ChainID(ctx)
		return err
	})
	return id, err
}

// LatestTimestamp returns the timestamp of the latest block.
func (c *Client) LatestTimestamp(ctx context.Context) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, func(ctx context.Context) error {
		header, err := c.ethClient.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		ts = header.Time
		return nil
	})
	return ts, err
}

// LatestBlockNumber returns the number of the chain head.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := withRetry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, func(ctx context.Context) error {
		var err error
		number, err = c.ethClient.BlockNumber(ctx)
		return err
	})
	return number, err
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	err := withRetry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, func(ctx context.Context) error {
		header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return err
		}
		ts = header.Time
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// CallContract performs an eth_call for a contract method. Reverts are
// returned immediately; transport errors are retried.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := withRetry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, func(ctx context.Context) error {
		var err error
		out, err = c.ethClient.CallContract(ctx, msg, blockNumber)
		if err != nil && IsRevert(err) {
			return permanent{err}
		}
		return err
	})
	return out, err
}

// Clock reads the chain's notion of now: the latest block, or a pinned one.
type Clock struct {
	client *Client
	block  uint64
}

// NewClock returns a clock at block, or at the chain head when block is 0.
func NewClock(client *Client, block uint64) *Clock {
	return &Clock{client: client, block: block}
}

func (c *Clock) Now(ctx context.Context) (uint64, error) {
	if c.block > 0 {
		return c.client.BlockTimestamp(ctx, c.block)
	}
	return c.client.LatestTimestamp(ctx)
}
