// Package ethereum implements the quoter's read-only collaborators against a
// live EVM chain: pool state, per-tick data, tick-bitmap scanning and pool
// discovery, all through eth_call at an optionally pinned block.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra"
)

// DefaultFeeTiers are the canonical factory fee tiers probed during pool
// discovery, in hundredths of a basis point.
var DefaultFeeTiers = []uint64{100, 500, 3000, 10000}

// Client wraps go-ethereum RPC and provides pool read helpers.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	logger    algebra.Logger
	metrics   *metrics

	poolABI    abi.ABI
	factoryABI abi.ABI
}

// NewClient dials the RPC URL. The registerer may be nil when metrics are
// not wanted.
func NewClient(ctx context.Context, rpcURL string, logger algebra.Logger, registerer prometheus.Registerer) (*Client, error) {
	if logger == nil {
		logger = algebra.NopLogger{}
	}
	poolABI, factoryABI, err := loadABIs()
	if err != nil {
		return nil, fmt.Errorf("parse abis: %w", err)
	}

	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		logger:     logger,
		metrics:    newMetrics(registerer),
		poolABI:    poolABI,
		factoryABI: factoryABI,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// LatestBlockNumber returns the latest block number, typically used to pin
// pool sources to one block for snapshot consistency.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

func (c *Client) call(ctx context.Context, contractABI abi.ABI, to common.Address, blockNumber *big.Int, method string, args ...any) ([]any, error) {
	c.metrics.calls.WithLabelValues(method).Inc()

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		c.metrics.errors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.ethClient.CallContract(ctx, goethereum.CallMsg{To: &to, Data: data}, blockNumber)
	if err != nil {
		c.metrics.errors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := contractABI.Unpack(method, raw)
	if err != nil {
		c.metrics.errors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// PoolSource binds the client to one pool at an optionally pinned block and
// implements algebra.StateSource. A nil block number reads the latest state,
// which is only snapshot-consistent within a single call.
func (c *Client) PoolSource(pool common.Address, blockNumber *big.Int) *PoolSource {
	return &PoolSource{client: c, address: pool, blockNumber: blockNumber}
}

// PoolSource reads one pool's state over RPC.
type PoolSource struct {
	client      *Client
	address     common.Address
	blockNumber *big.Int

	// The immutable pool parameters are fetched once.
	metaOnce    sync.Once
	metaErr     error
	token0      common.Address
	token1      common.Address
	fee         uint64
	tickSpacing int64
}

// Address returns the pool's contract address.
func (p *PoolSource) Address() common.Address {
	return p.address
}

func (p *PoolSource) loadMeta(ctx context.Context) error {
	p.metaOnce.Do(func() {
		values, err := p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "token0")
		if err != nil {
			p.metaErr = err
			return
		}
		p.token0 = values[0].(common.Address)

		values, err = p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "token1")
		if err != nil {
			p.metaErr = err
			return
		}
		p.token1 = values[0].(common.Address)

		values, err = p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "fee")
		if err != nil {
			p.metaErr = err
			return
		}
		p.fee = values[0].(*big.Int).Uint64()

		values, err = p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "tickSpacing")
		if err != nil {
			p.metaErr = err
			return
		}
		p.tickSpacing = values[0].(*big.Int).Int64()
	})
	return p.metaErr
}

// PoolState implements algebra.StateSource.
func (p *PoolSource) PoolState(ctx context.Context) (algebra.PoolView, error) {
	if err := p.loadMeta(ctx); err != nil {
		return algebra.PoolView{}, err
	}

	values, err := p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "slot0")
	if err != nil {
		return algebra.PoolView{}, err
	}
	sqrtPriceX96 := values[0].(*big.Int)
	tick := values[1].(*big.Int).Int64()

	values, err = p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "liquidity")
	if err != nil {
		return algebra.PoolView{}, err
	}
	liquidity := values[0].(*big.Int)

	return algebra.PoolView{
		Address:      p.address,
		Token0:       p.token0,
		Token1:       p.token1,
		Fee:          p.fee,
		TickSpacing:  p.tickSpacing,
		Tick:         tick,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPriceX96,
	}, nil
}

// Tick implements algebra.StateSource.
func (p *PoolSource) Tick(ctx context.Context, index int64) (*big.Int, bool, error) {
	values, err := p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "ticks", big.NewInt(index))
	if err != nil {
		return nil, false, err
	}
	liquidityNet := values[1].(*big.Int)
	initialized := values[7].(bool)
	return liquidityNet, initialized, nil
}

// NextInitializedTick implements algebra.StateSource by scanning tick-bitmap
// words outward from the current position.
func (p *PoolSource) NextInitializedTick(ctx context.Context, tick int64, lte bool) (int64, bool, error) {
	if err := p.loadMeta(ctx); err != nil {
		return 0, false, err
	}
	return scanBitmapWords(ctx, tick, p.tickSpacing, lte, func(ctx context.Context, wordPos int16) (*big.Int, error) {
		values, err := p.client.call(ctx, p.client.poolABI, p.address, p.blockNumber, "tickBitmap", wordPos)
		if err != nil {
			return nil, err
		}
		return values[0].(*big.Int), nil
	})
}

// Factory locates pools on one deployer by probing its fee tiers. It
// implements algebra.PoolFinder.
type Factory struct {
	client      *Client
	address     common.Address
	blockNumber *big.Int
	feeTiers    []uint64
}

// Factory binds a factory contract. With no tiers given the canonical ones
// are probed.
func (c *Client) Factory(address common.Address, blockNumber *big.Int, feeTiers ...uint64) *Factory {
	if len(feeTiers) == 0 {
		feeTiers = DefaultFeeTiers
	}
	return &Factory{client: c, address: address, blockNumber: blockNumber, feeTiers: feeTiers}
}

// FindPools implements algebra.PoolFinder.
func (f *Factory) FindPools(ctx context.Context, tokenA, tokenB common.Address) ([]algebra.StateSource, error) {
	var pools []algebra.StateSource
	for _, tier := range f.feeTiers {
		values, err := f.client.call(ctx, f.client.factoryABI, f.address, f.blockNumber, "getPool",
			tokenA, tokenB, new(big.Int).SetUint64(tier))
		if err != nil {
			return nil, err
		}
		pool := values[0].(common.Address)
		if pool == (common.Address{}) {
			continue
		}
		f.client.logger.Debug("found pool", "pair", tokenA.Hex()+"/"+tokenB.Hex(), "fee", tier, "pool", pool.Hex())
		pools = append(pools, f.client.PoolSource(pool, f.blockNumber))
	}
	return pools, nil
}
