// Package router selects the best pool for a pair across a small set of
// deployers. Discovery is a linear scan; selection is either by in-range
// liquidity or by simulated output.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator"
)

var ErrNoPoolFound = errors.New("no pool found for pair")

// Router fans the pair out to each configured finder and picks a winner.
type Router struct {
	finders []algebra.PoolFinder
	logger  algebra.Logger
}

// New creates a Router over the given finders.
func New(logger algebra.Logger, finders ...algebra.PoolFinder) *Router {
	if logger == nil {
		logger = algebra.NopLogger{}
	}
	return &Router{finders: finders, logger: logger}
}

// BestPool returns the pool with the highest in-range liquidity for the
// pair. A finder failure is propagated; an empty result from every finder is
// ErrNoPoolFound.
func (r *Router) BestPool(ctx context.Context, tokenA, tokenB common.Address) (algebra.StateSource, error) {
	var (
		best          algebra.StateSource
		bestLiquidity *big.Int
	)

	for _, finder := range r.finders {
		pools, err := finder.FindPools(ctx, tokenA, tokenB)
		if err != nil {
			return nil, fmt.Errorf("find pools: %w", err)
		}
		for _, pool := range pools {
			state, err := pool.PoolState(ctx)
			if err != nil {
				return nil, fmt.Errorf("read pool state: %w", err)
			}
			if best == nil || state.Liquidity.Cmp(bestLiquidity) > 0 {
				best = pool
				bestLiquidity = state.Liquidity
			}
		}
	}

	if best == nil {
		return nil, ErrNoPoolFound
	}
	r.logger.Debug("selected pool by liquidity", "liquidity", bestLiquidity.String())
	return best, nil
}

// BestQuote simulates the swap on every candidate pool and returns the pool
// with the largest output together with that output. Pools whose simulation
// fails are skipped; they may simply lack liquidity for the size.
func (r *Router) BestQuote(
	ctx context.Context,
	tokenIn, tokenOut common.Address,
	amountIn *big.Int,
) (algebra.StateSource, *big.Int, error) {
	var (
		best    algebra.StateSource
		bestOut *big.Int
	)

	for _, finder := range r.finders {
		pools, err := finder.FindPools(ctx, tokenIn, tokenOut)
		if err != nil {
			return nil, nil, fmt.Errorf("find pools: %w", err)
		}
		for _, pool := range pools {
			out, err := calculator.QuoteSingle(ctx, pool, tokenIn, tokenOut, amountIn, nil)
			if err != nil {
				r.logger.Debug("skipping pool", "error", err)
				continue
			}
			if best == nil || out.Cmp(bestOut) > 0 {
				best = pool
				bestOut = out
			}
		}
	}

	if best == nil {
		return nil, nil, ErrNoPoolFound
	}
	return best, bestOut, nil
}
