// Package calculator walks the tick space of a concentrated-liquidity pool,
// applying the single-step price-movement math segment by segment until the
// requested amount is consumed or the price limit is reached. It simulates
// the on-chain swap algorithm exactly and mutates nothing.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/liquiditymath"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/pricemovement"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/tickmath"
)

// maxSwapIterations bounds the traversal loop. A healthy pool terminates in
// at most one iteration per initialized tick between the start price and the
// limit; hitting the cap means the tick layout is corrupt or adversarial.
const maxSwapIterations = 1 << 20

var (
	ErrInvalidAmount     = errors.New("amount specified must be nonzero")
	ErrInvalidPriceLimit = errors.New("price limit outside allowed range")
	ErrTokenMismatch     = errors.New("token is not part of the pool")
	ErrTooManyIterations = errors.New("tick traversal exceeded iteration limit")
	ErrEmptyPath         = errors.New("path must contain at least one hop")
)

// swapState carries the loop-local accumulator state plus reusable temporary
// variables. Instances are managed by a sync.Pool; a quote call owns one for
// its full duration and nothing outlives the call.
type swapState struct {
	amountSpecifiedRemaining *big.Int
	amountCalculated         *big.Int
	sqrtPriceX96             *big.Int
	tick                     int64
	liquidity                *big.Int

	sqrtPriceStartX96 *big.Int
	targetPrice       *big.Int
	stepInput         *big.Int
	stepOutput        *big.Int
	stepFee           *big.Int
	tempAmount        *big.Int
	liquidityNet      *big.Int
}

var swapStatePool = sync.Pool{
	New: func() any {
		return &swapState{
			amountSpecifiedRemaining: new(big.Int),
			amountCalculated:         new(big.Int),
			sqrtPriceX96:             new(big.Int),
			liquidity:                new(big.Int),
			sqrtPriceStartX96:        new(big.Int),
			targetPrice:              new(big.Int),
			stepInput:                new(big.Int),
			stepOutput:               new(big.Int),
			stepFee:                  new(big.Int),
			tempAmount:               new(big.Int),
			liquidityNet:             new(big.Int),
		}
	},
}

// Quote simulates a swap against the pool behind source. amountSpecified is
// signed: positive requests an exact input, negative an exact output. The
// returned deltas are signed from the pool's perspective; negative amounts
// leave the pool toward the caller. A nil priceLimitX96 defaults to the
// protocol bound for the direction.
func Quote(
	ctx context.Context,
	source algebra.StateSource,
	zeroToOne bool,
	amountSpecified *big.Int,
	priceLimitX96 *big.Int,
) (amount0, amount1 *big.Int, err error) {
	if amountSpecified == nil || amountSpecified.Sign() == 0 {
		return nil, nil, ErrInvalidAmount
	}

	pool, err := source.PoolState(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read pool state: %w", err)
	}

	priceLimitX96, err = checkPriceLimit(pool.SqrtPriceX96, priceLimitX96, zeroToOne)
	if err != nil {
		return nil, nil, err
	}

	state := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(state)

	state.amountSpecifiedRemaining.Set(amountSpecified)
	state.amountCalculated.SetInt64(0)
	state.sqrtPriceX96.Set(pool.SqrtPriceX96)
	state.tick = pool.Tick
	state.liquidity.Set(pool.Liquidity)

	if err := swap(ctx, state, source, pool.Fee, priceLimitX96, zeroToOne); err != nil {
		return nil, nil, err
	}

	consumed := new(big.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
	calculated := new(big.Int).Set(state.amountCalculated)
	exactInput := amountSpecified.Sign() > 0
	if zeroToOne == exactInput {
		return consumed, calculated, nil
	}
	return calculated, consumed, nil
}

// swap is the traversal state machine. Terminal when the remaining specified
// amount reaches zero or the price hits the limit; any collaborator or math
// failure is fatal and yields no partial result.
func swap(
	ctx context.Context,
	state *swapState,
	source algebra.StateSource,
	fee uint64,
	priceLimitX96 *big.Int,
	zeroToOne bool,
) error {
	exactInput := state.amountSpecifiedRemaining.Sign() > 0
	feePips := new(big.Int).SetUint64(fee)

	for iterations := 0; state.amountSpecifiedRemaining.Sign() != 0 && state.sqrtPriceX96.Cmp(priceLimitX96) != 0; iterations++ {
		if iterations >= maxSwapIterations {
			return ErrTooManyIterations
		}

		state.sqrtPriceStartX96.Set(state.sqrtPriceX96)

		tickNext, found, err := source.NextInitializedTick(ctx, state.tick, zeroToOne)
		if err != nil {
			return fmt.Errorf("next initialized tick: %w", err)
		}
		initialized := found
		if !found {
			// Nothing left in this direction; the protocol bound caps the
			// segment instead.
			if zeroToOne {
				tickNext = tickmath.MinTick
			} else {
				tickNext = tickmath.MaxTick
			}
		}
		if tickNext < tickmath.MinTick {
			tickNext = tickmath.MinTick
		} else if tickNext > tickmath.MaxTick {
			tickNext = tickmath.MaxTick
		}

		sqrtPriceNextX96, err := tickmath.SqrtRatioAtTick(tickNext)
		if err != nil {
			return err
		}

		if (zeroToOne && sqrtPriceNextX96.Cmp(priceLimitX96) < 0) ||
			(!zeroToOne && sqrtPriceNextX96.Cmp(priceLimitX96) > 0) {
			state.targetPrice.Set(priceLimitX96)
		} else {
			state.targetPrice.Set(sqrtPriceNextX96)
		}

		err = pricemovement.MovePriceTowardsTarget(
			state.sqrtPriceX96, state.stepInput, state.stepOutput, state.stepFee,
			zeroToOne,
			state.sqrtPriceStartX96,
			state.targetPrice,
			state.liquidity,
			state.amountSpecifiedRemaining,
			feePips,
		)
		if err != nil {
			return fmt.Errorf("price movement at tick %d: %w", state.tick, err)
		}

		if exactInput {
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, state.tempAmount.Add(state.stepInput, state.stepFee))
			state.amountCalculated.Sub(state.amountCalculated, state.stepOutput)
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, state.stepOutput)
			state.amountCalculated.Add(state.amountCalculated, state.tempAmount.Add(state.stepInput, state.stepFee))
		}

		if state.sqrtPriceX96.Cmp(sqrtPriceNextX96) == 0 {
			// The step landed exactly on the tick boundary: apply its
			// liquidity-net delta and move past it.
			if initialized {
				liquidityNet, ok, err := source.Tick(ctx, tickNext)
				if err != nil {
					return fmt.Errorf("read tick %d: %w", tickNext, err)
				}
				if ok {
					state.liquidityNet.Set(liquidityNet)
					if zeroToOne {
						state.liquidityNet.Neg(state.liquidityNet)
					}
					if err := liquiditymath.AddDelta(state.liquidity, state.liquidity, state.liquidityNet); err != nil {
						return fmt.Errorf("cross tick %d: %w", tickNext, err)
					}
				}
			}
			if zeroToOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if state.sqrtPriceX96.Cmp(state.sqrtPriceStartX96) != 0 {
			// Stopped mid-segment; recompute the tick from the price. This
			// path never runs when the boundary was exactly reached.
			state.tick, err = tickmath.TickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPriceLimit(current, limit *big.Int, zeroToOne bool) (*big.Int, error) {
	if limit == nil {
		if zeroToOne {
			return new(big.Int).Add(tickmath.MinSqrtRatio, big.NewInt(1)), nil
		}
		return new(big.Int).Sub(tickmath.MaxSqrtRatio, big.NewInt(1)), nil
	}
	if zeroToOne {
		if limit.Cmp(current) > 0 || limit.Cmp(tickmath.MinSqrtRatio) <= 0 {
			return nil, ErrInvalidPriceLimit
		}
	} else {
		if limit.Cmp(current) < 0 || limit.Cmp(tickmath.MaxSqrtRatio) >= 0 {
			return nil, ErrInvalidPriceLimit
		}
	}
	return limit, nil
}

// QuoteSingle quotes an exact-input swap between two tokens of one pool,
// deriving the direction from the pool's token ordering. A nil limit
// defaults to the protocol bound. Returns the output amount as a positive
// value.
func QuoteSingle(
	ctx context.Context,
	source algebra.StateSource,
	tokenIn, tokenOut common.Address,
	amountIn *big.Int,
	priceLimitX96 *big.Int,
) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	pool, err := source.PoolState(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pool state: %w", err)
	}

	zeroToOne := tokenIn == pool.Token0
	if zeroToOne {
		if tokenOut != pool.Token1 {
			return nil, fmt.Errorf("%w: %s", ErrTokenMismatch, tokenOut)
		}
	} else {
		if tokenIn != pool.Token1 || tokenOut != pool.Token0 {
			return nil, fmt.Errorf("%w: %s", ErrTokenMismatch, tokenIn)
		}
	}

	amount0, amount1, err := Quote(ctx, source, zeroToOne, amountIn, priceLimitX96)
	if err != nil {
		return nil, err
	}
	if zeroToOne {
		return new(big.Int).Neg(amount1), nil
	}
	return new(big.Int).Neg(amount0), nil
}

// Hop is one leg of a multi-hop path.
type Hop struct {
	Source   algebra.StateSource
	TokenIn  common.Address
	TokenOut common.Address
}

// QuotePath quotes a multi-hop swap, feeding each hop's output into the next
// hop's exact input.
func QuotePath(ctx context.Context, hops []Hop, amountIn *big.Int) (*big.Int, error) {
	if len(hops) == 0 {
		return nil, ErrEmptyPath
	}

	amount := amountIn
	for i, hop := range hops {
		out, err := QuoteSingle(ctx, hop.Source, hop.TokenIn, hop.TokenOut, amount, nil)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		amount = out
	}
	return amount, nil
}
