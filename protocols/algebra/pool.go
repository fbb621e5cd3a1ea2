// Package algebra defines the read-only view of an Algebra/Uniswap-V3-style
// concentrated-liquidity pool and the collaborator interfaces the swap
// calculator consumes. Nothing in this package mutates pool state.
package algebra

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolView is a snapshot of the pool fields a quote needs. All quotes against
// one view see a single consistent state; the underlying pool may have moved
// on by the time the result is used.
type PoolView struct {
	Address      common.Address `json:"address"`
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	Fee          uint64         `json:"fee"` // hundredths of a basis point
	TickSpacing  int64          `json:"tickSpacing"`
	Tick         int64          `json:"tick"`
	Liquidity    *big.Int       `json:"liquidity"`
	SqrtPriceX96 *big.Int       `json:"sqrtPriceX96"`
}

// TickInfo is the per-tick state a quote needs: the signed change in active
// liquidity when the price crosses the tick. Presence of a TickInfo implies
// the tick is initialized.
type TickInfo struct {
	Index        int64    `json:"index"`
	LiquidityNet *big.Int `json:"liquidityNet"`
}
