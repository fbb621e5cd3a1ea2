package algebra

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateSource is the calculator's window onto one pool. Implementations must
// answer from a single consistent snapshot for the duration of a quote call;
// the calculator performs no retries, so a read failure aborts the quote.
type StateSource interface {
	// PoolState returns the pool's current price, tick, fee, liquidity and
	// tick spacing.
	PoolState(ctx context.Context) (PoolView, error)

	// Tick returns the liquidity-net delta of the given tick and whether the
	// tick is initialized.
	Tick(ctx context.Context, index int64) (liquidityNet *big.Int, initialized bool, err error)

	// NextInitializedTick returns the nearest initialized tick at or below
	// tick when lte is true, or strictly above tick otherwise. When no such
	// tick exists, found is false and the calculator clamps to the protocol
	// tick bounds.
	NextInitializedTick(ctx context.Context, tick int64, lte bool) (next int64, found bool, err error)
}

// PoolFinder locates the pools that trade a given pair. One finder per
// deployer; the router scans a small list of them.
type PoolFinder interface {
	FindPools(ctx context.Context, tokenA, tokenB common.Address) ([]StateSource, error)
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
