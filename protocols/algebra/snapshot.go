package algebra

import (
	"context"
	"errors"
	"math/big"
	"sort"
)

var ErrIncompleteSnapshot = errors.New("snapshot is missing liquidity or price")

// SnapshotSource is an in-memory StateSource over a PoolView plus its
// initialized ticks. It backs offline quoting and tests; the on-chain source
// in chains/ethereum serves the live case.
type SnapshotSource struct {
	pool  PoolView
	ticks []TickInfo // sorted by Index
}

// NewSnapshotSource copies the view and ticks and sorts the ticks by index.
func NewSnapshotSource(pool PoolView, ticks []TickInfo) (*SnapshotSource, error) {
	if pool.Liquidity == nil || pool.SqrtPriceX96 == nil {
		return nil, ErrIncompleteSnapshot
	}
	sorted := make([]TickInfo, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	return &SnapshotSource{pool: pool, ticks: sorted}, nil
}

// PoolState returns the snapshot view.
func (s *SnapshotSource) PoolState(context.Context) (PoolView, error) {
	return s.pool, nil
}

// Tick looks up one tick by binary search.
func (s *SnapshotSource) Tick(_ context.Context, index int64) (*big.Int, bool, error) {
	i := sort.Search(len(s.ticks), func(i int) bool { return s.ticks[i].Index >= index })
	if i < len(s.ticks) && s.ticks[i].Index == index {
		return new(big.Int).Set(s.ticks[i].LiquidityNet), true, nil
	}
	return nil, false, nil
}

// NextInitializedTick finds the nearest initialized tick at or below the
// input when lte is true, or strictly above it otherwise.
func (s *SnapshotSource) NextInitializedTick(_ context.Context, tick int64, lte bool) (int64, bool, error) {
	if len(s.ticks) == 0 {
		return 0, false, nil
	}

	if lte {
		// Smallest index with ticks[i].Index > tick; the answer sits just
		// before it.
		i := sort.Search(len(s.ticks), func(i int) bool { return s.ticks[i].Index > tick })
		if i == 0 {
			return 0, false, nil
		}
		return s.ticks[i-1].Index, true, nil
	}

	i := sort.Search(len(s.ticks), func(i int) bool { return s.ticks[i].Index > tick })
	if i >= len(s.ticks) {
		return 0, false, nil
	}
	return s.ticks[i].Index, true, nil
}
