package liquiditymath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDelta(t *testing.T) {
	dest := new(big.Int)

	require.NoError(t, AddDelta(dest, big.NewInt(100), big.NewInt(-40)))
	assert.Zero(t, dest.Cmp(big.NewInt(60)))

	require.NoError(t, AddDelta(dest, big.NewInt(100), big.NewInt(40)))
	assert.Zero(t, dest.Cmp(big.NewInt(140)))

	require.NoError(t, AddDelta(dest, big.NewInt(100), big.NewInt(-100)))
	assert.Zero(t, dest.Sign())
}

func TestAddDeltaUnderflow(t *testing.T) {
	dest := new(big.Int)
	assert.ErrorIs(t, AddDelta(dest, big.NewInt(100), big.NewInt(-101)), ErrLiquidityUnderflow)
}

func TestAddDeltaOverflow(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	dest := new(big.Int)

	require.NoError(t, AddDelta(dest, max, big.NewInt(0)))
	assert.Zero(t, dest.Cmp(max))

	assert.ErrorIs(t, AddDelta(dest, max, big.NewInt(1)), ErrLiquidityOverflow)
}
