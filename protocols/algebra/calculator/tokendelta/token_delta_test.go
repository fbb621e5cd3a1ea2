package tokendelta

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/fullmath"
)

var (
	oneEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	twoQ96 = new(big.Int).Lsh(fullmath.Q96, 1)
)

func randomBelow(t *testing.T, max *big.Int) *big.Int {
	n, err := rand.Int(rand.Reader, max)
	require.NoError(t, err)
	return n
}

func TestToken0DeltaDoubling(t *testing.T) {
	// Doubling the price from 1 to 4 (sqrt 1 -> sqrt 2 in Q96 terms doubles the
	// raw value) releases exactly half the liquidity as token0.
	dest := new(big.Int)
	require.NoError(t, Token0Delta(dest, fullmath.Q96, twoQ96, oneEth, false))
	assert.Zero(t, dest.Cmp(new(big.Int).Div(oneEth, big.NewInt(2))))

	// The division is exact here, so rounding up gives the same amount.
	require.NoError(t, Token0Delta(dest, fullmath.Q96, twoQ96, oneEth, true))
	assert.Zero(t, dest.Cmp(new(big.Int).Div(oneEth, big.NewInt(2))))
}

func TestToken1DeltaDoubling(t *testing.T) {
	dest := new(big.Int)
	require.NoError(t, Token1Delta(dest, fullmath.Q96, twoQ96, oneEth, false))
	assert.Zero(t, dest.Cmp(oneEth))
}

func TestEqualPricesYieldZero(t *testing.T) {
	dest := big.NewInt(42)
	require.NoError(t, Token0Delta(dest, fullmath.Q96, fullmath.Q96, oneEth, true))
	assert.Zero(t, dest.Sign())

	dest.SetInt64(42)
	require.NoError(t, Token1Delta(dest, fullmath.Q96, fullmath.Q96, oneEth, true))
	assert.Zero(t, dest.Sign())
}

func TestInvalidRange(t *testing.T) {
	dest := new(big.Int)
	assert.ErrorIs(t, Token0Delta(dest, twoQ96, fullmath.Q96, oneEth, false), ErrInvalidRange)
	assert.ErrorIs(t, Token0Delta(dest, big.NewInt(0), fullmath.Q96, oneEth, false), ErrInvalidRange)
	assert.ErrorIs(t, Token1Delta(dest, twoQ96, fullmath.Q96, oneEth, false), ErrInvalidRange)
}

func TestRoundingNeverBelowFloor(t *testing.T) {
	for i := 0; i < 256; i++ {
		lower := new(big.Int).Add(randomBelow(t, fullmath.Q96), big.NewInt(1))
		upper := new(big.Int).Add(lower, randomBelow(t, fullmath.Q96))
		liquidity := new(big.Int).Add(randomBelow(t, oneEth), big.NewInt(1))

		down, up := new(big.Int), new(big.Int)
		require.NoError(t, Token0Delta(down, lower, upper, liquidity, false))
		require.NoError(t, Token0Delta(up, lower, upper, liquidity, true))
		assert.True(t, up.Cmp(down) >= 0)
		assert.True(t, new(big.Int).Sub(up, down).Cmp(big.NewInt(2)) <= 0)

		require.NoError(t, Token1Delta(down, lower, upper, liquidity, false))
		require.NoError(t, Token1Delta(up, lower, upper, liquidity, true))
		assert.True(t, up.Cmp(down) >= 0)
		assert.True(t, new(big.Int).Sub(up, down).Cmp(big.NewInt(1)) <= 0)
	}
}

func TestWiderIntervalNeverSmaller(t *testing.T) {
	for i := 0; i < 128; i++ {
		lower := new(big.Int).Add(randomBelow(t, fullmath.Q96), big.NewInt(1))
		mid := new(big.Int).Add(lower, randomBelow(t, fullmath.Q96))
		upper := new(big.Int).Add(mid, randomBelow(t, fullmath.Q96))
		liquidity := new(big.Int).Add(randomBelow(t, oneEth), big.NewInt(1))

		narrow, wide := new(big.Int), new(big.Int)
		require.NoError(t, Token0Delta(narrow, lower, mid, liquidity, false))
		require.NoError(t, Token0Delta(wide, lower, upper, liquidity, false))
		assert.True(t, wide.Cmp(narrow) >= 0)

		require.NoError(t, Token1Delta(narrow, lower, mid, liquidity, false))
		require.NoError(t, Token1Delta(wide, lower, upper, liquidity, false))
		assert.True(t, wide.Cmp(narrow) >= 0)
	}
}

func TestSignedDeltas(t *testing.T) {
	dest := new(big.Int)
	require.NoError(t, Token0DeltaSigned(dest, fullmath.Q96, twoQ96, oneEth))
	assert.True(t, dest.Sign() > 0)
	roundedUp := new(big.Int).Set(dest)

	negLiquidity := new(big.Int).Neg(oneEth)
	require.NoError(t, Token0DeltaSigned(dest, fullmath.Q96, twoQ96, negLiquidity))
	assert.True(t, dest.Sign() < 0)
	assert.True(t, new(big.Int).Neg(dest).Cmp(roundedUp) <= 0)

	require.NoError(t, Token1DeltaSigned(dest, fullmath.Q96, twoQ96, negLiquidity))
	assert.Zero(t, dest.Cmp(new(big.Int).Neg(oneEth)))
}
