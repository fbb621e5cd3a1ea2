package pricemovement

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/fullmath"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/tokendelta"
)

var oneEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func randomBelow(t *testing.T, max *big.Int) *big.Int {
	n, err := rand.Int(rand.Reader, max)
	require.NoError(t, err)
	return n
}

func TestNewPriceZeroAmountIsNoOp(t *testing.T) {
	dest := new(big.Int)
	require.NoError(t, NewPrice(dest, fullmath.Q96, oneEth, big.NewInt(0), true, true))
	assert.Zero(t, dest.Cmp(fullmath.Q96))

	require.NoError(t, NewPrice(dest, fullmath.Q96, oneEth, big.NewInt(0), false, false))
	assert.Zero(t, dest.Cmp(fullmath.Q96))
}

func TestNewPricePreconditions(t *testing.T) {
	dest := new(big.Int)
	err := NewPrice(dest, big.NewInt(0), oneEth, big.NewInt(1), true, true)
	assert.ErrorIs(t, err, ErrPriceZero)

	err = NewPrice(dest, fullmath.Q96, big.NewInt(0), big.NewInt(1), true, true)
	assert.ErrorIs(t, err, ErrLiquidityZero)
}

func TestNewPriceDirections(t *testing.T) {
	amount := big.NewInt(1_000_000)
	dest := new(big.Int)

	require.NoError(t, NewPrice(dest, fullmath.Q96, oneEth, amount, true, true))
	assert.True(t, dest.Cmp(fullmath.Q96) < 0, "token0 in lowers the price")

	require.NoError(t, NewPrice(dest, fullmath.Q96, oneEth, amount, false, true))
	assert.True(t, dest.Cmp(fullmath.Q96) > 0, "token1 in raises the price")

	require.NoError(t, NewPrice(dest, fullmath.Q96, oneEth, amount, true, false))
	assert.True(t, dest.Cmp(fullmath.Q96) < 0, "token1 out lowers the price")

	require.NoError(t, NewPrice(dest, fullmath.Q96, oneEth, amount, false, false))
	assert.True(t, dest.Cmp(fullmath.Q96) > 0, "token0 out raises the price")
}

func TestNewPriceToken1RoundTrip(t *testing.T) {
	// Raising the price with token1 in, then asking for the same token1 back
	// out, lands at most one rounding unit below the starting price.
	amount := big.NewInt(123_456_789)
	up, back := new(big.Int), new(big.Int)

	require.NoError(t, NewPrice(up, fullmath.Q96, oneEth, amount, false, true))
	require.NoError(t, NewPrice(back, up, oneEth, amount, true, false))

	diff := new(big.Int).Sub(fullmath.Q96, back)
	assert.True(t, diff.Sign() >= 0)
	assert.True(t, diff.Cmp(big.NewInt(1)) <= 0)
}

func TestNewPriceToken0RoundTrip(t *testing.T) {
	amount := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	down, back := new(big.Int), new(big.Int)

	require.NoError(t, NewPrice(down, fullmath.Q96, oneEth, amount, true, true))
	require.NoError(t, NewPrice(back, down, oneEth, amount, false, false))

	diff := new(big.Int).Sub(back, fullmath.Q96)
	diff.Abs(diff)
	assert.True(t, diff.Cmp(big.NewInt(2)) <= 0)
}

func TestNewPriceUnderflow(t *testing.T) {
	dest := new(big.Int)
	err := NewPrice(dest, fullmath.Q96, big.NewInt(1), big.NewInt(2), true, false)
	assert.ErrorIs(t, err, ErrPriceUnderflow)
}

func TestNewPriceOverflow(t *testing.T) {
	dest := new(big.Int)

	// Draining more token0 than the segment holds.
	err := NewPrice(dest, fullmath.Q96, big.NewInt(1), big.NewInt(2), false, false)
	assert.ErrorIs(t, err, ErrPriceOverflow)

	// Pushing the price past the uint160 range with token1 in.
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	err = NewPrice(dest, fullmath.MaxUint160, big.NewInt(1), huge, false, true)
	assert.ErrorIs(t, err, ErrPriceOverflow)
}

func TestMovePricePreconditions(t *testing.T) {
	result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)

	err := MovePriceTowardsTarget(result, input, output, fee, true,
		big.NewInt(0), fullmath.Q96, oneEth, big.NewInt(1), big.NewInt(3000))
	assert.ErrorIs(t, err, ErrPriceZero)

	err = MovePriceTowardsTarget(result, input, output, fee, true,
		fullmath.Q96, fullmath.Q96, big.NewInt(0), big.NewInt(1), big.NewInt(3000))
	assert.ErrorIs(t, err, ErrLiquidityZero)

	err = MovePriceTowardsTarget(result, input, output, fee, true,
		fullmath.Q96, fullmath.Q96, oneEth, big.NewInt(1), FeeDenominator)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestMovePriceExactInputReachesTarget(t *testing.T) {
	current := new(big.Int).Set(fullmath.Q96)
	target := new(big.Int).Sub(current, new(big.Int).Div(current, big.NewInt(100)))
	liquidity := new(big.Int).Set(oneEth)
	available := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	feePips := big.NewInt(3000)

	result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	require.NoError(t, MovePriceTowardsTarget(result, input, output, fee, true,
		current, target, liquidity, available, feePips))

	assert.Zero(t, result.Cmp(target))

	wantInput := new(big.Int)
	require.NoError(t, tokendelta.Token0Delta(wantInput, target, current, liquidity, true))
	assert.Zero(t, input.Cmp(wantInput))

	wantOutput := new(big.Int)
	require.NoError(t, tokendelta.Token1Delta(wantOutput, target, current, liquidity, false))
	assert.Zero(t, output.Cmp(wantOutput))

	feeComplement := new(big.Int).Sub(FeeDenominator, feePips)
	wantFee, err := fullmath.MulDivRoundingUp(input, feePips, feeComplement)
	require.NoError(t, err)
	assert.Zero(t, fee.Cmp(wantFee))
}

func TestMovePriceExactInputPartial(t *testing.T) {
	current := new(big.Int).Set(fullmath.Q96)
	target := new(big.Int).Rsh(current, 1)
	liquidity := new(big.Int).Set(oneEth)
	available := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	feePips := big.NewInt(3000)

	result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	require.NoError(t, MovePriceTowardsTarget(result, input, output, fee, true,
		current, target, liquidity, available, feePips))

	assert.True(t, result.Cmp(target) > 0)
	assert.True(t, result.Cmp(current) < 0)

	// Everything available is accounted for, to the wei.
	spent := new(big.Int).Add(input, fee)
	assert.Zero(t, spent.Cmp(available))

	wantOutput := new(big.Int)
	require.NoError(t, tokendelta.Token1Delta(wantOutput, result, current, liquidity, false))
	assert.Zero(t, output.Cmp(wantOutput))
}

func TestMovePriceDustInputBecomesFee(t *testing.T) {
	// One wei in at a 0.3% fee leaves nothing after the fee cut, so the price
	// does not move and the whole wei is collected as fee.
	current := new(big.Int).Set(fullmath.Q96)
	target := new(big.Int).Rsh(current, 1)

	result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	require.NoError(t, MovePriceTowardsTarget(result, input, output, fee, true,
		current, target, oneEth, big.NewInt(1), big.NewInt(3000)))

	assert.Zero(t, result.Cmp(current))
	assert.Zero(t, input.Sign())
	assert.Zero(t, output.Sign())
	assert.Zero(t, fee.Cmp(big.NewInt(1)))
}

func TestMovePriceExactOutputReachesTarget(t *testing.T) {
	current := new(big.Int).Set(fullmath.Q96)
	target := new(big.Int).Sub(current, new(big.Int).Div(current, big.NewInt(1000)))
	liquidity := new(big.Int).Set(oneEth)
	available := new(big.Int).Neg(new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil))
	feePips := big.NewInt(500)

	result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	require.NoError(t, MovePriceTowardsTarget(result, input, output, fee, true,
		current, target, liquidity, available, feePips))

	assert.Zero(t, result.Cmp(target))

	wantOutput := new(big.Int)
	require.NoError(t, tokendelta.Token1Delta(wantOutput, target, current, liquidity, false))
	assert.Zero(t, output.Cmp(wantOutput))

	feeComplement := new(big.Int).Sub(FeeDenominator, feePips)
	wantFee, err := fullmath.MulDivRoundingUp(input, feePips, feeComplement)
	require.NoError(t, err)
	assert.Zero(t, fee.Cmp(wantFee))
}

func TestMovePriceExactOutputCapped(t *testing.T) {
	current := new(big.Int).Set(fullmath.Q96)
	target := new(big.Int).Rsh(current, 1)
	liquidity := new(big.Int).Set(oneEth)
	requested := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	available := new(big.Int).Neg(requested)

	result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	require.NoError(t, MovePriceTowardsTarget(result, input, output, fee, true,
		current, target, liquidity, available, big.NewInt(3000)))

	// The step stops short of the target and never pays out more than asked.
	assert.True(t, result.Cmp(target) > 0)
	assert.True(t, output.Cmp(requested) <= 0)
	assert.True(t, input.Sign() > 0)
	assert.True(t, fee.Sign() > 0)
}

func TestMovePriceInvariants(t *testing.T) {
	bound128 := new(big.Int).Lsh(big.NewInt(1), 128)
	bound100 := new(big.Int).Lsh(big.NewInt(1), 100)

	for i := 0; i < 500; i++ {
		priceA := new(big.Int).Add(randomBelow(t, bound128), big.NewInt(1))
		priceB := new(big.Int).Add(randomBelow(t, bound128), big.NewInt(1))
		liquidity := new(big.Int).Add(randomBelow(t, bound100), big.NewInt(1))
		amount := randomBelow(t, bound100)
		feePips := randomBelow(t, FeeDenominator)

		current, target := priceA, priceB
		zeroToOne := current.Cmp(target) >= 0

		exactInput := i%2 == 0
		available := new(big.Int).Set(amount)
		if !exactInput {
			available.Neg(available)
		}

		result, input, output, fee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
		err := MovePriceTowardsTarget(result, input, output, fee, zeroToOne,
			current, target, liquidity, available, feePips)
		if err != nil {
			continue
		}

		// The price never overshoots the target or moves against the trade.
		if zeroToOne {
			assert.True(t, result.Cmp(target) >= 0)
			assert.True(t, result.Cmp(current) <= 0)
		} else {
			assert.True(t, result.Cmp(target) <= 0)
			assert.True(t, result.Cmp(current) >= 0)
		}

		if exactInput {
			spent := new(big.Int).Add(input, fee)
			assert.True(t, spent.Cmp(amount) <= 0, "spend exceeds the available amount")
		} else {
			assert.True(t, output.Cmp(amount) <= 0, "payout exceeds the requested amount")
		}

		// fee / input is never below the nominal fee rate.
		feeComplement := new(big.Int).Sub(FeeDenominator, feePips)
		lhs := new(big.Int).Mul(fee, feeComplement)
		rhs := new(big.Int).Mul(input, feePips)
		assert.True(t, lhs.Cmp(rhs) >= 0)
	}
}
