// Package tokendelta converts a price interval plus a liquidity amount into
// the token amounts that correspond to moving the price across the interval.
// Rounding direction is always explicit; the pool never credits more than it
// should, so removal rounds down and addition rounds up.
package tokendelta

import (
	"errors"
	"math/big"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/fullmath"
)

// ErrInvalidRange is returned when the price interval is unordered or the
// lower bound is not strictly positive. The zero lower bound that would
// otherwise divide by zero lands here as well.
var ErrInvalidRange = errors.New("invalid price range")

// Token0Delta writes liquidity * (1/priceLower - 1/priceUpper), expressed as a
// token0 amount, into dest. Requires priceUpper >= priceLower > 0; an equal
// pair yields zero.
//
// The two-stage division mulDiv(mulDiv(delta, L<<96, upper), 1, lower)
// preserves full precision and must not be reordered.
func Token0Delta(dest, priceLower, priceUpper, liquidity *big.Int, roundUp bool) error {
	if priceLower.Sign() <= 0 || priceUpper.Cmp(priceLower) < 0 {
		return ErrInvalidRange
	}

	priceDelta := new(big.Int).Sub(priceUpper, priceLower)
	liquidityShifted := new(big.Int).Lsh(liquidity, fullmath.Resolution)

	if roundUp {
		term, err := fullmath.MulDivRoundingUp(liquidityShifted, priceDelta, priceUpper)
		if err != nil {
			return err
		}
		result, err := fullmath.DivRoundingUp(term, priceLower)
		if err != nil {
			return err
		}
		dest.Set(result)
		return nil
	}

	term, err := fullmath.MulDiv(liquidityShifted, priceDelta, priceUpper)
	if err != nil {
		return err
	}
	dest.Div(term, priceLower)
	return nil
}

// Token1Delta writes liquidity * (priceUpper - priceLower) / Q96 into dest as
// a token1 amount. Requires priceUpper >= priceLower.
func Token1Delta(dest, priceLower, priceUpper, liquidity *big.Int, roundUp bool) error {
	if priceUpper.Cmp(priceLower) < 0 {
		return ErrInvalidRange
	}

	priceDelta := new(big.Int).Sub(priceUpper, priceLower)

	if roundUp {
		result, err := fullmath.MulDivRoundingUp(liquidity, priceDelta, fullmath.Q96)
		if err != nil {
			return err
		}
		dest.Set(result)
		return nil
	}

	result, err := fullmath.MulDiv(liquidity, priceDelta, fullmath.Q96)
	if err != nil {
		return err
	}
	dest.Set(result)
	return nil
}

// Token0DeltaSigned routes a signed liquidity delta to the unsigned form:
// adding liquidity rounds up, removing rounds down and negates the result.
func Token0DeltaSigned(dest, priceLower, priceUpper, liquidityDelta *big.Int) error {
	if liquidityDelta.Sign() < 0 {
		magnitude := new(big.Int).Neg(liquidityDelta)
		if err := Token0Delta(dest, priceLower, priceUpper, magnitude, false); err != nil {
			return err
		}
		dest.Neg(dest)
		return nil
	}
	return Token0Delta(dest, priceLower, priceUpper, liquidityDelta, true)
}

// Token1DeltaSigned is the token1 counterpart of Token0DeltaSigned.
func Token1DeltaSigned(dest, priceLower, priceUpper, liquidityDelta *big.Int) error {
	if liquidityDelta.Sign() < 0 {
		magnitude := new(big.Int).Neg(liquidityDelta)
		if err := Token1Delta(dest, priceLower, priceUpper, magnitude, false); err != nil {
			return err
		}
		dest.Neg(dest)
		return nil
	}
	return Token1Delta(dest, priceLower, priceUpper, liquidityDelta, true)
}
