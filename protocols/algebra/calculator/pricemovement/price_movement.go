// Package pricemovement computes how far a bounded token amount moves the
// sqrt price through a constant-liquidity segment, and what input, output and
// fee the movement realizes. The formula selection and rounding directions
// replicate the on-chain price-movement library bit for bit.
package pricemovement

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/fullmath"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/tokendelta"
)

var (
	// FeeDenominator expresses fees in hundredths of a basis point.
	FeeDenominator = big.NewInt(1_000_000)

	ErrPriceZero      = errors.New("price must be greater than zero")
	ErrLiquidityZero  = errors.New("liquidity must be greater than zero")
	ErrInvalidFee     = errors.New("fee must be below the fee denominator")
	ErrPriceUnderflow = errors.New("output would drive price to or below zero")
	ErrPriceOverflow  = errors.New("price movement exceeds representable range")
	// ErrTargetInvariant signals that a partial-consumption step landed on the
	// target price anyway. That means upstream data or the math is corrupt, so
	// it is fatal, never retried.
	ErrTargetInvariant = errors.New("target price reached with amount remaining")
)

// NewPrice computes the price after moving amount of one token through the
// segment. A zero amount is a no-op returning the input price; zero price or
// liquidity are precondition failures.
func NewPrice(dest, price, liquidity, amount *big.Int, zeroToOne, fromInput bool) error {
	if amount.Sign() == 0 {
		dest.Set(price)
		return nil
	}
	if price.Sign() <= 0 {
		return ErrPriceZero
	}
	if liquidity.Sign() <= 0 {
		return ErrLiquidityZero
	}
	if fromInput {
		return newPriceAfterInput(dest, price, liquidity, amount, zeroToOne)
	}
	return newPriceAfterOutput(dest, price, liquidity, amount, zeroToOne)
}

// newPriceAfterInput handles the exact-input cases.
//
// Selling token0 uses liquidityShifted * price / (liquidityShifted + amount*price),
// attempted in the full-precision order first. If either the product or the
// enlarged denominator leaves 256 bits, the reordered division-based form is
// used instead; it never materializes the product at all.
func newPriceAfterInput(dest, price, liquidity, amount *big.Int, zeroToOne bool) error {
	if zeroToOne {
		liquidityShifted := new(big.Int).Lsh(liquidity, fullmath.Resolution)
		product := new(big.Int).Mul(amount, price)
		if product.Cmp(fullmath.MaxUint256) <= 0 {
			denominator := new(big.Int).Add(liquidityShifted, product)
			if denominator.Cmp(fullmath.MaxUint256) <= 0 {
				result, err := fullmath.MulDivRoundingUp(liquidityShifted, price, denominator)
				if err != nil {
					return err
				}
				dest.Set(result)
				return nil
			}
		}

		divisor := new(big.Int).Div(liquidityShifted, price)
		divisor, err := fullmath.AddIn256(divisor, amount)
		if err != nil {
			return fmt.Errorf("input fallback: %w", err)
		}
		result, err := fullmath.DivRoundingUp(liquidityShifted, divisor)
		if err != nil {
			return err
		}
		dest.Set(result)
		return nil
	}

	// Selling token1 raises the price by amount*Q96/liquidity, rounded down.
	// The shifted form is preferred while the amount is small enough for the
	// shift itself to stay in range.
	var quotient *big.Int
	if amount.Cmp(fullmath.MaxUint160) <= 0 {
		quotient = new(big.Int).Lsh(amount, fullmath.Resolution)
		quotient.Div(quotient, liquidity)
	} else {
		var err error
		quotient, err = fullmath.MulDiv(amount, fullmath.Q96, liquidity)
		if err != nil {
			return err
		}
	}

	result, err := fullmath.AddIn256(price, quotient)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPriceOverflow, err)
	}
	if err := fullmath.CheckUint160(result); err != nil {
		return fmt.Errorf("%w: %s", ErrPriceOverflow, err)
	}
	dest.Set(result)
	return nil
}

// newPriceAfterOutput handles the exact-output cases.
func newPriceAfterOutput(dest, price, liquidity, amount *big.Int, zeroToOne bool) error {
	if zeroToOne {
		// Paying out token1 lowers the price by ceil(amount*Q96/liquidity).
		quotient, err := fullmath.MulDivRoundingUp(amount, fullmath.Q96, liquidity)
		if err != nil {
			return err
		}
		if price.Cmp(quotient) <= 0 {
			return ErrPriceUnderflow
		}
		dest.Sub(price, quotient)
		return nil
	}

	// Paying out token0 requires the product to fit and the denominator to
	// stay positive after the subtraction; there is no alternate formula.
	liquidityShifted := new(big.Int).Lsh(liquidity, fullmath.Resolution)
	product := new(big.Int).Mul(amount, price)
	if product.Cmp(fullmath.MaxUint256) > 0 || liquidityShifted.Cmp(product) <= 0 {
		return ErrPriceOverflow
	}
	denominator := new(big.Int).Sub(liquidityShifted, product)
	result, err := fullmath.MulDivRoundingUp(liquidityShifted, price, denominator)
	if err != nil {
		return err
	}
	if err := fullmath.CheckUint160(result); err != nil {
		return fmt.Errorf("%w: %s", ErrPriceOverflow, err)
	}
	dest.Set(result)
	return nil
}

// priceMovement holds reusable big.Int objects for a single step computation.
// Instances are managed by a sync.Pool for safe concurrent use.
type priceMovement struct {
	resultPrice   *big.Int
	input         *big.Int
	output        *big.Int
	feeAmount     *big.Int
	afterFee      *big.Int
	availableAbs  *big.Int
	feeComplement *big.Int
}

var movementPool = sync.Pool{
	New: func() any {
		return &priceMovement{
			resultPrice:   new(big.Int),
			input:         new(big.Int),
			output:        new(big.Int),
			feeAmount:     new(big.Int),
			afterFee:      new(big.Int),
			availableAbs:  new(big.Int),
			feeComplement: new(big.Int),
		}
	},
}

// MovePriceTowardsTarget is the single-step primitive of the quoting loop.
// Mode is exact-input when amountAvailable >= 0, exact-output otherwise. The
// step stops at targetPrice when the available amount would not be exhausted
// before reaching it.
func MovePriceTowardsTarget(
	resultPrice, input, output, feeAmount *big.Int,
	zeroToOne bool,
	currentPrice, targetPrice, liquidity, amountAvailable, feePips *big.Int,
) error {
	if currentPrice.Sign() <= 0 || targetPrice.Sign() <= 0 {
		return ErrPriceZero
	}
	if liquidity.Sign() <= 0 {
		return ErrLiquidityZero
	}
	if feePips.Sign() < 0 || feePips.Cmp(FeeDenominator) >= 0 {
		return ErrInvalidFee
	}

	s := movementPool.Get().(*priceMovement)
	defer movementPool.Put(s)

	err := s.movePriceTowardsTarget(zeroToOne, currentPrice, targetPrice, liquidity, amountAvailable, feePips)
	if err != nil {
		return err
	}

	resultPrice.Set(s.resultPrice)
	input.Set(s.input)
	output.Set(s.output)
	feeAmount.Set(s.feeAmount)
	return nil
}

func (s *priceMovement) movePriceTowardsTarget(
	zeroToOne bool,
	currentPrice, targetPrice, liquidity, amountAvailable, feePips *big.Int,
) error {
	s.feeComplement.Sub(FeeDenominator, feePips)
	s.input.SetInt64(0)
	s.output.SetInt64(0)
	s.feeAmount.SetInt64(0)

	if amountAvailable.Sign() >= 0 {
		// Exact input. The fee comes off the top before any price math; if
		// the step reaches the target, the fee actually charged is the
		// ceiling gross-up of the input that was needed. This order is what
		// makes the rounding match the reference.
		afterFee, err := fullmath.MulDiv(amountAvailable, s.feeComplement, FeeDenominator)
		if err != nil {
			return err
		}
		s.afterFee.Set(afterFee)

		if zeroToOne {
			err = tokendelta.Token0Delta(s.input, targetPrice, currentPrice, liquidity, true)
		} else {
			err = tokendelta.Token1Delta(s.input, currentPrice, targetPrice, liquidity, true)
		}
		if err != nil {
			return err
		}

		if s.afterFee.Cmp(s.input) >= 0 {
			s.resultPrice.Set(targetPrice)
			fee, err := fullmath.MulDivRoundingUp(s.input, feePips, s.feeComplement)
			if err != nil {
				return err
			}
			s.feeAmount.Set(fee)
		} else {
			if err := NewPrice(s.resultPrice, currentPrice, liquidity, s.afterFee, zeroToOne, true); err != nil {
				return err
			}
			if s.resultPrice.Cmp(targetPrice) == 0 {
				return ErrTargetInvariant
			}
			if zeroToOne {
				err = tokendelta.Token0Delta(s.input, s.resultPrice, currentPrice, liquidity, true)
			} else {
				err = tokendelta.Token1Delta(s.input, currentPrice, s.resultPrice, liquidity, true)
			}
			if err != nil {
				return err
			}
			// The step consumed everything; the residual above the realized
			// input is the fee, not a fee-rate computation.
			s.feeAmount.Sub(amountAvailable, s.input)
		}

		if zeroToOne {
			err = tokendelta.Token1Delta(s.output, s.resultPrice, currentPrice, liquidity, false)
		} else {
			err = tokendelta.Token0Delta(s.output, currentPrice, s.resultPrice, liquidity, false)
		}
		if err != nil {
			return err
		}
		return nil
	}

	// Exact output.
	s.availableAbs.Neg(amountAvailable)

	var err error
	if zeroToOne {
		err = tokendelta.Token1Delta(s.output, targetPrice, currentPrice, liquidity, false)
	} else {
		err = tokendelta.Token0Delta(s.output, currentPrice, targetPrice, liquidity, false)
	}
	if err != nil {
		return err
	}

	if s.availableAbs.Cmp(s.output) >= 0 {
		s.resultPrice.Set(targetPrice)
	} else {
		if err := NewPrice(s.resultPrice, currentPrice, liquidity, s.availableAbs, zeroToOne, false); err != nil {
			return err
		}
		if s.resultPrice.Cmp(targetPrice) != 0 {
			if zeroToOne {
				err = tokendelta.Token1Delta(s.output, s.resultPrice, currentPrice, liquidity, false)
			} else {
				err = tokendelta.Token0Delta(s.output, currentPrice, s.resultPrice, liquidity, false)
			}
			if err != nil {
				return err
			}
		}
		// Recomputed output can exceed the request by one rounding unit; the
		// cap wins.
		if s.output.Cmp(s.availableAbs) > 0 {
			s.output.Set(s.availableAbs)
		}
	}

	if zeroToOne {
		err = tokendelta.Token0Delta(s.input, s.resultPrice, currentPrice, liquidity, true)
	} else {
		err = tokendelta.Token1Delta(s.input, currentPrice, s.resultPrice, liquidity, true)
	}
	if err != nil {
		return err
	}
	fee, err := fullmath.MulDivRoundingUp(s.input, feePips, s.feeComplement)
	if err != nil {
		return err
	}
	s.feeAmount.Set(fee)
	return nil
}
