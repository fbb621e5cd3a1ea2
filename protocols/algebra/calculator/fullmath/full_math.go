// Package fullmath provides the 256-bit fixed-point primitives the swap
// calculator is built on. Every operation that could leave the uint256 range
// reports a distinct error instead of wrapping; callers rely on that failure
// to select an alternate formula, exactly like the on-chain libraries revert.
package fullmath

import (
	"errors"
	"math/big"
)

var (
	// Q96 is the UQ64.96 fixed-point number representing 1.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Resolution is the number of fractional bits in the Q96 format.
	Resolution = uint(96)

	// MaxUint256 is the largest value representable in 256 bits.
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// MaxUint160 bounds sqrt prices.
	MaxUint160 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

	ErrDivisionByZero  = errors.New("division by zero")
	ErrMulDivOverflow  = errors.New("muldiv result exceeds 256 bits")
	ErrAddOverflow     = errors.New("addition exceeds 256 bits")
	ErrSubUnderflow    = errors.New("subtraction below zero")
	ErrUint160Overflow = errors.New("value exceeds 160 bits")

	one = big.NewInt(1)
)

// MulDiv computes floor(a * b / denominator) with full intermediate precision.
// The product is never truncated; the error cases are a zero denominator and a
// quotient that does not fit in 256 bits.
func MulDiv(a, b, denominator *big.Int) (*big.Int, error) {
	if denominator.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	result := new(big.Int).Mul(a, b)
	result.Div(result, denominator)
	if result.Cmp(MaxUint256) > 0 {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// MulDivRoundingUp computes ceil(a * b / denominator).
func MulDivRoundingUp(a, b, denominator *big.Int) (*big.Int, error) {
	if denominator.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a, b)
	result, rem := new(big.Int).DivMod(product, denominator, new(big.Int))
	if rem.Sign() > 0 {
		result.Add(result, one)
	}
	if result.Cmp(MaxUint256) > 0 {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// DivRoundingUp computes ceil(x / y).
func DivRoundingUp(x, y *big.Int) (*big.Int, error) {
	if y.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	result, rem := new(big.Int).DivMod(x, y, new(big.Int))
	if rem.Sign() > 0 {
		result.Add(result, one)
	}
	return result, nil
}

// AddIn256 returns x + y, failing if the sum leaves the uint256 range.
func AddIn256(x, y *big.Int) (*big.Int, error) {
	result := new(big.Int).Add(x, y)
	if result.Cmp(MaxUint256) > 0 {
		return nil, ErrAddOverflow
	}
	return result, nil
}

// SubIn256 returns x - y, failing if the difference is negative.
func SubIn256(x, y *big.Int) (*big.Int, error) {
	result := new(big.Int).Sub(x, y)
	if result.Sign() < 0 {
		return nil, ErrSubUnderflow
	}
	return result, nil
}

// CheckUint160 reports whether x fits the uint160 range used for sqrt prices.
func CheckUint160(x *big.Int) error {
	if x.Sign() < 0 || x.Cmp(MaxUint160) > 0 {
		return ErrUint160Overflow
	}
	return nil
}
