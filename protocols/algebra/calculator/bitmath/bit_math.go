// Package bitmath locates set bits in 256-bit bitmap words.
package bitmath

import (
	"errors"
	"math/big"
	"math/bits"
)

var ErrInputIsZero = errors.New("input must be greater than zero")

// MostSignificantBit returns the index of the highest set bit of x, with the
// least significant bit at index 0. Requires x > 0.
func MostSignificantBit(x *big.Int) (uint8, error) {
	if x == nil || x.Sign() <= 0 {
		return 0, ErrInputIsZero
	}
	return uint8(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the lowest set bit of x.
// Requires x > 0.
func LeastSignificantBit(x *big.Int) (uint8, error) {
	if x == nil || x.Sign() <= 0 {
		return 0, ErrInputIsZero
	}
	for i, word := range x.Bits() {
		if word != 0 {
			return uint8(i*bits.UintSize + bits.TrailingZeros(uint(word))), nil
		}
	}
	return 0, ErrInputIsZero
}
