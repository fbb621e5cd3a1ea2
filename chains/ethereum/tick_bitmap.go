package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/bitmath"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator/tickmath"
)

// wordFunc fetches one 256-bit tick-bitmap word by position.
type wordFunc func(ctx context.Context, wordPos int16) (*big.Int, error)

// scanBitmapWords walks the pool's tick bitmap outward from tick until it
// finds an initialized tick or runs off the protocol tick range. Each word
// covers 256 compressed ticks; bit i of word w marks tick (w*256+i)*spacing.
// The per-word masking mirrors the on-chain TickBitmap library; the walk
// across words replaces its single-word contract.
func scanBitmapWords(ctx context.Context, tick, tickSpacing int64, lte bool, word wordFunc) (int64, bool, error) {
	if tickSpacing <= 0 {
		return 0, false, fmt.Errorf("invalid tick spacing %d", tickSpacing)
	}

	compressed := floorDiv(tick, tickSpacing)
	minCompressed := floorDiv(tickmath.MinTick, tickSpacing)
	maxCompressed := floorDiv(tickmath.MaxTick, tickSpacing)

	if lte {
		for compressed >= minCompressed {
			wordPos := compressed >> 8
			bitPos := uint(compressed - wordPos<<8)

			bitmap, err := word(ctx, int16(wordPos))
			if err != nil {
				return 0, false, err
			}

			// Keep the bit at bitPos and everything below it.
			mask := new(big.Int).Lsh(big.NewInt(1), bitPos+1)
			mask.Sub(mask, big.NewInt(1))
			masked := new(big.Int).And(bitmap, mask)

			if masked.Sign() != 0 {
				msb, err := bitmath.MostSignificantBit(masked)
				if err != nil {
					return 0, false, err
				}
				return (wordPos<<8 + int64(msb)) * tickSpacing, true, nil
			}
			// Continue just below this word.
			compressed = wordPos<<8 - 1
		}
		return 0, false, nil
	}

	compressed++
	for compressed <= maxCompressed {
		wordPos := compressed >> 8
		bitPos := uint(compressed - wordPos<<8)

		bitmap, err := word(ctx, int16(wordPos))
		if err != nil {
			return 0, false, err
		}

		// Keep the bit at bitPos and everything above it.
		low := new(big.Int).Lsh(big.NewInt(1), bitPos)
		low.Sub(low, big.NewInt(1))
		masked := new(big.Int).AndNot(bitmap, low)

		if masked.Sign() != 0 {
			lsb, err := bitmath.LeastSignificantBit(masked)
			if err != nil {
				return 0, false, err
			}
			return (wordPos<<8 + int64(lsb)) * tickSpacing, true, nil
		}
		// Continue at the start of the next word.
		compressed = (wordPos + 1) << 8
	}
	return 0, false, nil
}

// floorDiv rounds toward negative infinity, unlike Go's integer division.
func floorDiv(x, y int64) int64 {
	q := x / y
	if x%y != 0 && (x < 0) != (y < 0) {
		q--
	}
	return q
}
