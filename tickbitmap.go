package pool

import (
	"github.com/holiman/uint256"
)

// TickBitmap packs one bit per initialized tick into 256-bit words, keyed
// by word index, so a caller can scan for the next initialized tick without
// visiting every tick in between. Grounded on Osmosis' word/bit split
// (tick>>8, tick&0xFF) and on the bit-exact two's-complement shift used by
// the canonical implementation; Go's ints are already two's complement so
// the shift-by-negative-as-large-positive trick below needs no masking.
type TickBitmap struct {
	words map[int16]*uint256.Int
}

func NewTickBitmap() *TickBitmap {
	return &TickBitmap{words: make(map[int16]*uint256.Int)}
}

// position decomposes a compressed tick (tick / tickSpacing, floor-divided)
// into its word index and the bit within that word.
func position(compressed int) (wordPos int16, bitPos uint8) {
	wordPos = int16(compressed >> 8)
	bitPos = uint8(compressed & 0xff)
	return
}

func (b *TickBitmap) wordOrZero(wordPos int16) *uint256.Int {
	if w, ok := b.words[wordPos]; ok {
		return w
	}
	return new(uint256.Int)
}

// Flip toggles the initialized bit for tick (which must be a multiple of
// tickSpacing).
func (b *TickBitmap) Flip(tick, tickSpacing int) error {
	if tick%tickSpacing != 0 {
		return ErrTickNotSpaced
	}
	compressed := floorDiv(tick, tickSpacing)
	wordPos, bitPos := position(compressed)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	word := b.wordOrZero(wordPos)
	word = new(uint256.Int).Xor(word, mask)
	b.words[wordPos] = word
	return nil
}

func (b *TickBitmap) isInitialized(compressed int) bool {
	wordPos, bitPos := position(compressed)
	word := b.wordOrZero(wordPos)
	return word.Bit(int(bitPos)) == 1
}

// NextInitializedTickWithinOneWord finds the nearest initialized tick within
// one bitmap word: at or below tick when lte is true, or strictly above tick
// otherwise (that search starts at the next compressed tick, which may lie in
// the following word). If no bit is set in that word it returns the word's
// lowest tick (lte) or highest tick (!lte) with initialized=false, and the
// caller keeps scanning from there.
func (b *TickBitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int, lte bool) (next int, initialized bool) {
	compressed := floorDiv(tick, tickSpacing)

	if lte {
		wordPos, bitPos := position(compressed)
		word := b.wordOrZero(wordPos)
		// mask: bits at position <= bitPos.
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
		mask = new(uint256.Int).Sub(mask, uint256.NewInt(1))
		mask = new(uint256.Int).Or(mask, new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos)))
		masked := new(uint256.Int).And(word, mask)

		initialized = !masked.IsZero()
		var bit int
		if initialized {
			bit = msb(masked)
		} else {
			bit = 0
		}
		if initialized {
			next = (int(wordPos)*256 + bit) * tickSpacing
		} else {
			next = (int(wordPos)*256 + 0) * tickSpacing
		}
		return
	}

	compressed++
	wordPos, bitPos := position(compressed)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	mask = new(uint256.Int).Sub(mask, uint256.NewInt(1))
	notMask := new(uint256.Int).Not(mask)
	word := b.wordOrZero(wordPos)
	masked := new(uint256.Int).And(word, notMask)

	initialized = !masked.IsZero()
	var bit int
	if initialized {
		bit = lsb(masked)
	} else {
		bit = 255
	}
	next = (int(wordPos)*256 + bit) * tickSpacing
	return
}

// msb/lsb operate via math/big, whose Bit/BitLen contracts are unambiguous,
// rather than guessing at uint256's own bit-scan method names.
func msb(v *uint256.Int) int {
	return v.ToBig().BitLen() - 1
}

func lsb(v *uint256.Int) int {
	b := v.ToBig()
	if b.Sign() == 0 {
		return 0
	}
	for i := 0; i < 256; i++ {
		if b.Bit(i) == 1 {
			return i
		}
	}
	return 0
}
