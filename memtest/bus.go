package memtest

import "github.com/pkg/errors"

const (
	bitsPerByte  = 8
	maxWidth     = 0xffff // Widest bus the tester accepts, in bits.
	stridePerBus = 1024   // Number of bus words staged per tile.
)

// Bus describes how the memory chips of an adapter share its data bus.
//
// Every chip supplies one fixed, contiguous range of bytes within each
// bus word, and the layout repeats across the whole address space.
type Bus struct {
	width int // Bus width in bits.
	chips int // Number of chips sharing the bus.
}

// NewBus validates the given bus width and chip count.
// The width must be a multiple of 8 bits no wider than 0xffff bits, and
// every chip must supply at least 8 bits of it.
func NewBus(width, chips int) (Bus, error) {
	if width < bitsPerByte {
		return Bus{}, errors.Wrapf(ErrArgument, "memory bus width has to be at least 8-bit; have %d", width)
	}

	if width > maxWidth {
		return Bus{}, errors.Wrapf(ErrArgument, "memory bus width has to be at most %d bits; have %d", maxWidth, width)
	}

	if width%bitsPerByte != 0 {
		return Bus{}, errors.Wrapf(ErrArgument, "memory bus width has to be a multiple of 8 bits; have %d", width)
	}

	if chips < 1 {
		return Bus{}, errors.Wrapf(ErrArgument, "invalid number of chips: %d", chips)
	}

	if width/chips < bitsPerByte {
		return Bus{}, errors.Wrapf(ErrArgument, "cards with less than a byte per chip are not supported; have %d bits for %d chips", width, chips)
	}

	return Bus{width: width, chips: chips}, nil
}

// Width returns the bus width in bits.
func (b Bus) Width() int { return b.width }

// Chips returns the number of chips.
func (b Bus) Chips() int { return b.chips }

// WidthBytes returns the bus width in bytes.
func (b Bus) WidthBytes() int { return b.width / bitsPerByte }

// BytesPerChip returns the number of bytes each chip supplies per bus word.
func (b Bus) BytesPerChip() int { return b.WidthBytes() / b.chips }

// Stride returns the size of a test tile in bytes.
func (b Bus) Stride() int { return b.WidthBytes() * stridePerBus }

// Chip returns the index of the chip that supplies the byte at the given
// offset. When the bus bytes do not divide evenly between the chips, the
// leftover bytes at the end of each word belong to the last chip.
func (b Bus) Chip(offset int) int {
	chip := (offset % b.WidthBytes()) / b.BytesPerChip()
	if chip >= b.chips {
		chip = b.chips - 1
	}
	return chip
}
