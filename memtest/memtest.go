// Package memtest finds faulty memory chips on a video adapter by writing
// patterns to all of its memory and reading them back.
package memtest

import (
	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/vbe"
)

// Memory is raw, offset addressed memory.
// Callers keep every access within the memory's size.
type Memory interface {
	Write(offset uint32, p []byte) error
	Read(offset uint32, p []byte) error
}

// PassFunc is called before each pass begins.
type PassFunc func(index int, p Pattern)

// Result holds the outcome for each chip. An entry is true if the chip
// passed every test.
type Result []bool

// OK returns true if every chip passed.
func (r Result) OK() bool {
	return len(r.Bad()) == 0
}

// Bad returns the indices of the chips which failed.
func (r Result) Bad() []int {
	var bad []int
	for i, ok := range r {
		if !ok {
			bad = append(bad, i)
		}
	}
	return bad
}

// Test validates the bus layout, activates the given mode and tests all of
// the adapter's video memory through its framebuffer. The text mode is
// restored afterwards.
//
// Invalid bus parameters are reported before the adapter is touched.
func Test(bios *vbe.BIOS, mode uint16, width, chips int, f PassFunc) (Result, error) {
	bus, err := NewBus(width, chips)
	if err != nil {
		return nil, err
	}

	fb, err := bios.OpenFramebuffer(mode)
	if err != nil {
		return nil, err
	}

	result, err := Run(fb, fb.Size(), bus, f)
	if errClose := fb.Close(); err == nil && errClose != nil {
		return nil, errors.Wrapf(errClose, "memtest: close framebuffer")
	}

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Run performs all test passes over the first size bytes of mem.
//
// A chip that fails in any pass stays failed. The result is only returned
// once every pass has completed.
func Run(mem Memory, size uint32, bus Bus, f PassFunc) (Result, error) {
	t := tester{
		mem:    mem,
		size:   size,
		bus:    bus,
		block:  make([]byte, bus.Stride()),
		result: make(Result, bus.Chips()),
	}

	for i := range t.result {
		t.result[i] = true
	}

	for i, p := range Patterns {
		if f != nil {
			f(i, p)
		}

		if err := t.pass(p); err != nil {
			return nil, errors.Wrapf(err, "memtest: pass %d (%s)", i+1, p.Name)
		}
	}

	return t.result, nil
}

type tester struct {
	mem    Memory
	size   uint32
	bus    Bus
	block  []byte // Staging buffer for one tile.
	result Result
}

// pass writes the pattern to all of memory and then verifies it.
func (t *tester) pass(p Pattern) error {
	err := tiles(t.size, uint32(len(t.block)), func(addr, n uint32) error {
		block := t.block[:n]

		for i := range block {
			block[i] = p.Gen(i)
		}

		if err := t.mem.Write(addr, block); err != nil {
			return errors.Wrapf(err, "write %#x", addr)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return tiles(t.size, uint32(len(t.block)), func(addr, n uint32) error {
		block := t.block[:n]

		if err := t.mem.Read(addr, block); err != nil {
			return errors.Wrapf(err, "read %#x", addr)
		}

		for i, v := range block {
			if v != p.Gen(i) {
				t.result[t.bus.Chip(i)] = false
			}
		}

		return nil
	})
}

// tiles calls f for consecutive ranges of at most stride bytes covering
// [0, size). Offsets are tracked in 64 bits so a range ending at the top of
// the 32-bit address space does not wrap around.
func tiles(size, stride uint32, f func(addr, n uint32) error) error {
	for addr := uint64(0); addr < uint64(size); addr += uint64(stride) {
		n := min(uint64(size)-addr, uint64(stride))
		if err := f(uint32(addr), uint32(n)); err != nil {
			return err
		}
	}
	return nil
}
