// Package dpmi implements exclusively owned handles for the services of a
// DOS protected mode interface host: conventional (real mode) memory blocks
// and mappings of physical address ranges.
package dpmi

// Carry is the flag bit a real mode service sets to signal failure.
const Carry = 0x0001

// Regs defines the register image passed to and returned from a simulated
// real mode interrupt.
type Regs struct {
	AX, BX, CX, DX uint16
	SI, DI         uint16
	ES             uint16
	Flags          uint16
}

// AH returns the high byte of AX.
func (r *Regs) AH() uint8 { return uint8(r.AX >> 8) }

// AL returns the low byte of AX.
func (r *Regs) AL() uint8 { return uint8(r.AX) }

// BH returns the high byte of BX.
func (r *Regs) BH() uint8 { return uint8(r.BX >> 8) }

// BL returns the low byte of BX.
func (r *Regs) BL() uint8 { return uint8(r.BX) }

// CarrySet returns true if the carry flag is set.
func (r *Regs) CarrySet() bool { return r.Flags&Carry != 0 }

// Host defines the services a DPMI host offers to a protected mode client.
//
// All calls are synchronous. Releasing a handle which is not currently
// allocated is a platform fault; callers must never do it.
type Host interface {
	// AllocDOSMemory allocates the given number of 16-byte paragraphs below
	// the 1 MiB boundary. It returns the real mode segment of the block and a
	// selector addressing it from protected mode.
	AllocDOSMemory(paragraphs int) (segment uint16, selector int, err error)

	// FreeDOSMemory releases a block obtained from AllocDOSMemory.
	FreeDOSMemory(selector int) error

	// MapPhysical maps the physical range [address, address+size) into the
	// linear address space and returns the linear address.
	MapPhysical(address, size uint32) (linear uint32, err error)

	// FreePhysicalMapping releases a mapping obtained from MapPhysical.
	FreePhysicalMapping(linear uint32) error

	// AllocDescriptors allocates count consecutive LDT descriptors and
	// returns the first selector.
	AllocDescriptors(count int) (selector int, err error)

	// FreeDescriptor releases a descriptor obtained from AllocDescriptors.
	FreeDescriptor(selector int) error

	// SetSegmentBase sets the linear base address of a descriptor.
	SetSegmentBase(selector int, base uint32) error

	// SetSegmentLimit sets the limit (size-1) of a descriptor.
	SetSegmentLimit(selector int, limit uint32) error

	// Int simulates the real mode software interrupt vector with the
	// given registers. An error is returned only if the host could not
	// perform the call; the service's own status is reported in r.
	Int(vector int, r *Regs) error

	// ReadConventional copies len(p) bytes from the given real mode linear
	// address into p.
	ReadConventional(address uint32, p []byte) error

	// WriteConventional copies p to the given real mode linear address.
	WriteConventional(address uint32, p []byte) error

	// ReadSelector copies len(p) bytes at offset in the segment identified
	// by selector into p.
	ReadSelector(selector int, offset uint32, p []byte) error

	// WriteSelector copies p to offset in the segment identified by selector.
	WriteSelector(selector int, offset uint32, p []byte) error
}
