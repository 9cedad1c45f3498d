package devices

// Memory defines the machine's conventional memory as seen by a device
// servicing a real mode interrupt. Multi-byte values are little endian.
type Memory interface {
	// U8 defines an unsigned 8-bit value at the given address.
	U8(addr uint32) uint8
	SetU8(addr uint32, value uint8)

	// U16 defines an unsigned 16-bit value at the given address.
	U16(addr uint32) uint16
	SetU16(addr uint32, value uint16)

	// U32 defines an unsigned 32-bit value at the given address.
	U32(addr uint32) uint32
	SetU32(addr uint32, value uint32)

	// Write writes len(p) bytes from p into memory, starting at the given address.
	Write(addr uint32, p []byte)

	// Read reads len(p) bytes from memory into p, starting at the given address.
	Read(addr uint32, p []byte)
}
