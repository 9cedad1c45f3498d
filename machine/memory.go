package machine

import (
	"encoding/binary"

	"github.com/hexaflex/vmt/devices"
	"github.com/hexaflex/vmt/dpmi"
)

// Memory is the machine's conventional memory: everything a real mode
// program can address, including the video BIOS ROM area.
type Memory []byte

var _ devices.Memory = Memory{}

var endian = binary.LittleEndian

// NewMemory creates a zeroed conventional memory bank.
func NewMemory() Memory {
	return make(Memory, dpmi.ConventionalLimit)
}

// SetU8 sets the 8-bit value at the given address.
func (m Memory) SetU8(addr uint32, value uint8) {
	m[addr] = value
}

// U8 returns the 8-bit value at the given address.
func (m Memory) U8(addr uint32) uint8 {
	return m[addr]
}

// SetU16 sets the 16-bit value at the given address.
func (m Memory) SetU16(addr uint32, value uint16) {
	endian.PutUint16(m[addr:], value)
}

// U16 returns the 16-bit value at the given address.
func (m Memory) U16(addr uint32) uint16 {
	return endian.Uint16(m[addr:])
}

// SetU32 sets the 32-bit value at the given address.
func (m Memory) SetU32(addr uint32, value uint32) {
	endian.PutUint32(m[addr:], value)
}

// U32 returns the 32-bit value at the given address.
func (m Memory) U32(addr uint32) uint32 {
	return endian.Uint32(m[addr:])
}

// Write writes len(p) bytes from p into memory, starting at the given address.
func (m Memory) Write(addr uint32, p []byte) {
	copy(m[addr:], p)
}

// Read reads len(p) bytes from memory into p, starting at the given address.
func (m Memory) Read(addr uint32, p []byte) {
	copy(p, m[addr:])
}

// contains returns true if [addr, addr+n) lies within conventional memory.
func (m Memory) contains(addr uint32, n int) bool {
	return uint64(addr)+uint64(n) <= uint64(len(m))
}
