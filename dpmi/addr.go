package dpmi

import "fmt"

// ConventionalLimit is the first address beyond real mode addressable memory.
const ConventionalLimit = 0x100000

// FarPtr is a real mode segment:offset pointer as it is laid out in
// firmware records: offset first, then segment.
type FarPtr struct {
	Offset  uint16
	Segment uint16
}

// RealAddr returns the linear address of segment:offset.
func RealAddr(segment, offset uint32) uint32 {
	return segment<<4 + offset
}

// Linear returns the linear address the pointer refers to.
func (p FarPtr) Linear() uint32 {
	return RealAddr(uint32(p.Segment), uint32(p.Offset))
}

// IsNil returns true for the 0000:0000 pointer.
func (p FarPtr) IsNil() bool {
	return p.Segment == 0 && p.Offset == 0
}

func (p FarPtr) String() string {
	return fmt.Sprintf("%04x:%04x", p.Segment, p.Offset)
}
