package dpmi

import (
	"fmt"

	"github.com/pkg/errors"
)

const paragraphSize = 16

// DOSMemory is an exclusively owned block of conventional memory. It is
// used to stage records exchanged with real mode services.
//
// The zero value and a released block own nothing.
type DOSMemory struct {
	host     Host
	selector int
	segment  uint16
	size     uint32
}

// AllocDOSMemory allocates a block of at least size bytes.
func AllocDOSMemory(host Host, size uint32) (*DOSMemory, error) {
	paragraphs := int((size + paragraphSize - 1) / paragraphSize)

	segment, selector, err := host.AllocDOSMemory(paragraphs)
	if err != nil {
		return nil, errors.Wrapf(ErrAllocation, "%d paragraphs: %v", paragraphs, err)
	}

	if selector < 0 {
		return nil, errors.Wrapf(ErrAllocation, "%d paragraphs: invalid selector", paragraphs)
	}

	return &DOSMemory{
		host:     host,
		selector: selector,
		segment:  segment,
		size:     size,
	}, nil
}

// Free releases the block. It does nothing if the block owns nothing.
func (m *DOSMemory) Free() error {
	if !m.Valid() {
		return nil
	}

	host, selector := m.host, m.selector
	m.reset()
	return host.FreeDOSMemory(selector)
}

// Move transfers ownership of the block to a new value.
// m owns nothing afterwards.
func (m *DOSMemory) Move() *DOSMemory {
	n := *m
	m.reset()
	return &n
}

// Valid returns true if m currently owns a block.
func (m *DOSMemory) Valid() bool {
	return m != nil && m.host != nil && m.selector >= 0
}

// Put copies p into the block, starting at offset.
func (m *DOSMemory) Put(p []byte, offset uint32) error {
	if err := m.check(len(p), offset); err != nil {
		return err
	}
	return m.host.WriteConventional(RealAddr(uint32(m.segment), offset), p)
}

// Get copies len(p) bytes from the block, starting at offset, into p.
func (m *DOSMemory) Get(p []byte, offset uint32) error {
	if err := m.check(len(p), offset); err != nil {
		return err
	}
	return m.host.ReadConventional(RealAddr(uint32(m.segment), offset), p)
}

// Selector returns the protected mode selector for the block.
func (m *DOSMemory) Selector() int { return m.selector }

// Segment returns the real mode segment of the block.
func (m *DOSMemory) Segment() uint16 { return m.segment }

// Size returns the requested size of the block in bytes.
func (m *DOSMemory) Size() uint32 { return m.size }

func (m *DOSMemory) String() string {
	return fmt.Sprintf("dos memory %04x:0000 (%d bytes, selector %#x)", m.segment, m.size, m.selector)
}

func (m *DOSMemory) check(n int, offset uint32) error {
	if !m.Valid() {
		return errors.New("dpmi: access to released dos memory")
	}
	if uint64(offset)+uint64(n) > uint64(m.size) {
		return errors.Errorf("dpmi: %d bytes at offset %d exceed block of %d bytes", n, offset, m.size)
	}
	return nil
}

func (m *DOSMemory) reset() {
	m.host = nil
	m.selector = -1
	m.segment = 0
	m.size = 0
}
