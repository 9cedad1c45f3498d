package dpmi

import (
	"fmt"

	"github.com/pkg/errors"
)

// PhysicalMapping is an exclusively owned mapping of a physical address
// range, together with the descriptor through which it is accessed.
//
// It performs no I/O itself; transfers go through the host using Selector.
type PhysicalMapping struct {
	host     Host
	linear   uint32
	selector int
	size     uint32
}

// MapPhysical maps size bytes starting at the physical address and allocates
// a descriptor covering exactly that range.
//
// If any step after the mapping itself fails, every grant obtained so far is
// returned to the host before the error is reported.
func MapPhysical(host Host, address, size uint32) (*PhysicalMapping, error) {
	if size == 0 {
		return nil, errors.Wrapf(ErrMapping, "%#08x: empty range", address)
	}

	linear, err := host.MapPhysical(address, size)
	if err != nil {
		return nil, errors.Wrapf(ErrMapping, "%#08x+%#x: %v", address, size, err)
	}

	selector, err := host.AllocDescriptors(1)
	if err != nil {
		if errFree := host.FreePhysicalMapping(linear); errFree != nil {
			return nil, errors.Wrapf(ErrMapping, "failed to allocate LDT descriptor: %v; release mapping: %v", err, errFree)
		}
		return nil, errors.Wrapf(ErrMapping, "failed to allocate LDT descriptor: %v", err)
	}

	m := &PhysicalMapping{
		host:     host,
		linear:   linear,
		selector: selector,
		size:     size,
	}

	if err = host.SetSegmentBase(selector, linear); err == nil {
		err = host.SetSegmentLimit(selector, size-1)
	}

	if err != nil {
		if errClose := m.Close(); errClose != nil {
			return nil, errors.Wrapf(ErrMapping, "failed to configure descriptor %#x: %v; release: %v", selector, err, errClose)
		}
		return nil, errors.Wrapf(ErrMapping, "failed to configure descriptor %#x: %v", selector, err)
	}

	return m, nil
}

// Close releases the descriptor and then the mapping. It does nothing if
// m owns nothing.
func (m *PhysicalMapping) Close() error {
	if !m.Valid() {
		return nil
	}

	host, linear, selector := m.host, m.linear, m.selector
	m.reset()

	errDesc := host.FreeDescriptor(selector)
	errMap := host.FreePhysicalMapping(linear)

	if errDesc != nil {
		return errDesc
	}
	return errMap
}

// Move transfers ownership of the mapping to a new value.
// m owns nothing afterwards.
func (m *PhysicalMapping) Move() *PhysicalMapping {
	n := *m
	m.reset()
	return &n
}

// Valid returns true if m currently owns a mapping.
func (m *PhysicalMapping) Valid() bool {
	return m != nil && m.host != nil
}

// Selector returns the descriptor through which the range is accessed.
func (m *PhysicalMapping) Selector() int { return m.selector }

// Size returns the size of the mapped range in bytes.
func (m *PhysicalMapping) Size() uint32 { return m.size }

func (m *PhysicalMapping) String() string {
	return fmt.Sprintf("physical mapping %#08x (%d bytes, selector %#x)", m.linear, m.size, m.selector)
}

func (m *PhysicalMapping) reset() {
	m.host = nil
	m.linear = 0
	m.selector = -1
	m.size = 0
}
