// Package machine implements an emulated PC offering DPMI host services to
// protected mode code. Firmware services, physical memory ranges and I/O
// ports are provided by the devices plugged into it.
package machine

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/devices"
	"github.com/hexaflex/vmt/dpmi"
)

// Layout of the emulated address spaces.
const (
	DOSFirstSegment = 0x1000     // First segment handed out for DOS memory.
	DOSEndSegment   = 0xa000     // First segment beyond DOS memory.
	FirstSelector   = 0x0087     // First LDT selector handed out.
	LinearBase      = 0x80000000 // First linear address used for physical mappings.
	pageSize        = 0x1000
	selectorStep    = 8
)

// Limits restricts the host's resources. A zero field means no restriction
// beyond the machine's layout.
type Limits struct {
	DOSParagraphs  int // Size of the DOS memory arena.
	MaxDescriptors int // Descriptors obtainable through AllocDescriptors.
	MaxMappings    int // Concurrent physical mappings.
}

// Usage counts resources currently handed out by the host.
type Usage struct {
	DOSBlocks   int
	Descriptors int
	Mappings    int
}

type descriptor struct {
	base  uint32
	limit uint32
	dos   bool // Owned by a DOS memory block.
}

type dosBlock struct {
	segment    int
	paragraphs int
}

type mapping struct {
	linear uint32
	size   uint32
	offset uint32 // Offset of the mapped range within region.
	region devices.Region
}

// Machine is an emulated PC with a DPMI host.
type Machine struct {
	limits       Limits
	mem          Memory
	devices      devices.Map
	ldt          map[int]*descriptor
	blocks       map[int]*dosBlock
	mappings     map[uint32]*mapping
	nextSelector int
	nextLinear   uint32
}

var _ dpmi.Host = &Machine{}

// New creates a machine with the given devices plugged in.
func New(limits Limits, devs ...devices.Device) *Machine {
	m := &Machine{
		limits:       limits,
		mem:          NewMemory(),
		ldt:          make(map[int]*descriptor),
		blocks:       make(map[int]*dosBlock),
		mappings:     make(map[uint32]*mapping),
		nextSelector: FirstSelector,
		nextLinear:   LinearBase,
	}

	if m.limits.DOSParagraphs <= 0 || m.limits.DOSParagraphs > DOSEndSegment-DOSFirstSegment {
		m.limits.DOSParagraphs = DOSEndSegment - DOSFirstSegment
	}

	for _, dev := range devs {
		m.devices.Connect(dev)
	}

	return m
}

// Startup initializes all devices.
func (m *Machine) Startup() error {
	return m.devices.Startup(m.mem)
}

// Shutdown cleans up all devices.
func (m *Machine) Shutdown() error {
	return m.devices.Shutdown()
}

// Memory returns the machine's conventional memory.
func (m *Machine) Memory() Memory {
	return m.mem
}

// Usage returns the number of handles currently held by clients.
func (m *Machine) Usage() Usage {
	u := Usage{
		DOSBlocks: len(m.blocks),
		Mappings:  len(m.mappings),
	}
	for _, d := range m.ldt {
		if !d.dos {
			u.Descriptors++
		}
	}
	return u
}

// AllocDOSMemory allocates paragraphs of conventional memory, first fit.
func (m *Machine) AllocDOSMemory(paragraphs int) (uint16, int, error) {
	if paragraphs <= 0 {
		return 0, -1, errors.Errorf("machine: invalid dos block size %d", paragraphs)
	}

	segment, ok := m.findDOSGap(paragraphs)
	if !ok {
		return 0, -1, errors.Errorf("machine: no dos block of %d paragraphs available", paragraphs)
	}

	selector := m.newSelector(&descriptor{
		base:  uint32(segment) << 4,
		limit: uint32(paragraphs)*16 - 1,
		dos:   true,
	})

	m.blocks[selector] = &dosBlock{
		segment:    segment,
		paragraphs: paragraphs,
	}

	return uint16(segment), selector, nil
}

// findDOSGap returns the lowest segment with room for the given paragraphs.
func (m *Machine) findDOSGap(paragraphs int) (int, bool) {
	used := make([]*dosBlock, 0, len(m.blocks))
	for _, b := range m.blocks {
		used = append(used, b)
	}

	sort.Slice(used, func(i, j int) bool {
		return used[i].segment < used[j].segment
	})

	end := DOSFirstSegment + m.limits.DOSParagraphs
	next := DOSFirstSegment

	for _, b := range used {
		if b.segment-next >= paragraphs {
			return next, true
		}
		next = b.segment + b.paragraphs
	}

	if end-next >= paragraphs {
		return next, true
	}

	return 0, false
}

// FreeDOSMemory releases a DOS block. Releasing an unknown block faults.
func (m *Machine) FreeDOSMemory(selector int) error {
	if _, ok := m.blocks[selector]; !ok {
		panic(errors.Errorf("machine: free of unallocated dos memory selector %#x", selector))
	}

	delete(m.blocks, selector)
	delete(m.ldt, selector)
	return nil
}

// MapPhysical maps a physical range decoded by one of the devices.
func (m *Machine) MapPhysical(address, size uint32) (uint32, error) {
	if size == 0 {
		return 0, errors.New("machine: empty physical mapping")
	}

	if m.limits.MaxMappings > 0 && len(m.mappings) >= m.limits.MaxMappings {
		return 0, errors.New("machine: too many physical mappings")
	}

	for _, r := range m.devices.Regions() {
		base, rsize := uint64(r.PhysBase()), uint64(r.PhysSize())
		if uint64(address) < base || uint64(address)+uint64(size) > base+rsize {
			continue
		}

		linear := m.nextLinear
		m.nextLinear += (size + pageSize - 1) &^ (pageSize - 1)

		m.mappings[linear] = &mapping{
			linear: linear,
			size:   size,
			offset: address - uint32(base),
			region: r,
		}

		return linear, nil
	}

	return 0, errors.Errorf("machine: no device decodes %#08x-%#08x", address, uint64(address)+uint64(size)-1)
}

// FreePhysicalMapping releases a mapping. Releasing an unknown mapping faults.
func (m *Machine) FreePhysicalMapping(linear uint32) error {
	if _, ok := m.mappings[linear]; !ok {
		panic(errors.Errorf("machine: free of unmapped linear address %#08x", linear))
	}

	delete(m.mappings, linear)
	return nil
}

// AllocDescriptors allocates count descriptors with base 0 and limit 0.
func (m *Machine) AllocDescriptors(count int) (int, error) {
	if count <= 0 {
		return -1, errors.Errorf("machine: invalid descriptor count %d", count)
	}

	if m.limits.MaxDescriptors > 0 && m.Usage().Descriptors+count > m.limits.MaxDescriptors {
		return -1, errors.New("machine: no free LDT descriptors")
	}

	first := m.newSelector(&descriptor{})
	for i := 1; i < count; i++ {
		m.newSelector(&descriptor{})
	}

	return first, nil
}

// FreeDescriptor releases a descriptor. Releasing an unknown descriptor or
// one owned by a DOS block faults.
func (m *Machine) FreeDescriptor(selector int) error {
	d, ok := m.ldt[selector]
	if !ok || d.dos {
		panic(errors.Errorf("machine: free of unallocated descriptor %#x", selector))
	}

	delete(m.ldt, selector)
	return nil
}

// SetSegmentBase sets the base address of a descriptor.
func (m *Machine) SetSegmentBase(selector int, base uint32) error {
	d, err := m.descriptor(selector)
	if err != nil {
		return err
	}
	d.base = base
	return nil
}

// SetSegmentLimit sets the limit of a descriptor.
func (m *Machine) SetSegmentLimit(selector int, limit uint32) error {
	d, err := m.descriptor(selector)
	if err != nil {
		return err
	}
	d.limit = limit
	return nil
}

// Int offers the interrupt to the devices. If none handles it, the carry
// flag is set and the registers are otherwise left alone, as a BIOS does
// for functions it does not know.
func (m *Machine) Int(vector int, r *dpmi.Regs) error {
	if vector < 0 || vector > 0xff {
		return errors.Errorf("machine: invalid interrupt vector %d", vector)
	}

	r.Flags &^= dpmi.Carry
	if !m.devices.Int(vector, r, m.mem) {
		r.Flags |= dpmi.Carry
	}

	return nil
}

// ReadConventional reads conventional memory.
func (m *Machine) ReadConventional(address uint32, p []byte) error {
	if !m.mem.contains(address, len(p)) {
		return errors.Errorf("machine: %d bytes at %#x exceed conventional memory", len(p), address)
	}
	m.mem.Read(address, p)
	return nil
}

// WriteConventional writes conventional memory.
func (m *Machine) WriteConventional(address uint32, p []byte) error {
	if !m.mem.contains(address, len(p)) {
		return errors.Errorf("machine: %d bytes at %#x exceed conventional memory", len(p), address)
	}
	m.mem.Write(address, p)
	return nil
}

// ReadSelector reads through a descriptor.
func (m *Machine) ReadSelector(selector int, offset uint32, p []byte) error {
	return m.transfer(selector, offset, p, false)
}

// WriteSelector writes through a descriptor.
func (m *Machine) WriteSelector(selector int, offset uint32, p []byte) error {
	return m.transfer(selector, offset, p, true)
}

// transfer moves p to or from selector:offset. Accesses beyond the
// descriptor's limit raise a general protection fault.
func (m *Machine) transfer(selector int, offset uint32, p []byte, write bool) error {
	d, err := m.descriptor(selector)
	if err != nil {
		return err
	}

	if len(p) == 0 {
		return nil
	}

	if uint64(offset)+uint64(len(p))-1 > uint64(d.limit) {
		return errors.Errorf("machine: general protection fault: %#x:%#x+%d exceeds limit %#x",
			selector, offset, len(p), d.limit)
	}

	addr := uint64(d.base) + uint64(offset)

	for _, mp := range m.mappings {
		if addr < uint64(mp.linear) || addr+uint64(len(p)) > uint64(mp.linear)+uint64(mp.size) {
			continue
		}

		off := mp.offset + uint32(addr-uint64(mp.linear))
		if write {
			mp.region.WritePhys(off, p)
		} else {
			mp.region.ReadPhys(off, p)
		}
		return nil
	}

	if addr+uint64(len(p)) <= uint64(len(m.mem)) {
		if write {
			m.mem.Write(uint32(addr), p)
		} else {
			m.mem.Read(uint32(addr), p)
		}
		return nil
	}

	return errors.Errorf("machine: page fault at linear address %#x", addr)
}

func (m *Machine) descriptor(selector int) (*descriptor, error) {
	d, ok := m.ldt[selector]
	if !ok {
		return nil, errors.Errorf("machine: invalid selector %#x", selector)
	}
	return d, nil
}

func (m *Machine) newSelector(d *descriptor) int {
	selector := m.nextSelector
	m.nextSelector += selectorStep
	m.ldt[selector] = d
	return selector
}
