// Package pcibus implements an emulated PCI host bridge with configuration
// mechanism #1 and the PCI BIOS installation check.
package pcibus

import (
	"encoding/binary"
	"fmt"

	"github.com/hexaflex/vmt/devices"
	"github.com/hexaflex/vmt/dpmi"
	"github.com/hexaflex/vmt/pci"
)

// Function is the configuration space of one emulated function.
type Function struct {
	Address pci.Address
	Config  [256]byte
}

// NewFunction creates a function with a type 0 header.
func NewFunction(addr pci.Address, id devices.ID, class pci.Subclass, multi bool) *Function {
	f := &Function{Address: addr}
	binary.LittleEndian.PutUint16(f.Config[pci.RegID:], id.Vendor())
	binary.LittleEndian.PutUint16(f.Config[pci.RegID+2:], id.Device())
	binary.LittleEndian.PutUint16(f.Config[pci.RegSubclass:], uint16(class))
	if multi {
		f.Config[pci.RegHeaderType] = 0x80
	}
	return f
}

// Device defines all internal doodads for the bridge.
type Device struct {
	version   pci.Version
	present   bool
	address   uint32 // Last value written to the address port.
	functions map[pci.Address]*Function
}

var (
	_ devices.Device     = &Device{}
	_ devices.PortDevice = &Device{}
)

// New creates a bridge reporting the given BIOS version with the given
// functions attached.
func New(version pci.Version, functions ...*Function) *Device {
	d := &Device{
		version:   version,
		present:   true,
		functions: make(map[pci.Address]*Function),
	}

	for _, f := range functions {
		d.functions[f.Address] = f
	}

	return d
}

// NewWithoutBIOS creates a bridge whose firmware fails the installation check.
func NewWithoutBIOS(functions ...*Function) *Device {
	d := New(pci.Version{}, functions...)
	d.present = false
	return d
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0020)
}

// Startup resets the address latch.
func (d *Device) Startup(devices.Memory) error {
	d.address = 0
	return nil
}

// Shutdown does nothing.
func (d *Device) Shutdown() error {
	return nil
}

// Int services the PCI BIOS installation check.
func (d *Device) Int(vector int, r *dpmi.Regs, mem devices.Memory) bool {
	if vector != pci.Vector || r.AX != pci.FuncInstalled || !d.present {
		return false
	}

	r.AX = 0x0001 // Status 0, configuration mechanism #1.
	r.BX = uint16(d.version.Major)<<8 | uint16(d.version.Minor)
	r.CX = uint16(d.lastBus())
	r.DX = 0x4350 // "PC"
	return true
}

// In reads the address latch or the selected configuration register.
func (d *Device) In(port uint16, size int) (uint32, bool) {
	switch {
	case port == pci.AddressPort && size == 4:
		return d.address, true
	case port >= pci.DataPort && port < pci.DataPort+4:
		f, reg := d.selected(port)
		if f == nil {
			return mask(0xffffffff, size), true
		}
		return read(f.Config[reg:], size), true
	}
	return 0, false
}

// Out writes the address latch or the selected configuration register.
// The identification registers are read-only.
func (d *Device) Out(port uint16, size int, value uint32) bool {
	switch {
	case port == pci.AddressPort && size == 4:
		d.address = value
		return true
	case port >= pci.DataPort && port < pci.DataPort+4:
		f, reg := d.selected(port)
		if f != nil && reg >= 0x04 {
			write(f.Config[reg:], size, value)
		}
		return true
	}
	return false
}

// selected returns the function and register addressed by the latch.
func (d *Device) selected(port uint16) (*Function, int) {
	if d.address&(1<<31) == 0 {
		return nil, 0
	}

	addr := pci.Address{
		Bus: uint8(d.address >> 16),
		Dev: uint8(d.address>>11) & 0x1f,
		Fun: uint8(d.address>>8) & 0x07,
	}

	reg := int(d.address&0xfc) + int(port-pci.DataPort)
	return d.functions[addr], reg
}

func (d *Device) lastBus() uint8 {
	var last uint8
	for addr := range d.functions {
		if addr.Bus > last {
			last = addr.Bus
		}
	}
	return last
}

func (d *Device) String() string {
	return fmt.Sprintf("%s pci %s, %d functions", d.ID(), d.version, len(d.functions))
}

func mask(v uint32, size int) uint32 {
	return v & (0xffffffff >> (32 - 8*uint(size)))
}

func read(p []byte, size int) uint32 {
	var v uint32
	for i := 0; i < size && i < len(p); i++ {
		v |= uint32(p[i]) << (8 * uint(i))
	}
	return v
}

func write(p []byte, size int, v uint32) {
	for i := 0; i < size && i < len(p); i++ {
		p[i] = byte(v >> (8 * uint(i)))
	}
}
