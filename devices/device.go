// Package devices defines the contracts between emulated hardware and the
// machine it is plugged into.
package devices

import (
	"log"

	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/dpmi"
)

// Device represents an emulated peripheral.
// It can interact with a program through real mode software interrupts.
type Device interface {
	// ID yields the vendor and device number of the device.
	ID() ID

	// Startup initializes internal resources. The device may place
	// firmware tables into conventional memory.
	Startup(Memory) error

	// Shutdown cleans up internal resources.
	Shutdown() error

	// Int services the given interrupt vector if the device implements it.
	// It reads its arguments from r and conventional memory and stores
	// results in both. Returns false if the device does not handle the
	// call.
	Int(vector int, r *dpmi.Regs, mem Memory) bool
}

// Region is implemented by devices which decode a range of the physical
// address space, such as video memory.
type Region interface {
	// PhysBase returns the first physical address of the region.
	PhysBase() uint32

	// PhysSize returns the size of the region in bytes.
	PhysSize() uint32

	// ReadPhys reads len(p) bytes at the given offset into the region.
	ReadPhys(offset uint32, p []byte)

	// WritePhys writes p at the given offset into the region.
	WritePhys(offset uint32, p []byte)
}

// PortDevice is implemented by devices attached to the I/O port space.
type PortDevice interface {
	// In reads size bytes (1, 2 or 4) from the given port.
	// Returns false if the port is not decoded by the device.
	In(port uint16, size int) (uint32, bool)

	// Out writes size bytes (1, 2 or 4) to the given port.
	// Returns false if the port is not decoded by the device.
	Out(port uint16, size int, value uint32) bool
}

// Map contains a list of registered peripherals.
type Map []Device

// Connect adds the given device to the device map.
// Returns false if the device type is already present in the set.
func (dm *Map) Connect(dev Device) bool {
	if (*dm).Find(dev.ID()) > -1 {
		return false
	}

	*dm = append(*dm, dev)
	return true
}

// Int offers the interrupt to each device in turn until one handles it.
// Returns false if no device handled it.
func (dm Map) Int(vector int, r *dpmi.Regs, mem Memory) bool {
	for _, dev := range dm {
		if dev.Int(vector, r, mem) {
			return true
		}
	}
	return false
}

// Regions returns the devices which decode physical memory.
func (dm Map) Regions() []Region {
	var set []Region
	for _, dev := range dm {
		if r, ok := dev.(Region); ok {
			set = append(set, r)
		}
	}
	return set
}

// Ports returns the devices attached to the I/O port space.
func (dm Map) Ports() []PortDevice {
	var set []PortDevice
	for _, dev := range dm {
		if p, ok := dev.(PortDevice); ok {
			set = append(set, p)
		}
	}
	return set
}

// Startup initializes internal resources.
func (dm Map) Startup(mem Memory) error {
	var errorset ErrorSet

	for _, dev := range dm {
		log.Println(dev.ID(), "startup")
		if err := dev.Startup(mem); err != nil {
			errorset.Append(errors.Wrapf(err, "%s", dev.ID()))
		}
	}

	if errorset.Len() == 0 {
		return nil
	}

	return errorset
}

// Shutdown cleans up internal resources, in reverse order of startup.
func (dm Map) Shutdown() error {
	var errorset ErrorSet

	for i := len(dm) - 1; i >= 0; i-- {
		dev := dm[i]
		log.Println(dev.ID(), "shutdown")
		if err := dev.Shutdown(); err != nil {
			errorset.Append(errors.Wrapf(err, "%s", dev.ID()))
		}
	}

	if errorset.Len() == 0 {
		return nil
	}

	return errorset
}

// Find returns the index for the device with the given id.
// Returns -1 if it can't be found.
func (dm Map) Find(id ID) int {
	for i, dev := range dm {
		if dev.ID() == id {
			return i
		}
	}
	return -1
}
