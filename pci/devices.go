package pci

// Bus geometry and configuration header offsets.
const (
	MaxBus = 255
	MaxDev = 31
	MaxFun = 7

	RegID         = 0x00
	RegSubclass   = 0x0a
	RegClass      = 0x0b
	RegHeaderType = 0x0e

	multiFunction = 0x80
	absent        = 0xffffffff
)

// Device is a function present on the bus.
type Device struct {
	Address Address
	ID      DeviceID
	bus     *Bus
}

// Class returns the base class of the function.
func (d Device) Class() Class {
	return Class(d.bus.ReadByte(d.Address, RegClass))
}

// Subclass returns the base and sub class of the function.
func (d Device) Subclass() Subclass {
	return Subclass(d.bus.ReadWord(d.Address, RegSubclass))
}

// Access returns the function at addr if it exists. A function other than
// 0 only exists if function 0 of its device declares multiple functions.
func (b *Bus) Access(addr Address) (Device, bool) {
	if addr.Dev > MaxDev || addr.Fun > MaxFun {
		return Device{}, false
	}

	value := b.ReadDword(addr, RegID)
	if value == absent {
		return Device{}, false
	}

	if addr.Fun > 0 {
		base := Address{Bus: addr.Bus, Dev: addr.Dev}
		if b.ReadByte(base, RegHeaderType)&multiFunction == 0 {
			return Device{}, false
		}
	}

	return Device{
		Address: addr,
		ID: DeviceID{
			Vendor:  uint16(value),
			Product: uint16(value >> 16),
		},
		bus: b,
	}, true
}

// Walk calls f for every function on every bus, in address order, until f
// returns false. Functions 1 to 7 are only probed on multi-function devices.
func (b *Bus) Walk(f func(Device) bool) {
	for bus := 0; bus <= MaxBus; bus++ {
		for dev := 0; dev <= MaxDev; dev++ {
			base := Address{Bus: uint8(bus), Dev: uint8(dev)}

			d, ok := b.Access(base)
			if !ok {
				continue
			}

			if !f(d) {
				return
			}

			if b.ReadByte(base, RegHeaderType)&multiFunction == 0 {
				continue
			}

			for fun := 1; fun <= MaxFun; fun++ {
				base.Fun = uint8(fun)
				if d, ok := b.Access(base); ok && !f(d) {
					return
				}
			}
		}
	}
}

// Devices returns all functions on the bus.
func (b *Bus) Devices() []Device {
	var set []Device
	b.Walk(func(d Device) bool {
		set = append(set, d)
		return true
	})
	return set
}

// Find returns the first function with the given id.
func (b *Bus) Find(id DeviceID) (Device, bool) {
	return b.find(func(d Device) bool { return d.ID == id })
}

// FindClass returns the first function of the given base class.
func (b *Bus) FindClass(c Class) (Device, bool) {
	return b.find(func(d Device) bool { return d.Class() == c })
}

func (b *Bus) find(match func(Device) bool) (Device, bool) {
	var found Device
	var ok bool

	b.Walk(func(d Device) bool {
		if match(d) {
			found, ok = d, true
		}
		return !ok
	})

	return found, ok
}
