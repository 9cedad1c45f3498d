package devices

import "fmt"

// ID identifies a device.
// The upper 16 bits hold the vendor id.
// The lower 16 bits hold the device number.
type ID uint32

// NewID creates a new id with the given components.
func NewID(vendor, device int) ID {
	return ID(vendor&0xffff)<<16 | ID(device&0xffff)
}

// Vendor returns the vendor component of the ID.
func (id ID) Vendor() uint16 {
	return uint16(id >> 16)
}

// Device returns the device number component of the ID.
func (id ID) Device() uint16 {
	return uint16(id)
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.Vendor(), id.Device())
}
