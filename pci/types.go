// Package pci enumerates the devices on a PCI bus through configuration
// mechanism #1.
package pci

import "fmt"

// Version is the PCI BIOS interface level.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Address identifies a function on the bus.
type Address struct {
	Bus uint8
	Dev uint8
	Fun uint8
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X.%X", a.Bus, a.Dev, a.Fun)
}

// DeviceID identifies the maker and model of a function.
type DeviceID struct {
	Vendor  uint16
	Product uint16
}

func (id DeviceID) String() string {
	return fmt.Sprintf("%04X:%04X", id.Vendor, id.Product)
}
