package pci

import (
	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/dpmi"
)

// PCI BIOS entry points (interrupt 0x1a).
const (
	Vector              = 0x1a
	FuncInstalled       = 0xb101
	statusOK      uint8 = 0x00
)

// ErrNoBIOS is returned when no PCI BIOS is installed.
var ErrNoBIOS = errors.New("pci: PCI BIOS not found")

// BIOSVersion queries the PCI BIOS installation check.
func BIOSVersion(host dpmi.Host) (Version, error) {
	r := dpmi.Regs{AX: FuncInstalled}
	if err := host.Int(Vector, &r); err != nil {
		return Version{}, errors.Wrapf(err, "pci: installation check")
	}

	if r.CarrySet() || r.AH() != statusOK {
		return Version{}, ErrNoBIOS
	}

	return Version{Major: r.BH(), Minor: r.BL()}, nil
}
