// Command vmt-lspci lists the functions found on the PCI bus.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hexaflex/vmt/devices"
	"github.com/hexaflex/vmt/devices/fffe/pcibus"
	"github.com/hexaflex/vmt/devices/fffe/vesa"
	"github.com/hexaflex/vmt/dpmi"
	"github.com/hexaflex/vmt/machine"
	"github.com/hexaflex/vmt/pci"
)

func main() {
	log.SetFlags(0)
	config := parseArgs()

	if !config.Verbose {
		log.SetOutput(io.Discard)
	}

	bridge := defaultBridge()
	if config.NoBIOS {
		bridge = pcibus.NewWithoutBIOS()
	}

	m := machine.New(machine.Limits{}, vesa.New(vesa.DefaultConfig()), bridge)
	if err := m.Startup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err := list(os.Stdout, m, m)
	m.Shutdown()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// list writes the PCI BIOS version and a table of all functions to w.
func list(w io.Writer, host dpmi.Host, ports pci.Ports) error {
	version, err := pci.BIOSVersion(host)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Detected PCI version: %s\n", version)
	fmt.Fprintln(w, "Address | DeviceIDs | Description")
	fmt.Fprintln(w, "--------|-----------|-----------------------------------")

	for _, d := range pci.NewBus(ports).Devices() {
		fmt.Fprintf(w, "%s | %s | %s\n", d.Address, d.ID, d.Subclass())
	}

	return nil
}

// defaultBridge returns a host bridge with the functions of a typical
// late 1990s chipset and an AGP display adapter.
func defaultBridge() *pcibus.Device {
	return pcibus.New(pci.Version{Major: 2, Minor: 1},
		pcibus.NewFunction(pci.Address{Bus: 0, Dev: 0}, devices.NewID(0x8086, 0x7190), 0x0600, false),
		pcibus.NewFunction(pci.Address{Bus: 0, Dev: 1}, devices.NewID(0x8086, 0x7191), 0x0604, false),
		pcibus.NewFunction(pci.Address{Bus: 0, Dev: 7, Fun: 0}, devices.NewID(0x8086, 0x7110), 0x0601, true),
		pcibus.NewFunction(pci.Address{Bus: 0, Dev: 7, Fun: 1}, devices.NewID(0x8086, 0x7111), 0x0101, false),
		pcibus.NewFunction(pci.Address{Bus: 0, Dev: 7, Fun: 2}, devices.NewID(0x8086, 0x7112), 0x0c03, false),
		pcibus.NewFunction(pci.Address{Bus: 0, Dev: 7, Fun: 3}, devices.NewID(0x8086, 0x7113), 0x0680, false),
		pcibus.NewFunction(pci.Address{Bus: 1, Dev: 0}, devices.NewID(0x10de, 0x0020), 0x0300, false),
	)
}
