package main

import (
	"bufio"
	"log"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/hexaflex/vmt/devices/fffe/vesa"
	"github.com/hexaflex/vmt/machine"
	"github.com/hexaflex/vmt/memtest"
	"github.com/hexaflex/vmt/vbe"
)

const maxMemoryMB = 0xffff * vbe.MemoryUnit >> 20

// App defines application context.
type App struct {
	config  *Config          // Application configuration.
	adapter *vesa.Device     // Emulated video adapter.
	machine *machine.Machine // Host providing the DPMI services.
	bios    *vbe.BIOS        // Video BIOS accessor.
}

// NewApp creates a new application instance using the given configuration.
func NewApp(config *Config) *App {
	vc := vesa.DefaultConfig()
	vc.Memory = uint32(config.MemoryMB) << 20

	for _, f := range config.Faults {
		f.BusBytes = config.BusWidth / 8
		vc.Faults = append(vc.Faults, f)
	}

	var a App
	a.config = config
	a.adapter = vesa.New(vc)
	a.machine = machine.New(machine.Limits{}, a.adapter)
	a.bios = vbe.New(a.machine)
	return &a
}

// Run runs the test and reports the outcome per chip.
func (a *App) Run() error {
	log.Println("Video Memory Tester")
	log.Println(Version())
	log.Println()

	if err := a.checkArgs(); err != nil {
		return err
	}

	if err := a.machine.Startup(); err != nil {
		return err
	}

	defer a.machine.Shutdown()

	oem, err := a.bios.OEMInfo()
	if err != nil {
		return err
	}

	total, err := a.bios.TotalMemory()
	if err != nil {
		return err
	}

	mode, err := a.findMode()
	if err != nil {
		return err
	}

	log.Println("Test Info:")
	log.Println("----------")
	log.Printf("OEM String: %s", oem.Description)
	log.Printf("Vendor: %s", oem.Vendor)
	log.Printf("Product: %s", oem.Product)
	log.Printf("Revision: %s", oem.Revision)
	log.Printf("Total Memory: %dMB", total>>20)
	log.Printf("Memory bus: %d-bit", a.config.BusWidth)
	log.Printf("Number of chips: %d", a.config.Chips)
	log.Printf("Test video mode: %s", mode)
	log.Println()

	a.confirm()

	result, err := memtest.Test(a.bios, mode.ID, a.config.BusWidth, a.config.Chips, printPass)
	if err != nil {
		return err
	}

	for i, ok := range result {
		log.Printf("Chip %d: %s", i, status(ok))
	}

	return nil
}

// checkArgs validates the configuration before any firmware is called.
func (a *App) checkArgs() error {
	bus, err := memtest.NewBus(a.config.BusWidth, a.config.Chips)
	if err != nil {
		return err
	}

	if a.config.MemoryMB < 1 || a.config.MemoryMB > maxMemoryMB {
		return errors.Errorf("emulated video memory must be between 1 and %d MiB; have %d", maxMemoryMB, a.config.MemoryMB)
	}

	for _, f := range a.config.Faults {
		if f.Lane >= bus.WidthBytes() {
			return errors.Errorf("fault lane %d is outside of the %d-bit bus", f.Lane, bus.Width())
		}
	}

	return nil
}

// findMode picks the first mode of at least 640x480 with 16 bits per pixel.
func (a *App) findMode() (vbe.Mode, error) {
	modes, err := a.bios.Modes()
	if err != nil {
		return vbe.Mode{}, err
	}

	return vbe.FindMode(modes, func(m vbe.Mode) bool {
		return m.Width >= 640 && m.Height >= 480 && m.BitsPerPixel >= 16
	})
}

// confirm waits for the user to press enter, unless told otherwise or not
// attached to a terminal.
func (a *App) confirm() {
	if a.config.Yes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}

	log.Println("The test can take up to several minutes")
	log.Println("Press [ENTER] to continue")
	bufio.NewReader(os.Stdin).ReadString('\n')
}

// printPass reports the start of a test pass.
func printPass(index int, p memtest.Pattern) {
	log.Printf("Pass %d/%d: %s", index+1, len(memtest.Patterns), p.Name)
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "BAD"
}
