// Package vesa implements an emulated video adapter with VBE 2.0 firmware
// services and a linear framebuffer.
package vesa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/devices"
	"github.com/hexaflex/vmt/dpmi"
	"github.com/hexaflex/vmt/vbe"
)

// Defaults for the emulated adapter.
const (
	DefaultBase    = 0xe0000000 // Physical address of video memory.
	DefaultMemory  = 4 << 20    // Video memory size in bytes.
	DefaultVersion = 0x0200
	romSegment     = 0xc000 // Video BIOS ROM segment holding the firmware tables.
	romSize        = 0x8000
)

// Mode describes a display mode the adapter lists.
type Mode struct {
	ID           uint16
	Width        uint16
	Height       uint16
	BitsPerPixel uint8
	Attributes   uint16
	Base         uint32 // Physical framebuffer address reported for the mode.
}

// LinearMode returns a hardware supported graphics mode with a linear
// framebuffer at DefaultBase.
func LinearMode(id, width, height uint16, bpp uint8) Mode {
	return Mode{
		ID:           id,
		Width:        width,
		Height:       height,
		BitsPerPixel: bpp,
		Attributes:   vbe.AttrSupported | vbe.AttrColor | vbe.AttrGraphics | vbe.AttrLinear,
		Base:         DefaultBase,
	}
}

// Fault forces bits of every byte supplied by one byte lane of the memory
// bus, as a defective chip would. It is applied when memory is read.
type Fault struct {
	Lane     int  // Byte index within a bus word.
	BusBytes int  // Bus width in bytes.
	Set      byte // Bits stuck at one.
	Clear    byte // Bits stuck at zero.
}

func (f Fault) String() string {
	return fmt.Sprintf("lane %d/%d set %02x clear %02x", f.Lane, f.BusBytes, f.Set, f.Clear)
}

// Config defines the adapter's properties.
type Config struct {
	Signature [4]byte // Signature answered to a controller info request.
	Version   uint16
	Memory    uint32 // Video memory in bytes; a multiple of 64 KiB.
	Base      uint32 // Physical address of video memory.
	OEM       string
	Vendor    string
	Product   string
	Revision  string
	Modes     []Mode
	Faults    []Fault
}

// DefaultConfig returns the configuration of a generic 4 MiB adapter.
func DefaultConfig() Config {
	return Config{
		Signature: vbe.ResponseSignature,
		Version:   DefaultVersion,
		Memory:    DefaultMemory,
		Base:      DefaultBase,
		OEM:       "Emulated VBE Adapter",
		Vendor:    "hexaflex",
		Product:   "vmt virtual display",
		Revision:  "1.0",
		Modes: []Mode{
			LinearMode(0x100, 640, 400, 8),
			LinearMode(0x101, 640, 480, 8),
			LinearMode(0x111, 640, 480, 16),
			LinearMode(0x112, 640, 480, 24),
			LinearMode(0x114, 800, 600, 16),
			LinearMode(0x115, 800, 600, 24),
			LinearMode(0x117, 1024, 768, 16),
		},
	}
}

// Device defines all internal doodads for the adapter.
type Device struct {
	config  Config
	vram    []byte
	mode    uint16            // Current mode number.
	linear  bool              // Linear framebuffer enabled for the current mode.
	calls   map[uint16]int    // Number of calls per function (AX on entry).
	tables  map[string]uint32 // Addresses of firmware tables in the ROM area.
	modePtr dpmi.FarPtr
}

var (
	_ devices.Device = &Device{}
	_ devices.Region = &Device{}
)

// New creates a new adapter.
func New(config Config) *Device {
	return &Device{
		config: config,
		mode:   vbe.TextMode,
		calls:  make(map[uint16]int),
		tables: make(map[string]uint32),
	}
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0010)
}

// Startup allocates video memory and places the firmware tables in the
// video BIOS ROM area.
func (d *Device) Startup(mem devices.Memory) error {
	if d.config.Memory == 0 || d.config.Memory%vbe.MemoryUnit != 0 {
		return errors.Errorf("invalid video memory size %d; must be a non-zero multiple of %d", d.config.Memory, vbe.MemoryUnit)
	}

	d.vram = make([]byte, d.config.Memory)
	d.mode = vbe.TextMode
	d.linear = false
	d.tables = make(map[string]uint32)

	addr := dpmi.RealAddr(romSegment, 0)
	end := addr + romSize

	for _, s := range []string{d.config.OEM, d.config.Vendor, d.config.Product, d.config.Revision} {
		if _, ok := d.tables[s]; ok {
			continue
		}
		if addr+uint32(len(s))+1 > end {
			return errors.New("firmware strings exceed the ROM area")
		}
		d.tables[s] = addr
		mem.Write(addr, append([]byte(s), 0))
		addr += uint32(len(s)) + 1
	}

	addr = (addr + 1) &^ 1
	if addr+uint32(len(d.config.Modes)+1)*2 > end {
		return errors.New("mode list exceeds the ROM area")
	}

	d.modePtr = farPtr(addr)
	for _, m := range d.config.Modes {
		mem.SetU16(addr, m.ID)
		addr += 2
	}
	mem.SetU16(addr, vbe.ModeListEnd)

	log.Println(d.ID(), "video memory", d.config.Memory>>10, "KiB at", fmt.Sprintf("%#08x", d.config.Base))
	return nil
}

// Shutdown releases video memory.
func (d *Device) Shutdown() error {
	d.vram = nil
	return nil
}

// Mode returns the current mode number and whether the linear framebuffer
// is enabled.
func (d *Device) Mode() (uint16, bool) {
	return d.mode, d.linear
}

// Calls returns how often the given function (AX on entry) was invoked.
func (d *Device) Calls(function uint16) int {
	return d.calls[function]
}

// Int services the video BIOS interrupt.
func (d *Device) Int(vector int, r *dpmi.Regs, mem devices.Memory) bool {
	if vector != vbe.Vector {
		return false
	}

	d.calls[r.AX]++

	switch {
	case r.AX == vbe.FuncControllerInfo:
		d.controllerInfo(r, mem)
	case r.AX == vbe.FuncModeInfo:
		d.modeInfo(r, mem)
	case r.AX == vbe.FuncSetMode:
		d.setMode(r)
	case r.AX == vbe.FuncCurrentMode:
		r.BX = d.mode
		if d.linear {
			r.BX |= vbe.ModeLinear
		}
		r.AX = vbe.StatusOK
	case r.AH() == 0x4f:
		r.AX = vbe.StatusFailed
	case r.AH() == 0x00:
		d.mode = uint16(r.AL() & 0x7f)
		d.linear = false
	}

	return true
}

// controllerInfo writes the controller information block to ES:DI.
// The extended OEM fields are only filled in for a VBE 2.0 request.
func (d *Device) controllerInfo(r *dpmi.Regs, mem devices.Memory) {
	addr := dpmi.RealAddr(uint32(r.ES), uint32(r.DI))

	var request [4]byte
	mem.Read(addr, request[:])

	info := vbe.ControllerInfo{
		Signature:   d.config.Signature,
		Version:     d.config.Version,
		OEMString:   farPtr(d.tables[d.config.OEM]),
		VideoModes:  d.modePtr,
		TotalMemory: uint16(d.config.Memory / vbe.MemoryUnit),
	}

	if request == vbe.RequestSignature {
		info.OEMSoftwareRev = d.config.Version
		info.OEMVendorName = farPtr(d.tables[d.config.Vendor])
		info.OEMProductName = farPtr(d.tables[d.config.Product])
		info.OEMProductRev = farPtr(d.tables[d.config.Revision])
	}

	write(mem, addr, &info)
	r.AX = vbe.StatusOK
}

// modeInfo writes the descriptor for mode CX to ES:DI.
func (d *Device) modeInfo(r *dpmi.Regs, mem devices.Memory) {
	m, ok := d.find(r.CX)
	if !ok {
		r.AX = vbe.StatusFailed
		return
	}

	bytesPerPixel := (uint16(m.BitsPerPixel) + 7) / 8
	info := vbe.ModeInfoBlock{
		Attributes:       m.Attributes,
		WinAAttributes:   0x07,
		WinGranularity:   64,
		WinSize:          64,
		WinASegment:      0xa000,
		BytesPerScanline: m.Width * bytesPerPixel,
		XResolution:      m.Width,
		YResolution:      m.Height,
		XCharSize:        8,
		YCharSize:        16,
		NumberOfPlanes:   1,
		BitsPerPixel:     m.BitsPerPixel,
		NumberOfBanks:    1,
		MemoryModel:      0x04,
		PhysBasePtr:      m.Base,
	}

	if m.BitsPerPixel > 8 {
		info.MemoryModel = 0x06
	}

	write(mem, dpmi.RealAddr(uint32(r.ES), uint32(r.DI)), &info)
	r.AX = vbe.StatusOK
}

// setMode activates mode BX.
func (d *Device) setMode(r *dpmi.Regs) {
	id := r.BX & vbe.ModeNumber
	if _, ok := d.find(id); !ok {
		r.AX = vbe.StatusFailed
		return
	}

	d.mode = id
	d.linear = r.BX&vbe.ModeLinear != 0
	r.AX = vbe.StatusOK
}

func (d *Device) find(id uint16) (Mode, bool) {
	for _, m := range d.config.Modes {
		if m.ID == id {
			return m, true
		}
	}
	return Mode{}, false
}

// PhysBase returns the physical address of video memory.
func (d *Device) PhysBase() uint32 { return d.config.Base }

// PhysSize returns the size of video memory.
func (d *Device) PhysSize() uint32 { return d.config.Memory }

// ReadPhys reads video memory, applying the configured faults.
func (d *Device) ReadPhys(offset uint32, p []byte) {
	copy(p, d.vram[offset:])

	for _, f := range d.config.Faults {
		if f.BusBytes <= 0 {
			continue
		}

		first := (f.Lane - int(offset%uint32(f.BusBytes)) + f.BusBytes) % f.BusBytes
		for i := first; i < len(p); i += f.BusBytes {
			p[i] = p[i]&^f.Clear | f.Set
		}
	}
}

// WritePhys writes video memory.
func (d *Device) WritePhys(offset uint32, p []byte) {
	copy(d.vram[offset:], p)
}

// write encodes a firmware record into conventional memory.
func write(mem devices.Memory, addr uint32, v interface{}) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, v)
	mem.Write(addr, buf.Bytes())
}

func farPtr(addr uint32) dpmi.FarPtr {
	if addr == 0 {
		return dpmi.FarPtr{}
	}
	return dpmi.FarPtr{
		Segment: uint16(addr >> 4),
		Offset:  uint16(addr & 0xf),
	}
}
