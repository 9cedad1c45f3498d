// Package vbe implements access to the VESA BIOS Extensions of a video
// adapter: controller and mode information, mode switching and the linear
// framebuffer.
package vbe

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/dpmi"
)

// BIOS issues video BIOS calls through a DPMI host.
//
// The controller information block is fetched on first use and kept for
// the lifetime of the BIOS value. This assumes the adapter configuration
// does not change while the program runs. Create one BIOS per process and
// pass it to whoever needs it.
type BIOS struct {
	host dpmi.Host
	info *ControllerInfo
}

// New creates a BIOS accessor for the given host.
func New(host dpmi.Host) *BIOS {
	return &BIOS{host: host}
}

// Host returns the host the BIOS is accessed through.
func (b *BIOS) Host() dpmi.Host {
	return b.host
}

// call performs a VBE function and checks for the VBE success status.
func (b *BIOS) call(r *dpmi.Regs) error {
	fn := r.AX

	if err := b.host.Int(Vector, r); err != nil {
		return errors.Wrapf(ErrFirmwareCall, "function %04x: %v", fn, err)
	}

	if r.AX != StatusOK {
		return errors.Wrapf(ErrFirmwareCall, "function %04x: status %04x", fn, r.AX)
	}

	return nil
}

// ControllerInfo returns the controller information block.
//
// The block is requested from the firmware only once; later calls return
// the same value. A failed request is not remembered.
func (b *BIOS) ControllerInfo() (*ControllerInfo, error) {
	if b.info != nil {
		return b.info, nil
	}

	rec, err := dpmi.NewRecord[ControllerInfo](b.host)
	if err != nil {
		return nil, err
	}

	defer rec.Free()

	rec.Value.Signature = RequestSignature
	if err = rec.Push(); err != nil {
		return nil, err
	}

	err = b.call(&dpmi.Regs{
		AX: FuncControllerInfo,
		ES: rec.Segment(),
	})
	if err != nil {
		return nil, err
	}

	info, err := rec.Pull()
	if err != nil {
		return nil, err
	}

	if info.Signature != ResponseSignature {
		return nil, errors.Wrapf(ErrUnsupportedController, "invalid signature %q", info.Signature[:])
	}

	if info.Version < MinVersion {
		return nil, errors.Wrapf(ErrUnsupportedController, "version %x.%x is below %x.%x",
			info.Version>>8, info.Version&0xff, MinVersion>>8, MinVersion&0xff)
	}

	v := *info
	b.info = &v
	return b.info, nil
}

// TotalMemory returns the amount of video memory in bytes.
func (b *BIOS) TotalMemory() (uint32, error) {
	info, err := b.ControllerInfo()
	if err != nil {
		return 0, err
	}
	return uint32(info.TotalMemory) * MemoryUnit, nil
}

// OEMInfo returns the identification strings reported by the adapter.
func (b *BIOS) OEMInfo() (*OEMInfo, error) {
	info, err := b.ControllerInfo()
	if err != nil {
		return nil, err
	}

	var oem OEMInfo
	ptrs := []struct {
		dst *string
		src dpmi.FarPtr
	}{
		{&oem.Description, info.OEMString},
		{&oem.Vendor, info.OEMVendorName},
		{&oem.Product, info.OEMProductName},
		{&oem.Revision, info.OEMProductRev},
	}

	for _, p := range ptrs {
		if *p.dst, err = b.readString(p.src); err != nil {
			return nil, err
		}
	}

	return &oem, nil
}

// readString reads a NUL terminated string of at most oemStringLen-1 bytes.
func (b *BIOS) readString(ptr dpmi.FarPtr) (string, error) {
	if ptr.IsNil() {
		return "", nil
	}

	addr := ptr.Linear()
	if addr >= dpmi.ConventionalLimit {
		return "", errors.Errorf("vbe: string pointer %v beyond conventional memory", ptr)
	}

	n := uint32(oemStringLen)
	if addr+n > dpmi.ConventionalLimit {
		n = dpmi.ConventionalLimit - addr
	}

	buf := make([]byte, n)
	if err := b.host.ReadConventional(addr, buf); err != nil {
		return "", errors.Wrapf(err, "vbe: read string at %v", ptr)
	}

	buf[len(buf)-1] = 0
	if i := bytes.IndexByte(buf, 0); i > -1 {
		buf = buf[:i]
	}

	return string(buf), nil
}

// ModeInfo returns the descriptor for the given mode. It is requested from
// the firmware on every call.
func (b *BIOS) ModeInfo(id uint16) (*ModeInfoBlock, error) {
	rec, err := dpmi.NewRecord[ModeInfoBlock](b.host)
	if err != nil {
		return nil, err
	}

	defer rec.Free()

	err = b.call(&dpmi.Regs{
		AX: FuncModeInfo,
		CX: id,
		ES: rec.Segment(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "mode %#x", id)
	}

	info, err := rec.Pull()
	if err != nil {
		return nil, err
	}

	v := *info
	return &v, nil
}

// Modes returns the hardware supported linear framebuffer modes with at
// least 8 bits per pixel, in the order the firmware lists them.
// Other modes are skipped.
func (b *BIOS) Modes() ([]Mode, error) {
	ids, err := b.modeList()
	if err != nil {
		return nil, err
	}

	var modes []Mode

	for _, id := range ids {
		info, err := b.ModeInfo(id)
		if err != nil {
			return nil, err
		}

		if info.Attributes&AttrSupported == 0 {
			continue
		}

		if !info.HasLinearFramebuffer() {
			continue
		}

		if info.BitsPerPixel < 8 {
			continue
		}

		modes = append(modes, Mode{
			ID:           id,
			Width:        info.XResolution,
			Height:       info.YResolution,
			BitsPerPixel: info.BitsPerPixel,
		})
	}

	return modes, nil
}

// modeList reads the terminated list of mode numbers the controller
// information block points to.
func (b *BIOS) modeList() ([]uint16, error) {
	info, err := b.ControllerInfo()
	if err != nil {
		return nil, err
	}

	var ids []uint16
	var word [2]byte

	for addr := info.VideoModes.Linear(); addr+2 <= dpmi.ConventionalLimit; addr += 2 {
		if err := b.host.ReadConventional(addr, word[:]); err != nil {
			return nil, errors.Wrapf(err, "vbe: read mode list at %#x", addr)
		}

		id := uint16(word[0]) | uint16(word[1])<<8
		if id == ModeListEnd {
			return ids, nil
		}

		ids = append(ids, id)
	}

	return nil, errors.Wrapf(ErrFirmwareCall, "mode list at %v is not terminated", info.VideoModes)
}

// SetMode activates the given mode with the linear framebuffer enabled.
func (b *BIOS) SetMode(id uint16) error {
	err := b.call(&dpmi.Regs{
		AX: FuncSetMode,
		BX: id | ModeLinear,
	})
	return errors.Wrapf(err, "set mode %#x", id)
}

// CurrentMode returns the active mode number.
func (b *BIOS) CurrentMode() (uint16, error) {
	r := dpmi.Regs{AX: FuncCurrentMode}
	if err := b.call(&r); err != nil {
		return 0, err
	}
	return r.BX & ModeNumber, nil
}

// ResetMode switches back to the default text mode. The legacy mode set
// reports no status, so only a failure of the host itself is returned.
func (b *BIOS) ResetMode() error {
	r := dpmi.Regs{AX: TextMode}
	if err := b.host.Int(Vector, &r); err != nil {
		return errors.Wrapf(ErrFirmwareCall, "reset mode: %v", err)
	}
	return nil
}

// FindMode returns the first mode for which match returns true.
func FindMode(modes []Mode, match func(Mode) bool) (Mode, error) {
	for _, m := range modes {
		if match(m) {
			return m, nil
		}
	}
	return Mode{}, ErrNoSuitableMode
}

func (m Mode) String() string {
	return fmt.Sprintf("%#X [%dx%dx%d]", m.ID, m.Width, m.Height, m.BitsPerPixel)
}
