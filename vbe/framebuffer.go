package vbe

import (
	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/dpmi"
)

// Framebuffer is the linear framebuffer of an active video mode, mapped in
// its entirety: the whole of the adapter's video memory is addressable,
// not just the visible part.
//
// Close must be called to restore the text mode and release the mapping.
type Framebuffer struct {
	bios    *BIOS
	id      uint16
	info    ModeInfoBlock
	size    uint32
	mapping *dpmi.PhysicalMapping
}

// OpenFramebuffer activates the given mode and maps its framebuffer.
//
// If the mapping fails after the mode was activated, the text mode is
// restored before the error is returned.
func (b *BIOS) OpenFramebuffer(id uint16) (*Framebuffer, error) {
	info, err := b.ModeInfo(id)
	if err != nil {
		return nil, err
	}

	size, err := b.TotalMemory()
	if err != nil {
		return nil, err
	}

	if err = b.SetMode(id); err != nil {
		return nil, err
	}

	mapping, err := dpmi.MapPhysical(b.host, info.PhysBasePtr, size)
	if err != nil {
		if errReset := b.ResetMode(); errReset != nil {
			return nil, errors.Wrapf(err, "mode %#x; %v", id, errReset)
		}
		return nil, errors.Wrapf(err, "mode %#x", id)
	}

	return &Framebuffer{
		bios:    b,
		id:      id,
		info:    *info,
		size:    size,
		mapping: mapping,
	}, nil
}

// Close restores the default text mode, whichever mode is active, and
// releases the mapping. Calling Close more than once does nothing.
func (fb *Framebuffer) Close() error {
	if fb.mapping == nil {
		return nil
	}

	mapping := fb.mapping.Move()
	fb.mapping = nil

	errReset := fb.bios.ResetMode()
	errClose := mapping.Close()

	if errReset != nil {
		return errReset
	}
	return errClose
}

// Mode returns the mode number the framebuffer was opened with.
func (fb *Framebuffer) Mode() uint16 { return fb.id }

// Info returns the mode descriptor captured when the framebuffer was opened.
func (fb *Framebuffer) Info() ModeInfoBlock { return fb.info }

// Base returns the physical base address of the framebuffer.
func (fb *Framebuffer) Base() uint32 { return fb.info.PhysBasePtr }

// Size returns the number of addressable bytes.
func (fb *Framebuffer) Size() uint32 { return fb.size }

// Write copies p into video memory at the given offset.
// The caller must keep offset+len(p) within Size.
func (fb *Framebuffer) Write(offset uint32, p []byte) error {
	if fb.mapping == nil {
		return errClosed
	}
	return fb.bios.host.WriteSelector(fb.mapping.Selector(), offset, p)
}

// Read copies len(p) bytes of video memory at the given offset into p.
// The caller must keep offset+len(p) within Size.
func (fb *Framebuffer) Read(offset uint32, p []byte) error {
	if fb.mapping == nil {
		return errClosed
	}
	return fb.bios.host.ReadSelector(fb.mapping.Selector(), offset, p)
}
