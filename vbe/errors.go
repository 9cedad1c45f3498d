package vbe

import "github.com/pkg/errors"

// Known error conditions.
var (
	ErrFirmwareCall          = errors.New("vbe: firmware call failed")
	ErrUnsupportedController = errors.New("vbe: unsupported controller")
	ErrNoSuitableMode        = errors.New("vbe: no suitable video mode found")
	errClosed                = errors.New("vbe: framebuffer is closed")
)
