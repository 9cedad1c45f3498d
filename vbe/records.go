package vbe

import "github.com/hexaflex/vmt/dpmi"

// Function numbers for the video BIOS (interrupt 0x10).
const (
	Vector             = 0x10
	FuncControllerInfo = 0x4f00
	FuncModeInfo       = 0x4f01
	FuncSetMode        = 0x4f02
	FuncCurrentMode    = 0x4f03
	StatusOK           = 0x004f // AX after a successful VBE call.
	StatusFailed       = 0x014f // AX after a supported but failed VBE call.
	TextMode           = 0x0003 // Legacy 80x25 colour text mode, set with AH=0.
)

// Mode number flags accepted by FuncSetMode.
const (
	ModeLinear   = 0x4000 // Use the linear framebuffer.
	ModeNoClear  = 0x8000 // Preserve display memory.
	ModeNumber   = 0x3fff
	ModeListEnd  = 0xffff
	MinVersion   = 0x0200
	MemoryUnit   = 64 * 1024 // Unit of ControllerInfo.TotalMemory.
	oemStringLen = 128
)

// Mode attribute bits.
const (
	AttrSupported = 1 << 0
	AttrTTY       = 1 << 2
	AttrColor     = 1 << 3
	AttrGraphics  = 1 << 4
	AttrNoVGA     = 1 << 5
	AttrNoWindow  = 1 << 6
	AttrLinear    = 1 << 7
)

// Signatures of the controller information block.
var (
	RequestSignature  = [4]byte{'V', 'B', 'E', '2'}
	ResponseSignature = [4]byte{'V', 'E', 'S', 'A'}
)

// ControllerInfo is the 512 byte controller information block returned by
// FuncControllerInfo.
type ControllerInfo struct {
	Signature      [4]byte
	Version        uint16
	OEMString      dpmi.FarPtr
	Capabilities   [4]byte
	VideoModes     dpmi.FarPtr
	TotalMemory    uint16 // In 64 KiB units.
	OEMSoftwareRev uint16
	OEMVendorName  dpmi.FarPtr
	OEMProductName dpmi.FarPtr
	OEMProductRev  dpmi.FarPtr
	Reserved       [222]byte
	OEMData        [256]byte
}

// ModeInfoBlock is the 256 byte mode descriptor returned by FuncModeInfo.
type ModeInfoBlock struct {
	Attributes       uint16
	WinAAttributes   uint8
	WinBAttributes   uint8
	WinGranularity   uint16
	WinSize          uint16
	WinASegment      uint16
	WinBSegment      uint16
	WinFuncPtr       uint32
	BytesPerScanline uint16
	XResolution      uint16
	YResolution      uint16
	XCharSize        uint8
	YCharSize        uint8
	NumberOfPlanes   uint8
	BitsPerPixel     uint8
	NumberOfBanks    uint8
	MemoryModel      uint8
	BankSize         uint8
	NumberOfPages    uint8
	Reserved1        uint8
	RedMaskSize      uint8
	RedFieldPos      uint8
	GreenMaskSize    uint8
	GreenFieldPos    uint8
	BlueMaskSize     uint8
	BlueFieldPos     uint8
	RsvdMaskSize     uint8
	RsvdFieldPos     uint8
	DirectColorInfo  uint8
	PhysBasePtr      uint32
	OffscreenOffset  uint32
	OffscreenSize    uint16
	Reserved2        [206]byte
}

// HasLinearFramebuffer returns true if the mode exposes a single
// contiguous linear address range at a known base.
func (m *ModeInfoBlock) HasLinearFramebuffer() bool {
	return m.Attributes&AttrLinear != 0 && m.PhysBasePtr != 0
}

// Mode describes a supported display mode.
type Mode struct {
	ID           uint16
	Width        uint16
	Height       uint16
	BitsPerPixel uint8
}

// OEMInfo holds the adapter's identification strings.
type OEMInfo struct {
	Description string
	Vendor      string
	Product     string
	Revision    string
}
