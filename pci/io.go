package pci

// Configuration mechanism #1 ports.
const (
	AddressPort = 0xcf8
	DataPort    = 0xcfc
	enableBit   = 1 << 31
)

// Ports gives access to the I/O port space.
type Ports interface {
	In8(port uint16) uint8
	In16(port uint16) uint16
	In32(port uint16) uint32
	Out8(port uint16, v uint8)
	Out16(port uint16, v uint16)
	Out32(port uint16, v uint32)
}

// ConfigAddress returns the value written to AddressPort to select the
// given configuration register.
func ConfigAddress(addr Address, reg uint16) uint32 {
	return enableBit |
		uint32(addr.Bus)<<16 |
		uint32(addr.Dev&0x1f)<<11 |
		uint32(addr.Fun&0x07)<<8 |
		uint32(reg&0xfc)
}

// Bus reads and writes configuration registers through a pair of index
// and data ports.
type Bus struct {
	ports Ports
}

// NewBus creates a configuration space accessor.
func NewBus(ports Ports) *Bus {
	return &Bus{ports: ports}
}

func (b *Bus) selectReg(addr Address, reg uint16) {
	b.ports.Out32(AddressPort, ConfigAddress(addr, reg))
}

// ReadDword reads the aligned 32-bit register containing reg.
func (b *Bus) ReadDword(addr Address, reg uint16) uint32 {
	b.selectReg(addr, reg)
	return b.ports.In32(DataPort)
}

// ReadWord reads the 16-bit register at reg.
func (b *Bus) ReadWord(addr Address, reg uint16) uint16 {
	b.selectReg(addr, reg)
	return b.ports.In16(DataPort + reg&2)
}

// ReadByte reads the 8-bit register at reg.
func (b *Bus) ReadByte(addr Address, reg uint16) uint8 {
	b.selectReg(addr, reg)
	return b.ports.In8(DataPort + reg&3)
}

// WriteDword writes the aligned 32-bit register containing reg.
func (b *Bus) WriteDword(addr Address, reg uint16, v uint32) {
	b.selectReg(addr, reg)
	b.ports.Out32(DataPort, v)
}

// WriteWord writes the 16-bit register at reg.
func (b *Bus) WriteWord(addr Address, reg uint16, v uint16) {
	b.selectReg(addr, reg)
	b.ports.Out16(DataPort+reg&2, v)
}

// WriteByte writes the 8-bit register at reg.
func (b *Bus) WriteByte(addr Address, reg uint16, v uint8) {
	b.selectReg(addr, reg)
	b.ports.Out8(DataPort+reg&3, v)
}
