package machine

// in reads from the first device decoding port. Undecoded ports float high.
func (m *Machine) in(port uint16, size int) uint32 {
	for _, dev := range m.devices.Ports() {
		if v, ok := dev.In(port, size); ok {
			return v
		}
	}
	return 0xffffffff >> (32 - 8*uint(size))
}

func (m *Machine) out(port uint16, size int, value uint32) {
	for _, dev := range m.devices.Ports() {
		if dev.Out(port, size, value) {
			return
		}
	}
}

// In8 reads a byte from the given I/O port.
func (m *Machine) In8(port uint16) uint8 { return uint8(m.in(port, 1)) }

// In16 reads a word from the given I/O port.
func (m *Machine) In16(port uint16) uint16 { return uint16(m.in(port, 2)) }

// In32 reads a double word from the given I/O port.
func (m *Machine) In32(port uint16) uint32 { return m.in(port, 4) }

// Out8 writes a byte to the given I/O port.
func (m *Machine) Out8(port uint16, v uint8) { m.out(port, 1, uint32(v)) }

// Out16 writes a word to the given I/O port.
func (m *Machine) Out16(port uint16, v uint16) { m.out(port, 2, uint32(v)) }

// Out32 writes a double word to the given I/O port.
func (m *Machine) Out32(port uint16, v uint32) { m.out(port, 4, v) }
