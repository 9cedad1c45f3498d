package pci

// Class is the base class code of a function.
type Class uint8

// Known base classes.
const (
	Unclassified Class = iota
	StorageController
	NetworkController
	DisplayController
	MultimediaController
	MemoryController
	BridgeDevice
	SimpleCommunication
	BaseSystemPeripheral
	InputDevice
	DockingStation
	Processor
	SerialBusController
	WirelessController
	IntelligentController
	SatelliteCommunication
	EncryptionController
	SignalProcessing
)

var classNames = [...]string{
	"Unclassified",
	"Mass Storage Controller",
	"Network Controller",
	"Display Controller",
	"Multimedia Controller",
	"Memory Controller",
	"Bridge Device",
	"Simple Communication",
	"Base System Peripheral",
	"Input Device",
	"Docking Station",
	"Processor",
	"Serial Bus Controller",
	"Wireless Controller",
	"Intelligent Controller",
	"Satellite Communication",
	"Encryption Controller",
	"Signal Processing",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "Unknown"
}

// Subclass combines the base class (high byte) and sub class (low byte)
// of a function.
type Subclass uint16

// Class returns the base class.
func (s Subclass) Class() Class {
	return Class(s >> 8)
}

// String returns the name of the subclass, or the name of its base class
// if the subclass is not known.
func (s Subclass) String() string {
	if name, ok := subclassNames[s]; ok {
		return name
	}
	return s.Class().String()
}

var subclassNames = map[Subclass]string{
	0x0000: "Unclassified VGA incompatible",
	0x0001: "Unclassified VGA compatible",

	0x0100: "Storage Controller - SCSI",
	0x0101: "Storage Controller - IDE",
	0x0102: "Storage Controller - Floppy",
	0x0103: "Storage Controller - IPI",
	0x0104: "Storage Controller - RAID",
	0x0105: "Storage Controller - ATA",
	0x0106: "Storage Controller - SATA",
	0x0107: "Storage Controller - SAS",
	0x0108: "Storage Controller - NVM",
	0x0180: "Storage Controller - Other",

	0x0200: "Network Controller - Ethernet",
	0x0201: "Network Controller - Token Ring",
	0x0202: "Network Controller - FDDI",
	0x0203: "Network Controller - ATM",
	0x0204: "Network Controller - ISDN",
	0x0205: "Network Controller - WorldFIP",
	0x0206: "Network Controller - PICMG",
	0x0207: "Network Controller - InfiniBand",
	0x0208: "Network Controller - Fabric",
	0x0280: "Network Controller - Other",

	0x0300: "Display Controller - VGA",
	0x0301: "Display Controller - XGA",
	0x0302: "Display Controller - 3D",
	0x0380: "Display Controller - Other",

	0x0400: "Multimedia Controller - Video",
	0x0401: "Multimedia Controller - Audio",
	0x0402: "Multimedia Controller - Telephony",
	0x0403: "Multimedia Controller - HD Audio",
	0x0480: "Multimedia Controller - Other",

	0x0500: "Memory Controller - RAM",
	0x0501: "Memory Controller - Flash",
	0x0580: "Memory Controller - Other",

	0x0600: "Bridge Device - Host",
	0x0601: "Bridge Device - ISA",
	0x0602: "Bridge Device - EISA",
	0x0603: "Bridge Device - MCA",
	0x0604: "Bridge Device - PCI-to-PCI",
	0x0605: "Bridge Device - PCMCIA",
	0x0606: "Bridge Device - NuBus",
	0x0607: "Bridge Device - CardBus",
	0x0608: "Bridge Device - Resource Bus",
	0x0680: "Bridge Device - Other",

	0x0700: "Communication Controller - Serial",
	0x0701: "Communication Controller - Parallel",
	0x0702: "Communication Controller - Multiport Serial",
	0x0703: "Communication Controller - Modem",
	0x0704: "Communication Controller - IEEE488",
	0x0780: "Communication Controller - Other",

	0x0800: "System Peripheral - Interrupt Controller",
	0x0801: "System Peripheral - DMA Controller",
	0x0802: "System Peripheral - Timer",
	0x0803: "System Peripheral - RTC",
	0x0804: "System Peripheral - Hotplug Controller",
	0x0880: "System Peripheral - Other",

	0x0900: "Input Device - Keyboard",
	0x0901: "Input Device - Digitizer",
	0x0902: "Input Device - Mouse",
	0x0903: "Input Device - Scanner",
	0x0904: "Input Device - Gameport",
	0x0980: "Input Device - Other",

	0x0a00: "Docking Station - Generic",
	0x0a80: "Docking Station - Other",

	0x0b00: "Processor - 386",
	0x0b01: "Processor - 486",
	0x0b02: "Processor - Pentium",
	0x0b10: "Processor - Alpha",
	0x0b20: "Processor - PowerPC",
	0x0b30: "Processor - MIPS",
	0x0b40: "Processor - Co-Processor",

	0x0c00: "Serial Bus Controller - FireWire",
	0x0c01: "Serial Bus Controller - Access Bus",
	0x0c02: "Serial Bus Controller - SSA",
	0x0c03: "Serial Bus Controller - USB",
	0x0c04: "Serial Bus Controller - Fibre Channel",
	0x0c05: "Serial Bus Controller - SMBus",
	0x0c06: "Serial Bus Controller - InfiniBand Bus",
	0x0c07: "Serial Bus Controller - IPMI",
	0x0c80: "Serial Bus Controller - Other",

	0x0d00: "Wireless Controller - IRDA",
	0x0d01: "Wireless Controller - Consumer IR",
	0x0d10: "Wireless Controller - RF",
	0x0d11: "Wireless Controller - Bluetooth",
	0x0d12: "Wireless Controller - Broadband",
	0x0d20: "Wireless Controller - Ethernet (802.11)",
	0x0d80: "Wireless Controller - Other",

	0x0e00: "Intelligent I/O Controller",

	0x0f00: "Satellite Communication - TV",
	0x0f01: "Satellite Communication - Audio",
	0x0f02: "Satellite Communication - Voice",
	0x0f03: "Satellite Communication - Data",

	0x1000: "Encryption/Decryption - Network",
	0x1001: "Encryption/Decryption - Entertainment",
	0x1080: "Encryption/Decryption - Other",

	0x1100: "Data Acquisition - DPIO",
	0x1180: "Data Acquisition - Other",
}
