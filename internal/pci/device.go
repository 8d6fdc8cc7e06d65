package pci

// Known-field bits for Device. A bit is set once the corresponding
// OS-reported field has been successfully filled; decoders must branch on
// presence instead of trusting zero values.
const (
	KnownIRQ uint32 = 1 << iota
	KnownBases
	KnownSizes
	KnownFlags
	KnownROM
	KnownBridgeBases
	KnownPhySlot
	KnownLabel
	KnownNUMANode
	KnownDTNode
	KnownIOMMUGroup
)

// Resource flag bits, normalized from the OS resource descriptors.
const (
	ResIO uint32 = 1 << iota
	ResMem
	ResMem64
	ResMem16BitAddr
	ResPrefetch
	ResEAEnhanced
)

// Device is a snapshot of one PCI function: identity read from config
// space plus optional OS-reported resources and metadata.
type Device struct {
	Addr BDF

	VendorID       uint16
	DeviceID       uint16
	DeviceClass    uint16 // base class << 8 | sub class
	RevID          uint8
	ProgIF         uint8
	SubsysVendorID uint16
	SubsysID       uint16

	Known uint32 // Known* bitset for the fields below

	BaseAddr [6]uint64
	Size     [6]uint64
	Flags    [6]uint32

	ROMBase  uint64
	ROMSize  uint64
	ROMFlags uint32

	BridgeBase  [4]uint64
	BridgeSize  [4]uint64
	BridgeFlags [4]uint32

	IRQ        int
	NUMANode   int // -1 = unknown
	PhySlot    string
	Label      string
	DTNode     string
	IOMMUGroup string

	// NoConfigAccess is set when even the first 64 config bytes could not
	// be read; only a header-only rendering is possible then.
	NoConfigAccess bool
}

// Has reports whether all the given known-field bits are set.
func (d *Device) Has(bits uint32) bool {
	return d.Known&bits == bits
}
