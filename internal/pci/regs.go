package pci

// Common header registers.
const (
	RegVendorID      = 0x00
	RegDeviceID      = 0x02
	RegCommand       = 0x04
	RegStatus        = 0x06
	RegRevisionID    = 0x08
	RegProgIF        = 0x09
	RegSubClass      = 0x0A
	RegBaseClass     = 0x0B
	RegCacheLineSize = 0x0C
	RegLatencyTimer  = 0x0D
	RegHeaderType    = 0x0E
	RegBIST          = 0x0F
	RegBaseAddress0  = 0x10
)

// Type 0 (endpoint) registers.
const (
	RegSubsysVendorID = 0x2C
	RegSubsysID       = 0x2E
	RegROMAddress     = 0x30
	RegCapListPtr     = 0x34
	RegInterruptLine  = 0x3C
	RegInterruptPin   = 0x3D
	RegMinGnt         = 0x3E
	RegMaxLat         = 0x3F
)

// Type 1 (PCI-to-PCI bridge) registers.
const (
	RegPrimaryBus      = 0x18
	RegSecondaryBus    = 0x19
	RegSubordinateBus  = 0x1A
	RegSecLatencyTimer = 0x1B
	RegIOBase          = 0x1C
	RegIOLimit         = 0x1D
	RegSecStatus       = 0x1E
	RegMemoryBase      = 0x20
	RegMemoryLimit     = 0x22
	RegPrefMemoryBase  = 0x24
	RegPrefMemoryLimit = 0x26
	RegPrefBaseUpper   = 0x28
	RegPrefLimitUpper  = 0x2C
	RegIOBaseUpper     = 0x30
	RegIOLimitUpper    = 0x32
	RegBridgeROM       = 0x38
	RegBridgeControl   = 0x3E
)

// Type 2 (CardBus bridge) registers.
const (
	RegCBCapListPtr     = 0x14
	RegCBSecStatus      = 0x16
	RegCBBusNumber      = 0x18
	RegCBCardBusNumber  = 0x19
	RegCBSubordinate    = 0x1A
	RegCBLatencyTimer   = 0x1B
	RegCBMemBase0       = 0x1C
	RegCBMemLimit0      = 0x20
	RegCBMemBase1       = 0x24
	RegCBMemLimit1      = 0x28
	RegCBIOBase0        = 0x2C
	RegCBIOLimit0       = 0x30
	RegCBIOBase1        = 0x34
	RegCBIOLimit1       = 0x38
	RegCBBridgeControl  = 0x3E
	RegCBLegacyModeBase = 0x44
)

// Header layouts.
const (
	HeaderTypeNormal  = 0
	HeaderTypeBridge  = 1
	HeaderTypeCardBus = 2
)

// Classes with a mandated header layout.
const (
	ClassBridgePCI     = 0x0604
	ClassBridgeCardBus = 0x0607
)

// Command register bits.
const (
	CommandIO uint16 = 1 << iota
	CommandMemory
	CommandMaster
	CommandSpecial
	CommandInvalidate
	CommandVGASnoop
	CommandParity
	CommandWait
	CommandSERR
	CommandFastBack
	CommandDisableINTx
)

// Status register bits.
const (
	StatusINTx           uint16 = 0x0008
	StatusCapList        uint16 = 0x0010
	Status66MHz          uint16 = 0x0020
	StatusUDF            uint16 = 0x0040
	StatusFastBack       uint16 = 0x0080
	StatusParity         uint16 = 0x0100
	StatusDevselMask     uint16 = 0x0600
	StatusDevselShift           = 9
	StatusSigTargetAbort uint16 = 0x0800
	StatusRecTargetAbort uint16 = 0x1000
	StatusRecMasterAbort uint16 = 0x2000
	StatusSigSystemError uint16 = 0x4000
	StatusDetectedParity uint16 = 0x8000
)

// BAR decoding masks. Bit 0 selects I/O space; memory BARs encode width
// in bits 2-1 and prefetchability in bit 3.
const (
	BARSpaceIO  uint32 = 0x01
	BARTypeMask uint32 = 0x06
	BARType32   uint32 = 0x00
	BARType1M   uint32 = 0x02
	BARType64   uint32 = 0x04
	BARPrefetch uint32 = 0x08
	BARIOMask   uint32 = ^uint32(0x03)
	BARMemMask  uint32 = ^uint32(0x0F)
)

// Expansion ROM register bits.
const (
	ROMEnable   uint32 = 0x01
	ROMAddrMask uint32 = ^uint32(0x7FF)
)

// Bridge I/O and prefetchable range type nibbles.
const (
	RangeTypeMask  = 0x0F
	RangeType16Bit = 0x00
	RangeType32Bit = 0x01 // 64-bit for the prefetchable window
)

// Bridge control register bits (type 1).
const (
	BridgeCtlParity uint16 = 1 << iota
	BridgeCtlSERR
	BridgeCtlNoISA
	BridgeCtlVGA
	BridgeCtlVGA16
	BridgeCtlMAbort
	BridgeCtlBusReset
	BridgeCtlFastBack
	BridgeCtlPriDiscTmr
	BridgeCtlSecDiscTmr
	BridgeCtlDiscTmrStat
	BridgeCtlDiscTmrSERR
)

// CardBus bridge control register bits (type 2).
const (
	CBCtlParity    uint16 = 0x0001
	CBCtlSERR      uint16 = 0x0002
	CBCtlISA       uint16 = 0x0004
	CBCtlVGA       uint16 = 0x0008
	CBCtlMAbort    uint16 = 0x0020
	CBCtlReset     uint16 = 0x0040
	CBCtl16BitInt  uint16 = 0x0080
	CBCtlPrefetch0 uint16 = 0x0100
	CBCtlPrefetch1 uint16 = 0x0200
	CBCtlPostWrite uint16 = 0x0400
)

// BIST register bits.
const (
	BISTCodeMask uint8 = 0x0F
	BISTStart    uint8 = 0x40
	BISTCapable  uint8 = 0x80
)
