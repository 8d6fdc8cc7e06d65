package report

import (
	"fmt"
	"strings"

	"github.com/sercanarga/pciscope/internal/pci"
)

func (r *Renderer) showType0() {
	r.showBars(6)
	r.showROM(pci.RegROMAddress)
	r.showCaps(pci.RegCapListPtr)
}

func (r *Renderer) showType1() {
	r.showBars(2)

	if r.have(pci.RegPrimaryBus, 4) {
		r.addf("\tBus: primary=%02x, secondary=%02x, subordinate=%02x, sec-latency=%d",
			r.buf.U8(pci.RegPrimaryBus),
			r.buf.U8(pci.RegSecondaryBus),
			r.buf.U8(pci.RegSubordinateBus),
			r.buf.U8(pci.RegSecLatencyTimer))
	}

	r.showBridgeIO()
	r.showBridgeMem()
	r.showBridgePref()

	if r.have(pci.RegSecStatus, 2) {
		r.addf("\tSecondary status: %s", pci.SecStatusString(r.buf.U16(pci.RegSecStatus)))
	}
	r.showROM(pci.RegBridgeROM)
	if r.have(pci.RegBridgeControl, 2) {
		r.addf("\tBridgeCtl: %s", pci.BridgeCtlString(r.buf.U16(pci.RegBridgeControl)))
	}
	r.showCaps(pci.RegCapListPtr)
}

// showRange renders one bridge window. A window is disabled when the OS
// reports a zero size or when the decoded limit lies below the base; a
// disabled window whose registers decode to all zeroes is suppressed
// entirely.
func (r *Renderer) showRange(label string, base, limit uint64, digits, resIdx int, rawZero bool) {
	d := r.dev

	disabled := limit < base
	sizeKnown := d.Has(pci.KnownBridgeBases) && resIdx < len(d.BridgeSize)
	if sizeKnown && d.BridgeSize[resIdx] == 0 {
		disabled = true
	}
	if disabled && rawZero {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\t%s: %0*x-%0*x", label, digits, base, digits, limit)
	if disabled {
		sb.WriteString(" [disabled]")
	} else if sizeKnown && d.BridgeSize[resIdx] != 0 {
		fmt.Fprintf(&sb, " [size=%s]", sizeStr(d.BridgeSize[resIdx]))
	}
	r.lines = append(r.lines, sb.String())
}

// showBridgeIO reconstructs the type 1 I/O window from the base/limit
// bytes at 0x1C/0x1D, pulling 32-bit upper halves from 0x30/0x32.
func (r *Renderer) showBridgeIO() {
	if !r.have(pci.RegIOBase, 2) {
		return
	}
	baseReg := r.buf.U8(pci.RegIOBase)
	limitReg := r.buf.U8(pci.RegIOLimit)

	btype := baseReg & pci.RangeTypeMask
	if ltype := limitReg & pci.RangeTypeMask; btype != ltype {
		r.warnf("Unknown I/O range types %x/%x", btype, ltype)
	}

	base := uint64(baseReg&0xF0) << 8
	limit := uint64(limitReg&0xF0)<<8 | 0xFFF
	digits := 4
	rawZero := baseReg&0xF0 == 0 && limitReg&0xF0 == 0

	if btype == pci.RangeType32Bit && r.have(pci.RegIOBaseUpper, 4) {
		baseUp := r.buf.U16(pci.RegIOBaseUpper)
		limitUp := r.buf.U16(pci.RegIOLimitUpper)
		base |= uint64(baseUp) << 16
		limit |= uint64(limitUp) << 16
		digits = 8
		rawZero = rawZero && baseUp == 0 && limitUp == 0
	}
	r.showRange("I/O behind bridge", base, limit, digits, 0, rawZero)
}

// showBridgeMem reconstructs the type 1 memory window from the base/limit
// words at 0x20/0x22.
func (r *Renderer) showBridgeMem() {
	if !r.have(pci.RegMemoryBase, 4) {
		return
	}
	baseReg := r.buf.U16(pci.RegMemoryBase)
	limitReg := r.buf.U16(pci.RegMemoryLimit)

	if bt, lt := baseReg&pci.RangeTypeMask, limitReg&pci.RangeTypeMask; bt != 0 || lt != 0 {
		r.warnf("Unknown memory range types %x/%x", bt, lt)
	}

	base := uint64(baseReg&0xFFF0) << 16
	limit := uint64(limitReg&0xFFF0)<<16 | 0xFFFFF
	rawZero := baseReg&0xFFF0 == 0 && limitReg&0xFFF0 == 0
	r.showRange("Memory behind bridge", base, limit, 8, 1, rawZero)
}

// showBridgePref reconstructs the prefetchable window from 0x24/0x26 with
// 64-bit upper halves at 0x28/0x2C.
func (r *Renderer) showBridgePref() {
	if !r.have(pci.RegPrefMemoryBase, 4) {
		return
	}
	baseReg := r.buf.U16(pci.RegPrefMemoryBase)
	limitReg := r.buf.U16(pci.RegPrefMemoryLimit)

	btype := baseReg & pci.RangeTypeMask
	if ltype := limitReg & pci.RangeTypeMask; btype != ltype {
		r.warnf("Unknown prefetchable range types %x/%x", btype, ltype)
	}

	base := uint64(baseReg&0xFFF0) << 16
	limit := uint64(limitReg&0xFFF0)<<16 | 0xFFFFF
	digits := 8
	rawZero := baseReg&0xFFF0 == 0 && limitReg&0xFFF0 == 0

	if btype == pci.RangeType32Bit && r.have(pci.RegPrefBaseUpper, 4) && r.have(pci.RegPrefLimitUpper, 4) {
		baseUp := r.buf.U32(pci.RegPrefBaseUpper)
		limitUp := r.buf.U32(pci.RegPrefLimitUpper)
		base |= uint64(baseUp) << 32
		limit |= uint64(limitUp) << 32
		digits = 16
		rawZero = rawZero && baseUp == 0 && limitUp == 0
	}
	r.showRange("Prefetchable memory behind bridge", base, limit, digits, 2, rawZero)
}

func (r *Renderer) showType2() {
	r.showBars(1)

	if r.have(pci.RegCBSecStatus, 2) {
		r.addf("\tSecondary status: %s", pci.SecStatusString(r.buf.U16(pci.RegCBSecStatus)))
	}
	if r.have(pci.RegCBBusNumber, 4) {
		r.addf("\tBus: primary=%02x, secondary=%02x, subordinate=%02x, sec-latency=%d",
			r.buf.U8(pci.RegCBBusNumber),
			r.buf.U8(pci.RegCBCardBusNumber),
			r.buf.U8(pci.RegCBSubordinate),
			r.buf.U8(pci.RegCBLatencyTimer))
	}

	brctl := r.u16or(pci.RegCBBridgeControl, 0)
	for i := 0; i < 2; i++ {
		basePos := pci.RegCBMemBase0 + 8*i
		if !r.have(basePos, 8) {
			continue
		}
		base := r.buf.U32(basePos)
		limit := r.buf.U32(basePos + 4)
		if base == 0 && limit == 0 {
			continue
		}
		pref := ""
		if brctl&(pci.CBCtlPrefetch0<<uint(i)) != 0 {
			pref = " (prefetchable)"
		}
		r.addf("\tMemory window %d: %08x-%08x%s", i, base, limit+0xFFF, pref)
	}
	for i := 0; i < 2; i++ {
		basePos := pci.RegCBIOBase0 + 8*i
		if !r.have(basePos, 8) {
			continue
		}
		base := r.buf.U32(basePos)
		limit := r.buf.U32(basePos + 4)
		if base == 0 && limit == 0 {
			continue
		}
		// Low two bits are reserved; 16-bit windows ignore the upper half.
		if base&3 == 1 {
			base &= 0xFFFFFFFC
			limit &= 0xFFFFFFFC
		} else {
			base &= 0xFFFC
			limit &= 0xFFFC
		}
		r.addf("\tI/O window %d: %08x-%08x", i, base, limit+3)
	}
	if r.have(pci.RegCBBridgeControl, 2) {
		r.addf("\tBridgeCtl: %s", pci.CardBusCtlString(r.buf.U16(pci.RegCBBridgeControl)))
	}

	if !r.have(pci.ConfigHeaderSize, pci.ConfigHeaderSize) {
		r.addf("\t<access denied to the rest>")
		return
	}
	if legacy := r.buf.U16(pci.RegCBLegacyModeBase); legacy != 0 {
		r.addf("\t16-bit legacy interface ports at %04x", legacy)
	}
	r.showCaps(pci.RegCBCapListPtr)
}

// showOSWindows is the fallback for unknown header types and devices
// whose config space could not be read: classify the OS-reported bridge
// windows by their resource flags.
func (r *Renderer) showOSWindows() {
	d := r.dev
	if !d.Has(pci.KnownBridgeBases) {
		return
	}
	for i := range d.BridgeBase {
		base := d.BridgeBase[i]
		size := d.BridgeSize[i]
		if base == 0 && size == 0 {
			continue
		}
		fl := d.BridgeFlags[i]

		var label string
		digits := 8
		switch {
		case fl&pci.ResIO != 0:
			label = "I/O behind bridge"
			digits = 4
			if fl&pci.ResMem16BitAddr == 0 {
				digits = 8
			}
		case fl&pci.ResMem != 0 && fl&pci.ResPrefetch != 0:
			label = "Prefetchable memory behind bridge"
			if fl&pci.ResMem64 != 0 {
				digits = 16
			}
		case fl&pci.ResMem != 0:
			label = "Memory behind bridge"
		default:
			continue
		}
		limit := base
		if size > 0 {
			limit = base + size - 1
		}
		r.addf("\t%s: %0*x-%0*x [size=%s]", label, digits, base, digits, limit, sizeStr(size))
	}
}
