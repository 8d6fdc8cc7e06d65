// Package report decodes a PCI device snapshot and renders it as terse,
// verbose, or machine-readable lines in the style of lspci.
package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/sercanarga/pciscope/internal/pci"
)

// Machine output sub-modes.
const (
	MachineNone = iota
	MachineTerse   // -m: one shell-escaped line per device
	MachineVerbose // -mm: Key:\tValue pairs
)

// Options select the rendering mode for one device.
type Options struct {
	Verbosity int // 0..3
	Machine   int // MachineNone, MachineTerse, MachineVerbose
	ShowHex   int // 0..4 -> none, 64, 128, 256, 4096 bytes
	Color     bool
}

// NameResolver turns numeric IDs into human-readable names. The pci.DB
// implementation falls back to hex names for unknown IDs.
type NameResolver interface {
	VendorName(vendor uint16) string
	DeviceName(vendor, device uint16) string
	SubsystemName(vendor, device, svendor, sdevice uint16) string
	ClassName(class uint16) string
	ProgIFName(class uint16, progIF uint8) string
}

// VPDSource reads bytes from the device's VPD address space. Like config
// reads it is all-or-nothing.
type VPDSource interface {
	ReadVPD(pos int, buf []byte) bool
}

// Renderer produces the report for a single device. It is stateless
// across devices; create one per snapshot.
type Renderer struct {
	dev   *pci.Device
	buf   *pci.ConfigBuffer
	names NameResolver
	vpd   VPDSource
	opt   Options

	lines []string
}

var (
	warnColor  = color.New(color.FgYellow)
	classColor = color.New(color.FgCyan)
)

// Render decodes the snapshot and returns the report lines.
func Render(dev *pci.Device, buf *pci.ConfigBuffer, names NameResolver, vpd VPDSource, opt Options) []string {
	r := &Renderer{dev: dev, buf: buf, names: names, vpd: vpd, opt: opt}
	switch opt.Machine {
	case MachineTerse:
		r.machineTerse()
	case MachineVerbose:
		r.machineVerbose()
	default:
		r.terse()
		if opt.Verbosity > 0 {
			r.verbose()
		}
		if opt.ShowHex > 0 {
			r.hexDump()
		}
	}
	return r.lines
}

func (r *Renderer) addf(format string, a ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, a...))
}

// warnf renders a structural anomaly inline; decoding proceeds after it.
func (r *Renderer) warnf(format string, a ...interface{}) {
	msg := "!!! " + fmt.Sprintf(format, a...)
	if r.opt.Color {
		msg = warnColor.Sprint(msg)
	}
	r.lines = append(r.lines, msg)
}

func (r *Renderer) have(pos, n int) bool {
	return r.buf != nil && r.buf.Present(pos, n)
}

// u16or returns the config word at pos, or def when it was never read.
func (r *Renderer) u16or(pos int, def uint16) uint16 {
	if !r.have(pos, 2) {
		return def
	}
	return r.buf.U16(pos)
}

func (r *Renderer) slotName() string {
	if r.dev.Addr.Domain != 0 {
		return r.dev.Addr.String()
	}
	return r.dev.Addr.Short()
}

// terse renders the one-line summary:
// BDF Class: Vendor Device (rev XX) (prog-if XX [Name]).
func (r *Renderer) terse() {
	d := r.dev
	var sb strings.Builder

	className := r.names.ClassName(d.DeviceClass)
	if r.opt.Color {
		className = classColor.Sprint(className)
	}
	fmt.Fprintf(&sb, "%s %s: %s %s",
		r.slotName(),
		className,
		r.names.VendorName(d.VendorID),
		r.names.DeviceName(d.VendorID, d.DeviceID))

	if d.RevID != 0 {
		fmt.Fprintf(&sb, " (rev %02x)", d.RevID)
	}
	if r.opt.Verbosity > 0 {
		if name := r.names.ProgIFName(d.DeviceClass, d.ProgIF); name != "" {
			fmt.Fprintf(&sb, " (prog-if %02x [%s])", d.ProgIF, name)
		} else if d.ProgIF != 0 {
			fmt.Fprintf(&sb, " (prog-if %02x)", d.ProgIF)
		}
	}
	r.lines = append(r.lines, sb.String())

	if d.Has(pci.KnownLabel) && d.Label != "" {
		r.addf("\tDeviceName: %s", d.Label)
	}
	if r.opt.Verbosity > 0 && r.headerType() == pci.HeaderTypeNormal && r.have(pci.RegSubsysVendorID, 4) {
		sv := r.buf.U16(pci.RegSubsysVendorID)
		sd := r.buf.U16(pci.RegSubsysID)
		if sv != 0 && sv != 0xFFFF {
			r.addf("\tSubsystem: %s", r.names.SubsystemName(d.VendorID, d.DeviceID, sv, sd))
		}
	}
}

// headerType returns the layout selector, defaulting to type 0 when the
// header byte was never read.
func (r *Renderer) headerType() int {
	if !r.have(pci.RegHeaderType, 1) {
		return pci.HeaderTypeNormal
	}
	return int(r.buf.U8(pci.RegHeaderType) & 0x7F)
}

// expectedHeaderType returns the header layout mandated by the class.
func expectedHeaderType(class uint16) int {
	switch class {
	case pci.ClassBridgePCI:
		return pci.HeaderTypeBridge
	case pci.ClassBridgeCardBus:
		return pci.HeaderTypeCardBus
	default:
		return pci.HeaderTypeNormal
	}
}

// verbose renders the multi-line body: metadata, control/status, the
// header-type specific section, then BIST.
func (r *Renderer) verbose() {
	d := r.dev

	if d.NoConfigAccess {
		r.warnf("Unable to read the standard configuration space")
		r.showOSWindows()
		return
	}

	htype := r.headerType()
	if htype != expectedHeaderType(d.DeviceClass) {
		r.warnf("Invalid class %04x for header type %02x", d.DeviceClass, htype)
	}

	if d.Has(pci.KnownPhySlot) && d.PhySlot != "" {
		r.addf("\tPhysical Slot: %s", d.PhySlot)
	}
	if d.Has(pci.KnownDTNode) && d.DTNode != "" {
		r.addf("\tDevice tree node: %s", d.DTNode)
	}

	if r.have(pci.RegCommand, 2) {
		r.addf("\tControl: %s", pci.ControlString(r.buf.U16(pci.RegCommand)))
	}
	if r.have(pci.RegStatus, 2) {
		r.addf("\tStatus: %s", pci.StatusString(r.buf.U16(pci.RegStatus)))
	}

	r.showLatency(htype)
	r.showInterrupt()
	if d.Has(pci.KnownNUMANode) && d.NUMANode >= 0 {
		r.addf("\tNUMA node: %d", d.NUMANode)
	}
	if d.Has(pci.KnownIOMMUGroup) && d.IOMMUGroup != "" {
		r.addf("\tIOMMU group: %s", d.IOMMUGroup)
	}

	switch htype {
	case pci.HeaderTypeNormal:
		r.showType0()
	case pci.HeaderTypeBridge:
		r.showType1()
	case pci.HeaderTypeCardBus:
		r.showType2()
	default:
		r.warnf("Unknown header type %02x", htype)
		r.showOSWindows()
	}

	r.showBIST()
}

func (r *Renderer) showLatency(htype int) {
	if !r.have(pci.RegLatencyTimer, 1) {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\tLatency: %d", r.buf.U8(pci.RegLatencyTimer))

	if htype == pci.HeaderTypeNormal && r.have(pci.RegMinGnt, 2) {
		minGnt := r.buf.U8(pci.RegMinGnt)
		maxLat := r.buf.U8(pci.RegMaxLat)
		if minGnt != 0 || maxLat != 0 {
			sb.WriteString(" (")
			if minGnt != 0 {
				fmt.Fprintf(&sb, "%dns min", int(minGnt)*250)
			}
			if minGnt != 0 && maxLat != 0 {
				sb.WriteString(", ")
			}
			if maxLat != 0 {
				fmt.Fprintf(&sb, "%dns max", int(maxLat)*250)
			}
			sb.WriteString(")")
		}
	}
	if r.have(pci.RegCacheLineSize, 1) {
		if cls := r.buf.U8(pci.RegCacheLineSize); cls != 0 {
			fmt.Fprintf(&sb, ", Cache Line Size: %d bytes", int(cls)*4)
		}
	}
	r.lines = append(r.lines, sb.String())
}

func (r *Renderer) showInterrupt() {
	if !r.have(pci.RegInterruptPin, 1) {
		return
	}
	pin := r.buf.U8(pci.RegInterruptPin)
	irq := 0
	if r.dev.Has(pci.KnownIRQ) {
		irq = r.dev.IRQ
	} else if r.have(pci.RegInterruptLine, 1) {
		irq = int(r.buf.U8(pci.RegInterruptLine))
	}
	if pin == 0 && irq == 0 {
		return
	}
	if pin != 0 {
		r.addf("\tInterrupt: pin %c routed to IRQ %d", 'A'+pin-1, irq)
	} else {
		r.addf("\tInterrupt: IRQ %d", irq)
	}
}

func (r *Renderer) showBIST() {
	if !r.have(pci.RegBIST, 1) {
		return
	}
	bist := r.buf.U8(pci.RegBIST)
	if bist&pci.BISTCapable == 0 {
		return
	}
	if bist&pci.BISTStart != 0 {
		r.addf("\tBIST is running")
	} else {
		r.addf("\tBIST result: %02x", bist&pci.BISTCodeMask)
	}
}

// showCaps walks the capability list rooted at head and renders one line
// per entry; the VPD capability additionally decodes its resource stream.
func (r *Renderer) showCaps(head int) {
	status := r.u16or(pci.RegStatus, 0)
	if status&pci.StatusCapList == 0 {
		return
	}
	caps, ok := pci.WalkCapabilities(r.buf, head)
	if !ok && len(caps) == 0 {
		r.addf("\tCapabilities: <access denied>")
		return
	}
	for _, c := range caps {
		r.addf("\tCapabilities: [%02x] %s", c.Offset, pci.CapabilityName(c.ID))
		if c.ID == pci.CapIDVPD {
			r.showVPD()
		}
	}
	if !ok {
		r.addf("\tCapabilities: <access denied>")
	}
}

// shellEscape wraps s in double quotes, escaping embedded quotes and
// backslashes, for the -m output contract.
func shellEscape(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// machineTerse renders the obsolete -m single-line format with fixed
// positional fields.
func (r *Renderer) machineTerse() {
	d := r.dev
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s %s %s",
		r.slotName(),
		shellEscape(r.names.ClassName(d.DeviceClass)),
		shellEscape(r.names.VendorName(d.VendorID)),
		shellEscape(r.names.DeviceName(d.VendorID, d.DeviceID)))

	if d.RevID != 0 {
		fmt.Fprintf(&sb, " -r%02x", d.RevID)
	}
	if d.ProgIF != 0 {
		fmt.Fprintf(&sb, " -p%02x", d.ProgIF)
	}
	if d.SubsysVendorID != 0 && d.SubsysVendorID != 0xFFFF {
		fmt.Fprintf(&sb, " %s %s",
			shellEscape(r.names.VendorName(d.SubsysVendorID)),
			shellEscape(r.names.DeviceName(d.SubsysVendorID, d.SubsysID)))
	} else {
		sb.WriteString(` "" ""`)
	}
	r.lines = append(r.lines, sb.String())
}

// machineVerbose renders the -mm Key:\tValue record.
func (r *Renderer) machineVerbose() {
	d := r.dev

	r.addf("Slot:\t%s", r.slotName())
	r.addf("Class:\t%s", r.names.ClassName(d.DeviceClass))
	r.addf("Vendor:\t%s", r.names.VendorName(d.VendorID))
	r.addf("Device:\t%s", r.names.DeviceName(d.VendorID, d.DeviceID))
	if d.SubsysVendorID != 0 && d.SubsysVendorID != 0xFFFF {
		r.addf("SVendor:\t%s", r.names.VendorName(d.SubsysVendorID))
		r.addf("SDevice:\t%s", r.names.DeviceName(d.SubsysVendorID, d.SubsysID))
	}
	if d.Has(pci.KnownPhySlot) && d.PhySlot != "" {
		r.addf("PhySlot:\t%s", d.PhySlot)
	}
	if d.RevID != 0 {
		r.addf("Rev:\t%02x", d.RevID)
	}
	if d.ProgIF != 0 {
		r.addf("ProgIf:\t%02x", d.ProgIF)
	}
	if d.Has(pci.KnownLabel) && d.Label != "" {
		r.addf("Label:\t%s", d.Label)
	}
	if d.Has(pci.KnownNUMANode) && d.NUMANode >= 0 {
		r.addf("NUMANode:\t%d", d.NUMANode)
	}
	if d.Has(pci.KnownIOMMUGroup) && d.IOMMUGroup != "" {
		r.addf("IOMMUGroup:\t%s", d.IOMMUGroup)
	}
}
