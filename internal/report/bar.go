package report

import (
	"fmt"
	"strings"

	"github.com/sercanarga/pciscope/internal/pci"
)

// sizeStr renders n with the largest power-of-1024 suffix that leaves the
// mantissa integral, per the [size=...] output contract.
func sizeStr(n uint64) string {
	suffixes := [...]string{"", "K", "M", "G", "T"}
	i := 0
	for i < len(suffixes)-1 && n%1024 == 0 && n != 0 {
		n /= 1024
		i++
	}
	return fmt.Sprintf("%d%s", n, suffixes[i])
}

func memTypeName(flg uint32) string {
	switch flg & pci.BARTypeMask {
	case pci.BARType32:
		return "32-bit"
	case pci.BARType64:
		return "64-bit"
	case pci.BARType1M:
		return "low-1M"
	default:
		return "type 3"
	}
}

// showBars decodes and renders up to count base address registers,
// fusing 64-bit pairs and reconciling the hardware-visible values with
// the OS-reported resources.
func (r *Renderer) showBars(count int) {
	d := r.dev
	cmd := r.u16or(pci.RegCommand, 0)

	for i := 0; i < count; i++ {
		idx := i
		pos := pci.RegBaseAddress0 + 4*i
		if !r.have(pos, 4) {
			continue
		}
		flg := r.buf.U32(pos)
		if flg == 0xFFFFFFFF {
			flg = 0
		}

		var (
			hw     uint64
			broken bool
			isIO   = flg&pci.BARSpaceIO != 0
		)
		if isIO {
			hw = uint64(flg & pci.BARIOMask)
		} else {
			hw = uint64(flg & pci.BARMemMask)
			if flg&pci.BARTypeMask == pci.BARType64 {
				if i == count-1 {
					broken = true
				} else {
					i++
					up := pci.RegBaseAddress0 + 4*i
					if r.have(up, 4) {
						hw |= uint64(r.buf.U32(up)) << 32
					}
				}
			}
		}

		var osBase uint64
		if d.Has(pci.KnownBases) {
			osBase = d.BaseAddr[idx]
		}
		var resFlags uint32
		if d.Has(pci.KnownFlags) {
			resFlags = d.Flags[idx]
		}

		// A region whose hardware BAR is unprogrammed but whose address
		// the OS reports was assigned by firmware: virtual.
		virtual := osBase != 0 && hw == 0 && resFlags&pci.ResEAEnhanced == 0

		base := hw
		if osBase != 0 {
			base = osBase
		}

		if flg == 0 && osBase == 0 && (!d.Has(pci.KnownSizes) || d.Size[idx] == 0) {
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "\tRegion %d: ", idx)

		if isIO {
			sb.WriteString("I/O ports at ")
			switch {
			case base != 0:
				fmt.Fprintf(&sb, "%04x", base)
			case flg&pci.BARIOMask != 0:
				sb.WriteString("<ignored>")
			default:
				sb.WriteString("<unassigned>")
			}
			if virtual {
				sb.WriteString(" [virtual]")
			} else if cmd&pci.CommandIO == 0 {
				sb.WriteString(" [disabled]")
			}
		} else {
			sb.WriteString("Memory at ")
			switch {
			case base != 0:
				fmt.Fprintf(&sb, "%x", base)
			case flg&uint32(pci.BARMemMask) != 0:
				sb.WriteString("<ignored>")
			default:
				sb.WriteString("<unassigned>")
			}
			pref := "non-prefetchable"
			if flg&pci.BARPrefetch != 0 {
				pref = "prefetchable"
			}
			fmt.Fprintf(&sb, " (%s, %s)", memTypeName(flg), pref)
			if virtual {
				sb.WriteString(" [virtual]")
			} else if cmd&pci.CommandMemory == 0 {
				sb.WriteString(" [disabled]")
			}
		}
		if resFlags&pci.ResEAEnhanced != 0 {
			sb.WriteString(" [enhanced]")
		}
		if broken {
			sb.WriteString(" <broken-64-bit-slot>")
		}
		if d.Has(pci.KnownSizes) && d.Size[idx] != 0 {
			fmt.Fprintf(&sb, " [size=%s]", sizeStr(d.Size[idx]))
		}
		r.lines = append(r.lines, sb.String())
	}
}

// showROM renders the expansion ROM register at the given offset (0x30
// for endpoints, 0x38 for bridges).
func (r *Renderer) showROM(pos int) {
	d := r.dev
	if !r.have(pos, 4) {
		return
	}
	flg := r.buf.U32(pos)
	if flg == 0xFFFFFFFF {
		flg = 0
	}
	cmd := r.u16or(pci.RegCommand, 0)

	var osBase uint64
	if d.Has(pci.KnownROM) {
		osBase = d.ROMBase
	}
	hw := uint64(flg & pci.ROMAddrMask)
	virtual := osBase != 0 && hw == 0

	base := hw
	if osBase != 0 {
		base = osBase
	}
	if flg == 0 && osBase == 0 && (!d.Has(pci.KnownROM) || d.ROMSize == 0) {
		return
	}

	var sb strings.Builder
	sb.WriteString("\tExpansion ROM at ")
	switch {
	case base != 0:
		fmt.Fprintf(&sb, "%x", base)
	case hw != 0:
		sb.WriteString("<ignored>")
	default:
		sb.WriteString("<unassigned>")
	}
	if virtual {
		sb.WriteString(" [virtual]")
	}
	if flg&pci.ROMEnable == 0 {
		sb.WriteString(" [disabled]")
	} else if cmd&pci.CommandMemory == 0 {
		sb.WriteString(" [disabled]")
	}
	if d.Has(pci.KnownROM) && d.ROMSize != 0 {
		fmt.Fprintf(&sb, " [size=%s]", sizeStr(d.ROMSize))
	}
	r.lines = append(r.lines, sb.String())
}
