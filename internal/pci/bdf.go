// Package pci defines PCI device types, the sparse config-space buffer,
// register constants, and the pci.ids name database.
package pci

import (
	"fmt"
	"strings"
)

// BDF represents a PCI Domain:Bus:Device.Function address.
type BDF struct {
	Domain   uint16
	Bus      uint8
	Slot     uint8
	Function uint8
}

// ParseBDF parses a BDF string in the format "DDDD:BB:SS.F" or "BB:SS.F".
func ParseBDF(s string) (BDF, error) {
	s = strings.TrimSpace(s)
	var bdf BDF

	// Try full format: DDDD:BB:SS.F
	n, err := fmt.Sscanf(s, "%x:%x:%x.%x", &bdf.Domain, &bdf.Bus, &bdf.Slot, &bdf.Function)
	if err == nil && n == 4 {
		return bdf, nil
	}

	// Try short format: BB:SS.F (domain defaults to 0)
	n, err = fmt.Sscanf(s, "%x:%x.%x", &bdf.Bus, &bdf.Slot, &bdf.Function)
	if err == nil && n == 3 {
		bdf.Domain = 0
		return bdf, nil
	}

	return BDF{}, fmt.Errorf("invalid BDF format %q: expected DDDD:BB:SS.F or BB:SS.F", s)
}

// String returns the canonical BDF representation: "DDDD:BB:SS.F".
func (b BDF) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", b.Domain, b.Bus, b.Slot, b.Function)
}

// Short returns the short BDF representation without domain: "BB:SS.F".
func (b BDF) Short() string {
	return fmt.Sprintf("%02x:%02x.%x", b.Bus, b.Slot, b.Function)
}

// Less orders addresses by domain, bus, slot, function.
func (b BDF) Less(o BDF) bool {
	if b.Domain != o.Domain {
		return b.Domain < o.Domain
	}
	if b.Bus != o.Bus {
		return b.Bus < o.Bus
	}
	if b.Slot != o.Slot {
		return b.Slot < o.Slot
	}
	return b.Function < o.Function
}
