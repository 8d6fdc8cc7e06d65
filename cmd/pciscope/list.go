package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/sercanarga/pciscope/internal/pci"
	"github.com/sercanarga/pciscope/internal/report"
	"github.com/sercanarga/pciscope/internal/sysfs"
)

// runList scans the bus, decodes each selected device, and prints its
// report.
func runList() error {
	reader := sysfs.New()
	devices, err := reader.Devices()
	if err != nil {
		return fmt.Errorf("failed to scan devices: %w", err)
	}

	slotF, err := parseSlotFilter(flagSlot)
	if err != nil {
		return err
	}
	idF, err := parseIDFilter(flagID)
	if err != nil {
		return err
	}

	db := pci.LoadDB(flagIDsPath)

	opt := report.Options{
		Verbosity: flagVerbose,
		ShowHex:   flagHex,
		Color:     !color.NoColor,
	}
	switch {
	case flagMachineMM:
		opt.Machine = report.MachineVerbose
	case flagMachine:
		opt.Machine = report.MachineTerse
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Addr.Less(devices[j].Addr)
	})

	multiline := opt.Machine == report.MachineVerbose || (opt.Machine == report.MachineNone && opt.Verbosity > 0)
	for _, dev := range devices {
		if !slotF.match(dev.Addr) || !idF.match(dev) {
			continue
		}
		for _, line := range scanDevice(reader, db, dev, opt) {
			fmt.Println(line)
		}
		if multiline {
			fmt.Println()
		}
	}
	return nil
}

// scanDevice performs the per-device read policy and renders the report.
func scanDevice(reader *sysfs.Reader, db *pci.DB, dev *pci.Device, opt report.Options) []string {
	files := reader.Files(dev.Addr)
	defer files.Close()

	buf := pci.NewConfigBuffer(files)
	if !buf.Fetch(0, pci.ConfigHeaderSize) {
		dev.NoConfigAccess = true
	} else if buf.U8(pci.RegHeaderType)&0x7F == pci.HeaderTypeCardBus {
		buf.Fetch(pci.ConfigHeaderSize, pci.ConfigHeaderSize)
	}

	// Hex-dump extensions are best-effort; a failed extension just
	// shortens the dump.
	if !dev.NoConfigAccess {
		switch {
		case opt.ShowHex >= 4:
			buf.Fetch(0, pci.ConfigSpaceExtended)
		case opt.ShowHex == 3:
			buf.Fetch(0, pci.ConfigSpaceLegacy)
		case opt.ShowHex == 2:
			buf.Fetch(0, 128)
		}
	}

	reader.FillInfo(dev)
	return report.Render(dev, buf, db, files, opt)
}

// slotFilter selects devices by address; -1 fields are wildcards.
type slotFilter struct {
	domain, bus, slot, fn int
}

func (f slotFilter) match(a pci.BDF) bool {
	if f.domain >= 0 && int(a.Domain) != f.domain {
		return false
	}
	if f.bus >= 0 && int(a.Bus) != f.bus {
		return false
	}
	if f.slot >= 0 && int(a.Slot) != f.slot {
		return false
	}
	if f.fn >= 0 && int(a.Function) != f.fn {
		return false
	}
	return true
}

// parseSlotFilter parses [[[domain]:]bus:][slot][.func].
func parseSlotFilter(s string) (slotFilter, error) {
	f := slotFilter{domain: -1, bus: -1, slot: -1, fn: -1}
	if s == "" {
		return f, nil
	}

	rest := s
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		if v, err := parseHexField(rest[i+1:], 7); err != nil {
			return f, fmt.Errorf("invalid slot filter %q: %w", s, err)
		} else {
			f.fn = v
		}
		rest = rest[:i]
	}

	parts := strings.Split(rest, ":")
	if len(parts) > 3 {
		return f, fmt.Errorf("invalid slot filter %q", s)
	}
	// Fields bind right to left: slot, then bus, then domain.
	fields := []*int{&f.slot, &f.bus, &f.domain}
	limits := []int{0x1F, 0xFF, 0xFFFF}
	for i := 0; i < len(parts); i++ {
		v, err := parseHexField(parts[len(parts)-1-i], limits[i])
		if err != nil {
			return f, fmt.Errorf("invalid slot filter %q: %w", s, err)
		}
		*fields[i] = v
	}
	return f, nil
}

// idFilter selects devices by vendor/device ID; -1 fields are wildcards.
type idFilter struct {
	vendor, device int
}

func (f idFilter) match(d *pci.Device) bool {
	if f.vendor >= 0 && int(d.VendorID) != f.vendor {
		return false
	}
	if f.device >= 0 && int(d.DeviceID) != f.device {
		return false
	}
	return true
}

// parseIDFilter parses [vendor]:[device].
func parseIDFilter(s string) (idFilter, error) {
	f := idFilter{vendor: -1, device: -1}
	if s == "" {
		return f, nil
	}
	vs, ds, ok := strings.Cut(s, ":")
	if !ok {
		return f, fmt.Errorf("invalid device filter %q: expected [vendor]:[device]", s)
	}
	var err error
	if f.vendor, err = parseHexField(vs, 0xFFFF); err != nil {
		return f, fmt.Errorf("invalid device filter %q: %w", s, err)
	}
	if f.device, err = parseHexField(ds, 0xFFFF); err != nil {
		return f, fmt.Errorf("invalid device filter %q: %w", s, err)
	}
	return f, nil
}

// parseHexField parses one hex filter field; empty or "*" is a wildcard.
func parseHexField(s string, max int) (int, error) {
	if s == "" || s == "*" {
		return -1, nil
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return -1, err
	}
	if int(v) > max {
		return -1, fmt.Errorf("value %x out of range", v)
	}
	return int(v), nil
}
