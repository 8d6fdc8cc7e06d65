package report

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/sercanarga/pciscope/internal/pci"
)

// memAccessor serves config reads from a byte slice, optionally denying
// selected ranges.
type memAccessor struct {
	data []byte
	deny func(pos, n int) bool
}

func (m *memAccessor) ReadConfig(pos int, buf []byte) bool {
	if m.deny != nil && m.deny(pos, len(buf)) {
		return false
	}
	if pos+len(buf) > len(m.data) {
		return false
	}
	copy(buf, m.data[pos:pos+len(buf)])
	return true
}

func put16(data []byte, pos int, v uint16) {
	binary.LittleEndian.PutUint16(data[pos:pos+2], v)
}

func put32(data []byte, pos int, v uint32) {
	binary.LittleEndian.PutUint32(data[pos:pos+4], v)
}

// testDB covers the IDs the scenarios use.
func testDB() *pci.DB {
	db := pci.NewDB()
	db.Vendors[0x8086] = "Intel Corporation"
	db.Devices[0x8086<<16|0x100E] = "82540EM Gigabit Ethernet Controller"
	db.Classes[0x0200] = "Ethernet controller"
	db.Classes[0x0604] = "PCI bridge"
	db.Classes[0x0607] = "CardBus bridge"
	return db
}

// renderDevice fetches the standard header and renders with the given
// options.
func renderDevice(t *testing.T, dev *pci.Device, data []byte, deny func(pos, n int) bool, opt Options) []string {
	t.Helper()
	buf := pci.NewConfigBuffer(&memAccessor{data: data, deny: deny})
	if !buf.Fetch(0, 64) {
		dev.NoConfigAccess = true
	} else if buf.U8(pci.RegHeaderType)&0x7F == pci.HeaderTypeCardBus {
		buf.Fetch(64, 64)
	}
	return Render(dev, buf, testDB(), nil, opt)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if strings.Contains(l, want) {
			return true
		}
	}
	return false
}

// ethernetConfig builds the S1 endpoint: Intel 82540EM with one memory
// BAR and one I/O BAR, I/O+Mem+BusMaster enabled.
func ethernetConfig() []byte {
	data := make([]byte, 256)
	put16(data, pci.RegVendorID, 0x8086)
	put16(data, pci.RegDeviceID, 0x100E)
	put16(data, pci.RegCommand, 0x0007)
	data[pci.RegSubClass] = 0x00
	data[pci.RegBaseClass] = 0x02
	data[pci.RegHeaderType] = 0x00
	put32(data, 0x10, 0xFEBC0000)
	put32(data, 0x14, 0x0000E001)
	return data
}

func ethernetDevice() *pci.Device {
	return &pci.Device{
		Addr:        pci.BDF{Bus: 2, Slot: 1, Function: 0},
		VendorID:    0x8086,
		DeviceID:    0x100E,
		DeviceClass: 0x0200,
		NUMANode:    -1,
	}
}

func TestTerseEndpoint(t *testing.T) {
	lines := renderDevice(t, ethernetDevice(), ethernetConfig(), nil, Options{})
	if len(lines) != 1 {
		t.Fatalf("terse mode produced %d lines:\n%s", len(lines), joinLines(lines))
	}
	want := "02:01.0 Ethernet controller: Intel Corporation 82540EM Gigabit Ethernet Controller"
	if lines[0] != want {
		t.Errorf("terse line = %q, want %q", lines[0], want)
	}
}

func TestTerseRevision(t *testing.T) {
	dev := ethernetDevice()
	dev.RevID = 0x02
	lines := renderDevice(t, dev, ethernetConfig(), nil, Options{})
	if !strings.HasSuffix(lines[0], "(rev 02)") {
		t.Errorf("terse line missing revision: %q", lines[0])
	}
}

func TestVerboseEndpointRegions(t *testing.T) {
	lines := renderDevice(t, ethernetDevice(), ethernetConfig(), nil, Options{Verbosity: 1})

	if !containsLine(lines, "Region 0: Memory at febc0000 (32-bit, non-prefetchable)") {
		t.Errorf("missing memory region:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "Region 1: I/O ports at e000") {
		t.Errorf("missing I/O region:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "Control: I/O+ Mem+ BusMaster+") {
		t.Errorf("missing control line:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "Status: Cap- 66MHz-") {
		t.Errorf("missing status line:\n%s", joinLines(lines))
	}
	if containsLine(lines, "!!!") {
		t.Errorf("unexpected warning:\n%s", joinLines(lines))
	}
}

func TestNoConfigAccess(t *testing.T) {
	dev := ethernetDevice()
	lines := renderDevice(t, dev, ethernetConfig(),
		func(pos, n int) bool { return true }, Options{Verbosity: 1})

	if !dev.NoConfigAccess {
		t.Fatal("NoConfigAccess not set")
	}
	if !strings.Contains(lines[0], "Ethernet controller") {
		t.Errorf("terse header missing: %q", lines[0])
	}
	if !containsLine(lines, "!!! Unable to read the standard configuration space") {
		t.Errorf("missing access warning:\n%s", joinLines(lines))
	}
}

func TestWithheldBytesOmitField(t *testing.T) {
	// Withholding the second half of the header must not panic; the
	// affected fields just disappear.
	dev := ethernetDevice()
	buf := pci.NewConfigBuffer(&memAccessor{
		data: ethernetConfig(),
		deny: func(pos, n int) bool { return pos+n > 32 },
	})
	buf.Fetch(0, 32)
	lines := Render(dev, buf, testDB(), nil, Options{Verbosity: 1})

	if !containsLine(lines, "Region 0:") {
		t.Errorf("BAR0 lies within the cached range and must render:\n%s", joinLines(lines))
	}
	if containsLine(lines, "Region 5:") || containsLine(lines, "Expansion ROM") {
		t.Errorf("fields beyond the cached range must be omitted:\n%s", joinLines(lines))
	}
}
