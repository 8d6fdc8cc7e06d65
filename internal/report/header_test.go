package report

import (
	"testing"

	"github.com/sercanarga/pciscope/internal/pci"
)

// bridgeConfig builds a type 1 header with a 32-bit I/O window at
// 0x2000-0x3fff, a memory window at 0xf0000000-0xf1ffffff, and a
// disabled prefetchable window.
func bridgeConfig() []byte {
	data := make([]byte, 64)
	put16(data, pci.RegVendorID, 0x8086)
	put16(data, pci.RegDeviceID, 0x244E)
	put16(data, pci.RegCommand, 0x0007)
	data[pci.RegSubClass] = 0x04
	data[pci.RegBaseClass] = 0x06
	data[pci.RegHeaderType] = 0x01
	data[pci.RegSecondaryBus] = 0x01
	data[pci.RegSubordinateBus] = 0x05
	data[pci.RegIOBase] = 0x21
	data[pci.RegIOLimit] = 0x31
	put16(data, pci.RegMemoryBase, 0xF000)
	put16(data, pci.RegMemoryLimit, 0xF1F0)
	put16(data, pci.RegPrefMemoryBase, 0xFFF1)
	put16(data, pci.RegPrefMemoryLimit, 0x0001)
	return data
}

func bridgeRenderer(t *testing.T, dev *pci.Device, data []byte) *Renderer {
	t.Helper()
	buf := pci.NewConfigBuffer(&memAccessor{data: data})
	if !buf.Fetch(0, 64) {
		t.Fatal("Fetch failed")
	}
	return &Renderer{dev: dev, buf: buf, names: testDB()}
}

func TestShowType1Windows(t *testing.T) {
	r := bridgeRenderer(t, &pci.Device{}, bridgeConfig())
	r.showType1()
	lines := r.lines

	if !containsLine(lines, "Bus: primary=00, secondary=01, subordinate=05, sec-latency=0") {
		t.Errorf("missing bus line:\n%s", joinLines(lines))
	}
	// The I/O limit register holds the window's top page: 0x31 decodes
	// to a limit of 0x3fff, not 0x31ff.
	if !containsLine(lines, "\tI/O behind bridge: 00002000-00003fff") {
		t.Errorf("missing I/O window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\tMemory behind bridge: f0000000-f1ffffff") {
		t.Errorf("missing memory window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "Prefetchable memory behind bridge: 00000000fff00000-00000000000fffff [disabled]") {
		t.Errorf("missing disabled prefetchable window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "Secondary status:") || !containsLine(lines, "BridgeCtl:") {
		t.Errorf("missing bridge status lines:\n%s", joinLines(lines))
	}
}

func TestShowType1RangeTypeMismatch(t *testing.T) {
	data := bridgeConfig()
	data[pci.RegIOLimit] = 0x30 // limit claims 16-bit, base claims 32-bit

	r := bridgeRenderer(t, &pci.Device{}, data)
	r.showType1()

	if !containsLine(r.lines, "!!! Unknown I/O range types 1/0") {
		t.Errorf("missing range type warning:\n%s", joinLines(r.lines))
	}
}

func TestShowType1SuppressedAndSizedWindows(t *testing.T) {
	// Zeroed I/O registers plus a zero OS size: the window is gone, not
	// rendered as disabled. The live memory window picks up its size.
	data := bridgeConfig()
	data[pci.RegIOBase] = 0
	data[pci.RegIOLimit] = 0
	put16(data, pci.RegPrefMemoryBase, 0)
	put16(data, pci.RegPrefMemoryLimit, 0)

	dev := &pci.Device{}
	dev.Known |= pci.KnownBridgeBases
	dev.BridgeBase[1] = 0xF0000000
	dev.BridgeSize[1] = 0x2000000

	r := bridgeRenderer(t, dev, data)
	r.showType1()

	if containsLine(r.lines, "I/O behind bridge") {
		t.Errorf("suppressed I/O window rendered:\n%s", joinLines(r.lines))
	}
	if containsLine(r.lines, "Prefetchable memory behind bridge") {
		t.Errorf("suppressed prefetchable window rendered:\n%s", joinLines(r.lines))
	}
	if !containsLine(r.lines, "\tMemory behind bridge: f0000000-f1ffffff [size=32M]") {
		t.Errorf("missing sized memory window:\n%s", joinLines(r.lines))
	}
}

func TestClassHeaderMismatchWarning(t *testing.T) {
	// Type 1 header on an endpoint class.
	data := bridgeConfig()
	data[pci.RegSubClass] = 0x00
	data[pci.RegBaseClass] = 0x02

	dev := &pci.Device{
		Addr:        pci.BDF{Bus: 0, Slot: 0x1C, Function: 0},
		VendorID:    0x8086,
		DeviceID:    0x244E,
		DeviceClass: 0x0200,
		NUMANode:    -1,
	}
	lines := renderDevice(t, dev, data, nil, Options{Verbosity: 1})

	if !containsLine(lines, "!!! Invalid class 0200 for header type 01") {
		t.Errorf("missing class mismatch warning:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "I/O behind bridge") {
		t.Errorf("decoding did not follow the header type:\n%s", joinLines(lines))
	}
}

// cardbusConfig builds a type 2 header with one memory and one I/O
// window plus the legacy mode register in the extended half.
func cardbusConfig() []byte {
	data := make([]byte, 128)
	put16(data, pci.RegVendorID, 0x104C)
	put16(data, pci.RegDeviceID, 0xAC56)
	put16(data, pci.RegCommand, 0x0007)
	data[pci.RegSubClass] = 0x07
	data[pci.RegBaseClass] = 0x06
	data[pci.RegHeaderType] = 0x02
	data[pci.RegCBCardBusNumber] = 0x02
	data[pci.RegCBSubordinate] = 0x02
	data[pci.RegCBLatencyTimer] = 0xA8
	put32(data, pci.RegCBMemBase0, 0x20000000)
	put32(data, pci.RegCBMemLimit0, 0x20003000)
	put32(data, pci.RegCBIOBase0, 0x00004001)
	put32(data, pci.RegCBIOLimit0, 0x000040FC)
	put16(data, pci.RegCBBridgeControl, pci.CBCtlPrefetch0)
	put16(data, pci.RegCBLegacyModeBase, 0x03E0)
	return data
}

func cardbusDevice() *pci.Device {
	return &pci.Device{
		Addr:        pci.BDF{Bus: 5, Slot: 0, Function: 0},
		VendorID:    0x104C,
		DeviceID:    0xAC56,
		DeviceClass: 0x0607,
		NUMANode:    -1,
	}
}

func TestShowType2(t *testing.T) {
	lines := renderDevice(t, cardbusDevice(), cardbusConfig(), nil, Options{Verbosity: 1})

	if !containsLine(lines, "Bus: primary=00, secondary=02, subordinate=02, sec-latency=168") {
		t.Errorf("missing bus line:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\tMemory window 0: 20000000-20003fff (prefetchable)") {
		t.Errorf("missing memory window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\tI/O window 0: 00004000-000040ff") {
		t.Errorf("missing I/O window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\t16-bit legacy interface ports at 03e0") {
		t.Errorf("missing legacy ports line:\n%s", joinLines(lines))
	}
	if containsLine(lines, "Memory window 1:") || containsLine(lines, "I/O window 1:") {
		t.Errorf("empty windows rendered:\n%s", joinLines(lines))
	}
	if containsLine(lines, "!!!") {
		t.Errorf("unexpected warning:\n%s", joinLines(lines))
	}
}

func TestShowType2ExtensionDenied(t *testing.T) {
	lines := renderDevice(t, cardbusDevice(), cardbusConfig(),
		func(pos, n int) bool { return pos >= 64 }, Options{Verbosity: 1})

	if !containsLine(lines, "<access denied to the rest>") {
		t.Errorf("missing access denied marker:\n%s", joinLines(lines))
	}
	if containsLine(lines, "legacy interface ports") {
		t.Errorf("extended registers decoded without access:\n%s", joinLines(lines))
	}
}

func TestShowOSWindowsFallback(t *testing.T) {
	dev := &pci.Device{
		Addr:        pci.BDF{Bus: 0, Slot: 0x1E, Function: 0},
		DeviceClass: 0x0604,
		NUMANode:    -1,
	}
	dev.Known |= pci.KnownBridgeBases
	dev.BridgeBase[0] = 0x2000
	dev.BridgeSize[0] = 0x1000
	dev.BridgeFlags[0] = pci.ResIO | pci.ResMem16BitAddr
	dev.BridgeBase[1] = 0xF0000000
	dev.BridgeSize[1] = 0x2000000
	dev.BridgeFlags[1] = pci.ResMem
	dev.BridgeBase[2] = 0x380000000000
	dev.BridgeSize[2] = 0x10000000
	dev.BridgeFlags[2] = pci.ResMem | pci.ResPrefetch | pci.ResMem64

	lines := renderDevice(t, dev, nil,
		func(pos, n int) bool { return true }, Options{Verbosity: 1})

	if !containsLine(lines, "!!! Unable to read the standard configuration space") {
		t.Errorf("missing access warning:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\tI/O behind bridge: 2000-2fff [size=4K]") {
		t.Errorf("missing I/O window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\tMemory behind bridge: f0000000-f1ffffff [size=32M]") {
		t.Errorf("missing memory window:\n%s", joinLines(lines))
	}
	if !containsLine(lines, "\tPrefetchable memory behind bridge: 0000380000000000-000038000fffffff [size=256M]") {
		t.Errorf("missing prefetchable window:\n%s", joinLines(lines))
	}
}
