// Package sysfs reads PCI device metadata and configuration space from
// Linux sysfs. It is the access layer the decoder consumes: device
// iteration, positioned all-or-nothing config reads, VPD reads, and
// OS-reported resource fill.
package sysfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/sercanarga/pciscope/internal/pci"
)

const (
	devicesBasePath = "/sys/bus/pci/devices"
	slotsBasePath   = "/sys/bus/pci/slots"
)

// Linux IORESOURCE_* bits as they appear in the sysfs resource file.
const (
	ioresourceIO       = 0x00000100
	ioresourceMem      = 0x00000200
	ioresourcePrefetch = 0x00002000
	ioresourceMem64    = 0x00100000
)

// Reader reads PCI device information from a sysfs tree.
type Reader struct {
	basePath  string
	slotsPath string
}

// New creates a Reader over the default sysfs paths.
func New() *Reader {
	return &Reader{basePath: devicesBasePath, slotsPath: slotsBasePath}
}

// NewWithPath creates a Reader over a custom device tree (for testing).
func NewWithPath(basePath string) *Reader {
	return &Reader{basePath: basePath, slotsPath: filepath.Join(basePath, "..", "slots")}
}

// Devices returns snapshots for all PCI functions found in sysfs, with
// identity fields filled. Resources and the rest of the metadata are
// filled on demand by FillInfo.
func (r *Reader) Devices() ([]*pci.Device, error) {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sysfs: %w", err)
	}

	var devices []*pci.Device
	for _, entry := range entries {
		name := entry.Name()
		bdf, err := pci.ParseBDF(name)
		if err != nil {
			logrus.Debugf("sysfs: skipping %q: %v", name, err)
			continue
		}
		dev, err := r.readIdentity(bdf)
		if err != nil {
			logrus.Debugf("sysfs: skipping %s: %v", bdf, err)
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// readIdentity reads the identity files of one device.
func (r *Reader) readIdentity(bdf pci.BDF) (*pci.Device, error) {
	devPath := filepath.Join(r.basePath, bdf.String())
	dev := &pci.Device{Addr: bdf, NUMANode: -1}

	var err error
	dev.VendorID, err = readHex16(devPath, "vendor")
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor ID: %w", err)
	}
	dev.DeviceID, err = readHex16(devPath, "device")
	if err != nil {
		return nil, fmt.Errorf("failed to read device ID: %w", err)
	}

	// The class file holds base class, sub class, and prog-if packed into
	// one 24-bit value.
	if classCode, err := readHex32(devPath, "class"); err == nil {
		dev.DeviceClass = uint16(classCode >> 8)
		dev.ProgIF = uint8(classCode)
	}
	if rev, err := readHex8(devPath, "revision"); err == nil {
		dev.RevID = rev
	}
	dev.SubsysVendorID, _ = readHex16(devPath, "subsystem_vendor")
	dev.SubsysID, _ = readHex16(devPath, "subsystem_device")

	return dev, nil
}

// FillInfo populates the OS-reported resources and metadata of dev,
// setting the known-field bits for everything that could be read.
func (r *Reader) FillInfo(dev *pci.Device) {
	devPath := filepath.Join(r.basePath, dev.Addr.String())

	r.fillResources(dev, devPath)

	if data, err := os.ReadFile(filepath.Join(devPath, "irq")); err == nil {
		if irq, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			dev.IRQ = irq
			dev.Known |= pci.KnownIRQ
		}
	}
	if data, err := os.ReadFile(filepath.Join(devPath, "numa_node")); err == nil {
		if node, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			dev.NUMANode = node
			dev.Known |= pci.KnownNUMANode
		}
	}
	if data, err := os.ReadFile(filepath.Join(devPath, "label")); err == nil {
		dev.Label = strings.TrimSpace(string(data))
		dev.Known |= pci.KnownLabel
	}
	if data, err := os.ReadFile(filepath.Join(devPath, "devspec")); err == nil {
		dev.DTNode = strings.TrimSpace(string(data))
		dev.Known |= pci.KnownDTNode
	}
	if link, err := os.Readlink(filepath.Join(devPath, "iommu_group")); err == nil {
		dev.IOMMUGroup = filepath.Base(link)
		dev.Known |= pci.KnownIOMMUGroup
	}
	r.fillPhySlot(dev)
}

// fillResources parses the sysfs resource file: six BAR lines, the ROM
// line, then the bridge window lines, each "start end flags".
func (r *Reader) fillResources(dev *pci.Device, devPath string) {
	f, err := os.Open(filepath.Join(devPath, "resource"))
	if err != nil {
		logrus.Debugf("sysfs: %s: no resource file: %v", dev.Addr, err)
		return
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	for i, line := range lines {
		var start, end, flags uint64
		if n, _ := fmt.Sscanf(line, "0x%x 0x%x 0x%x", &start, &end, &flags); n != 3 {
			continue
		}
		size := uint64(0)
		if start != 0 || end != 0 {
			size = end - start + 1
		}
		switch {
		case i < 6:
			dev.BaseAddr[i] = start
			dev.Size[i] = size
			dev.Flags[i] = resourceFlags(flags)
			dev.Known |= pci.KnownBases | pci.KnownSizes | pci.KnownFlags
		case i == 6:
			dev.ROMBase = start
			dev.ROMSize = size
			dev.ROMFlags = resourceFlags(flags)
			dev.Known |= pci.KnownROM
		case i < 11:
			dev.BridgeBase[i-7] = start
			dev.BridgeSize[i-7] = size
			dev.BridgeFlags[i-7] = resourceFlags(flags)
			dev.Known |= pci.KnownBridgeBases
		}
	}
}

// resourceFlags normalizes IORESOURCE bits into the pci.Res* bitset.
func resourceFlags(flags uint64) uint32 {
	var out uint32
	if flags&ioresourceIO != 0 {
		out |= pci.ResIO
	}
	if flags&ioresourceMem != 0 {
		out |= pci.ResMem
	}
	if flags&ioresourceMem64 != 0 {
		out |= pci.ResMem64
	}
	if flags&ioresourcePrefetch != 0 {
		out |= pci.ResPrefetch
	}
	return out
}

// fillPhySlot matches the device against /sys/bus/pci/slots entries; a
// slot address covers all functions of one device.
func (r *Reader) fillPhySlot(dev *pci.Device) {
	entries, err := os.ReadDir(r.slotsPath)
	if err != nil {
		return
	}
	want := fmt.Sprintf("%04x:%02x:%02x", dev.Addr.Domain, dev.Addr.Bus, dev.Addr.Slot)
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(r.slotsPath, entry.Name(), "address"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == want {
			dev.PhySlot = entry.Name()
			dev.Known |= pci.KnownPhySlot
			return
		}
	}
}

// Files gives positioned access to a device's config and vpd attribute
// files. It implements the decoder's Accessor and VPDSource contracts.
type Files struct {
	devPath string
	config  *os.File
	vpd     *os.File
}

// Files returns the accessor for one device. Files are opened lazily on
// first read and held until Close.
func (r *Reader) Files(bdf pci.BDF) *Files {
	return &Files{devPath: filepath.Join(r.basePath, bdf.String())}
}

// preadFull reads len(buf) bytes at off. Either the whole range is read
// or the read fails; partial reads count as failure.
func preadFull(f *os.File, pos int, buf []byte) bool {
	n, err := unix.Pread(int(f.Fd()), buf, int64(pos))
	if err != nil || n != len(buf) {
		logrus.Debugf("sysfs: pread %s at %#x len %d: n=%d err=%v", f.Name(), pos, len(buf), n, err)
		return false
	}
	return true
}

// ReadConfig reads config-space bytes; all-or-nothing.
func (fa *Files) ReadConfig(pos int, buf []byte) bool {
	if fa.config == nil {
		f, err := os.Open(filepath.Join(fa.devPath, "config"))
		if err != nil {
			logrus.Debugf("sysfs: %v", err)
			return false
		}
		fa.config = f
	}
	return preadFull(fa.config, pos, buf)
}

// ReadVPD reads bytes from the VPD attribute; all-or-nothing.
func (fa *Files) ReadVPD(pos int, buf []byte) bool {
	if fa.vpd == nil {
		f, err := os.Open(filepath.Join(fa.devPath, "vpd"))
		if err != nil {
			logrus.Debugf("sysfs: %v", err)
			return false
		}
		fa.vpd = f
	}
	return preadFull(fa.vpd, pos, buf)
}

// Close releases the attribute files.
func (fa *Files) Close() {
	if fa.config != nil {
		fa.config.Close()
		fa.config = nil
	}
	if fa.vpd != nil {
		fa.vpd.Close()
		fa.vpd = nil
	}
}

func readHex16(devPath, name string) (uint16, error) {
	v, err := readHex(devPath, name, 16)
	return uint16(v), err
}

func readHex32(devPath, name string) (uint32, error) {
	v, err := readHex(devPath, name, 32)
	return uint32(v), err
}

func readHex8(devPath, name string) (uint8, error) {
	v, err := readHex(devPath, name, 8)
	return uint8(v), err
}

func readHex(devPath, name string, bits int) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(devPath, name))
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 0, bits)
}
