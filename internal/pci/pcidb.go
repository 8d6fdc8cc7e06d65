package pci

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DB holds name mappings parsed from a pci.ids file.
type DB struct {
	Vendors    map[uint16]string // vendor -> name
	Devices    map[uint32]string // vendor<<16 | device -> name
	Subsystems map[uint64]string // vendor<<48 | device<<32 | svendor<<16 | sdevice -> name
	Classes    map[uint16]string // base<<8 | sub -> name
	BaseClass  map[uint8]string  // base -> name
	ProgIFs    map[uint32]string // base<<16 | sub<<8 | progif -> name
}

// pci.ids search paths (same as lspci).
var pciIDPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/misc/pci.ids",
	"/usr/share/pci.ids",
}

// NewDB returns an empty database.
func NewDB() *DB {
	return &DB{
		Vendors:    make(map[uint16]string),
		Devices:    make(map[uint32]string),
		Subsystems: make(map[uint64]string),
		Classes:    make(map[uint16]string),
		BaseClass:  make(map[uint8]string),
		ProgIFs:    make(map[uint32]string),
	}
}

// LoadDB loads the PCI ID database. A non-empty path overrides the
// standard search list. Lookup methods fall back to hex names, so a
// missing database is not an error.
func LoadDB(path string) *DB {
	if path != "" {
		if db, err := parseIDs(path); err == nil {
			return db
		}
		return NewDB()
	}
	for _, p := range pciIDPaths {
		if db, err := parseIDs(p); err == nil {
			return db
		}
	}
	return NewDB()
}

func subsysKey(vendor, device, svendor, sdevice uint16) uint64 {
	return uint64(vendor)<<48 | uint64(device)<<32 | uint64(svendor)<<16 | uint64(sdevice)
}

// VendorName returns the vendor name or a hex fallback.
func (db *DB) VendorName(vendor uint16) string {
	if name, ok := db.Vendors[vendor]; ok {
		return name
	}
	return fmt.Sprintf("Vendor %04x", vendor)
}

// DeviceName returns the device name or a hex fallback.
func (db *DB) DeviceName(vendor, device uint16) string {
	if name, ok := db.Devices[uint32(vendor)<<16|uint32(device)]; ok {
		return name
	}
	return fmt.Sprintf("Device %04x", device)
}

// SubsystemName returns the subsystem name, falling back to the subsystem
// vendor and a hex device name.
func (db *DB) SubsystemName(vendor, device, svendor, sdevice uint16) string {
	if name, ok := db.Subsystems[subsysKey(vendor, device, svendor, sdevice)]; ok {
		return name
	}
	return fmt.Sprintf("%s Device %04x", db.VendorName(svendor), sdevice)
}

// ClassName returns the class name or a hex fallback.
func (db *DB) ClassName(class uint16) string {
	if name, ok := db.Classes[class]; ok {
		return name
	}
	if name, ok := db.BaseClass[uint8(class>>8)]; ok {
		return name
	}
	return fmt.Sprintf("Class %04x", class)
}

// ProgIFName returns the programming-interface name or "" when unknown.
func (db *DB) ProgIFName(class uint16, progIF uint8) string {
	return db.ProgIFs[uint32(class)<<8|uint32(progIF)]
}

// parseIDs parses a pci.ids file. The device section uses one level of
// indentation per nesting step; the class section starts with "C ".
//
//	VVVV  Vendor Name
//	\tDDDD  Device Name
//	\t\tSSSS ssss  Subsystem Name
//	C BB  Base Class Name
//	\tSS  Sub Class Name
//	\t\tPP  Prog-IF Name
func parseIDs(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	db := NewDB()

	var (
		inClasses    bool
		curVendor    uint16
		curDevice    uint16
		haveDevice   bool
		curBaseClass uint8
		curClass     uint16
		haveSubClass bool
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if strings.HasPrefix(line, "C ") {
			inClasses = true
			if id := parseHexN(line[2:4]); id >= 0 {
				curBaseClass = uint8(id)
				db.BaseClass[curBaseClass] = strings.TrimSpace(line[4:])
			}
			haveSubClass = false
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			body := line[2:]
			if inClasses {
				if !haveSubClass || len(body) < 3 {
					continue
				}
				if id := parseHexN(body[:2]); id >= 0 {
					key := uint32(curClass)<<8 | uint32(id)
					db.ProgIFs[key] = strings.TrimSpace(body[2:])
				}
			} else {
				if !haveDevice || len(body) < 10 {
					continue
				}
				sv := parseHexN(body[:4])
				sd := parseHexN(body[5:9])
				if sv >= 0 && sd >= 0 {
					key := subsysKey(curVendor, curDevice, uint16(sv), uint16(sd))
					db.Subsystems[key] = strings.TrimSpace(body[9:])
				}
			}

		case line[0] == '\t':
			body := line[1:]
			if inClasses {
				if len(body) < 3 {
					continue
				}
				if id := parseHexN(body[:2]); id >= 0 {
					curClass = uint16(curBaseClass)<<8 | uint16(id)
					db.Classes[curClass] = strings.TrimSpace(body[2:])
					haveSubClass = true
				}
			} else {
				if len(body) < 5 {
					continue
				}
				if id := parseHexN(body[:4]); id >= 0 {
					curDevice = uint16(id)
					haveDevice = true
					key := uint32(curVendor)<<16 | uint32(curDevice)
					db.Devices[key] = strings.TrimSpace(body[4:])
				}
			}

		default:
			if inClasses || len(line) < 5 {
				continue
			}
			if id := parseHexN(line[:4]); id >= 0 {
				curVendor = uint16(id)
				haveDevice = false
				db.Vendors[curVendor] = strings.TrimSpace(line[4:])
			}
		}
	}

	return db, scanner.Err()
}

// parseHexN parses a fixed-width lowercase/uppercase hex field, returning
// -1 on any non-hex character.
func parseHexN(s string) int {
	val := 0
	for _, c := range s {
		val <<= 4
		switch {
		case c >= '0' && c <= '9':
			val |= int(c - '0')
		case c >= 'a' && c <= 'f':
			val |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			val |= int(c-'A') + 10
		default:
			return -1
		}
	}
	return val
}
