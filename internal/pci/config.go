package pci

import (
	"encoding/binary"
	"fmt"
)

// Config space sizes: 64-byte header, 256-byte legacy space, 4KB extended.
const (
	ConfigHeaderSize    = 64
	ConfigSpaceLegacy   = 256
	ConfigSpaceExtended = 4096
	configInitialSize   = 64
)

// Accessor reads raw config-space bytes for one device. ReadConfig fills
// buf from byte offset pos and reports success; there are no partial
// reads, either len(buf) bytes are written or none.
type Accessor interface {
	ReadConfig(pos int, buf []byte) bool
}

// ConfigBuffer is a growable sparse snapshot of one device's config space.
// Every byte carries a "present" bit so decoders can distinguish a byte
// that was never read from a byte that read as zero.
type ConfigBuffer struct {
	acc     Accessor
	data    []byte
	present []bool
}

// NewConfigBuffer creates an empty buffer over the given accessor with the
// initial 64-byte capacity.
func NewConfigBuffer(acc Accessor) *ConfigBuffer {
	return &ConfigBuffer{
		acc:     acc,
		data:    make([]byte, configInitialSize),
		present: make([]bool, configInitialSize),
	}
}

// Len returns the current capacity in bytes.
func (cb *ConfigBuffer) Len() int {
	return len(cb.data)
}

// Ensure grows the buffer by doubling until pos+n fits, up to the 4KB
// extended-space limit. It reports whether the range fits; a failed
// extension leaves the buffer unchanged.
func (cb *ConfigBuffer) Ensure(pos, n int) bool {
	if pos < 0 || n < 0 || pos+n > ConfigSpaceExtended {
		return false
	}
	need := pos + n
	if need <= len(cb.data) {
		return true
	}
	size := len(cb.data)
	for size < need {
		size *= 2
	}
	data := make([]byte, size)
	present := make([]bool, size)
	copy(data, cb.data)
	copy(present, cb.present)
	cb.data = data
	cb.present = present
	return true
}

// Fetch makes the byte range [pos, pos+n) present, reading from the
// accessor as needed. Already-present bytes at the start and end of the
// range are trimmed and the remainder is requested as one contiguous
// block. On failure nothing changes and false is returned.
func (cb *ConfigBuffer) Fetch(pos, n int) bool {
	if !cb.Ensure(pos, n) {
		return false
	}
	lo, hi := pos, pos+n
	for lo < hi && cb.present[lo] {
		lo++
	}
	for hi > lo && cb.present[hi-1] {
		hi--
	}
	if lo == hi {
		return true
	}
	if cb.acc == nil || !cb.acc.ReadConfig(lo, cb.data[lo:hi]) {
		return false
	}
	for i := lo; i < hi; i++ {
		cb.present[i] = true
	}
	return true
}

// Present reports whether every byte in [pos, pos+n) has been read.
func (cb *ConfigBuffer) Present(pos, n int) bool {
	if pos < 0 || n < 0 || pos+n > len(cb.data) {
		return false
	}
	for i := pos; i < pos+n; i++ {
		if !cb.present[i] {
			return false
		}
	}
	return true
}

// check aborts on an accessor touching a byte that was never read. That is
// always a programmer error, never a runtime condition.
func (cb *ConfigBuffer) check(pos, n int) {
	for i := pos; i < pos+n; i++ {
		if i < 0 || i >= len(cb.data) || !cb.present[i] {
			panic(fmt.Sprintf("Internal bug: accessing non-read configuration byte at %#x", i))
		}
	}
}

// U8 returns the byte at pos.
func (cb *ConfigBuffer) U8(pos int) uint8 {
	cb.check(pos, 1)
	return cb.data[pos]
}

// U16 returns the little-endian word at pos.
func (cb *ConfigBuffer) U16(pos int) uint16 {
	cb.check(pos, 2)
	return binary.LittleEndian.Uint16(cb.data[pos : pos+2])
}

// U32 returns the little-endian longword at pos.
func (cb *ConfigBuffer) U32(pos int) uint32 {
	cb.check(pos, 4)
	return binary.LittleEndian.Uint32(cb.data[pos : pos+4])
}
