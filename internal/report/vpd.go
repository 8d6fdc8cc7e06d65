package report

import (
	"fmt"
	"strings"
)

// VPD resource tags. Small tags carry the ID in the top five bits; large
// tags (bit 7 set) are matched on the whole byte.
const (
	vpdTagEnd         = 0x0F // small
	vpdTagProductName = 0x82 // large
	vpdTagROFields    = 0x90 // large
	vpdTagRWFields    = 0x91 // large
)

// vpdAddrLimit is the highest addressable VPD offset (15-bit address).
const vpdAddrLimit = 0x7FFF

// vpdContext threads a running checksum through every VPD read. The
// checksum invariant: the sum of all bytes from offset 0 through the
// first byte of the RV payload is 0 mod 256 on a valid VPD.
type vpdContext struct {
	src  VPDSource
	csum uint8
}

func (v *vpdContext) read(pos int, buf []byte) bool {
	if v.src == nil || !v.src.ReadVPD(pos, buf) {
		return false
	}
	for _, b := range buf {
		v.csum += b
	}
	return true
}

// vpdEscape passes printable ASCII through, doubles backslashes, and hex
// escapes everything else.
func vpdEscape(data []byte) string {
	var sb strings.Builder
	for _, c := range data {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c >= 0x20 && c <= 0x7E:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}
	return sb.String()
}

func hexBytes(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

// showVPD streams the resource list from the device's VPD address space.
// Read failures stop the decode silently; structural problems render a
// sentinel line.
func (r *Renderer) showVPD() {
	v := &vpdContext{src: r.vpd}
	var buf [256]byte

	off := 0
	for off <= vpdAddrLimit {
		if !v.read(off, buf[:1]) {
			return
		}
		tag := buf[0]
		var length int
		if tag&0x80 != 0 {
			// A large header cannot fit before the address limit; stop
			// without a verdict, the stream may simply be truncated here.
			if off+3 > vpdAddrLimit+1 {
				return
			}
			if !v.read(off+1, buf[:2]) {
				return
			}
			length = int(buf[0]) | int(buf[1])<<8
			off += 3
		} else {
			length = int(tag & 7)
			off++
		}
		if length > vpdAddrLimit+1-off {
			r.addf("\t\tNo end tag found")
			return
		}

		switch {
		case tag&0x80 == 0 && tag>>3 == vpdTagEnd:
			r.addf("\t\tEnd")
			return

		case tag == vpdTagProductName:
			name := make([]byte, 0, length)
			for n := 0; n < length; {
				chunk := length - n
				if chunk > len(buf) {
					chunk = len(buf)
				}
				if !v.read(off+n, buf[:chunk]) {
					return
				}
				name = append(name, buf[:chunk]...)
				n += chunk
			}
			r.addf("\t\tProduct Name: %s", vpdEscape(name))

		case tag == vpdTagROFields || tag == vpdTagRWFields:
			if tag == vpdTagROFields {
				r.addf("\t\tRead-only fields:")
			} else {
				r.addf("\t\tRead/write fields:")
			}
			if !r.showVPDItems(v, off, length) {
				return
			}

		default:
			kind := "small"
			id := tag >> 3
			if tag&0x80 != 0 {
				kind = "large"
				id = tag & 0x7F
			}
			r.addf("\t\tUnknown %s resource type %02x, will not decode more.", kind, id)
			return
		}
		off += length
	}
	r.addf("\t\tNo end tag found")
}

// showVPDItems iterates the (keyword, length, payload) triples of a
// read-only or read/write resource.
func (r *Renderer) showVPDItems(v *vpdContext, off, resLen int) bool {
	var buf [256]byte
	end := off + resLen

	for off+3 <= end {
		if !v.read(off, buf[:3]) {
			return false
		}
		key := string(buf[:2])
		itemLen := int(buf[2])
		off += 3
		if itemLen > end-off {
			itemLen = end - off
		}

		switch {
		case key == "RV":
			// Only the first payload byte belongs to the checksummed
			// stream; the rest is reserved padding.
			if itemLen >= 1 && !v.read(off, buf[:1]) {
				return false
			}
			status := "bad"
			if v.csum == 0 {
				status = "good"
			}
			reserved := itemLen - 1
			if reserved < 0 {
				reserved = 0
			}
			r.addf("\t\t\tRV: checksum %s, %d byte(s) reserved", status, reserved)

		case key == "RW":
			r.addf("\t\t\tRW: %d byte(s) free", itemLen)

		case key == "PN" || key == "EC" || key == "SN" ||
			key[0] == 'V' || key[0] == 'Y':
			if itemLen > len(buf) {
				itemLen = len(buf)
			}
			if itemLen > 0 && !v.read(off, buf[:itemLen]) {
				return false
			}
			r.addf("\t\t\t%s: %s", key, vpdEscape(buf[:itemLen]))

		default:
			if itemLen > len(buf) {
				itemLen = len(buf)
			}
			if itemLen > 0 && !v.read(off, buf[:itemLen]) {
				return false
			}
			r.addf("\t\t\t%s: %s", key, hexBytes(buf[:itemLen]))
		}
		off += itemLen
	}
	return true
}
