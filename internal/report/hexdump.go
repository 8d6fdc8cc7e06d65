package report

import (
	"fmt"
	"strings"
)

// hexDumpLimits maps the -x level to the number of bytes dumped.
var hexDumpLimits = [...]int{0, 64, 128, 256, 4096}

// hexDump renders the cached config bytes in 16-byte rows. Only bytes
// that were actually read appear; a failed extension simply shortens the
// dump.
func (r *Renderer) hexDump() {
	level := r.opt.ShowHex
	if level >= len(hexDumpLimits) {
		level = len(hexDumpLimits) - 1
	}
	limit := hexDumpLimits[level]

	for row := 0; row < limit; row += 16 {
		if !r.have(row, 16) {
			break
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%02x:", row)
		for j := 0; j < 16; j++ {
			fmt.Fprintf(&sb, " %02x", r.buf.U8(row+j))
		}
		r.lines = append(r.lines, sb.String())
	}
}
