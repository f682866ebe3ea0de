// Package hexdump renders frame bytes for diagnostics.
package hexdump

import (
	"fmt"
	"strings"
)

// Dump creates a hex dump of data, width bytes per line.
func Dump(data []byte, width int) string {
	return DumpAt(data, width, 0)
}

// DumpAt is Dump with line offsets starting at base, so a frame can be
// shown at its position in the stream.
func DumpAt(data []byte, width int, base int64) string {
	if width <= 0 {
		width = 16
	}

	var sb strings.Builder
	for i := 0; i < len(data); i += width {
		fmt.Fprintf(&sb, "%08x: ", base+int64(i))

		for j := 0; j < width; j++ {
			if i+j < len(data) {
				fmt.Fprintf(&sb, "%02x ", data[i+j])
			} else {
				sb.WriteString("   ")
			}
		}

		sb.WriteString(" |")
		for j := 0; j < width && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b < 127 {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}

	return sb.String()
}

// Spaced formats data as space separated hex pairs on one line.
func Spaced(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// Span is a labelled byte range [Lo, Hi) used by Annotate.
type Span struct {
	Label  string
	Lo, Hi int
}

// Annotate dumps each labelled span of data on its own block, followed by
// any bytes no span covers. Spans outside data are reported, not dumped.
func Annotate(data []byte, spans []Span) string {
	var sb strings.Builder
	covered := make([]bool, len(data))
	for _, s := range spans {
		if s.Lo < 0 || s.Hi > len(data) || s.Lo > s.Hi {
			fmt.Fprintf(&sb, "%s [%d,%d): outside %d-byte frame\n", s.Label, s.Lo, s.Hi, len(data))
			continue
		}
		fmt.Fprintf(&sb, "%s [%d,%d):\n", s.Label, s.Lo, s.Hi)
		sb.WriteString(DumpAt(data[s.Lo:s.Hi], 16, int64(s.Lo)))
		for i := s.Lo; i < s.Hi; i++ {
			covered[i] = true
		}
	}
	var rest []int
	for i, c := range covered {
		if !c {
			rest = append(rest, i)
		}
	}
	if len(rest) > 0 {
		sb.WriteString("unlabelled: ")
		for i, idx := range rest {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d=%02x", idx, data[idx])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
