package checksum

// Checksum algorithm variants.
//
// The set is closed: algorithm has an unexported method, so only the types
// in this file satisfy it and Compile is the single place a tag becomes a
// variant.

// Kind is a checksum family tag.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSum8
	KindCS15
	KindXOR16Slices
	KindCRC16
	KindCRC32
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindSum8:        "sum8",
	KindCS15:        "cs15",
	KindXOR16Slices: "xor16_slices",
	KindCRC16:       "crc16",
	KindCRC32:       "crc32",
}

// ParseKind maps a checksum type tag onto its Kind.
func ParseKind(tag string) (Kind, error) {
	for k := KindSum8; k <= KindCRC32; k++ {
		if kindNames[k] == tag {
			return k, nil
		}
	}
	return KindInvalid, &UnsupportedTypeError{Type: tag}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindInvalid]
}

type algorithm interface {
	// sum computes the checksum of frame. span is the resolved inclusive
	// range; variants that address the frame directly ignore it.
	sum(frame []byte, lo, hi int) uint32
	// bits is the significant width of the result.
	bits() int
	// usesRange reports whether the variant reads Def's byte range.
	usesRange() bool
}

type sum8 struct{}

func (sum8) sum(frame []byte, lo, hi int) uint32 {
	var s uint8
	for _, b := range frame[lo : hi+1] {
		s += b
	}
	return uint32(s)
}

func (sum8) bits() int       { return 8 }
func (sum8) usesRange() bool { return true }

// cs15 folds little-endian 16-bit words (odd input is zero padded) with
// chk = chk<<1 + word, then returns ((chk & 0x7FFF) + (chk >> 15)) & 0x7FFF.
// Only the low 30 bits of chk reach the result, so uint32 wraparound is
// harmless.
type cs15 struct{}

func (cs15) sum(frame []byte, lo, hi int) uint32 {
	data := frame[lo : hi+1]
	var chk uint32
	for i := 0; i < len(data); i += 2 {
		w := uint32(data[i])
		if i+1 < len(data) {
			w |= uint32(data[i+1]) << 8
		}
		chk = chk<<1 + w
	}
	return ((chk & 0x7FFF) + (chk >> 15)) & 0x7FFF
}

func (cs15) bits() int       { return 16 }
func (cs15) usesRange() bool { return true }

// xorSlice is one strided walk of an xor16_slices checksum. to is nil when
// the walk runs to the last frame byte.
type xorSlice struct {
	from, stride int
	to           *int
	low, up      []int
}

// xor16Slices accumulates two XOR bytes from seed offsets and strided
// slices; the result is up<<8 | low. Indices outside the frame are skipped.
type xor16Slices struct {
	seedLow, seedUp []int
	slices          []xorSlice
}

func (x *xor16Slices) sum(frame []byte, _, _ int) uint32 {
	n := len(frame)
	var low, up byte
	for _, off := range x.seedLow {
		if off >= 0 && off < n {
			low ^= frame[off]
		}
	}
	for _, off := range x.seedUp {
		if off >= 0 && off < n {
			up ^= frame[off]
		}
	}
	for _, s := range x.slices {
		start, end := s.from, n-1
		if s.to != nil {
			end = *s.to
		}
		if start < 0 {
			start += n
		}
		if end < 0 {
			end += n
		}
		start = max(start, 0)
		end = min(end, n-1)
		for pos := start; pos <= end; pos += s.stride {
			for _, rel := range s.low {
				if i := pos + rel; i >= 0 && i < n {
					low ^= frame[i]
				}
			}
			for _, rel := range s.up {
				if i := pos + rel; i >= 0 && i < n {
					up ^= frame[i]
				}
			}
		}
	}
	return uint32(up)<<8 | uint32(low)
}

func (*xor16Slices) bits() int       { return 16 }
func (*xor16Slices) usesRange() bool { return false }
