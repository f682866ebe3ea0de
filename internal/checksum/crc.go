package checksum

import "math/bits"

// crc is a Rocksoft-model CRC of width 16 or 32. The register runs MSB
// first; refin reflects each input byte, refout reflects the final register
// before xorout.
type crc struct {
	width  int
	poly   uint32
	init   uint32
	xorout uint32
	refin  bool
	refout bool
	mask   uint32
	table  [256]uint32
}

func newCRC(width int, poly, init, xorout uint32, refin, refout bool) *crc {
	c := &crc{
		width:  width,
		poly:   poly,
		init:   init,
		xorout: xorout,
		refin:  refin,
		refout: refout,
		mask:   uint32(1<<width - 1),
	}
	top := uint32(1) << (width - 1)
	for i := range c.table {
		r := uint32(i) << (width - 8)
		for range 8 {
			if r&top != 0 {
				r = r<<1 ^ poly
			} else {
				r <<= 1
			}
		}
		c.table[i] = r & c.mask
	}
	return c
}

func (c *crc) sum(frame []byte, lo, hi int) uint32 {
	shift := c.width - 8
	r := c.init & c.mask
	for _, b := range frame[lo : hi+1] {
		if c.refin {
			b = bits.Reverse8(b)
		}
		r = (r<<8 ^ c.table[byte(r>>shift)^b]) & c.mask
	}
	if c.refout {
		r = reflect(r, c.width)
	}
	return (r ^ c.xorout) & c.mask
}

func (c *crc) bits() int       { return c.width }
func (c *crc) usesRange() bool { return true }

// reflect reverses the low width bits of v.
func reflect(v uint32, width int) uint32 {
	return bits.Reverse32(v) >> (32 - width)
}
