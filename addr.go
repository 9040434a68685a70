package lightnvm

import "fmt"

// Bit widths of the generic address format. Fields are packed from the
// least significant bit upwards in the order block, page, sector, plane,
// lun, channel, reserved.
const (
	BlockBits    = 16
	PageBits     = 16
	SectorBits   = 8
	PlaneBits    = 8
	LunBits      = 8
	ChannelBits  = 7
	ReservedBits = 1
)

// Bit widths of the cache address format
const (
	LineBits   = 63
	CachedBits = 1
)

const (
	blockShift    = 0
	pageShift     = blockShift + BlockBits
	sectorShift   = pageShift + PageBits
	planeShift    = sectorShift + SectorBits
	lunShift      = planeShift + PlaneBits
	channelShift  = lunShift + LunBits
	reservedShift = channelShift + ChannelBits

	cachedShift = LineBits
)

const (
	blockMask    = 1<<BlockBits - 1
	pageMask     = 1<<PageBits - 1
	sectorMask   = 1<<SectorBits - 1
	planeMask    = 1<<PlaneBits - 1
	lunMask      = 1<<LunBits - 1
	channelMask  = 1<<ChannelBits - 1
	reservedMask = 1<<ReservedBits - 1

	lineMask = 1<<LineBits - 1
)

// Addr is a packed physical page address (PPA). The raw value is what
// travels to the media manager; Generic and Cache decode the same bits
// under the two structured layouts. Nothing is range checked: values wider
// than a field are truncated to the field width.
type Addr uint64

// GenericAddr is the structured view of an Addr
type GenericAddr struct {
	Block    uint16
	Page     uint16
	Sector   uint8
	Plane    uint8
	Lun      uint8
	Channel  uint8 // 7 bits
	Reserved bool
}

// CacheAddr is the cache-line view of an Addr
type CacheAddr struct {
	Line   uint64 // 63 bits
	Cached bool
}

// PackGeneric encodes the structured fields into an Addr
func PackGeneric(g GenericAddr) Addr {
	v := uint64(g.Block)&blockMask<<blockShift |
		uint64(g.Page)&pageMask<<pageShift |
		uint64(g.Sector)&sectorMask<<sectorShift |
		uint64(g.Plane)&planeMask<<planeShift |
		uint64(g.Lun)&lunMask<<lunShift |
		uint64(g.Channel)&channelMask<<channelShift
	if g.Reserved {
		v |= reservedMask << reservedShift
	}
	return Addr(v)
}

// Generic decodes the structured fields
func (a Addr) Generic() GenericAddr {
	return GenericAddr{
		Block:    a.Block(),
		Page:     a.Page(),
		Sector:   a.Sector(),
		Plane:    a.Plane(),
		Lun:      a.Lun(),
		Channel:  a.Channel(),
		Reserved: a.field(reservedShift, reservedMask) != 0,
	}
}

// PackCache encodes a cache line address
func PackCache(c CacheAddr) Addr {
	v := c.Line & lineMask
	if c.Cached {
		v |= 1 << cachedShift
	}
	return Addr(v)
}

// Cache decodes the cache-line view
func (a Addr) Cache() CacheAddr {
	return CacheAddr{
		Line:   uint64(a) & lineMask,
		Cached: uint64(a)>>cachedShift != 0,
	}
}

// PPA returns the raw wire value
func (a Addr) PPA() uint64 {
	return uint64(a)
}

func (a Addr) field(shift, mask uint64) uint64 {
	return uint64(a) >> shift & mask
}

func (a Addr) with(shift, mask, v uint64) Addr {
	return Addr(uint64(a)&^(mask<<shift) | (v&mask)<<shift)
}

// Field accessors

func (a Addr) Block() uint16 { return uint16(a.field(blockShift, blockMask)) }
func (a Addr) Page() uint16 { return uint16(a.field(pageShift, pageMask)) }
func (a Addr) Sector() uint8 { return uint8(a.field(sectorShift, sectorMask)) }
func (a Addr) Plane() uint8 { return uint8(a.field(planeShift, planeMask)) }
func (a Addr) Lun() uint8 { return uint8(a.field(lunShift, lunMask)) }
func (a Addr) Channel() uint8 { return uint8(a.field(channelShift, channelMask)) }

// Field setters return a copy with one field replaced

func (a Addr) WithBlock(v uint16) Addr { return a.with(blockShift, blockMask, uint64(v)) }
func (a Addr) WithPage(v uint16) Addr { return a.with(pageShift, pageMask, uint64(v)) }
func (a Addr) WithSector(v uint8) Addr { return a.with(sectorShift, sectorMask, uint64(v)) }
func (a Addr) WithPlane(v uint8) Addr { return a.with(planeShift, planeMask, uint64(v)) }
func (a Addr) WithLun(v uint8) Addr { return a.with(lunShift, lunMask, uint64(v)) }
func (a Addr) WithChannel(v uint8) Addr { return a.with(channelShift, channelMask, uint64(v)) }

// BlockAddr keeps the coordinates identifying a physical block (channel,
// lun, block) and clears plane, page and sector.
func (a Addr) BlockAddr() Addr {
	return PackGeneric(GenericAddr{
		Block:   a.Block(),
		Lun:     a.Lun(),
		Channel: a.Channel(),
	})
}

func (a Addr) String() string {
	return fmt.Sprintf("ppa(0x%016x){ ch(%02d), lun(%02d), pl(%d), blk(%04d), pg(%03d), sec(%d) }",
		uint64(a), a.Channel(), a.Lun(), a.Plane(), a.Block(), a.Page(), a.Sector())
}
