package lightnvm

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/lpabon/godbc"
)

// Geometry describes the physical layout of a device. It is a value type:
// copy it freely, it never changes once queried.
type Geometry struct {
	nchannels int // channels on device
	nluns     int // luns per channel
	nplanes   int // planes per lun
	nblocks   int // blocks per plane
	npages    int // pages per block
	nsectors  int // sectors per page
	nbytes    int // bytes per sector

	tbytes       int64 // bytes on device
	vblockNBytes int   // bytes per virtual block
	vpageNBytes  int   // bytes per page stripe
}

// NewGeometry derives the sizing constants from the physical counts.
// Every count must be positive.
func NewGeometry(nchannels, nluns, nplanes, nblocks, npages, nsectors, nbytes int) Geometry {
	godbc.Require(nchannels > 0, "nchannels", nchannels)
	godbc.Require(nluns > 0, "nluns", nluns)
	godbc.Require(nplanes > 0, "nplanes", nplanes)
	godbc.Require(nblocks > 0, "nblocks", nblocks)
	godbc.Require(npages > 0, "npages", npages)
	godbc.Require(nsectors > 0, "nsectors", nsectors)
	godbc.Require(nbytes > 0, "nbytes", nbytes)

	vpage := nplanes * nsectors * nbytes

	geo := Geometry{
		nchannels:    nchannels,
		nluns:        nluns,
		nplanes:      nplanes,
		nblocks:      nblocks,
		npages:       npages,
		nsectors:     nsectors,
		nbytes:       nbytes,
		vpageNBytes:  vpage,
		vblockNBytes: npages * vpage,
		tbytes: int64(nchannels) * int64(nluns) * int64(nplanes) * int64(nblocks) *
			int64(npages) * int64(nsectors) * int64(nbytes),
	}

	godbc.Ensure(geo.vblockNBytes == geo.npages*geo.nplanes*geo.nsectors*geo.nbytes)
	return geo
}

func (g Geometry) NChannels() int { return g.nchannels }
func (g Geometry) NLuns() int     { return g.nluns }
func (g Geometry) NPlanes() int   { return g.nplanes }
func (g Geometry) NBlocks() int   { return g.nblocks }
func (g Geometry) NPages() int    { return g.npages }
func (g Geometry) NSectors() int  { return g.nsectors }
func (g Geometry) NBytes() int    { return g.nbytes }

// TotalBytes is the raw capacity of the device
func (g Geometry) TotalBytes() int64 { return g.tbytes }

// VBlockBytes is the size of one virtual block: every page of the block
// across all planes of its lun.
func (g Geometry) VBlockBytes() int { return g.vblockNBytes }

// VPageBytes is the size of one page stripe, the unit of PageRead and
// PageWrite.
func (g Geometry) VPageBytes() int { return g.vpageNBytes }

// IsZero reports whether the geometry was never initialised
func (g Geometry) IsZero() bool { return g.nchannels == 0 }

// NewVPageBuffer allocates a buffer sized for one page stripe
func (g Geometry) NewVPageBuffer() []byte {
	return make([]byte, g.vpageNBytes)
}

// NewVBlockBuffer allocates a buffer sized for a whole virtual block
func (g Geometry) NewVBlockBuffer() []byte {
	return make([]byte, g.vblockNBytes)
}

func (g Geometry) String() string {
	return fmt.Sprintf("geo { nchannels(%d), nluns(%d), nplanes(%d), nblocks(%d), npages(%d), nsectors(%d), nbytes(%d), "+
		"tbytes(%s), vblock_nbytes(%s), vpage_nbytes(%s) }",
		g.nchannels, g.nluns, g.nplanes, g.nblocks, g.npages, g.nsectors, g.nbytes,
		humanize.IBytes(uint64(g.tbytes)),
		humanize.IBytes(uint64(g.vblockNBytes)),
		humanize.IBytes(uint64(g.vpageNBytes)))
}

// FillBuffer writes the repeating pattern A..Z into buf
func FillBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 'A' + byte(i%26)
	}
}
