package lightnvm

// PageStripe builds the address list for one page of the block at base.
// Entries run sector-major within a plane, plane-major across planes:
// entry i addresses plane (i/NSectors)%NPlanes, sector i%NSectors.
// The list lines up with a VPageBytes buffer, NBytes per entry.
func (g Geometry) PageStripe(base Addr, page int) []Addr {
	n := g.nplanes * g.nsectors
	list := make([]Addr, n)

	pg := base.WithPage(uint16(page))
	for i := 0; i < n; i++ {
		list[i] = pg.
			WithPlane(uint8((i / g.nsectors) % g.nplanes)).
			WithSector(uint8(i % g.nsectors))
	}
	return list
}

// PlaneStripe builds the erase list for the block at base: one address per
// plane, the list index being the plane.
func (g Geometry) PlaneStripe(base Addr) []Addr {
	list := make([]Addr, g.nplanes)

	blk := base.WithPage(0).WithSector(0)
	for i := range list {
		list[i] = blk.WithPlane(uint8(i))
	}
	return list
}
