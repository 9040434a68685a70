// Package media provides an in-memory open-channel media manager
package media

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/lpabon/godbc"

	lightnvm "github.com/ehrlich-b/go-lightnvm"
	"github.com/ehrlich-b/go-lightnvm/internal/bufpool"
	"github.com/ehrlich-b/go-lightnvm/internal/logging"
)

// FaultFunc is consulted before every submission. A non-nil return fails
// the submission without touching the media.
type FaultFunc func(op lightnvm.Opcode, list []lightnvm.Addr) error

// Submission is one accepted call to Submit
type Submission struct {
	Op   lightnvm.Opcode
	List []lightnvm.Addr
}

type blockKey struct {
	ch, lun uint8
	blk     uint16
}

func keyOf(a lightnvm.Addr) blockKey {
	return blockKey{ch: a.Channel(), lun: a.Lun(), blk: a.Block()}
}

// block holds the contents of one physical block across all planes.
// Sector s of page p on plane pl lives at index (pl*npages+p)*nsectors+s.
type block struct {
	data       []byte
	programmed []bool
	live       int
}

// Memory is a RAM-backed media manager. It hands out blocks per lun,
// enforces ownership on every submission and models program-once pages:
// a sector must be erased before it is written again.
type Memory struct {
	mu     sync.Mutex
	geo    lightnvm.Geometry
	closed bool

	owned  map[blockKey]bool
	marks  map[blockKey]lightnvm.MarkState
	blocks map[blockKey]*block
	pool   *bufpool.Pool

	fault       FaultFunc
	submissions []Submission

	logger *logging.Logger
}

// NewMemory creates an empty device with the given geometry. Every block
// starts free, good and erased.
func NewMemory(geo lightnvm.Geometry) *Memory {
	godbc.Require(!geo.IsZero(), "geometry must be initialised")

	return &Memory{
		geo:    geo,
		owned:  make(map[blockKey]bool),
		marks:  make(map[blockKey]lightnvm.MarkState),
		blocks: make(map[blockKey]*block),
		pool:   bufpool.New(geo.VBlockBytes()),
		logger: logging.Default().WithOp("MEMORY"),
	}
}

// Geometry implements lightnvm.Gateway
func (m *Memory) Geometry() (lightnvm.Geometry, error) {
	return m.geo, nil
}

// BlockGet implements lightnvm.Gateway. It reserves the lowest free good
// block of the lun.
func (m *Memory) BlockGet(channel, lun uint8) (lightnvm.Addr, uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, 0, syscall.EBADF
	}
	if int(channel) >= m.geo.NChannels() || int(lun) >= m.geo.NLuns() {
		return 0, 0, syscall.EINVAL
	}

	for b := 0; b < m.geo.NBlocks(); b++ {
		key := blockKey{ch: channel, lun: lun, blk: uint16(b)}
		if m.owned[key] {
			continue
		}
		if _, bad := m.marks[key]; bad {
			continue
		}

		m.owned[key] = true
		addr := lightnvm.PackGeneric(lightnvm.GenericAddr{
			Channel: channel,
			Lun:     lun,
			Block:   uint16(b),
		})

		godbc.Ensure(m.owned[keyOf(addr)])
		return addr, 0, nil
	}

	m.logger.Debug("lun exhausted", "channel", channel, "lun", lun)
	return 0, 0, syscall.ENOSPC
}

// BlockPut implements lightnvm.Gateway
func (m *Memory) BlockPut(addr lightnvm.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return syscall.EBADF
	}

	key := keyOf(addr)
	if !m.owned[key] {
		return syscall.EINVAL
	}
	delete(m.owned, key)
	return nil
}

// Submit implements lightnvm.Gateway. Every address must lie inside the
// geometry and on an owned block. A write fails with EIO if any target
// sector is already programmed and with EINVAL if a sector is listed twice.
// Submissions are all or nothing.
func (m *Memory) Submit(op lightnvm.Opcode, list []lightnvm.Addr, buf []byte, flags lightnvm.AccessFlag) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, syscall.EBADF
	}
	if len(list) == 0 || len(list) > lightnvm.MaxAddrsPerSubmit {
		return 0, syscall.EINVAL
	}

	if m.fault != nil {
		if err := m.fault(op, list); err != nil {
			return 0, err
		}
	}

	for _, a := range list {
		if !m.inRange(a) {
			return 0, syscall.EINVAL
		}
		if !m.owned[keyOf(a)] {
			return 0, syscall.EPERM
		}
	}

	var (
		n   int
		err error
	)
	switch op {
	case lightnvm.OpErase:
		m.erase(list)
	case lightnvm.OpWrite:
		n, err = m.write(list, buf)
	case lightnvm.OpRead:
		n, err = m.read(list, buf)
	default:
		err = syscall.EINVAL
	}
	if err != nil {
		return 0, err
	}

	m.submissions = append(m.submissions, Submission{
		Op:   op,
		List: append([]lightnvm.Addr(nil), list...),
	})
	return n, nil
}

// Mark implements lightnvm.Gateway. Bad and grown-bad blocks are never
// handed out; marking a block free clears the mark.
func (m *Memory) Mark(addr lightnvm.Addr, state lightnvm.MarkState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return syscall.EBADF
	}

	key := keyOf(addr)
	if int(key.ch) >= m.geo.NChannels() || int(key.lun) >= m.geo.NLuns() || int(key.blk) >= m.geo.NBlocks() {
		return syscall.EINVAL
	}

	switch state {
	case lightnvm.MarkFree:
		delete(m.marks, key)
	case lightnvm.MarkBad, lightnvm.MarkGrownBad:
		m.marks[key] = state
	default:
		return syscall.EINVAL
	}
	return nil
}

// Close implements lightnvm.Gateway
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// SetFault installs a fault hook (nil removes it)
func (m *Memory) SetFault(fault FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fault
}

// Submissions returns the accepted submissions in order
func (m *Memory) Submissions() []Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Submission(nil), m.submissions...)
}

// Owned returns the number of reserved blocks
func (m *Memory) Owned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owned)
}

// IsOwned reports whether the block containing addr is reserved
func (m *Memory) IsOwned(addr lightnvm.Addr) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owned[keyOf(addr)]
}

func (m *Memory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("memory { owned(%d), marked(%d), populated(%d) }",
		len(m.owned), len(m.marks), len(m.blocks))
}

func (m *Memory) inRange(a lightnvm.Addr) bool {
	g := m.geo
	return int(a.Channel()) < g.NChannels() &&
		int(a.Lun()) < g.NLuns() &&
		int(a.Plane()) < g.NPlanes() &&
		int(a.Block()) < g.NBlocks() &&
		int(a.Page()) < g.NPages() &&
		int(a.Sector()) < g.NSectors()
}

func (m *Memory) blockOf(a lightnvm.Addr) *block {
	key := keyOf(a)
	b, ok := m.blocks[key]
	if !ok {
		n := m.geo.NPlanes() * m.geo.NPages() * m.geo.NSectors()
		b = &block{
			data:       m.pool.Get(),
			programmed: make([]bool, n),
		}
		m.blocks[key] = b
	}
	return b
}

func (m *Memory) sectorIndex(a lightnvm.Addr) int {
	return (int(a.Plane())*m.geo.NPages()+int(a.Page()))*m.geo.NSectors() + int(a.Sector())
}

// erase clears every page of the addressed planes. A block with nothing
// programmed left gives its storage back to the pool.
func (m *Memory) erase(list []lightnvm.Addr) {
	per := m.geo.NPages() * m.geo.NSectors()
	nbytes := m.geo.NBytes()

	for _, a := range list {
		key := keyOf(a)
		b, ok := m.blocks[key]
		if !ok {
			continue
		}
		first := int(a.Plane()) * per
		for i := first; i < first+per; i++ {
			if b.programmed[i] {
				b.programmed[i] = false
				b.live--
			}
		}
		clear(b.data[first*nbytes : (first+per)*nbytes])

		if b.live == 0 {
			m.pool.Put(b.data)
			delete(m.blocks, key)
		}
	}
}

func (m *Memory) write(list []lightnvm.Addr, buf []byte) (int, error) {
	nbytes := m.geo.NBytes()
	if len(buf) != len(list)*nbytes {
		return 0, syscall.EINVAL
	}

	// A sector listed twice would be programmed twice
	type sectorKey struct {
		blk blockKey
		idx int
	}
	seen := make(map[sectorKey]bool, len(list))
	for _, a := range list {
		sector := sectorKey{keyOf(a), m.sectorIndex(a)}
		if seen[sector] {
			return 0, syscall.EINVAL
		}
		seen[sector] = true

		if b, ok := m.blocks[keyOf(a)]; ok && b.programmed[m.sectorIndex(a)] {
			return 0, syscall.EIO
		}
	}

	for i, a := range list {
		b := m.blockOf(a)
		idx := m.sectorIndex(a)
		copy(b.data[idx*nbytes:(idx+1)*nbytes], buf[i*nbytes:(i+1)*nbytes])
		b.programmed[idx] = true
		b.live++
	}
	return len(buf), nil
}

func (m *Memory) read(list []lightnvm.Addr, buf []byte) (int, error) {
	nbytes := m.geo.NBytes()
	if len(buf) != len(list)*nbytes {
		return 0, syscall.EINVAL
	}

	for i, a := range list {
		dst := buf[i*nbytes : (i+1)*nbytes]
		b, ok := m.blocks[keyOf(a)]
		if !ok {
			clear(dst)
			continue
		}
		idx := m.sectorIndex(a)
		copy(dst, b.data[idx*nbytes:(idx+1)*nbytes])
	}
	return len(buf), nil
}

var _ lightnvm.Gateway = (*Memory)(nil)
