package lightnvm

import (
	"sync"
	"syscall"
)

// Submission is one recorded call to MockGateway.Submit
type Submission struct {
	Op    Opcode
	List  []Addr
	Bytes int
	Flags AccessFlag
}

// MockGateway provides a mock implementation of Gateway for testing.
// It hands out blocks in order, records every submission and lets tests
// inject failures. Data is not stored; reads leave the buffer untouched.
type MockGateway struct {
	mu sync.Mutex

	geo    Geometry
	closed bool
	next   uint16

	submissions []Submission
	released    []Addr
	marks       map[Addr]MarkState

	// Fault injection
	geometryErr error
	getErr      error
	putErr      error
	markErr     error
	closeErr    error
	submitFault func(n int, op Opcode, list []Addr) error

	// Method call tracking
	getCalls    int
	putCalls    int
	submitCalls int
	markCalls   int
	closeCalls  int
}

// NewMockGateway creates a mock gateway reporting geo
func NewMockGateway(geo Geometry) *MockGateway {
	return &MockGateway{
		geo:   geo,
		marks: make(map[Addr]MarkState),
	}
}

// Geometry implements the Gateway interface
func (m *MockGateway) Geometry() (Geometry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.geometryErr != nil {
		return Geometry{}, m.geometryErr
	}
	return m.geo, nil
}

// BlockGet implements the Gateway interface. Blocks are handed out in
// increasing order on the requested channel and lun.
func (m *MockGateway) BlockGet(channel, lun uint8) (Addr, uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++

	if m.closed {
		return 0, 0, syscall.EBADF
	}
	if m.getErr != nil {
		return 0, 0, m.getErr
	}
	if int(m.next) >= m.geo.NBlocks() {
		return 0, 0, syscall.ENOSPC
	}

	addr := PackGeneric(GenericAddr{Channel: channel, Lun: lun, Block: m.next})
	m.next++
	return addr, 0, nil
}

// BlockPut implements the Gateway interface
func (m *MockGateway) BlockPut(addr Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putCalls++

	if m.closed {
		return syscall.EBADF
	}
	if m.putErr != nil {
		return m.putErr
	}
	m.released = append(m.released, addr)
	return nil
}

// Submit implements the Gateway interface
func (m *MockGateway) Submit(op Opcode, list []Addr, buf []byte, flags AccessFlag) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.submitCalls
	m.submitCalls++

	if m.closed {
		return 0, syscall.EBADF
	}
	if m.submitFault != nil {
		if err := m.submitFault(n, op, list); err != nil {
			return 0, err
		}
	}

	m.submissions = append(m.submissions, Submission{
		Op:    op,
		List:  append([]Addr(nil), list...),
		Bytes: len(buf),
		Flags: flags,
	})
	return len(buf), nil
}

// Mark implements the Gateway interface
func (m *MockGateway) Mark(addr Addr, state MarkState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markCalls++

	if m.markErr != nil {
		return m.markErr
	}
	m.marks[addr] = state
	return nil
}

// Close implements the Gateway interface
func (m *MockGateway) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCalls++
	m.closed = true
	return m.closeErr
}

// Fault injection

// SetGeometryError makes Geometry fail with err
func (m *MockGateway) SetGeometryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometryErr = err
}

// SetBlockGetError makes BlockGet fail with err (nil clears it)
func (m *MockGateway) SetBlockGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// SetBlockPutError makes BlockPut fail with err (nil clears it)
func (m *MockGateway) SetBlockPutError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// SetMarkError makes Mark fail with err (nil clears it)
func (m *MockGateway) SetMarkError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markErr = err
}

// SetCloseError makes Close return err
func (m *MockGateway) SetCloseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
}

// SetSubmitFault installs a hook consulted before every submission. n
// counts submissions from zero; a non-nil return fails that submission.
func (m *MockGateway) SetSubmitFault(fault func(n int, op Opcode, list []Addr) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitFault = fault
}

// Testing utility methods

// Submissions returns the successful submissions in order
func (m *MockGateway) Submissions() []Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Submission(nil), m.submissions...)
}

// Released returns the addresses handed back through BlockPut
func (m *MockGateway) Released() []Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Addr(nil), m.released...)
}

// MarkOf returns the last state recorded for addr
func (m *MockGateway) MarkOf(addr Addr) (MarkState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.marks[addr]
	return s, ok
}

// IsClosed returns true if the gateway has been closed
func (m *MockGateway) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CallCounts returns the number of times each method has been called
func (m *MockGateway) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]int{
		"get":    m.getCalls,
		"put":    m.putCalls,
		"submit": m.submitCalls,
		"mark":   m.markCalls,
		"close":  m.closeCalls,
	}
}

// Reset clears call counters and recorded submissions
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls = 0
	m.putCalls = 0
	m.submitCalls = 0
	m.markCalls = 0
	m.closeCalls = 0
	m.submissions = nil
	m.released = nil
}

// Compile-time interface check
var _ Gateway = (*MockGateway)(nil)
