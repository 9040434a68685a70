// Package bufpool recycles fixed-size byte slices.
//
// Uses the *[]byte pattern to avoid sync.Pool interface allocation overhead.
package bufpool

import "sync"

// Pool hands out buffers of a single size
type Pool struct {
	size int
	pool sync.Pool
}

// New creates a pool of size-byte buffers
func New(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Size returns the length of every buffer the pool hands out
func (p *Pool) Size() int {
	return p.size
}

// Get returns a zeroed buffer. Caller should call Put when done.
func (p *Pool) Get() []byte {
	buf := *(p.pool.Get().(*[]byte))
	clear(buf)
	return buf
}

// Put returns a buffer to the pool.
// Buffers with a different capacity are dropped.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	// Restore full length before returning to pool
	buf = buf[:p.size]
	p.pool.Put(&buf)
}
