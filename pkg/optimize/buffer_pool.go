package optimize

import (
	"bytes"
	"sync"
)

// BufferPool recycles bytes.Buffers for short-lived encoding work.
type BufferPool struct {
	pool    sync.Pool
	maxSize int
}

// NewBufferPool creates a pool. Buffers that grew beyond maxSize are
// dropped instead of being returned to the pool.
func NewBufferPool(maxSize int) *BufferPool {
	return &BufferPool{
		maxSize: maxSize,
		pool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Get returns an empty buffer
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets b and returns it to the pool
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b == nil {
		return
	}
	if p.maxSize > 0 && b.Cap() > p.maxSize {
		return
	}
	b.Reset()
	p.pool.Put(b)
}
