package optimize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool_ReturnsEmptyBuffers(t *testing.T) {
	p := NewBufferPool(1024)

	b := p.Get()
	b.WriteString("stream payload")
	p.Put(b)

	again := p.Get()
	assert.Zero(t, again.Len())
}

func TestBufferPool_DropsOversizedBuffers(t *testing.T) {
	p := NewBufferPool(16)

	big := bytes.NewBuffer(make([]byte, 0, 64))
	p.Put(big)
	p.Put(nil)

	assert.NotNil(t, p.Get())
}
