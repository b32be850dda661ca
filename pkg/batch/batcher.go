package batch

import (
	"context"
	"sync"
	"time"
)

// ProcessFunc handles one flushed batch. It runs on the batcher's goroutine.
type ProcessFunc[T any] func(ctx context.Context, items []T)

// Batcher collects items and hands them to a processor either when the batch
// is full or on every interval tick. Add never blocks on the processor.
type Batcher[T any] struct {
	batchSize     int
	batchInterval time.Duration
	process       ProcessFunc[T]

	mu      sync.Mutex
	pending []T
	stopped bool

	flushChan chan struct{}
	stopChan  chan struct{}
	done      chan struct{}
}

func NewBatcher[T any](batchSize int, batchInterval time.Duration, process ProcessFunc[T]) *Batcher[T] {
	b := &Batcher[T]{
		batchSize:     batchSize,
		batchInterval: batchInterval,
		process:       process,
		pending:       make([]T, 0, batchSize),
		flushChan:     make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	go b.run()

	return b
}

// Add queues an item. It reports false once the batcher has been stopped.
func (b *Batcher[T]) Add(item T) bool {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return false
	}
	b.pending = append(b.pending, item)
	shouldFlush := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		select {
		case b.flushChan <- struct{}{}:
		default:
		}
	}
	return true
}

func (b *Batcher[T]) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	items := b.pending
	b.pending = make([]T, 0, b.batchSize)
	b.mu.Unlock()

	b.process(ctx, items)
}

func (b *Batcher[T]) run() {
	defer close(b.done)

	ticker := time.NewTicker(b.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flush(context.Background())
		case <-b.flushChan:
			b.flush(context.Background())
		case <-b.stopChan:
			b.flush(context.Background())
			return
		}
	}
}

// Stop flushes pending items and waits for the final batch or ctx expiry.
func (b *Batcher[T]) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.stopChan)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PendingCount returns the number of queued items
func (b *Batcher[T]) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
