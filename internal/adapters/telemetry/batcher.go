// Package telemetry records rule executions as OpenTelemetry spans and
// forwards them to a ports.Renderer.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultSizeLimit is the buffer size that triggers a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit bounds how long output may wait in the buffer.
	DefaultTimeLimit = 50 * time.Millisecond
)

// ErrBatcherClosed is returned by writes after Close.
var ErrBatcherClosed = errors.New("batcher is closed")

// Batcher collects the output of one rule and hands it to a callback in
// write order, either once the buffer is full or once the oldest buffered
// byte is older than the time limit. It is safe for concurrent use.
//
// No goroutine runs while the buffer is empty: the timer is armed by the
// first write after a flush.
type Batcher struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	timer  *time.Timer
	closed bool
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithSizeLimit sets the buffer size that triggers a flush.
func WithSizeLimit(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.sizeLimit = n
		}
	}
}

// WithTimeLimit sets how long output may wait before it is flushed.
func WithTimeLimit(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d > 0 {
			b.timeLimit = d
		}
	}
}

// NewBatcher creates a Batcher calling onFlush with every batch.
func NewBatcher(onFlush func([]byte), opts ...BatcherOption) *Batcher {
	b := &Batcher{
		sizeLimit: DefaultSizeLimit,
		timeLimit: DefaultTimeLimit,
		onFlush:   onFlush,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Write buffers p.
func (b *Batcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBatcherClosed
	}
	wasEmpty := b.buffer.Len() == 0
	n, _ := b.buffer.Write(p)

	switch {
	case b.buffer.Len() >= b.sizeLimit:
		b.flushLocked()
	case wasEmpty && n > 0:
		b.arm()
	}
	return n, nil
}

// Flush hands any buffered output to the callback.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Close flushes the buffer. Later writes fail with ErrBatcherClosed.
func (b *Batcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.flushLocked()
	b.closed = true
	return nil
}

func (b *Batcher) arm() {
	if b.timer == nil {
		b.timer = time.AfterFunc(b.timeLimit, b.Flush)
		return
	}
	b.timer.Reset(b.timeLimit)
}

// flushLocked must be called with mu held. The callback runs under the lock
// so batches are never reordered.
func (b *Batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	if b.buffer.Len() == 0 {
		return
	}
	data := bytes.Clone(b.buffer.Bytes())
	b.buffer.Reset()
	if b.onFlush != nil {
		b.onFlush(data)
	}
}
