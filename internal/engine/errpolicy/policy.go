// Package errpolicy counts and surfaces errors without unwinding the caller.
package errpolicy

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Sink receives every reported error message exactly once.
type Sink interface {
	Error(message string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(message string)

// Error calls f(message).
func (f SinkFunc) Error(message string) {
	f(message)
}

// Policy is a stack of error counters.
//
// A nested operation pushes a level, and when it pops the level it learns how
// many errors it introduced; the count is then folded into the parent level.
// All methods are safe for concurrent use. Messages reach the sink one call
// at a time, so a sink must not report into the Policy that feeds it.
type Policy struct {
	delivery sync.Mutex
	mu       sync.Mutex
	sink     Sink
	fallback io.Writer
	counts   []int
}

// Option configures a Policy.
type Option func(*Policy)

// WithSink installs the sink that receives reported messages.
func WithSink(s Sink) Option {
	return func(p *Policy) {
		p.sink = s
	}
}

// WithFallback sets the writer used when no sink is installed. It defaults to os.Stderr.
func WithFallback(w io.Writer) Option {
	return func(p *Policy) {
		p.fallback = w
	}
}

// New creates a Policy with a single base level.
func New(opts ...Option) *Policy {
	p := &Policy{
		fallback: os.Stderr,
		counts:   []int{0},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSink replaces the installed sink. A nil sink restores the fallback writer.
func (p *Policy) SetSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = s
}

// Error reports message and counts it against the current level.
func (p *Policy) Error(message string) {
	p.deliver(message)
}

// ErrorPair reports first and second back to back, counting both. No other
// message reaches the sink between them.
func (p *Policy) ErrorPair(first, second string) {
	p.deliver(first, second)
}

func (p *Policy) deliver(messages ...string) {
	p.delivery.Lock()
	defer p.delivery.Unlock()

	p.mu.Lock()
	p.counts[len(p.counts)-1] += len(messages)
	sink, fallback := p.sink, p.fallback
	p.mu.Unlock()

	for _, message := range messages {
		if sink != nil {
			sink.Error(message)
			continue
		}
		_, _ = fmt.Fprintln(fallback, message)
	}
}

// Errorf formats and reports a message.
func (p *Policy) Errorf(format string, args ...any) {
	p.Error(fmt.Sprintf(format, args...))
}

// Report reports err using its message. A nil error is ignored.
func (p *Policy) Report(err error) {
	if err == nil {
		return
	}
	p.Error(err.Error())
}

// Push opens a nested level counting from zero.
func (p *Policy) Push() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = append(p.counts, 0)
}

// Pop closes the innermost level, adds its count to the parent and returns it.
// Popping the base level panics.
func (p *Policy) Pop() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.counts) == 1 {
		panic("errpolicy: pop without matching push")
	}
	n := p.counts[len(p.counts)-1]
	p.counts = p.counts[:len(p.counts)-1]
	p.counts[len(p.counts)-1] += n
	return n
}

// Errors returns the count of the current level.
func (p *Policy) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[len(p.counts)-1]
}

// Depth returns the number of open levels, the base level included.
func (p *Policy) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.counts)
}
