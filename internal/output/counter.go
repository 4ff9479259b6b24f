package output

import (
	"sync"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
)

// CounterStats is what a Counter has seen so far
type CounterStats struct {
	Frames uint64     `json:"frames"`
	Bytes  uint64     `json:"bytes"`
	Caps   frame.Caps `json:"caps"`
	EOS    bool       `json:"eos"`
}

// Counter discards frames and keeps counts. It is the terminal sink when
// nothing else consumes the stream.
type Counter struct {
	mu      sync.Mutex
	running bool
	stats   CounterStats
	done    chan struct{}
}

// NewCounter creates a counting sink
func NewCounter() *Counter {
	return &Counter{done: make(chan struct{})}
}

func (c *Counter) Start() error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	return nil
}

func (c *Counter) Stop() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

func (c *Counter) Name() string {
	return "counter"
}

func (c *Counter) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Counter) SetCaps(caps frame.Caps) error {
	c.mu.Lock()
	c.stats.Caps = caps
	c.mu.Unlock()
	return nil
}

func (c *Counter) PushFrame(f frame.Frame) error {
	c.mu.Lock()
	c.stats.Frames++
	c.stats.Bytes += uint64(len(f.Data))
	c.mu.Unlock()
	return nil
}

// PushEOS records end-of-stream and releases Done waiters
func (c *Counter) PushEOS() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stats.EOS {
		c.stats.EOS = true
		close(c.done)
	}
	return nil
}

// Done is closed once EOS has arrived
func (c *Counter) Done() <-chan struct{} {
	return c.done
}

// Stats returns a snapshot of the counters
func (c *Counter) Stats() CounterStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
