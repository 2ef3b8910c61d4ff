package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher relays events to a sink on a single background goroutine, so sinks
// see events in emission order and never run on the request path.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	dropped atomic.Uint64
	failed  atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg is disabled; a nil *Dispatcher accepts and
// discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event only.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.failed.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event as built by [NewEvent]. With DropIfFull a full buffer drops
// the event and counts it; otherwise Emit waits for room, ctx, or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops accepting events and drains what is already buffered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts events discarded under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts events lost to a panicking sink.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
