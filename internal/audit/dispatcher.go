package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the request path when the
	// buffer is full.
	DropIfFull bool
	// FailureGrace is how long a failed-outcome event (rejected login,
	// refresh reuse, denied access) waits for buffer space before it is
	// shed under DropIfFull. Successful events are shed immediately.
	FailureGrace time.Duration
}

// Stats reports what happened to emitted events.
type Stats struct {
	Delivered      uint64
	DroppedSuccess uint64
	DroppedFailure uint64
}

// Dropped is the total number of shed events.
func (s Stats) Dropped() uint64 {
	return s.DroppedSuccess + s.DroppedFailure
}

// Dispatcher forwards audit events to a sink on its own goroutine so that
// request handlers never wait on log or network I/O.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event

	stop     chan struct{}
	finished chan struct{}
	closing  atomic.Bool
	once     sync.Once

	delivered      atomic.Uint64
	droppedSuccess atomic.Uint64
	droppedFailure atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is off. A
// nil *Dispatcher accepts and ignores every call.
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
		cfg:      cfg,
		sink:     sink,
		queue:    make(chan Event, cfg.BufferSize),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.finished)
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With a full buffer it blocks until ctx ends, unless
// DropIfFull is set; see [Config.FailureGrace].
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case d.queue <- event:
		return
	default:
	}

	switch {
	case !d.cfg.DropIfFull:
		d.wait(ctx, event, nil)
	case !event.Success && d.cfg.FailureGrace > 0:
		timer := time.NewTimer(d.cfg.FailureGrace)
		defer timer.Stop()
		d.wait(ctx, event, timer.C)
	default:
		d.drop(event)
	}
}

// wait blocks until event is queued. Cancellation, shutdown or timeout count
// as a drop.
func (d *Dispatcher) wait(ctx context.Context, event Event, timeout <-chan time.Time) {
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event)
	case <-d.stop:
		d.drop(event)
	case <-timeout:
		d.drop(event)
	}
}

func (d *Dispatcher) drop(event Event) {
	if event.Success {
		d.droppedSuccess.Add(1)
		return
	}
	d.droppedFailure.Add(1)
}

// Close stops accepting events and waits until every queued event reached
// the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		<-d.finished
	})
}

// Stats returns delivery and drop counts.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered:      d.delivered.Load(),
		DroppedSuccess: d.droppedSuccess.Load(),
		DroppedFailure: d.droppedFailure.Load(),
	}
}

// Dropped returns the total number of shed events.
func (d *Dispatcher) Dropped() uint64 {
	return d.Stats().Dropped()
}
