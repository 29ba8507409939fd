package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// dropLogEvery rate-limits the dropped-event warning.
const dropLogEvery = 1000

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled     bool
	BufferSize  int
	// DropIfFull makes Emit non-blocking; overflow is counted by Dropped.
	DropIfFull  bool
	// SinkTimeout bounds each sink call. Zero means no deadline.
	SinkTimeout time.Duration
	// Logger reports dropped events and sink panics. The zero value is silent.
	Logger      zerolog.Logger
}

// Dispatcher forwards events to a sink from a single background goroutine so
// request paths never wait on sink I/O.
type Dispatcher struct {
	sink        Sink
	dropIfFull  bool
	sinkTimeout time.Duration
	logger      zerolog.Logger
	queue       chan Event
	stop        chan struct{}
	wg          sync.WaitGroup
	dropped     atomic.Uint64
	stopped     atomic.Bool
	stopOnce    sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled. A nil
// Dispatcher accepts and discards events.
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
		sink:        sink,
		dropIfFull:  cfg.DropIfFull,
		sinkTimeout: cfg.SinkTimeout,
		logger:      cfg.Logger,
		queue:       make(chan Event, cfg.BufferSize),
		stop:        make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event only.
func (d *Dispatcher) deliver(ev Event) {
	ctx := context.Background()
	if d.sinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sinkTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("event_type", ev.EventType).
				Str("panic", fmt.Sprint(r)).
				Msg("audit: sink panicked, event lost")
		}
	}()
	d.sink.Emit(ctx, ev)
}

func (d *Dispatcher) drop(ev Event, reason string) {
	n := d.dropped.Add(1)
	if n == 1 || n%dropLogEvery == 0 {
		d.logger.Warn().
			Str("event_type", ev.EventType).
			Str("reason", reason).
			Uint64("dropped_total", n).
			Msg("audit: event dropped")
	}
}

// Emit queues event. With DropIfFull it never blocks; otherwise it waits for
// queue space until ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.drop(event, "queue_full")
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event, "context_done")
	case <-d.stop:
	}
}

// Close stops accepting events, flushes the queue and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped returns the number of events discarded due to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
