package coreevent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// defaultQueueSize bounds events waiting for sinks.
const defaultQueueSize = 1024

// ErrRelayClosed is returned by Start on a relay that was closed.
var ErrRelayClosed = errors.New("relay closed")

// Logger defines the logging interface used by the relay.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sink consumes core events.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Handle delivers one event. Errors are logged; the relay moves on.
	Handle(ctx context.Context, args Args) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, args Args) error
}

// Name returns SinkName.
func (s SinkFunc) Name() string { return s.SinkName }

// Handle calls Fn.
func (s SinkFunc) Handle(ctx context.Context, args Args) error { return s.Fn(ctx, args) }

// Relay decouples objects from sinks. Objects call Trigger while holding
// their own locks, so Trigger only enqueues; one worker goroutine delivers
// events to every sink in order. When the queue is full new events are
// dropped and counted.
//
// Thread Safety: all methods are safe for concurrent use.
type Relay struct {
	queue  chan Args
	logger Logger

	mu      sync.RWMutex
	sinks   []Sink
	started bool
	closed  bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRelay creates a relay with room for queueSize pending events
// (a default is used when queueSize <= 0).
func NewRelay(queueSize int) *Relay {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Relay{
		queue:  make(chan Args, queueSize),
		logger: noopLogger{},
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (r *Relay) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// AddSink registers a sink. Sinks may be added while running.
func (r *Relay) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Sinks returns the registered sink names.
func (r *Relay) Sinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Trigger returns the callback to install on root objects.
func (r *Relay) Trigger() Trigger {
	return r.Publish
}

// Publish enqueues an event without blocking.
func (r *Relay) Publish(args Args) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- args:
	default:
		r.dropped.Add(1)
		r.logger.Warn("core event queue full, dropping event", "event", args.Name(), "path", args.PropertyPath())
	}
}

// Start launches the delivery goroutine. It returns immediately; Close
// stops delivery after draining queued events.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRelayClosed
	}
	if r.started {
		return nil
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
	return nil
}

func (r *Relay) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case args, ok := <-r.queue:
			if !ok {
				return
			}
			r.deliver(ctx, args)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) deliver(ctx context.Context, args Args) {
	r.mu.RLock()
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Handle(ctx, args); err != nil {
			r.failed.Add(1)
			r.logger.Warn("core event sink failed", "sink", s.Name(), "event", args.Name(), "error", err)
			continue
		}
		r.delivered.Add(1)
	}
}

// Close stops accepting events, drains the queue and waits for the worker.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	started := r.started
	close(r.queue)
	r.mu.Unlock()

	if started {
		<-r.done
		r.cancel()
	}
}

// Stats reports delivery counters.
type Stats struct {
	Queued    int    `json:"queued"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns a snapshot of the counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Queued:    len(r.queue),
		Delivered: r.delivered.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
	}
}
