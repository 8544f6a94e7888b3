package goPerm

import (
	"context"
	"sync"
	"sync/atomic"
)

// invalidationDispatcher decouples the mutation path from the invalidation
// sink: events are queued on a buffered channel and delivered by a single
// worker goroutine. Close drains the queue before returning.
type invalidationDispatcher struct {
	cfg       InvalidationConfig
	sink      InvalidationSink
	ch        chan InvalidationEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newInvalidationDispatcher(cfg InvalidationConfig, sink InvalidationSink) *invalidationDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &invalidationDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan InvalidationEvent, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *invalidationDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues an event for delivery. With DropIfFull set, a saturated queue
// sheds the event and counts the drop instead of stalling the mutation path.
func (d *invalidationDispatcher) Emit(ctx context.Context, event InvalidationEvent) {
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

// Close stops the worker after draining queued events.
func (d *invalidationDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were shed under backpressure.
func (d *invalidationDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
