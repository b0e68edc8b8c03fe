package registry

import (
	"sync"

	"github.com/alfredjeanlab/convgraph/internal/filter"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// listener owns an unbounded FIFO of pending events and the goroutine that
// drains it. Mutators enqueue under the registry lock, which fixes the
// per-listener order; the goroutine calls fn without holding any registry
// lock.
type listener struct {
	filter *filter.Filter
	fn     model.Listener

	mu    sync.Mutex
	queue []model.Event

	wake     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newListener(f *filter.Filter, fn model.Listener) *listener {
	return &listener{
		filter:  f,
		fn:      fn,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (l *listener) enqueue(ev model.Event) {
	l.mu.Lock()
	l.queue = append(l.queue, ev)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *listener) run() {
	defer close(l.stopped)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, ev := range batch {
			select {
			case <-l.done:
				return
			default:
			}
			l.fn(ev)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-l.wake:
		case <-l.done:
			return
		}
	}
}

func (l *listener) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
