package notify

import (
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/fsbadge/fsbadge/logging"
)

// DefaultDelay is the quiet period after the last update before an event fires.
const DefaultDelay = 150 * time.Millisecond

// Event is the coalesced "decorations changed" notification.
// All means everything changed and Paths is empty. Otherwise Paths holds
// every path passed to Update during the batch, in call order, duplicates
// included.
type Event struct {
	All   bool
	Paths []string
}

// Listener receives fired events. Listeners run on the notifier goroutine.
// They may call Update or Refresh, which start the next batch.
type Listener func(Event)

type update struct {
	all   bool
	paths []string
}

// batch is the pending state. The zero value is idle.
type batch struct {
	all   bool
	paths []string
}

func (b *batch) add(u update) {
	if u.all {
		b.all = true
		b.paths = nil
		return
	}
	if !b.all {
		b.paths = append(b.paths, u.paths...)
	}
}

func (b *batch) event() Event {
	if b.all {
		return Event{All: true}
	}
	return Event{Paths: append([]string{}, b.paths...)}
}

type listener struct {
	fn       Listener
	disposed atomic.Bool
}

// Notifier debounces change notifications. A single goroutine owns the
// pending batch; Update and Refresh queue messages in an inbox and never
// block.
type Notifier struct {
	delay time.Duration
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}
	once  gosync.Once

	inboxMu gosync.Mutex
	inbox   []update
	closed  bool

	mu        gosync.Mutex
	listeners []*listener
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDelay sets the quiet period. Non-positive values keep the default.
func WithDelay(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.delay = d
		}
	}
}

// New creates a notifier and starts its goroutine. Call Close to stop it.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		delay: DefaultDelay,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	go n.run()
	return n
}

// Update queues paths for the next event and restarts the quiet period.
// Once a Refresh is pending, queued paths are ignored until the batch fires.
func (n *Notifier) Update(paths ...string) {
	n.send(update{paths: append([]string(nil), paths...)})
}

// Refresh marks the pending batch as "everything changed" and restarts
// the quiet period.
func (n *Notifier) Refresh() {
	n.send(update{all: true})
}

func (n *Notifier) send(u update) {
	n.inboxMu.Lock()
	if n.closed {
		n.inboxMu.Unlock()
		return
	}
	n.inbox = append(n.inbox, u)
	n.inboxMu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *Notifier) drain() []update {
	n.inboxMu.Lock()
	defer n.inboxMu.Unlock()
	msgs := n.inbox
	n.inbox = nil
	return msgs
}

// Subscribe registers fn. The returned function unregisters it and is safe
// to call more than once.
func (n *Notifier) Subscribe(fn Listener) (dispose func()) {
	l := &listener{fn: fn}
	n.mu.Lock()
	n.listeners = append(n.listeners, l)
	n.mu.Unlock()

	return func() {
		if l.disposed.Swap(true) {
			return
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, other := range n.listeners {
			if other == l {
				n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
				break
			}
		}
	}
}

// Close stops the notifier goroutine. A pending batch is dropped.
func (n *Notifier) Close() {
	n.once.Do(func() {
		n.inboxMu.Lock()
		n.closed = true
		n.inbox = nil
		n.inboxMu.Unlock()
		close(n.stop)
	})
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	l := logging.Sub("notify")

	var pending batch
	armed := false
	timer := time.NewTimer(n.delay)
	timer.Stop()

	for {
		select {
		case <-n.stop:
			timer.Stop()
			if armed {
				l.Debug("dropping pending batch on close", "all", pending.all, "paths", len(pending.paths))
			}
			return

		case <-n.wake:
			msgs := n.drain()
			if len(msgs) == 0 {
				continue
			}
			for _, u := range msgs {
				pending.add(u)
			}
			armed = true
			timer.Reset(n.delay)

		case <-timer.C:
			if !armed {
				continue
			}
			ev := pending.event()
			pending = batch{}
			armed = false
			n.fire(ev)
		}
	}
}

func (n *Notifier) fire(ev Event) {
	n.mu.Lock()
	snapshot := make([]*listener, len(n.listeners))
	copy(snapshot, n.listeners)
	n.mu.Unlock()

	if logging.Enabled(slog.LevelDebug) {
		logging.Sub("notify").Debug("fire", "all", ev.All, "paths", len(ev.Paths), "listeners", len(snapshot))
	}

	for _, l := range snapshot {
		if l.disposed.Load() {
			continue
		}
		l.fn(ev)
	}
}
