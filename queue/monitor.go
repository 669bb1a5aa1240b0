package queue

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Event describes one completed (or timed-out) action, published to monitor
// subscribers for debugging and observation.
type Event struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

const (
	subscriberBuffer = 16
	recentEvents     = 256
)

// monitor fans completed-action events out to subscribers and keeps a bounded
// cache of recent events for late joiners.
type monitor struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool

	seq    uint64
	recent *lru.Cache[uint64, Event]
}

func newMonitor() *monitor {
	// lru.New only fails for a non-positive size
	recent, _ := lru.New[uint64, Event](recentEvents)
	return &monitor{
		subs:   make(map[chan Event]struct{}),
		recent: recent,
	}
}

// Subscribe registers a monitor listener. Events are dropped for slow
// subscribers rather than blocking the worker. The returned cancel func must
// be called when done.
func (q *Queue) Subscribe() (<-chan Event, func()) {
	return q.monitor.subscribe()
}

// RecentEvents returns the retained tail of completed-action events, oldest
// first.
func (q *Queue) RecentEvents() []Event {
	return q.monitor.recentEvents()
}

func (m *monitor) subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	m.subs[ch] = struct{}{}

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (m *monitor) publish(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.seq++
	m.recent.Add(m.seq, event)

	for ch := range m.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, drop the event
		}
	}
}

func (m *monitor) recentEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.recent.Keys()
	events := make([]Event, 0, len(keys))
	for _, k := range keys {
		if ev, ok := m.recent.Peek(k); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (m *monitor) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}
