package lifecycle

import "sync"

// Queue is an unbounded multi-producer single-consumer event channel.
// Sends never block on the consumer: events pile up in memory until the
// consumer drains them. Delivery order is send order.
type Queue struct {
	in   chan Event
	out  chan Event
	stop chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue and starts its pump.
func NewQueue() *Queue {
	q := &Queue{
		in:   make(chan Event),
		out:  make(chan Event),
		stop: make(chan struct{}),
	}
	go q.pump()
	return q
}

// Events returns the receive side. It is closed after Close; events not
// yet consumed by then are discarded.
func (q *Queue) Events() <-chan Event {
	return q.out
}

// Sender returns a producer handle. Copies share this queue.
func (q *Queue) Sender() Sender {
	return Sender{q: q}
}

// Close shuts the queue down and closes the receive channel. Later sends
// are dropped. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.stop)
}

// send hands ev to the pump. The mutex orders it against Close: once a
// send passes the closed check, the pump is guaranteed to still accept it.
func (q *Queue) send(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.in <- ev
	return true
}

// pump buffers producer events and feeds them to the consumer. It always
// stays ready to receive, so producers are never blocked by a slow or
// absent consumer.
func (q *Queue) pump() {
	var buf []Event
	for {
		var out chan Event
		var next Event
		if len(buf) > 0 {
			out = q.out
			next = buf[0]
		}

		select {
		case <-q.stop:
			close(q.out)
			return
		case ev := <-q.in:
			buf = append(buf, ev)
		case out <- next:
			buf = buf[1:]
		}
	}
}

// Sender enqueues events for the queue's consumer. The zero value is
// inert: Send on it reports false.
type Sender struct {
	q *Queue
}

// Send enqueues ev without blocking on the consumer. It reports whether
// the event was accepted; false means the queue is closed or the sender
// is the zero value.
func (s Sender) Send(ev Event) bool {
	if s.q == nil {
		return false
	}
	return s.q.send(ev)
}
